package jsonval

import (
	"fmt"
	"testing"
)

func TestDecodeRoundTrip(t *testing.T) {
	for _, raw := range []string{
		`{"i":"Q1","c":1}`,
		`{"i":"Q2","d":[{"n":"ACS ACR122 00 00","a":"3B8F8001804F0CA000000306030001000000006A"}]}`,
		`{"e":3,"n":["X","Y"]}`,
		`[]`,
		`{}`,
		`{"a":[1,2,3],"b":true,"c":false,"d":null,"e":-1.5e2}`,
	} {
		t.Run(raw, func(t *testing.T) {
			v, err := Decode([]byte(raw))
			if err != nil {
				t.Fatalf("Decode(%q): %v", raw, err)
			}
			out := Encode(v)
			v2, err := Decode(out)
			if err != nil {
				t.Fatalf("Decode(Encode(...)): %v", err)
			}
			if !Equal(v, v2) {
				t.Fatalf("round trip mismatch: %s vs %s", raw, out)
			}
		})
	}
}

func TestDecodeRejectsTrailingComma(t *testing.T) {
	for _, raw := range []string{`[1,]`, `{"a":1,}`, `[,1]`, `{,"a":1}`} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("Decode(%q): expected error, got nil", raw)
		}
	}
}

func TestDecodeBareLiteralWithoutTerminatorFails(t *testing.T) {
	// Open question (spec §9): a bare top-level literal with nothing
	// following it is rejected, matching the source's lookahead behavior.
	for _, raw := range []string{`true`, `false`, `null`, `42`, `-3.5`} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("Decode(%q): expected error for unterminated bare literal, got nil", raw)
		}
	}
}

func TestDecodeRejectsControlBytesInStrings(t *testing.T) {
	raw := "{\"a\":\"x\x01y\"}"
	if _, err := Decode([]byte(raw)); err == nil {
		t.Errorf("expected error for unescaped control byte")
	}
}

func TestDecodeRejectsLeadingZero(t *testing.T) {
	for _, raw := range []string{`{"a":01}`, `{"a":00}`} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Errorf("Decode(%q): expected error for leading zero", raw)
		}
	}
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := NewObject()
	obj.Set("i", NewString("X1"))
	obj.Set("incomplete", NewBool(true))
	out := string(Encode(obj))
	want := `{"i":"X1","incomplete":true}`
	if out != want {
		t.Fatalf("got %s want %s", out, want)
	}
}

func TestSetOverwritesInPlace(t *testing.T) {
	obj := NewObject()
	obj.Set("a", NewNumber(1))
	obj.Set("b", NewNumber(2))
	obj.Set("a", NewNumber(3))
	out := string(Encode(obj))
	want := `{"a":3,"b":2}`
	if out != want {
		t.Fatalf("got %s want %s", out, want)
	}
}

func TestKeyAndIndexReturnNullInsteadOfPanicking(t *testing.T) {
	var v *Value
	if !v.Key("x").IsNull() {
		t.Fatalf("expected null")
	}
	arr := NewArray()
	if !arr.Index(5).IsNull() {
		t.Fatalf("expected null for out-of-range index")
	}
	obj := NewObject()
	if !obj.Index(0).IsNull() {
		t.Fatalf("Index on object should yield null")
	}
}

func TestNumberFormattingHasNoFractionalDigits(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{5, "5"},
		{-3, "-3"},
		{1000000, "1000000"},
	} {
		t.Run(fmt.Sprintf("%v", tc.in), func(t *testing.T) {
			out := string(Encode(NewNumber(tc.in)))
			if out != tc.want {
				t.Fatalf("got %s want %s", out, tc.want)
			}
		})
	}
}
