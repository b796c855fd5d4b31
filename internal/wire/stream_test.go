package wire

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	r, w := io.Pipe()
	fw := NewWriter(w)
	fr := NewReader(r)

	msgs := [][]byte{
		[]byte(`{"i":"Q1","c":1}`),
		[]byte("x"),
		bytes.Repeat([]byte("A"), 70000), // exercises a length > 16 bits
	}

	go func() {
		for _, m := range msgs {
			if err := fw.Write(m); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
	}()

	for i, want := range msgs {
		got, err := fr.Next()
		if err != nil {
			t.Fatalf("read[%d]: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("read[%d]: got %d bytes want %d bytes", i, len(got), len(want))
		}
	}
}

func TestZeroLengthFrameRejected(t *testing.T) {
	r, w := io.Pipe()
	fr := NewReader(r)
	go func() {
		_, _ = w.Write([]byte{0, 0, 0, 0})
	}()
	_, err := fr.Next()
	if err != ErrZeroLength {
		t.Fatalf("got %v want ErrZeroLength", err)
	}
}

func TestSentinelLengthRejected(t *testing.T) {
	r, w := io.Pipe()
	fr := NewReader(r)
	go func() {
		_, _ = w.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}()
	_, err := fr.Next()
	if err != ErrSentinelLength {
		t.Fatalf("got %v want ErrSentinelLength", err)
	}
}

func TestTryNextDoesNotBlockWhenEmpty(t *testing.T) {
	r, _ := io.Pipe()
	fr := NewReader(r)

	done := make(chan struct{})
	go func() {
		_, err := fr.TryNext()
		if err != ErrWouldBlock {
			t.Errorf("got %v want ErrWouldBlock", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("TryNext blocked")
	}
}

func TestTryNextSurfacesCompletedMessage(t *testing.T) {
	r, w := io.Pipe()
	fw := NewWriter(w)
	fr := NewReader(r)

	want := []byte("hello")
	if err := fw.Write(want); err != nil {
		t.Fatalf("write: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		got, err := fr.TryNext()
		if err == nil {
			if !bytes.Equal(got, want) {
				t.Fatalf("got %q want %q", got, want)
			}
			return
		}
		if err != ErrWouldBlock {
			t.Fatalf("unexpected error: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestSplitHeaderAndPayloadWrites(t *testing.T) {
	r, w := io.Pipe()
	fr := NewReader(r)

	payload := []byte("split-write")
	go func() {
		var header [4]byte
		header[0] = byte(len(payload))
		_, _ = w.Write(header[:])
		_, _ = w.Write(payload)
	}()

	got, err := fr.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("got %q want %q", got, payload)
	}
}

func TestReaderEOFMidPayloadIsUnexpectedEOF(t *testing.T) {
	r, w := io.Pipe()
	fr := NewReader(r)

	go func() {
		header := []byte{10, 0, 0, 0} // declares 10 bytes
		_, _ = w.Write(header)
		_, _ = w.Write([]byte("abc")) // only 3 delivered
		_ = w.Close()
	}()

	_, err := fr.Next()
	if err != io.ErrUnexpectedEOF {
		t.Fatalf("got %v want io.ErrUnexpectedEOF", err)
	}
}
