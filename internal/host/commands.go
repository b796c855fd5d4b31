package host

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/cardid/webcard/internal/apdu"
	"github.com/cardid/webcard/internal/jsonval"
	"github.com/cardid/webcard/internal/pcsc"
)

// dispatch implements spec §4.G: five request handlers keyed on the `c`
// field, everything else falling through to the unknown-command no-op.
func (e *Engine) dispatch(ctx context.Context, req *jsonval.Value) *jsonval.Value {
	id := req.Key("i")

	code, ok := req.Key("c").AsNumber()
	if !ok {
		return ackOnly(id)
	}

	switch int(code) {
	case 1:
		return e.cmdListReaders(id)
	case 2:
		return e.cmdConnect(ctx, id, req)
	case 3:
		return e.cmdDisconnect(ctx, id, req)
	case 4:
		return e.cmdTransceive(ctx, id, req)
	case 10:
		return e.cmdVersion(id)
	default:
		return ackOnly(id)
	}
}

func ackOnly(id *jsonval.Value) *jsonval.Value {
	v := jsonval.NewObject()
	v.Set("i", id)
	return v
}

func incomplete(id *jsonval.Value) *jsonval.Value {
	v := jsonval.NewObject()
	v.Set("i", id)
	v.Set("incomplete", jsonval.NewBool(true))
	return v
}

func (e *Engine) cmdListReaders(id *jsonval.Value) *jsonval.Value {
	arr := jsonval.NewArray()
	for _, ent := range e.reg.Entries() {
		item := jsonval.NewObject()
		item.Set("n", jsonval.NewString(ent.Name))
		item.Set("a", jsonval.NewString(strings.ToUpper(hex.EncodeToString(ent.ATR))))
		arr.Append(item)
	}
	v := jsonval.NewObject()
	v.Set("i", id)
	v.Set("d", arr)
	return v
}

func (e *Engine) cmdConnect(ctx context.Context, id *jsonval.Value, req *jsonval.Value) *jsonval.Value {
	idx, ok := readerIndex(req, e.reg.Len())
	if !ok {
		return incomplete(id)
	}
	shareMode, ok := shareModeOf(req)
	if !ok {
		return incomplete(id)
	}

	ent := e.reg.Entry(idx)
	if err := ent.Conn.Open(ctx, e.rm, e.rmCtx, ent.Name, shareMode); err != nil {
		return incomplete(id)
	}

	// Pull the current ATR immediately rather than waiting for the next
	// loop iteration's status poll, so the connect response can carry it.
	updated, err := e.rm.GetStatusChange(ctx, e.rmCtx, []pcsc.ReaderState{{Name: ent.Name, State: ent.State, ATR: ent.ATR}})
	if err == nil && len(updated) == 1 {
		ent.ATR = updated[0].ATR
		ent.State = updated[0].State &^ pcsc.StateChanged
	}

	v := jsonval.NewObject()
	v.Set("i", id)
	v.Set("d", jsonval.NewString(strings.ToUpper(hex.EncodeToString(ent.ATR))))
	return v
}

func (e *Engine) cmdDisconnect(ctx context.Context, id *jsonval.Value, req *jsonval.Value) *jsonval.Value {
	idx, ok := readerIndex(req, e.reg.Len())
	if !ok {
		return incomplete(id)
	}
	ent := e.reg.Entry(idx)
	if err := ent.Conn.Close(ctx, e.rm); err != nil {
		return incomplete(id)
	}
	return ackOnly(id)
}

func (e *Engine) cmdTransceive(ctx context.Context, id *jsonval.Value, req *jsonval.Value) *jsonval.Value {
	idx, ok := readerIndex(req, e.reg.Len())
	if !ok {
		return incomplete(id)
	}
	ent := e.reg.Entry(idx)
	if !ent.Conn.IsOpen() {
		return incomplete(id)
	}
	command, ok := hexField(req, "a")
	if !ok {
		return incomplete(id)
	}

	result, _, err := apdu.Chained(ctx, e.rm, ent.Conn.Handle(), ent.Conn.Protocol(), command)
	if err != nil {
		return incomplete(id)
	}

	v := jsonval.NewObject()
	v.Set("i", id)
	v.Set("d", jsonval.NewString(strings.ToUpper(hex.EncodeToString(result))))
	return v
}

func (e *Engine) cmdVersion(id *jsonval.Value) *jsonval.Value {
	v := jsonval.NewObject()
	v.Set("i", id)
	v.Set("verNat", jsonval.NewString(Version))
	return v
}

// readerIndex validates the `r` field: present, numeric, integral, and
// within [0, readerCount) (spec §4.G validation rules).
func readerIndex(req *jsonval.Value, readerCount int) (int, bool) {
	n, ok := req.Key("r").AsNumber()
	if !ok {
		return 0, false
	}
	idx := int(n)
	if float64(idx) != n || idx < 0 || idx >= readerCount {
		return 0, false
	}
	return idx, true
}

// shareModeOf reads the optional `p` field, defaulting to SHARED when
// absent (spec §4.G).
func shareModeOf(req *jsonval.Value) (pcsc.ShareMode, bool) {
	field := req.Key("p")
	if field.IsNull() {
		return pcsc.ShareShared, true
	}
	n, ok := field.AsNumber()
	if !ok {
		return 0, false
	}
	switch pcsc.ShareMode(n) {
	case pcsc.ShareShared, pcsc.ShareExclusive, pcsc.ShareDirect:
		return pcsc.ShareMode(n), true
	default:
		return 0, false
	}
}

// hexField decodes key as an even-length, case-insensitive hex string
// (spec §4.G: `a` must be a string of an even number of hex digits).
func hexField(req *jsonval.Value, key string) ([]byte, bool) {
	s, ok := req.Key(key).AsString()
	if !ok || len(s)%2 != 0 {
		return nil, false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}
