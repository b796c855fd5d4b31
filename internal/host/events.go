package host

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/cardid/webcard/internal/jsonval"
	"github.com/cardid/webcard/internal/pcsc"
)

// pollCardStates implements spec §4.F step 2: a 0-timeout status-change
// poll across every known reader, turning observed transitions into
// card-insert/card-remove events unless the reader's connection cell is
// still suppressing its own self-inflicted echo. An entry that has not yet
// been synced (neither the empty nor the present bit set, as after a
// registry rebuild) takes the reported state and ATR without an event.
func (e *Engine) pollCardStates(ctx context.Context) error {
	entries := e.reg.Entries()
	if len(entries) == 0 {
		return nil
	}

	states := make([]pcsc.ReaderState, len(entries))
	for i, ent := range entries {
		states[i] = pcsc.ReaderState{Name: ent.Name, State: ent.State, ATR: ent.ATR}
	}

	updated, err := e.rm.GetStatusChange(ctx, e.rmCtx, states)
	if err != nil {
		return err
	}

	for i, st := range updated {
		ent := entries[i]

		if ent.State&(pcsc.StatePresent|pcsc.StateEmpty) == 0 {
			ent.State = st.State &^ pcsc.StateChanged
			ent.ATR = st.ATR
			continue
		}

		if st.State&pcsc.StateChanged == 0 {
			continue
		}

		if ent.Conn.ConsumeSuppression() {
			ent.State = st.State &^ pcsc.StateChanged
			ent.ATR = st.ATR
			continue
		}

		wasPresent := ent.State&pcsc.StatePresent != 0
		nowPresent := st.State&pcsc.StatePresent != 0

		switch {
		case !wasPresent && nowPresent:
			ent.ATR = st.ATR
			if err := e.emit(eventCardInsert(i, ent.ATR)); err != nil {
				return err
			}
		case wasPresent && !nowPresent:
			ent.Conn.InvalidateOnRemoval()
			if err := e.emit(eventCardRemove(i)); err != nil {
				return err
			}
		}
		ent.State = st.State &^ pcsc.StateChanged
	}
	return nil
}

func eventCardInsert(readerIndex int, atr []byte) *jsonval.Value {
	v := jsonval.NewObject()
	v.Set("e", jsonval.NewNumber(1))
	v.Set("r", jsonval.NewNumber(float64(readerIndex)))
	v.Set("d", jsonval.NewString(strings.ToUpper(hex.EncodeToString(atr))))
	return v
}

func eventCardRemove(readerIndex int) *jsonval.Value {
	v := jsonval.NewObject()
	v.Set("e", jsonval.NewNumber(2))
	v.Set("r", jsonval.NewNumber(float64(readerIndex)))
	return v
}

func eventReadersAdded(names []string) *jsonval.Value {
	v := jsonval.NewObject()
	v.Set("e", jsonval.NewNumber(3))
	v.Set("n", namesArray(names))
	return v
}

func eventReadersRemoved(names []string) *jsonval.Value {
	v := jsonval.NewObject()
	v.Set("e", jsonval.NewNumber(4))
	v.Set("n", namesArray(names))
	return v
}

func namesArray(names []string) *jsonval.Value {
	arr := jsonval.NewArray()
	for _, n := range names {
		arr.Append(jsonval.NewString(n))
	}
	return arr
}
