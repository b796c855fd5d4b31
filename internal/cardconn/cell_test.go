package cardconn

import (
	"context"
	"testing"

	"github.com/cardid/webcard/internal/pcsc"
	"github.com/cardid/webcard/internal/pcsc/pcscfake"
)

func TestOpenIsIdempotent(t *testing.T) {
	fake := pcscfake.New()
	fake.SetReaders([]string{"R1"})
	rmCtx, _ := fake.EstablishContext(context.Background())

	var cell Cell
	if err := cell.Open(context.Background(), fake, rmCtx, "R1", pcsc.ShareShared); err != nil {
		t.Fatalf("first open: %v", err)
	}
	h1 := cell.Handle()
	if err := cell.Open(context.Background(), fake, rmCtx, "R1", pcsc.ShareShared); err != nil {
		t.Fatalf("second open: %v", err)
	}
	if cell.Handle() != h1 {
		t.Fatalf("second open reconnected: got handle %v want %v", cell.Handle(), h1)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	fake := pcscfake.New()
	fake.SetReaders([]string{"R1"})
	rmCtx, _ := fake.EstablishContext(context.Background())

	var cell Cell
	_ = cell.Open(context.Background(), fake, rmCtx, "R1", pcsc.ShareShared)
	if err := cell.Close(context.Background(), fake); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if cell.IsOpen() {
		t.Fatalf("cell should be closed")
	}
	if err := cell.Close(context.Background(), fake); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestOpenArmsSuppressionForOneEcho(t *testing.T) {
	fake := pcscfake.New()
	fake.SetReaders([]string{"R1"})
	rmCtx, _ := fake.EstablishContext(context.Background())

	var cell Cell
	_ = cell.Open(context.Background(), fake, rmCtx, "R1", pcsc.ShareShared)

	if !cell.ConsumeSuppression() {
		t.Fatalf("expected one suppressed echo after open")
	}
	if cell.ConsumeSuppression() {
		t.Fatalf("expected suppression counter to be exhausted")
	}
}

func TestInvalidateOnRemovalDoesNotCallDisconnect(t *testing.T) {
	fake := pcscfake.New()
	fake.SetReaders([]string{"R1"})
	rmCtx, _ := fake.EstablishContext(context.Background())

	var cell Cell
	_ = cell.Open(context.Background(), fake, rmCtx, "R1", pcsc.ShareShared)
	cell.InvalidateOnRemoval()
	if cell.IsOpen() {
		t.Fatalf("cell should report closed after invalidation")
	}
	if got := fake.OpenHandleCount(); got != 1 {
		t.Fatalf("got %d open handles in the backend after invalidation, want 1 (no Disconnect call)", got)
	}
}
