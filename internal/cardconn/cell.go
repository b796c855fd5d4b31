// Package cardconn implements the per-reader connection cell state
// machine described in spec §4.D: an idempotent open/close pair plus the
// ignore-counter that suppresses the self-inflicted status-change echo a
// successful Connect triggers on some PC/SC implementations.
package cardconn

import (
	"context"

	"github.com/cardid/webcard/internal/pcsc"
)

// Cell holds one reader's connection state. The zero Cell is closed.
//
// Cell is not safe for concurrent use: spec §5 mandates a single thread
// owning all mutable state (registry, PC/SC context, connections), so no
// internal locking is used here.
type Cell struct {
	handle   pcsc.Handle
	protocol pcsc.Protocol

	// ignore counts pending self-inflicted status-change echoes still to
	// be suppressed by the event loop's status-change handler.
	ignore int32
}

// IsOpen reports whether the cell currently holds a live handle.
// handle == 0 ⇔ closed (spec §3 Connection cell invariant).
func (c *Cell) IsOpen() bool { return c.handle != 0 }

// Protocol returns the negotiated transport protocol of an open cell.
func (c *Cell) Protocol() pcsc.Protocol { return c.protocol }

// Handle returns the underlying connection handle (0 if closed).
func (c *Cell) Handle() pcsc.Handle { return c.handle }

// Open opens a session to name under shareMode. Idempotent: calling Open
// on an already-open cell is a no-op success (spec §4.D). On a fresh open,
// the ignore counter is armed for one expected self-echo so the next
// status-change poll that observes this reader's own transition does not
// emit a spurious card-insert event (spec §8 "card-insert suppression").
func (c *Cell) Open(ctx context.Context, rm pcsc.ResourceManager, rmCtx pcsc.Context, name string, shareMode pcsc.ShareMode) error {
	if c.IsOpen() {
		return nil
	}
	protoMask := pcsc.Protocol(0)
	if shareMode != pcsc.ShareDirect {
		protoMask = pcsc.ProtocolT0 | pcsc.ProtocolT1
	}
	handle, negotiated, err := rm.Connect(ctx, rmCtx, name, shareMode, protoMask)
	if err != nil {
		return err
	}
	c.handle = handle
	c.protocol = negotiated
	c.ArmSuppression(1)
	return nil
}

// Close closes an open cell, leaving the card powered (disposition
// "leave", spec §4.D). Idempotent: closing an already-closed cell is a
// no-op success. Zeroing the handle after a successful OS-level close is
// one observable step, satisfying the invariant in spec §3.
func (c *Cell) Close(ctx context.Context, rm pcsc.ResourceManager) error {
	if !c.IsOpen() {
		return nil
	}
	h := c.handle
	if err := rm.Disconnect(ctx, h, pcsc.DispositionLeave); err != nil {
		return err
	}
	c.handle = 0
	c.protocol = pcsc.ProtocolUndefined
	return nil
}

// InvalidateOnRemoval zeroes the handle without calling the OS close: the
// session is already dead once the card has been physically removed
// (spec §4.D invalidate-on-removal).
func (c *Cell) InvalidateOnRemoval() {
	c.handle = 0
	c.protocol = pcsc.ProtocolUndefined
}

// ArmSuppression increments the ignore counter by n pending echoes.
func (c *Cell) ArmSuppression(n int32) {
	c.ignore += n
}

// ConsumeSuppression reports whether a pending status-change notification
// for this reader should be swallowed instead of turned into an event,
// decrementing the counter if so.
func (c *Cell) ConsumeSuppression() bool {
	if c.ignore <= 0 {
		return false
	}
	c.ignore--
	return true
}
