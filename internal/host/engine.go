// Package host implements the single-threaded event loop described in
// spec §4.F: it ties together the framed transport (internal/wire), the
// JSON codec (internal/jsonval), the reader registry (internal/readerdb),
// the connection cells (internal/cardconn), and the APDU transceiver
// (internal/apdu) into the cooperative poll/dispatch cycle that drives a
// native-messaging host.
package host

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/cardid/webcard/internal/jsonval"
	"github.com/cardid/webcard/internal/pcsc"
	"github.com/cardid/webcard/internal/readerdb"
	"github.com/cardid/webcard/internal/wire"
)

// fleetPollInterval is the upper bound on reader plug/unplug detection
// latency (spec §4.F step 1).
const fleetPollInterval = 1 * time.Second

// idleSleep keeps the loop from busy-waiting between iterations (spec
// §4.F step 4: "implementations may sleep briefly").
const idleSleep = 10 * time.Millisecond

// Engine owns every piece of mutable state this process has: the PC/SC
// context, the reader registry, and the two framed streams. Nothing here
// is safe for concurrent use — spec §5 mandates exactly one thread
// touching this state, and Engine does not defend against a second one.
type Engine struct {
	rm    pcsc.ResourceManager
	rmCtx pcsc.Context
	reg   *readerdb.Registry

	in  *wire.Reader
	out *wire.Writer
	log *slog.Logger
}

// NewEngine establishes the PC/SC context and performs the first
// reader-fleet fetch (firstFetch = true, spec §4.C.8), mirroring what
// the original implementation's init routine does before entering its
// run loop.
func NewEngine(ctx context.Context, rm pcsc.ResourceManager, stdin io.Reader, stdout io.Writer, log *slog.Logger) (*Engine, error) {
	rmCtx, err := rm.EstablishContext(ctx)
	if err != nil {
		return nil, err
	}
	reg, _, err := readerdb.FetchAndDiff(ctx, rm, rmCtx, readerdb.New(), true)
	if errors.Is(err, pcsc.ErrServiceStopped) {
		_ = rm.ReleaseContext(ctx, rmCtx)
		rmCtx, err = rm.EstablishContext(ctx)
		if err != nil {
			return nil, err
		}
		reg, _, err = readerdb.FetchAndDiff(ctx, rm, rmCtx, readerdb.New(), true)
	}
	if err != nil {
		_ = rm.ReleaseContext(ctx, rmCtx)
		return nil, err
	}
	return &Engine{
		rm:    rm,
		rmCtx: rmCtx,
		reg:   reg,
		in:    wire.NewReader(stdin),
		out:   wire.NewWriter(stdout),
		log:   log,
	}, nil
}

// Run drives the cooperative loop until the input stream closes or
// reports a framing violation, at which point it returns nil — a closed
// stdin is normal shutdown (spec §6.2: exit 0). On every exit path it
// tears down what it owns: every open connection is closed and the PC/SC
// context is released (spec §5: "cleanup must release the context, close
// every open connection, and free all owned memory"), the same shutdown
// WebCard_close performs before the original process exits.
func (e *Engine) Run(ctx context.Context) error {
	defer e.teardown(ctx)

	lastPoll := time.Now()

	for {
		if time.Since(lastPoll) >= fleetPollInterval {
			if err := e.refreshFleet(ctx); err != nil {
				e.log.Error("fleet refresh failed", "err", err, "sc", pcsc.ErrorString(err))
			}
			lastPoll = time.Now()
		}

		if err := e.pollCardStates(ctx); err != nil {
			e.log.Error("status poll failed", "err", err, "sc", pcsc.ErrorString(err))
		}

		payload, err := e.in.TryNext()
		switch {
		case err == nil:
			if werr := e.handleMessage(ctx, payload); werr != nil {
				return werr
			}
		case errors.Is(err, wire.ErrWouldBlock):
			// nothing framed yet this tick
		default:
			// EOF or a framing violation: stop driving the loop.
			return nil
		}

		time.Sleep(idleSleep)
	}
}

// teardown releases every resource the engine owns. Called once, via
// defer, on every Run exit path.
func (e *Engine) teardown(ctx context.Context) {
	e.reg.Destroy(ctx, e.rm)
	if err := e.rm.ReleaseContext(ctx, e.rmCtx); err != nil {
		e.log.Error("release context failed", "err", err, "sc", pcsc.ErrorString(err))
	}
}

func (e *Engine) handleMessage(ctx context.Context, payload []byte) error {
	req, err := jsonval.Decode(payload)
	if err != nil {
		// Parse error: drop the message, no response (spec §7).
		e.log.Debug("dropping malformed request", "err", err)
		return nil
	}
	resp := e.dispatch(ctx, req)
	return e.emit(resp)
}

// refreshFleet implements spec §4.F step 1: poll the reader fleet, and on
// "service stopped" release and re-establish the context before retrying
// once, exactly as WebCard_run's retry loop does (SPEC_FULL.md §4).
func (e *Engine) refreshFleet(ctx context.Context) error {
	reg, diff, err := readerdb.FetchAndDiff(ctx, e.rm, e.rmCtx, e.reg, false)
	if errors.Is(err, pcsc.ErrServiceStopped) {
		if rerr := e.rm.ReleaseContext(ctx, e.rmCtx); rerr != nil {
			e.log.Debug("release before re-establish failed", "err", rerr, "sc", pcsc.ErrorString(rerr))
		}
		newCtx, eerr := e.rm.EstablishContext(ctx)
		if eerr != nil {
			return eerr
		}
		e.rmCtx = newCtx
		reg, diff, err = readerdb.FetchAndDiff(ctx, e.rm, e.rmCtx, e.reg, false)
	}
	if err != nil {
		return err
	}
	if diff.Unchanged {
		return nil
	}
	// The outgoing registry's connections are dropped as part of the
	// swap (spec §4.C.6), mirroring SCardReaderDB_fetch's call to
	// SCardReaderDB_destroy(database) before replacing it.
	old := e.reg
	e.reg = reg
	old.Destroy(ctx, e.rm)
	if len(diff.Added) > 0 {
		if err := e.emit(eventReadersAdded(diff.Added)); err != nil {
			return err
		}
	}
	if len(diff.Removed) > 0 {
		if err := e.emit(eventReadersRemoved(diff.Removed)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) emit(v *jsonval.Value) error {
	return e.out.Write(jsonval.Encode(v))
}
