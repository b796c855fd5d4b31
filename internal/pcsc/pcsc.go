// Package pcsc defines the narrow resource-manager surface this host
// consumes (spec §6.3) and provides the concrete bridge to it.
//
// The pack's retrieval set has no Go PC/SC wrapper anywhere (only the
// original C implementation touches SCard* at all), so ResourceManager is
// implemented directly against the system's PC/SC-lite client library via
// cgo in pcsclite_linux.go, a straight port of
// original_source/native/src/smart_cards/{sc_conn,sc_db}.c and
// os_specific.c. Tests use the pure-Go in-memory Manager in the pcscfake
// subpackage instead; on non-Linux builds every PCSCLite method returns
// ErrUnsupportedPlatform (pcsclite_other.go).
package pcsc

import "context"

// ShareMode mirrors the three PC/SC sharing modes (spec GLOSSARY).
type ShareMode uint8

const (
	ShareShared ShareMode = iota
	ShareExclusive
	ShareDirect
)

// Protocol is the negotiated (or requested) transport protocol tag.
type Protocol uint8

const (
	ProtocolUndefined Protocol = 0
	ProtocolT0        Protocol = 1
	ProtocolT1        Protocol = 2
	// ProtocolT0|ProtocolT1 is not itself a negotiated protocol; Connect takes
	// the logical OR of T0|T1 as its requested mask for shared/exclusive
	// opens, matching SCARD_PROTOCOL_T0 | SCARD_PROTOCOL_T1 upstream.
)

// Disposition controls what Disconnect does to the card on close. This
// host only ever uses DispositionLeave (spec §4.D: "the card is left
// powered").
type Disposition uint8

const (
	DispositionLeave Disposition = iota
)

// EventState is a bitfield describing a reader's status-change snapshot,
// mirroring the PC/SC SCARD_STATE_* bits this host cares about.
type EventState uint32

const (
	StateUnaware EventState = 0x0000 // no state known yet
	StateEmpty   EventState = 0x0010 // no card present
	StatePresent EventState = 0x0020 // card present
	StateChanged EventState = 0x0002 // state differs from the state the caller supplied
)

// ReaderState is one entry of a GetStatusChange response.
type ReaderState struct {
	Name  string
	State EventState
	ATR   []byte
}

// Handle identifies an open connection to a reader. The zero Handle is
// never valid and is used as "not connected" throughout internal/cardconn.
type Handle uint64

// Context is an opaque PC/SC resource-manager context handle.
type Context uint64

// ResourceManager is the abstract operation set spec §6.3 assumes exists.
// Every method may block briefly (PC/SC round-trip); Transmit is the only
// one expected to take human-perceptible time (a smart-card APDU
// round-trip).
type ResourceManager interface {
	// EstablishContext must be callable multiple times in a process
	// lifetime (e.g. after ReleaseContext, to recover from
	// ErrServiceStopped).
	EstablishContext(ctx context.Context) (Context, error)
	ReleaseContext(ctx context.Context, c Context) error

	// ListReaders returns the current reader name list. ErrServiceStopped
	// signals the caller must release and re-establish the context.
	ListReaders(ctx context.Context, c Context) ([]string, error)

	// GetStatusChange reports event-state + ATR for each named reader. It
	// polls with a zero timeout and returns immediately (spec §4.F step 2).
	GetStatusChange(ctx context.Context, c Context, states []ReaderState) ([]ReaderState, error)

	// Connect opens a session to name under shareMode. protoMask is the
	// bitwise OR of acceptable protocols (ignored, must be 0, for
	// ShareDirect).
	Connect(ctx context.Context, c Context, name string, shareMode ShareMode, protoMask Protocol) (Handle, Protocol, error)

	Disconnect(ctx context.Context, h Handle, disposition Disposition) error

	// Transmit sends one command APDU and returns the response APDU
	// bytes (SW1 SW2 included), truncated/sized by the backend up to
	// maxResp bytes.
	Transmit(ctx context.Context, h Handle, proto Protocol, command []byte, maxResp int) ([]byte, error)
}
