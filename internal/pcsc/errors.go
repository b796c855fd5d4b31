package pcsc

import "errors"

var (
	// ErrServiceStopped mirrors SCARD_E_SERVICE_STOPPED / SCARD_E_NO_SERVICE:
	// the resource manager itself is gone (e.g. the last reader was
	// unplugged on some platforms). The event loop must release and
	// re-establish its context (spec §4.C.7).
	ErrServiceStopped = errors.New("pcsc: service stopped")

	// ErrNoReadersAvailable mirrors SCARD_E_NO_READERS_AVAILABLE: a
	// non-error "empty fleet" condition distinct from ErrServiceStopped.
	ErrNoReadersAvailable = errors.New("pcsc: no readers available")

	// ErrUnknownReader mirrors SCARD_E_UNKNOWN_READER.
	ErrUnknownReader = errors.New("pcsc: unknown reader")

	// ErrInvalidHandle mirrors SCARD_E_INVALID_HANDLE: an operation was
	// attempted on a connection cell that is not open.
	ErrInvalidHandle = errors.New("pcsc: invalid handle")

	// ErrCardRemoved mirrors SCARD_W_REMOVED_CARD.
	ErrCardRemoved = errors.New("pcsc: card removed")

	// ErrUnsupportedPlatform is returned by every method of the
	// build-tag-selected PCSCLite backend on platforms this host does not
	// bridge natively.
	ErrUnsupportedPlatform = errors.New("pcsc: no resource manager backend for this platform")
)

// errorNames carries the subset of the original implementation's
// _DEBUG-only SCard error-code lookup table (sc_webcard.c,
// WebCard_errorLookup) that this rewrite actually encounters through the
// narrowed ResourceManager surface. Only used in slog log lines; never
// crosses the wire (spec §7: no typed error codes cross the wire).
var errorNames = map[error]string{
	ErrServiceStopped:      "SCARD_E_SERVICE_STOPPED",
	ErrNoReadersAvailable:  "SCARD_E_NO_READERS_AVAILABLE",
	ErrUnknownReader:       "SCARD_E_UNKNOWN_READER",
	ErrInvalidHandle:       "SCARD_E_INVALID_HANDLE",
	ErrCardRemoved:         "SCARD_W_REMOVED_CARD",
	ErrUnsupportedPlatform: "",
}

// ErrorString returns the upstream PC/SC mnemonic for a sentinel error
// from this package, or "" if err isn't one of ours. Used only for
// logging (SPEC_FULL.md §4 "supplemented features").
func ErrorString(err error) string {
	for sentinel, name := range errorNames {
		if errors.Is(err, sentinel) {
			return name
		}
	}
	return ""
}
