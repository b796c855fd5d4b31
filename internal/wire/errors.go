// Package wire implements the Native Messaging framing used between the
// browser extension and this process: a little-endian u32 length prefix
// followed by exactly that many bytes of UTF-8 JSON (spec §4.A).
//
// Architecture follows the teacher framer package's shape (a background
// reader draining one transport into discrete messages, a thin Writer
// doing length-prefix-then-payload-then-flush) adapted to a single fixed
// header width instead of the teacher's three-tier varint header, since
// Native Messaging never negotiates an alternate wire format.
package wire

import (
	"errors"

	"code.hybscloud.com/iox"
)

var (
	// ErrWouldBlock is returned by Reader.TryNext when no complete frame
	// (and no terminal error) is available yet. It is re-exported from
	// iox so callers share the same control-flow sentinel the teacher's
	// non-blocking transports use.
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrZeroLength reports a frame whose declared length is zero, which
	// spec §4.A rejects explicitly (distinct from a zero-length payload
	// after a valid header — the protocol simply never sends one).
	ErrZeroLength = errors.New("wire: zero-length frame rejected")

	// ErrSentinelLength reports a frame declaring the reserved sentinel
	// length 0xFFFFFFFF, rejected per spec §4.A.
	ErrSentinelLength = errors.New("wire: sentinel length 0xFFFFFFFF rejected")

	// ErrNotAPipe reports that a standard stream failed the startup
	// pipe-only validation (spec §4.A validate-streams).
	ErrNotAPipe = errors.New("wire: standard stream is not a pipe")
)
