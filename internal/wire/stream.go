package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

const headerLen = 4

// Reader drains framed messages from an underlying io.Reader on a
// dedicated goroutine and exposes them through a non-blocking TryNext,
// mirroring the teacher's non-blocking-first posture (framer.ErrWouldBlock)
// even though the underlying transport here only offers blocking reads.
//
// This indirection exists because spec §4.A's peek-available primitive
// ("number of bytes readable without blocking; must not block") has no
// portable equivalent over Go's os.Stdin; a background reader goroutine
// that only ever blocks, paired with a channel the single-threaded event
// loop polls with select/default, reproduces the same observable contract
// (see SPEC_FULL.md §6).
type Reader struct {
	results chan result

	mu      sync.Mutex
	pending *result
}

type result struct {
	payload []byte
	err     error
}

// NewReader starts the background drain goroutine over r.
func NewReader(r io.Reader) *Reader {
	fr := &Reader{results: make(chan result, 1)}
	go fr.run(r)
	return fr
}

func (fr *Reader) run(r io.Reader) {
	for {
		payload, err := readOneMessage(r)
		fr.results <- result{payload: payload, err: err}
		if err != nil {
			close(fr.results)
			return
		}
	}
}

func readOneMessage(r io.Reader) ([]byte, error) {
	var header [headerLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header[:])
	if length == 0 {
		return nil, ErrZeroLength
	}
	if length == 0xFFFFFFFF {
		return nil, ErrSentinelLength
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}

// TryNext returns the next framed message's payload if one has already
// completed; otherwise it returns (nil, ErrWouldBlock) immediately without
// blocking. A non-ErrWouldBlock, non-nil error is terminal: the transport
// has closed or the framing was violated and the caller should stop
// driving the event loop.
func (fr *Reader) TryNext() ([]byte, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if fr.pending != nil {
		p := fr.pending
		fr.pending = nil
		return p.payload, p.err
	}

	select {
	case res, ok := <-fr.results:
		if !ok {
			return nil, io.EOF
		}
		return res.payload, res.err
	default:
		return nil, ErrWouldBlock
	}
}

// Next blocks until a message or terminal error is available.
func (fr *Reader) Next() ([]byte, error) {
	fr.mu.Lock()
	if fr.pending != nil {
		p := fr.pending
		fr.pending = nil
		fr.mu.Unlock()
		return p.payload, p.err
	}
	fr.mu.Unlock()

	res, ok := <-fr.results
	if !ok {
		return nil, io.EOF
	}
	return res.payload, res.err
}

// Writer writes framed messages to an underlying io.Writer. Only one
// writer goroutine may call Write at a time (spec §4.A: atomic from the
// browser's viewpoint, single writer).
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for framed writes.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Write frames payload as length-prefixed bytes: it writes the 4-byte
// header, then the payload, honoring io.Writer's short-write contract by
// looping on each until every byte is written.
func (fw *Writer) Write(payload []byte) error {
	var header [headerLen]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(payload)))

	if err := writeAll(fw.w, header[:]); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if err := writeAll(fw.w, payload); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

func writeAll(w io.Writer, p []byte) error {
	for len(p) > 0 {
		n, err := w.Write(p)
		if n > 0 {
			p = p[n:]
		}
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
	}
	return nil
}
