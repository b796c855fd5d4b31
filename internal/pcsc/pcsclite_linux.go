//go:build linux

package pcsc

/*
#cgo LDFLAGS: -lpcsclite
#include <stdlib.h>
#include <string.h>
#include <winscard.h>
#include <wintypes.h>
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"unsafe"
)

// PCSCLite bridges ResourceManager directly onto the system's PC/SC-lite
// client library, the same one the original implementation links against
// (sc_conn.c / sc_db.c / os_specific.c). No Go wrapper for PC/SC exists
// anywhere in the retrieval pack, so this talks to libpcsclite via cgo
// rather than reaching for a library that was never in the corpus.
type PCSCLite struct{}

// NewPCSCLite returns the Linux PC/SC-lite backend.
func NewPCSCLite() *PCSCLite { return &PCSCLite{} }

func (PCSCLite) EstablishContext(_ context.Context) (Context, error) {
	var ctx C.SCARDCONTEXT
	rv := C.SCardEstablishContext(C.SCARD_SCOPE_USER, nil, nil, &ctx)
	if rv != C.SCARD_S_SUCCESS {
		return 0, fmt.Errorf("SCardEstablishContext: %s", rvString(rv))
	}
	return Context(ctx), nil
}

func (PCSCLite) ReleaseContext(_ context.Context, c Context) error {
	rv := C.SCardReleaseContext(C.SCARDCONTEXT(c))
	if rv != C.SCARD_S_SUCCESS {
		return fmt.Errorf("SCardReleaseContext: %s", rvString(rv))
	}
	return nil
}

func (PCSCLite) ListReaders(_ context.Context, c Context) ([]string, error) {
	var needed C.DWORD = C.SCARD_AUTOALLOCATE
	var buf *C.char
	rv := C.SCardListReaders(C.SCARDCONTEXT(c), nil, (*C.char)(unsafe.Pointer(&buf)), &needed)
	switch rv {
	case C.SCARD_S_SUCCESS:
	case C.SCARD_E_NO_READERS_AVAILABLE:
		return nil, ErrNoReadersAvailable
	case C.SCARD_E_SERVICE_STOPPED, C.SCARD_E_NO_SERVICE:
		return nil, ErrServiceStopped
	default:
		return nil, fmt.Errorf("SCardListReaders: %s", rvString(rv))
	}
	defer C.SCardFreeMemory(C.SCARDCONTEXT(c), unsafe.Pointer(buf))

	return splitMultiString(buf, int(needed)), nil
}

// splitMultiString splits a PC/SC multi-string ("name1\0name2\0\0") of n
// bytes into its component names, preserving order (spec §4.C.load-from-
// name-list).
func splitMultiString(buf *C.char, n int) []string {
	if buf == nil || n <= 0 {
		return nil
	}
	raw := C.GoBytes(unsafe.Pointer(buf), C.int(n))
	var names []string
	start := 0
	for i, b := range raw {
		if b == 0 {
			if i > start {
				names = append(names, string(raw[start:i]))
			}
			start = i + 1
		}
	}
	return names
}

func (PCSCLite) GetStatusChange(_ context.Context, c Context, states []ReaderState) ([]ReaderState, error) {
	if len(states) == 0 {
		return nil, nil
	}
	cStates := make([]C.SCARD_READERSTATE, len(states))
	cNames := make([]*C.char, len(states))
	for i, s := range states {
		cNames[i] = C.CString(s.Name)
		cStates[i].szReader = cNames[i]
		cStates[i].dwCurrentState = C.DWORD(s.State &^ StateChanged)
	}
	defer func() {
		for _, n := range cNames {
			C.free(unsafe.Pointer(n))
		}
	}()

	rv := C.SCardGetStatusChange(C.SCARDCONTEXT(c), 0, &cStates[0], C.DWORD(len(cStates)))
	if rv == C.SCARD_E_TIMEOUT {
		// Nothing changed within the 0-timeout poll window.
		out := make([]ReaderState, len(states))
		copy(out, states)
		for i := range out {
			out[i].State &^= StateChanged
		}
		return out, nil
	}
	if rv != C.SCARD_S_SUCCESS {
		return nil, fmt.Errorf("SCardGetStatusChange: %s", rvString(rv))
	}

	out := make([]ReaderState, len(states))
	for i := range cStates {
		out[i].Name = states[i].Name
		out[i].State = EventState(cStates[i].dwEventState)
		atrLen := int(cStates[i].cbAtr)
		if atrLen > 0 {
			out[i].ATR = C.GoBytes(unsafe.Pointer(&cStates[i].rgbAtr[0]), C.int(atrLen))
		}
	}
	return out, nil
}

func (PCSCLite) Connect(_ context.Context, c Context, name string, shareMode ShareMode, protoMask Protocol) (Handle, Protocol, error) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var mode C.DWORD
	switch shareMode {
	case ShareExclusive:
		mode = C.SCARD_SHARE_EXCLUSIVE
	case ShareDirect:
		mode = C.SCARD_SHARE_DIRECT
	default:
		mode = C.SCARD_SHARE_SHARED
	}

	var proto C.DWORD
	if shareMode != ShareDirect {
		proto = C.SCARD_PROTOCOL_T0 | C.SCARD_PROTOCOL_T1
	}

	var handle C.SCARDHANDLE
	var activeProto C.DWORD
	rv := C.SCardConnect(C.SCARDCONTEXT(c), cName, mode, proto, &handle, &activeProto)
	if rv != C.SCARD_S_SUCCESS {
		if rv == C.SCARD_E_UNKNOWN_READER {
			return 0, ProtocolUndefined, ErrUnknownReader
		}
		return 0, ProtocolUndefined, fmt.Errorf("SCardConnect: %s", rvString(rv))
	}

	var negotiated Protocol
	switch activeProto {
	case C.SCARD_PROTOCOL_T0:
		negotiated = ProtocolT0
	case C.SCARD_PROTOCOL_T1:
		negotiated = ProtocolT1
	}
	return Handle(handle), negotiated, nil
}

func (PCSCLite) Disconnect(_ context.Context, h Handle, _ Disposition) error {
	rv := C.SCardDisconnect(C.SCARDHANDLE(h), C.SCARD_LEAVE_CARD)
	if rv != C.SCARD_S_SUCCESS {
		return fmt.Errorf("SCardDisconnect: %s", rvString(rv))
	}
	return nil
}

func (PCSCLite) Transmit(_ context.Context, h Handle, proto Protocol, command []byte, maxResp int) ([]byte, error) {
	if len(command) == 0 {
		return nil, errors.New("pcsc: empty command APDU")
	}
	var sendPCI *C.SCARD_IO_REQUEST
	switch proto {
	case ProtocolT1:
		sendPCI = &C.g_rgSCardT1Pci
	default:
		sendPCI = &C.g_rgSCardT0Pci
	}

	resp := make([]byte, maxResp)
	respLen := C.DWORD(maxResp)
	rv := C.SCardTransmit(
		C.SCARDHANDLE(h),
		sendPCI,
		(*C.BYTE)(unsafe.Pointer(&command[0])),
		C.DWORD(len(command)),
		nil,
		(*C.BYTE)(unsafe.Pointer(&resp[0])),
		&respLen,
	)
	if rv != C.SCARD_S_SUCCESS {
		if rv == C.SCARD_W_REMOVED_CARD {
			return nil, ErrCardRemoved
		}
		return nil, fmt.Errorf("SCardTransmit: %s", rvString(rv))
	}
	return resp[:respLen], nil
}

func rvString(rv C.LONG) string {
	return fmt.Sprintf("0x%08X", uint32(rv))
}
