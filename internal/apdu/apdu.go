// Package apdu implements command/response APDU transport over an open
// pcsc connection: a single send/receive, and a chained send/receive that
// follows the T=0 GET RESPONSE convention (spec §4.E).
package apdu

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardid/webcard/internal/pcsc"
)

// MaxResponseSize is the output buffer size the engine uses for a single
// Transmit call (spec §4.E: "the engine uses 32,767 bytes").
const MaxResponseSize = 0x7FFF

// getResponseSW1 is the status byte meaning "xx more bytes available,
// issue GET RESPONSE" (GLOSSARY: Status word).
const getResponseSW1 = 0x61

// ErrEmptyResponse reports that the resource manager returned zero bytes,
// which is never valid: every APDU response ends in a two-byte SW.
var ErrEmptyResponse = errors.New("apdu: empty response from card")

// Single sends one command APDU and returns the raw response APDU bytes,
// SW1 SW2 included (spec §4.E "single").
func Single(ctx context.Context, rm pcsc.ResourceManager, h pcsc.Handle, proto pcsc.Protocol, command []byte) ([]byte, error) {
	resp, err := rm.Transmit(ctx, h, proto, command, MaxResponseSize)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, ErrEmptyResponse
	}
	return resp, nil
}

// Chained sends command and, while the response ends in "61 L" (more data
// available), issues GET RESPONSE (00 C0 00 00 L) to retrieve the rest,
// returning every payload byte seen (SW stripped from intermediate blocks)
// followed by the final block's own trailing SW (spec §4.E "chained").
// roundTrips counts every Transmit call that completed successfully,
// including the first; a failing call is not counted.
func Chained(ctx context.Context, rm pcsc.ResourceManager, h pcsc.Handle, proto pcsc.Protocol, command []byte) (result []byte, roundTrips int, err error) {
	block, err := Single(ctx, rm, h, proto, command)
	if err != nil {
		return nil, 0, err
	}
	roundTrips++

	for len(block) >= 2 && block[len(block)-2] == getResponseSW1 {
		result = append(result, block[:len(block)-2]...)
		lx := block[len(block)-1]
		getResp := []byte{0x00, 0xC0, 0x00, 0x00, lx}

		block, err = Single(ctx, rm, h, proto, getResp)
		if err != nil {
			return nil, roundTrips, fmt.Errorf("apdu: GET RESPONSE round-trip %d: %w", roundTrips+1, err)
		}
		roundTrips++
	}

	result = append(result, block...)
	return result, roundTrips, nil
}
