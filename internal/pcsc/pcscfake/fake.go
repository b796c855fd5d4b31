// Package pcscfake provides a deterministic, in-memory pcsc.ResourceManager
// for tests: a scriptable reader fleet, card presence, and queued APDU
// responses, standing in for the real PC/SC-lite service the way the
// teacher framer package's io.Pipe-based tests stand in for a real socket.
package pcscfake

import (
	"context"
	"sync"

	"github.com/cardid/webcard/internal/pcsc"
)

// Manager is a scriptable fake resource manager.
type Manager struct {
	mu sync.Mutex

	established    bool
	serviceStopped bool

	readers []string
	card    map[string]cardState

	nextHandle  pcsc.Handle
	handleOwner map[pcsc.Handle]string

	queuedResponses map[string][][]byte

	releaseContextCalls int
}

type cardState struct {
	present bool
	atr     []byte
}

// New returns an empty fake manager (no readers plugged).
func New() *Manager {
	return &Manager{
		card:            make(map[string]cardState),
		handleOwner:     make(map[pcsc.Handle]string),
		queuedResponses: make(map[string][][]byte),
	}
}

// SetReaders replaces the plugged reader-name list, as if a fleet-poll
// found a different set.
func (m *Manager) SetReaders(names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readers = append([]string(nil), names...)
	for _, n := range names {
		if _, ok := m.card[n]; !ok {
			m.card[n] = cardState{}
		}
	}
}

// InsertCard marks name as holding a card with the given ATR.
func (m *Manager) InsertCard(name string, atr []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.card[name] = cardState{present: true, atr: append([]byte(nil), atr...)}
}

// RemoveCard marks name as empty.
func (m *Manager) RemoveCard(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.card[name] = cardState{}
}

// StopService simulates SCARD_E_SERVICE_STOPPED: ListReaders reports
// pcsc.ErrServiceStopped until the next EstablishContext call.
func (m *Manager) StopService() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.serviceStopped = true
}

// QueueResponse appends one scripted Transmit response for the next
// command sent to the currently-open connection on name, in call order.
func (m *Manager) QueueResponse(name string, resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queuedResponses[name] = append(m.queuedResponses[name], append([]byte(nil), resp...))
}

func (m *Manager) EstablishContext(context.Context) (pcsc.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serviceStopped {
		m.serviceStopped = false
	}
	m.established = true
	return pcsc.Context(1), nil
}

func (m *Manager) ReleaseContext(context.Context, pcsc.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.established = false
	m.releaseContextCalls++
	return nil
}

// ReleaseContextCalls reports how many times ReleaseContext has been
// called, so tests can assert shutdown/re-establish paths actually ran.
func (m *Manager) ReleaseContextCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.releaseContextCalls
}

// OpenHandleCount reports how many connection handles are currently open,
// so tests can assert that a registry swap or shutdown actually closed
// every connection it owned.
func (m *Manager) OpenHandleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handleOwner)
}

func (m *Manager) ListReaders(_ context.Context, _ pcsc.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.serviceStopped {
		return nil, pcsc.ErrServiceStopped
	}
	if len(m.readers) == 0 {
		return nil, pcsc.ErrNoReadersAvailable
	}
	return append([]string(nil), m.readers...), nil
}

func (m *Manager) GetStatusChange(_ context.Context, _ pcsc.Context, states []pcsc.ReaderState) ([]pcsc.ReaderState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]pcsc.ReaderState, len(states))
	for i, in := range states {
		cs := m.card[in.Name]
		var newState pcsc.EventState
		if cs.present {
			newState = pcsc.StatePresent
		} else {
			newState = pcsc.StateEmpty
		}
		prevPresence := in.State & (pcsc.StatePresent | pcsc.StateEmpty)
		if prevPresence != 0 && prevPresence != newState {
			newState |= pcsc.StateChanged
		}
		out[i] = pcsc.ReaderState{Name: in.Name, State: newState, ATR: cs.atr}
	}
	return out, nil
}

func (m *Manager) Connect(_ context.Context, _ pcsc.Context, name string, shareMode pcsc.ShareMode, _ pcsc.Protocol) (pcsc.Handle, pcsc.Protocol, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, r := range m.readers {
		if r == name {
			found = true
			break
		}
	}
	if !found {
		return 0, pcsc.ProtocolUndefined, pcsc.ErrUnknownReader
	}

	m.nextHandle++
	h := m.nextHandle
	m.handleOwner[h] = name

	proto := pcsc.ProtocolT1
	if shareMode == pcsc.ShareDirect {
		proto = pcsc.ProtocolUndefined
	}
	return h, proto, nil
}

func (m *Manager) Disconnect(_ context.Context, h pcsc.Handle, _ pcsc.Disposition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handleOwner, h)
	return nil
}

func (m *Manager) Transmit(_ context.Context, h pcsc.Handle, _ pcsc.Protocol, _ []byte, maxResp int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name, ok := m.handleOwner[h]
	if !ok {
		return nil, pcsc.ErrInvalidHandle
	}
	queue := m.queuedResponses[name]
	if len(queue) == 0 {
		return nil, nil
	}
	resp := queue[0]
	m.queuedResponses[name] = queue[1:]
	if len(resp) > maxResp {
		resp = resp[:maxResp]
	}
	return resp, nil
}
