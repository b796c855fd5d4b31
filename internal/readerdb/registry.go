// Package readerdb tracks the fleet of currently known smart-card
// readers: their names, status bits, ATRs, and connection cells, and
// diffs successive enumerations to detect plug/unplug (spec §4.C).
package readerdb

import (
	"context"

	"github.com/cardid/webcard/internal/cardconn"
	"github.com/cardid/webcard/internal/pcsc"
)

// Entry is one reader slot. Indices into a Registry are stable between
// fetches (spec §3): the registry is rebuilt atomically and the browser
// only ever sees new indices in the same response that lists the new set.
type Entry struct {
	Name  string
	State pcsc.EventState
	ATR   []byte
	Conn  cardconn.Cell
}

// Registry is an ordered sequence of reader entries.
type Registry struct {
	entries []*Entry
}

// New returns an empty registry (no readers, no handles).
func New() *Registry { return &Registry{} }

// LoadFromNameList builds a fresh registry in the OS-provided order, each
// entry starting StateUnaware with no ATR and a closed connection (spec
// §4.C load-from-name-list).
func LoadFromNameList(names []string) *Registry {
	r := &Registry{entries: make([]*Entry, len(names))}
	for i, n := range names {
		r.entries[i] = &Entry{Name: n, State: pcsc.StateUnaware}
	}
	return r
}

// Len returns the number of tracked readers.
func (r *Registry) Len() int { return len(r.entries) }

// Entry returns the i'th entry, or nil if out of range.
func (r *Registry) Entry(i int) *Entry {
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return r.entries[i]
}

// Entries exposes the underlying slice for range-based iteration by the
// event loop. Callers must not mutate its length.
func (r *Registry) Entries() []*Entry { return r.entries }

// HasName reports whether name is present, by exact case-sensitive
// equality — name is the sole identity (spec §4.C: "a reader unplugged
// and replugged between two fetches looks identical").
func (r *Registry) HasName(name string) bool {
	return r.indexOf(name) >= 0
}

func (r *Registry) indexOf(name string) int {
	for i, e := range r.entries {
		if e.Name == name {
			return i
		}
	}
	return -1
}

// Destroy closes every entry's connection cell, dropping any open PC/SC
// sessions (spec §4.C.6: "old connections are dropped (closed) as part of
// destroy").
func (r *Registry) Destroy(ctx context.Context, rm pcsc.ResourceManager) {
	for _, e := range r.entries {
		_ = e.Conn.Close(ctx, rm)
	}
}

// Diff describes what FetchAndDiff observed about the reader-name list
// since the last call.
type Diff struct {
	// Unchanged is true when the fetch found the same reader count as
	// before and no registry rebuild happened (step 3).
	Unchanged bool
	// Added holds reader names present in the new list but not the old
	// (readers-added, emitted when the new count is strictly greater).
	Added []string
	// Removed holds reader names present in the old list but not the new
	// (readers-removed, emitted when the new count is strictly smaller).
	Removed []string
}

// FetchAndDiff is the central reader-fleet operation (spec §4.C). It
// fetches the current name list from rm, compares it against cur, and
// either reports Unchanged or returns a freshly built registry plus the
// delta that should be turned into a readers-added/readers-removed event.
//
// On pcsc.ErrServiceStopped the caller must release and re-establish the
// PC/SC context before retrying (the error is returned unchanged so the
// event loop can do exactly that, spec §4.C.7); cur is returned
// unmodified in that case.
func FetchAndDiff(ctx context.Context, rm pcsc.ResourceManager, rmCtx pcsc.Context, cur *Registry, firstFetch bool) (*Registry, Diff, error) {
	names, err := rm.ListReaders(ctx, rmCtx)
	if err != nil {
		if err == pcsc.ErrServiceStopped {
			return cur, Diff{}, err
		}
		if err == pcsc.ErrNoReadersAvailable {
			names = nil
		} else {
			return cur, Diff{}, err
		}
	}

	oldCount := cur.Len()
	newCount := len(names)

	if firstFetch {
		next := LoadFromNameList(names)
		if newCount == 0 {
			return next, Diff{Unchanged: false}, nil
		}
		return next, Diff{Added: append([]string(nil), names...)}, nil
	}

	if newCount == oldCount {
		return cur, Diff{Unchanged: true}, nil
	}

	next := LoadFromNameList(names)
	if newCount > oldCount {
		added := namesNotIn(names, cur)
		return next, Diff{Added: added}, nil
	}
	removed := namesMissingFrom(cur, names)
	return next, Diff{Removed: removed}, nil
}

func namesNotIn(names []string, old *Registry) []string {
	var out []string
	for _, n := range names {
		if !old.HasName(n) {
			out = append(out, n)
		}
	}
	return out
}

func namesMissingFrom(old *Registry, names []string) []string {
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}
	var out []string
	for _, e := range old.entries {
		if !present[e.Name] {
			out = append(out, e.Name)
		}
	}
	return out
}
