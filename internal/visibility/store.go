// Package visibility keeps per-column hidden/shown choices keyed by column
// name, so a choice made for "id" or "timestamp" carries over to every
// later result that has a column of that name.
package visibility

import (
	"sync"

	"github.com/nhath/dbscope/internal/schema"
)

// Change is emitted whenever a column's hidden state is set or changes
type Change struct {
	Column string
	Hidden bool
}

// Store maps column names to hidden flags. Entries are never removed.
// Absent names are visible.
type Store struct {
	mu     sync.RWMutex
	hidden map[string]bool
	known  []string
	seen   map[string]bool
	subs   []func(Change)
}

// NewStore returns an empty store
func NewStore() *Store {
	return &Store{
		hidden: make(map[string]bool),
		seen:   make(map[string]bool),
	}
}

// Subscribe registers fn to receive hidden-state changes. fn is called
// without the store lock held.
func (s *Store) Subscribe(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// RecordState sets an explicit hidden flag for a column
func (s *Store) RecordState(column string, hidden bool) {
	s.mu.Lock()
	prev, existed := s.hidden[column]
	s.hidden[column] = hidden
	s.markKnown(column)
	subs := s.subs
	s.mu.Unlock()

	if !existed || prev != hidden {
		notify(subs, Change{Column: column, Hidden: hidden})
	}
}

// Toggle flips a column's hidden flag and returns the new value
func (s *Store) Toggle(column string) bool {
	s.mu.Lock()
	hidden := !s.hidden[column]
	s.hidden[column] = hidden
	s.markKnown(column)
	subs := s.subs
	s.mu.Unlock()

	notify(subs, Change{Column: column, Hidden: hidden})
	return hidden
}

// IsHidden reports whether a column is hidden
func (s *Store) IsHidden(column string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hidden[column]
}

// HasEntry reports whether the store holds a flag for column
func (s *Store) HasEntry(column string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.hidden[column]
	return ok
}

// SeedDefaultsFromSchema gives every column without an entry its default:
// primary key columns hidden, everything else visible. Columns that
// already have an entry, whether seeded or set by the user, are untouched.
// It returns the names that were newly hidden.
func (s *Store) SeedDefaultsFromSchema(tables []schema.TableSchema) []string {
	var newlyHidden []string
	var changes []Change

	s.mu.Lock()
	for _, t := range tables {
		for _, c := range t.Columns {
			if _, ok := s.hidden[c.Name]; ok {
				continue
			}
			s.hidden[c.Name] = c.IsPrimaryKey
			s.markKnown(c.Name)
			changes = append(changes, Change{Column: c.Name, Hidden: c.IsPrimaryKey})
			if c.IsPrimaryKey {
				newlyHidden = append(newlyHidden, c.Name)
			}
		}
	}
	subs := s.subs
	s.mu.Unlock()

	for _, ch := range changes {
		notify(subs, ch)
	}
	return newlyHidden
}

// Snapshot records the states shown by an outgoing display, so toggles
// made there survive the display being rebuilt.
func (s *Store) Snapshot(states map[string]bool) {
	for name, hidden := range states {
		s.RecordState(name, hidden)
	}
}

// Observe registers names as known and returns their hidden flags in
// the same order. It never creates entries, so unseen names stay at the
// visible default without pinning it.
func (s *Store) Observe(names []string) []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags := make([]bool, len(names))
	for i, n := range names {
		s.markKnown(n)
		flags[i] = s.hidden[n]
	}
	return flags
}

// Known returns every column name the store has seen, in first-seen order
func (s *Store) Known() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.known...)
}

// VisibleColumns filters names down to the ones not hidden
func (s *Store) VisibleColumns(names []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !s.hidden[n] {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hidden)
}

// markKnown must be called with s.mu held
func (s *Store) markKnown(name string) {
	if !s.seen[name] {
		s.seen[name] = true
		s.known = append(s.known, name)
	}
}

func notify(subs []func(Change), ch Change) {
	for _, fn := range subs {
		fn(ch)
	}
}
