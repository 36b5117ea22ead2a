// Package table implements the open-addressed hash table shared by
// globals, class method tables, instance fields, and the interner's
// string-dedup lookup.
package table

import "github.com/chazu/ember/internal/value"

const initialCapacity = 8
const maxLoadFactor = 0.75

type entry struct {
	key *value.ObjString
	val value.Value
}

func (e entry) empty() bool     { return e.key == nil && e.val.IsNil() }
func (e entry) tombstone() bool { return e.key == nil && e.val.IsBool() && e.val.AsBool() }

// Table is an open-addressed map from interned-string keys to Values,
// probing linearly on collision. Deletion leaves a tombstone so probe
// chains that ran through the removed slot stay intact.
type Table struct {
	count    int // live entries plus tombstones, so the load factor accounts for both
	entries  []entry
}

// NewTable returns an empty table; storage is allocated lazily on first
// insert, mirroring the growable-sequence pattern used elsewhere.
func NewTable() *Table {
	return &Table{}
}

// Count returns the number of occupied slots: live entries plus the
// tombstones left since the last growth (growth drops tombstones).
func (t *Table) Count() int { return t.count }

// Get looks up key, returning the stored value and whether it was found.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if len(t.entries) == 0 || key == nil {
		return value.NilValue(), false
	}
	e := t.findEntry(key)
	if e.key == nil {
		return value.NilValue(), false
	}
	return e.val, true
}

// Set inserts or overwrites key -> val. It returns true if this created a
// brand new entry (as opposed to overwriting an existing one).
func (t *Table) Set(key *value.ObjString, val value.Value) bool {
	if float64(t.count+1) > float64(capacity(t))*maxLoadFactor {
		t.grow(growCapacity(capacity(t)))
	}
	e := t.findEntry(key)
	isNew := e.key == nil
	if isNew && e.val.IsNil() {
		t.count++
	}
	e.key = key
	e.val = val
	return isNew
}

// Delete installs a tombstone at key's slot, if present, preserving the
// probe chain for every other key.
func (t *Table) Delete(key *value.ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.val = value.BoolValue(true)
	return true
}

// FindString does the byte-content lookup the interner uses to dedupe: it
// probes by hash but compares by contents rather than by key pointer,
// since at this point no ObjString for these bytes may exist yet.
func (t *Table) FindString(chars string, hash uint32) *value.ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	cap := capacity(t)
	idx := int(hash) % cap
	for {
		e := &t.entries[idx]
		if e.empty() {
			return nil
		}
		if !e.tombstone() && e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) % cap
	}
}

// AddAll copies every live entry of src into t, used by INHERIT's
// copy-down of a superclass's method table into the subclass.
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if e.key != nil {
			t.Set(e.key, e.val)
		}
	}
}

// ForEach calls fn for every live entry; used by the garbage collector to
// walk keys and values when blackening a class's methods or an instance's
// fields.
func (t *Table) ForEach(fn func(key *value.ObjString, val value.Value)) {
	for _, e := range t.entries {
		if e.key != nil {
			fn(e.key, e.val)
		}
	}
}

// RemoveWhite drops every entry whose key string is still unmarked. This
// is how the interner participates in weak-key semantics: call after
// marking and tracing but before sweep.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.Marked {
			e.key = nil
			e.val = value.BoolValue(true)
		}
	}
}

func capacity(t *Table) int {
	if len(t.entries) == 0 {
		return 0
	}
	return len(t.entries)
}

func growCapacity(c int) int {
	if c == 0 {
		return initialCapacity
	}
	return c * 2
}

func (t *Table) findEntry(key *value.ObjString) *entry {
	cap := capacity(t)
	idx := int(key.Hash) % cap
	var tombstone *entry
	for {
		e := &t.entries[idx]
		if e.empty() {
			if tombstone != nil {
				return tombstone
			}
			return e
		}
		if e.tombstone() {
			if tombstone == nil {
				tombstone = e
			}
		} else if e.key == key || (e.key.Hash == key.Hash && e.key.Chars == key.Chars) {
			return e
		}
		idx = (idx + 1) % cap
	}
}

func (t *Table) grow(newCap int) {
	old := t.entries
	t.entries = make([]entry, newCap)
	t.count = 0
	for _, e := range old {
		if e.key == nil {
			continue
		}
		dst := t.findEntry(e.key)
		dst.key = e.key
		dst.val = e.val
		t.count++
	}
}
