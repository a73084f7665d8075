// Package table implements Lumen's open-addressing hash table, keyed
// by interned strings. It backs the string intern table (§4.4), the
// VM's globals table, and every class method table / instance field
// table — anywhere the spec calls for a String→Value mapping with weak
// key semantics during GC.
//
// Design Rationale:
//
// Linear probing at a 0.75 load factor, with deletions leaving a
// tombstone (a nil key paired with a `true` boolean value) so that
// probe chains stay intact, is lifted directly from clox's table.c
// (see original_source/src/table.c): same TABLE_MAX_LOAD, same
// find-entry/adjust-capacity/grow-at-8-then-double shape. The Go port
// trades raw pointer arithmetic for a slice of Entry structs but keeps
// every invariant: tombstones count toward load factor,
// FindStringByContents compares length then hash then bytes only on a hash collision, and
// capacity never shrinks.
package table

import "github.com/lumen-lang/lumen/pkg/value"

// maxLoad is the load factor past which the table grows (clox's
// TABLE_MAX_LOAD).
const maxLoad = 0.75

// Entry is one slot in the table. A nil Key with a nil value.Value
// (IsNil) marks an empty slot; a nil Key with value.Bool(true) marks a
// tombstone left behind by Delete.
type Entry struct {
	Key   *value.ObjString
	Value value.Value
}

// Table is Lumen's hash table: String keys (by interned identity, see
// I2) mapped to arbitrary Values.
type Table struct {
	count   int // occupied slots, including tombstones
	entries []Entry
}

// New returns an empty Table.
func New() *Table {
	return &Table{}
}

// Count returns the number of live (non-tombstone) entries.
func (t *Table) Count() int {
	return t.count - t.tombstones()
}

func (t *Table) tombstones() int {
	n := 0
	for _, e := range t.entries {
		if e.Key == nil && !e.Value.IsNil() {
			n++
		}
	}
	return n
}

// findEntry locates key's slot, or the first open slot (preferring an
// earlier tombstone) it could occupy. Matches clox's findEntry.
func findEntry(entries []Entry, key *value.ObjString) *Entry {
	capacity := uint32(len(entries))
	index := key.Hash % capacity
	var tombstone *Entry

	for {
		entry := &entries[index]
		switch {
		case entry.Key == nil:
			if entry.Value.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return entry
			}
			if tombstone == nil {
				tombstone = entry
			}
		case entry.Key == key:
			return entry
		}
		index = (index + 1) % capacity
	}
}

func (t *Table) adjustCapacity(capacity int) {
	entries := make([]Entry, capacity)
	for i := range entries {
		entries[i] = Entry{Value: value.Nil}
	}

	t.count = 0
	for _, old := range t.entries {
		if old.Key == nil {
			continue
		}
		dest := findEntry(entries, old.Key)
		dest.Key = old.Key
		dest.Value = old.Value
		t.count++
	}

	t.entries = entries
}

// Get looks up key and reports whether it was present.
func (t *Table) Get(key *value.ObjString) (value.Value, bool) {
	if t.count == 0 {
		return value.Nil, false
	}
	entry := findEntry(t.entries, key)
	if entry.Key == nil {
		return value.Nil, false
	}
	return entry.Value, true
}

// Set inserts or overwrites key's value, growing the table if needed,
// and reports whether key was new (matching clox's tableSet return).
func (t *Table) Set(key *value.ObjString, v value.Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*maxLoad {
		capacity := growCapacity(len(t.entries))
		t.adjustCapacity(capacity)
	}

	entry := findEntry(t.entries, key)
	isNewKey := entry.Key == nil
	if isNewKey && entry.Value.IsNil() {
		t.count++
	}

	entry.Key = key
	entry.Value = v
	return isNewKey
}

// Delete removes key, leaving a tombstone so later probes still find
// entries that hashed past this slot.
func (t *Table) Delete(key *value.ObjString) bool {
	if t.count == 0 {
		return false
	}
	entry := findEntry(t.entries, key)
	if entry.Key == nil {
		return false
	}
	entry.Key = nil
	entry.Value = value.Bool(true)
	return true
}

// AddAll copies every entry of from into t, overwriting collisions.
// Used by the class-inheritance opcode to copy a superclass's method
// table into a subclass at class-declaration time (P6).
func (t *Table) AddAll(from *Table) {
	for _, e := range from.entries {
		if e.Key != nil {
			t.Set(e.Key, e.Value)
		}
	}
}

// FindStringByContents looks up an interned string by its raw bytes
// and precomputed hash, without needing an *ObjString key already in
// hand. This is how the heap's allocator decides whether a new string
// literal or concatenation result is already interned (I2).
func (t *Table) FindStringByContents(chars string, hash uint32) *value.ObjString {
	if t.count == 0 {
		return nil
	}
	capacity := uint32(len(t.entries))
	index := hash % capacity
	for {
		entry := &t.entries[index]
		if entry.Key == nil {
			if entry.Value.IsNil() {
				return nil
			}
		} else if entry.Key.Hash == hash && entry.Key.Chars == chars {
			return entry.Key
		}
		index = (index + 1) % capacity
	}
}

// RemoveWhite deletes every entry whose key is unmarked. Called during
// GC after tracing and before sweep, so the intern table never
// outlives the string it keys on (G2) — clox's tableRemoveWhite, used
// only on the string-intern table, not on globals/fields tables.
func (t *Table) RemoveWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.Key != nil && !e.Key.Marked() {
			t.Delete(e.Key)
		}
	}
}

// Mark paints every key and value in the table gray. Used by the GC to
// root the globals table and to trace class method tables and instance
// field tables. The intern table is never marked this way: its keys
// are weak references, pruned by RemoveWhite instead; see pkg/heap.
func (t *Table) Mark(mark func(value.Object), markValue func(value.Value)) {
	for _, e := range t.entries {
		if e.Key != nil {
			mark(e.Key)
		}
		markValue(e.Value)
	}
}

// Entries returns a snapshot slice of the live entries, for iteration
// by callers that need every key/value (debug tooling, disassembly of
// a class's method table).
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, t.Count())
	for _, e := range t.entries {
		if e.Key != nil {
			out = append(out, e)
		}
	}
	return out
}

// growCapacity mirrors clox's GROW_CAPACITY macro: start at 8, then
// double.
func growCapacity(old int) int {
	if old < 8 {
		return 8
	}
	return old * 2
}
