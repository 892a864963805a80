// Package table implements the forwarding plane's three shared structures
// (§4.1-§4.3): the FIB, the PIT, and the CS. All three are safe for
// concurrent read/write (§5); composite lookup-then-insert decisions are
// still only ever made from within the ICN layer's own goroutine (fw.Forwarder).
package table

import (
	"sync"

	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/types/optional"
)

// FibEntry is one `(name, face_id, static?, distance?)` record (§3).
// Equality is structural on (Name, FaceID).
type FibEntry struct {
	Name     enc.Name
	FaceId   uint64
	Static   bool
	Distance optional.Optional[uint64]
}

// Fib is the longest-prefix Forwarding Information Base (§4.1). Entries
// are kept in a slice with most-recent insertions at the head, so that on
// equal-length prefix ties the most recently added entry wins.
type Fib struct {
	mu      sync.RWMutex
	entries []FibEntry
}

// NewFib constructs an empty Fib.
func NewFib() *Fib {
	return &Fib{}
}

func (f *Fib) String() string { return "fib" }

// Add inserts a nexthop for name/faceId, at the head of the entry list so
// it wins ties against older entries of the same length. If an identical
// (name, faceId) entry already exists it keeps its position, its Distance
// is replaced, and it becomes static if either it or the new add is static
// (static-ness is never demoted).
func (f *Fib) Add(name enc.Name, faceId uint64, static bool, distance optional.Optional[uint64]) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.entries {
		if f.entries[i].Name.Equal(name) && f.entries[i].FaceId == faceId {
			f.entries[i].Distance = distance
			f.entries[i].Static = f.entries[i].Static || static
			return
		}
	}

	entry := FibEntry{Name: name.Clone(), FaceId: faceId, Static: static, Distance: distance}
	f.entries = append(f.entries, FibEntry{})
	copy(f.entries[1:], f.entries)
	f.entries[0] = entry
}

// Remove deletes every entry whose Name equals name.
func (f *Fib) Remove(name enc.Name) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.entries[:0]
	for _, e := range f.entries {
		if !e.Name.Equal(name) {
			out = append(out, e)
		}
	}
	f.entries = out
}

// Find performs longest-prefix match (§4.1): starting from the full
// component list of name, look for an entry whose Name equals the current
// prefix and which is neither in alreadyUsed nor has a FaceId present in
// incomingFaceIds; if none is found, drop the last component and retry,
// down to and including the empty Name. Returns nil if nothing matches.
func (f *Fib) Find(name enc.Name, alreadyUsed []FibEntry, incomingFaceIds []uint64) *FibEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for k := len(name); k >= 0; k-- {
		prefix := name.Prefix(k)
		for i := range f.entries {
			e := &f.entries[i]
			if !e.Name.Equal(prefix) {
				continue
			}
			if entryIn(*e, alreadyUsed) {
				continue
			}
			if faceIn(e.FaceId, incomingFaceIds) {
				continue
			}
			cp := *e
			return &cp
		}
	}
	return nil
}

func entryIn(e FibEntry, list []FibEntry) bool {
	for _, o := range list {
		if o.Name.Equal(e.Name) && o.FaceId == e.FaceId {
			return true
		}
	}
	return false
}

func faceIn(face uint64, list []uint64) bool {
	for _, f := range list {
		if f == face {
			return true
		}
	}
	return false
}

// Clear removes every non-static entry.
func (f *Fib) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := f.entries[:0]
	for _, e := range f.entries {
		if e.Static {
			out = append(out, e)
		}
	}
	f.entries = out
}

// All returns a snapshot copy of every FIB entry, for mgmt listing.
func (f *Fib) All() []FibEntry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]FibEntry, len(f.entries))
	copy(out, f.entries)
	return out
}
