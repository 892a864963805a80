package table

import (
	"sync"
	"time"

	enc "github.com/usi-icn/nfnd/encoding"
)

// PitEntry is one `(name, set_of_incoming_faces, expiry, local_app_flag,
// nfn_flag, originating_computation?)` record (§3).
type PitEntry struct {
	Name    enc.Name
	InFaces map[uint64]struct{}
	// HigherHop marks the subset of InFaces that arrived from the layer
	// above the ICN layer rather than a remote face, so Content/Nack
	// fan-out knows which outbound queue to use per face.
	HigherHop   map[uint64]struct{}
	Expiry      time.Time
	Local       bool
	Nfn         bool
	Computation any // opaque handle to the originating nfn.Evaluator, if Nfn
}

// Pit is the Pending Interest Table (§4.2).
type Pit struct {
	mu     sync.Mutex
	byHash map[uint64][]*PitEntry // keyed by enc.Name.Hash(); collisions resolved via exact-match scan
}

// NewPit constructs an empty Pit.
func NewPit() *Pit {
	return &Pit{byHash: make(map[uint64][]*PitEntry)}
}

func (p *Pit) String() string { return "pit" }

func (p *Pit) lookupLocked(name enc.Name) *PitEntry {
	for _, e := range p.byHash[name.Hash()] {
		if e.Name.Equal(name) {
			return e
		}
	}
	return nil
}

// AddOrMerge inserts a new PIT entry for name, or, if one already exists,
// merges inFace into its incoming-face set without resetting its expiry
// (§4.2). Returns the entry and whether it was newly created.
func (p *Pit) AddOrMerge(name enc.Name, inFace uint64, local, nfn bool, expiry time.Time) (entry *PitEntry, created bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if e := p.lookupLocked(name); e != nil {
		e.InFaces[inFace] = struct{}{}
		if local {
			e.Local = true
			e.HigherHop[inFace] = struct{}{}
		}
		if nfn {
			e.Nfn = true
		}
		return e, false
	}

	e := &PitEntry{
		Name:      name.Clone(),
		InFaces:   map[uint64]struct{}{inFace: {}},
		HigherHop: make(map[uint64]struct{}),
		Expiry:    expiry,
		Local:     local,
		Nfn:       nfn,
	}
	if local {
		e.HigherHop[inFace] = struct{}{}
	}
	p.byHash[name.Hash()] = append(p.byHash[name.Hash()], e)
	return e, true
}

// Find returns the live PIT entry for name, or nil.
func (p *Pit) Find(name enc.Name) *PitEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lookupLocked(name)
}

// Remove deletes the PIT entry for name and returns it (so Content can be
// fanned out to every face that asked for it, and the caller can tell
// which of those faces are higher-layer hops via HigherHop), or nil if no
// entry existed.
func (p *Pit) Remove(name enc.Name) *PitEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := name.Hash()
	list := p.byHash[h]
	for i, e := range list {
		if e.Name.Equal(name) {
			list[i] = list[len(list)-1]
			p.byHash[h] = list[:len(list)-1]
			if len(p.byHash[h]) == 0 {
				delete(p.byHash, h)
			}
			return e
		}
	}
	return nil
}

// Ageing reaps every entry whose Expiry has passed, returning the reaped
// entries so the caller can synthesize application-facing timeout Nacks
// for those with Local set (§4.2, §7).
func (p *Pit) Ageing(now time.Time) []*PitEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	var expired []*PitEntry
	for h, list := range p.byHash {
		kept := list[:0]
		for _, e := range list {
			if !e.Expiry.After(now) {
				expired = append(expired, e)
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(p.byHash, h)
		} else {
			p.byHash[h] = kept
		}
	}
	return expired
}

// Size returns the number of pending entries, for mgmt/status reporting.
func (p *Pit) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, list := range p.byHash {
		n += len(list)
	}
	return n
}
