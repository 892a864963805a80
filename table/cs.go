package table

import (
	"container/list"
	"sync"
	"time"

	enc "github.com/usi-icn/nfnd/encoding"
)

// CsEntry is one `(name, content, expiry, static?)` record (§3).
type CsEntry struct {
	Name    enc.Name
	Content []byte
	Expiry  time.Time
	Static  bool
}

// csNode pairs a list element with the hash key, so eviction can update the
// index map.
type csNode struct {
	entry CsEntry
	key   uint64
}

// Cs is the exact-match Content Store (§4.3). Match is by exact Name
// equality only — no longest-prefix matching happens here, matching the
// invariant in §3 that a CS hit must satisfy the Interest carrying that
// exact name. Eviction beyond the static set is FIFO once Capacity is
// exceeded, satisfying §3's "minimum contract is a bounded mapping with
// FIFO eviction acceptable".
type Cs struct {
	mu       sync.RWMutex
	index    map[uint64][]*list.Element
	order    *list.List // front = oldest
	Capacity int
}

// NewCs constructs a Cs with the given capacity (0 means unbounded).
func NewCs(capacity int) *Cs {
	return &Cs{
		index:    make(map[uint64][]*list.Element),
		order:    list.New(),
		Capacity: capacity,
	}
}

func (c *Cs) String() string { return "cs" }

// Add inserts content into the store, evicting the oldest non-static entry
// if Capacity is exceeded.
func (c *Cs) Add(name enc.Name, content []byte, static bool, expiry time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := name.Hash()
	for _, el := range c.index[h] {
		if n := el.Value.(*csNode); n.entry.Name.Equal(name) {
			n.entry.Content = content
			n.entry.Expiry = expiry
			n.entry.Static = n.entry.Static || static
			c.order.MoveToBack(el)
			return
		}
	}

	node := &csNode{entry: CsEntry{Name: name.Clone(), Content: content, Expiry: expiry, Static: static}, key: h}
	el := c.order.PushBack(node)
	c.index[h] = append(c.index[h], el)

	c.evictLocked()
}

func (c *Cs) evictLocked() {
	if c.Capacity <= 0 {
		return
	}
	for c.order.Len() > c.Capacity {
		el := c.order.Front()
		node := el.Value.(*csNode)
		if node.entry.Static {
			// static entries count against capacity but are never
			// evicted: move past it by pulling it to the back and
			// retrying, unless every entry is static (nothing left to
			// evict).
			allStatic := true
			for e := c.order.Front(); e != nil; e = e.Next() {
				if !e.Value.(*csNode).entry.Static {
					allStatic = false
					break
				}
			}
			if allStatic {
				return
			}
			c.order.MoveToBack(el)
			continue
		}
		c.removeElementLocked(el)
	}
}

func (c *Cs) removeElementLocked(el *list.Element) {
	node := el.Value.(*csNode)
	c.order.Remove(el)
	els := c.index[node.key]
	for i, e := range els {
		if e == el {
			els[i] = els[len(els)-1]
			els = els[:len(els)-1]
			break
		}
	}
	if len(els) == 0 {
		delete(c.index, node.key)
	} else {
		c.index[node.key] = els
	}
}

// Find returns the content exactly matching name, or nil.
func (c *Cs) Find(name enc.Name) *CsEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, el := range c.index[name.Hash()] {
		if n := el.Value.(*csNode); n.entry.Name.Equal(name) {
			cp := n.entry
			return &cp
		}
	}
	return nil
}

// Remove deletes the entry exactly matching name, if any.
func (c *Cs) Remove(name enc.Name) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := name.Hash()
	for _, el := range c.index[h] {
		if el.Value.(*csNode).entry.Name.Equal(name) {
			c.removeElementLocked(el)
			return
		}
	}
}

// Ageing evicts every non-static entry whose Expiry has passed.
func (c *Cs) Ageing(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for e := c.order.Front(); e != nil; e = e.Next() {
		n := e.Value.(*csNode)
		if !n.entry.Static && n.entry.Expiry.Before(now) {
			toRemove = append(toRemove, e)
		}
	}
	for _, e := range toRemove {
		c.removeElementLocked(e)
	}
}

// Clear removes every non-static entry.
func (c *Cs) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toRemove []*list.Element
	for e := c.order.Front(); e != nil; e = e.Next() {
		if !e.Value.(*csNode).entry.Static {
			toRemove = append(toRemove, e)
		}
	}
	for _, e := range toRemove {
		c.removeElementLocked(e)
	}
}

// Size returns the number of stored entries.
func (c *Cs) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len()
}
