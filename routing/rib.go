// Package routing implements the tree-structured Routing Information Base
// (§4.5 and §9 of the spec): a radix tree keyed by name components, each
// node holding a distance vector, collapsing into FIB entries on a timer.
//
// The Python original restricted insertion to the root node by raising at
// runtime if a non-root node's insert was called directly (§9's design
// note). Here that is a static property instead: Root is its own exported
// type with Insert/Ageing/Collapse/BuildFib; the tree nodes it owns are of
// an unexported type whose insert method only Root can reach.
package routing

import (
	"time"

	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/table"
	"github.com/usi-icn/nfnd/types/optional"
)

type distEntry struct {
	distance uint64
	expiry   optional.Optional[time.Time]
}

// node is one tree node: a distance vector plus a map of child nodes keyed
// by the raw bytes of the next name component.
type node struct {
	distanceVector map[uint64]distEntry // face id -> distance/expiry
	children       map[string]*node
}

func newNode() *node {
	return &node{
		distanceVector: make(map[uint64]distEntry),
		children:       make(map[string]*node),
	}
}

func componentKey(c enc.Component) string {
	b := make([]byte, 2+len(c.Val))
	b[0] = byte(c.Typ >> 8)
	b[1] = byte(c.Typ)
	copy(b[2:], c.Val)
	return string(b)
}

// walk returns the node at the end of the path described by name,
// creating intermediate nodes as needed.
func (n *node) walk(name enc.Name) *node {
	cur := n
	for _, c := range name {
		key := componentKey(c)
		next, ok := cur.children[key]
		if !ok {
			next = newNode()
			cur.children[key] = next
		}
		cur = next
	}
	return cur
}

// insert writes/updates the distance vector entry for faceId at the node
// reached by name, keeping the minimum distance seen for that face id.
func (n *node) insert(name enc.Name, faceId uint64, distance uint64, expiry optional.Optional[time.Time]) {
	target := n.walk(name)
	if cur, ok := target.distanceVector[faceId]; !ok || distance < cur.distance {
		target.distanceVector[faceId] = distEntry{distance: distance, expiry: expiry}
	}
}

// ageing recursively removes distance-vector entries whose expiry has
// passed, and prunes subtrees left with no routes and no descendants.
func (n *node) ageing(now time.Time) (empty bool) {
	for face, e := range n.distanceVector {
		if exp, ok := e.expiry.Get(); ok && exp.Before(now) {
			delete(n.distanceVector, face)
		}
	}
	for key, child := range n.children {
		if child.ageing(now) {
			delete(n.children, key)
		}
	}
	return len(n.distanceVector) == 0 && len(n.children) == 0
}

// bestFace returns the face id with the lowest distance in this node's own
// distance vector, ties broken by smallest face id, and whether the
// distance vector is non-empty.
func (n *node) bestFace() (faceId uint64, ok bool) {
	first := true
	var bestDist uint64
	for face, e := range n.distanceVector {
		if first || e.distance < bestDist || (e.distance == bestDist && face < faceId) {
			faceId = face
			bestDist = e.distance
			first = false
		}
	}
	return faceId, !first
}

// CollapsedRoute is one `(components, face_id)` pair produced by Collapse.
type CollapsedRoute struct {
	Components []enc.Component
	FaceId     uint64
}

// collapse performs the pre-order traversal of §4.5: at each node, compute
// the local best face id; if it differs from the inherited ancestor best,
// emit a route for this node's path and descend with the new best,
// otherwise keep inheriting. inheritedOk is false only above the very
// first node that ever sets a best face (i.e. no ancestor, including the
// root, has a route yet).
func (n *node) collapse(prefix []enc.Component, inherited uint64, inheritedOk bool, out *[]CollapsedRoute) {
	localBest, localOk := n.bestFace()

	effectiveFace := inherited
	effectiveOk := inheritedOk
	if localOk && (!inheritedOk || localBest != inherited) {
		*out = append(*out, CollapsedRoute{
			Components: append([]enc.Component(nil), prefix...),
			FaceId:     localBest,
		})
		effectiveFace = localBest
		effectiveOk = true
	}

	for key, child := range n.children {
		comp := decodeComponentKey(key)
		child.collapse(append(prefix, comp), effectiveFace, effectiveOk, out)
	}
}

// componentKey/decodeComponentKey round-trip a single component through
// the map key used by `children`. Since componentKey embeds the raw type
// byte and value, this is lossless for the generic components the RIB
// actually sees in practice (routing never carries digest components).
func decodeComponentKey(key string) enc.Component {
	if len(key) < 2 {
		return enc.Component{Typ: enc.TypeGenericNameComponent}
	}
	typ := enc.TLNum(key[0])<<8 | enc.TLNum(key[1])
	return enc.Component{Typ: typ, Val: []byte(key[2:])}
}

// Root is the RIB tree root. Only Root exposes Insert/Ageing/Collapse/
// BuildFib; the tree's internal nodes are only ever mutated through it.
type Root struct {
	root *node
}

// NewRoot constructs an empty RIB.
func NewRoot() *Root {
	return &Root{root: newNode()}
}

func (r *Root) String() string { return "rib" }

// Insert records a route advertisement: name/faceId/distance, with an
// optional absolute expiry (§3, §4.5).
func (r *Root) Insert(name enc.Name, faceId uint64, distance uint64, expiry optional.Optional[time.Time]) {
	r.root.insert(name, faceId, distance, expiry)
}

// Ageing removes every distance-vector entry whose expiry has passed,
// pruning empty subtrees (§4.5).
func (r *Root) Ageing(now time.Time) {
	r.root.ageing(now)
}

// Collapse performs the pre-order traversal of §4.5 and returns the
// resulting (prefix, face_id) pairs. The root's own distance vector (if
// any) is treated as the zero-prefix default route that every subtree
// emission is compared against (§9's open question resolution).
func (r *Root) Collapse() []CollapsedRoute {
	var out []CollapsedRoute
	r.root.collapse(nil, 0, false, &out)
	return out
}

// BuildFib clears fib's non-static entries and inserts one entry per
// (Name(components), face_id) pair from Collapse() (§4.5).
func (r *Root) BuildFib(fib *table.Fib) {
	fib.Clear()
	for _, route := range r.Collapse() {
		name := enc.Name(route.Components)
		fib.Add(name, route.FaceId, false, optional.None[uint64]())
	}
}
