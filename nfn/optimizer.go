package nfn

import (
	enc "github.com/usi-icn/nfnd/encoding"
	"github.com/usi-icn/nfnd/fw"
	"github.com/usi-icn/nfnd/table"
)

// ToDataFirstOptimizer decides, for a parsed computation, whether to
// rewrite it for remote evaluation near its data or to compute it locally
// (§4.6's "ToDataFirst optimizer").
type ToDataFirstOptimizer struct {
	Cs  *table.Cs
	Fib *table.Fib
}

// NewToDataFirstOptimizer constructs an optimizer bound to the ICN
// layer's read-only CS/FIB views.
func NewToDataFirstOptimizer(cs *table.Cs, fib *table.Fib) *ToDataFirstOptimizer {
	return &ToDataFirstOptimizer{Cs: cs, Fib: fib}
}

// remoteLeaf returns the first data-name leaf of ast with a FIB entry to
// a remote face, and that entry, or (nil, nil) if none qualifies. A FIB
// entry whose FaceId is fw.UpstreamFace names a locally-served prefix, not
// a remote peer, and does not qualify.
func (o *ToDataFirstOptimizer) remoteLeaf(ast AST) (*NameNode, *table.FibEntry) {
	for _, leaf := range Leaves(ast) {
		n, err := enc.NameFromStr(leaf.Value)
		if err != nil {
			continue
		}
		if o.Cs != nil && o.Cs.Find(n) != nil {
			continue // already available locally, no need to fetch remotely
		}
		e := o.Fib.Find(n, nil, nil)
		if e == nil || e.FaceId == fw.UpstreamFace {
			continue
		}
		return leaf, e
	}
	return nil, nil
}

// ComputeFwd reports whether ast should be rewritten for remote
// evaluation (§4.6 point 1): true when some data-name leaf has a FIB
// route to a remote face.
func (o *ToDataFirstOptimizer) ComputeFwd(ast AST) bool {
	leaf, _ := o.remoteLeaf(ast)
	return leaf != nil
}

// ComputeLocal reports whether ast should be evaluated on this node
// (§4.6 point 2): the complement of ComputeFwd, except bare Name leaves
// are never "computed" (they are plain data fetches, not calls).
func (o *ToDataFirstOptimizer) ComputeLocal(ast AST) bool {
	if _, isName := ast.(*NameNode); isName {
		return false
	}
	return !o.ComputeFwd(ast)
}

// Rewrite builds the rewritten NFN strings for remote evaluation: the
// computation's own string, prepended with the chosen data leaf's prefix
// (§4.6: "emit rewritten Interests (the computation's name, prepended
// with the chosen data prefix)").
func (o *ToDataFirstOptimizer) Rewrite(ast AST) []string {
	leaf, entry := o.remoteLeaf(ast)
	if leaf == nil {
		return nil
	}
	_ = entry
	return []string{leaf.Value + ast.String()}
}
