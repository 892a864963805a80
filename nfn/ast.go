package nfn

import (
	"fmt"
	"strings"
)

// AST is the parsed expression tree (§4.6): one of Name, Var, String,
// Int, Float, FuncCall.
type AST interface {
	String() string
}

// NameNode is a bare NDN name leaf, e.g. "/test/data".
type NameNode struct {
	Value string
}

func (n *NameNode) String() string { return n.Value }

// VarNode is a bare identifier. The evaluator does not resolve it: the
// identifier's own text is passed to the function as a literal argument.
type VarNode struct {
	Value string
}

func (v *VarNode) String() string { return v.Value }

// StringNode is a quoted string literal; Value excludes the quotes.
type StringNode struct {
	Value string
}

func (s *StringNode) String() string { return `"` + s.Value + `"` }

// IntNode is an integer literal.
type IntNode struct {
	Value int64
}

func (i *IntNode) String() string { return fmt.Sprintf("%d", i.Value) }

// FloatNode is a floating-point literal.
type FloatNode struct {
	Value float64
}

func (f *FloatNode) String() string { return fmt.Sprintf("%g", f.Value) }

// FuncCallNode is a function call: the function's Name (Element) applied
// to Params, each itself an AST (§4.6).
type FuncCallNode struct {
	Element string
	Params  []AST
}

func (c *FuncCallNode) String() string {
	parts := make([]string, len(c.Params))
	for i, p := range c.Params {
		parts[i] = p.String()
	}
	return c.Element + "(" + strings.Join(parts, ",") + ")"
}

// Leaves collects every NameNode reachable from ast, recursing into
// FuncCall parameters (§4.6's "collect all data-name leaves").
func Leaves(ast AST) []*NameNode {
	var out []*NameNode
	var walk func(AST)
	walk = func(a AST) {
		switch n := a.(type) {
		case *NameNode:
			out = append(out, n)
		case *FuncCallNode:
			for _, p := range n.Params {
				walk(p)
			}
		}
	}
	walk(ast)
	return out
}
