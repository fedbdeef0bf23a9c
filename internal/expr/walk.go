package expr

import "github.com/zclconf/go-cty/cty"

// Walk visits every node of the expression tree in depth-first source
// order. Returning false from the visitor stops descent into that node's
// children but not the walk as a whole.
func (e *Expression) Walk(visit func(*Expression) bool) {
	if e == nil {
		return
	}
	if !visit(e) {
		return
	}
	if e.Call != nil {
		for _, arg := range e.Call.Args {
			arg.Walk(visit)
		}
	}
	for _, child := range e.Children {
		child.Walk(visit)
	}
}

// References collects every Reference in the tree, in source order.
func (e *Expression) References() []*Reference {
	var refs []*Reference
	e.Walk(func(n *Expression) bool {
		if n.Kind == KindRef {
			refs = append(refs, n.Ref)
		}
		return true
	})
	return refs
}

// Calls collects every function call named name, in source order.
func (e *Expression) Calls(name string) []*Expression {
	var calls []*Expression
	e.Walk(func(n *Expression) bool {
		if n.Kind == KindCall && n.Call.Name == name {
			calls = append(calls, n)
		}
		return true
	})
	return calls
}

// LiteralText concatenates the literal string content of the expression:
// the whole value for a string literal, the literal parts for a template.
// Interpolated parts contribute nothing.
func (e *Expression) LiteralText() string {
	var out string
	e.Walk(func(n *Expression) bool {
		if n.Kind == KindLiteral && n.Literal.Type().Equals(cty.String) && !n.Literal.IsNull() {
			out += n.Literal.AsString()
		}
		return true
	})
	return out
}
