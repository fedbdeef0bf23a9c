// Package expr defines the format-agnostic expression model the checkers
// operate on. Attribute values in HCL are dynamically typed (a string here,
// a map there), so instead of coercing them at parse time we keep a closed
// tagged variant with explicit kind discrimination. Expressions are never
// evaluated; the auditor only inspects their shape.
package expr

import (
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Kind discriminates the variant held by an Expression.
type Kind int

const (
	// KindLiteral is a constant value such as a string, number or bool.
	KindLiteral Kind = iota
	// KindRef is a bare variable traversal such as var.tier or
	// terraform_data.db_business_validations.
	KindRef
	// KindCall is a function call with a name and ordered arguments.
	KindCall
	// KindTuple is a list constructor.
	KindTuple
	// KindObject is a map/object constructor.
	KindObject
	// KindTemplate is a string template with interleaved literal and
	// interpolated parts.
	KindTemplate
	// KindBinary is a binary operation such as a comparison.
	KindBinary
	// KindOpaque covers source shapes the model does not interpret
	// (conditionals, for-expressions, splats, ...). Children are still
	// translated so walks descend through them.
	KindOpaque
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindRef:
		return "ref"
	case KindCall:
		return "call"
	case KindTuple:
		return "tuple"
	case KindObject:
		return "object"
	case KindTemplate:
		return "template"
	case KindBinary:
		return "binary"
	default:
		return "opaque"
	}
}

// Expression is one node of the translated expression tree. Exactly the
// fields implied by Kind are populated; everything else is zero.
type Expression struct {
	Kind     Kind
	SrcRange hcl.Range

	// KindLiteral
	Literal cty.Value

	// KindRef
	Ref *Reference

	// KindCall
	Call *Call

	// KindBinary
	Op string

	// Children: tuple elements, template parts, binary operands (LHS then
	// RHS), object keys/values interleaved, or opaque sub-expressions.
	Children []*Expression
}

// Call is the payload of a KindCall expression.
type Call struct {
	Name string
	Args []*Expression
}

// Reference is a pointer from an expression to a named value or another
// resource block. It is owned by the referencing block and never mutated
// after parse.
type Reference struct {
	Root     string
	Path     []string
	SrcRange hcl.Range
}

// String returns the dotted form of the reference, e.g. "var.tier".
func (r *Reference) String() string {
	if len(r.Path) == 0 {
		return r.Root
	}
	return r.Root + "." + strings.Join(r.Path, ".")
}

// nonResourceRoots are traversal roots that name values rather than
// resource blocks.
var nonResourceRoots = map[string]bool{
	"var":       true,
	"local":     true,
	"module":    true,
	"each":      true,
	"count":     true,
	"path":      true,
	"terraform": true,
	"self":      true,
}

// IsValueRef reports whether the reference names an input value
// (var.* or local.*) rather than a resource block.
func (r *Reference) IsValueRef() bool {
	return r.Root == "var" || r.Root == "local"
}

// ResourceTarget interprets the reference as a pointer to another resource
// block within the same module. Data source references (data.type.name)
// resolve to the same (type, name) key space as managed resources.
func (r *Reference) ResourceTarget() (typ, name string, ok bool) {
	if nonResourceRoots[r.Root] {
		return "", "", false
	}
	if r.Root == "data" {
		if len(r.Path) < 2 {
			return "", "", false
		}
		return r.Path[0], r.Path[1], true
	}
	if len(r.Path) < 1 {
		return "", "", false
	}
	return r.Root, r.Path[0], true
}
