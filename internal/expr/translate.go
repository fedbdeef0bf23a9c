package expr

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// binaryOps maps the hclsyntax operation singletons to their source symbol.
var binaryOps = map[*hclsyntax.Operation]string{
	hclsyntax.OpEqual:              "==",
	hclsyntax.OpNotEqual:           "!=",
	hclsyntax.OpGreaterThan:        ">",
	hclsyntax.OpGreaterThanOrEqual: ">=",
	hclsyntax.OpLessThan:           "<",
	hclsyntax.OpLessThanOrEqual:    "<=",
	hclsyntax.OpLogicalAnd:         "&&",
	hclsyntax.OpLogicalOr:          "||",
	hclsyntax.OpAdd:                "+",
	hclsyntax.OpSubtract:           "-",
	hclsyntax.OpMultiply:           "*",
	hclsyntax.OpDivide:             "/",
	hclsyntax.OpModulo:             "%",
}

// Translate converts an hclsyntax expression tree into the tagged-variant
// model. It never fails: shapes the model does not interpret come back as
// KindOpaque with their children translated, so later walks still descend.
func Translate(e hclsyntax.Expression) *Expression {
	if e == nil {
		return nil
	}

	switch syn := e.(type) {
	case *hclsyntax.LiteralValueExpr:
		return &Expression{Kind: KindLiteral, Literal: syn.Val, SrcRange: syn.Range()}

	case *hclsyntax.ScopeTraversalExpr:
		return &Expression{Kind: KindRef, Ref: ReferenceFromTraversal(syn.Traversal), SrcRange: syn.Range()}

	case *hclsyntax.FunctionCallExpr:
		call := &Call{Name: syn.Name, Args: make([]*Expression, 0, len(syn.Args))}
		for _, arg := range syn.Args {
			call.Args = append(call.Args, Translate(arg))
		}
		return &Expression{Kind: KindCall, Call: call, SrcRange: syn.Range()}

	case *hclsyntax.TupleConsExpr:
		out := &Expression{Kind: KindTuple, SrcRange: syn.Range()}
		for _, el := range syn.Exprs {
			out.Children = append(out.Children, Translate(el))
		}
		return out

	case *hclsyntax.ObjectConsExpr:
		out := &Expression{Kind: KindObject, SrcRange: syn.Range()}
		for _, item := range syn.Items {
			out.Children = append(out.Children, Translate(item.KeyExpr), Translate(item.ValueExpr))
		}
		return out

	case *hclsyntax.ObjectConsKeyExpr:
		// A naked identifier key means the literal string, not a
		// reference.
		if lit := hcl.ExprAsKeyword(syn.Wrapped); lit != "" {
			return &Expression{Kind: KindLiteral, Literal: cty.StringVal(lit), SrcRange: syn.Range()}
		}
		return Translate(syn.Wrapped)

	case *hclsyntax.TemplateExpr:
		if syn.IsStringLiteral() {
			v, _ := syn.Value(nil)
			return &Expression{Kind: KindLiteral, Literal: v, SrcRange: syn.Range()}
		}
		out := &Expression{Kind: KindTemplate, SrcRange: syn.Range()}
		for _, part := range syn.Parts {
			out.Children = append(out.Children, Translate(part))
		}
		return out

	case *hclsyntax.TemplateWrapExpr:
		return Translate(syn.Wrapped)

	case *hclsyntax.ParenthesesExpr:
		return Translate(syn.Expression)

	case *hclsyntax.BinaryOpExpr:
		op, known := binaryOps[syn.Op]
		if !known {
			op = "?"
		}
		return &Expression{
			Kind:     KindBinary,
			Op:       op,
			Children: []*Expression{Translate(syn.LHS), Translate(syn.RHS)},
			SrcRange: syn.Range(),
		}

	case *hclsyntax.UnaryOpExpr:
		return opaque(syn.Range(), Translate(syn.Val))

	case *hclsyntax.ConditionalExpr:
		return opaque(syn.Range(), Translate(syn.Condition), Translate(syn.TrueResult), Translate(syn.FalseResult))

	case *hclsyntax.IndexExpr:
		return opaque(syn.Range(), Translate(syn.Collection), Translate(syn.Key))

	case *hclsyntax.RelativeTraversalExpr:
		return opaque(syn.Range(), Translate(syn.Source))

	case *hclsyntax.SplatExpr:
		return opaque(syn.Range(), Translate(syn.Source))

	case *hclsyntax.ForExpr:
		return opaque(syn.Range(), Translate(syn.CollExpr), Translate(syn.KeyExpr), Translate(syn.ValExpr), Translate(syn.CondExpr))

	default:
		return &Expression{Kind: KindOpaque, SrcRange: e.Range()}
	}
}

// TranslateHCL translates a generic hcl.Expression, which in practice is
// always an hclsyntax node when the source is native HCL syntax.
func TranslateHCL(e hcl.Expression) *Expression {
	if syn, ok := e.(hclsyntax.Expression); ok {
		return Translate(syn)
	}
	if e == nil {
		return nil
	}
	return &Expression{Kind: KindOpaque, SrcRange: e.Range()}
}

// ReferenceFromTraversal flattens an hcl.Traversal into a Reference.
// Index steps are skipped; only named steps contribute to the path.
func ReferenceFromTraversal(t hcl.Traversal) *Reference {
	ref := &Reference{Root: t.RootName(), SrcRange: t.SourceRange()}
	for _, step := range t[1:] {
		if attr, ok := step.(hcl.TraverseAttr); ok {
			ref.Path = append(ref.Path, attr.Name)
		}
	}
	return ref
}

func opaque(rng hcl.Range, children ...*Expression) *Expression {
	out := &Expression{Kind: KindOpaque, SrcRange: rng}
	for _, c := range children {
		if c != nil {
			out.Children = append(out.Children, c)
		}
	}
	return out
}
