package rules

import (
	"context"
	"fmt"

	"github.com/vk/modguard/internal/expr"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/graph"
	"github.com/vk/modguard/internal/module"
	"github.com/zclconf/go-cty/cty"
)

// wrapperCalls are the null-coalescing idioms that make a possibly-null
// value safe to use.
var wrapperCalls = map[string]bool{
	"coalesce":  true,
	"try":       true,
	"trimspace": true,
}

// NullSafetyChecker flags optional-value handling that propagates absence
// into downstream computation: bare input variables passed to merge, and
// non-empty string checks that skip normalization.
type NullSafetyChecker struct{}

// NewNullSafetyChecker builds the null-safety checker.
func NewNullSafetyChecker() *NullSafetyChecker { return &NullSafetyChecker{} }

func (c *NullSafetyChecker) Name() string { return "null-safety" }

func (c *NullSafetyChecker) Check(_ context.Context, mod *module.Module, _ *graph.Graph) []finding.Finding {
	var findings []finding.Finding

	walkAttr := func(resource string, attr module.Attribute) {
		findings = append(findings, checkExpression(mod, resource, attr.Value)...)
	}

	for _, block := range mod.Blocks {
		for _, attr := range block.Attributes {
			walkAttr(block.Addr.String(), attr)
		}
		for _, pre := range block.Preconditions {
			findings = append(findings, checkExpression(mod, block.Addr.String(), pre.Condition)...)
		}
	}
	for _, local := range mod.LocalDefs {
		walkAttr("local."+local.Name, local)
	}

	return findings
}

// checkExpression walks one expression tree for both rule shapes.
func checkExpression(mod *module.Module, resource string, e *expr.Expression) []finding.Finding {
	if e == nil {
		return nil
	}
	var findings []finding.Finding

	e.Walk(func(n *expr.Expression) bool {
		switch {
		case n.Kind == expr.KindCall && n.Call.Name == "merge":
			findings = append(findings, checkMergeCall(mod, resource, n)...)
		case n.Kind == expr.KindBinary:
			if f, bad := checkEmptinessCheck(mod, resource, n); bad {
				findings = append(findings, f)
			}
		}
		return true
	})

	return findings
}

// checkMergeCall flags merge arguments that are bare input variables. An
// unset optional variable is null, and merge(null, ...) fails at apply
// time, far from the declaration that caused it.
func checkMergeCall(mod *module.Module, resource string, call *expr.Expression) []finding.Finding {
	var findings []finding.Finding
	for _, arg := range call.Call.Args {
		if arg.Kind != expr.KindRef || arg.Ref.Root != "var" {
			continue
		}
		findings = append(findings, finding.Finding{
			Severity: finding.SeverityWarning,
			RuleID:   finding.RuleUnsafeMergeArg,
			Module:   mod.Path,
			Resource: resource,
			Message:  fmt.Sprintf("merge argument %s may be null; wrap it as coalesce(%s, {})", arg.Ref, arg.Ref),
			Location: finding.LocationFromRange(call.SrcRange),
		})
	}
	return findings
}

// checkEmptinessCheck flags non-empty string checks on a possibly-null
// value that skip trimspace/coalesce normalization: length(var.x) > 0 and
// var.x != "". Locals are covered too; a local holding an optional input
// carries its null along.
func checkEmptinessCheck(mod *module.Module, resource string, bin *expr.Expression) (finding.Finding, bool) {
	if len(bin.Children) != 2 {
		return finding.Finding{}, false
	}
	lhs, rhs := bin.Children[0], bin.Children[1]

	var ref *expr.Reference
	switch bin.Op {
	case ">", ">=":
		ref = bareLengthArg(lhs)
		if ref == nil || !isNumberLiteral(rhs) {
			return finding.Finding{}, false
		}
	case "<", "<=":
		ref = bareLengthArg(rhs)
		if ref == nil || !isNumberLiteral(lhs) {
			return finding.Finding{}, false
		}
	case "!=":
		if isEmptyString(rhs) {
			ref = bareValueRef(lhs)
		} else if isEmptyString(lhs) {
			ref = bareValueRef(rhs)
		}
		if ref == nil {
			return finding.Finding{}, false
		}
	default:
		return finding.Finding{}, false
	}

	return finding.Finding{
		Severity: finding.SeverityWarning,
		RuleID:   finding.RuleNullSafetyGap,
		Module:   mod.Path,
		Resource: resource,
		Message:  fmt.Sprintf("non-empty check on %s handles neither null nor whitespace; use length(trimspace(coalesce(%s, \"\"))) > 0", ref, ref),
		Location: finding.LocationFromRange(bin.SrcRange),
	}, true
}

// bareLengthArg returns the value reference inside length(x) when x is
// neither wrapped nor normalized.
func bareLengthArg(e *expr.Expression) *expr.Reference {
	if e.Kind != expr.KindCall || e.Call.Name != "length" || len(e.Call.Args) != 1 {
		return nil
	}
	arg := e.Call.Args[0]
	if arg.Kind == expr.KindCall && wrapperCalls[arg.Call.Name] {
		return nil
	}
	return bareValueRef(arg)
}

func bareValueRef(e *expr.Expression) *expr.Reference {
	if e.Kind == expr.KindRef && e.Ref.IsValueRef() {
		return e.Ref
	}
	return nil
}

func isNumberLiteral(e *expr.Expression) bool {
	return e.Kind == expr.KindLiteral && e.Literal.Type().Equals(cty.Number)
}

func isEmptyString(e *expr.Expression) bool {
	return e.Kind == expr.KindLiteral && e.Literal.Type().Equals(cty.String) && !e.Literal.IsNull() && e.Literal.AsString() == ""
}
