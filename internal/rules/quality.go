package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/graph"
	"github.com/vk/modguard/internal/module"
)

// minGuidanceTokens is the least literal text a message can carry and
// still plausibly tell the operator what to do about the failure.
const minGuidanceTokens = 8

// actionableVerbs are the words that distinguish remediation guidance
// from a bare restatement of the condition.
var actionableVerbs = map[string]bool{
	"set":     true,
	"use":     true,
	"must":    true,
	"choose":  true,
	"provide": true,
	"remove":  true,
	"add":     true,
	"change":  true,
}

// QualityChecker inspects precondition error messages. A good message
// follows what/why/how ordering: the current value, the violated
// constraint, and the concrete fix.
type QualityChecker struct{}

// NewQualityChecker builds the error-message-quality checker.
func NewQualityChecker() *QualityChecker { return &QualityChecker{} }

func (c *QualityChecker) Name() string { return "error-message-quality" }

func (c *QualityChecker) Check(_ context.Context, mod *module.Module, _ *graph.Graph) []finding.Finding {
	var findings []finding.Finding
	for _, block := range mod.Blocks {
		for _, pre := range block.Preconditions {
			if f, bad := c.checkPrecondition(mod, block, pre); bad {
				findings = append(findings, f)
			}
		}
	}
	return findings
}

// checkPrecondition applies the two-part heuristic: the message must
// interpolate the value under validation, and must carry enough literal
// guidance text with an actionable verb.
func (c *QualityChecker) checkPrecondition(mod *module.Module, block *module.ResourceBlock, pre module.Precondition) (finding.Finding, bool) {
	if pre.ErrorMessage == nil {
		return c.finding(mod, block, pre, "precondition has no error_message", exampleTemplate(pre)), true
	}

	problems := describeProblems(pre)
	if len(problems) == 0 {
		return finding.Finding{}, false
	}

	return c.finding(mod, block, pre,
		fmt.Sprintf("error message %q %s", pre.ErrorMessage.LiteralText(), strings.Join(problems, " and ")),
		exampleTemplate(pre),
	), true
}

// describeProblems lists what is missing from the message.
func describeProblems(pre module.Precondition) []string {
	var problems []string

	if !mentionsCurrentValue(pre) {
		problems = append(problems, "does not interpolate the value under validation")
	}

	text := pre.ErrorMessage.LiteralText()
	tokens := strings.Fields(text)
	hasVerb := false
	for _, tok := range tokens {
		if actionableVerbs[strings.ToLower(strings.Trim(tok, ".,;:()[]'\""))] {
			hasVerb = true
			break
		}
	}
	if len(tokens) < minGuidanceTokens || !hasVerb {
		problems = append(problems, "gives no actionable guidance")
	}

	return problems
}

// mentionsCurrentValue reports whether the message interpolates at least
// one of the references the condition actually tests. A condition with no
// references of its own cannot demand one back.
func mentionsCurrentValue(pre module.Precondition) bool {
	condRefs := make(map[string]bool)
	if pre.Condition != nil {
		for _, ref := range pre.Condition.References() {
			condRefs[ref.String()] = true
		}
	}
	msgRefs := pre.ErrorMessage.References()

	if len(condRefs) == 0 {
		return true
	}
	for _, ref := range msgRefs {
		if condRefs[ref.String()] {
			return true
		}
	}
	return false
}

// exampleTemplate suggests a corrected template in what/why/how order,
// anchored on the first reference the condition tests.
func exampleTemplate(pre module.Precondition) string {
	ref := "var.value"
	if pre.Condition != nil {
		if refs := pre.Condition.References(); len(refs) > 0 {
			ref = refs[0].String()
		}
	}
	return fmt.Sprintf("%s (${%s}) violated <constraint>; set %s to an allowed value", refName(ref), ref, ref)
}

// refName strips the root so the suggestion reads like prose.
func refName(ref string) string {
	if i := strings.LastIndex(ref, "."); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func (c *QualityChecker) finding(mod *module.Module, block *module.ResourceBlock, pre module.Precondition, problem, suggestion string) finding.Finding {
	loc := pre.DeclRange
	if pre.ErrorMessage != nil {
		loc = pre.ErrorMessage.SrcRange
	}
	return finding.Finding{
		Severity: finding.SeverityWarning,
		RuleID:   finding.RuleLowQualityError,
		Module:   mod.Path,
		Resource: block.Addr.String(),
		Message:  fmt.Sprintf("%s; suggested: %q", problem, suggestion),
		Location: finding.LocationFromRange(loc),
	}
}
