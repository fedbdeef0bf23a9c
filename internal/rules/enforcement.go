package rules

import (
	"context"
	"fmt"

	"github.com/vk/modguard/internal/exceptions"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/graph"
	"github.com/vk/modguard/internal/module"
)

// EnforcementChecker verifies that every validation resource is actively
// wired into the provisioning path. A validation nobody depends_on never
// executes; declared-but-dead validations are worse than none because
// they read as coverage that does not exist.
type EnforcementChecker struct {
	Exceptions *exceptions.List
}

// NewEnforcementChecker builds the checker with the given allow-list.
// A nil list means no exceptions.
func NewEnforcementChecker(ex *exceptions.List) *EnforcementChecker {
	return &EnforcementChecker{Exceptions: ex}
}

func (c *EnforcementChecker) Name() string { return "validation-enforcement" }

// Check emits one finding per unenforced validation per module, not one
// per main resource, so a module with twenty resources and one dead
// validation reads as one defect.
func (c *EnforcementChecker) Check(_ context.Context, mod *module.Module, g *graph.Graph) []finding.Finding {
	var findings []finding.Finding

	for _, v := range mod.Validations() {
		if len(v.Preconditions) == 0 {
			findings = append(findings, finding.Finding{
				Severity: finding.SeverityError,
				RuleID:   finding.RuleEmptyValidation,
				Module:   mod.Path,
				Resource: v.Addr.String(),
				Message:  fmt.Sprintf("validation resource %s declares no preconditions; add lifecycle precondition blocks or remove it", v.Addr),
				Location: finding.LocationFromRange(v.DeclRange),
			})
		}

		if len(g.IncomingEnforcement(v.Addr)) > 0 {
			continue
		}

		if reason, allowed := c.Exceptions.Reason(mod.Path); allowed {
			findings = append(findings, finding.Finding{
				Severity: finding.SeverityInfo,
				RuleID:   finding.RuleDeadValidation,
				Module:   mod.Path,
				Resource: v.Addr.String(),
				Message:  fmt.Sprintf("validation resource %s has no enforcement edges; module is on the exception list: %s", v.Addr, reason),
				Location: finding.LocationFromRange(v.DeclRange),
			})
			continue
		}

		findings = append(findings, finding.Finding{
			Severity: finding.SeverityError,
			RuleID:   finding.RuleDeadValidation,
			Module:   mod.Path,
			Resource: v.Addr.String(),
			Message:  fmt.Sprintf("validation resource %s is dead: no resource lists it in depends_on, so its preconditions never gate provisioning", v.Addr),
			Location: finding.LocationFromRange(v.DeclRange),
		})
	}

	return findings
}
