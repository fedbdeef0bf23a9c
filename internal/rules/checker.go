// Package rules contains the audit checkers. Each checker is a pure
// function over an already-parsed module and its resolved dependency
// graph; adding a new hygiene rule never requires touching the parser or
// graph builder.
package rules

import (
	"context"
	"fmt"

	"github.com/vk/modguard/internal/ctxlog"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/graph"
	"github.com/vk/modguard/internal/module"
)

// Checker evaluates one rule family against a module.
type Checker interface {
	// Name identifies the checker in logs and internal findings.
	Name() string
	// Check returns the checker's findings for the module. It must not
	// mutate the module or graph.
	Check(ctx context.Context, mod *module.Module, g *graph.Graph) []finding.Finding
}

// Run evaluates a checker, containing any panic to that checker/module
// pair as a single internal finding so one misbehaving rule never aborts
// the rest of the audit.
func Run(ctx context.Context, c Checker, mod *module.Module, g *graph.Graph) (out []finding.Finding) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Checker panicked.", "checker", c.Name(), "module", mod.Path, "panic", r)
			out = []finding.Finding{{
				Severity: finding.SeverityError,
				RuleID:   finding.RuleInternal,
				Module:   mod.Path,
				Message:  fmt.Sprintf("checker %s could not evaluate this module: %v", c.Name(), r),
			}}
		}
	}()
	return c.Check(ctx, mod, g)
}
