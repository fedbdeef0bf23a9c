package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/graph"
	"github.com/vk/modguard/internal/module"
	"github.com/vk/modguard/internal/parser"
)

// loadModule parses a single-file module named "db" and builds its graph.
func loadModule(t *testing.T, src string) (*module.Module, *graph.Graph) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte(src), 0o644))
	mod, parseFindings, err := parser.Parse(context.Background(), "db", dir)
	require.NoError(t, err)
	require.Empty(t, parseFindings)
	g, _ := graph.Build(context.Background(), mod)
	return mod, g
}

// byRule filters findings down to one rule id.
func byRule(findings []finding.Finding, ruleID string) []finding.Finding {
	var out []finding.Finding
	for _, f := range findings {
		if f.RuleID == ruleID {
			out = append(out, f)
		}
	}
	return out
}
