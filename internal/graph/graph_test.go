package graph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modguard/internal/addr"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/module"
	"github.com/vk/modguard/internal/parser"
)

// buildFromSource parses a single-file module and builds its graph.
func buildFromSource(t *testing.T, src string) (*module.Module, *Graph, []finding.Finding) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tf"), []byte(src), 0o644))
	mod, parseFindings, err := parser.Parse(context.Background(), "m", dir)
	require.NoError(t, err)
	require.Empty(t, parseFindings)
	g, findings := Build(context.Background(), mod)
	return mod, g, findings
}

func TestBuild_ExplicitEnforcementEdge(t *testing.T) {
	_, g, findings := buildFromSource(t, `
resource "terraform_data" "db_business_validations" {}

resource "aws_db_instance" "main" {
  depends_on = [terraform_data.db_business_validations]
}
`)
	assert.Empty(t, findings)

	validation := addr.Resource{Type: "terraform_data", Name: "db_business_validations"}
	in := g.IncomingEnforcement(validation)
	require.Len(t, in, 1)
	assert.Equal(t, "aws_db_instance.main", in[0].String())
}

func TestBuild_ImplicitEdgeIsNotEnforcement(t *testing.T) {
	_, g, findings := buildFromSource(t, `
resource "terraform_data" "db_business_validations" {}

resource "aws_db_instance" "main" {
  tags = { gate = terraform_data.db_business_validations.id }
}
`)
	assert.Empty(t, findings)

	validation := addr.Resource{Type: "terraform_data", Name: "db_business_validations"}
	assert.Empty(t, g.IncomingEnforcement(validation), "expression references must not count as enforcement")

	// The edge still exists for ordering purposes.
	node := g.Nodes[addr.Resource{Type: "aws_db_instance", Name: "main"}]
	require.NotNil(t, node)
	kind, linked := node.Out[validation]
	require.True(t, linked)
	assert.Equal(t, EdgeImplicit, kind)
}

func TestBuild_DanglingReferenceWarns(t *testing.T) {
	_, _, findings := buildFromSource(t, `
resource "aws_db_instance" "main" {
  depends_on = [terraform_data.missing_validations]
}
`)
	require.Len(t, findings, 1)
	assert.Equal(t, finding.RuleDanglingRef, findings[0].RuleID)
	assert.Equal(t, finding.SeverityWarning, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "terraform_data.missing_validations")
}

func TestBuild_CycleDetectedOnce(t *testing.T) {
	_, _, findings := buildFromSource(t, `
resource "aws_security_group" "a" {
  depends_on = [aws_security_group.b]
}

resource "aws_security_group" "b" {
  depends_on = [aws_security_group.a]
}
`)
	require.Len(t, findings, 1)
	assert.Equal(t, finding.RuleReferenceCycle, findings[0].RuleID)
	assert.Equal(t, finding.SeverityInfo, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "aws_security_group.a")
	assert.Contains(t, findings[0].Message, "aws_security_group.b")
}

func TestQueries_MainResourcesWithoutEdgeTo(t *testing.T) {
	mod, g, _ := buildFromSource(t, `
resource "terraform_data" "db_business_validations" {}

resource "aws_db_instance" "gated" {
  depends_on = [terraform_data.db_business_validations]
}

resource "aws_s3_bucket" "ungated" {}
`)
	validation := addr.Resource{Type: "terraform_data", Name: "db_business_validations"}
	missing := g.MainResourcesWithoutEdgeTo(mod, validation)
	require.Len(t, missing, 1)
	assert.Equal(t, "aws_s3_bucket.ungated", missing[0].String())
}

func TestQueries_UnreferencedValidations(t *testing.T) {
	mod, g, _ := buildFromSource(t, `
resource "terraform_data" "db_business_validations" {}
resource "terraform_data" "net_business_validations" {}

resource "aws_db_instance" "main" {
  depends_on = [terraform_data.db_business_validations]
}
`)
	unref := g.UnreferencedValidations(mod)
	require.Len(t, unref, 1)
	assert.Equal(t, "terraform_data.net_business_validations", unref[0].String())
}

func TestBuild_SelfReferenceIgnored(t *testing.T) {
	_, g, findings := buildFromSource(t, `
resource "aws_db_instance" "main" {
  tags = { self_id = aws_db_instance.main.id }
}
`)
	assert.Empty(t, findings)
	node := g.Nodes[addr.Resource{Type: "aws_db_instance", Name: "main"}]
	require.NotNil(t, node)
	assert.Empty(t, node.Out)
}
