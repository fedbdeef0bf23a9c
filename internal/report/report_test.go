package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modguard/internal/audit"
	"github.com/vk/modguard/internal/finding"
)

func TestExitCode_ThresholdTable(t *testing.T) {
	warning := []finding.Finding{{Severity: finding.SeverityWarning, RuleID: finding.RuleUnsafeMergeArg, Module: "db"}}

	assert.Equal(t, ExitClean, ExitCode(nil, finding.SeverityInfo), "zero findings always exit 0")
	assert.Equal(t, ExitClean, ExitCode(warning, finding.SeverityError), "warning below an error threshold")
	assert.Equal(t, ExitFindings, ExitCode(warning, finding.SeverityWarning))
	assert.Equal(t, ExitFindings, ExitCode(warning, finding.SeverityInfo))
}

func sampleResult() *audit.Result {
	return &audit.Result{
		Modules: 2,
		Findings: []finding.Finding{
			{
				Severity: finding.SeverityError,
				RuleID:   finding.RuleDeadValidation,
				Module:   "db",
				Resource: "terraform_data.db_business_validations",
				Message:  "validation resource is dead",
				Location: finding.Location{File: "db/main.tf", Line: 3, Column: 1},
			},
			{
				Severity: finding.SeverityWarning,
				RuleID:   finding.RuleUnsafeMergeArg,
				Module:   "net",
				Resource: "aws_vpc.main",
				Message:  "merge argument var.overrides may be null",
				Location: finding.Location{File: "net/main.tf", Line: 8, Column: 10},
			},
		},
	}
}

func TestRenderJSON_ShapeAndSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, sampleResult(), ExitFindings))

	var doc struct {
		Findings []finding.Finding `json:"findings"`
		Summary  Summary           `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	require.Len(t, doc.Findings, 2)
	assert.Equal(t, finding.RuleDeadValidation, doc.Findings[0].RuleID)
	assert.Equal(t, 1, doc.Summary.Error)
	assert.Equal(t, 1, doc.Summary.Warning)
	assert.Equal(t, 0, doc.Summary.Info)
	assert.Equal(t, 2, doc.Summary.Modules)
	assert.Equal(t, ExitFindings, doc.Summary.ExitCode)
}

func TestRenderJSON_EmptyFindingsIsArrayNotNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderJSON(&buf, &audit.Result{Modules: 1}, ExitClean))
	assert.Contains(t, buf.String(), `"findings": []`)
}

func TestRenderText_CountsAndIncomplete(t *testing.T) {
	res := sampleResult()
	res.Incomplete = []string{"slow/module"}

	var buf bytes.Buffer
	require.NoError(t, RenderText(&buf, res, ExitFindings))
	out := buf.String()

	assert.Contains(t, out, "ERROR")
	assert.Contains(t, out, "dead-validation")
	assert.Contains(t, out, "db/main.tf:3")
	assert.Contains(t, out, "2 module(s) audited: 1 error(s), 1 warning(s), 0 info")
	assert.Contains(t, out, "incomplete: slow/module")
}

func TestRenderJSON_Deterministic(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, RenderJSON(&a, sampleResult(), ExitFindings))
	require.NoError(t, RenderJSON(&b, sampleResult(), ExitFindings))
	assert.Equal(t, a.String(), b.String())
}

func TestRenderMatrix(t *testing.T) {
	m := &audit.Matrix{Entries: []audit.MatrixEntry{
		{Module: "db", Validation: "terraform_data.db_business_validations", EnforcedBy: []string{"aws_db_instance.main"}},
		{Module: "net", Validation: "terraform_data.net_business_validations"},
	}}

	var text bytes.Buffer
	require.NoError(t, RenderMatrixText(&text, m))
	lines := strings.Split(strings.TrimSpace(text.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "aws_db_instance.main")
	assert.Contains(t, lines[1], "(unenforced)")

	var js bytes.Buffer
	require.NoError(t, RenderMatrixJSON(&js, m))
	var back audit.Matrix
	require.NoError(t, json.Unmarshal(js.Bytes(), &back))
	require.Len(t, back.Entries, 2)
}
