// Package report renders aggregated findings to the chosen output format
// and computes the process exit code from the fail-on threshold.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vk/modguard/internal/audit"
	"github.com/vk/modguard/internal/finding"
)

// Exit codes of the modguard process.
const (
	ExitClean      = 0
	ExitFindings   = 1
	ExitInputError = 2
)

// ExitCode derives the process exit code: non-zero when any finding sits
// at or above the threshold.
func ExitCode(findings []finding.Finding, failOn finding.Severity) int {
	if finding.AtOrAbove(findings, failOn) > 0 {
		return ExitFindings
	}
	return ExitClean
}

// Summary is the trailer of the machine-readable report.
type Summary struct {
	Info       int      `json:"info"`
	Warning    int      `json:"warning"`
	Error      int      `json:"error"`
	Modules    int      `json:"modules"`
	Incomplete []string `json:"incomplete,omitempty"`
	ExitCode   int      `json:"exitCode"`
}

// jsonReport is the full machine-readable document. Findings are already
// sorted by the aggregator, so marshalling is byte-stable across runs.
type jsonReport struct {
	Findings []finding.Finding `json:"findings"`
	Summary  Summary           `json:"summary"`
}

func summarize(res *audit.Result, exitCode int) Summary {
	counts := finding.Counts(res.Findings)
	return Summary{
		Info:       counts[finding.SeverityInfo],
		Warning:    counts[finding.SeverityWarning],
		Error:      counts[finding.SeverityError],
		Modules:    res.Modules,
		Incomplete: res.Incomplete,
		ExitCode:   exitCode,
	}
}

// RenderJSON writes the findings and summary as one indented JSON object.
func RenderJSON(w io.Writer, res *audit.Result, exitCode int) error {
	doc := jsonReport{Findings: res.Findings, Summary: summarize(res, exitCode)}
	if doc.Findings == nil {
		doc.Findings = []finding.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// RenderText writes the human-readable report: one line per finding, the
// per-severity counts, and an explicit list of modules that were not
// fully audited.
func RenderText(w io.Writer, res *audit.Result, exitCode int) error {
	for _, f := range res.Findings {
		line := fmt.Sprintf("%-7s %-25s %s", strings.ToUpper(f.Severity.String()), f.RuleID, f.Module)
		if f.Resource != "" {
			line += " " + f.Resource
		}
		line += ": " + f.Message
		if f.Location.File != "" {
			line += fmt.Sprintf(" (%s:%d)", f.Location.File, f.Location.Line)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}

	s := summarize(res, exitCode)
	if _, err := fmt.Fprintf(w, "\n%d module(s) audited: %d error(s), %d warning(s), %d info\n",
		s.Modules, s.Error, s.Warning, s.Info); err != nil {
		return err
	}
	if len(s.Incomplete) > 0 {
		if _, err := fmt.Fprintf(w, "incomplete: %s\n", strings.Join(s.Incomplete, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// RenderMatrixText writes the dependency matrix in human-readable form.
func RenderMatrixText(w io.Writer, m *audit.Matrix) error {
	if len(m.Entries) == 0 {
		_, err := fmt.Fprintln(w, "no validation resources found")
		return err
	}
	for _, e := range m.Entries {
		enforced := "(unenforced)"
		if len(e.EnforcedBy) > 0 {
			enforced = strings.Join(e.EnforcedBy, ", ")
		}
		if _, err := fmt.Fprintf(w, "%s %s <- %s\n", e.Module, e.Validation, enforced); err != nil {
			return err
		}
	}
	return nil
}

// RenderMatrixJSON writes the dependency matrix as indented JSON.
func RenderMatrixJSON(w io.Writer, m *audit.Matrix) error {
	if m.Entries == nil {
		m.Entries = []audit.MatrixEntry{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
