// Package finding defines the audit finding model shared by all checkers,
// plus the deterministic ordering the aggregator applies before reporting.
package finding

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
)

// Severity classifies how serious a finding is. The zero value is info.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// ParseSeverity converts a user-supplied severity name, as used by the
// --fail-on flag.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	default:
		return SeverityInfo, fmt.Errorf("invalid severity %q: must be 'info', 'warning', or 'error'", s)
	}
}

// MarshalJSON renders the severity as its lowercase name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the lowercase severity names.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	sev, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = sev
	return nil
}

// Rule identifiers. Checkers attach exactly one to each finding.
const (
	RuleDeadValidation  = "dead-validation"
	RuleEmptyValidation = "empty-validation"
	RuleLowQualityError = "low-quality-error-message"
	RuleUnsafeMergeArg  = "unsafe-merge-argument"
	RuleNullSafetyGap   = "null-safety-gap"
	RuleDanglingRef     = "dangling-reference"
	RuleReferenceCycle  = "reference-cycle"
	RuleParseError      = "parse-error"
	RuleInternal        = "internal"
	RuleAuditIncomplete = "audit-incomplete"
)

// Location is the source position a finding points at. It is a flattened
// hcl.Range start, which keeps the JSON report compact and stable.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// LocationFromRange flattens an hcl.Range into a Location.
func LocationFromRange(r hcl.Range) Location {
	return Location{File: r.Filename, Line: r.Start.Line, Column: r.Start.Column}
}

// Finding is one audit result. Resource is empty for findings that are not
// tied to a particular block (parse errors, incomplete modules).
type Finding struct {
	Severity Severity `json:"severity"`
	RuleID   string   `json:"ruleId"`
	Module   string   `json:"module"`
	Resource string   `json:"resource,omitempty"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// Sort orders findings by (module, severity descending, rule, location,
// message). The order is total, so repeated runs over unchanged input
// produce byte-identical reports regardless of worker completion order.
func Sort(findings []Finding) {
	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Module != b.Module {
			return a.Module < b.Module
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.Location.File != b.Location.File {
			return a.Location.File < b.Location.File
		}
		if a.Location.Line != b.Location.Line {
			return a.Location.Line < b.Location.Line
		}
		if a.Location.Column != b.Location.Column {
			return a.Location.Column < b.Location.Column
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Message < b.Message
	})
}

// Counts tallies findings per severity.
func Counts(findings []Finding) map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range findings {
		counts[f.Severity]++
	}
	return counts
}

// AtOrAbove reports how many findings sit at or above the given threshold.
func AtOrAbove(findings []Finding, threshold Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity >= threshold {
			n++
		}
	}
	return n
}
