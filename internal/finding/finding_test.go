package finding

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFindings() []Finding {
	return []Finding{
		{Severity: SeverityWarning, RuleID: RuleUnsafeMergeArg, Module: "db", Message: "m1", Location: Location{File: "db/main.tf", Line: 10}},
		{Severity: SeverityError, RuleID: RuleDeadValidation, Module: "db", Message: "m2", Location: Location{File: "db/main.tf", Line: 3}},
		{Severity: SeverityError, RuleID: RuleDeadValidation, Module: "net", Message: "m3", Location: Location{File: "net/main.tf", Line: 3}},
		{Severity: SeverityInfo, RuleID: RuleReferenceCycle, Module: "db", Message: "m4", Location: Location{File: "db/main.tf", Line: 1}},
		{Severity: SeverityError, RuleID: RuleParseError, Module: "db", Message: "m5", Location: Location{File: "db/broken.tf", Line: 2}},
	}
}

func TestSort_ModuleThenSeverityDescending(t *testing.T) {
	findings := sampleFindings()
	Sort(findings)

	assert.Equal(t, "m2", findings[0].Message, "error in db sorts before warning")
	assert.Equal(t, "m5", findings[1].Message, "parse-error sorts after dead-validation by rule id")
	assert.Equal(t, "m1", findings[2].Message)
	assert.Equal(t, "m4", findings[3].Message)
	assert.Equal(t, "m3", findings[4].Message, "net module sorts after db")
}

func TestSort_OrderInvariantUnderShuffle(t *testing.T) {
	want := sampleFindings()
	Sort(want)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		shuffled := sampleFindings()
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		Sort(shuffled)
		require.Equal(t, want, shuffled)
	}
}

func TestSeverity_RoundTrip(t *testing.T) {
	for _, name := range []string{"info", "warning", "error"} {
		sev, err := ParseSeverity(name)
		require.NoError(t, err)
		assert.Equal(t, name, sev.String())

		data, err := json.Marshal(sev)
		require.NoError(t, err)

		var back Severity
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, sev, back)
	}

	_, err := ParseSeverity("fatal")
	assert.Error(t, err)
}

func TestCountsAndThreshold(t *testing.T) {
	findings := sampleFindings()
	counts := Counts(findings)
	assert.Equal(t, 3, counts[SeverityError])
	assert.Equal(t, 1, counts[SeverityWarning])
	assert.Equal(t, 1, counts[SeverityInfo])

	assert.Equal(t, 5, AtOrAbove(findings, SeverityInfo))
	assert.Equal(t, 4, AtOrAbove(findings, SeverityWarning))
	assert.Equal(t, 3, AtOrAbove(findings, SeverityError))
}
