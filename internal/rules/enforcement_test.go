package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modguard/internal/exceptions"
	"github.com/vk/modguard/internal/finding"
)

const deadValidationSrc = `
resource "terraform_data" "db_business_validations" {
  lifecycle {
    precondition {
      condition     = contains(["prod", "dev"], var.tier)
      error_message = "tier (${var.tier}) must be one of [prod, dev]; set var.tier = 'prod' in .tfvars"
    }
  }
}

resource "aws_db_instance" "main" {
  engine = "postgres"
}
`

func TestEnforcement_DeadValidation(t *testing.T) {
	mod, g := loadModule(t, deadValidationSrc)

	findings := NewEnforcementChecker(nil).Check(context.Background(), mod, g)
	dead := byRule(findings, finding.RuleDeadValidation)
	require.Len(t, dead, 1, "exactly one finding per unenforced validation, not per main resource")
	assert.Equal(t, finding.SeverityError, dead[0].Severity)
	assert.Equal(t, "db", dead[0].Module)
	assert.Equal(t, "terraform_data.db_business_validations", dead[0].Resource)
}

func TestEnforcement_DependsOnClearsFinding(t *testing.T) {
	mod, g := loadModule(t, `
resource "terraform_data" "db_business_validations" {
  lifecycle {
    precondition {
      condition     = contains(["prod", "dev"], var.tier)
      error_message = "tier (${var.tier}) must be one of [prod, dev]; set var.tier = 'prod' in .tfvars"
    }
  }
}

resource "aws_db_instance" "main" {
  engine     = "postgres"
  depends_on = [terraform_data.db_business_validations]
}
`)
	findings := NewEnforcementChecker(nil).Check(context.Background(), mod, g)
	assert.Empty(t, byRule(findings, finding.RuleDeadValidation))
}

func TestEnforcement_EmptyValidation(t *testing.T) {
	mod, g := loadModule(t, `
resource "terraform_data" "db_business_validations" {}

resource "aws_db_instance" "main" {
  depends_on = [terraform_data.db_business_validations]
}
`)
	findings := NewEnforcementChecker(nil).Check(context.Background(), mod, g)
	empty := byRule(findings, finding.RuleEmptyValidation)
	require.Len(t, empty, 1)
	assert.Equal(t, finding.SeverityError, empty[0].Severity)
}

func TestEnforcement_ExceptionDowngradesToInfo(t *testing.T) {
	mod, g := loadModule(t, deadValidationSrc)

	ex := &exceptions.List{Exceptions: []exceptions.Entry{
		{Module: "db", Reason: "legacy module scheduled for decommission in Q4"},
	}}
	findings := NewEnforcementChecker(ex).Check(context.Background(), mod, g)
	dead := byRule(findings, finding.RuleDeadValidation)
	require.Len(t, dead, 1)
	assert.Equal(t, finding.SeverityInfo, dead[0].Severity)
	assert.Contains(t, dead[0].Message, "legacy module scheduled for decommission in Q4")
}

func TestEnforcement_ModuleWithoutValidationsIsClean(t *testing.T) {
	mod, g := loadModule(t, `
resource "aws_s3_bucket" "logs" {}
`)
	findings := NewEnforcementChecker(nil).Check(context.Background(), mod, g)
	assert.Empty(t, findings)
}
