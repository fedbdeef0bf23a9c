package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vk/modguard/internal/audit"
	"github.com/vk/modguard/internal/exceptions"
	"github.com/vk/modguard/internal/finding"
	"github.com/vk/modguard/internal/report"
	"github.com/vk/modguard/internal/rules"
)

// checkerSelector builds the checker set for one subcommand, given the
// loaded exception list.
type checkerSelector func(ex *exceptions.List) []rules.Checker

func newAuditValidationsCmd() *cobra.Command {
	return newAuditCmd(
		"audit-validations",
		"Verify every validation resource is wired into the provisioning path",
		"error",
		false,
		func(ex *exceptions.List) []rules.Checker {
			return []rules.Checker{rules.NewEnforcementChecker(ex)}
		},
	)
}

func newAuditErrorsCmd() *cobra.Command {
	return newAuditCmd(
		"audit-errors",
		"Verify precondition error messages state the value, constraint, and fix",
		"error",
		false,
		func(*exceptions.List) []rules.Checker {
			return []rules.Checker{rules.NewQualityChecker()}
		},
	)
}

func newAuditOptionalFieldsCmd() *cobra.Command {
	return newAuditCmd(
		"audit-optional-fields",
		"Verify possibly-null values are coalesced before use",
		"error",
		false,
		func(*exceptions.List) []rules.Checker {
			return []rules.Checker{rules.NewNullSafetyChecker()}
		},
	)
}

func newAuditCICmd() *cobra.Command {
	return newAuditCmd(
		"audit-ci",
		"Run all checkers plus parse and graph diagnostics",
		"warning",
		true,
		func(ex *exceptions.List) []rules.Checker {
			return []rules.Checker{
				rules.NewEnforcementChecker(ex),
				rules.NewQualityChecker(),
				rules.NewNullSafetyChecker(),
			}
		},
	)
}

// newAuditCmd builds one audit subcommand. All four share flags and the
// run pipeline; they differ only in checkers, default threshold, and
// whether structural graph diagnostics are included.
func newAuditCmd(use, short, defaultFailOn string, graphDiags bool, selectCheckers checkerSelector) *cobra.Command {
	cmd := &cobra.Command{
		Use:          use,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, failOn, format, err := commonOptions(cmd)
			if err != nil {
				return err
			}

			ex, err := loadExceptions(cmd, opts.Root)
			if err != nil {
				return err
			}
			opts.Checkers = selectCheckers(ex)
			opts.GraphDiagnostics = graphDiags

			ctx := cmd.Context()
			if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			res, err := audit.Run(ctx, opts)
			if err != nil {
				return &ExitError{Code: report.ExitInputError, Message: err.Error()}
			}

			exitCode := report.ExitCode(res.Findings, failOn)
			if format == "json" {
				err = report.RenderJSON(cmd.OutOrStdout(), res, exitCode)
			} else {
				err = report.RenderText(cmd.OutOrStdout(), res, exitCode)
			}
			if err != nil {
				return err
			}

			if exitCode != 0 {
				return &ExitError{Code: exitCode}
			}
			return nil
		},
	}

	addCommonFlags(cmd, defaultFailOn)
	return cmd
}

// addCommonFlags registers the flags shared by the audit subcommands.
func addCommonFlags(cmd *cobra.Command, defaultFailOn string) {
	cmd.Flags().String("path", ".", "Root directory of the module tree to audit.")
	cmd.Flags().String("format", "text", "Report format: 'text' or 'json'.")
	cmd.Flags().String("fail-on", defaultFailOn, "Lowest severity that causes a non-zero exit: 'info', 'warning', or 'error'.")
	cmd.Flags().Int("workers", audit.DefaultWorkers, "Number of concurrent module workers.")
	cmd.Flags().Duration("timeout", 0, "Overall run deadline. 0 disables the deadline.")
	cmd.Flags().String("exceptions", "", "Path to the exception allow-list. Defaults to .modguard.yaml at the audit root.")
}

// commonOptions validates the shared flags into audit options.
func commonOptions(cmd *cobra.Command) (audit.Options, finding.Severity, string, error) {
	path, _ := cmd.Flags().GetString("path")
	format, _ := cmd.Flags().GetString("format")
	failOnStr, _ := cmd.Flags().GetString("fail-on")
	workers, _ := cmd.Flags().GetInt("workers")

	if format != "text" && format != "json" {
		return audit.Options{}, 0, "", &ExitError{Code: report.ExitInputError, Message: "invalid format: must be 'text' or 'json'"}
	}
	failOn, err := finding.ParseSeverity(failOnStr)
	if err != nil {
		return audit.Options{}, 0, "", &ExitError{Code: report.ExitInputError, Message: err.Error()}
	}

	return audit.Options{Root: path, Workers: workers}, failOn, format, nil
}

// loadExceptions loads the allow-list named by --exceptions, or the
// default file at the audit root when the flag is unset.
func loadExceptions(cmd *cobra.Command, root string) (*exceptions.List, error) {
	path, _ := cmd.Flags().GetString("exceptions")
	if path == "" {
		ex, err := exceptions.LoadDefault(root)
		if err != nil {
			return nil, &ExitError{Code: report.ExitInputError, Message: err.Error()}
		}
		return ex, nil
	}
	ex, err := exceptions.Load(path)
	if err != nil {
		return nil, &ExitError{Code: report.ExitInputError, Message: err.Error()}
	}
	return ex, nil
}
