package cli

import (
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vk/modguard/internal/ctxlog"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// NewRootCmd creates the root modguard command with all subcommands
// registered. Diagnostics go to errW; reports go to each command's
// configured output.
func NewRootCmd(errW io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "modguard",
		Short:         "modguard - static auditor for infrastructure-as-code validation wiring",
		Long: `modguard parses a tree of declarative configuration modules, reconstructs
each module's resource dependency graph, and verifies that declared
business-rule validations are actively enforced rather than merely
declared. It never executes or simulates infrastructure changes.`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().String("log-level", "info", "Logging level: 'debug', 'info', 'warn', or 'error'.")
	root.PersistentFlags().String("log-format", "text", "Log output format: 'text' or 'json'.")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		format, _ := cmd.Flags().GetString("log-format")

		logger, err := newLogger(level, format, errW)
		if err != nil {
			return err
		}
		cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
		return nil
	}

	root.AddCommand(newAuditValidationsCmd())
	root.AddCommand(newAuditErrorsCmd())
	root.AddCommand(newAuditOptionalFieldsCmd())
	root.AddCommand(newAuditCICmd())
	root.AddCommand(newMatrixCmd())
	return root
}

// newLogger creates a non-global slog.Logger from the persistent flags.
func newLogger(levelStr, formatStr string, outW io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(formatStr) {
	case "json":
		return slog.New(slog.NewJSONHandler(outW, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(outW, opts)), nil
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
}
