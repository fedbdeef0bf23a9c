package cli

import (
	"github.com/spf13/cobra"

	"github.com/vk/modguard/internal/audit"
	"github.com/vk/modguard/internal/report"
)

// newMatrixCmd renders the dependency matrix: which resources enforce
// which validations, generated from the graph rather than maintained by
// hand.
func newMatrixCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "matrix",
		Short:        "Render the validation enforcement matrix",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("path")
			format, _ := cmd.Flags().GetString("format")
			if format != "text" && format != "json" {
				return &ExitError{Code: report.ExitInputError, Message: "invalid format: must be 'text' or 'json'"}
			}

			matrix, err := audit.BuildMatrix(cmd.Context(), path)
			if err != nil {
				return &ExitError{Code: report.ExitInputError, Message: err.Error()}
			}

			if format == "json" {
				return report.RenderMatrixJSON(cmd.OutOrStdout(), matrix)
			}
			return report.RenderMatrixText(cmd.OutOrStdout(), matrix)
		},
	}

	cmd.Flags().String("path", ".", "Root directory of the module tree.")
	cmd.Flags().String("format", "text", "Output format: 'text' or 'json'.")
	return cmd
}
