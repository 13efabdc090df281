package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/artifact"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/config"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/tui"
	"github.com/abdidvp/apiweave/internal/application"
	"github.com/abdidvp/apiweave/internal/domain"
)

func newValidateCmd(g *globals) *cobra.Command {
	var (
		mappingPath string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "validate <kind> <file>",
		Short: "Check an artifact against its contract",
		Long: "Validate a JSON or YAML artifact against the contract for its kind: " +
			"extracted_api, mapping_result, answers, plan or pair_candidate. Exits non-zero on violations.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := artifact.ReadDocument(args[1])
			if err != nil {
				return fmt.Errorf("reading artifact: %w", err)
			}

			var mapping *domain.MappingResult
			if mappingPath != "" {
				result, err := readMappingResult(mappingPath)
				if err != nil {
					return reportHalting(cmd, err)
				}
				mapping = &result
			}

			report, err := application.NewValidateService(config.New()).Validate(g.workspace, args[0], doc, mapping)
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}

			if jsonOutput {
				if err := renderJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), tui.RenderViolations(string(report.Kind), report.Violations))
			}

			if !report.Valid {
				return fmt.Errorf("%s has %d contract violation(s)", report.Kind, len(report.Violations))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping result that answers refer to (enables ownership and override checks)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the report as JSON")

	return cmd
}
