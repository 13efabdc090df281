package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/artifact"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/tui"
	"github.com/abdidvp/apiweave/internal/application"
	"github.com/abdidvp/apiweave/internal/domain"
)

// Plan output formats.
const (
	formatTUI      = "tui"
	formatMarkdown = "markdown"
	formatJSON     = "json"
)

func newPlanCmd(g *globals) *cobra.Command {
	var (
		mappingPath string
		answersPath string
		format      string
		outDir      string
		noSave      bool
		threshold   float64
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate the integration plan",
		Long: "Validate the answers against the mapping result and generate the integration plan. " +
			"Mappings below the confidence threshold go to the backlog unless the answers override them.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatTUI, formatMarkdown, formatJSON:
			default:
				return fmt.Errorf("unknown format %q (valid: tui, markdown, json)", format)
			}

			result, err := readMappingResult(mappingPath)
			if err != nil {
				return reportHalting(cmd, err)
			}
			answers, err := artifact.ReadDocument(answersPath)
			if err != nil {
				return fmt.Errorf("reading answers: %w", err)
			}

			req := application.PlanRequest{
				Workspace: g.workspace,
				Result:    result,
				Answers:   answers,
				Save:      !noSave,
				OutDir:    outDir,
			}
			if cmd.Flags().Changed("threshold") {
				req.Threshold = &threshold
			}

			resp, err := g.pipeline().GeneratePlan(req)
			if err != nil {
				return reportHalting(cmd, err)
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				return renderJSON(cmd, resp.Plan)
			case formatMarkdown:
				fmt.Fprint(out, resp.Markdown)
			default:
				fmt.Fprint(out, tui.RenderPlan(resp.Plan))
				if resp.Previous != nil {
					fmt.Fprintf(out, "\n  unchanged since %s (%s)\n", resp.Previous.Timestamp, resp.Previous.ID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping result (JSON or YAML)")
	cmd.Flags().StringVar(&answersPath, "answers", "", "Integration answers (JSON or YAML)")
	cmd.Flags().StringVar(&format, "format", formatTUI, "Output format: tui, markdown or json")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (defaults to output_dir from .apiweave.yaml)")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not store the plan or record history")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Override confidence_threshold for this plan")
	_ = cmd.MarkFlagRequired("mapping")
	_ = cmd.MarkFlagRequired("answers")

	return cmd
}

func newHistoryCmd(g *globals) *cobra.Command {
	var (
		outDir     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show generated plan history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := g.pipeline().History(g.workspace, outDir)
			if err != nil {
				return fmt.Errorf("loading history: %w", err)
			}
			if jsonOutput {
				if entries == nil {
					entries = []domain.PlanEntry{}
				}
				return renderJSON(cmd, entries)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderHistory(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (defaults to output_dir from .apiweave.yaml)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output history as JSON")

	return cmd
}
