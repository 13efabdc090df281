package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/cache"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/tui"
	"github.com/abdidvp/apiweave/internal/application"
)

func newMapCmd(g *globals) *cobra.Command {
	var (
		offline    bool
		fresh      bool
		noSave     bool
		outDir     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "map <extraction-a> <extraction-b>",
		Short: "Propose entity and field mappings between two APIs",
		Long: "Normalize both extractions and ask the reasoner for a correspondence for every entity pair. " +
			"Failed pairs become warnings; the run is stored under the output directory and reused until an input changes.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			extA, err := readExtraction(args[0])
			if err != nil {
				return reportHalting(cmd, err)
			}
			extB, err := readExtraction(args[1])
			if err != nil {
				return reportHalting(cmd, err)
			}

			resp, err := g.pipeline().Map(cmd.Context(), application.MapRequest{
				Workspace:   g.workspace,
				ExtractionA: extA,
				ExtractionB: extB,
				Offline:     offline,
				Fresh:       fresh,
				Save:        !noSave,
				OutDir:      outDir,
			})
			if err != nil {
				return reportHalting(cmd, err)
			}

			if jsonOutput {
				return renderJSON(cmd, resp.Result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, tui.RenderMappingResult(resp.Result))
			if !noSave {
				cfg, err := g.pipeline().Config(g.workspace)
				if err != nil {
					return err
				}
				state := "saved"
				if resp.Cached {
					state = "reused"
				}
				dir := cache.RunDir(application.OutputDir(g.workspace, cfg, outDir), resp.Digest)
				fmt.Fprintf(out, "\n  run %s %s in %s\n", resp.Digest[:12], state, dir)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Use the deterministic local reasoner instead of the configured provider")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Ignore a stored run for the same inputs")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not read or write stored runs")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (defaults to output_dir from .apiweave.yaml)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the mapping result as JSON")

	return cmd
}
