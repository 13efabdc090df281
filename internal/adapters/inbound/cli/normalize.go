package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/tui"
	"github.com/abdidvp/apiweave/internal/domain"
)

func newNormalizeCmd(g *globals) *cobra.Command {
	var (
		sideFlag   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "normalize <extraction>",
		Short: "Normalize one extracted API into its canonical view",
		Long:  "Validate an extracted API (JSON or YAML) and print its normalized view: entities, fields and operations in canonical order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			side, err := domain.ParseSide(sideFlag)
			if err != nil {
				return err
			}
			ext, err := readExtraction(args[0])
			if err != nil {
				return reportHalting(cmd, err)
			}
			view, err := g.pipeline().Normalize(ext, side)
			if err != nil {
				return reportHalting(cmd, err)
			}

			if jsonOutput {
				return renderJSON(cmd, view)
			}
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderView(view))
			return nil
		},
	}

	cmd.Flags().StringVar(&sideFlag, "side", "A", "Which API this extraction describes (A or B)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the normalized view as JSON")

	return cmd
}
