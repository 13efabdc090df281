package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/artifact"
	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/questionnaire"
)

func newQuestionnaireCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questionnaire",
		Short: "Integration decision commands",
		Long:  "Produce a pre-filled answers template and validate completed answers against a mapping result.",
	}
	cmd.AddCommand(newQuestionnaireTemplateCmd(g))
	cmd.AddCommand(newQuestionnaireValidateCmd(g))
	return cmd
}

type templateOutput struct {
	Answers domain.IntegrationAnswers `json:"answers"`
	Options map[string][]string       `json:"options"`
}

func newQuestionnaireTemplateCmd(g *globals) *cobra.Command {
	var (
		mappingPath string
		outPath     string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print a pre-filled answers template",
		Long:  "Print default answers with the allowed values for every decision. With --mapping, ownership is pre-filled for every accepted mapping.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			answers := questionnaire.Defaults()
			if mappingPath != "" {
				result, err := readMappingResult(mappingPath)
				if err != nil {
					return reportHalting(cmd, err)
				}
				if answers, err = g.pipeline().Template(g.workspace, result); err != nil {
					return err
				}
			}

			options := questionnaire.OptionSets()
			if jsonOutput {
				return renderJSON(cmd, templateOutput{Answers: answers, Options: options})
			}
			if outPath != "" {
				if err := artifact.WriteYAML(outPath, answers); err != nil {
					return fmt.Errorf("writing template: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outPath)
				return nil
			}

			data, err := yaml.Marshal(answers)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, optionComments(options))
			fmt.Fprint(out, string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping result to pre-fill ownership from")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "Write the template to a YAML file")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output template and option sets as JSON")

	return cmd
}

func optionComments(options map[string][]string) string {
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("# Allowed values:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "#   %s: %s\n", k, strings.Join(options[k], " | "))
	}
	return b.String()
}

func newQuestionnaireValidateCmd(g *globals) *cobra.Command {
	var (
		mappingPath string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "validate <answers>",
		Short: "Validate completed answers against a mapping result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := readMappingResult(mappingPath)
			if err != nil {
				return reportHalting(cmd, err)
			}
			doc, err := artifact.ReadDocument(args[0])
			if err != nil {
				return fmt.Errorf("reading answers: %w", err)
			}

			answers, err := g.pipeline().ValidateAnswers(g.workspace, doc, result)
			if err != nil {
				if jsonOutput {
					_ = renderJSON(cmd, map[string]any{"valid": false, "violations": domain.ViolationsOf(err)})
					return err
				}
				return reportHalting(cmd, err)
			}

			if jsonOutput {
				return renderJSON(cmd, answers)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "answers are complete: %s via %s, %d owned entities, %d overrides\n",
				answers.Direction, answers.TriggerMode, len(answers.Ownership), len(answers.Overrides))
			return nil
		},
	}

	cmd.Flags().StringVar(&mappingPath, "mapping", "", "Mapping result the answers refer to")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output canonical answers (or violations) as JSON")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}
