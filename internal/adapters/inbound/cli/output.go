package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/artifact"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/tui"
	"github.com/abdidvp/apiweave/internal/application"
	"github.com/abdidvp/apiweave/internal/domain"
)

func renderJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readExtraction(path string) (domain.Extraction, error) {
	doc, err := artifact.ReadDocument(path)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("reading extraction: %w", err)
	}
	ext, err := application.DecodeExtraction(doc)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("%s: %w", path, err)
	}
	return ext, nil
}

func readMappingResult(path string) (domain.MappingResult, error) {
	doc, err := artifact.ReadDocument(path)
	if err != nil {
		return domain.MappingResult{}, fmt.Errorf("reading mapping result: %w", err)
	}
	result, err := application.DecodeMappingResult(doc)
	if err != nil {
		return domain.MappingResult{}, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}

// reportHalting prints the violation list of a halting error to stderr and
// returns err unchanged.
func reportHalting(cmd *cobra.Command, err error) error {
	vs := domain.ViolationsOf(err)
	if len(vs) == 0 {
		return err
	}
	fmt.Fprint(cmd.ErrOrStderr(), tui.RenderViolations(haltingKind(err), vs))
	return err
}

func haltingKind(err error) string {
	var cv *domain.ContractViolationError
	switch {
	case errors.As(err, &cv):
		return cv.Kind
	case errors.Is(err, domain.ErrIncompleteAnswers):
		return "answers"
	default:
		return "plan"
	}
}
