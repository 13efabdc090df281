package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/artifact"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/cache"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/config"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/gitinfo"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/history"
	"github.com/abdidvp/apiweave/internal/adapters/outbound/reasoner"
	"github.com/abdidvp/apiweave/internal/application"
	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/questionnaire"
)

// registerTools registers all apiweave MCP tools on the given server.
func registerTools(s *server.MCPServer, workspace string, log *zap.Logger) {
	// 1. apiweave_validate_contract
	s.AddTool(
		mcplib.NewTool("apiweave_validate_contract",
			mcplib.WithDescription("Check a JSON or YAML artifact against its contract. Returns the field-addressable violation list."),
			mcplib.WithString("kind",
				mcplib.Required(),
				mcplib.Description("Artifact kind: extracted_api, mapping_result, answers, plan or pair_candidate"),
			),
			mcplib.WithString("document",
				mcplib.Required(),
				mcplib.Description("The artifact as a JSON or YAML string"),
			),
			mcplib.WithString("mapping", mcplib.Description("Mapping result JSON; enables ownership and override checks for answers")),
		),
		handleValidateContract(workspace),
	)

	// 2. apiweave_normalize
	s.AddTool(
		mcplib.NewTool("apiweave_normalize",
			mcplib.WithDescription("Normalize an extracted API into its canonical ordered view"),
			mcplib.WithString("extraction",
				mcplib.Required(),
				mcplib.Description("Extracted API description as a JSON or YAML string"),
			),
			mcplib.WithString("side", mcplib.Description("Side of the extraction: A or B (default: A)")),
		),
		handleNormalize(log),
	)

	// 3. apiweave_map
	s.AddTool(
		mcplib.NewTool("apiweave_map",
			mcplib.WithDescription("Propose entity and field mappings between two extracted APIs. Failed pairs are reported as warnings."),
			mcplib.WithString("extraction_a", mcplib.Required(), mcplib.Description("API A extraction as JSON or YAML")),
			mcplib.WithString("extraction_b", mcplib.Required(), mcplib.Description("API B extraction as JSON or YAML")),
			mcplib.WithBoolean("offline", mcplib.Description("Use the deterministic local reasoner instead of the configured provider")),
		),
		handleMap(workspace, log),
	)

	// 4. apiweave_questionnaire_options
	s.AddTool(
		mcplib.NewTool("apiweave_questionnaire_options",
			mcplib.WithDescription("Return the integration decisions to make, their allowed values and a pre-filled answers template"),
			mcplib.WithString("mapping", mcplib.Description("Mapping result JSON; pre-fills ownership for accepted mappings")),
		),
		handleQuestionnaireOptions(workspace, log),
	)

	// 5. apiweave_validate_answers
	s.AddTool(
		mcplib.NewTool("apiweave_validate_answers",
			mcplib.WithDescription("Check integration answers for completeness against a mapping result"),
			mcplib.WithString("answers", mcplib.Required(), mcplib.Description("Integration answers as JSON or YAML")),
			mcplib.WithString("mapping", mcplib.Required(), mcplib.Description("Mapping result JSON the answers refer to")),
		),
		handleValidateAnswers(workspace, log),
	)

	// 6. apiweave_generate_plan
	s.AddTool(
		mcplib.NewTool("apiweave_generate_plan",
			mcplib.WithDescription("Generate the deterministic integration plan from a mapping result and complete answers"),
			mcplib.WithString("mapping", mcplib.Required(), mcplib.Description("Mapping result JSON")),
			mcplib.WithString("answers", mcplib.Required(), mcplib.Description("Integration answers as JSON or YAML")),
			mcplib.WithString("format", mcplib.Description("Output format: json or markdown (default: json)")),
			mcplib.WithNumber("threshold", mcplib.Description("Override confidence_threshold for this plan")),
		),
		handleGeneratePlan(workspace, log),
	)
}

// newPipeline creates the pipeline service with the standard outbound adapters.
func newPipeline(log *zap.Logger) *application.PipelineService {
	return application.NewPipelineService(config.New(), cache.New(), history.New(), gitinfo.New(), reasoner.New, log)
}

func handleValidateContract(workspace string) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		kind, err := request.RequireString("kind")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		doc, err := requireDocument(request, "document")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		var mapping *domain.MappingResult
		if raw := stringArg(request, "mapping", ""); raw != "" {
			result, err := parseMappingResult(raw)
			if err != nil {
				return haltingResult(err), nil
			}
			mapping = &result
		}

		report, err := application.NewValidateService(config.New()).Validate(workspace, kind, doc, mapping)
		if err != nil {
			return errorResult(fmt.Sprintf("validation failed: %v", err)), nil
		}
		return jsonResult(report)
	}
}

func handleNormalize(log *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		ext, err := requireExtraction(request, "extraction")
		if err != nil {
			return haltingResult(err), nil
		}
		side, err := domain.ParseSide(stringArg(request, "side", string(domain.SideA)))
		if err != nil {
			return errorResult(err.Error()), nil
		}

		view, err := newPipeline(log).Normalize(ext, side)
		if err != nil {
			return haltingResult(err), nil
		}
		return jsonResult(view)
	}
}

func handleMap(workspace string, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		extA, err := requireExtraction(request, "extraction_a")
		if err != nil {
			return haltingResult(err), nil
		}
		extB, err := requireExtraction(request, "extraction_b")
		if err != nil {
			return haltingResult(err), nil
		}

		offline, _ := request.GetArguments()["offline"].(bool)

		resp, err := newPipeline(log).Map(ctx, application.MapRequest{
			Workspace:   workspace,
			ExtractionA: extA,
			ExtractionB: extB,
			Offline:     offline,
		})
		if err != nil {
			return haltingResult(err), nil
		}
		return jsonResult(resp.Result)
	}
}

func handleQuestionnaireOptions(workspace string, log *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		answers := questionnaire.Defaults()
		if raw := stringArg(request, "mapping", ""); raw != "" {
			result, err := parseMappingResult(raw)
			if err != nil {
				return haltingResult(err), nil
			}
			if answers, err = newPipeline(log).Template(workspace, result); err != nil {
				return errorResult(err.Error()), nil
			}
		}
		return jsonResult(map[string]any{
			"answers": answers,
			"options": questionnaire.OptionSets(),
		})
	}
}

func handleValidateAnswers(workspace string, log *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		doc, err := requireDocument(request, "answers")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		raw, err := request.RequireString("mapping")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		result, err := parseMappingResult(raw)
		if err != nil {
			return haltingResult(err), nil
		}

		answers, err := newPipeline(log).ValidateAnswers(workspace, doc, result)
		if err != nil {
			if application.IsHalting(err) {
				return jsonResult(map[string]any{
					"valid":      false,
					"violations": domain.ViolationsOf(err),
				})
			}
			return errorResult(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"valid":   true,
			"answers": answers,
		})
	}
}

func handleGeneratePlan(workspace string, log *zap.Logger) server.ToolHandlerFunc {
	return func(_ context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		raw, err := request.RequireString("mapping")
		if err != nil {
			return errorResult(err.Error()), nil
		}
		result, err := parseMappingResult(raw)
		if err != nil {
			return haltingResult(err), nil
		}
		answers, err := requireDocument(request, "answers")
		if err != nil {
			return errorResult(err.Error()), nil
		}

		format := stringArg(request, "format", "json")
		if format != "json" && format != "markdown" {
			return errorResult(fmt.Sprintf("unknown format %q (valid: json, markdown)", format)), nil
		}

		req := application.PlanRequest{Workspace: workspace, Result: result, Answers: answers}
		if threshold, ok := request.GetArguments()["threshold"].(float64); ok {
			req.Threshold = &threshold
		}

		resp, err := newPipeline(log).GeneratePlan(req)
		if err != nil {
			return haltingResult(err), nil
		}
		if format == "markdown" {
			return textResult(resp.Markdown), nil
		}
		return jsonResult(resp.Plan)
	}
}

func stringArg(request mcplib.CallToolRequest, name, def string) string {
	if v, ok := request.GetArguments()[name].(string); ok && v != "" {
		return v
	}
	return def
}

// requireDocument reads a required string argument and decodes it as JSON,
// falling back to YAML.
func requireDocument(request mcplib.CallToolRequest, name string) (any, error) {
	raw, err := request.RequireString(name)
	if err != nil {
		return nil, err
	}
	return parseDocument(name, raw)
}

func parseDocument(name, raw string) (any, error) {
	asYAML := !strings.HasPrefix(strings.TrimSpace(raw), "{")
	doc, err := artifact.Parse([]byte(raw), asYAML)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	return doc, nil
}

func requireExtraction(request mcplib.CallToolRequest, name string) (domain.Extraction, error) {
	doc, err := requireDocument(request, name)
	if err != nil {
		return domain.Extraction{}, err
	}
	return application.DecodeExtraction(doc)
}

func parseMappingResult(raw string) (domain.MappingResult, error) {
	doc, err := parseDocument("mapping", raw)
	if err != nil {
		return domain.MappingResult{}, err
	}
	return application.DecodeMappingResult(doc)
}

// haltingResult reports a pipeline error. Halting errors carry their
// violation list so the caller can fix the named fields.
func haltingResult(err error) *mcplib.CallToolResult {
	vs := domain.ViolationsOf(err)
	if len(vs) == 0 {
		return errorResult(err.Error())
	}
	data, mErr := json.MarshalIndent(map[string]any{
		"error":      err.Error(),
		"violations": vs,
	}, "", "  ")
	if mErr != nil {
		return errorResult(err.Error())
	}
	return errorResult(string(data))
}

// jsonResult marshals v as indented JSON and returns it as a text content result.
func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
	}, nil
}

// textResult returns a plain text content result.
func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(text)},
	}
}

// errorResult returns a tool result that indicates an error occurred.
func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(msg)},
		IsError: true,
	}
}
