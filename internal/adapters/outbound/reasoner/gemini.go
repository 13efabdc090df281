package reasoner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdidvp/apiweave/internal/domain"
	"google.golang.org/genai"
)

// Gemini proposes entity correspondences through the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGemini creates a Gemini reasoner. The client is built once and shared
// by every pair request.
func NewGemini(ctx context.Context, apiKey, model string, temperature float32) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		return nil, errors.New("gemini model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{client: client, model: model, temperature: temperature}, nil
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.model }

// Propose sends the prompt and returns the raw reply text.
func (g *Gemini) Propose(ctx context.Context, req domain.PairRequest) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(req.Prompt),
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(g.temperature),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate for %s: %w", pairName(req), err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini returned no text for %s", pairName(req))
	}
	return text, nil
}

func pairName(req domain.PairRequest) string {
	return domain.EntityPair{Source: req.Source.Name, Target: req.Target.Name}.String()
}
