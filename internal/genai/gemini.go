package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
)

const (
	generationTemperature = 0.4
	generationMaxTokens   = 600
)

// geminiGenerator produces replies through the official Gemini SDK.
type geminiGenerator struct {
	client *genai.Client
	model  string
	logger *logger.Logger
}

// newGeminiGenerator creates a Gemini-backed generator. Returns nil when the
// API key is empty (provider disabled).
func newGeminiGenerator(ctx context.Context, apiKey, model string, log *logger.Logger) (*geminiGenerator, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without an API key
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &geminiGenerator{client: client, model: model, logger: log}, nil
}

func (g *geminiGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	if g == nil || g.client == nil {
		return "", fmt.Errorf("gemini generator not initialized")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](generationTemperature),
		MaxOutputTokens:   generationMaxTokens,
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(user), config)
	duration := time.Since(start)

	if err != nil {
		g.logger.WithModule("genai").WithError(err).WithFields(map[string]any{
			"provider":    ProviderGemini,
			"model":       g.model,
			"duration_ms": duration.Milliseconds(),
		}).Warn("Gemini generation failed")
		return "", WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, 0)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", WrapError(fmt.Errorf("empty response"), ProviderGemini, 0)
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", WrapError(fmt.Errorf("empty candidate text"), ProviderGemini, 0)
	}

	if resp.UsageMetadata != nil {
		g.logger.WithModule("genai").WithFields(map[string]any{
			"provider":      ProviderGemini,
			"model":         g.model,
			"input_tokens":  resp.UsageMetadata.PromptTokenCount,
			"output_tokens": resp.UsageMetadata.CandidatesTokenCount,
			"duration_ms":   duration.Milliseconds(),
		}).Debug("Generation completed")
	}
	return text, nil
}

func (g *geminiGenerator) IsEnabled() bool {
	return g != nil && g.client != nil
}

func (g *geminiGenerator) Provider() Provider {
	return ProviderGemini
}

// Close is safe on a nil receiver. The genai client needs no explicit
// cleanup in the current SDK version.
func (g *geminiGenerator) Close() error {
	return nil
}
