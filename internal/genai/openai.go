package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
)

// openaiGenerator produces replies through any OpenAI-compatible provider
// (currently Groq) via a custom base URL.
type openaiGenerator struct {
	client   openai.Client
	model    string
	provider Provider
	logger   *logger.Logger
	enabled  bool
}

// newOpenAIGenerator creates a generator for an OpenAI-compatible provider.
// Returns nil when the API key is empty (provider disabled).
func newOpenAIGenerator(provider Provider, apiKey, model string, log *logger.Logger) (*openaiGenerator, error) {
	if apiKey == "" {
		return nil, nil //nolint:nilnil // provider disabled without an API key
	}

	baseURL, ok := ProviderEndpoint[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &openaiGenerator{
		client:   client,
		model:    model,
		provider: provider,
		logger:   log,
		enabled:  true,
	}, nil
}

func (g *openaiGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	if g == nil || !g.enabled {
		return "", fmt.Errorf("openai generator not initialized")
	}

	params := openai.ChatCompletionNewParams{
		Model: g.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(generationTemperature),
		MaxTokens:   openai.Int(generationMaxTokens),
	}

	start := time.Now()
	resp, err := g.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		g.logger.WithModule("genai").WithError(err).WithFields(map[string]any{
			"provider":    g.provider,
			"model":       g.model,
			"duration_ms": duration.Milliseconds(),
		}).Warn("Chat completion failed")
		return "", WrapError(fmt.Errorf("chat completion failed: %w", err), g.provider, 0)
	}

	if len(resp.Choices) == 0 {
		return "", WrapError(fmt.Errorf("empty response"), g.provider, 0)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", WrapError(fmt.Errorf("empty choice text"), g.provider, 0)
	}

	if resp.Usage.TotalTokens > 0 {
		g.logger.WithModule("genai").WithFields(map[string]any{
			"provider":      g.provider,
			"model":         g.model,
			"input_tokens":  resp.Usage.PromptTokens,
			"output_tokens": resp.Usage.CompletionTokens,
			"duration_ms":   duration.Milliseconds(),
		}).Debug("Generation completed")
	}
	return text, nil
}

func (g *openaiGenerator) IsEnabled() bool {
	return g != nil && g.enabled
}

func (g *openaiGenerator) Provider() Provider {
	if g == nil {
		return ""
	}
	return g.provider
}

// Close is safe on a nil receiver. The openai client needs no cleanup.
func (g *openaiGenerator) Close() error {
	return nil
}
