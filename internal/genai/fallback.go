package genai

import (
	"context"
	"errors"
	"fmt"
	"time"

	appcfg "github.com/gmaidana/cursos-chatbot-go/internal/config"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/metrics"
)

// Default models per provider, primary first.
var (
	DefaultGeminiModels = []string{"gemini-2.5-flash", "gemini-2.0-flash"}
	DefaultGroqModels   = []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"}
)

// ErrNoProviders means no provider in the chain could produce a reply.
var ErrNoProviders = errors.New("no generation provider available")

// Chain tries each configured generator in order. Within one generator,
// transient errors retry with Full Jitter backoff; fallback-worthy and
// exhausted generators hand over to the next one in the chain.
type Chain struct {
	generators []Generator
	retry      RetryConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewChain builds the provider chain from configuration: the primary
// provider's models first, then the fallback provider's. Providers without
// an API key are skipped; an empty chain is valid and always fails with
// ErrNoProviders.
func NewChain(ctx context.Context, cfg *appcfg.Config, log *logger.Logger, m *metrics.Metrics) (*Chain, error) {
	retry := DefaultRetryConfig
	retry.MaxAttempts = cfg.GenerationRetries + 1

	chain := &Chain{retry: retry, logger: log, metrics: m}

	seen := make(map[string]bool)
	for _, name := range []string{cfg.LLMPrimaryProvider, cfg.LLMFallbackProvider} {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		gens, err := buildProvider(ctx, Provider(name), cfg, log)
		if err != nil {
			return nil, err
		}
		chain.generators = append(chain.generators, gens...)
	}

	log.WithModule("genai").WithField("generators", len(chain.generators)).Info("Generation chain initialized")
	return chain, nil
}

func buildProvider(ctx context.Context, provider Provider, cfg *appcfg.Config, log *logger.Logger) ([]Generator, error) {
	var models []string
	var build func(model string) (Generator, error)

	switch provider {
	case ProviderGemini:
		models = providerModels(cfg.GeminiModel, cfg.GeminiFallbackModel, DefaultGeminiModels)
		build = func(model string) (Generator, error) {
			g, err := newGeminiGenerator(ctx, cfg.GeminiAPIKey, model, log)
			if g == nil {
				return nil, err
			}
			return g, err
		}
	case ProviderGroq:
		models = providerModels(cfg.GroqModel, cfg.GroqFallbackModel, DefaultGroqModels)
		build = func(model string) (Generator, error) {
			g, err := newOpenAIGenerator(provider, cfg.GroqAPIKey, model, log)
			if g == nil {
				return nil, err
			}
			return g, err
		}
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", provider)
	}

	var gens []Generator
	for _, model := range models {
		g, err := build(model)
		if err != nil {
			return nil, err
		}
		if g != nil {
			gens = append(gens, g)
		}
	}
	return gens, nil
}

// providerModels resolves the model list: configured primary and fallback
// models when set, the provider defaults otherwise.
func providerModels(primary, fallback string, defaults []string) []string {
	if primary == "" {
		return defaults
	}
	if fallback == "" || fallback == primary {
		return []string{primary}
	}
	return []string{primary, fallback}
}

// IsEnabled reports whether at least one generator is configured.
func (c *Chain) IsEnabled() bool {
	return c != nil && len(c.generators) > 0
}

// Generate walks the chain until one generator produces a reply. Returns the
// reply and the provider that produced it.
func (c *Chain) Generate(ctx context.Context, system, user string) (string, Provider, error) {
	if !c.IsEnabled() {
		return "", "", ErrNoProviders
	}

	var lastErr error
	for _, gen := range c.generators {
		if ctx.Err() != nil {
			return "", "", ctx.Err()
		}

		var text string
		start := time.Now()
		err := WithRetry(ctx, c.retry,
			func(attempt int, err error) {
				c.metrics.RecordLLMRetry(gen.Provider().String())
				c.logger.WithModule("genai").WithError(err).WithFields(map[string]any{
					"provider": gen.Provider(),
					"attempt":  attempt,
				}).Warn("Retrying generation")
			},
			func() error {
				var genErr error
				text, genErr = gen.Generate(ctx, system, user)
				return genErr
			})
		duration := time.Since(start)

		if err == nil {
			c.metrics.RecordLLM(gen.Provider().String(), "success", duration)
			return text, gen.Provider(), nil
		}

		c.metrics.RecordLLM(gen.Provider().String(), "error", duration)
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", "", err
		}
		c.logger.WithModule("genai").WithError(err).WithField("provider", gen.Provider()).Warn("Generator exhausted, trying next")
	}

	return "", "", fmt.Errorf("all generation providers failed: %w", lastErr)
}

// Close closes every generator in the chain.
func (c *Chain) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	for _, gen := range c.generators {
		if err := gen.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
