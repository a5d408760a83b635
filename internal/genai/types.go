// Package genai integrates the external text-generation providers used as
// the fallback for questions no deterministic template answers.
//
// Architecture:
//   - Gemini: google.golang.org/genai (official SDK)
//   - Groq: github.com/openai/openai-go/v3 (OpenAI-compatible API)
//
// Fallback strategy: the primary provider is retried with Full Jitter
// backoff; if it keeps failing or its quota is exhausted, the next provider
// in the chain is tried. All output goes through the policy post-filter
// before release, regardless of provider.
package genai

import (
	"context"
	"time"
)

// Provider identifies an LLM provider.
type Provider string

const (
	// ProviderGemini is Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq is Groq's API (OpenAI-compatible, fast inference).
	ProviderGroq Provider = "groq"
)

// ProviderEndpoint maps OpenAI-compatible providers to their base URL.
// Gemini is absent because it uses its own SDK.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

// IsOpenAICompatible reports whether the provider speaks the OpenAI API.
func (p Provider) IsOpenAICompatible() bool {
	_, ok := ProviderEndpoint[p]
	return ok
}

func (p Provider) String() string {
	return string(p)
}

// Generator produces one free-text reply from system instructions and user
// content. Implementations must be safe for concurrent use.
type Generator interface {
	// Generate returns the reply text. The returned text is untrusted and
	// must pass the policy post-filter before release.
	Generate(ctx context.Context, system, user string) (string, error)
	// IsEnabled reports whether the generator is properly initialized.
	IsEnabled() bool
	// Provider returns the provider type for metrics.
	Provider() Provider
	// Close releases any held resources.
	Close() error
}

// RetryConfig defines retry behavior for provider calls.
// Uses AWS-recommended Full Jitter exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
}

// DefaultRetryConfig is one initial attempt plus one retry.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  2,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     3 * time.Second,
}
