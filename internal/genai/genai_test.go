package genai

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
)

func TestCalculateBackoff(t *testing.T) {
	initial := 500 * time.Millisecond
	max := 3 * time.Second

	assert.Zero(t, CalculateBackoff(0, initial, max))
	assert.Zero(t, CalculateBackoff(-1, initial, max))

	// Full Jitter: delay is uniform in [0, min(max, initial*2^(n-1))).
	for attempt := 1; attempt <= 5; attempt++ {
		for i := 0; i < 20; i++ {
			d := CalculateBackoff(attempt, initial, max)
			assert.GreaterOrEqual(t, d, time.Duration(0))
			assert.Less(t, d, max+time.Millisecond)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorAction
	}{
		{"Nil", nil, ActionFail},
		{"Canceled", context.Canceled, ActionFail},
		{"Deadline", context.DeadlineExceeded, ActionRetry},
		{"Quota", errors.New("quota exceeded for project"), ActionFallback},
		{"Rate limit", errors.New("429: too many requests"), ActionRetry},
		{"Server error", errors.New("503 service unavailable"), ActionRetry},
		{"Bad request", errors.New("400 bad request"), ActionFail},
		{"Auth", errors.New("invalid api key"), ActionFail},
		{"Wrapped 500", WrapError(errors.New("boom"), ProviderGroq, 500), ActionRetry},
		{"Wrapped 401", WrapError(errors.New("boom"), ProviderGroq, 401), ActionFail},
		{"Unknown", errors.New("something odd"), ActionRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}

func TestWithRetrySucceedsAfterTransientError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	retries := 0
	err := WithRetry(context.Background(), cfg,
		func(int, error) { retries++ },
		func() error {
			calls++
			if calls < 3 {
				return errors.New("503 service unavailable")
			}
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, retries)
}

func TestWithRetryStopsOnPermanentError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	calls := 0
	err := WithRetry(context.Background(), cfg, nil, func() error {
		calls++
		return errors.New("401 unauthorized")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRespectsContext(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, cfg, nil, func() error { return errors.New("503") })
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeGenerator struct {
	provider Provider
	reply    string
	err      error
	calls    int
}

func (f *fakeGenerator) Generate(context.Context, string, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGenerator) IsEnabled() bool    { return true }
func (f *fakeGenerator) Provider() Provider { return f.provider }
func (f *fakeGenerator) Close() error       { return nil }

func testChain(gens ...Generator) *Chain {
	return &Chain{
		generators: gens,
		retry:      RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
		logger:     logger.NewWithWriter("error", io.Discard),
	}
}

func TestChainFallsBackToNextProvider(t *testing.T) {
	broken := &fakeGenerator{provider: ProviderGemini, err: errors.New("quota exceeded")}
	working := &fakeGenerator{provider: ProviderGroq, reply: "hola"}

	text, provider, err := testChain(broken, working).Generate(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "hola", text)
	assert.Equal(t, ProviderGroq, provider)
	// Quota errors skip the in-provider retry.
	assert.Equal(t, 1, broken.calls)
}

func TestChainRetriesTransientThenFallsBack(t *testing.T) {
	flaky := &fakeGenerator{provider: ProviderGemini, err: errors.New("503 unavailable")}
	working := &fakeGenerator{provider: ProviderGroq, reply: "hola"}

	text, provider, err := testChain(flaky, working).Generate(context.Background(), "sys", "usr")
	require.NoError(t, err)
	assert.Equal(t, "hola", text)
	assert.Equal(t, ProviderGroq, provider)
	assert.Equal(t, 2, flaky.calls, "transient error uses both attempts before falling back")
}

func TestChainAllProvidersFail(t *testing.T) {
	broken := &fakeGenerator{provider: ProviderGemini, err: errors.New("401 unauthorized")}

	_, _, err := testChain(broken).Generate(context.Background(), "sys", "usr")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all generation providers failed")
}

func TestChainEmpty(t *testing.T) {
	var nilChain *Chain
	assert.False(t, nilChain.IsEnabled())

	_, _, err := testChain().Generate(context.Background(), "sys", "usr")
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestProviderModels(t *testing.T) {
	tests := []struct {
		name     string
		primary  string
		fallback string
		want     []string
	}{
		{"Defaults", "", "", DefaultGeminiModels},
		{"Primary only", "m1", "", []string{"m1"}},
		{"Both", "m1", "m2", []string{"m1", "m2"}},
		{"Duplicate fallback", "m1", "m1", []string{"m1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, providerModels(tt.primary, tt.fallback, DefaultGeminiModels))
		})
	}
}
