package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// ErrorAction is the decision taken for a failed provider call.
type ErrorAction int

const (
	// ActionRetry retries the same provider after backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next provider in the chain.
	ActionFallback
	// ActionFail aborts immediately (permanent error).
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError carries provider and status context for retry/fallback decisions.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError attaches provider and status code information to an error.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
}

// ClassifyError decides the action for a provider error:
// transient errors (429, 5xx, network) retry, quota exhaustion falls back to
// the next provider, permanent errors (400, 401, 403, 404) fail immediately.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}

	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	errStr := strings.ToLower(err.Error())

	// Quota exhaustion is not transient within this provider: fall back.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}
	if containsAny(errStr, "429", "rate limit", "too many requests", "resource_exhausted") {
		return ActionRetry
	}
	if containsAny(errStr, "500", "502", "503", "504", "unavailable",
		"internal server error", "bad gateway", "gateway timeout", "overloaded", "capacity") {
		return ActionRetry
	}
	if containsAny(errStr, "408", "timeout", "deadline", "connection") {
		return ActionRetry
	}
	if containsAny(errStr, "400", "invalid", "bad request", "malformed") {
		return ActionFail
	}
	if containsAny(errStr, "401", "unauthorized", "unauthenticated", "invalid api key") {
		return ActionFail
	}
	if containsAny(errStr, "403", "forbidden", "permission denied") {
		return ActionFail
	}
	if containsAny(errStr, "404", "not found") {
		return ActionFail
	}

	// Unknown errors retry once rather than failing outright.
	return ActionRetry
}

func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// ShouldFallback reports whether the error warrants trying another provider.
func ShouldFallback(err error) bool {
	return ClassifyError(err) == ActionFallback
}

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// IsPermanent reports whether retrying is pointless.
func IsPermanent(err error) bool {
	return ClassifyError(err) == ActionFail
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
