package llmprovider

import (
	neuroerrors "neuro/internal/errors"

	"neuro/internal/config"
)

// Pair bundles the fast and heavy clients the dual-model orchestrator needs.
type Pair struct {
	Fast  Client
	Heavy Client
}

// NewPairFromConfig builds the fast/heavy client pair, each wrapped in its
// own retry + circuit breaker decorator so a flaky heavy model doesn't trip
// the fast model's breaker and vice versa.
func NewPairFromConfig(cfg config.LLMConfig) Pair {
	retryConfig := neuroerrors.DefaultRetryConfig()
	breakerConfig := neuroerrors.DefaultCircuitBreakerConfig()

	fast := NewClient(cfg.FastModel, Config{
		BaseURL:        cfg.FastBaseURL,
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
	})
	heavy := NewClient(cfg.HeavyModel, Config{
		BaseURL:        cfg.HeavyBaseURL,
		APIKey:         cfg.APIKey,
		RequestTimeout: cfg.RequestTimeout,
	})

	return Pair{
		Fast:  NewRetryClient(fast, retryConfig, neuroerrors.NewCircuitBreaker("llm-fast", breakerConfig)),
		Heavy: NewRetryClient(heavy, retryConfig, neuroerrors.NewCircuitBreaker("llm-heavy", breakerConfig)),
	}
}
