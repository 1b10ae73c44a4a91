package llmprovider

import (
	"context"
	"fmt"
	"time"

	neuroerrors "neuro/internal/errors"
	"neuro/internal/logging"
)

// retryClient wraps a Client with retry and circuit breaker protection so
// every caller gets the same backoff and degraded-mode behavior without
// reimplementing it.
type retryClient struct {
	underlying     Client
	retryConfig    neuroerrors.RetryConfig
	circuitBreaker *neuroerrors.CircuitBreaker
	logger         logging.Logger
}

// NewRetryClient decorates client with retry-with-backoff and circuit
// breaker protection.
func NewRetryClient(client Client, retryConfig neuroerrors.RetryConfig, breaker *neuroerrors.CircuitBreaker) Client {
	return &retryClient{
		underlying:     client,
		retryConfig:    retryConfig,
		circuitBreaker: breaker,
		logger:         logging.NewComponentLogger("llmprovider.retry"),
	}
}

func (c *retryClient) Model() string { return c.underlying.Model() }

func (c *retryClient) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	resp, err := neuroerrors.RetryWithResultAndLog(ctx, c.retryConfig, func(ctx context.Context) (*Response, error) {
		return neuroerrors.ExecuteFunc(c.circuitBreaker, ctx, func(ctx context.Context) (*Response, error) {
			return c.underlying.Complete(ctx, req)
		})
	}, c.logger)

	duration := time.Since(start)
	if err != nil {
		c.logger.Warn("completion failed after retries (took %v): %v", duration, err)
		if neuroerrors.IsDegraded(err) {
			return nil, fmt.Errorf("%s", neuroerrors.FormatForLLM(err))
		}
		return nil, err
	}
	if duration > 5*time.Second {
		c.logger.Debug("completion succeeded after %v", duration)
	}
	return resp, nil
}
