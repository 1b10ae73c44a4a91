package toolregistry

import (
	"context"
	"errors"

	neuroerrors "neuro/internal/errors"
	"neuro/internal/logging"
)

// retryRegistry wraps a PolicyInvoker and retries transient tool failures
// with the same backoff-and-jitter policy the LLM transport uses (spec
// §4.8's execute_tool contract treats tool calls as retryable the same way
// model calls are).
type retryRegistry struct {
	parent PolicyInvoker
	config neuroerrors.RetryConfig
	logger logging.Logger
}

// WithRetry returns a view of parent that retries failed invocations
// according to config.
func WithRetry(parent PolicyInvoker, config neuroerrors.RetryConfig) PolicyInvoker {
	return &retryRegistry{
		parent: parent,
		config: config,
		logger: logging.NewComponentLogger("toolregistry"),
	}
}

func (r *retryRegistry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	return neuroerrors.RetryWithResultAndLog(ctx, r.config, func(ctx context.Context) (string, error) {
		result, err := r.parent.Invoke(ctx, name, args)
		if err != nil {
			return "", err
		}
		if IsFailureText(result) {
			return "", neuroerrors.NewTransientError(errors.New(result), "tool reported a failure")
		}
		return result, nil
	}, r.logger)
}

func (r *retryRegistry) Names() []string {
	return r.parent.Names()
}
