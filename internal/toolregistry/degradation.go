package toolregistry

import (
	"context"
	"fmt"
)

// DegradationConfig maps a tool name to an ordered list of fallback tool
// names tried in order when the primary fails.
type DegradationConfig struct {
	FallbackMap map[string][]string
}

// DefaultDegradationConfig returns an empty fallback map.
func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{FallbackMap: make(map[string][]string)}
}

type degradationRegistry struct {
	parent PolicyInvoker
	config DegradationConfig
}

// WithDegradation returns a view of parent that walks config's fallback
// chain when the primary tool invocation fails, returning the first
// fallback result that succeeds.
func WithDegradation(parent PolicyInvoker, config DegradationConfig) PolicyInvoker {
	return &degradationRegistry{parent: parent, config: config}
}

func (d *degradationRegistry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := d.parent.Invoke(ctx, name, args)
	if err == nil && !IsFailureText(result) {
		return result, nil
	}

	var lastErr error
	if err != nil {
		lastErr = err
	} else {
		lastErr = fmt.Errorf("%s: %s", name, result)
	}

	for _, fallback := range d.config.FallbackMap[name] {
		fbResult, fbErr := d.parent.Invoke(ctx, fallback, args)
		if fbErr == nil && !IsFailureText(fbResult) {
			return fbResult, nil
		}
		if fbErr != nil {
			lastErr = fbErr
		} else {
			lastErr = fmt.Errorf("%s: %s", fallback, fbResult)
		}
	}

	return "", fmt.Errorf("tool %s failed with no viable fallback: %w", name, lastErr)
}

func (d *degradationRegistry) Names() []string {
	return d.parent.Names()
}
