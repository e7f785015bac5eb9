package ai

import (
	"context"
	"strings"
)

type classifierChain struct {
	primary  Classifier
	fallback Classifier
}

// WithFallback returns a classifier that first tries the primary
// implementation and falls back to the provided classifier when the primary
// is unavailable or produces an unusable completion. Used to chain a
// secondary model behind the configured default.
func WithFallback(primary, fallback Classifier) Classifier {
	if primary == nil {
		return fallback
	}
	if fallback == nil {
		return primary
	}
	return &classifierChain{primary: primary, fallback: fallback}
}

func (c *classifierChain) Enabled() bool {
	if c == nil {
		return false
	}
	if c.primary != nil && c.primary.Enabled() {
		return true
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return true
	}
	return false
}

func (c *classifierChain) Classify(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c == nil {
		return "", ErrDisabled
	}
	var primaryErr error = ErrDisabled
	if c.primary != nil && c.primary.Enabled() {
		var raw string
		raw, primaryErr = c.primary.Classify(ctx, systemPrompt, userPrompt)
		if primaryErr == nil && strings.TrimSpace(raw) != "" {
			return raw, nil
		}
	}
	if c.fallback != nil && c.fallback.Enabled() {
		return c.fallback.Classify(ctx, systemPrompt, userPrompt)
	}
	return "", primaryErr
}
