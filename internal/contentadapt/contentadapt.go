// Package contentadapt rewrites campaign copy for a specific brand.
package contentadapt

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Adapter rewrites template text using the given context variables
type Adapter interface {
	Adapt(ctx context.Context, template string, vars map[string]string) (string, error)
}

// Noop returns every template unchanged
type Noop struct{}

func (Noop) Adapt(_ context.Context, template string, _ map[string]string) (string, error) {
	return template, nil
}

type fallback struct {
	next   Adapter
	logger *zap.Logger
}

// WithFallback wraps an adapter so that errors and blank output yield the
// original template. The returned adapter never fails.
func WithFallback(next Adapter, logger *zap.Logger) Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &fallback{next: next, logger: logger}
}

func (f *fallback) Adapt(ctx context.Context, template string, vars map[string]string) (string, error) {
	out, err := f.next.Adapt(ctx, template, vars)
	if err != nil {
		f.logger.Warn("content adaptation failed, using original text", zap.Error(err))
		return template, nil
	}

	out = strings.TrimSpace(out)
	if out == "" {
		f.logger.Warn("content adaptation returned empty text, using original text")
		return template, nil
	}

	return out, nil
}
