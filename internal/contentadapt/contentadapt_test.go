package contentadapt

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adapterFunc func(ctx context.Context, template string, vars map[string]string) (string, error)

func (f adapterFunc) Adapt(ctx context.Context, template string, vars map[string]string) (string, error) {
	return f(ctx, template, vars)
}

func TestWithFallback(t *testing.T) {
	tests := []struct {
		name string
		next Adapter
		want string
	}{
		{
			name: "adapted text passes through",
			next: adapterFunc(func(context.Context, string, map[string]string) (string, error) {
				return "  Acme plumbing, fast  ", nil
			}),
			want: "Acme plumbing, fast",
		},
		{
			name: "error falls back",
			next: adapterFunc(func(context.Context, string, map[string]string) (string, error) {
				return "", errors.New("quota exceeded")
			}),
			want: "original",
		},
		{
			name: "blank output falls back",
			next: adapterFunc(func(context.Context, string, map[string]string) (string, error) {
				return " \n", nil
			}),
			want: "original",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithFallback(tt.next, zap.NewNop()).Adapt(context.Background(), "original", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenAIAdapterBuildsPrompt(t *testing.T) {
	var prompt string
	a := &GenAIAdapter{generate: func(_ context.Context, p string) (string, error) {
		prompt = p
		return " adapted ", nil
	}}

	got, err := a.Adapt(context.Background(), "Learn More | Cold audiences", map[string]string{
		"vertical":   "SaaS",
		"brand_name": "Acme",
	})
	require.NoError(t, err)
	assert.Equal(t, "adapted", got)
	assert.Equal(t, "Context:\n- brand_name: Acme\n- vertical: SaaS\n\nText:\nLearn More | Cold audiences", prompt)
}

func TestGenAIAdapterWrapsError(t *testing.T) {
	cause := errors.New("unavailable")
	a := &GenAIAdapter{generate: func(context.Context, string) (string, error) { return "", cause }}

	_, err := a.Adapt(context.Background(), "x", nil)
	assert.ErrorIs(t, err, cause)
}

func TestNewGenAIAdapterRequiresKey(t *testing.T) {
	_, err := NewGenAIAdapter(context.Background(), "", "")
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	got, err := Noop{}.Adapt(context.Background(), "same", map[string]string{"a": "b"})
	require.NoError(t, err)
	assert.Equal(t, "same", got)
}
