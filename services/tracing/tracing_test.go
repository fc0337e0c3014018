package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewProviderDisabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.Nil(t, provider)

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestNewProviderEnabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:       true,
		Environment:   "test",
		Endpoint:      "http://127.0.0.1:4318",
		SamplingRatio: 1,
	}, nil)
	require.NoError(t, err)
	require.NotNil(t, provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "sampled")
	assert.True(t, span.SpanContext().IsSampled())
	span.End()
}

func TestClampRatio(t *testing.T) {
	assert.Equal(t, 0.1, clampRatio(0))
	assert.Equal(t, 0.1, clampRatio(-3))
	assert.Equal(t, 0.5, clampRatio(0.5))
	assert.Equal(t, 1.0, clampRatio(7))
}
