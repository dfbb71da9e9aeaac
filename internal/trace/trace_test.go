package trace

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpansExportToWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWithConfig(Config{Enabled: true, Version: "test", Writer: &buf}))
	t.Cleanup(func() { enabled = false })

	ctx, span := StartSpan(context.Background(), "engine.SubmitPriceBar")
	traceID, spanID, ok := GetTraceFields(ctx)
	assert.True(t, ok)
	assert.NotEmpty(t, traceID)
	assert.NotEmpty(t, spanID)
	span.End()

	require.NoError(t, Shutdown(context.Background()))
	assert.Contains(t, buf.String(), "engine.SubmitPriceBar")
}

func TestDisabledTracerIsPassThrough(t *testing.T) {
	require.NoError(t, InitWithConfig(Config{Enabled: false}))
	ctx := context.Background()
	got, span := StartSpan(ctx, "noop")
	span.End()
	assert.Equal(t, ctx, got)
	_, _, ok := GetTraceFields(got)
	assert.False(t, ok)
}
