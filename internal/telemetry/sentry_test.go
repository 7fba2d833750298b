package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_EmptyDSNIsNoop(t *testing.T) {
	shutdown, err := Init(Config{}, nil)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NotPanics(t, shutdown)
}

func TestStartSpan_WithoutClient(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "ChatService.SendMessage", SpanAttributes{
		UserID:    "u1",
		ChatID:    "c1",
		Operation: "message",
	})
	require.NotNil(t, span)
	assert.NotNil(t, ctx)

	assert.NotPanics(t, func() {
		span.SetError(errors.New("boom"))
		span.End()
	})
}

func TestSpan_NilInnerIsSafe(t *testing.T) {
	span := &Span{}

	assert.NotPanics(t, func() {
		span.End()
		span.SetError(errors.New("boom"))
	})
	assert.NotNil(t, span.Context())
}
