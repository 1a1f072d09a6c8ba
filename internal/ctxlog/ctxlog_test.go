package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	FromContext(ctx).Info("hello", "task", 3)
	assert.Contains(t, buf.String(), "task=3")
}

func TestFromContext_NilLogger(t *testing.T) {
	ctx := WithLogger(context.Background(), nil)
	assert.Same(t, slog.Default(), FromContext(ctx))
}
