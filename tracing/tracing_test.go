package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "span_test.txt")
	require.NoError(t, Init("termkit", "0.0.1", fname))

	ctx, span := StartSpan(context.Background(), "terminal.run", KindClient)
	span.WithAttributes(map[string]string{"command": "echo hello"}).WithInt("exit", 0).WithBool("remote", false)
	span.Event("reconnect")
	_, child := StartSpan(ctx, "queue.task", KindInternal)
	EndSpan(child, errors.New("boom"))
	EndSpan(span, nil)

	data, err := os.ReadFile(fname)
	require.NoError(t, err)
	assert.Contains(t, string(data), "terminal.run")
	assert.Contains(t, string(data), "boom")
}

func TestNilSpan(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	assert.Nil(t, span.WithInt("k", 1).WithBool("b", true))
	assert.NotPanics(t, func() {
		span.Event("x")
		EndSpan(nil, nil)
	})
}
