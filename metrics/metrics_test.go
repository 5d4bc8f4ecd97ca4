package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	c := New()
	c.ObserveCommand(true, 0, time.Millisecond, nil)
	c.ObserveCommand(true, 0, time.Millisecond, nil)
	c.ObserveCommand(false, 1, time.Millisecond, nil)
	c.ObserveCommand(false, -1, time.Millisecond, errors.New("timeout"))
	c.ObserveTask("default", time.Millisecond, 2*time.Millisecond, nil)
	c.ObserveTask("default", 0, 0, errors.New("failed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("remote", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("local", "1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("local", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksTotal.WithLabelValues("default", "failed")))

	recorder := httptest.NewRecorder()
	c.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, recorder.Code)
	body := recorder.Body.String()
	assert.True(t, strings.Contains(body, "termkit_commands_total"))
	assert.True(t, strings.Contains(body, "termkit_queue_wait_seconds"))
}
