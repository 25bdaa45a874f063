package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/motion"
)

func TestObserver(t *testing.T) {
	m := New(false)

	m.Submitted(body.Turn)
	m.Submitted(body.Turn)
	m.Submitted(body.Shake)
	m.Finished(body.Turn, motion.Completed, 2*time.Second)
	m.Finished(body.Turn, motion.NoProgress, time.Second)
	m.Discarded(body.Shake)
	m.Stopped()
	m.QueueDepth(2)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.submitted.WithLabelValues("turn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.submitted.WithLabelValues("shake")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("turn", motion.NoProgress.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discarded.WithLabelValues("shake")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stops))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestTurnTrace_OnlyTerminal(t *testing.T) {
	m := New(false)

	m.TurnTrace(motion.TurnState{Phase: motion.Evaluating, IterationCount: 3})
	m.TurnTrace(motion.TurnState{Phase: motion.Ended, IterationCount: 7})
	m.TurnTrace(motion.TurnState{Phase: motion.Blocked, IterationCount: 5})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnResults.WithLabelValues("ended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turnResults.WithLabelValues("blocked")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.turnResults))

	text := scrape(t, m)
	assert.Contains(t, text, "sapien_turn_iterations_count 2")
	assert.Contains(t, text, "sapien_turn_iterations_sum 12")
}

func TestHooks(t *testing.T) {
	m := New(false)

	m.GaitCycle("walk_forward", 1)
	m.GaitCycle("walk_forward", 2)
	m.WriteError(0, errors.New("nack"))
	m.WriteError(1, errors.New("nack"))
	m.WriteError(1, errors.New("nack"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.gaitCycles.WithLabelValues("walk_forward")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writeErrors.WithLabelValues("primary")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.writeErrors.WithLabelValues("secondary")))
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestHandler(t *testing.T) {
	m := New(true)
	m.Stopped()

	text := scrape(t, m)
	assert.Contains(t, text, "sapien_stops_total 1")
	assert.True(t, strings.Contains(text, "go_goroutines"), "runtime collectors registered")
}

func TestSeparateRegistries(t *testing.T) {
	a, b := New(false), New(false)
	a.Stopped()
	assert.Equal(t, 0.0, testutil.ToFloat64(b.stops))
}
