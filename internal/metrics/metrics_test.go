package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) CountByStatus(context.Context) (map[string]int64, error) {
	return f.counts, f.err
}

// TestRecordOptimizerRun 测试优化运行指标
func TestRecordOptimizerRun(t *testing.T) {
	resolved := testutil.ToFloat64(optimizerRunsTotal.WithLabelValues("resolved"))
	partial := testutil.ToFloat64(optimizerRunsTotal.WithLabelValues("partial"))

	RecordOptimizerRun(0, 0.01)
	RecordOptimizerRun(3, 0.02)

	assert.Equal(t, resolved+1, testutil.ToFloat64(optimizerRunsTotal.WithLabelValues("resolved")))
	assert.Equal(t, partial+1, testutil.ToFloat64(optimizerRunsTotal.WithLabelValues("partial")))
	assert.Equal(t, float64(3), testutil.ToFloat64(unresolvedConflicts))
}

// TestRecordReassignment 测试改派指标
func TestRecordReassignment(t *testing.T) {
	before := testutil.ToFloat64(reassignmentsTotal.WithLabelValues("unavailable"))
	RecordReassignment("unavailable")
	assert.Equal(t, before+1, testutil.ToFloat64(reassignmentsTotal.WithLabelValues("unavailable")))
}

// TestCollector_CollectOnce 测试收集任务状态分布
func TestCollector_CollectOnce(t *testing.T) {
	c := NewCollector(nil, &fakeCounter{counts: map[string]int64{"scheduled": 4, "delayed": 1}}, time.Hour)
	c.CollectOnce()

	assert.Equal(t, float64(4), testutil.ToFloat64(tasksByStatus.WithLabelValues("scheduled")))
	assert.Equal(t, float64(1), testutil.ToFloat64(tasksByStatus.WithLabelValues("delayed")))

	// 计数失败时保留旧值
	failing := NewCollector(nil, &fakeCounter{err: errors.New("db down")}, time.Hour)
	failing.CollectOnce()
	assert.Equal(t, float64(4), testutil.ToFloat64(tasksByStatus.WithLabelValues("scheduled")))
}

// TestCollector_StartStop 测试收集器启停
func TestCollector_StartStop(t *testing.T) {
	c := NewCollector(nil, &fakeCounter{counts: map[string]int64{"in_progress": 2}}, 10*time.Millisecond)
	c.Start()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(tasksByStatus.WithLabelValues("in_progress")) == 2
	}, time.Second, 10*time.Millisecond)
	c.Stop()
}

// TestHandler 测试指标端点
func TestHandler(t *testing.T) {
	RecordTaskCreated()
	RecordAPIRequest(http.MethodGet, "/api/v1/tasks", http.StatusOK, 0.005)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "schedule_tasks_created_total")
	assert.Contains(t, body, `api_requests_total{method="GET",path="/api/v1/tasks",status="OK"}`)
}
