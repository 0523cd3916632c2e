package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakePinger) CallUptimeWebhook(_ context.Context, url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
	return true
}

func (f *fakePinger) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

func newTestJobManager(t *testing.T) (*JobStatusManager, *prometheus.Registry) {
	t.Helper()
	metrics := NewBackgroundJobMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)
	return NewJobStatusManager(setupTestLogger(), metrics), registry
}

func findMetric(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			match := true
			for k, v := range labels {
				if getLabelValue(metric.GetLabel(), k) != v {
					match = false
				}
			}
			if match {
				return metric
			}
		}
	}
	return nil
}

func TestJobStatusManager_RegisterJob(t *testing.T) {
	// Arrange
	jsm, _ := newTestJobManager(t)

	// Act
	jsm.RegisterJob("stale_order_digest")
	first, _ := jsm.GetJobStatus("stale_order_digest")
	jsm.RegisterJob("stale_order_digest")
	second, exists := jsm.GetJobStatus("stale_order_digest")

	// Assert
	assert.True(t, exists)
	assert.Equal(t, JobStatusPending, second.Status)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.NotNil(t, second.Metadata)
}

func TestJobStatusManager_CompleteJobSuccess(t *testing.T) {
	// Arrange
	jsm, registry := newTestJobManager(t)
	jobName := "stale_order_digest"

	jsm.StartJob(jobName)
	active := findMetric(t, registry, "egpay_backend_background_jobs_active", nil)
	require.NotNil(t, active)
	assert.Equal(t, float64(1), active.GetGauge().GetValue())
	time.Sleep(5 * time.Millisecond)

	// Act
	jsm.CompleteJob(jobName, nil, map[string]interface{}{"pending_orders": 3})

	// Assert
	status, exists := jsm.GetJobStatus(jobName)
	require.True(t, exists)
	assert.Equal(t, JobStatusSuccess, status.Status)
	assert.Equal(t, int64(1), status.SuccessCount)
	assert.Equal(t, int64(0), status.ConsecutiveFailures)
	assert.Equal(t, status.LastDuration, status.MinExecutionTime)
	assert.Equal(t, status.LastDuration, status.MaxExecutionTime)
	assert.Equal(t, 3, status.Metadata["pending_orders"])

	runs := findMetric(t, registry, "egpay_backend_background_job_runs_total", map[string]string{"job_name": jobName, "status": "success"})
	require.NotNil(t, runs)
	assert.Equal(t, float64(1), runs.GetCounter().GetValue())

	active = findMetric(t, registry, "egpay_backend_background_jobs_active", nil)
	assert.Equal(t, float64(0), active.GetGauge().GetValue())
}

func TestJobStatusManager_CompleteJobFailure(t *testing.T) {
	// Arrange
	jsm, registry := newTestJobManager(t)
	jobName := "uptime_ping"

	// Act
	for i := 0; i < 2; i++ {
		jsm.StartJob(jobName)
		jsm.CompleteJob(jobName, errors.New("database connection refused"), nil)
	}

	// Assert
	status, _ := jsm.GetJobStatus(jobName)
	assert.Equal(t, JobStatusFailed, status.Status)
	assert.Equal(t, int64(2), status.FailureCount)
	assert.Equal(t, int64(2), status.ConsecutiveFailures)
	assert.Equal(t, "database", status.Metadata["error_type"])
	assert.Equal(t, "database connection refused", status.LastError)

	runs := findMetric(t, registry, "egpay_backend_background_job_runs_total", map[string]string{"job_name": jobName, "status": "error"})
	require.NotNil(t, runs)
	assert.Equal(t, float64(2), runs.GetCounter().GetValue())

	// Act - a success clears the failure streak
	jsm.StartJob(jobName)
	jsm.CompleteJob(jobName, nil, nil)

	// Assert
	status, _ = jsm.GetJobStatus(jobName)
	assert.Equal(t, int64(0), status.ConsecutiveFailures)
	assert.Empty(t, status.LastError)
}

func TestJobStatusManager_CompleteUnregisteredJob(t *testing.T) {
	jsm, _ := newTestJobManager(t)

	jsm.CompleteJob("ghost", nil, nil)

	_, exists := jsm.GetJobStatus("ghost")
	assert.False(t, exists)
}

func TestJobStatusManager_StalledJobDetection(t *testing.T) {
	// Arrange
	jsm, registry := newTestJobManager(t)
	jsm.stalledThreshold = 10 * time.Millisecond
	jsm.StartJob("stuck")
	time.Sleep(20 * time.Millisecond)

	// Act
	statuses := jsm.GetAllJobStatuses()
	jsm.detectStalledJobs()

	// Assert
	assert.Equal(t, JobStatusStalled, statuses["stuck"].Status)
	summary := jsm.GetJobsSummary()
	assert.Equal(t, 1, summary.StalledJobs)

	stalled := findMetric(t, registry, "egpay_backend_background_jobs_stalled", nil)
	require.NotNil(t, stalled)
	assert.Equal(t, float64(1), stalled.GetGauge().GetValue())
}

func TestJobStatusManager_RunStopsOnCancel(t *testing.T) {
	jsm, _ := newTestJobManager(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		jsm.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestJobStatusManager_GetJobsSummary(t *testing.T) {
	// Arrange
	jsm, _ := newTestJobManager(t)
	jsm.RegisterJob("idle")
	jsm.StartJob("ok")
	jsm.CompleteJob("ok", nil, nil)
	jsm.StartJob("bad")
	jsm.CompleteJob("bad", errors.New("boom"), nil)
	jsm.StartJob("busy")

	// Act
	summary := jsm.GetJobsSummary()

	// Assert
	assert.Equal(t, 4, summary.TotalJobs)
	assert.Equal(t, 2, summary.HealthyJobs)
	assert.Equal(t, 1, summary.UnhealthyJobs)
	assert.Equal(t, 1, summary.RunningJobs)
}

func TestJobStatusManager_ConcurrentAccess(t *testing.T) {
	jsm, _ := newTestJobManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("job_%d", n%3)
			for j := 0; j < 20; j++ {
				jsm.StartJob(name)
				jsm.CompleteJob(name, nil, nil)
				jsm.GetAllJobStatuses()
			}
		}(i)
	}
	wg.Wait()

	var total int64
	for _, status := range jsm.GetAllJobStatuses() {
		total += status.SuccessCount
	}
	assert.Equal(t, int64(200), total)
}

func TestInstrumentedJob_SuccessPingsWebhook(t *testing.T) {
	// Arrange
	jsm, _ := newTestJobManager(t)
	pinger := &fakePinger{}
	job := NewInstrumentedJobWithWebhook("uptime_ping", func(ctx context.Context) (map[string]interface{}, error) {
		return map[string]interface{}{"checked": true}, nil
	}, jsm, setupTestLogger(), time.Second, pinger, "https://uptime.example/ping")

	// Act
	job.Run()

	// Assert
	status, _ := jsm.GetJobStatus("uptime_ping")
	assert.Equal(t, JobStatusSuccess, status.Status)
	assert.Equal(t, true, status.Metadata["checked"])
	assert.Equal(t, []string{"https://uptime.example/ping"}, pinger.calls())
	assert.Equal(t, "uptime_ping", job.Name())
}

func TestInstrumentedJob_FailureSkipsWebhook(t *testing.T) {
	jsm, _ := newTestJobManager(t)
	pinger := &fakePinger{}
	job := NewInstrumentedJobWithWebhook("digest", func(ctx context.Context) (map[string]interface{}, error) {
		return nil, errors.New("telegram api unavailable")
	}, jsm, setupTestLogger(), time.Second, pinger, "https://uptime.example/ping")

	job.Execute(context.Background())

	status, _ := jsm.GetJobStatus("digest")
	assert.Equal(t, JobStatusFailed, status.Status)
	assert.Equal(t, "external_api", status.Metadata["error_type"])
	assert.Empty(t, pinger.calls())
}

func TestInstrumentedJob_Timeout(t *testing.T) {
	jsm, registry := newTestJobManager(t)
	job := NewInstrumentedJob("slow", func(ctx context.Context) (map[string]interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, jsm, setupTestLogger(), 10*time.Millisecond)

	job.Execute(context.Background())

	status, _ := jsm.GetJobStatus("slow")
	assert.Equal(t, JobStatusFailed, status.Status)
	assert.Equal(t, "timeout", status.Metadata["error_type"])

	timeouts := findMetric(t, registry, "egpay_backend_job_timeouts_total", map[string]string{"job_name": "slow"})
	require.NotNil(t, timeouts)
	assert.Equal(t, float64(1), timeouts.GetCounter().GetValue())
}

func TestInstrumentedJob_PanicRecovery(t *testing.T) {
	jsm, _ := newTestJobManager(t)
	job := NewInstrumentedJob("panicky", func(ctx context.Context) (map[string]interface{}, error) {
		panic("nil store")
	}, jsm, setupTestLogger(), time.Second)

	assert.NotPanics(t, func() { job.Execute(context.Background()) })

	status, _ := jsm.GetJobStatus("panicky")
	assert.Equal(t, JobStatusFailed, status.Status)
	assert.Equal(t, "panic", status.Metadata["error_type"])
	assert.Contains(t, status.LastError, "nil store")
}

func TestBackgroundJobMetrics_UnsettledOrders(t *testing.T) {
	metrics := NewBackgroundJobMetrics()
	registry := prometheus.NewRegistry()
	metrics.MustRegister(registry)

	metrics.SetUnsettledOrders("PENDING_CONFIRMATION", 4)
	metrics.SetUnsettledOrders("APPROVED", 1)

	var nilMetrics *BackgroundJobMetrics
	assert.NotPanics(t, func() { nilMetrics.SetUnsettledOrders("APPROVED", 1) })

	families, err := registry.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "egpay_backend_unsettled_orders" {
			continue
		}
		for _, m := range mf.GetMetric() {
			values[getLabelValue(m.GetLabel(), "status")] = m.GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{"PENDING_CONFIRMATION": 4, "APPROVED": 1}, values)
}

func TestClassifyJobError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("sql: no rows"), "database"},
		{errors.New("network unreachable"), "network"},
		{errors.New("telegram sendMessage 429"), "external_api"},
		{errors.New("job panicked: x"), "panic"},
		{errors.New("weird"), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, classifyJobError(tt.err))
	}
}
