package health

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/egpaydcx/egpay-backend/internal/jobs"
	"github.com/egpaydcx/egpay-backend/internal/monitoring"
)

// a digest that keeps failing means nobody hears about stuck orders
var criticalJobs = []string{jobs.StaleOrderDigestJob}

const criticalFailureThreshold = 3

// Jobs handles the background jobs health check endpoint
// @Summary Background jobs health check
// @Description Reports the stale order digest and uptime ping runs
// @Tags health
// @Produce json
// @Success 200 {object} JobsHealthResponse
// @Success 206 {object} JobsHealthResponse
// @Failure 503 {object} JobsHealthResponse
// @Router /api/v1/health/jobs [get]
func (h *HealthHandler) Jobs(c *gin.Context) {
	start := time.Now()

	if h.jobStatusManager == nil {
		c.JSON(http.StatusServiceUnavailable, JobsHealthResponse{
			Status:     "unhealthy",
			Timestamp:  start,
			Jobs:       map[string]monitoring.JobStatus{},
			DurationMs: time.Since(start).Milliseconds(),
		})
		return
	}

	statuses := h.jobStatusManager.GetAllJobStatuses()
	summary := h.jobStatusManager.GetJobsSummary()
	overall := jobsHealth(statuses, summary)

	response := JobsHealthResponse{
		Status:     overall,
		Timestamp:  start,
		Jobs:       statuses,
		Summary:    summary,
		DurationMs: time.Since(start).Milliseconds(),
	}

	h.logger.Debug("[health.Jobs] checked", map[string]string{
		"status":    overall,
		"total":     strconv.Itoa(summary.TotalJobs),
		"unhealthy": strconv.Itoa(summary.UnhealthyJobs),
		"stalled":   strconv.Itoa(summary.StalledJobs),
	})

	switch overall {
	case "unhealthy":
		c.JSON(http.StatusServiceUnavailable, response)
	case "degraded":
		c.JSON(http.StatusPartialContent, response)
	default:
		c.JSON(http.StatusOK, response)
	}
}

// jobsHealth is unhealthy when a job stalls or a critical job keeps failing.
// Any other failure only degrades.
func jobsHealth(statuses map[string]monitoring.JobStatus, summary monitoring.JobsSummary) string {
	if summary.StalledJobs > 0 {
		return "unhealthy"
	}
	if summary.UnhealthyJobs == 0 {
		return "healthy"
	}

	for _, name := range criticalJobs {
		st, ok := statuses[name]
		if ok && st.Status == monitoring.JobStatusFailed && st.ConsecutiveFailures >= criticalFailureThreshold {
			return "unhealthy"
		}
	}
	return "degraded"
}
