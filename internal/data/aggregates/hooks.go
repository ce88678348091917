package aggregates

import (
	"time"

	domainagg "github.com/yungbote/ballot-consensus-backend/internal/domain/aggregates"
	"github.com/yungbote/ballot-consensus-backend/internal/observability"
)

// WriteReport describes one aggregate write after its final attempt. Code is empty on
// success.
type WriteReport struct {
	Op       string
	Code     domainagg.ErrorCode
	Attempts int
	Duration time.Duration
}

func (r WriteReport) Status() string {
	if r.Code == "" {
		return "success"
	}
	return string(r.Code)
}

// Hooks receives one report per aggregate write.
type Hooks interface {
	ObserveWrite(r WriteReport)
}

type noopHooks struct{}

func (noopHooks) ObserveWrite(WriteReport) {}

type metricsHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks forwards aggregate outcomes to the prometheus metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &metricsHooks{metrics: metrics}
}

func (h *metricsHooks) ObserveWrite(r WriteReport) {
	h.metrics.ObserveAggregateOperation(r.Op, r.Status(), r.Duration)
	if r.Code == domainagg.CodeConflict {
		h.metrics.IncAggregateConflict(r.Op)
	}
	// every attempt before the last failed retryably
	for i := 1; i < r.Attempts; i++ {
		h.metrics.IncAggregateRetry(r.Op)
	}
	if r.Code == domainagg.CodeRetryable {
		h.metrics.IncAggregateRetry(r.Op)
	}
}
