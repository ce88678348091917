package testutil

import (
	"sync"

	"github.com/yungbote/ballot-consensus-backend/internal/data/aggregates"
)

// HooksRecorder captures aggregate write reports.
type HooksRecorder struct {
	mu     sync.Mutex
	writes []aggregates.WriteReport
}

var _ aggregates.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveWrite(r aggregates.WriteReport) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writes = append(h.writes, r)
}

// Writes returns a copy of the recorded reports in call order.
func (h *HooksRecorder) Writes() []aggregates.WriteReport {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]aggregates.WriteReport(nil), h.writes...)
}

// Statuses returns the recorded write statuses in call order.
func (h *HooksRecorder) Statuses() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.writes))
	for _, w := range h.writes {
		out = append(out, w.Status())
	}
	return out
}
