package core

import (
	"context"
	"sync"
	"time"
)

// RunRecord is the persisted summary of a finished run. It holds metadata
// only; generated text and table contents are never stored.
type RunRecord struct {
	ID          string        `json:"id"`
	Kind        RunKind       `json:"kind"`
	Status      RunStatus     `json:"status"`
	FailureKind string        `json:"failureKind,omitempty"`
	Detail      string        `json:"detail,omitempty"`
	Tables      int           `json:"tables"`
	Rows        int           `json:"rows"`
	Columns     int           `json:"columns"`
	Artifacts   []string      `json:"artifacts,omitempty"`
	ClientIP    string        `json:"clientIp,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	Duration    time.Duration `json:"duration"`
}

// HistoryStore records finished runs.
type HistoryStore interface {
	Record(ctx context.Context, rec RunRecord) error
	Recent(ctx context.Context, limit int) ([]RunRecord, error)
}

// MemoryHistory keeps the most recent runs in memory. It is the default
// store when no database is configured.
type MemoryHistory struct {
	mu      sync.Mutex
	records []RunRecord
	max     int
}

// NewMemoryHistory keeps at most max records (0 means 1000).
func NewMemoryHistory(max int) *MemoryHistory {
	if max <= 0 {
		max = 1000
	}
	return &MemoryHistory{max: max}
}

// Record appends rec, evicting the oldest record when full.
func (h *MemoryHistory) Record(_ context.Context, rec RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if len(h.records) > h.max {
		h.records = append([]RunRecord(nil), h.records[len(h.records)-h.max:]...)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (h *MemoryHistory) Recent(_ context.Context, limit int) ([]RunRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > len(h.records) {
		limit = len(h.records)
	}
	out := make([]RunRecord, 0, limit)
	for i := len(h.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, h.records[i])
	}
	return out, nil
}
