package services

import (
	"sync"

	"github.com/sqlgate/sqlgate/pkg/models"
)

// DefaultHistorySize bounds the execution history ring.
const DefaultHistorySize = 1000

// ExecutionHistory is an append-only, bounded record of finished
// query executions, kept for audit introspection. Oldest entries are
// evicted once the capacity is reached.
type ExecutionHistory struct {
	mu      sync.Mutex
	entries []models.QueryExecution
	next    int
	full    bool
}

// NewExecutionHistory creates a history with the given capacity.
func NewExecutionHistory(capacity int) *ExecutionHistory {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &ExecutionHistory{entries: make([]models.QueryExecution, capacity)}
}

// Append records a finished execution. The record is copied; later
// mutation by the caller does not affect the history.
func (h *ExecutionHistory) Append(exec *models.QueryExecution) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[h.next] = *exec
	h.next++
	if h.next == len(h.entries) {
		h.next = 0
		h.full = true
	}
}

// List returns up to limit executions, newest first. limit <= 0
// returns everything retained.
func (h *ExecutionHistory) List(limit int) []models.QueryExecution {
	h.mu.Lock()
	defer h.mu.Unlock()

	size := h.next
	if h.full {
		size = len(h.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	out := make([]models.QueryExecution, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.entries)) % len(h.entries)
		out = append(out, h.entries[idx])
	}
	return out
}

// Len reports how many executions are retained.
func (h *ExecutionHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}
