package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/spec-kit/sync-service/internal/domain"
)

// Metrics provides basic in-memory counters for the sync engine.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	changeCount    map[domain.ChangeType]int64
	deltaPages     int64
	deltaRawRows   int64
	deltaItemsSent int64
	resyncRequired int64
	prunedRows     int64
	invariantHits  int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		changeCount:  make(map[domain.ChangeType]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
	if code == "RESYNC_REQUIRED" {
		m.resyncRequired++
	}
}

// RecordChange counts one appended change row by type.
func (m *Metrics) RecordChange(changeType domain.ChangeType) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changeCount[changeType]++
}

// RecordDeltaPage counts one served delta page.
func (m *Metrics) RecordDeltaPage(rawRows, itemsSent int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deltaPages++
	m.deltaRawRows += int64(rawRows)
	m.deltaItemsSent += int64(itemsSent)
}

// RecordPrunedRows counts update rows removed by TTL compaction.
func (m *Metrics) RecordPrunedRows(n int64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunedRows += n
}

// RecordInvariantViolation counts aborted compaction runs.
func (m *Metrics) RecordInvariantViolation() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invariantHits++
}

// Snapshot returns a point-in-time copy of all counters for the /metrics endpoint.
func (m *Metrics) Snapshot() map[string]any {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	requests := make(map[string]int64, len(m.requestCount))
	for k, v := range m.requestCount {
		requests[k] = v
	}
	errs := make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errs[k] = v
	}
	changes := make(map[string]int64, len(m.changeCount))
	for k, v := range m.changeCount {
		changes[string(k)] = v
	}

	return map[string]any{
		"requests":             requests,
		"errors":               errs,
		"changes_recorded":     changes,
		"delta_pages":          m.deltaPages,
		"delta_raw_rows":       m.deltaRawRows,
		"delta_items_sent":     m.deltaItemsSent,
		"resync_required":      m.resyncRequired,
		"pruned_update_rows":   m.prunedRows,
		"invariant_violations": m.invariantHits,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
