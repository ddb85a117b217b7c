package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for backend calls and failures.
type Metrics struct {
	mu        sync.Mutex
	callCount map[string]int64
	failCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		callCount: make(map[string]int64),
		failCount: make(map[string]int64),
	}
}

// RecordCall increments counters for completed backend calls.
func (m *Metrics) RecordCall(op string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := op + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount[key]++
}

// RecordFailure increments failure counters.
func (m *Metrics) RecordFailure(op, code string) {
	if m == nil {
		return
	}
	key := op + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCount[key]++
}

// Snapshot returns copies of the current counters.
func (m *Metrics) Snapshot() (calls map[string]int64, failures map[string]int64) {
	calls = make(map[string]int64)
	failures = make(map[string]int64)
	if m == nil {
		return calls, failures
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.callCount {
		calls[k] = v
	}
	for k, v := range m.failCount {
		failures[k] = v
	}
	return calls, failures
}
