package txclient

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks terminology request metrics using lock-free atomic operations.
// All methods are safe for concurrent use.
type Metrics struct {
	// Request counts
	requestsTotal  atomic.Uint64
	requestsFailed atomic.Uint64

	// Timing (stored as nanoseconds)
	requestTimeTotal atomic.Uint64
	requestTimeMin   atomic.Uint64
	requestTimeMax   atomic.Uint64

	// Payload sizes
	bytesSent     atomic.Uint64
	bytesReceived atomic.Uint64

	// Per-operation stats, keyed by operation name ("$expand", "$validate-code")
	operations sync.Map // map[string]*operationMetrics
}

// operationMetrics tracks metrics for a single operation.
type operationMetrics struct {
	invocations atomic.Uint64
	failures    atomic.Uint64
	totalTime   atomic.Uint64 // nanoseconds
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	// Initialize min to max uint64 so first value becomes the minimum
	m.requestTimeMin.Store(^uint64(0))
	return m
}

// --- Recording Methods ---

// RecordRequest records a completed round trip for operation.
func (m *Metrics) RecordRequest(operation string, duration time.Duration, ok bool) {
	m.requestsTotal.Add(1)
	if !ok {
		m.requestsFailed.Add(1)
	}

	ns := uint64(duration.Nanoseconds()) //nolint:gosec // Safe: nanoseconds are always positive for valid durations
	m.requestTimeTotal.Add(ns)

	// Update min (CAS loop)
	for {
		old := m.requestTimeMin.Load()
		if ns >= old {
			break
		}
		if m.requestTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}

	// Update max (CAS loop)
	for {
		old := m.requestTimeMax.Load()
		if ns <= old {
			break
		}
		if m.requestTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}

	om := m.getOrCreateOperationMetrics(operation)
	om.invocations.Add(1)
	om.totalTime.Add(ns)
	if !ok {
		om.failures.Add(1)
	}
}

// RecordBytes records request and response payload sizes.
func (m *Metrics) RecordBytes(sent, received int) {
	if sent > 0 {
		m.bytesSent.Add(uint64(sent))
	}
	if received > 0 {
		m.bytesReceived.Add(uint64(received))
	}
}

func (m *Metrics) getOrCreateOperationMetrics(name string) *operationMetrics {
	if v, ok := m.operations.Load(name); ok {
		return v.(*operationMetrics)
	}
	om := &operationMetrics{}
	actual, _ := m.operations.LoadOrStore(name, om)
	return actual.(*operationMetrics)
}

// --- Query Methods ---

// RequestsTotal returns the total number of requests sent.
func (m *Metrics) RequestsTotal() uint64 {
	return m.requestsTotal.Load()
}

// RequestsFailed returns the number of failed requests.
func (m *Metrics) RequestsFailed() uint64 {
	return m.requestsFailed.Load()
}

// SuccessRate returns the share of successful requests (0.0 to 1.0).
func (m *Metrics) SuccessRate() float64 {
	total := m.requestsTotal.Load()
	if total == 0 {
		return 0
	}
	return float64(total-m.requestsFailed.Load()) / float64(total)
}

// AverageRequestTime returns the average round trip duration.
func (m *Metrics) AverageRequestTime() time.Duration {
	total := m.requestsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.requestTimeTotal.Load() / total) //nolint:gosec // Safe: nanoseconds within int64 range
}

// MinRequestTime returns the minimum round trip duration.
func (m *Metrics) MinRequestTime() time.Duration {
	minVal := m.requestTimeMin.Load()
	if minVal == ^uint64(0) {
		return 0
	}
	return time.Duration(minVal) //nolint:gosec // Safe: nanoseconds within int64 range
}

// MaxRequestTime returns the maximum round trip duration.
func (m *Metrics) MaxRequestTime() time.Duration {
	return time.Duration(m.requestTimeMax.Load()) //nolint:gosec // Safe: nanoseconds within int64 range
}

// BytesSent returns the total request body bytes sent.
func (m *Metrics) BytesSent() uint64 {
	return m.bytesSent.Load()
}

// BytesReceived returns the total response body bytes received.
func (m *Metrics) BytesReceived() uint64 {
	return m.bytesReceived.Load()
}

// OperationStats holds statistics for one operation.
type OperationStats struct {
	Name        string        `json:"name"`
	Invocations uint64        `json:"invocations"`
	Failures    uint64        `json:"failures"`
	TotalTime   time.Duration `json:"total_time"`
	AvgTime     time.Duration `json:"avg_time"`
}

// OperationStats returns statistics for a specific operation.
func (m *Metrics) OperationStats(name string) (OperationStats, bool) {
	v, ok := m.operations.Load(name)
	if !ok {
		return OperationStats{Name: name}, false
	}
	return v.(*operationMetrics).stats(name), true
}

// AllOperationStats returns statistics for all operations, sorted by name.
func (m *Metrics) AllOperationStats() []OperationStats {
	var stats []OperationStats
	m.operations.Range(func(key, value any) bool {
		stats = append(stats, value.(*operationMetrics).stats(key.(string)))
		return true
	})
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

func (om *operationMetrics) stats(name string) OperationStats {
	invocations := om.invocations.Load()
	totalTime := om.totalTime.Load()

	var avgTime time.Duration
	if invocations > 0 {
		avgTime = time.Duration(totalTime / invocations) //nolint:gosec // Safe: nanoseconds within int64 range
	}

	return OperationStats{
		Name:        name,
		Invocations: invocations,
		Failures:    om.failures.Load(),
		TotalTime:   time.Duration(totalTime), //nolint:gosec // Safe: nanoseconds within int64 range
		AvgTime:     avgTime,
	}
}

// --- Export Methods ---

// Snapshot represents a point-in-time snapshot of all metrics.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	RequestsTotal  uint64  `json:"requests_total"`
	RequestsFailed uint64  `json:"requests_failed"`
	SuccessRate    float64 `json:"success_rate"`

	// Timing metrics (in nanoseconds for precision)
	AvgRequestTimeNs uint64 `json:"avg_request_time_ns"`
	MinRequestTimeNs uint64 `json:"min_request_time_ns"`
	MaxRequestTimeNs uint64 `json:"max_request_time_ns"`

	BytesSent     uint64 `json:"bytes_sent"`
	BytesReceived uint64 `json:"bytes_received"`

	Operations []OperationStats `json:"operations,omitempty"`
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	minTime := m.requestTimeMin.Load()
	if minTime == ^uint64(0) {
		minTime = 0
	}

	return Snapshot{
		Timestamp:        time.Now(),
		RequestsTotal:    m.requestsTotal.Load(),
		RequestsFailed:   m.requestsFailed.Load(),
		SuccessRate:      m.SuccessRate(),
		AvgRequestTimeNs: uint64(m.AverageRequestTime()), //nolint:gosec // Safe: durations are positive
		MinRequestTimeNs: minTime,
		MaxRequestTimeNs: m.requestTimeMax.Load(),
		BytesSent:        m.bytesSent.Load(),
		BytesReceived:    m.bytesReceived.Load(),
		Operations:       m.AllOperationStats(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.requestsTotal.Store(0)
	m.requestsFailed.Store(0)
	m.requestTimeTotal.Store(0)
	m.requestTimeMin.Store(^uint64(0))
	m.requestTimeMax.Store(0)
	m.bytesSent.Store(0)
	m.bytesReceived.Store(0)

	m.operations.Range(func(key, _ any) bool {
		m.operations.Delete(key)
		return true
	})
}
