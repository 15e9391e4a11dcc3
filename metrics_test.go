package txclient

import (
	"sync"
	"testing"
	"time"
)

func TestMetrics_Basic(t *testing.T) {
	m := NewMetrics()

	if m.RequestsTotal() != 0 {
		t.Errorf("RequestsTotal() = %d; want 0", m.RequestsTotal())
	}

	m.RecordRequest("$expand", 100*time.Millisecond, true)

	if m.RequestsTotal() != 1 {
		t.Errorf("RequestsTotal() = %d; want 1", m.RequestsTotal())
	}
	if m.RequestsFailed() != 0 {
		t.Errorf("RequestsFailed() = %d; want 0", m.RequestsFailed())
	}
}

func TestMetrics_SuccessRate(t *testing.T) {
	m := NewMetrics()

	if rate := m.SuccessRate(); rate != 0 {
		t.Errorf("SuccessRate() = %f; want 0", rate)
	}

	m.RecordRequest("$expand", 10*time.Millisecond, true)
	m.RecordRequest("$expand", 10*time.Millisecond, true)
	m.RecordRequest("$validate-code", 10*time.Millisecond, false)

	rate := m.SuccessRate()
	expected := 2.0 / 3.0
	if rate < expected-0.01 || rate > expected+0.01 {
		t.Errorf("SuccessRate() = %f; want ~%f", rate, expected)
	}
}

func TestMetrics_RequestTime(t *testing.T) {
	m := NewMetrics()

	if avg := m.AverageRequestTime(); avg != 0 {
		t.Errorf("AverageRequestTime() = %v; want 0", avg)
	}
	if minT := m.MinRequestTime(); minT != 0 {
		t.Errorf("MinRequestTime() = %v; want 0", minT)
	}
	if maxT := m.MaxRequestTime(); maxT != 0 {
		t.Errorf("MaxRequestTime() = %v; want 0", maxT)
	}

	m.RecordRequest("$expand", 100*time.Millisecond, true)
	m.RecordRequest("$expand", 200*time.Millisecond, true)
	m.RecordRequest("$expand", 300*time.Millisecond, true)

	if avg := m.AverageRequestTime(); avg != 200*time.Millisecond {
		t.Errorf("AverageRequestTime() = %v; want 200ms", avg)
	}
	if minT := m.MinRequestTime(); minT != 100*time.Millisecond {
		t.Errorf("MinRequestTime() = %v; want 100ms", minT)
	}
	if maxT := m.MaxRequestTime(); maxT != 300*time.Millisecond {
		t.Errorf("MaxRequestTime() = %v; want 300ms", maxT)
	}
}

func TestMetrics_Bytes(t *testing.T) {
	m := NewMetrics()

	m.RecordBytes(120, 4096)
	m.RecordBytes(0, 10)
	m.RecordBytes(-1, -1)

	if got := m.BytesSent(); got != 120 {
		t.Errorf("BytesSent() = %d; want 120", got)
	}
	if got := m.BytesReceived(); got != 4106 {
		t.Errorf("BytesReceived() = %d; want 4106", got)
	}
}

func TestMetrics_OperationStats(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("$expand", 10*time.Millisecond, true)
	m.RecordRequest("$expand", 30*time.Millisecond, false)
	m.RecordRequest("$validate-code", 5*time.Millisecond, true)

	stats, ok := m.OperationStats("$expand")
	if !ok {
		t.Fatal("OperationStats($expand) not found")
	}
	if stats.Invocations != 2 {
		t.Errorf("Invocations = %d; want 2", stats.Invocations)
	}
	if stats.Failures != 1 {
		t.Errorf("Failures = %d; want 1", stats.Failures)
	}
	if stats.AvgTime != 20*time.Millisecond {
		t.Errorf("AvgTime = %v; want 20ms", stats.AvgTime)
	}

	if _, ok := m.OperationStats("$lookup"); ok {
		t.Error("OperationStats($lookup) should not be found")
	}

	all := m.AllOperationStats()
	if len(all) != 2 {
		t.Fatalf("AllOperationStats() len = %d; want 2", len(all))
	}
	if all[0].Name != "$expand" || all[1].Name != "$validate-code" {
		t.Errorf("AllOperationStats() order = [%s %s]; want sorted by name", all[0].Name, all[1].Name)
	}
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("$expand", 50*time.Millisecond, true)
	m.RecordBytes(10, 20)

	snap := m.Snapshot()

	if snap.RequestsTotal != 1 {
		t.Errorf("Snapshot.RequestsTotal = %d; want 1", snap.RequestsTotal)
	}
	if snap.SuccessRate != 1 {
		t.Errorf("Snapshot.SuccessRate = %f; want 1", snap.SuccessRate)
	}
	if snap.MinRequestTimeNs != uint64(50*time.Millisecond) {
		t.Errorf("Snapshot.MinRequestTimeNs = %d; want %d", snap.MinRequestTimeNs, uint64(50*time.Millisecond))
	}
	if snap.BytesSent != 10 || snap.BytesReceived != 20 {
		t.Errorf("Snapshot bytes = (%d, %d); want (10, 20)", snap.BytesSent, snap.BytesReceived)
	}
	if len(snap.Operations) != 1 {
		t.Errorf("Snapshot.Operations len = %d; want 1", len(snap.Operations))
	}
	if snap.Timestamp.IsZero() {
		t.Error("Snapshot.Timestamp should be set")
	}
}

func TestMetrics_SnapshotEmpty(t *testing.T) {
	snap := NewMetrics().Snapshot()

	if snap.MinRequestTimeNs != 0 {
		t.Errorf("Snapshot.MinRequestTimeNs = %d; want 0", snap.MinRequestTimeNs)
	}
	if len(snap.Operations) != 0 {
		t.Errorf("Snapshot.Operations len = %d; want 0", len(snap.Operations))
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest("$expand", 100*time.Millisecond, false)
	m.RecordBytes(1, 1)

	m.Reset()

	if m.RequestsTotal() != 0 {
		t.Errorf("RequestsTotal() after reset = %d; want 0", m.RequestsTotal())
	}
	if m.RequestsFailed() != 0 {
		t.Errorf("RequestsFailed() after reset = %d; want 0", m.RequestsFailed())
	}
	if m.MinRequestTime() != 0 {
		t.Errorf("MinRequestTime() after reset = %v; want 0", m.MinRequestTime())
	}
	if m.BytesSent() != 0 || m.BytesReceived() != 0 {
		t.Error("byte counters should be zero after reset")
	}
	if len(m.AllOperationStats()) != 0 {
		t.Error("operation stats should be empty after reset")
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	m := NewMetrics()

	const goroutines = 10
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.RecordRequest("$expand", time.Duration(id*iterations+j)*time.Microsecond, j%2 == 0)
				m.RecordBytes(1, 2)
			}
		}(i)
	}

	wg.Wait()

	if got := m.RequestsTotal(); got != goroutines*iterations {
		t.Errorf("RequestsTotal() = %d; want %d", got, goroutines*iterations)
	}
	if got := m.RequestsFailed(); got != goroutines*iterations/2 {
		t.Errorf("RequestsFailed() = %d; want %d", got, goroutines*iterations/2)
	}
	if got := m.BytesReceived(); got != 2*goroutines*iterations {
		t.Errorf("BytesReceived() = %d; want %d", got, 2*goroutines*iterations)
	}
	if got := m.MaxRequestTime(); got != time.Duration(goroutines*iterations-1)*time.Microsecond {
		t.Errorf("MaxRequestTime() = %v; want %v", got, time.Duration(goroutines*iterations-1)*time.Microsecond)
	}
}

func BenchmarkMetrics_RecordRequest(b *testing.B) {
	m := NewMetrics()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.RecordRequest("$expand", 100*time.Microsecond, true)
		}
	})
}
