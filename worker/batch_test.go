package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofhir/fhir/r4"

	"github.com/gofhir/txclient/internal/txtest"
	"github.com/gofhir/txclient/rest"
	"github.com/gofhir/txclient/valueset"
)

// mockChecker reports codes starting with "4" as members.
type mockChecker struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	err      error
}

func (m *mockChecker) ContainsTerm(ctx context.Context, t valueset.Term) (bool, error) {
	m.calls.Add(1)
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		seen := m.maxSeen.Load()
		if n <= seen || m.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if m.err != nil {
		return false, m.err
	}
	c, _ := t.Coding()
	return c.Code != nil && (*c.Code)[0] == '4', nil
}

func terms(codes ...string) []valueset.Term {
	out := make([]valueset.Term, 0, len(codes))
	for _, code := range codes {
		system := txtest.FHIRVersionSystem
		out = append(out, valueset.CodingTerm(r4.Coding{System: &system, Code: &code}))
	}
	return out
}

func TestNewBatch_DefaultWorkers(t *testing.T) {
	b := NewBatch(&mockChecker{}, 0)
	if b.Workers() <= 0 {
		t.Errorf("workers = %d; want > 0", b.Workers())
	}
}

func TestBatch_Empty(t *testing.T) {
	m := &mockChecker{}
	result := NewBatch(m, 2).Run(context.Background(), nil)

	if result.TotalJobs != 0 || len(result.Results) != 0 {
		t.Errorf("expected empty result, got %+v", result)
	}
	if m.calls.Load() != 0 {
		t.Errorf("calls = %d; want 0", m.calls.Load())
	}
}

func TestBatch_Sequential(t *testing.T) {
	m := &mockChecker{}
	result := NewBatch(m, 4).Run(context.Background(), terms("4.0.1", "5.0.0"))

	if result.CompletedJobs != 2 {
		t.Errorf("CompletedJobs = %d; want 2", result.CompletedJobs)
	}
	if !result.Results[0].Member || result.Results[1].Member {
		t.Errorf("unexpected membership: %v, %v", result.Results[0].Member, result.Results[1].Member)
	}
	if result.AllMembers() {
		t.Error("AllMembers() = true; want false")
	}
}

func TestBatch_ParallelKeepsOrder(t *testing.T) {
	m := &mockChecker{delay: 5 * time.Millisecond}
	codes := []string{"4.0.0", "5.0.0", "4.0.1", "1.0.2", "4.3.0", "3.0.2", "4.1.0", "0.5.0"}
	result := NewBatch(m, 3).Run(context.Background(), terms(codes...))

	if result.TotalJobs != len(codes) || result.CompletedJobs != len(codes) {
		t.Fatalf("jobs = %d/%d; want %d", result.CompletedJobs, result.TotalJobs, len(codes))
	}
	for i, r := range result.Results {
		if r.Index != i {
			t.Errorf("Results[%d].Index = %d", i, r.Index)
		}
		c, _ := r.Term.Coding()
		if *c.Code != codes[i] {
			t.Errorf("Results[%d] code = %s; want %s", i, *c.Code, codes[i])
		}
		if want := codes[i][0] == '4'; r.Member != want {
			t.Errorf("Results[%d].Member = %v; want %v", i, r.Member, want)
		}
	}
	if result.Members() != 4 {
		t.Errorf("Members() = %d; want 4", result.Members())
	}
	if got := m.maxSeen.Load(); got > 3 {
		t.Errorf("max concurrent checks = %d; want <= 3", got)
	}
}

func TestBatch_Errors(t *testing.T) {
	boom := errors.New("boom")
	m := &mockChecker{err: boom}
	result := NewBatch(m, 2).Run(context.Background(), terms("4.0.0", "4.0.1", "4.3.0"))

	if !result.HasErrors() {
		t.Error("HasErrors() = false; want true")
	}
	if result.FailedJobs != 3 || result.CompletedJobs != 3 {
		t.Errorf("failed/completed = %d/%d; want 3/3", result.FailedJobs, result.CompletedJobs)
	}
	for _, r := range result.Results {
		if !errors.Is(r.Error, boom) || r.Member {
			t.Errorf("Results[%d] = %+v", r.Index, r)
		}
	}
}

func TestBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &mockChecker{}
	result := NewBatch(m, 2).Run(ctx, terms("4.0.0", "4.0.1", "4.3.0", "5.0.0"))

	if m.calls.Load() != 0 {
		t.Errorf("calls = %d; want 0", m.calls.Load())
	}
	if result.CompletedJobs != 0 {
		t.Errorf("CompletedJobs = %d; want 0", result.CompletedJobs)
	}
	for _, r := range result.Results {
		if !r.Skipped || !errors.Is(r.Error, context.Canceled) {
			t.Errorf("Results[%d] = %+v; want skipped with context.Canceled", r.Index, r)
		}
	}
}

func TestBatch_AgainstServer(t *testing.T) {
	srv := txtest.NewServer(t)
	if err := srv.AddValueSet("fhir-version", txtest.FHIRVersionValueSet()); err != nil {
		t.Fatal(err)
	}
	client, err := rest.New(srv.URL())
	if err != nil {
		t.Fatal(err)
	}

	vs := valueset.New(client, "fhir-version")
	result := NewBatch(vs, 2).Run(context.Background(), terms("4.0.0", "4.0.1", "4.3.0", "5.0.0"))

	if !result.AllMembers() {
		t.Errorf("AllMembers() = false; results %+v", result.Results)
	}
	if srv.RequestCount() != 4 {
		t.Errorf("RequestCount() = %d; want 4", srv.RequestCount())
	}
}

var _ Checker = (*valueset.Resource)(nil)
