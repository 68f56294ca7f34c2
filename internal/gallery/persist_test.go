package gallery

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu    sync.Mutex
	calls []sinkCall
	err   error
}

type sinkCall struct {
	panelID    string
	instanceID string
	state      map[string]any
}

func (s *recordingSink) PersistUIState(_ context.Context, panelID, instanceID string, state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]any, len(state))
	for k, v := range state {
		copied[k] = v
	}
	s.calls = append(s.calls, sinkCall{panelID: panelID, instanceID: instanceID, state: copied})
	return s.err
}

func (s *recordingSink) snapshot() []sinkCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sinkCall(nil), s.calls...)
}

func TestPersister_CoalescesRapidCalls(t *testing.T) {
	sink := &recordingSink{}
	p := NewPersister(sink, nil)
	defer p.Close()

	key := PersistKey{PanelID: "gallery", InstanceID: "n1"}
	p.ScheduleFast(key, map[string]any{"preview_size": 90, "sort": "name"})
	p.ScheduleFast(key, map[string]any{"preview_size": 120})
	p.ScheduleFast(key, map[string]any{"preview_size": 150, "search": "cat"})

	time.Sleep(PersistSliderDelay + 300*time.Millisecond)

	calls := sink.snapshot()
	if len(calls) != 1 {
		t.Fatalf("calls=%d, want exactly 1 for rapid same-key schedules", len(calls))
	}
	got := calls[0].state
	if got["preview_size"] != 150 {
		t.Errorf("preview_size=%v, want last value 150", got["preview_size"])
	}
	if got["sort"] != "name" || got["search"] != "cat" {
		t.Errorf("merged payload must be the union: %v", got)
	}
	if p.PendingCount() != 0 {
		t.Errorf("pending=%d, want 0 after fire", p.PendingCount())
	}
}

func TestPersister_IndependentKeysDoNotCollide(t *testing.T) {
	sink := &recordingSink{}
	p := NewPersister(sink, nil)
	defer p.Close()

	p.ScheduleFast(PersistKey{"gallery", "a"}, map[string]any{"v": 1})
	p.ScheduleFast(PersistKey{"gallery", "b"}, map[string]any{"v": 2})

	time.Sleep(PersistSliderDelay + 300*time.Millisecond)

	calls := sink.snapshot()
	if len(calls) != 2 {
		t.Fatalf("calls=%d, want one per key", len(calls))
	}
}

func TestPersister_FlushDeliversImmediately(t *testing.T) {
	sink := &recordingSink{}
	p := NewPersister(sink, nil)
	defer p.Close()

	p.Schedule(PersistKey{"gallery", "a"}, map[string]any{"search": "x"})
	p.Flush()

	calls := sink.snapshot()
	if len(calls) != 1 {
		t.Fatalf("calls=%d, want 1 immediately after Flush", len(calls))
	}
	if p.PendingCount() != 0 {
		t.Errorf("pending=%d, want 0 after Flush", p.PendingCount())
	}

	// The cancelled timer must not deliver a second time.
	time.Sleep(PersistDelay + 200*time.Millisecond)
	if got := len(sink.snapshot()); got != 1 {
		t.Errorf("calls=%d after timer window, want still 1", got)
	}
}

func TestPersister_CloseCancelsPending(t *testing.T) {
	sink := &recordingSink{}
	p := NewPersister(sink, nil)

	p.ScheduleFast(PersistKey{"gallery", "a"}, map[string]any{"v": 1})
	p.Close()

	time.Sleep(PersistSliderDelay + 200*time.Millisecond)
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("calls=%d after Close, want 0", got)
	}

	// Scheduling after Close is ignored.
	p.ScheduleFast(PersistKey{"gallery", "a"}, map[string]any{"v": 2})
	if p.PendingCount() != 0 {
		t.Errorf("pending=%d, want 0 after Close", p.PendingCount())
	}
}

func TestPersister_DeliveryFailureIsDropped(t *testing.T) {
	sink := &recordingSink{err: errors.New("backend down")}
	p := NewPersister(sink, nil)
	defer p.Close()

	p.Schedule(PersistKey{"gallery", "a"}, map[string]any{"v": 1})
	p.Flush()

	if len(sink.snapshot()) != 1 {
		t.Fatal("failed delivery should still have been attempted once")
	}
	// No retry: pending stays empty.
	if p.PendingCount() != 0 {
		t.Errorf("pending=%d, want 0 (no retry on failure)", p.PendingCount())
	}
}
