package events

import "testing"

func TestScheduleOrdersByTickThenID(t *testing.T) {
	q := NewQueue()
	q.Schedule(5, "b", nil)
	q.Schedule(3, "a", nil)
	q.Schedule(3, "c", nil) // same tick as "a", minted later -> pops after it

	first, ok := q.PopDue(10)
	if !ok || first.Type != "a" {
		t.Fatalf("expected first due event to be %q, got %+v (ok=%v)", "a", first, ok)
	}
	second, ok := q.PopDue(10)
	if !ok || second.Type != "c" {
		t.Fatalf("expected second due event to be %q, got %+v", "c", second)
	}
	third, ok := q.PopDue(10)
	if !ok || third.Type != "b" {
		t.Fatalf("expected third due event to be %q, got %+v", "b", third)
	}
}

func TestPopDueRespectsCurrentTick(t *testing.T) {
	q := NewQueue()
	q.Schedule(10, "later", nil)

	if _, ok := q.PopDue(9); ok {
		t.Fatalf("event scheduled at tick 10 must not be due at tick 9")
	}
	if _, ok := q.PopDue(10); !ok {
		t.Fatalf("event scheduled at tick 10 must be due at tick 10")
	}
}

func TestEventIDsAreMonotonic(t *testing.T) {
	q := NewQueue()
	e1 := q.Schedule(1, "x", nil)
	e2 := q.Schedule(1, "y", nil)
	if e1.ID == e2.ID {
		t.Fatalf("distinct scheduled events must get distinct ids")
	}
	if q.NextCounter() != 2 {
		t.Fatalf("NextCounter should be 2 after minting 2 ids, got %d", q.NextCounter())
	}
}

func TestPendingDoesNotMutateQueue(t *testing.T) {
	q := NewQueue()
	q.Schedule(1, "x", nil)
	q.Schedule(2, "y", nil)

	pending := q.Pending()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(pending))
	}
	if q.Len() != 2 {
		t.Fatalf("Pending() must not drain the live queue, Len()=%d", q.Len())
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	q := NewQueue()
	q.Schedule(1, "x", map[string]any{"k": "v"})
	q.Schedule(5, "y", nil)
	q.Schedule(1, "z", nil)

	pending := q.Pending()
	restored, err := Restore(q.NextCounter(), pending)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Len() != q.Len() {
		t.Fatalf("restored queue length mismatch: got %d want %d", restored.Len(), q.Len())
	}

	for {
		orig, okOrig := q.PopDue(100)
		got, okGot := restored.PopDue(100)
		if okOrig != okGot {
			t.Fatalf("pop-due mismatch: orig ok=%v restored ok=%v", okOrig, okGot)
		}
		if !okOrig {
			break
		}
		if orig.Tick != got.Tick || orig.ID != got.ID || orig.Type != got.Type {
			t.Fatalf("restored event differs: got %+v want %+v", got, orig)
		}
	}
}

func TestRestoreRejectsMalformedID(t *testing.T) {
	_, err := Restore(1, []Event{{Tick: 1, ID: "not-an-id", Type: "x"}})
	if err == nil {
		t.Fatalf("expected Restore to reject an unparseable event id")
	}
}

func TestTraceFIFOEviction(t *testing.T) {
	tr := NewTrace(2)
	tr.Append(Event{ID: "1"})
	tr.Append(Event{ID: "2"})
	tr.Append(Event{ID: "3"})

	if len(tr.Entries) != 2 {
		t.Fatalf("expected trace capped at 2 entries, got %d", len(tr.Entries))
	}
	if tr.Entries[0].ID != "2" || tr.Entries[1].ID != "3" {
		t.Fatalf("expected oldest entry evicted, got %+v", tr.Entries)
	}
}

func TestTraceUnboundedWhenCapZero(t *testing.T) {
	tr := NewTrace(0)
	for i := 0; i < 50; i++ {
		tr.Append(Event{ID: idFor(uint64(i))})
	}
	if len(tr.Entries) != 50 {
		t.Fatalf("expected no eviction with cap=0, got %d entries", len(tr.Entries))
	}
}
