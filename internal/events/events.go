// Package events implements the deterministic event queue and bounded
// execution trace: a min-heap keyed by (tick, numeric event id), a
// monotonic event-id counter that is itself part of the simulation
// state, and a FIFO-capped trace of executed events.
package events

import (
	"container/heap"
	"fmt"
)

// Event is a scheduled or executed occurrence. Params carry canonical
// JSON-primitive data (maps/slices/strings/numbers/bools) so the event
// round-trips through the save codec untouched.
type Event struct {
	Tick      uint64         `json:"tick"`
	ID        string         `json:"eventId"`
	idNumeric uint64
	Type      string         `json:"eventType"`
	Params    map[string]any `json:"params,omitempty"`
}

func idFor(counter uint64) string {
	return fmt.Sprintf("evt-%d", counter)
}

// Queue is the min-heap of pending events plus the monotonic counter used
// to mint new event ids. It is exclusively owned by the simulation; rule
// modules never retain Event references across ticks.
type Queue struct {
	heap        eventHeap
	nextCounter uint64
}

// NewQueue constructs an empty event queue.
func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.heap)
	return q
}

// Schedule enqueues a new event at the given tick, minting a fresh
// monotonic event id, and returns the minted Event.
func (q *Queue) Schedule(tick uint64, eventType string, params map[string]any) Event {
	counter := q.nextCounter
	q.nextCounter++
	e := Event{Tick: tick, ID: idFor(counter), idNumeric: counter, Type: eventType, Params: params}
	heap.Push(&q.heap, e)
	return e
}

// PeekTick reports the tick of the earliest pending event and whether the
// queue is non-empty.
func (q *Queue) PeekTick() (uint64, bool) {
	if len(q.heap) == 0 {
		return 0, false
	}
	return q.heap[0].Tick, true
}

// PopDue pops and returns the earliest pending event if its tick is <=
// currentTick; ok is false if the queue is empty or the earliest event is
// not yet due.
func (q *Queue) PopDue(currentTick uint64) (Event, bool) {
	if len(q.heap) == 0 || q.heap[0].Tick > currentTick {
		return Event{}, false
	}
	e := heap.Pop(&q.heap).(Event)
	return e, true
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return len(q.heap) }

// NextCounter returns the counter value that will be used for the next
// minted event id, for serialization.
func (q *Queue) NextCounter() uint64 { return q.nextCounter }

// Pending returns every pending event, in heap-pop order (tick, then
// numeric id), for serialization as "pending_events".
func (q *Queue) Pending() []Event {
	cp := make(eventHeap, len(q.heap))
	copy(cp, q.heap)
	out := make([]Event, 0, len(cp))
	for cp.Len() > 0 {
		out = append(out, heap.Pop(&cp).(Event))
	}
	return out
}

// Restore rebuilds a queue from a serialized (nextCounter, pending events)
// pair, e.g. after loading a save. Event ids are re-parsed to recover
// their numeric ordering key.
func Restore(nextCounter uint64, pending []Event) (*Queue, error) {
	q := &Queue{nextCounter: nextCounter}
	heap.Init(&q.heap)
	for _, e := range pending {
		n, err := parseCounter(e.ID)
		if err != nil {
			return nil, fmt.Errorf("events: restoring pending event %q: %w", e.ID, err)
		}
		e.idNumeric = n
		heap.Push(&q.heap, e)
	}
	return q, nil
}

func parseCounter(id string) (uint64, error) {
	var n uint64
	if _, err := fmt.Sscanf(id, "evt-%d", &n); err != nil {
		return 0, err
	}
	return n, nil
}

// eventHeap implements container/heap.Interface, ordering by (Tick,
// idNumeric).
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].Tick != h[j].Tick {
		return h[i].Tick < h[j].Tick
	}
	return h[i].idNumeric < h[j].idNumeric
}
func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *eventHeap) Push(x any)   { *h = append(*h, x.(Event)) }
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Trace is the bounded append-only execution history: part of the
// simulation hash, FIFO-evicted once Cap is exceeded.
type Trace struct {
	Cap     int     `json:"cap"`
	Entries []Event `json:"entries"`
}

// NewTrace constructs an empty trace with the given capacity.
func NewTrace(cap int) *Trace {
	return &Trace{Cap: cap}
}

// Append records an executed event, evicting the oldest entry on overflow.
func (t *Trace) Append(e Event) {
	t.Entries = append(t.Entries, e)
	if t.Cap > 0 && len(t.Entries) > t.Cap {
		t.Entries = t.Entries[len(t.Entries)-t.Cap:]
	}
}
