package scheduler

import (
	"testing"

	"hexkeep/internal/engine"
	"hexkeep/internal/events"
)

func TestRegisterTaskSchedulesInitialEvent(t *testing.T) {
	sim := engine.New("seed")
	m := New()
	if err := m.RegisterTask(sim, "tick_task", 10, 5); err != nil {
		t.Fatalf("RegisterTask: %v", err)
	}
	pending := sim.Events.Pending()
	if len(pending) != 1 || pending[0].Tick != 5 || pending[0].Params["task"] != "tick_task" {
		t.Fatalf("expected one periodic_tick scheduled at tick 5 for tick_task, got %+v", pending)
	}
}

func TestRegisterTaskIsIdempotentWithMatchingParams(t *testing.T) {
	sim := engine.New("seed")
	m := New()
	_ = m.RegisterTask(sim, "t", 10, 5)
	if err := m.RegisterTask(sim, "t", 10, 5); err != nil {
		t.Fatalf("expected identical re-registration to succeed, got %v", err)
	}
	if len(sim.Events.Pending()) != 1 {
		t.Fatalf("expected no duplicate event scheduled on idempotent re-registration")
	}
}

func TestRegisterTaskRejectsConflictingParams(t *testing.T) {
	sim := engine.New("seed")
	m := New()
	_ = m.RegisterTask(sim, "t", 10, 5)
	err := m.RegisterTask(sim, "t", 20, 5)
	if err == nil {
		t.Fatalf("expected conflicting re-registration to fail")
	}
	if _, ok := err.(*engine.FatalError); !ok {
		t.Fatalf("expected *engine.FatalError, got %T", err)
	}
}

func TestSetTaskCallbackRejectsUnknownTask(t *testing.T) {
	m := New()
	err := m.SetTaskCallback("ghost", func(sim *engine.Simulation, tick uint64) {})
	if err == nil {
		t.Fatalf("expected setting a callback on an unregistered task to fail")
	}
}

func TestOnEventExecutedInvokesCallbackAndReschedules(t *testing.T) {
	sim := engine.New("seed")
	m := New()
	_ = m.RegisterTask(sim, "t", 10, 0)
	var firedAt uint64 = 999
	_ = m.SetTaskCallback("t", func(sim *engine.Simulation, tick uint64) { firedAt = tick })

	m.OnEventExecuted(sim, events.Event{Tick: 0, Type: EventPeriodicTick, Params: map[string]any{"task": "t", "interval": float64(10)}})
	if firedAt != 0 {
		t.Fatalf("expected callback invoked at tick 0, got %d", firedAt)
	}

	pending := sim.Events.Pending()
	found := false
	for _, e := range pending {
		if e.Tick == 10 && e.Params["task"] == "t" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the task rescheduled at tick 10, got %+v", pending)
	}
}

func TestOnSimulationStartRehydratesTasksFromPendingEvents(t *testing.T) {
	sim := engine.New("seed")
	sim.Events.Schedule(40, EventPeriodicTick, map[string]any{"task": "restored", "interval": float64(20)})

	m := New()
	m.OnSimulationStart(sim)
	var ran bool
	_ = m.SetTaskCallback("restored", func(sim *engine.Simulation, tick uint64) { ran = true })
	m.OnEventExecuted(sim, events.Event{Tick: 40, Type: EventPeriodicTick, Params: map[string]any{"task": "restored", "interval": float64(20)}})
	if !ran {
		t.Fatalf("expected the rehydrated task's callback to run")
	}
}
