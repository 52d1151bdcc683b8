// Package scheduler implements the periodic-task substrate: self-
// rescheduling periodic_tick events, one per registered task, rehydrated
// from pending events on load rather than carrying their own serialized
// registry.
package scheduler

import (
	"fmt"

	"hexkeep/internal/engine"
	"hexkeep/internal/events"
)

// EventPeriodicTick is the self-rescheduling event type driving every
// registered task.
const EventPeriodicTick = "periodic_tick"

// Callback is invoked once per firing of a registered task, at exactly the
// tick the periodic_tick event lands on.
type Callback func(sim *engine.Simulation, tick uint64)

type task struct {
	name         string
	intervalTick uint64
	startTick    uint64
	callback     Callback
}

// Module is the periodic scheduler rule module. It must be registered
// before any module that calls RegisterTask from OnSimulationStart.
type Module struct {
	tasks map[string]*task
}

// New constructs an empty scheduler module.
func New() *Module {
	return &Module{tasks: make(map[string]*task)}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "scheduler" }

// RegisterTask implements register_task(task_name, interval_ticks,
// start_tick): emits one periodic_tick event at start_tick if no event for
// that task is already pending (i.e. on a fresh simulation); duplicate
// registration with the same parameters is idempotent, with conflicting
// parameters rejected as a fatal engine violation.
func (m *Module) RegisterTask(sim *engine.Simulation, name string, intervalTicks, startTick uint64) error {
	if existing, ok := m.tasks[name]; ok {
		if existing.intervalTick != intervalTicks || existing.startTick != startTick {
			return &engine.FatalError{
				Reason: "conflicting periodic task registration",
				Detail: fmt.Sprintf("%s: have (interval=%d start=%d), got (interval=%d start=%d)",
					name, existing.intervalTick, existing.startTick, intervalTicks, startTick),
			}
		}
		return nil
	}
	m.tasks[name] = &task{name: name, intervalTick: intervalTicks, startTick: startTick}
	if !m.hasPending(sim, name) {
		sim.Events.Schedule(startTick, EventPeriodicTick, map[string]any{
			"task":     name,
			"interval": float64(intervalTicks),
		})
	}
	return nil
}

// SetTaskCallback implements set_task_callback(task_name, cb). The task
// must already be registered.
func (m *Module) SetTaskCallback(name string, cb Callback) error {
	t, ok := m.tasks[name]
	if !ok {
		return fmt.Errorf("scheduler: set_task_callback: unknown task %q", name)
	}
	t.callback = cb
	return nil
}

func (m *Module) hasPending(sim *engine.Simulation, name string) bool {
	for _, e := range sim.Events.Pending() {
		if e.Type == EventPeriodicTick && e.Params["task"] == name {
			return true
		}
	}
	return false
}

// OnSimulationStart rehydrates the task registry from any pending
// periodic_tick events found in a loaded save.
func (m *Module) OnSimulationStart(sim *engine.Simulation) {
	for _, e := range sim.Events.Pending() {
		if e.Type != EventPeriodicTick {
			continue
		}
		name, _ := e.Params["task"].(string)
		if name == "" {
			continue
		}
		if _, known := m.tasks[name]; known {
			continue
		}
		interval := paramUint(e.Params["interval"])
		m.tasks[name] = &task{name: name, intervalTick: interval, startTick: e.Tick}
	}
}

// OnEventExecuted re-schedules a periodic_tick event at tick+interval and
// invokes the task's callback, implementing the self-rescheduling protocol.
func (m *Module) OnEventExecuted(sim *engine.Simulation, evt events.Event) {
	if evt.Type != EventPeriodicTick {
		return
	}
	name, _ := evt.Params["task"].(string)
	t, ok := m.tasks[name]
	if !ok {
		return
	}
	if t.callback != nil {
		t.callback(sim, evt.Tick)
	}
	sim.Events.Schedule(evt.Tick+t.intervalTick, EventPeriodicTick, map[string]any{
		"task":     name,
		"interval": float64(t.intervalTick),
	})
}

func paramUint(v any) uint64 {
	switch n := v.(type) {
	case float64:
		return uint64(n)
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	default:
		return 0
	}
}

var _ engine.SimulationStarter = (*Module)(nil)
var _ engine.EventHandler = (*Module)(nil)
