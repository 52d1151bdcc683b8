// Package engine implements the tick loop, command dispatch, and
// rule-module substrate: tick/command orchestration plus an ordered
// fan-out over an open, named rule-module registry.
package engine

import "hexkeep/internal/events"

// Module is the minimal rule-module contract: every rule module has a
// stable name used both for registration-order bookkeeping and as its
// rules-state partition key.
type Module interface {
	Name() string
}

// SimulationStarter is implemented by modules that need one-time setup
// once the simulation is fully constructed (e.g. supply consumption
// registering its periodic tasks).
type SimulationStarter interface {
	Module
	OnSimulationStart(sim *Simulation)
}

// TickStarter is implemented by modules that act at the start of every
// tick, before commands are drained (e.g. spawn materialization).
type TickStarter interface {
	Module
	OnTickStart(sim *Simulation, tick uint64)
}

// TickEnder is implemented by modules that act at the end of every tick,
// after events are drained.
type TickEnder interface {
	Module
	OnTickEnd(sim *Simulation, tick uint64)
}

// CommandHandler is implemented by modules that can claim ownership of a
// command. The first module (in registration order) whose OnCommand
// returns true is considered to have handled the command; the built-in
// command router is tried only if no module claims it.
type CommandHandler interface {
	Module
	OnCommand(sim *Simulation, cmd Command, index int) bool
}

// EventHandler is implemented by modules that react to every executed
// event, in registration order.
type EventHandler interface {
	Module
	OnEventExecuted(sim *Simulation, evt events.Event)
}

// registry holds every registered module, preserving registration order as
// the protocol contract.
type registry struct {
	modules []Module
	names   map[string]struct{}
}

func newRegistry() *registry {
	return &registry{names: make(map[string]struct{})}
}

func (r *registry) register(m Module) error {
	name := m.Name()
	if _, dup := r.names[name]; dup {
		return &FatalError{Reason: "duplicate module name", Detail: name}
	}
	r.names[name] = struct{}{}
	r.modules = append(r.modules, m)
	return nil
}
