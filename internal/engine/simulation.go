package engine

import (
	"hexkeep/internal/events"
	"hexkeep/internal/rng"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
)

// Simulation owns every partition of simulation state: the world, the
// entity table, the clock, the RNG registry, the rules-state ledger, the
// event queue and its trace, the append-only command input log, and the
// ordered set of registered rule modules.
type Simulation struct {
	MasterSeed string

	World    *worldstate.WorldState
	Entities *worldstate.EntityTable
	Clock    worldstate.Clock
	RNG      *rng.Registry
	Rules    *rules.State
	Events   *events.Queue
	Trace    *events.Trace

	InputLog []Command

	// Selected tracks, per owner id, which entity that owner currently
	// controls: owner -> entityId.
	Selected map[string]string

	// NextCommandIndex is the cursor into InputLog of the next command not
	// yet drained by the tick loop. It advances monotonically, including
	// across same-tick re-entrant commands appended mid-drain, and is part
	// of serializable state so a reloaded save resumes draining at exactly
	// the right position.
	NextCommandIndex int

	// Router handles commands no registered module claims via
	// CommandHandler.OnCommand: the built-in command router fallback stage.
	// A nil Router leaves unclaimed commands unhandled (no-op).
	Router CommandRouter

	reg *registry
}

// CommandRouter is the built-in fallback dispatch stage, tried only for
// commands no registered module claimed.
type CommandRouter interface {
	Route(sim *Simulation, cmd Command, index int) bool
}

// New constructs an empty Simulation seeded from masterSeed, with the
// mandatory default overworld space and both mandatory RNG streams already
// present.
func New(masterSeed string) *Simulation {
	return &Simulation{
		MasterSeed: masterSeed,
		World:      worldstate.New(),
		Entities:   worldstate.NewEntityTable(),
		Clock:      worldstate.NewClock(DefaultTicksPerDay),
		RNG:        rng.NewRegistry(masterSeed),
		Rules:      rules.New(),
		Events:     events.NewQueue(),
		Trace:      events.NewTrace(worldstate.MaxEventTrace),
		Selected:   make(map[string]string),
		reg:        newRegistry(),
	}
}

// Register adds a rule module to the simulation, in call order. Returns a
// *FatalError if a module with the same Name() is already registered.
// Registration order governs every fan-out and command/dispatch priority in
// the tick loop.
func (s *Simulation) Register(m Module) error {
	return s.reg.register(m)
}

// Modules returns every registered module in registration order.
func (s *Simulation) Modules() []Module {
	return s.reg.modules
}

// Start runs every registered SimulationStarter's OnSimulationStart hook, in
// registration order. Call once, after every module is registered and the
// initial world/entities are populated.
func (s *Simulation) Start() {
	for _, m := range s.reg.modules {
		if starter, ok := m.(SimulationStarter); ok {
			starter.OnSimulationStart(s)
		}
	}
}

// Enqueue appends a command to the input log, to be drained on its Tick
// during AdvanceTicks. Commands scheduled for a tick already in the past
// relative to s.Clock.Tick are drained on the very next AdvanceTicks call
// that passes through the current tick.
func (s *Simulation) Enqueue(cmd Command) {
	s.InputLog = append(s.InputLog, cmd)
}

// SelectEntity records that owner currently controls entityID.
func (s *Simulation) SelectEntity(owner, entityID string) {
	s.Selected[owner] = entityID
}

// SelectedEntity returns the entity currently controlled by owner, if any.
func (s *Simulation) SelectedEntity(owner string) (string, bool) {
	id, ok := s.Selected[owner]
	return id, ok
}
