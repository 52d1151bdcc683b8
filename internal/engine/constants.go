package engine

import "time"

// Tuning constants shared by the tick engine and the extension modules that
// depend on it, collected in one place.
const (
	// MaxCommandsPerTick bounds commands drained (including same-tick
	// re-entrant commands) in a single tick; exceeding it is fatal
	// (a livelock guard).
	MaxCommandsPerTick = 2048
	// MaxEventsPerTick bounds events drained in a single tick for the same
	// reason.
	MaxEventsPerTick = 4096

	// EncounterCheckIntervalTicks is how often the periodic encounter_check
	// task fires.
	EncounterCheckIntervalTicks = 20
	// EncounterChancePercent is the eligibility roll threshold (1..100).
	EncounterChancePercent = 35
	// EncounterCooldownTicks is the process-wide cooldown between eligible
	// encounter rolls.
	EncounterCooldownTicks = 10

	// MaxActiveLocalEncounters bounds the number of concurrently instanced
	// local spaces.
	MaxActiveLocalEncounters = 8

	// PlaceholderCooldownTicks is the attacker cooldown applied after a
	// resolved attack_intent.
	PlaceholderCooldownTicks = 6
	// MaxAffectedPerAction caps the number of `affected` entries recorded
	// per resolved attack.
	MaxAffectedPerAction = 8
	// MaxCombatLog bounds the combat module's outcome log.
	MaxCombatLog = 256

	// MaxExecutedActionUIDs bounds every per-module executed-action-UID
	// ledger.
	MaxExecutedActionUIDs = 1024

	// RumorPropagationIntervalTicks is how often the rumor_pipeline:propagate
	// periodic task runs.
	RumorPropagationIntervalTicks = 15
	// RumorHopCap bounds how many hops a rumor may propagate.
	RumorHopCap = 4
	// RumorTTLTicks is the TTL stamped on propagated (non-base) rumors.
	RumorTTLTicks = 600

	// DefaultTicksPerDay is the default calendar-day length used when a
	// world map does not specify one.
	DefaultTicksPerDay = 240

	// DefaultTickPeriod is the wall-clock period external collaborators
	// (viewer loops) are expected to batch advance_ticks calls against; it
	// has no bearing on determinism.
	DefaultTickPeriod = 100 * time.Millisecond
)
