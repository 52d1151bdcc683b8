// Package encounter implements the deterministic encounter pipeline: a DAG
// of event types, each scheduled one tick after its producer, running
// check -> roll -> result -> resolve -> select -> action -> execute ->
// outcome, with a dedicated RNG stream for weighted table selection.
package encounter

import (
	"context"
	"fmt"

	"hexkeep/internal/engine"
	"hexkeep/internal/events"
	"hexkeep/internal/modules/scheduler"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	encounterevents "hexkeep/logging/encounter"
)

// Event types forming the encounter DAG.
const (
	EventCheck            = "encounter_check"
	EventRoll             = "encounter_roll"
	EventResultStub       = "encounter_result_stub"
	EventResolveRequest   = "encounter_resolve_request"
	EventSelectionStub    = "encounter_selection_stub"
	EventActionStub       = "encounter_action_stub"
	EventActionExecute    = "encounter_action_execute"
	EventActionOutcome    = "encounter_action_outcome"

	CommandTravelStep = "travel_step"

	taskCheck = "encounter_check"

	selectionStream = "encounter_selection"
)

// Action outcome values.
const (
	OutcomeExecuted              = "executed"
	OutcomeAlreadyExecuted       = "already_executed"
	OutcomeIgnoredUnsupported    = "ignored_unsupported"
	OutcomeIgnoredInvalidOrigin  = "ignored_invalid_origin"
)

// TableEntry is one weighted entry in a loaded encounter table.
type TableEntry struct {
	ID      string           `json:"id"`
	Weight  int              `json:"weight"`
	Actions []ActionTemplate `json:"actions,omitempty"`
}

// ActionTemplate is one normalized action within a table entry.
type ActionTemplate struct {
	Type     string         `json:"type"`
	SignalID string         `json:"signalId,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

// OutcomeObserver is notified of every executed action outcome, carrying
// richer Go-typed data than the action-outcome event's JSON params
// (currently consumed by the rumor pipeline).
type OutcomeObserver interface {
	OnActionOutcome(sim *engine.Simulation, tick uint64, actionUID, actionType string, location worldstate.Location)
}

// Module implements the encounter pipeline.
type Module struct {
	Publisher logging.Publisher
	Scheduler *scheduler.Module
	Table     []TableEntry
	Observer  OutcomeObserver

	ledger          *rules.Ledger
	lastEligibleTick uint64
	haveLastEligible bool
}

// New constructs the encounter module with its weighted table.
func New(pub logging.Publisher, sched *scheduler.Module, table []TableEntry) *Module {
	return &Module{Publisher: pub, Scheduler: sched, Table: table, ledger: rules.NewLedger(engine.MaxExecutedActionUIDs)}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "encounter" }

type moduleState struct {
	Ledger           []string `json:"ledger"`
	LastEligibleTick uint64   `json:"lastEligibleTick"`
	HaveLastEligible bool     `json:"haveLastEligible"`
}

// OnSimulationStart registers the periodic encounter_check task and
// rehydrates the executed-action ledger and cooldown state.
func (m *Module) OnSimulationStart(sim *engine.Simulation) {
	raw := sim.Rules.Get(m.Name())
	mm, _ := raw.(map[string]any)
	var entries []string
	if mm != nil {
		if arr, ok := mm["ledger"].([]any); ok {
			for _, e := range arr {
				if s, ok := e.(string); ok {
					entries = append(entries, s)
				}
			}
		}
		m.lastEligibleTick = paramUint(mm["lastEligibleTick"])
		m.haveLastEligible, _ = mm["haveLastEligible"].(bool)
	}
	m.ledger = rules.RestoreLedger(engine.MaxExecutedActionUIDs, entries)

	_ = m.Scheduler.RegisterTask(sim, taskCheck, engine.EncounterCheckIntervalTicks, engine.EncounterCheckIntervalTicks)
	_ = m.Scheduler.SetTaskCallback(taskCheck, func(sim *engine.Simulation, tick uint64) {
		m.check(sim, tick, "periodic", nil)
	})
}

// OnCommand triggers an extra encounter_check on travel_step.
func (m *Module) OnCommand(sim *engine.Simulation, cmd engine.Command, index int) bool {
	if cmd.Type != CommandTravelStep {
		return false
	}
	location := cmd.Params["location"]
	m.check(sim, cmd.Tick, "travel_step", location)
	return false // travel_step itself may still be handled by a movement module
}

func (m *Module) check(sim *engine.Simulation, tick uint64, trigger string, location any) {
	if m.haveLastEligible && tick < m.lastEligibleTick+engine.EncounterCooldownTicks {
		return
	}
	roll := sim.RNG.Stream("rng_sim").Intn(100) + 1
	if roll > engine.EncounterChancePercent {
		return
	}
	m.lastEligibleTick = tick
	m.haveLastEligible = true
	_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries, LastEligibleTick: m.lastEligibleTick, HaveLastEligible: true})

	sim.Events.Schedule(tick+1, EventRoll, map[string]any{
		"context":  "encounter_check",
		"roll":     float64(roll),
		"trigger":  trigger,
		"location": location,
	})
}

// OnEventExecuted advances the encounter DAG one stage per event.
func (m *Module) OnEventExecuted(sim *engine.Simulation, evt events.Event) {
	switch evt.Type {
	case EventRoll:
		m.onRoll(sim, evt)
	case EventResultStub:
		m.onResultStub(sim, evt)
	case EventResolveRequest:
		m.onResolveRequest(sim, evt)
	case EventSelectionStub:
		m.onSelectionStub(sim, evt)
	case EventActionStub:
		m.onActionStub(sim, evt)
	case EventActionExecute:
		m.onActionExecute(sim, evt)
	}
}

func (m *Module) onRoll(sim *engine.Simulation, evt events.Event) {
	roll := int(paramUint(evt.Params["roll"]))
	category := "omen"
	switch {
	case roll <= 40:
		category = "hostile"
	case roll <= 75:
		category = "neutral"
	}
	sim.Events.Schedule(evt.Tick+1, EventResultStub, map[string]any{
		"category": category,
		"roll":     float64(roll),
		"trigger":  evt.Params["trigger"],
		"location": evt.Params["location"],
	})
	encounterevents.Rolled(context.Background(), m.Publisher, evt.Tick, encounterevents.RolledPayload{Roll: roll, Eligible: true, Category: category})
}

func (m *Module) onResultStub(sim *engine.Simulation, evt events.Event) {
	sim.Events.Schedule(evt.Tick+1, EventResolveRequest, copyParams(evt.Params))
}

func (m *Module) onResolveRequest(sim *engine.Simulation, evt events.Event) {
	if len(m.Table) == 0 {
		return
	}
	total := 0
	for _, e := range m.Table {
		total += e.Weight
	}
	if total <= 0 {
		return
	}
	roll := sim.RNG.Stream(selectionStream).Intn(total)
	cumulative := 0
	var chosen TableEntry
	for _, e := range m.Table {
		cumulative += e.Weight
		if roll < cumulative {
			chosen = e
			break
		}
	}
	encounterevents.Selected(context.Background(), m.Publisher, evt.Tick, encounterevents.SelectedPayload{EntryID: chosen.ID})
	sim.Events.Schedule(evt.Tick+1, EventSelectionStub, map[string]any{
		"entryId":  chosen.ID,
		"actions":  actionsToParams(chosen.Actions),
		"location": evt.Params["location"],
	})
}

func (m *Module) onSelectionStub(sim *engine.Simulation, evt events.Event) {
	entryID, _ := evt.Params["entryId"].(string)
	actionsRaw, _ := evt.Params["actions"].([]any)
	actions := actionsFromParams(actionsRaw)
	if len(actions) == 0 {
		actions = []ActionTemplate{{Type: "signal_intent", SignalID: entryID}}
	}
	sim.Events.Schedule(evt.Tick+1, EventActionStub, map[string]any{
		"entryId":  entryID,
		"actions":  actionsToParams(actions),
		"location": evt.Params["location"],
	})
}

func (m *Module) onActionStub(sim *engine.Simulation, evt events.Event) {
	sim.Events.Schedule(evt.Tick+1, EventActionExecute, map[string]any{
		"entryId":      evt.Params["entryId"],
		"actions":      evt.Params["actions"],
		"location":     evt.Params["location"],
		"sourceEventId": evt.ID,
		"sourceTick":   float64(evt.Tick),
	})
}

func (m *Module) onActionExecute(sim *engine.Simulation, evt events.Event) {
	actionsRaw, _ := evt.Params["actions"].([]any)
	actions := actionsFromParams(actionsRaw)
	sourceEventID, _ := evt.Params["sourceEventId"].(string)
	location := evt.Params["location"]

	for idx, action := range actions {
		actionUID := fmt.Sprintf("%s:%d", sourceEventID, idx)
		outcome, mutation := m.executeAction(sim, evt.Tick, actionUID, action, location)
		encounterevents.ActionOutcome(context.Background(), m.Publisher, evt.Tick, encounterevents.ActionOutcomePayload{
			ActionType: action.Type,
			ActionUID:  actionUID,
			Outcome:    outcome,
			Mutation:   mutation,
		})
		if outcome == OutcomeExecuted && m.Observer != nil {
			if loc, ok := location.(map[string]any); ok {
				spaceID, _ := loc["spaceId"].(string)
				m.Observer.OnActionOutcome(sim, evt.Tick, actionUID, action.Type, worldstate.Location{SpaceID: spaceID})
			}
		}
		sim.Events.Schedule(evt.Tick, EventActionOutcome, map[string]any{
			"actionUid": actionUID,
			"outcome":   outcome,
			"mutation":  mutation,
			"actionType": action.Type,
			"location":  location,
		})
	}
}

func (m *Module) executeAction(sim *engine.Simulation, tick uint64, actionUID string, action ActionTemplate, location any) (outcome, mutation string) {
	if m.ledger.Contains(actionUID) {
		return OutcomeAlreadyExecuted, ""
	}
	loc, ok := location.(map[string]any)
	if !ok {
		m.ledger.Record(actionUID)
		return OutcomeIgnoredInvalidOrigin, ""
	}
	spaceID, _ := loc["spaceId"].(string)
	if spaceID == "" {
		m.ledger.Record(actionUID)
		return OutcomeIgnoredInvalidOrigin, ""
	}

	switch action.Type {
	case "signal_intent":
		sim.World.AppendSignal(worldstate.Signal{
			ID:          fmt.Sprintf("signal-%s", actionUID),
			TickEmitted: tick,
			SpaceID:     spaceID,
			Channel:     "sound",
			FalloffModel: "linear",
		})
		m.ledger.Record(actionUID)
		return OutcomeExecuted, "signal_appended"
	case "track_intent":
		sim.World.AppendTrack(worldstate.Track{ID: actionUID, TickMade: tick, Kind: "encounter"})
		m.ledger.Record(actionUID)
		return OutcomeExecuted, "track_appended"
	case "spawn_intent":
		sim.World.AppendSpawnDescriptor(worldstate.SpawnDescriptor{ActionUID: actionUID, TemplateID: action.SignalID, Quantity: 1})
		m.ledger.Record(actionUID)
		return OutcomeExecuted, "spawn_descriptor_appended"
	case "local_encounter_intent":
		sim.Enqueue(engine.Command{Tick: tick + 1, Type: "local_encounter_request", Params: map[string]any{"location": location}})
		m.ledger.Record(actionUID)
		return OutcomeExecuted, "local_encounter_requested"
	default:
		return OutcomeIgnoredUnsupported, ""
	}
}

func actionsToParams(actions []ActionTemplate) []any {
	out := make([]any, 0, len(actions))
	for _, a := range actions {
		out = append(out, map[string]any{"type": a.Type, "signalId": a.SignalID, "params": a.Params})
	}
	return out
}

func actionsFromParams(raw []any) []ActionTemplate {
	out := make([]ActionTemplate, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		a := ActionTemplate{}
		a.Type, _ = m["type"].(string)
		a.SignalID, _ = m["signalId"].(string)
		if p, ok := m["params"].(map[string]any); ok {
			a.Params = p
		}
		out = append(out, a)
	}
	return out
}

func copyParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func paramUint(v any) uint64 {
	switch n := v.(type) {
	case float64:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}

var _ engine.SimulationStarter = (*Module)(nil)
var _ engine.CommandHandler = (*Module)(nil)
var _ engine.EventHandler = (*Module)(nil)
