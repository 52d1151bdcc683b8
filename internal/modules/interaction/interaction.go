// Package interaction implements interaction_intent and its delayed
// execution: door/anchor/interactable state changes and cross-space
// transitions, with a door state machine coupled to the world's occlusion
// graph.
package interaction

import (
	"context"

	"hexkeep/internal/engine"
	"hexkeep/internal/events"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	worldevents "hexkeep/logging/world"
)

const (
	// EventInteractionIntent is the command type for interaction_intent.
	EventInteractionIntent = "interaction_intent"
	// EventInteractionExecute fires duration_ticks after the intent.
	EventInteractionExecute = "interaction_execute"
)

// Outcome values recorded for telemetry/testing.
const (
	OutcomeBlocked = "blocked"
	OutcomeApplied = "applied"
)

// Module implements door/anchor/interactable interaction handling.
type Module struct {
	Publisher logging.Publisher

	ledger *rules.Ledger
}

// New constructs the interaction rule module.
func New(pub logging.Publisher) *Module {
	return &Module{Publisher: pub, ledger: rules.NewLedger(engine.MaxExecutedActionUIDs)}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "interaction" }

type moduleState struct {
	Ledger []string `json:"ledger"`
}

// OnSimulationStart rehydrates the executed-action ledger from a loaded save.
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
	}
	m.ledger = rules.RestoreLedger(engine.MaxExecutedActionUIDs, entries)
}

// OnCommand schedules interaction_execute after duration_ticks.
func (m *Module) OnCommand(sim *engine.Simulation, cmd engine.Command, index int) bool {
	if cmd.Type != EventInteractionIntent {
		return false
	}
	duration := paramUint(cmd.Params["durationTicks"])
	params := copyParams(cmd.Params)
	params["actionUid"] = engine.ActionUID(cmd.Tick, index)
	params["entityId"] = cmd.EntityID
	sim.Events.Schedule(cmd.Tick+duration, EventInteractionExecute, params)
	return true
}

// OnEventExecuted performs the actual state transition.
func (m *Module) OnEventExecuted(sim *engine.Simulation, evt events.Event) {
	if evt.Type != EventInteractionExecute {
		return
	}
	uid, _ := evt.Params["actionUid"].(string)
	if uid != "" && !m.ledger.Record(uid) {
		_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries})
		return
	}
	defer func() { _ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries}) }()

	targetKind, _ := evt.Params["targetKind"].(string)
	targetID, _ := evt.Params["targetId"].(string)
	spaceID, _ := evt.Params["spaceId"].(string)
	interactionType, _ := evt.Params["interactionType"].(string)
	entityID, _ := evt.Params["entityId"].(string)

	space, ok := sim.World.Space(spaceID)
	if !ok {
		return
	}

	actorRef := logging.EntityRef{ID: entityID, Kind: logging.KindEntity}
	switch targetKind {
	case "door":
		door, ok := space.Doors[targetID]
		if !ok {
			return
		}
		if door.Locked || door.Blocked {
			worldevents.InteractionResolved(context.Background(), m.Publisher, evt.Tick, actorRef, worldevents.InteractionResolvedPayload{Kind: targetKind, Outcome: OutcomeBlocked})
			return
		}
		next := nextDoorState(door.State, interactionType)
		sim.World.SetDoorState(spaceID, door, next)
		worldevents.InteractionResolved(context.Background(), m.Publisher, evt.Tick, actorRef, worldevents.InteractionResolvedPayload{Kind: targetKind, Outcome: OutcomeApplied})
	case "interactable":
		ia, ok := space.Interactables[targetID]
		if !ok {
			return
		}
		if interactionType == "inspect" || interactionType == "use" {
			if ia.State == nil {
				ia.State = make(map[string]any)
			}
			ia.State["lastInteractionType"] = interactionType
			ia.State["lastInteractionTick"] = float64(evt.Tick)
		}
		worldevents.InteractionResolved(context.Background(), m.Publisher, evt.Tick, actorRef, worldevents.InteractionResolvedPayload{Kind: targetKind, Outcome: OutcomeApplied})
	case "anchor":
		anchor, ok := space.Anchors[targetID]
		if !ok {
			return
		}
		if interactionType != "exit" {
			return
		}
		worldevents.InteractionResolved(context.Background(), m.Publisher, evt.Tick, actorRef, worldevents.InteractionResolvedPayload{Kind: targetKind, Outcome: OutcomeApplied})
		if anchor.Target.SpaceID != "" {
			sim.Enqueue(engine.Command{
				Tick:     evt.Tick + 1,
				EntityID: entityID,
				Type:     "transition_space",
				Params:   map[string]any{"targetSpaceId": anchor.Target.SpaceID},
			})
		} else if anchor.Target.SiteID != "" {
			sim.Enqueue(engine.Command{
				Tick:     evt.Tick + 1,
				EntityID: entityID,
				Type:     "enter_site",
				Params:   map[string]any{"siteId": anchor.Target.SiteID},
			})
		}
	}
}

func nextDoorState(cur worldstate.DoorState, interactionType string) worldstate.DoorState {
	switch interactionType {
	case "open":
		return worldstate.DoorOpen
	case "close":
		return worldstate.DoorClosed
	case "toggle":
		if cur == worldstate.DoorOpen {
			return worldstate.DoorClosed
		}
		return worldstate.DoorOpen
	default:
		return cur
	}
}

func copyParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
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
