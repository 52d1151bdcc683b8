package interaction

import (
	"testing"

	"hexkeep/internal/engine"
	"hexkeep/internal/events"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
)

func TestOnCommandSchedulesExecuteAfterDuration(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{})

	handled := m.OnCommand(sim, engine.Command{
		Tick:     10,
		EntityID: "e1",
		Type:     EventInteractionIntent,
		Params:   map[string]any{"durationTicks": float64(3), "targetKind": "door"},
	}, 0)
	if !handled {
		t.Fatalf("expected interaction module to claim interaction_intent")
	}

	pending := sim.Events.Pending()
	if len(pending) != 1 || pending[0].Tick != 13 || pending[0].Type != EventInteractionExecute {
		t.Fatalf("expected interaction_execute scheduled at tick 13, got %+v", pending)
	}
	if pending[0].Params["entityId"] != "e1" {
		t.Fatalf("expected entityId carried into the scheduled event, got %+v", pending[0].Params)
	}
}

func TestOnCommandIgnoresOtherTypes(t *testing.T) {
	m := New(logging.NopPublisher{})
	sim := engine.New("seed")
	if m.OnCommand(sim, engine.Command{Type: "move_intent"}, 0) {
		t.Fatalf("interaction module must not claim unrelated command types")
	}
}

func TestOpenDoorClearsOcclusionEdge(t *testing.T) {
	sim := engine.New("seed")
	space, _ := sim.World.Space(worldstate.DefaultSpaceID)
	door := &worldstate.Door{ID: "d1", CellA: worldstate.Cell{A: 0, B: 0}, CellB: worldstate.Cell{A: 0, B: 1}, State: worldstate.DoorClosed}
	space.Doors["d1"] = door
	sim.World.SetOcclusion(worldstate.DefaultSpaceID, door.CellA, door.CellB, 5)

	m := New(logging.NopPublisher{})
	evt := events.Event{Tick: 1, Type: EventInteractionExecute, Params: map[string]any{
		"actionUid": "1:0", "targetKind": "door", "targetId": "d1",
		"spaceId": worldstate.DefaultSpaceID, "interactionType": "open", "entityId": "e1",
	}}
	m.OnEventExecuted(sim, evt)

	if door.State != worldstate.DoorOpen {
		t.Fatalf("expected door to open, got state %q", door.State)
	}
	if got := sim.World.OcclusionCost(worldstate.DefaultSpaceID, door.CellA, door.CellB); got != 0 {
		t.Fatalf("expected occlusion edge cleared on open, got cost %d", got)
	}
}

func TestLockedDoorBlocksInteraction(t *testing.T) {
	sim := engine.New("seed")
	space, _ := sim.World.Space(worldstate.DefaultSpaceID)
	door := &worldstate.Door{ID: "d1", State: worldstate.DoorClosed, Locked: true}
	space.Doors["d1"] = door

	m := New(logging.NopPublisher{})
	evt := events.Event{Tick: 1, Type: EventInteractionExecute, Params: map[string]any{
		"actionUid": "1:0", "targetKind": "door", "targetId": "d1",
		"spaceId": worldstate.DefaultSpaceID, "interactionType": "open", "entityId": "e1",
	}}
	m.OnEventExecuted(sim, evt)
	if door.State != worldstate.DoorClosed {
		t.Fatalf("a locked door must stay closed, got state %q", door.State)
	}
}

func TestEventExecutionIsIdempotentPerActionUID(t *testing.T) {
	sim := engine.New("seed")
	space, _ := sim.World.Space(worldstate.DefaultSpaceID)
	door := &worldstate.Door{ID: "d1", State: worldstate.DoorClosed}
	space.Doors["d1"] = door

	m := New(logging.NopPublisher{})
	evt := events.Event{Tick: 1, Type: EventInteractionExecute, Params: map[string]any{
		"actionUid": "1:0", "targetKind": "door", "targetId": "d1",
		"spaceId": worldstate.DefaultSpaceID, "interactionType": "open", "entityId": "e1",
	}}
	m.OnEventExecuted(sim, evt)
	door.State = worldstate.DoorClosed // simulate a replay attempt reverting state
	m.OnEventExecuted(sim, evt)
	if door.State != worldstate.DoorClosed {
		t.Fatalf("replaying the same action_uid must not re-apply the state change")
	}
}

func TestInteractableInspectRecordsLastInteraction(t *testing.T) {
	sim := engine.New("seed")
	space, _ := sim.World.Space(worldstate.DefaultSpaceID)
	ia := &worldstate.Interactable{ID: "ia1", Kind: "lever"}
	space.Interactables["ia1"] = ia

	m := New(logging.NopPublisher{})
	evt := events.Event{Tick: 7, Type: EventInteractionExecute, Params: map[string]any{
		"actionUid": "1:0", "targetKind": "interactable", "targetId": "ia1",
		"spaceId": worldstate.DefaultSpaceID, "interactionType": "inspect", "entityId": "e1",
	}}
	m.OnEventExecuted(sim, evt)
	if ia.State["lastInteractionType"] != "inspect" {
		t.Fatalf("expected inspect recorded, got %+v", ia.State)
	}
}

func TestAnchorExitEnqueuesTransitionCommand(t *testing.T) {
	sim := engine.New("seed")
	space, _ := sim.World.Space(worldstate.DefaultSpaceID)
	anchor := &worldstate.Anchor{ID: "an1", Target: worldstate.AnchorTarget{SpaceID: "arena-1"}}
	space.Anchors["an1"] = anchor

	m := New(logging.NopPublisher{})
	evt := events.Event{Tick: 7, Type: EventInteractionExecute, Params: map[string]any{
		"actionUid": "1:0", "targetKind": "anchor", "targetId": "an1",
		"spaceId": worldstate.DefaultSpaceID, "interactionType": "exit", "entityId": "e1",
	}}
	m.OnEventExecuted(sim, evt)

	if len(sim.InputLog) != 1 || sim.InputLog[0].Type != "transition_space" {
		t.Fatalf("expected a transition_space command enqueued, got %+v", sim.InputLog)
	}
	if sim.InputLog[0].Params["targetSpaceId"] != "arena-1" {
		t.Fatalf("expected target space id carried through, got %+v", sim.InputLog[0].Params)
	}
}

func TestNextDoorStateToggle(t *testing.T) {
	if got := nextDoorState(worldstate.DoorOpen, "toggle"); got != worldstate.DoorClosed {
		t.Fatalf("toggle from open should close, got %q", got)
	}
	if got := nextDoorState(worldstate.DoorClosed, "toggle"); got != worldstate.DoorOpen {
		t.Fatalf("toggle from closed should open, got %q", got)
	}
}

func TestOnSimulationStartRehydratesLedger(t *testing.T) {
	sim := engine.New("seed")
	_ = sim.Rules.Set("interaction", moduleState{Ledger: []string{"1:0"}})

	m := New(logging.NopPublisher{})
	m.OnSimulationStart(sim)
	if !m.ledger.Contains("1:0") {
		t.Fatalf("expected rehydrated ledger to contain the restored action uid")
	}
}
