package inventory

import (
	"testing"

	"hexkeep/internal/engine"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
)

func TestApplySpawnCreatesItem(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{}, nil)

	outcome := m.Apply(sim, "uid-1", "", "c1", "sword", 2)
	if outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %q", outcome)
	}
	c, ok := sim.World.Container("c1")
	if !ok || c.Items["sword"] != 2 {
		t.Fatalf("expected container c1 to hold 2 swords, got %+v ok=%v", c, ok)
	}
}

func TestApplyConsumeInsufficientQuantity(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{}, nil)
	c := sim.World.EnsureContainer("c1")
	c.SetItem("ration", 1)

	outcome := m.Apply(sim, "uid-1", "c1", "", "ration", 5)
	if outcome != OutcomeInsufficientQty {
		t.Fatalf("expected insufficient_quantity, got %q", outcome)
	}
	if c.Items["ration"] != 1 {
		t.Fatalf("expected quantity untouched on rejection, got %d", c.Items["ration"])
	}
}

func TestApplyTransferMovesBetweenContainers(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{}, nil)
	src := sim.World.EnsureContainer("src")
	src.SetItem("torch", 4)

	outcome := m.Apply(sim, "uid-1", "src", "dst", "torch", 3)
	if outcome != OutcomeApplied {
		t.Fatalf("expected applied, got %q", outcome)
	}
	if src.Items["torch"] != 1 {
		t.Fatalf("expected source left with 1 torch, got %d", src.Items["torch"])
	}
	dst, ok := sim.World.Container("dst")
	if !ok || dst.Items["torch"] != 3 {
		t.Fatalf("expected destination to hold 3 torches, got %+v ok=%v", dst, ok)
	}
}

func TestApplyRejectsUnknownContainer(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{}, nil)
	outcome := m.Apply(sim, "uid-1", "missing", "", "torch", 1)
	if outcome != OutcomeUnknownContainer {
		t.Fatalf("expected unknown_container, got %q", outcome)
	}
}

func TestApplyRejectsUnknownItemWhenRestricted(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{}, map[string]bool{"sword": true})
	outcome := m.Apply(sim, "uid-1", "", "c1", "bow", 1)
	if outcome != OutcomeUnknownItem {
		t.Fatalf("expected unknown_item, got %q", outcome)
	}
}

func TestApplyIsIdempotentPerActionUID(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{}, nil)

	first := m.Apply(sim, "uid-1", "", "c1", "sword", 1)
	second := m.Apply(sim, "uid-1", "", "c1", "sword", 1)
	if first != OutcomeApplied {
		t.Fatalf("expected first application to succeed, got %q", first)
	}
	if second != OutcomeAlreadyApplied {
		t.Fatalf("expected replayed action_uid to be rejected as already_applied, got %q", second)
	}
	c, _ := sim.World.Container("c1")
	if c.Items["sword"] != 1 {
		t.Fatalf("expected quantity unchanged by the replayed application, got %d", c.Items["sword"])
	}
}

func TestOnCommandDerivesActionUIDWhenAbsent(t *testing.T) {
	sim := engine.New("seed")
	m := New(logging.NopPublisher{}, nil)

	handled := m.OnCommand(sim, engine.Command{
		Tick: 3, EntityID: "e1", Type: EventInventoryIntent,
		Params: map[string]any{"dstContainerId": "c1", "itemId": "torch", "quantity": float64(1)},
	}, 2)
	if !handled {
		t.Fatalf("expected inventory module to claim inventory_intent")
	}
	if !m.ledger.Contains(engine.ActionUID(3, 2)) {
		t.Fatalf("expected derived action_uid %q recorded in the ledger", engine.ActionUID(3, 2))
	}
}

func TestOnCommandIgnoresOtherTypes(t *testing.T) {
	m := New(logging.NopPublisher{}, nil)
	sim := engine.New("seed")
	if m.OnCommand(sim, engine.Command{Type: "move_intent"}, 0) {
		t.Fatalf("inventory module must not claim unrelated command types")
	}
}

func TestDropContainerIDIsDeterministic(t *testing.T) {
	a := DropContainerID("overworld", worldstate.Cell{A: 1, B: 2})
	b := DropContainerID("overworld", worldstate.Cell{A: 1, B: 2})
	if a != b {
		t.Fatalf("expected deterministic drop container id, got %q vs %q", a, b)
	}
	c := DropContainerID("overworld", worldstate.Cell{A: 1, B: 3})
	if a == c {
		t.Fatalf("expected distinct cells to produce distinct drop container ids")
	}
}

func TestOnSimulationStartRehydratesLedger(t *testing.T) {
	sim := engine.New("seed")
	_ = sim.Rules.Set("inventory", moduleState{Ledger: []string{"3:1"}})

	m := New(logging.NopPublisher{}, nil)
	m.OnSimulationStart(sim)
	if !m.ledger.Contains("3:1") {
		t.Fatalf("expected rehydrated ledger to contain the restored action uid")
	}
}
