package spawn

import (
	"testing"

	"hexkeep/internal/engine"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
)

func TestOnTickStartMaterializesQuantity(t *testing.T) {
	sim := engine.New("seed")
	sim.World.AppendSpawnDescriptor(worldstate.SpawnDescriptor{
		ActionUID:  "spawn-1",
		TemplateID: "goblin",
		Quantity:   3,
		Location:   worldstate.Location{SpaceID: worldstate.DefaultSpaceID, Cell: worldstate.Cell{A: 0, B: 0}},
	})

	m := New(logging.NopPublisher{})
	m.OnTickStart(sim, 0)

	if sim.Entities.Len() != 3 {
		t.Fatalf("expected 3 entities materialized, got %d", sim.Entities.Len())
	}
	for i := 0; i < 3; i++ {
		id := "spawn:spawn-1:" + string(rune('0'+i))
		ent, ok := sim.Entities.Get(id)
		if !ok || ent.TemplateID != "goblin" {
			t.Fatalf("expected entity %q with template goblin, got %+v ok=%v", id, ent, ok)
		}
	}
}

func TestOnTickStartIsIdempotentPerDescriptor(t *testing.T) {
	sim := engine.New("seed")
	sim.World.AppendSpawnDescriptor(worldstate.SpawnDescriptor{
		ActionUID: "spawn-1", Quantity: 1,
		Location: worldstate.Location{SpaceID: worldstate.DefaultSpaceID, Cell: worldstate.Cell{A: 0, B: 0}},
	})
	m := New(logging.NopPublisher{})
	m.OnTickStart(sim, 0)
	m.OnTickStart(sim, 1)
	if sim.Entities.Len() != 1 {
		t.Fatalf("expected descriptor materialized only once across ticks, got %d entities", sim.Entities.Len())
	}
}

func TestOnTickStartWarnsOnUnknownSpace(t *testing.T) {
	sim := engine.New("seed")
	sim.World.AppendSpawnDescriptor(worldstate.SpawnDescriptor{
		ActionUID: "spawn-1", Quantity: 1,
		Location: worldstate.Location{SpaceID: "nonexistent", Cell: worldstate.Cell{A: 0, B: 0}},
	})
	m := New(logging.NopPublisher{})
	m.OnTickStart(sim, 0)
	if sim.Entities.Len() != 0 {
		t.Fatalf("expected no entities materialized for an unknown space")
	}
	if len(m.warnings) != 1 {
		t.Fatalf("expected one warning recorded, got %v", m.warnings)
	}
	if !m.ledger.Contains("spawn-1") {
		t.Fatalf("expected the failed descriptor marked handled so it isn't retried forever")
	}
}

func TestOnSimulationStartRehydratesLedgerAndWarnings(t *testing.T) {
	sim := engine.New("seed")
	_ = sim.Rules.Set("spawn", moduleState{Ledger: []string{"spawn-1"}, Warnings: []string{"w1"}})
	m := New(logging.NopPublisher{})
	m.OnSimulationStart(sim)
	if !m.ledger.Contains("spawn-1") {
		t.Fatalf("expected rehydrated ledger to contain spawn-1")
	}
	if len(m.warnings) != 1 || m.warnings[0] != "w1" {
		t.Fatalf("expected rehydrated warnings, got %v", m.warnings)
	}
}
