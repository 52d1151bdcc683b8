package supply

import (
	"testing"

	"hexkeep/internal/engine"
	"hexkeep/internal/modules/inventory"
	"hexkeep/internal/modules/scheduler"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
)

func newSupplySim(t *testing.T) (*engine.Simulation, *Module) {
	t.Helper()
	sim := engine.New("seed")
	sched := scheduler.New()
	inv := inventory.New(logging.NopPublisher{}, nil)

	ent := worldstate.NewEntity("e1", worldstate.DefaultSpaceID)
	ent.SupplyProfileID = "ration-profile"
	ent.InventoryContainerID = "e1-inv"
	sim.Entities.Add(ent)

	profiles := map[string]Profile{
		"ration-profile": {ID: "ration-profile", Lines: []ConsumeLine{
			{ItemID: "ration", Quantity: 1, IntervalTicks: 10},
		}},
	}
	m := New(logging.NopPublisher{}, sched, inv, profiles)
	sched.OnSimulationStart(sim)
	m.OnSimulationStart(sim)
	return sim, m
}

func TestOnSimulationStartRegistersPerEntityTask(t *testing.T) {
	sim, _ := newSupplySim(t)
	pending := sim.Events.Pending()
	if len(pending) != 1 || pending[0].Tick != 10 {
		t.Fatalf("expected one supply task scheduled at tick 10, got %+v", pending)
	}
}

func TestConsumeAppliesWhenSupplyAvailable(t *testing.T) {
	sim, m := newSupplySim(t)
	container := sim.World.EnsureContainer("e1-inv")
	container.SetItem("ration", 5)

	m.consume(sim, "e1", 0, ConsumeLine{ItemID: "ration", Quantity: 1, IntervalTicks: 10}, 10)

	if container.Items["ration"] != 4 {
		t.Fatalf("expected one ration consumed, got %d", container.Items["ration"])
	}
	if len(m.Warnings()) != 0 {
		t.Fatalf("expected no warnings on a successful consumption, got %v", m.Warnings())
	}
}

func TestConsumeWarnsWhenSupplyInsufficient(t *testing.T) {
	sim, m := newSupplySim(t)
	container := sim.World.EnsureContainer("e1-inv")
	container.SetItem("ration", 0)

	m.consume(sim, "e1", 0, ConsumeLine{ItemID: "ration", Quantity: 1, IntervalTicks: 10}, 10)

	if len(m.Warnings()) != 1 {
		t.Fatalf("expected one warning recorded for insufficient supply, got %v", m.Warnings())
	}
}

func TestConsumeIsIdempotentPerTick(t *testing.T) {
	sim, m := newSupplySim(t)
	container := sim.World.EnsureContainer("e1-inv")
	container.SetItem("ration", 5)

	m.consume(sim, "e1", 0, ConsumeLine{ItemID: "ration", Quantity: 1, IntervalTicks: 10}, 10)
	m.consume(sim, "e1", 0, ConsumeLine{ItemID: "ration", Quantity: 1, IntervalTicks: 10}, 10)

	if container.Items["ration"] != 4 {
		t.Fatalf("expected only one consumption applied for the same (entity, line, tick), got quantity %d", container.Items["ration"])
	}
}

func TestAppendWarningFIFOEviction(t *testing.T) {
	m := New(logging.NopPublisher{}, scheduler.New(), inventory.New(logging.NopPublisher{}, nil), nil)
	for i := 0; i < 200; i++ {
		m.appendWarning("w")
	}
	if len(m.Warnings()) != 128 {
		t.Fatalf("expected warnings capped at 128, got %d", len(m.Warnings()))
	}
}
