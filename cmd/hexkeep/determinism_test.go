package main

import (
	"context"
	"testing"

	"hexkeep/internal/content"
	"hexkeep/internal/engine"
	"hexkeep/internal/modules/combat"
	"hexkeep/internal/modules/entitymods"
	"hexkeep/internal/modules/scheduler"
	"hexkeep/internal/modules/signals"
	"hexkeep/internal/modules/spawn"
	"hexkeep/internal/saveio"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
)

const determinismSeed = "hexkeep-determinism-harness"

// buildDeterminismSim constructs a fresh simulation wired with a
// representative module set, an entity, and a fixed command script, without
// touching any on-disk content registry.
func buildDeterminismSim(t *testing.T) *engine.Simulation {
	t.Helper()
	sim := engine.New(determinismSeed)

	sched := scheduler.New()
	sig := signals.New(logging.NopPublisher{})
	cbt := combat.New(logging.NopPublisher{})
	ent := entitymods.New()
	spw := spawn.New(logging.NopPublisher{})
	for _, m := range []engine.Module{sched, sig, cbt, ent, spw} {
		if err := sim.Register(m); err != nil {
			t.Fatalf("register %s: %v", m.Name(), err)
		}
	}

	wanderer := worldstate.NewEntity("wanderer", worldstate.DefaultSpaceID)
	wanderer.SpeedPerTick = 1
	sim.Entities.Add(wanderer)

	sim.Start()

	sim.Enqueue(engine.Command{Tick: 0, EntityID: "wanderer", Type: entitymods.CommandSetTargetPosition, Params: map[string]any{"x": 10.0, "y": 0.0}})
	sim.Enqueue(engine.Command{Tick: 3, EntityID: "wanderer", Type: signals.EventEmitSignal, Params: map[string]any{
		"spaceId":       worldstate.DefaultSpaceID,
		"channel":       "sound",
		"origin":        map[string]any{"a": 0.0, "b": 0.0},
		"durationTicks": 1.0,
	}})
	sim.Enqueue(engine.Command{Tick: 6, EntityID: "wanderer", Type: entitymods.CommandStop})

	return sim
}

func runDeterminismHarness(t *testing.T) string {
	t.Helper()
	sim := buildDeterminismSim(t)
	if err := sim.AdvanceTicks(context.Background(), 10, nil); err != nil {
		t.Fatalf("AdvanceTicks: %v", err)
	}

	exported, err := content.ExportWorldMap(sim.World, "")
	if err != nil {
		t.Fatalf("ExportWorldMap: %v", err)
	}
	worldHash, err := content.WorldHash(exported)
	if err != nil {
		t.Fatalf("WorldHash: %v", err)
	}
	doc, err := saveio.Build(sim, worldHash, nil)
	if err != nil {
		t.Fatalf("saveio.Build: %v", err)
	}
	return doc.SaveHash
}

// TestDeterminismHarnessReplayIsBitExact replays the same (world, seed,
// command script) twice from independent simulations and asserts the two
// runs produce an identical save_hash: same tick-loop order, same RNG
// stream derivation, same floating-point movement integration.
func TestDeterminismHarnessReplayIsBitExact(t *testing.T) {
	first := runDeterminismHarness(t)
	second := runDeterminismHarness(t)
	if first == "" {
		t.Fatalf("expected a non-empty save_hash")
	}
	if first != second {
		t.Fatalf("determinism harness drift: first run %s, second run %s", first, second)
	}
}

// TestDeterminismHarnessDiffersWithADifferentSeed is the harness's negative
// control: a different master seed must not coincidentally reproduce the
// same save_hash.
func TestDeterminismHarnessDiffersWithADifferentSeed(t *testing.T) {
	sim := buildDeterminismSim(t)
	sim.MasterSeed = determinismSeed + "-alternate"
	if err := sim.AdvanceTicks(context.Background(), 10, nil); err != nil {
		t.Fatalf("AdvanceTicks: %v", err)
	}

	exported, err := content.ExportWorldMap(sim.World, "")
	if err != nil {
		t.Fatalf("ExportWorldMap: %v", err)
	}
	worldHash, err := content.WorldHash(exported)
	if err != nil {
		t.Fatalf("WorldHash: %v", err)
	}
	doc, err := saveio.Build(sim, worldHash, nil)
	if err != nil {
		t.Fatalf("saveio.Build: %v", err)
	}

	baseline := runDeterminismHarness(t)
	if doc.SaveHash == baseline {
		t.Fatalf("expected a relabeled master seed to change save_hash")
	}
}
