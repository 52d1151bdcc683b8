package main

import (
	"fmt"

	"hexkeep/internal/content"
	"hexkeep/internal/engine"
	"hexkeep/internal/modules/combat"
	"hexkeep/internal/modules/encounter"
	"hexkeep/internal/modules/entitymods"
	"hexkeep/internal/modules/interaction"
	"hexkeep/internal/modules/inventory"
	"hexkeep/internal/modules/localencounter"
	"hexkeep/internal/modules/rumor"
	"hexkeep/internal/modules/scheduler"
	"hexkeep/internal/modules/signals"
	"hexkeep/internal/modules/spawn"
	"hexkeep/internal/modules/supply"
	"hexkeep/logging"
)

// buildModules loads every content registry and registers the full rule
// module set against sim, in dependency order: scheduler first (every
// periodic-task user enqueues against it), encounter before rumor (rumor
// observes encounter outcomes via OutcomeObserver).
func buildModules(sim *engine.Simulation, cfg Config, pub logging.Publisher) error {
	encounterTable, err := content.LoadEncounterTable(cfg.EncounterTable)
	if err != nil {
		return fmt.Errorf("load encounter table: %w", err)
	}
	supplyProfiles, err := content.LoadSupplyProfiles(cfg.SupplyProfiles)
	if err != nil {
		return fmt.Errorf("load supply profiles: %w", err)
	}
	_, knownItems, err := content.LoadItemCatalog(cfg.ItemCatalog)
	if err != nil {
		return fmt.Errorf("load item catalog: %w", err)
	}
	arenaTemplates, err := content.LoadArenaTemplates(cfg.ArenaTemplates)
	if err != nil {
		return fmt.Errorf("load arena templates: %w", err)
	}

	sched := scheduler.New()
	sig := signals.New(pub)
	cbt := combat.New(pub)
	act := interaction.New(pub)
	inv := inventory.New(pub, knownItems)
	sup := supply.New(pub, sched, inv, supplyProfiles)
	enc := encounter.New(pub, sched, encounterTable)
	ent := entitymods.New()
	local := localencounter.New(pub, arenaTemplates)
	rum := rumor.New(pub, sched)
	spw := spawn.New(pub)

	enc.Observer = rum

	modules := []engine.Module{sched, sig, cbt, act, inv, sup, enc, ent, local, rum, spw}
	for _, m := range modules {
		if err := sim.Register(m); err != nil {
			return fmt.Errorf("register module %s: %w", m.Name(), err)
		}
	}
	return nil
}
