// Package supply implements the periodic per-entity consumption loop: a
// per-entity timer composing the scheduler's periodic-task primitive with
// the inventory module's Apply entry point to consume fixed quantities of
// an item on a fixed interval.
package supply

import (
	"context"
	"fmt"
	"sort"

	"hexkeep/internal/engine"
	"hexkeep/internal/modules/inventory"
	"hexkeep/internal/modules/scheduler"
	"hexkeep/internal/rules"
	"hexkeep/logging"
	economyevents "hexkeep/logging/economy"
)

// ConsumeLine is one (item_id, quantity, interval_ticks) entry in a supply
// profile.
type ConsumeLine struct {
	ItemID       string `json:"itemId"`
	Quantity     int    `json:"quantity"`
	IntervalTicks uint64 `json:"intervalTicks"`
}

// Profile is a named supply profile loaded from content.
type Profile struct {
	ID    string        `json:"id"`
	Lines []ConsumeLine `json:"lines"`
}

// Module wires supply consumption atop the scheduler and inventory modules.
type Module struct {
	Publisher  logging.Publisher
	Scheduler  *scheduler.Module
	Inventory  *inventory.Module
	Profiles   map[string]Profile

	appliedLedger *rules.Ledger
	warnings      []string
}

// New constructs the supply consumption module.
func New(pub logging.Publisher, sched *scheduler.Module, inv *inventory.Module, profiles map[string]Profile) *Module {
	return &Module{
		Publisher:     pub,
		Scheduler:     sched,
		Inventory:     inv,
		Profiles:      profiles,
		appliedLedger: rules.NewLedger(engine.MaxExecutedActionUIDs),
	}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "supply" }

type moduleState struct {
	Ledger   []string `json:"ledger"`
	Warnings []string `json:"warnings"`
}

// OnSimulationStart registers one periodic task per (entity, consume-line)
// pair.
func (m *Module) OnSimulationStart(sim *engine.Simulation) {
	raw := sim.Rules.Get(m.Name())
	mm, _ := raw.(map[string]any)
	var ledgerEntries []string
	if mm != nil {
		if arr, ok := mm["ledger"].([]any); ok {
			for _, e := range arr {
				if s, ok := e.(string); ok {
					ledgerEntries = append(ledgerEntries, s)
				}
			}
		}
		if arr, ok := mm["warnings"].([]any); ok {
			for _, w := range arr {
				if s, ok := w.(string); ok {
					m.warnings = append(m.warnings, s)
				}
			}
		}
	}
	m.appliedLedger = rules.RestoreLedger(engine.MaxExecutedActionUIDs, ledgerEntries)

	for _, ent := range sim.Entities.All() {
		if ent.SupplyProfileID == "" {
			continue
		}
		profile, ok := m.Profiles[ent.SupplyProfileID]
		if !ok {
			continue
		}
		for i, line := range profile.Lines {
			taskName := fmt.Sprintf("supply:%s:%d", ent.ID, i)
			entityID, lineIdx, line := ent.ID, i, line
			if err := m.Scheduler.RegisterTask(sim, taskName, line.IntervalTicks, line.IntervalTicks); err != nil {
				continue
			}
			_ = m.Scheduler.SetTaskCallback(taskName, func(sim *engine.Simulation, tick uint64) {
				m.consume(sim, entityID, lineIdx, line, tick)
			})
		}
	}
}

func (m *Module) consume(sim *engine.Simulation, entityID string, lineIdx int, line ConsumeLine, tick uint64) {
	ent, ok := sim.Entities.Get(entityID)
	if !ok || ent.InventoryContainerID == "" {
		return
	}
	actionUID := fmt.Sprintf("supply:%s:%d:%d", entityID, lineIdx, tick)
	outcome := m.Inventory.Apply(sim, actionUID, ent.InventoryContainerID, "", line.ItemID, line.Quantity)

	var supplyOutcome string
	switch outcome {
	case inventory.OutcomeApplied:
		supplyOutcome = "consumed"
		m.appliedLedger.Record(actionUID)
	case inventory.OutcomeInsufficientQty:
		supplyOutcome = "insufficient_supply"
		m.appendWarning(fmt.Sprintf("%s: insufficient %s at tick %d", entityID, line.ItemID, tick))
	default:
		supplyOutcome = outcome
	}

	economyevents.SupplyOutcome(context.Background(), m.Publisher, tick, logging.EntityRef{ID: entityID, Kind: logging.KindEntity}, economyevents.SupplyOutcomePayload{
		ItemID:  line.ItemID,
		Outcome: supplyOutcome,
	})
	_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.appliedLedger.Entries, Warnings: m.warnings})
}

func (m *Module) appendWarning(w string) {
	m.warnings = append(m.warnings, w)
	const maxWarnings = 128
	if len(m.warnings) > maxWarnings {
		m.warnings = m.warnings[len(m.warnings)-maxWarnings:]
	}
}

// Warnings returns the bounded warning list, sorted for deterministic save
// output inspection in tests.
func (m *Module) Warnings() []string {
	out := make([]string, len(m.warnings))
	copy(out, m.warnings)
	sort.Strings(out)
	return out
}

var _ engine.SimulationStarter = (*Module)(nil)
