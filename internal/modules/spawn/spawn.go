// Package spawn implements descriptor-driven entity materialization:
// every tick, pending spawn descriptors not yet in the materialized
// ledger are turned into concrete entities, placed via topology-aware
// cell-to-world conversion.
package spawn

import (
	"context"
	"fmt"

	"hexkeep/internal/engine"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	worldevents "hexkeep/logging/world"
)

// Module materializes entities from world.spawn_descriptors on tick-start.
type Module struct {
	Publisher logging.Publisher

	ledger   *rules.Ledger
	warnings []string
}

// New constructs the spawn module.
func New(pub logging.Publisher) *Module {
	return &Module{Publisher: pub, ledger: rules.NewLedger(engine.MaxExecutedActionUIDs)}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "spawn" }

type moduleState struct {
	Ledger   []string `json:"ledger"`
	Warnings []string `json:"warnings"`
}

// OnSimulationStart rehydrates the materialized-spawn ledger from a loaded save.
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
		if arr, ok := mm["warnings"].([]any); ok {
			for _, w := range arr {
				if s, ok := w.(string); ok {
					m.warnings = append(m.warnings, s)
				}
			}
		}
	}
	m.ledger = rules.RestoreLedger(engine.MaxExecutedActionUIDs, entries)
}

// OnTickStart scans world.spawn_descriptors for not-yet-materialized
// descriptors and creates their entities.
func (m *Module) OnTickStart(sim *engine.Simulation, tick uint64) {
	changed := false
	for _, desc := range sim.World.SpawnDescs {
		if m.ledger.Contains(desc.ActionUID) {
			continue
		}
		space, ok := sim.World.Space(desc.Location.SpaceID)
		if !ok {
			m.warn(fmt.Sprintf("%s: unknown space %s", desc.ActionUID, desc.Location.SpaceID))
			m.ledger.Record(desc.ActionUID)
			changed = true
			continue
		}
		wx, wy, ok := cellToWorld(space.Topology, desc.Location.Cell)
		if !ok {
			m.warn(fmt.Sprintf("%s: unsupported topology %s", desc.ActionUID, space.Topology))
			m.ledger.Record(desc.ActionUID)
			changed = true
			continue
		}
		for i := 0; i < desc.Quantity; i++ {
			entityID := fmt.Sprintf("spawn:%s:%d", desc.ActionUID, i)
			ent := worldstate.NewEntity(entityID, desc.Location.SpaceID)
			ent.Position = worldstate.Vector2{X: wx, Y: wy}
			ent.TemplateID = desc.TemplateID
			ent.SourceActionUID = desc.ActionUID
			sim.Entities.Add(ent)
			worldevents.SpawnMaterialized(context.Background(), m.Publisher, tick, worldevents.SpawnMaterializedPayload{
				EntityID:   entityID,
				TemplateID: desc.TemplateID,
			})
		}
		m.ledger.Record(desc.ActionUID)
		changed = true
	}
	if changed {
		_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries, Warnings: m.warnings})
	}
}

func (m *Module) warn(msg string) {
	const maxWarnings = 128
	m.warnings = append(m.warnings, msg)
	if len(m.warnings) > maxWarnings {
		m.warnings = m.warnings[len(m.warnings)-maxWarnings:]
	}
}

func cellToWorld(topo hexgrid.Topology, cell worldstate.Cell) (x, y float64, ok bool) {
	switch topo {
	case hexgrid.TopologyHexDisk, hexgrid.TopologyHexRectangle, hexgrid.TopologyCustomHex:
		x, y = hexgrid.AxialToWorld(cell.Axial())
		return x, y, true
	case hexgrid.TopologySquareGrid:
		x, y = hexgrid.SquareToWorld(cell.Square(), 32)
		return x, y, true
	default:
		return 0, 0, false
	}
}

var _ engine.SimulationStarter = (*Module)(nil)
var _ engine.TickStarter = (*Module)(nil)
