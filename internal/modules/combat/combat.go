// Package combat implements attack_intent validation and resolution:
// melee/ranged range and cooldown validation against hex-arc facing, typed
// rejection reasons, and a bounded combat log kept in rules-state.
package combat

import (
	"context"
	"fmt"
	"sort"

	"hexkeep/internal/engine"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	combatevents "hexkeep/logging/combat"
)

// EventAttackIntent is the command type for attack_intent.
const EventAttackIntent = "attack_intent"

// Rejection reasons, stable strings.
const (
	ReasonInvalidAttacker               = "invalid_attacker"
	ReasonInvalidMode                   = "invalid_mode"
	ReasonInvalidTarget                 = "invalid_target"
	ReasonInvalidTargetCell             = "invalid_target_cell"
	ReasonInvalidTargetCellCoordForSpace = "invalid_target_cell_coord_for_space"
	ReasonSpaceMismatch                 = "space_mismatch"
	ReasonTargetCellMismatch            = "target_cell_mismatch"
	ReasonNoTargetInCell                = "no_target_in_cell"
	ReasonTacticalNotAllowed            = "tactical_not_allowed_in_campaign_space"
	ReasonOutOfRange                    = "out_of_range"
	ReasonInvalidArc                    = "invalid_arc"
	ReasonInvalidArcCoord               = "invalid_arc_coord"
	ReasonCooldownBlocked               = "cooldown_blocked"
	ReasonResolved                      = "resolved"
)

var validModes = map[string]bool{"melee": true, "ranged": true}

// AffectedEntry records one resolved target of an accepted attack.
type AffectedEntry struct {
	EntityID string `json:"entityId"`
	Region   string `json:"region"`
	Severity int    `json:"severity"`
}

// LogEntry is one combat-log record, bounded FIFO.
type LogEntry struct {
	Tick       uint64          `json:"tick"`
	AttackerID string          `json:"attackerId"`
	Mode       string          `json:"mode"`
	Reason     string          `json:"reason"`
	Affected   []AffectedEntry `json:"affected,omitempty"`
}

// Module is a registered CommandHandler that claims attack_intent; modules
// registered before it see the command first and may handle it instead.
type Module struct {
	Publisher logging.Publisher

	log []LogEntry
}

// New constructs the combat rule module.
func New(pub logging.Publisher) *Module {
	return &Module{Publisher: pub}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "combat" }

type moduleState struct {
	Log []LogEntry `json:"log"`
}

// OnSimulationStart rehydrates the combat log from a loaded save.
func (m *Module) OnSimulationStart(sim *engine.Simulation) {
	raw := sim.Rules.Get(m.Name())
	mm, ok := raw.(map[string]any)
	if !ok {
		return
	}
	entries, ok := mm["log"].([]any)
	if !ok {
		return
	}
	for _, e := range entries {
		em, ok := e.(map[string]any)
		if !ok {
			continue
		}
		m.log = append(m.log, LogEntry{
			Tick:       paramUint(em["tick"]),
			AttackerID: fmt.Sprint(em["attackerId"]),
			Mode:       fmt.Sprint(em["mode"]),
			Reason:     fmt.Sprint(em["reason"]),
		})
	}
}

// OnCommand resolves attack_intent, appending to the combat log and
// publishing telemetry regardless of outcome.
func (m *Module) OnCommand(sim *engine.Simulation, cmd engine.Command, index int) bool {
	if cmd.Type != EventAttackIntent {
		return false
	}
	entry := m.resolve(sim, cmd)
	m.appendLog(entry)
	_ = sim.Rules.Set(m.Name(), moduleState{Log: m.log})
	attackerRef := logging.EntityRef{ID: entry.AttackerID, Kind: logging.KindEntity}
	combatevents.AttackResolved(context.Background(), m.Publisher, cmd.Tick, attackerRef, combatevents.AttackResolvedPayload{
		Mode:   entry.Mode,
		Reason: entry.Reason,
	})
	for _, a := range entry.Affected {
		combatevents.WoundInflicted(context.Background(), m.Publisher, cmd.Tick, attackerRef, logging.EntityRef{ID: a.EntityID, Kind: logging.KindEntity}, combatevents.WoundInflictedPayload{
			Region:   a.Region,
			Severity: a.Severity,
		})
	}
	return true
}

func (m *Module) resolve(sim *engine.Simulation, cmd engine.Command) LogEntry {
	attackerID := cmd.EntityID
	mode, _ := cmd.Params["mode"].(string)
	entry := LogEntry{Tick: cmd.Tick, AttackerID: attackerID, Mode: mode}

	attacker, ok := sim.Entities.Get(attackerID)
	if !ok {
		entry.Reason = ReasonInvalidAttacker
		return entry
	}
	if space, ok := sim.World.Space(attacker.SpaceID); ok && space.Role == worldstate.RoleCampaign {
		entry.Reason = ReasonTacticalNotAllowed
		return entry
	}
	if !validModes[mode] {
		entry.Reason = ReasonInvalidMode
		return entry
	}

	targetID, _ := cmd.Params["targetId"].(string)
	var target *worldstate.EntityState
	if targetID != "" {
		t, ok := sim.Entities.Get(targetID)
		if !ok {
			entry.Reason = ReasonInvalidTarget
			return entry
		}
		target = t
	}
	if target == nil {
		entry.Reason = ReasonInvalidTarget
		return entry
	}
	if target.SpaceID != attacker.SpaceID {
		entry.Reason = ReasonSpaceMismatch
		return entry
	}

	if targetCellVal, present := cmd.Params["targetCell"]; present {
		cellMap, ok := targetCellVal.(map[string]any)
		if !ok {
			entry.Reason = ReasonInvalidTargetCell
			return entry
		}
		space, ok := sim.World.Space(attacker.SpaceID)
		if !ok {
			entry.Reason = ReasonInvalidTargetCellCoordForSpace
			return entry
		}
		targetCell := cellFromAny(cellMap)
		actualCell := cellForPosition(space.Topology, target.Position)
		if targetCell != actualCell {
			entry.Reason = ReasonTargetCellMismatch
			return entry
		}
		if len(sim.Entities.InSpace(attacker.SpaceID)) == 0 {
			entry.Reason = ReasonNoTargetInCell
			return entry
		}
	}

	space, ok := sim.World.Space(attacker.SpaceID)
	if !ok {
		entry.Reason = ReasonInvalidTargetCellCoordForSpace
		return entry
	}

	if mode == "melee" {
		attackerCell := cellForPosition(space.Topology, attacker.Position)
		targetCell := cellForPosition(space.Topology, target.Position)
		if space.Topology == hexgrid.TopologyHexDisk || space.Topology == hexgrid.TopologyHexRectangle || space.Topology == hexgrid.TopologyCustomHex {
			if hexgrid.HexDistance(attackerCell.Axial(), targetCell.Axial()) != 1 {
				entry.Reason = ReasonOutOfRange
				return entry
			}
			dir, ok := hexgrid.DirectionBetween(attackerCell.Axial(), targetCell.Axial())
			if !ok {
				entry.Reason = ReasonInvalidArcCoord
				return entry
			}
			if !hexgrid.FacingArcContains(attacker.Facing, dir) {
				entry.Reason = ReasonInvalidArc
				return entry
			}
		} else {
			if hexgrid.SquareDistance(attackerCell.Square(), targetCell.Square()) != 1 {
				entry.Reason = ReasonOutOfRange
				return entry
			}
		}
	}

	if attacker.CooldownUntilTick > cmd.Tick {
		entry.Reason = ReasonCooldownBlocked
		return entry
	}

	attacker.CooldownUntilTick = cmd.Tick + engine.PlaceholderCooldownTicks
	wound := worldstate.Wound{Region: "torso", Severity: 1, InflictedTick: cmd.Tick, SourceID: attackerID}
	target.AppendWound(wound)
	entry.Affected = []AffectedEntry{{EntityID: target.ID, Region: wound.Region, Severity: wound.Severity}}
	if len(entry.Affected) > engine.MaxAffectedPerAction {
		sort.Slice(entry.Affected, func(i, j int) bool { return entry.Affected[i].EntityID < entry.Affected[j].EntityID })
		entry.Affected = entry.Affected[:engine.MaxAffectedPerAction]
	}
	entry.Reason = ReasonResolved
	return entry
}

func (m *Module) appendLog(e LogEntry) {
	m.log = append(m.log, e)
	if len(m.log) > engine.MaxCombatLog {
		m.log = m.log[len(m.log)-engine.MaxCombatLog:]
	}
}

// Log returns the bounded combat log in chronological order, for save
// serialization.
func (m *Module) Log() []LogEntry { return m.log }

func cellForPosition(topo hexgrid.Topology, pos worldstate.Vector2) worldstate.Cell {
	if topo == hexgrid.TopologySquareGrid {
		return worldstate.CellFromSquare(hexgrid.Square{X: int(pos.X / 32), Y: int(pos.Y / 32)})
	}
	return worldstate.CellFromAxial(hexgrid.WorldToAxial(pos.X, pos.Y))
}

func cellFromAny(m map[string]any) worldstate.Cell {
	return worldstate.Cell{A: int(paramUint(m["a"])), B: int(paramUint(m["b"]))}
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
