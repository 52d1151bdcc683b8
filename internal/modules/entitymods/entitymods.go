// Package entitymods implements entity-scoped movement, stat patches, and
// owner selection: per-tick position integration toward a target or along
// a continuous move-input vector, facing updates, and selection
// bookkeeping.
package entitymods

import (
	"math"

	"hexkeep/internal/engine"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/worldstate"
)

// Command types handled by this module.
const (
	CommandSetMoveVector     = "set_move_vector"
	CommandStop              = "stop"
	CommandSetTargetPosition = "set_target_position"
	CommandSelectEntity      = "select_entity_intent"
	CommandStatPatch         = "stat_patch_intent"
)

// Module drives entity movement integration and handles the small set of
// entity-scoped intents that do not warrant their own package.
type Module struct{}

// New constructs the entity-movement/selection module.
func New() *Module { return &Module{} }

// Name implements engine.Module.
func (m *Module) Name() string { return "entitymods" }

// OnCommand handles movement, selection, and stat-patch intents
// synchronously.
func (m *Module) OnCommand(sim *engine.Simulation, cmd engine.Command, index int) bool {
	switch cmd.Type {
	case CommandSetMoveVector:
		ent, ok := sim.Entities.Get(cmd.EntityID)
		if !ok {
			return true
		}
		ent.MoveInputVector = worldstate.Vector2{X: paramFloat(cmd.Params["x"]), Y: paramFloat(cmd.Params["y"])}
		ent.TargetPosition = nil
		return true
	case CommandStop:
		ent, ok := sim.Entities.Get(cmd.EntityID)
		if !ok {
			return true
		}
		ent.MoveInputVector = worldstate.Vector2{}
		ent.TargetPosition = nil
		return true
	case CommandSetTargetPosition:
		ent, ok := sim.Entities.Get(cmd.EntityID)
		if !ok {
			return true
		}
		target := worldstate.Vector2{X: paramFloat(cmd.Params["x"]), Y: paramFloat(cmd.Params["y"])}
		ent.TargetPosition = &target
		ent.MoveInputVector = worldstate.Vector2{}
		return true
	case CommandSelectEntity:
		owner, _ := cmd.Params["owner"].(string)
		entityID, _ := cmd.Params["entityId"].(string)
		sim.SelectEntity(owner, entityID)
		return true
	case CommandStatPatch:
		ent, ok := sim.Entities.Get(cmd.EntityID)
		if !ok {
			return true
		}
		key, _ := cmd.Params["key"].(string)
		if key != "" {
			ent.Stats[key] = cmd.Params["value"]
		}
		return true
	}
	return false
}

// OnTickStart integrates every entity's position by one tick: entities
// with a target_position move directly toward it at speed_per_tick,
// clamped to not overshoot; entities with a move_input_vector move along
// it at speed_per_tick. On hex topologies, facing is updated only when a
// step moves the entity into an adjacent hex, to that hex's direction; a
// step that stays within the same hex leaves facing unchanged.
func (m *Module) OnTickStart(sim *engine.Simulation, tick uint64) {
	for _, ent := range sim.Entities.All() {
		dx, dy, moved := stepVector(ent)
		if !moved {
			continue
		}
		ent.Position.X += dx
		ent.Position.Y += dy
		if space, ok := sim.World.Space(ent.SpaceID); ok {
			updateFacing(ent, space.Topology, dx, dy)
		}
	}
}

func stepVector(ent *worldstate.EntityState) (dx, dy float64, moved bool) {
	if ent.TargetPosition != nil {
		toX := ent.TargetPosition.X - ent.Position.X
		toY := ent.TargetPosition.Y - ent.Position.Y
		dist := math.Hypot(toX, toY)
		if dist < 1e-9 {
			ent.TargetPosition = nil
			return 0, 0, false
		}
		step := ent.SpeedPerTick
		if step >= dist {
			dx, dy = toX, toY
			ent.TargetPosition = nil
		} else {
			dx = toX / dist * step
			dy = toY / dist * step
		}
		return dx, dy, dx != 0 || dy != 0
	}
	mv := ent.MoveInputVector
	mag := math.Hypot(mv.X, mv.Y)
	if mag < 1e-9 {
		return 0, 0, false
	}
	step := ent.SpeedPerTick
	return mv.X / mag * step, mv.Y / mag * step, true
}

func updateFacing(ent *worldstate.EntityState, topo hexgrid.Topology, dx, dy float64) {
	if topo == hexgrid.TopologySquareGrid {
		return
	}
	before := hexgrid.WorldToAxial(ent.Position.X-dx, ent.Position.Y-dy)
	after := hexgrid.WorldToAxial(ent.Position.X, ent.Position.Y)
	if dir, ok := hexgrid.DirectionBetween(before, after); ok {
		ent.Facing = dir
	}
}

func paramFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

var _ engine.CommandHandler = (*Module)(nil)
var _ engine.TickStarter = (*Module)(nil)
