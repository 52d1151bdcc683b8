// Package rumor implements the hop-bounded rumor pipeline: a base rumor on
// every executed encounter outcome, propagated to a SHA-256-stable
// neighbor on a fixed periodic cadence registered through the scheduler's
// periodic-task primitive.
package rumor

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"hexkeep/internal/engine"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/modules/scheduler"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	worldevents "hexkeep/logging/world"
)

const (
	taskPropagate = "rumor_pipeline:propagate"

	baseConfidence = 0.75
)

// Module implements rumor creation and propagation.
type Module struct {
	Publisher logging.Publisher
	Scheduler *scheduler.Module

	ledger *rules.Ledger
}

// New constructs the rumor module.
func New(pub logging.Publisher, sched *scheduler.Module) *Module {
	return &Module{Publisher: pub, Scheduler: sched, ledger: rules.NewLedger(engine.MaxExecutedActionUIDs)}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "rumor" }

type moduleState struct {
	Ledger []string `json:"ledger"`
}

// OnSimulationStart registers the periodic propagation task and rehydrates
// the ledger from a loaded save.
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
	}
	m.ledger = rules.RestoreLedger(engine.MaxExecutedActionUIDs, entries)

	_ = m.Scheduler.RegisterTask(sim, taskPropagate, engine.RumorPropagationIntervalTicks, engine.RumorPropagationIntervalTicks)
	_ = m.Scheduler.SetTaskCallback(taskPropagate, m.propagate)
}

// OnActionOutcome is called by the encounter module immediately after
// publishing an encounter_action_outcome with outcome == "executed". It is
// a direct collaborator hook rather than a generic EventHandler callback:
// the rumor pipeline needs the actionType and location, which already live
// as Go values in the encounter module at the point of outcome, not yet
// round-tripped through the event queue's JSON-primitive Params.
func (m *Module) OnActionOutcome(sim *engine.Simulation, tick uint64, actionUID, actionType string, location worldstate.Location) {
	if actionType == "" {
		return
	}
	ledgerKey := fmt.Sprintf("base:%s", actionUID)
	if !m.ledger.Record(ledgerKey) {
		return
	}
	id := rumorID(ledgerKey)
	r := worldstate.Rumor{
		ID:         id,
		TemplateID: fmt.Sprintf("rumor.%s", actionType),
		Hop:        0,
		Confidence: baseConfidence,
		Location:   location,
		TickMade:   tick,
	}
	_ = sim.World.AppendRumor(r)
	_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries})
}

func (m *Module) propagate(sim *engine.Simulation, tick uint64) {
	rumors := sim.World.Rumors
	for i := range rumors {
		r := rumors[i]
		if r.Hop >= engine.RumorHopCap {
			continue
		}
		if r.TTLTicks > 0 && tick > r.TickMade+uint64(r.TTLTicks) {
			continue
		}
		space, ok := sim.World.Space(r.Location.SpaceID)
		if !ok || !isHexTopology(space.Topology) {
			continue
		}
		nextCell, ok := stableExistingNeighbor(space, r.Location.Cell, r.ID, r.Hop)
		if !ok {
			continue
		}
		nextHop := r.Hop + 1
		ledgerKey := fmt.Sprintf("prop:%s:%d:%d:%d", r.ID, nextHop, nextCell.A, nextCell.B)
		if !m.ledger.Record(ledgerKey) {
			continue
		}
		confidence := math.Max(0.1, round4(r.Confidence*0.8))
		child := worldstate.Rumor{
			ID:         rumorID(ledgerKey),
			TemplateID: r.TemplateID,
			Hop:        nextHop,
			Confidence: confidence,
			Location:   worldstate.Location{SpaceID: r.Location.SpaceID, Cell: nextCell},
			TTLTicks:   engine.RumorTTLTicks,
			TickMade:   tick,
		}
		_ = sim.World.AppendRumor(child)
		worldevents.RumorPropagated(context.Background(), m.Publisher, tick, worldevents.RumorPropagatedPayload{
			RumorID:    child.ID,
			Hop:        child.Hop,
			Confidence: child.Confidence,
		})
	}
	_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries})
}

// isHexTopology reports whether a space's topology has axial neighbors, as
// opposed to a square-grid local-encounter arena. Rumor propagation only
// applies to the campaign-role hex topologies rumors actually originate in.
func isHexTopology(t hexgrid.Topology) bool {
	switch t {
	case hexgrid.TopologyHexDisk, hexgrid.TopologyHexRectangle, hexgrid.TopologyCustomHex:
		return true
	default:
		return false
	}
}

// stableExistingNeighbor picks one of the 6 real axial neighbors of cell,
// starting at a SHA-256-stable preferred index over "<rumor_id>:<hop>" and
// walking the ring until it finds a neighbor that actually exists as a hex
// in space, matching the reference pipeline's retry-around-the-ring
// behavior rather than treating the whole space as an undirected graph.
func stableExistingNeighbor(space *worldstate.SpaceState, cell worldstate.Cell, rumorID string, hop int) (worldstate.Cell, bool) {
	neighbors := hexgrid.HexNeighbors(cell.Axial())
	preferred := stableIndex(fmt.Sprintf("%s:%d", rumorID, hop), len(neighbors))
	for offset := 0; offset < len(neighbors); offset++ {
		candidate := neighbors[(preferred+offset)%len(neighbors)]
		candidateCell := worldstate.CellFromAxial(candidate)
		if _, ok := space.Hexes[candidateCell]; ok {
			return candidateCell, true
		}
	}
	return worldstate.Cell{}, false
}

// stableIndex derives a deterministic index in [0, n) from seed via
// SHA-256: the index is chosen by hashing "<rumor_id>:<hop>".
func stableIndex(seed string, n int) int {
	if n <= 0 {
		return 0
	}
	sum := sha256.Sum256([]byte(seed))
	return int(binary.BigEndian.Uint32(sum[:4])) % n
}

// rumorID derives a stable rumor id from an identity string:
// "rumor-<first-20-hex-of-sha256(identity)>".
func rumorID(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return "rumor-" + hex.EncodeToString(sum[:])[:20]
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

var _ engine.SimulationStarter = (*Module)(nil)
