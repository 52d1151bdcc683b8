// Package signals implements emit_signal_intent/perceive_signal_intent and
// occlusion-aware propagation: a Dijkstra-style weighted search over the
// space's neighbor graph, with edge weight raised by occlusion, plus a
// bounded idempotent ledger of already-handled perceive requests kept in
// its own rules-state partition.
package signals

import (
	"container/heap"
	"context"
	"fmt"
	"sort"

	"hexkeep/internal/engine"
	"hexkeep/internal/events"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	worldevents "hexkeep/logging/world"
)

const (
	// EventEmitSignal is the intent command type for emit_signal_intent.
	EventEmitSignal = "emit_signal_intent"
	// EventPerceiveSignal is the intent command type for perceive_signal_intent.
	EventPerceiveSignal = "perceive_signal_intent"
	// EventSignalEmit fires after the intent's duration_ticks and performs
	// the actual world mutation.
	EventSignalEmit = "signal_emit_execute"
	// EventSignalPerceive fires after the intent's duration_ticks and
	// computes the perception outcome.
	EventSignalPerceive = "signal_perceive_execute"
)

// Module implements emit/perceive signal intents plus Dijkstra/UCS
// propagation over the occlusion-weighted topology graph.
type Module struct {
	Publisher logging.Publisher

	ledger *rules.Ledger
}

// New constructs the signals rule module.
func New(pub logging.Publisher) *Module {
	return &Module{Publisher: pub, ledger: rules.NewLedger(engine.MaxExecutedActionUIDs)}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "signals" }

type moduleState struct {
	Ledger []string `json:"ledger"`
}

func (m *Module) loadState(sim *engine.Simulation) {
	raw := sim.Rules.Get(m.Name())
	st := decodeState(raw)
	m.ledger = rules.RestoreLedger(engine.MaxExecutedActionUIDs, st.Ledger)
}

func decodeState(raw any) moduleState {
	var st moduleState
	m, ok := raw.(map[string]any)
	if !ok {
		return st
	}
	if entries, ok := m["ledger"].([]any); ok {
		for _, e := range entries {
			if s, ok := e.(string); ok {
				st.Ledger = append(st.Ledger, s)
			}
		}
	}
	return st
}

func (m *Module) save(sim *engine.Simulation) {
	_ = sim.Rules.Set(m.Name(), moduleState{Ledger: m.ledger.Entries})
}

// OnSimulationStart rehydrates the ledger from a loaded save.
func (m *Module) OnSimulationStart(sim *engine.Simulation) {
	m.loadState(sim)
}

// OnCommand handles emit_signal_intent/perceive_signal_intent by scheduling
// the corresponding execute event after duration_ticks.
func (m *Module) OnCommand(sim *engine.Simulation, cmd engine.Command, index int) bool {
	switch cmd.Type {
	case EventEmitSignal:
		duration := paramUint(cmd.Params["durationTicks"])
		params := copyParams(cmd.Params)
		params["actionUid"] = engine.ActionUID(cmd.Tick, index)
		sim.Events.Schedule(cmd.Tick+duration, EventSignalEmit, params)
		return true
	case EventPerceiveSignal:
		duration := paramUint(cmd.Params["durationTicks"])
		params := copyParams(cmd.Params)
		params["actionUid"] = engine.ActionUID(cmd.Tick, index)
		sim.Events.Schedule(cmd.Tick+duration, EventSignalPerceive, params)
		return true
	}
	return false
}

// OnEventExecuted performs the actual signal emission/perception.
func (m *Module) OnEventExecuted(sim *engine.Simulation, evt events.Event) {
	switch evt.Type {
	case EventSignalEmit:
		m.executeEmit(sim, evt)
	case EventSignalPerceive:
		m.executePerceive(sim, evt)
	}
	m.save(sim)
}

func (m *Module) executeEmit(sim *engine.Simulation, evt events.Event) {
	uid, _ := evt.Params["actionUid"].(string)
	if uid != "" && !m.ledger.Record(uid) {
		return
	}
	spaceID, _ := evt.Params["spaceId"].(string)
	channel, _ := evt.Params["channel"].(string)
	origin := cellFromParams(evt.Params["origin"])
	sig := worldstate.Signal{
		ID:            fmt.Sprintf("signal-%s", uid),
		TickEmitted:   evt.Tick,
		SpaceID:       spaceID,
		Origin:        origin,
		Channel:       channel,
		BaseIntensity: paramFloat(evt.Params["baseIntensity"]),
		FalloffModel:  "linear",
		MaxRadius:     int(paramUint(evt.Params["maxRadius"])),
		TTLTicks:      int(paramUint(evt.Params["ttlTicks"])),
	}
	sim.World.AppendSignal(sig)
	worldevents.SignalEmitted(context.Background(), m.Publisher, evt.Tick, logging.EntityRef{Kind: logging.KindWorld}, worldevents.SignalEmittedPayload{
		SignalID:  sig.ID,
		Channel:   sig.Channel,
		Intensity: sig.BaseIntensity,
	})
}

// perceiveHit is one listener's propagation outcome.
type perceiveHit struct {
	EntityID  string  `json:"entityId"`
	Strength  float64 `json:"strength"`
	Cost      int     `json:"effectivePathCost"`
	Steps     int     `json:"stepCount"`
	SignalID  string  `json:"signalId"`
}

func (m *Module) executePerceive(sim *engine.Simulation, evt events.Event) {
	uid, _ := evt.Params["actionUid"].(string)
	if uid != "" && !m.ledger.Record(uid) {
		return
	}
	spaceID, _ := evt.Params["spaceId"].(string)
	listenerCell := cellFromParams(evt.Params["listenerCell"])
	radius := int(paramUint(evt.Params["radius"]))

	var hits []perceiveHit
	for i := range sim.World.Signals {
		sig := sim.World.Signals[i]
		if sig.SpaceID != spaceID {
			continue
		}
		maxSteps := sig.MaxRadius
		if radius < maxSteps {
			maxSteps = radius
		}
		cost, steps, reached := shortestPath(sim, spaceID, sig.Origin, listenerCell, maxSteps)
		if !reached {
			continue
		}
		bonus := sensitivityBonus(sim, evt.Params["entityId"], sig.Channel)
		strength := sig.BaseIntensity - float64(cost) + bonus
		if strength < 0 {
			strength = 0
		}
		hits = append(hits, perceiveHit{
			EntityID: fmt.Sprint(evt.Params["entityId"]),
			Strength: strength,
			Cost:     cost,
			Steps:    steps,
			SignalID: sig.ID,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Cost != hits[j].Cost {
			return hits[i].Cost < hits[j].Cost
		}
		if hits[i].Steps != hits[j].Steps {
			return hits[i].Steps < hits[j].Steps
		}
		return hits[i].SignalID < hits[j].SignalID
	})

	entityID, _ := evt.Params["entityId"].(string)
	for _, hit := range hits {
		worldevents.SignalPerceived(context.Background(), m.Publisher, evt.Tick, logging.EntityRef{ID: entityID, Kind: logging.KindEntity}, worldevents.SignalPerceivedPayload{
			SignalID: hit.SignalID,
			Strength: hit.Strength,
		})
	}
}

func sensitivityBonus(sim *engine.Simulation, entityIDVal any, channel string) float64 {
	entityID, _ := entityIDVal.(string)
	ent, ok := sim.Entities.Get(entityID)
	if !ok {
		return 0
	}
	statKey := "perception"
	if channel == "sound" {
		statKey = "hearing"
	}
	sensitivity := ent.StatFloat(statKey, 0)
	if sensitivity < 0 {
		sensitivity = 0
	}
	return float64(int(sensitivity) / 10)
}

// pathNode is a priority-queue entry for Dijkstra/UCS search.
type pathNode struct {
	cell worldstate.Cell
	cost int
	step int
}

type pathHeap []pathNode

func (h pathHeap) Len() int            { return len(h) }
func (h pathHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x any)         { *h = append(*h, x.(pathNode)) }
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// shortestPath runs Dijkstra/UCS over the space's topology neighbor graph,
// weighting each step by 1 + structure_occlusion(edge), capped at maxSteps
// exploration depth.
func shortestPath(sim *engine.Simulation, spaceID string, from, to worldstate.Cell, maxSteps int) (cost int, steps int, reached bool) {
	space, ok := sim.World.Space(spaceID)
	if !ok {
		return 0, 0, false
	}
	if from == to {
		return 0, 0, true
	}
	best := map[worldstate.Cell]int{from: 0}
	bestSteps := map[worldstate.Cell]int{from: 0}
	pq := &pathHeap{{cell: from, cost: 0, step: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pathNode)
		if c, ok := best[cur.cell]; ok && cur.cost > c {
			continue
		}
		if cur.cell == to {
			return cur.cost, cur.step, true
		}
		if cur.step >= maxSteps {
			continue
		}
		for _, next := range neighbors(space.Topology, cur.cell) {
			occl := sim.World.OcclusionCost(spaceID, cur.cell, next)
			nextCost := cur.cost + 1 + occl
			if c, ok := best[next]; ok && c <= nextCost {
				continue
			}
			best[next] = nextCost
			bestSteps[next] = cur.step + 1
			heap.Push(pq, pathNode{cell: next, cost: nextCost, step: cur.step + 1})
		}
	}
	return 0, 0, false
}

func neighbors(topo hexgrid.Topology, c worldstate.Cell) []worldstate.Cell {
	var out []worldstate.Cell
	switch topo {
	case hexgrid.TopologySquareGrid:
		for _, n := range hexgrid.SquareNeighbors(c.Square()) {
			out = append(out, worldstate.CellFromSquare(n))
		}
	default:
		for _, n := range hexgrid.HexNeighbors(c.Axial()) {
			out = append(out, worldstate.CellFromAxial(n))
		}
	}
	return out
}

func cellFromParams(v any) worldstate.Cell {
	m, ok := v.(map[string]any)
	if !ok {
		return worldstate.Cell{}
	}
	return worldstate.Cell{A: int(paramUint(m["a"])), B: int(paramUint(m["b"]))}
}

func copyParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func paramUint(v any) uint64 {
	switch n := v.(type) {
	case float64:
		return uint64(n)
	case int:
		return uint64(n)
	case int64:
		return uint64(n)
	default:
		return 0
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

var _ engine.SimulationStarter = (*Module)(nil)
var _ engine.CommandHandler = (*Module)(nil)
var _ engine.EventHandler = (*Module)(nil)
