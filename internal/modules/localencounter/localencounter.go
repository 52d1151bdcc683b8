// Package localencounter implements campaign<->local space instancing: a
// bounded set of concurrently active local arenas, each a lazily created
// square-grid space onto which an entity is migrated and later returned,
// with a structural arena template lookup rather than a single fixed
// layout.
package localencounter

import (
	"context"
	"fmt"

	"hexkeep/internal/engine"
	"hexkeep/internal/events"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
	"hexkeep/logging"
	worldevents "hexkeep/logging/world"
)

// OutcomeAlreadyReturning is emitted when a second end_local_encounter_intent
// targets a local space whose return is already in progress: the
// return-in-progress ledger de-duplicates concurrent end intents.
const OutcomeAlreadyReturning = "already_returning"

const (
	// CommandLocalEncounterRequest is emitted by the encounter pipeline
	// (campaign-role spaces only).
	CommandLocalEncounterRequest = "local_encounter_request"
	// CommandEndLocalEncounter returns an entity to its origin space.
	CommandEndLocalEncounter = "end_local_encounter_intent"
	// EventTemplateApplied is emitted once a structural arena template is
	// applied to a freshly created local space.
	EventTemplateApplied = "local_arena_template_applied"
	// EventLocalEncounterReturn is emitted once an entity returns.
	EventLocalEncounterReturn = "local_encounter_return"

	defaultTemplateName = "default"
	minimalTemplateName = "minimal"
)

// ArenaTemplate describes a structural local-arena layout: its square-grid
// dimensions and the entry cell new entrants are placed at.
type ArenaTemplate struct {
	ID     string            `json:"id"`
	Width  int               `json:"width"`
	Height int               `json:"height"`
	Entry  worldstate.Cell    `json:"entry"`
}

// activeEncounter is one entry in the bounded active set.
type activeEncounter struct {
	RequestEventID string           `json:"requestEventId"`
	EntityID       string           `json:"entityId"`
	OriginSpaceID  string           `json:"originSpaceId"`
	OriginLocation worldstate.Cell  `json:"originLocation"`
	StartedTick    uint64           `json:"startedTick"`
}

// Module implements local-encounter instancing.
type Module struct {
	Publisher logging.Publisher
	Templates map[string]ArenaTemplate

	active           map[string]activeEncounter // local space id -> entry
	returnInProgress map[string]bool            // local space id -> return started
	processedReq     *rules.Ledger              // processed_request_ids
	processedEnd     *rules.Ledger              // processed_end_action_uids
}

// New constructs the local-encounter instancing module. templates maps
// template id -> layout; "default" and "minimal" should always be present
// as fallbacks.
func New(pub logging.Publisher, templates map[string]ArenaTemplate) *Module {
	return &Module{
		Publisher:        pub,
		Templates:        templates,
		active:           make(map[string]activeEncounter),
		returnInProgress: make(map[string]bool),
		processedReq:     rules.NewLedger(engine.MaxActiveLocalEncounters * 4),
		processedEnd:     rules.NewLedger(engine.MaxExecutedActionUIDs),
	}
}

// Name implements engine.Module.
func (m *Module) Name() string { return "localencounter" }

type moduleState struct {
	Active           map[string]activeEncounter `json:"activeByLocalSpace"`
	ReturnInProgress map[string]bool            `json:"returnInProgressByLocalSpace"`
	ProcessedReq     []string                   `json:"processedRequestIds"`
	ProcessedEnd     []string                   `json:"processedEndActionUids"`
}

// OnSimulationStart rehydrates the active-encounter map and idempotence
// ledgers from a loaded save.
func (m *Module) OnSimulationStart(sim *engine.Simulation) {
	raw := sim.Rules.Get(m.Name())
	mm, ok := raw.(map[string]any)
	if !ok {
		return
	}
	if activeRaw, ok := mm["activeByLocalSpace"].(map[string]any); ok {
		for spaceID, v := range activeRaw {
			em, ok := v.(map[string]any)
			if !ok {
				continue
			}
			m.active[spaceID] = activeEncounter{
				RequestEventID: fmt.Sprint(em["requestEventId"]),
				EntityID:       fmt.Sprint(em["entityId"]),
				OriginSpaceID:  fmt.Sprint(em["originSpaceId"]),
				OriginLocation: cellFromAny(em["originLocation"]),
				StartedTick:    paramUint(em["startedTick"]),
			}
		}
	}
	if ripRaw, ok := mm["returnInProgressByLocalSpace"].(map[string]any); ok {
		for spaceID, v := range ripRaw {
			if b, ok := v.(bool); ok && b {
				m.returnInProgress[spaceID] = true
			}
		}
	}
	m.processedReq = rules.RestoreLedger(engine.MaxActiveLocalEncounters*4, stringSlice(mm["processedRequestIds"]))
	m.processedEnd = rules.RestoreLedger(engine.MaxExecutedActionUIDs, stringSlice(mm["processedEndActionUids"]))
}

func stringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (m *Module) save(sim *engine.Simulation) {
	_ = sim.Rules.Set(m.Name(), moduleState{
		Active:           m.active,
		ReturnInProgress: m.returnInProgress,
		ProcessedReq:     m.processedReq.Entries,
		ProcessedEnd:     m.processedEnd.Entries,
	})
}

// OnCommand handles local_encounter_request and end_local_encounter_intent.
func (m *Module) OnCommand(sim *engine.Simulation, cmd engine.Command, index int) bool {
	switch cmd.Type {
	case CommandLocalEncounterRequest:
		m.start(sim, cmd, index)
		return true
	case CommandEndLocalEncounter:
		m.end(sim, cmd, index)
		return true
	}
	return false
}

func (m *Module) start(sim *engine.Simulation, cmd engine.Command, index int) {
	requestEventID := engine.ActionUID(cmd.Tick, index)
	if m.processedReq.Contains(requestEventID) {
		return
	}
	if len(m.active) >= engine.MaxActiveLocalEncounters {
		m.processedReq.Record(requestEventID)
		m.save(sim)
		return
	}

	entityID, _ := cmd.Params["entityId"].(string)
	if entityID == "" {
		// Fall back to the first matching entity in a campaign-role space.
		for _, ent := range sim.Entities.All() {
			if space, ok := sim.World.Space(ent.SpaceID); ok && space.Role == worldstate.RoleCampaign {
				entityID = ent.ID
				break
			}
		}
	}
	ent, ok := sim.Entities.Get(entityID)
	if !ok {
		m.processedReq.Record(requestEventID)
		m.save(sim)
		return
	}
	originSpace, ok := sim.World.Space(ent.SpaceID)
	if !ok || originSpace.Role != worldstate.RoleCampaign {
		m.processedReq.Record(requestEventID)
		m.save(sim)
		return
	}

	localSpaceID := fmt.Sprintf("local_encounter:%s", requestEventID)

	templateID, _ := cmd.Params["templateId"].(string)
	tmpl, selectionReason := m.selectTemplate(templateID)

	sim.World.AddSpace(localSpaceID, hexgrid.TopologySquareGrid, worldstate.TopologyParams{Width: tmpl.Width, Height: tmpl.Height}, worldstate.RoleLocal)

	originCell := cellForEntity(originSpace.Topology, ent)
	m.active[localSpaceID] = activeEncounter{
		RequestEventID: requestEventID,
		EntityID:       entityID,
		OriginSpaceID:  ent.SpaceID,
		OriginLocation: originCell,
		StartedTick:    cmd.Tick,
	}

	ent.SpaceID = localSpaceID
	wx, wy := hexgrid.SquareToWorld(tmpl.Entry.Square(), 32)
	ent.Position = worldstate.Vector2{X: wx, Y: wy}

	m.processedReq.Record(requestEventID)
	m.save(sim)
	worldevents.LocalEncounterStarted(context.Background(), m.Publisher, cmd.Tick, logging.EntityRef{ID: entityID, Kind: logging.KindEntity}, worldevents.LocalEncounterStartedPayload{
		LocalSpaceID: localSpaceID,
		OriginSpace:  originSpace.ID,
	})
	sim.Events.Schedule(cmd.Tick, EventTemplateApplied, map[string]any{
		"localSpaceId": localSpaceID,
		"templateId":   tmpl.ID,
		"reason":       selectionReason,
	})
}

// selectTemplate resolves a requested template id to a layout plus a stable
// reason string describing why that layout was chosen: "suggested" if the
// caller's id was found, "default" if it fell back to the registry's default
// with no id requested, "unknown_template" if an id was requested but not
// found and the default was used instead, or "missing_default" if neither
// the requested id nor a default template is registered and the built-in
// minimal fallback was used.
func (m *Module) selectTemplate(templateID string) (ArenaTemplate, string) {
	if templateID != "" {
		if tmpl, ok := m.Templates[templateID]; ok {
			return tmpl, "suggested"
		}
	}
	if tmpl, ok := m.Templates[defaultTemplateName]; ok {
		if templateID != "" {
			return tmpl, "unknown_template"
		}
		return tmpl, "default"
	}
	if tmpl, ok := m.Templates[minimalTemplateName]; ok {
		return tmpl, "missing_default"
	}
	return ArenaTemplate{ID: minimalTemplateName, Width: 4, Height: 4}, "missing_default"
}

func (m *Module) end(sim *engine.Simulation, cmd engine.Command, index int) {
	entityID := cmd.EntityID
	if entityID == "" {
		entityID, _ = cmd.Params["entityId"].(string)
	}
	actionUID, _ := cmd.Params["actionUid"].(string)
	if actionUID == "" {
		actionUID = engine.ActionUID(cmd.Tick, index)
	}
	if m.processedEnd.Contains(actionUID) {
		return
	}

	ent, ok := sim.Entities.Get(entityID)
	if !ok {
		m.processedEnd.Record(actionUID)
		m.save(sim)
		return
	}
	localSpaceID := ent.SpaceID
	if m.returnInProgress[localSpaceID] {
		m.processedEnd.Record(actionUID)
		m.save(sim)
		worldevents.LocalEncounterReturned(context.Background(), m.Publisher, cmd.Tick, logging.EntityRef{ID: entityID, Kind: logging.KindEntity}, worldevents.LocalEncounterReturnedPayload{
			LocalSpaceID: localSpaceID,
			Applied:      false,
			Outcome:      OutcomeAlreadyReturning,
		})
		return
	}
	active, ok := m.active[localSpaceID]
	if !ok || active.EntityID != entityID {
		m.processedEnd.Record(actionUID)
		m.save(sim)
		return
	}
	m.returnInProgress[localSpaceID] = true
	delete(m.active, localSpaceID)

	originSpaceID := active.OriginSpaceID
	originSpace, ok := sim.World.Space(originSpaceID)
	applied := ok
	if ok {
		ent.SpaceID = originSpaceID
		var wx, wy float64
		switch originSpace.Topology {
		case hexgrid.TopologySquareGrid:
			wx, wy = hexgrid.SquareToWorld(active.OriginLocation.Square(), 32)
		default:
			wx, wy = hexgrid.AxialToWorld(active.OriginLocation.Axial())
		}
		ent.Position = worldstate.Vector2{X: wx, Y: wy}
	}
	delete(m.returnInProgress, localSpaceID)
	m.processedEnd.Record(actionUID)
	m.save(sim)

	sim.Events.Schedule(cmd.Tick, EventLocalEncounterReturn, map[string]any{
		"entityId": entityID,
		"applied":  applied,
	})
	worldevents.LocalEncounterReturned(context.Background(), m.Publisher, cmd.Tick, logging.EntityRef{ID: entityID, Kind: logging.KindEntity}, worldevents.LocalEncounterReturnedPayload{
		LocalSpaceID: localSpaceID,
		Applied:      applied,
		Outcome:      OutcomeApplied,
	})
}

// OutcomeApplied marks a normal successful (or entity-stuck) return, for
// telemetry symmetry with OutcomeAlreadyReturning.
const OutcomeApplied = "applied"

// OnEventExecuted is a no-op hook retained so this module satisfies
// engine.EventHandler for future template/return event fan-out without
// requiring a signature change.
func (m *Module) OnEventExecuted(sim *engine.Simulation, evt events.Event) {}

func cellForEntity(topo hexgrid.Topology, ent *worldstate.EntityState) worldstate.Cell {
	if topo == hexgrid.TopologySquareGrid {
		return worldstate.CellFromSquare(hexgrid.Square{X: int(ent.Position.X / 32), Y: int(ent.Position.Y / 32)})
	}
	return worldstate.CellFromAxial(hexgrid.WorldToAxial(ent.Position.X, ent.Position.Y))
}

func cellFromAny(v any) worldstate.Cell {
	m, ok := v.(map[string]any)
	if !ok {
		return worldstate.Cell{}
	}
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
var _ engine.EventHandler = (*Module)(nil)
