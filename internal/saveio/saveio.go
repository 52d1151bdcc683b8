// Package saveio implements the save/load + hashing component: a canonical
// save document written atomically (temp-file + rename + fsync) and loaded
// with world_hash verification.
package saveio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"hexkeep/internal/codec"
	"hexkeep/internal/content"
	"hexkeep/internal/engine"
	"hexkeep/internal/events"
	"hexkeep/internal/rng"
	"hexkeep/internal/rules"
	"hexkeep/internal/worldstate"
)

// SchemaVersion is the save-format schema version.
const SchemaVersion = 1

// Document is the canonical save payload.
type Document struct {
	SchemaVersion   int                `json:"schema_version"`
	SaveHash        string             `json:"save_hash"`
	WorldState      content.WorldMapDoc `json:"world_state"`
	SimulationState SimulationState    `json:"simulation_state"`
	InputLog        []engine.Command   `json:"input_log"`
	Metadata        map[string]any     `json:"metadata,omitempty"`
}

// SimulationState is the simulation-owned half of a save: master_seed, RNG
// state payloads, tick, time, entities (sorted by id), rules_state (sorted
// keys), next_event_counter, pending_events, event_trace, selected_entity_id,
// combat log (folded into rules_state by the combat module itself, not
// duplicated here).
type SimulationState struct {
	MasterSeed        string                   `json:"master_seed"`
	Tick               uint64                  `json:"tick"`
	TicksPerDay        uint64                  `json:"ticks_per_day"`
	EpochTick          uint64                  `json:"epoch_tick"`
	RNGStreams         []rng.State             `json:"rng_streams"`
	Entities           []worldstate.EntityState `json:"entities"`
	RulesState         map[string]any           `json:"rules_state"`
	NextEventCounter   uint64                   `json:"next_event_counter"`
	PendingEvents      []events.Event           `json:"pending_events"`
	EventTrace         []events.Event           `json:"event_trace"`
	SelectedEntityID   map[string]string        `json:"selected_entity_id"`
	NextCommandIndex   int                      `json:"next_command_index"`
}

// Build assembles a canonical save Document from a live simulation and the
// world_hash previously verified when the world map was first loaded.
func Build(sim *engine.Simulation, worldHash string, metadata map[string]any) (Document, error) {
	worldDoc, err := content.ExportWorldMap(sim.World, worldHash)
	if err != nil {
		return Document{}, fmt.Errorf("saveio: export world state: %w", err)
	}

	entities := make([]worldstate.EntityState, 0, sim.Entities.Len())
	for _, e := range sim.Entities.All() {
		entities = append(entities, *e)
	}

	selected := make(map[string]string, len(sim.Selected))
	for owner, entityID := range sim.Selected {
		selected[owner] = entityID
	}

	doc := Document{
		SchemaVersion: SchemaVersion,
		WorldState:    worldDoc,
		SimulationState: SimulationState{
			MasterSeed:       sim.MasterSeed,
			Tick:             sim.Clock.Tick,
			TicksPerDay:      sim.Clock.TicksPerDay,
			EpochTick:        sim.Clock.EpochTick,
			RNGStreams:       sim.RNG.Snapshot(),
			Entities:         entities,
			RulesState:       sim.Rules.Snapshot(),
			NextEventCounter: sim.Events.NextCounter(),
			PendingEvents:    sim.Events.Pending(),
			EventTrace:       append([]events.Event(nil), sim.Trace.Entries...),
			SelectedEntityID: selected,
			NextCommandIndex: sim.NextCommandIndex,
		},
		InputLog: append([]engine.Command(nil), sim.InputLog...),
		Metadata: metadata,
	}

	hash, err := SaveHash(doc)
	if err != nil {
		return Document{}, err
	}
	doc.SaveHash = hash
	return doc, nil
}

// SaveHash computes save_hash = sha256(canonical({schema_version,
// world_state, simulation_state, input_log})).
func SaveHash(doc Document) (string, error) {
	return codec.Hash(struct {
		SchemaVersion   int                 `json:"schema_version"`
		WorldState      content.WorldMapDoc `json:"world_state"`
		SimulationState SimulationState     `json:"simulation_state"`
		InputLog        []engine.Command    `json:"input_log"`
	}{doc.SchemaVersion, doc.WorldState, doc.SimulationState, doc.InputLog})
}

// Write serializes doc to path atomically: write to a sibling temp file,
// fsync it, then rename over the destination.
func Write(path string, doc Document) error {
	indented, err := codec.Indented(doc)
	if err != nil {
		return fmt.Errorf("saveio: encode save: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".save-*.tmp")
	if err != nil {
		return fmt.Errorf("saveio: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(indented); err != nil {
		tmp.Close()
		return fmt.Errorf("saveio: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("saveio: fsync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("saveio: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("saveio: rename into place: %w", err)
	}
	return nil
}

// Load reads and validates a save document from path: schema version,
// world_hash (via content's world-map hash verification), and save_hash.
func Load(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("saveio: read save %q: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("saveio: decode save %q: %w", path, err)
	}

	if doc.SchemaVersion != SchemaVersion {
		return Document{}, fmt.Errorf("saveio: save %q: unsupported schema_version %d", path, doc.SchemaVersion)
	}
	if err := verifyWorldHash(doc.WorldState); err != nil {
		return Document{}, fmt.Errorf("saveio: save %q: %w", path, err)
	}
	declared := doc.SaveHash
	got, err := SaveHash(doc)
	if err != nil {
		return Document{}, fmt.Errorf("saveio: save %q: compute save_hash: %w", path, err)
	}
	if got != declared {
		return Document{}, fmt.Errorf("saveio: save %q: save_hash mismatch: declared %s, computed %s", path, declared, got)
	}
	return doc, nil
}

func verifyWorldHash(doc content.WorldMapDoc) error {
	declared := doc.WorldHash
	doc.WorldHash = ""
	got, err := content.WorldHash(doc)
	if err != nil {
		return fmt.Errorf("compute world_hash: %w", err)
	}
	if got != declared {
		return fmt.Errorf("world_hash mismatch: declared %s, computed %s", declared, got)
	}
	return nil
}

// Restore rebuilds a *engine.Simulation from a validated save Document.
// The caller is responsible for registering the same rule modules that
// produced the save (in the same order) and calling sim.Start() afterward
// so each module rehydrates its own rules_state partition and pending
// scheduler tasks.
func Restore(doc Document) (*engine.Simulation, error) {
	world, err := content.BuildWorld(&doc.WorldState)
	if err != nil {
		return nil, fmt.Errorf("saveio: rebuild world: %w", err)
	}

	sim := engine.New(doc.SimulationState.MasterSeed)
	sim.World = world
	sim.Clock = worldstate.Clock{
		Tick:        doc.SimulationState.Tick,
		TicksPerDay: doc.SimulationState.TicksPerDay,
		EpochTick:   doc.SimulationState.EpochTick,
	}
	sim.RNG = rng.RestoreRegistry(doc.SimulationState.MasterSeed, doc.SimulationState.RNGStreams)
	sim.Rules = rules.Restore(doc.SimulationState.RulesState)

	queue, err := events.Restore(doc.SimulationState.NextEventCounter, doc.SimulationState.PendingEvents)
	if err != nil {
		return nil, fmt.Errorf("saveio: restore event queue: %w", err)
	}
	sim.Events = queue

	trace := events.NewTrace(worldstate.MaxEventTrace)
	for _, e := range doc.SimulationState.EventTrace {
		trace.Append(e)
	}
	sim.Trace = trace

	sim.Entities = worldstate.NewEntityTable()
	for i := range doc.SimulationState.Entities {
		ent := doc.SimulationState.Entities[i]
		sim.Entities.Add(&ent)
	}

	sim.Selected = make(map[string]string, len(doc.SimulationState.SelectedEntityID))
	for owner, entityID := range doc.SimulationState.SelectedEntityID {
		sim.Selected[owner] = entityID
	}

	sim.NextCommandIndex = doc.SimulationState.NextCommandIndex
	sim.InputLog = append([]engine.Command(nil), doc.InputLog...)

	return sim, nil
}

