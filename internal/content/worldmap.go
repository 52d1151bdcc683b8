// Package content loads the read-only, disk-resident authoring formats:
// world maps, encounter tables, supply profiles, item catalogs, and
// local-arena templates. These registries are external collaborators —
// this package is the loading/normalization layer the core is handed
// already-built values from.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"hexkeep/internal/codec"
	"hexkeep/internal/hexgrid"
	"hexkeep/internal/worldstate"
)

// WorldMapDoc is the on-disk world map JSON shape.
type WorldMapDoc struct {
	SchemaVersion      int                        `json:"schema_version"`
	WorldHash          string                     `json:"world_hash"`
	TopologyType       string                     `json:"topology_type"`
	TopologyParams     worldstate.TopologyParams  `json:"topology_params"`
	Hexes              []HexEntry                 `json:"hexes"`
	Spaces             []SpaceEntry               `json:"spaces,omitempty"`
	Containers         []ContainerEntry            `json:"containers,omitempty"`
	Sites              []SiteEntry                 `json:"sites,omitempty"`
	Signals            []worldstate.Signal         `json:"signals,omitempty"`
	Tracks             []worldstate.Track          `json:"tracks,omitempty"`
	SpawnDescriptors   []worldstate.SpawnDescriptor `json:"spawn_descriptors,omitempty"`
	Rumors             []worldstate.Rumor          `json:"rumors,omitempty"`
	StructureOcclusion []OcclusionEntry            `json:"structure_occlusion,omitempty"`
}

// HexEntry is one authored hex/cell record.
type HexEntry struct {
	Coord  worldstate.Cell     `json:"coord"`
	Record worldstate.HexRecord `json:"record"`
}

// SpaceEntry authors an additional non-default space (e.g. a pre-built
// dungeon interior) alongside the default overworld.
type SpaceEntry struct {
	ID             string                    `json:"id"`
	TopologyType   string                    `json:"topology_type"`
	TopologyParams worldstate.TopologyParams `json:"topology_params"`
	Role           string                    `json:"role"`
	Doors          []worldstate.Door         `json:"doors,omitempty"`
	Anchors        []worldstate.Anchor       `json:"anchors,omitempty"`
	Interactables  []worldstate.Interactable `json:"interactables,omitempty"`
}

// ContainerEntry authors a pre-seeded container.
type ContainerEntry struct {
	ID       string             `json:"id"`
	Items    map[string]int     `json:"items"`
	OwnerID  string             `json:"owner_id,omitempty"`
	Location *worldstate.Location `json:"location,omitempty"`
}

// SiteEntry authors a named location.
type SiteEntry struct {
	ID       string                      `json:"id"`
	Type     string                      `json:"type"`
	Location worldstate.Location         `json:"location"`
	Entrance *worldstate.SiteEntrance    `json:"entrance,omitempty"`
}

// OcclusionEntry authors a structural occlusion edge.
type OcclusionEntry struct {
	SpaceID string          `json:"space_id"`
	CellA   worldstate.Cell `json:"cell_a"`
	CellB   worldstate.Cell `json:"cell_b"`
	Cost    int             `json:"cost"`
}

// LoadWorldMap reads, decodes, and hash-verifies a world map JSON file:
// it rejects payloads whose recomputed world_hash disagrees with the
// stored value. The returned WorldMapDoc is otherwise unvalidated; building
// the runtime worldstate.WorldState from it is the caller's job (see
// BuildWorld).
func LoadWorldMap(path string) (*WorldMapDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read world map %q: %w", path, err)
	}
	var doc WorldMapDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("content: decode world map %q: %w", path, err)
	}
	if doc.SchemaVersion != 1 {
		return nil, fmt.Errorf("content: world map %q: unsupported schema_version %d", path, doc.SchemaVersion)
	}
	if err := verifyWorldHash(doc); err != nil {
		return nil, fmt.Errorf("content: world map %q: %w", path, err)
	}
	return &doc, nil
}

// verifyWorldHash recomputes the content-address hash over every field
// except world_hash itself and compares it against the stored value.
func verifyWorldHash(doc WorldMapDoc) error {
	declared := doc.WorldHash
	doc.WorldHash = ""
	got, err := WorldHash(doc)
	if err != nil {
		return fmt.Errorf("compute world_hash: %w", err)
	}
	if got != declared {
		return fmt.Errorf("world_hash mismatch: declared %s, computed %s", declared, got)
	}
	return nil
}

// WorldHash computes the canonical SHA-256 content hash of a world map
// document, excluding the world_hash field itself.
func WorldHash(doc WorldMapDoc) (string, error) {
	doc.WorldHash = ""
	return codec.Hash(doc)
}

// BuildWorld constructs a runtime worldstate.WorldState from a verified
// world map document.
func BuildWorld(doc *WorldMapDoc) (*worldstate.WorldState, error) {
	w := worldstate.New()

	topo, err := parseTopology(doc.TopologyType)
	if err != nil {
		return nil, err
	}
	defaultSpace, ok := w.Space(worldstate.DefaultSpaceID)
	if !ok {
		return nil, fmt.Errorf("content: missing default space")
	}
	defaultSpace.Topology = topo
	defaultSpace.TopologyParams = doc.TopologyParams

	for _, hex := range doc.Hexes {
		defaultSpace.Hexes[hex.Coord] = hex.Record
	}

	for _, se := range doc.Spaces {
		stopo, err := parseTopology(se.TopologyType)
		if err != nil {
			return nil, err
		}
		role := worldstate.RoleCampaign
		if se.Role == string(worldstate.RoleLocal) {
			role = worldstate.RoleLocal
		}
		space := w.AddSpace(se.ID, stopo, se.TopologyParams, role)
		for _, d := range se.Doors {
			door := d
			space.Doors[door.ID] = &door
		}
		for _, a := range se.Anchors {
			anchor := a
			space.Anchors[anchor.ID] = &anchor
		}
		for _, i := range se.Interactables {
			ia := i
			space.Interactables[ia.ID] = &ia
		}
	}

	for _, c := range doc.Containers {
		container := w.EnsureContainer(c.ID)
		container.OwnerID = c.OwnerID
		container.Location = c.Location
		for item, qty := range c.Items {
			container.SetItem(item, qty)
		}
	}

	for _, s := range doc.Sites {
		w.Sites[s.ID] = &worldstate.Site{ID: s.ID, Type: s.Type, Location: s.Location, Entrance: s.Entrance}
	}

	for _, sig := range doc.Signals {
		w.AppendSignal(sig)
	}
	for _, t := range doc.Tracks {
		w.AppendTrack(t)
	}
	for _, sd := range doc.SpawnDescriptors {
		w.AppendSpawnDescriptor(sd)
	}
	for _, r := range doc.Rumors {
		if err := w.AppendRumor(r); err != nil {
			return nil, fmt.Errorf("content: authored rumor %q: %w", r.ID, err)
		}
	}
	for _, oc := range doc.StructureOcclusion {
		w.SetOcclusion(oc.SpaceID, oc.CellA, oc.CellB, oc.Cost)
	}

	if err := w.ValidateInvariants(); err != nil {
		return nil, fmt.Errorf("content: world map invariant violation: %w", err)
	}
	return w, nil
}

// ExportWorldMap converts a live WorldState back into the on-disk document
// shape, stamping the given worldHash (recomputed by the caller via
// WorldHash over the zero-hash form) so a save's embedded world_state
// round-trips byte-for-byte through save/load property.
func ExportWorldMap(w *worldstate.WorldState, worldHash string) (WorldMapDoc, error) {
	defaultSpace, ok := w.Space(worldstate.DefaultSpaceID)
	if !ok {
		return WorldMapDoc{}, fmt.Errorf("content: world missing default space")
	}
	topoType, err := topologyTypeString(defaultSpace.Topology)
	if err != nil {
		return WorldMapDoc{}, err
	}

	doc := WorldMapDoc{
		SchemaVersion:  1,
		WorldHash:      worldHash,
		TopologyType:   topoType,
		TopologyParams: defaultSpace.TopologyParams,
		Hexes:          exportHexes(defaultSpace),
	}

	for _, spaceID := range w.SortedSpaceIDs() {
		if spaceID == worldstate.DefaultSpaceID {
			continue
		}
		space := w.Spaces[spaceID]
		stype, err := topologyTypeString(space.Topology)
		if err != nil {
			return WorldMapDoc{}, err
		}
		se := SpaceEntry{
			ID:             space.ID,
			TopologyType:   stype,
			TopologyParams: space.TopologyParams,
			Role:           string(space.Role),
		}
		doorIDs := make([]string, 0, len(space.Doors))
		for id := range space.Doors {
			doorIDs = append(doorIDs, id)
		}
		sort.Strings(doorIDs)
		for _, id := range doorIDs {
			se.Doors = append(se.Doors, *space.Doors[id])
		}
		anchorIDs := make([]string, 0, len(space.Anchors))
		for id := range space.Anchors {
			anchorIDs = append(anchorIDs, id)
		}
		sort.Strings(anchorIDs)
		for _, id := range anchorIDs {
			se.Anchors = append(se.Anchors, *space.Anchors[id])
		}
		interIDs := make([]string, 0, len(space.Interactables))
		for id := range space.Interactables {
			interIDs = append(interIDs, id)
		}
		sort.Strings(interIDs)
		for _, id := range interIDs {
			se.Interactables = append(se.Interactables, *space.Interactables[id])
		}
		doc.Spaces = append(doc.Spaces, se)
	}

	containerIDs := make([]string, 0, len(w.Containers))
	for id := range w.Containers {
		containerIDs = append(containerIDs, id)
	}
	sort.Strings(containerIDs)
	for _, id := range containerIDs {
		c := w.Containers[id]
		doc.Containers = append(doc.Containers, ContainerEntry{ID: c.ID, Items: c.Items, OwnerID: c.OwnerID, Location: c.Location})
	}

	siteIDs := make([]string, 0, len(w.Sites))
	for id := range w.Sites {
		siteIDs = append(siteIDs, id)
	}
	sort.Strings(siteIDs)
	for _, id := range siteIDs {
		s := w.Sites[id]
		doc.Sites = append(doc.Sites, SiteEntry{ID: s.ID, Type: s.Type, Location: s.Location, Entrance: s.Entrance})
	}

	doc.Signals = append(doc.Signals, w.Signals...)
	doc.Tracks = append(doc.Tracks, w.Tracks...)
	doc.SpawnDescriptors = append(doc.SpawnDescriptors, w.SpawnDescs...)
	doc.Rumors = append(doc.Rumors, w.Rumors...)

	for _, e := range w.OcclusionEdges() {
		doc.StructureOcclusion = append(doc.StructureOcclusion, OcclusionEntry{SpaceID: e.SpaceID, CellA: e.KeyA, CellB: e.KeyB, Cost: e.Cost})
	}

	return doc, nil
}

func exportHexes(space *worldstate.SpaceState) []HexEntry {
	cells := make([]worldstate.Cell, 0, len(space.Hexes))
	for c := range space.Hexes {
		cells = append(cells, c)
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].A != cells[j].A {
			return cells[i].A < cells[j].A
		}
		return cells[i].B < cells[j].B
	})
	out := make([]HexEntry, 0, len(cells))
	for _, c := range cells {
		out = append(out, HexEntry{Coord: c, Record: space.Hexes[c]})
	}
	return out
}

func topologyTypeString(topo hexgrid.Topology) (string, error) {
	switch topo {
	case hexgrid.TopologyHexDisk:
		return "hex_disk", nil
	case hexgrid.TopologyHexRectangle:
		return "hex_rectangle", nil
	case hexgrid.TopologyCustomHex:
		return "custom", nil
	case hexgrid.TopologySquareGrid:
		return "square_grid", nil
	default:
		return "", fmt.Errorf("content: unknown topology %q", topo)
	}
}

func parseTopology(t string) (hexgrid.Topology, error) {
	switch t {
	case "hex_disk":
		return hexgrid.TopologyHexDisk, nil
	case "hex_rectangle":
		return hexgrid.TopologyHexRectangle, nil
	case "custom":
		return hexgrid.TopologyCustomHex, nil
	case "square_grid":
		return hexgrid.TopologySquareGrid, nil
	default:
		return "", fmt.Errorf("content: unknown topology_type %q", t)
	}
}
