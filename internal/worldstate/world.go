// Package worldstate implements the WorldState data model: spaces,
// entities, containers, sites, signals, occlusion, rumors, tracks, and
// spawn descriptors, along with the invariants placed on them.
package worldstate

import (
	"fmt"
	"sort"

	"hexkeep/internal/hexgrid"
)

// Default space/topology constants and the bounded-resource contract: the
// default overworld space must exist, and these caps bound how large each
// collection can grow.
const (
	DefaultSpaceID = "overworld"

	MaxSignals         = 256
	MaxOcclusionEdges  = 4096
	MaxWounds          = 8
	MaxEventTrace      = 512
	MaxCombatLog       = 256
	MaxExecutedUIDs    = 1024
	MaxAffectedPerHit  = 16
	MaxCommandsPerTick = 2048
	MaxEventsPerTick   = 4096
)

// Cell is a topology-generic cell coordinate: (q, r) on any hex topology,
// (x, y) on a square grid. Interpretation is governed by the owning space's
// Topology field.
type Cell struct {
	A int `json:"a"`
	B int `json:"b"`
}

// Axial views the cell as hex axial coordinates.
func (c Cell) Axial() hexgrid.Axial { return hexgrid.Axial{Q: c.A, R: c.B} }

// Square views the cell as square-grid coordinates.
func (c Cell) Square() hexgrid.Square { return hexgrid.Square{X: c.A, Y: c.B} }

// CellFromAxial constructs a Cell from a hex axial coordinate.
func CellFromAxial(a hexgrid.Axial) Cell { return Cell{A: a.Q, B: a.R} }

// CellFromSquare constructs a Cell from a square-grid coordinate.
func CellFromSquare(s hexgrid.Square) Cell { return Cell{A: s.X, B: s.Y} }

// Location pins a cell to the space that contains it.
type Location struct {
	SpaceID string `json:"spaceId"`
	Cell    Cell   `json:"cell"`
}

// SpaceRole governs which intents a space accepts.
type SpaceRole string

const (
	RoleCampaign SpaceRole = "campaign"
	RoleLocal    SpaceRole = "local"
)

// TopologyParams carries integer-only topology configuration (radius for
// hex-disk, width/height for hex-rectangle/square-grid). Values MUST be
// integral; the canonical codec enforces this for any payload built from
// this struct.
type TopologyParams struct {
	Radius int `json:"radius,omitempty"`
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Door is a pair of adjacent cells that can be open/closed and optionally
// locked or blocked.
type Door struct {
	ID      string          `json:"id"`
	CellA   Cell            `json:"cellA"`
	CellB   Cell            `json:"cellB"`
	State   DoorState       `json:"state"`
	Locked  bool            `json:"locked"`
	Blocked bool            `json:"blocked"`
	Extra   map[string]any  `json:"metadata,omitempty"`
}

// DoorState is one of "open" or "closed".
type DoorState string

const (
	DoorOpen   DoorState = "open"
	DoorClosed DoorState = "closed"
)

// AnchorTarget points a space anchor at another space or a site.
type AnchorTarget struct {
	SpaceID string `json:"spaceId,omitempty"`
	SiteID  string `json:"siteId,omitempty"`
}

// Anchor is a cell that transitions an entity elsewhere on "exit" interaction.
type Anchor struct {
	ID     string       `json:"id"`
	Cell   Cell         `json:"cell"`
	Target AnchorTarget `json:"target"`
}

// Interactable is a cell carrying a kind and an arbitrary JSON-primitive
// state bag, mutated in place by interaction_intent(use/inspect).
type Interactable struct {
	ID    string         `json:"id"`
	Cell  Cell           `json:"cell"`
	Kind  string         `json:"kind"`
	State map[string]any `json:"state,omitempty"`
}

// HexRecord is the per-hex authoring payload loaded from the world map JSON.
type HexRecord struct {
	TerrainType string         `json:"terrainType"`
	SiteType    string         `json:"siteType,omitempty"` // none|town|dungeon
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// SpaceState is one space (campaign plane or local arena) in the world.
type SpaceState struct {
	ID             string               `json:"id"`
	Topology       hexgrid.Topology     `json:"topology"`
	TopologyParams TopologyParams       `json:"topologyParams"`
	Role           SpaceRole            `json:"role"`
	Hexes          map[Cell]HexRecord   `json:"-"` // serialized separately; map keys aren't JSON-safe
	Doors          map[string]*Door     `json:"-"`
	Anchors        map[string]*Anchor   `json:"-"`
	Interactables  map[string]*Interactable `json:"-"`
}

func newSpace(id string, topo hexgrid.Topology, params TopologyParams, role SpaceRole) *SpaceState {
	return &SpaceState{
		ID:             id,
		Topology:       topo,
		TopologyParams: params,
		Role:           role,
		Hexes:          make(map[Cell]HexRecord),
		Doors:          make(map[string]*Door),
		Anchors:        make(map[string]*Anchor),
		Interactables:  make(map[string]*Interactable),
	}
}

// Site is a named location (town, dungeon, ...) with an optional entrance
// pointing at another space.
type Site struct {
	ID       string        `json:"id"`
	Type     string        `json:"type"`
	Location Location      `json:"location"`
	Entrance *SiteEntrance `json:"entrance,omitempty"`
}

// SiteEntrance references the space a site's interior lives in.
type SiteEntrance struct {
	TargetSpaceID string `json:"targetSpaceId"`
}

// Container holds item_id -> quantity, optionally owned by an entity and/or
// pinned to a world location.
type Container struct {
	ID       string         `json:"id"`
	Items    map[string]int `json:"items"`
	OwnerID  string         `json:"ownerId,omitempty"`
	Location *Location      `json:"location,omitempty"`
}

// Signal is an emitted phenomenon propagated by the signals module.
type Signal struct {
	ID            string         `json:"signalId"`
	TickEmitted   uint64         `json:"tickEmitted"`
	SpaceID       string         `json:"spaceId"`
	Origin        Cell           `json:"origin"`
	Channel       string         `json:"channel"`
	BaseIntensity float64        `json:"baseIntensity"`
	FalloffModel  string         `json:"falloffModel"`
	MaxRadius     int            `json:"maxRadius"`
	TTLTicks      int            `json:"ttlTicks"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Track is an ordered record left behind by executed encounter actions
// (e.g. track_intent bootprints).
type Track struct {
	ID       string         `json:"id"`
	TickMade uint64         `json:"tickMade"`
	Location Location       `json:"location"`
	Kind     string         `json:"kind"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SpawnDescriptor is a pending request to materialize entities at a
// location.
type SpawnDescriptor struct {
	ActionUID  string         `json:"actionUid"`
	TemplateID string         `json:"templateId"`
	Quantity   int            `json:"quantity"`
	Location   Location       `json:"location"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Rumor is a hop-bounded derivation of an executed encounter outcome.
type Rumor struct {
	ID         string   `json:"rumorId"`
	TemplateID string   `json:"templateId"`
	Hop        int      `json:"hop"`
	Confidence float64  `json:"confidence"`
	Location   Location `json:"location"`
	TTLTicks   int      `json:"ttlTicks"`
	TickMade   uint64   `json:"tickMade"`
}

// OcclusionEdge is an undirected edge between two cells in the same space
// carrying an integer cost added to signal-path search.
type OcclusionEdge struct {
	SpaceID string `json:"spaceId"`
	KeyA    Cell   `json:"cellA"`
	KeyB    Cell   `json:"cellB"`
	Cost    int    `json:"cost"`
}

// edgeKey canonicalizes an edge by sorting its two endpoints so that
// (a, b) and (b, a) always map to the same key.
func edgeKey(spaceID string, a, b Cell) (string, Cell, Cell) {
	if a.A > b.A || (a.A == b.A && a.B > b.B) {
		a, b = b, a
	}
	return fmt.Sprintf("%s|%d,%d|%d,%d", spaceID, a.A, a.B, b.A, b.B), a, b
}

// WorldState is process-wide content for one simulation: every space,
// container, site, signal, track, rumor, spawn descriptor, and occlusion
// edge. It owns no entities (see EntityTable in entity.go) and no RNG
// state (see internal/rng.Registry) — those are partitions of the owning
// Simulation's ownership rule.
type WorldState struct {
	Spaces      map[string]*SpaceState    `json:"-"`
	Containers  map[string]*Container     `json:"-"`
	Sites       map[string]*Site          `json:"-"`
	Signals     []Signal                  `json:"-"`
	Tracks      []Track                   `json:"-"`
	SpawnDescs  []SpawnDescriptor         `json:"-"`
	Rumors      []Rumor                   `json:"-"`
	occlusion   map[string]*OcclusionEdge // keyed by edgeKey
	occlusionQ  []string                  // insertion order, for FIFO eviction
}

// New constructs an empty world with the mandatory default overworld space.
func New() *WorldState {
	w := &WorldState{
		Spaces:     make(map[string]*SpaceState),
		Containers: make(map[string]*Container),
		Sites:      make(map[string]*Site),
		occlusion:  make(map[string]*OcclusionEdge),
	}
	w.Spaces[DefaultSpaceID] = newSpace(DefaultSpaceID, hexgrid.TopologyHexDisk, TopologyParams{Radius: 16}, RoleCampaign)
	return w
}

// AddSpace registers a new space, e.g. a freshly instanced local arena.
func (w *WorldState) AddSpace(id string, topo hexgrid.Topology, params TopologyParams, role SpaceRole) *SpaceState {
	s := newSpace(id, topo, params, role)
	w.Spaces[id] = s
	return s
}

// Space looks up a space by id.
func (w *WorldState) Space(id string) (*SpaceState, bool) {
	s, ok := w.Spaces[id]
	return s, ok
}

// EnsureContainer fetches or lazily creates a container.
func (w *WorldState) EnsureContainer(id string) *Container {
	if c, ok := w.Containers[id]; ok {
		return c
	}
	c := &Container{ID: id, Items: make(map[string]int)}
	w.Containers[id] = c
	return c
}

// Container looks up a container by id without creating it.
func (w *WorldState) Container(id string) (*Container, bool) {
	c, ok := w.Containers[id]
	return c, ok
}

// SetItem sets a container's quantity for item_id, pruning the entry once
// it reaches zero.
func (c *Container) SetItem(itemID string, quantity int) {
	if quantity <= 0 {
		delete(c.Items, itemID)
		return
	}
	c.Items[itemID] = quantity
}

// AppendSignal appends a signal, evicting the oldest if MaxSignals is
// exceeded.
func (w *WorldState) AppendSignal(s Signal) {
	w.Signals = append(w.Signals, s)
	if len(w.Signals) > MaxSignals {
		w.Signals = w.Signals[len(w.Signals)-MaxSignals:]
	}
}

// AppendTrack appends a track record. Tracks carry no explicit cap.
func (w *WorldState) AppendTrack(t Track) {
	w.Tracks = append(w.Tracks, t)
}

// AppendRumor appends a rumor, validating hop/confidence invariants.
func (w *WorldState) AppendRumor(r Rumor) error {
	if r.Hop < 0 {
		return fmt.Errorf("worldstate: rumor hop must be >= 0, got %d", r.Hop)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("worldstate: rumor confidence must be in [0,1], got %f", r.Confidence)
	}
	w.Rumors = append(w.Rumors, r)
	return nil
}

// AppendSpawnDescriptor records a new spawn request.
func (w *WorldState) AppendSpawnDescriptor(d SpawnDescriptor) {
	w.SpawnDescs = append(w.SpawnDescs, d)
}

// SetOcclusion establishes or updates the occlusion cost of the edge
// between a and b within spaceID, evicting the oldest edge on overflow
// past MaxOcclusionEdges.
func (w *WorldState) SetOcclusion(spaceID string, a, b Cell, cost int) {
	key, ca, cb := edgeKey(spaceID, a, b)
	if cost <= 0 {
		w.clearOcclusionKey(key)
		return
	}
	if _, exists := w.occlusion[key]; !exists {
		w.occlusionQ = append(w.occlusionQ, key)
	}
	w.occlusion[key] = &OcclusionEdge{SpaceID: spaceID, KeyA: ca, KeyB: cb, Cost: cost}
	w.evictOcclusionIfNeeded()
}

// ClearOcclusion removes the edge between a and b within spaceID, if present.
func (w *WorldState) ClearOcclusion(spaceID string, a, b Cell) {
	key, _, _ := edgeKey(spaceID, a, b)
	w.clearOcclusionKey(key)
}

func (w *WorldState) clearOcclusionKey(key string) {
	if _, ok := w.occlusion[key]; !ok {
		return
	}
	delete(w.occlusion, key)
	for i, k := range w.occlusionQ {
		if k == key {
			w.occlusionQ = append(w.occlusionQ[:i], w.occlusionQ[i+1:]...)
			break
		}
	}
}

func (w *WorldState) evictOcclusionIfNeeded() {
	for len(w.occlusionQ) > MaxOcclusionEdges {
		oldest := w.occlusionQ[0]
		w.occlusionQ = w.occlusionQ[1:]
		delete(w.occlusion, oldest)
	}
}

// OcclusionCost returns the additional edge cost between a and b within
// spaceID (0 if no edge is recorded).
func (w *WorldState) OcclusionCost(spaceID string, a, b Cell) int {
	key, _, _ := edgeKey(spaceID, a, b)
	if e, ok := w.occlusion[key]; ok {
		return e.Cost
	}
	return 0
}

// OcclusionEdges returns every recorded edge in insertion order, for
// serialization.
func (w *WorldState) OcclusionEdges() []OcclusionEdge {
	out := make([]OcclusionEdge, 0, len(w.occlusionQ))
	for _, k := range w.occlusionQ {
		out = append(out, *w.occlusion[k])
	}
	return out
}

// RestoreOcclusionEdges rehydrates the occlusion ledger from a serialized
// slice, preserving insertion order for deterministic future FIFO eviction.
func (w *WorldState) RestoreOcclusionEdges(edges []OcclusionEdge) {
	w.occlusion = make(map[string]*OcclusionEdge, len(edges))
	w.occlusionQ = w.occlusionQ[:0]
	for _, e := range edges {
		key, a, b := edgeKey(e.SpaceID, e.KeyA, e.KeyB)
		edge := e
		edge.KeyA, edge.KeyB = a, b
		w.occlusion[key] = &edge
		w.occlusionQ = append(w.occlusionQ, key)
	}
}

// SetDoorState applies a door's open/closed transition and maintains the
// default occlusion edge coupling: closed doors carry an occlusion edge of
// at least 1; opening removes it.
func (w *WorldState) SetDoorState(spaceID string, door *Door, newState DoorState) {
	if door.State == newState {
		return
	}
	door.State = newState
	if newState == DoorClosed {
		if w.OcclusionCost(spaceID, door.CellA, door.CellB) == 0 {
			w.SetOcclusion(spaceID, door.CellA, door.CellB, 1)
		}
	} else {
		w.ClearOcclusion(spaceID, door.CellA, door.CellB)
	}
}

// ValidateInvariants checks the world-level invariants. It is intended for
// use in tests and after load, not on every mutation (the individual
// mutator methods above already enforce what they can cheaply).
func (w *WorldState) ValidateInvariants() error {
	for spaceID, space := range w.Spaces {
		for _, door := range space.Doors {
			if door.State == DoorClosed && w.OcclusionCost(spaceID, door.CellA, door.CellB) < 1 {
				return fmt.Errorf("worldstate: closed door %s in space %s missing occlusion edge", door.ID, spaceID)
			}
		}
	}
	if len(w.Signals) > MaxSignals {
		return fmt.Errorf("worldstate: signals exceed cap %d", MaxSignals)
	}
	for id, c := range w.Containers {
		for item, qty := range c.Items {
			if qty < 0 {
				return fmt.Errorf("worldstate: container %s item %s has negative quantity %d", id, item, qty)
			}
			if qty == 0 {
				return fmt.Errorf("worldstate: container %s item %s has pruned-zero quantity still present", id, item)
			}
		}
	}
	for _, r := range w.Rumors {
		if r.Hop < 0 || r.Confidence < 0 || r.Confidence > 1 {
			return fmt.Errorf("worldstate: rumor %s violates hop/confidence bounds", r.ID)
		}
	}
	for _, site := range w.Sites {
		if site.Entrance != nil && site.Entrance.TargetSpaceID != "" {
			if _, ok := w.Spaces[site.Entrance.TargetSpaceID]; !ok {
				return fmt.Errorf("worldstate: site %s entrance targets unknown space %s", site.ID, site.Entrance.TargetSpaceID)
			}
		}
	}
	return nil
}

// SortedSpaceIDs returns every space id in lexicographic order, used by
// serialization to produce a canonical ordering.
func (w *WorldState) SortedSpaceIDs() []string {
	ids := make([]string, 0, len(w.Spaces))
	for id := range w.Spaces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
