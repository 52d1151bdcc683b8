package content

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"hexkeep/internal/worldstate"
)

func hashedWorldMapFixture(t *testing.T) string {
	t.Helper()
	doc := WorldMapDoc{
		SchemaVersion:  1,
		TopologyType:   "hex_disk",
		TopologyParams: worldstate.TopologyParams{Radius: 4},
		Hexes: []HexEntry{
			{Coord: worldstate.Cell{A: 0, B: 0}, Record: worldstate.HexRecord{TerrainType: "plains"}},
		},
	}
	hash, err := WorldHash(doc)
	if err != nil {
		t.Fatalf("WorldHash: %v", err)
	}
	doc.WorldHash = hash

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "world.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadWorldMapAcceptsMatchingHash(t *testing.T) {
	path := hashedWorldMapFixture(t)
	doc, err := LoadWorldMap(path)
	if err != nil {
		t.Fatalf("LoadWorldMap: %v", err)
	}
	if len(doc.Hexes) != 1 || doc.Hexes[0].Record.TerrainType != "plains" {
		t.Fatalf("unexpected decoded hexes: %+v", doc.Hexes)
	}
}

func TestLoadWorldMapRejectsTamperedHash(t *testing.T) {
	path := hashedWorldMapFixture(t)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	var doc WorldMapDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	doc.TopologyParams.Radius = 99 // mutate content without updating world_hash
	tampered, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal tampered: %v", err)
	}
	if err := os.WriteFile(path, tampered, 0o644); err != nil {
		t.Fatalf("write tampered: %v", err)
	}
	if _, err := LoadWorldMap(path); err == nil {
		t.Fatalf("expected world_hash mismatch error")
	}
}

func TestLoadWorldMapRejectsWrongSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.json")
	if err := os.WriteFile(path, []byte(`{"schema_version": 2}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadWorldMap(path); err == nil {
		t.Fatalf("expected error for unsupported schema_version")
	}
}

func TestBuildWorldPopulatesHexesAndContainers(t *testing.T) {
	doc := &WorldMapDoc{
		SchemaVersion:  1,
		TopologyType:   "hex_disk",
		TopologyParams: worldstate.TopologyParams{Radius: 4},
		Hexes: []HexEntry{
			{Coord: worldstate.Cell{A: 0, B: 0}, Record: worldstate.HexRecord{TerrainType: "plains"}},
		},
		Containers: []ContainerEntry{
			{ID: "chest-1", Items: map[string]int{"torch": 2}},
		},
		Sites: []SiteEntry{
			{ID: "town-1", Type: "town", Location: worldstate.Location{SpaceID: worldstate.DefaultSpaceID}},
		},
	}

	w, err := BuildWorld(doc)
	if err != nil {
		t.Fatalf("BuildWorld: %v", err)
	}
	space, ok := w.Space(worldstate.DefaultSpaceID)
	if !ok {
		t.Fatalf("missing default space")
	}
	if space.Hexes[worldstate.Cell{A: 0, B: 0}].TerrainType != "plains" {
		t.Fatalf("hex not applied to default space")
	}
	if w.Containers["chest-1"].Items["torch"] != 2 {
		t.Fatalf("container not populated")
	}
	if w.Sites["town-1"].Type != "town" {
		t.Fatalf("site not populated")
	}
}

func TestBuildWorldRejectsUnknownTopology(t *testing.T) {
	doc := &WorldMapDoc{SchemaVersion: 1, TopologyType: "not-a-real-topology"}
	if _, err := BuildWorld(doc); err == nil {
		t.Fatalf("expected error for unknown topology_type")
	}
}

func TestExportWorldMapRoundTripsThroughBuildWorld(t *testing.T) {
	original := &WorldMapDoc{
		SchemaVersion:  1,
		TopologyType:   "hex_disk",
		TopologyParams: worldstate.TopologyParams{Radius: 4},
		Hexes: []HexEntry{
			{Coord: worldstate.Cell{A: 0, B: 0}, Record: worldstate.HexRecord{TerrainType: "plains"}},
			{Coord: worldstate.Cell{A: 1, B: -1}, Record: worldstate.HexRecord{TerrainType: "forest"}},
		},
	}
	w, err := BuildWorld(original)
	if err != nil {
		t.Fatalf("BuildWorld: %v", err)
	}

	exported, err := ExportWorldMap(w, "")
	if err != nil {
		t.Fatalf("ExportWorldMap: %v", err)
	}
	if len(exported.Hexes) != len(original.Hexes) {
		t.Fatalf("exported hex count mismatch: got %d want %d", len(exported.Hexes), len(original.Hexes))
	}

	rebuilt, err := BuildWorld(&exported)
	if err != nil {
		t.Fatalf("BuildWorld(exported): %v", err)
	}
	rebuiltSpace, _ := rebuilt.Space(worldstate.DefaultSpaceID)
	if rebuiltSpace.Hexes[worldstate.Cell{A: 1, B: -1}].TerrainType != "forest" {
		t.Fatalf("round-tripped hex lost its terrain type")
	}
}

func TestWorldHashIsStableAcrossEquivalentDocuments(t *testing.T) {
	a := WorldMapDoc{SchemaVersion: 1, TopologyType: "hex_disk", TopologyParams: worldstate.TopologyParams{Radius: 4}}
	b := a
	hashA, err := WorldHash(a)
	if err != nil {
		t.Fatalf("WorldHash(a): %v", err)
	}
	hashB, err := WorldHash(b)
	if err != nil {
		t.Fatalf("WorldHash(b): %v", err)
	}
	if hashA != hashB {
		t.Fatalf("identical documents hashed differently: %s vs %s", hashA, hashB)
	}
}
