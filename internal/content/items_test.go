package content

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadItemCatalogSortsAndBuildsKnownSet(t *testing.T) {
	path := writeFixture(t, "items.json", `{
		"schema_version": 1,
		"items": [
			{"id": "torch", "class": "tool", "stackable": true},
			{"id": "bread", "class": "food", "stackable": true, "tier": 1}
		]
	}`)

	items, known, err := LoadItemCatalog(path)
	if err != nil {
		t.Fatalf("LoadItemCatalog: %v", err)
	}
	if len(items) != 2 || items[0].ID != "bread" || items[1].ID != "torch" {
		t.Fatalf("items not sorted by id: %+v", items)
	}
	if !known["torch"] || !known["bread"] {
		t.Fatalf("known set missing entries: %+v", known)
	}
}

func TestLoadItemCatalogRejectsWrongSchemaVersion(t *testing.T) {
	path := writeFixture(t, "items.json", `{"schema_version": 2, "items": []}`)
	if _, _, err := LoadItemCatalog(path); err == nil {
		t.Fatalf("expected error for unsupported schema_version")
	}
}

func TestLoadItemCatalogRejectsEmptyID(t *testing.T) {
	path := writeFixture(t, "items.json", `{"schema_version": 1, "items": [{"id": "", "stackable": false}]}`)
	if _, _, err := LoadItemCatalog(path); err == nil {
		t.Fatalf("expected error for empty item id")
	}
}

func TestLoadItemCatalogRejectsDuplicateID(t *testing.T) {
	path := writeFixture(t, "items.json", `{
		"schema_version": 1,
		"items": [
			{"id": "torch", "stackable": true},
			{"id": "torch", "stackable": true}
		]
	}`)
	if _, _, err := LoadItemCatalog(path); err == nil {
		t.Fatalf("expected error for duplicate item id")
	}
}

func TestLoadItemCatalogMissingFile(t *testing.T) {
	if _, _, err := LoadItemCatalog(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
