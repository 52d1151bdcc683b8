package content

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ItemDoc is one entry in an item catalog JSON file: id, class, tier,
// stackable flag, and quality modifiers.
type ItemDoc struct {
	ID          string   `json:"id"`
	Class       string   `json:"class,omitempty"`
	Tier        int      `json:"tier,omitempty"`
	Stackable   bool     `json:"stackable"`
	QualityTags []string `json:"quality_tags,omitempty"`
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ItemCatalogDoc is the on-disk item catalog JSON shape.
type ItemCatalogDoc struct {
	SchemaVersion int       `json:"schema_version"`
	Items         []ItemDoc `json:"items"`
}

// LoadItemCatalog reads an item catalog JSON file and returns the decoded
// definitions plus a KnownItems set (item id -> true) suitable for
// inventory.New.
func LoadItemCatalog(path string) ([]ItemDoc, map[string]bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("content: read item catalog %q: %w", path, err)
	}
	var doc ItemCatalogDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("content: decode item catalog %q: %w", path, err)
	}
	if doc.SchemaVersion != 1 {
		return nil, nil, fmt.Errorf("content: item catalog %q: unsupported schema_version %d", path, doc.SchemaVersion)
	}

	known := make(map[string]bool, len(doc.Items))
	for _, it := range doc.Items {
		if it.ID == "" {
			return nil, nil, fmt.Errorf("content: item catalog %q: entry with empty id", path)
		}
		if known[it.ID] {
			return nil, nil, fmt.Errorf("content: item catalog %q: duplicate item id %q", path, it.ID)
		}
		known[it.ID] = true
	}
	items := make([]ItemDoc, len(doc.Items))
	copy(items, doc.Items)
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, known, nil
}
