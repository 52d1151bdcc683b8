package content

import (
	"encoding/json"
	"fmt"
	"os"

	"hexkeep/internal/modules/localencounter"
	"hexkeep/internal/worldstate"
)

// ArenaTemplateDoc is the on-disk local-arena template JSON shape.
type ArenaTemplateDoc struct {
	SchemaVersion int                  `json:"schema_version"`
	Templates     []ArenaTemplateEntry `json:"templates"`
}

// ArenaTemplateEntry is one authored arena layout.
type ArenaTemplateEntry struct {
	ID     string          `json:"id"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Entry  worldstate.Cell `json:"entry"`
}

// LoadArenaTemplates reads a local-arena template JSON file and compiles it
// into the template_id -> localencounter.ArenaTemplate map the
// localencounter module's structural-template lookup consumes.
func LoadArenaTemplates(path string) (map[string]localencounter.ArenaTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read arena templates %q: %w", path, err)
	}
	var doc ArenaTemplateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("content: decode arena templates %q: %w", path, err)
	}
	if doc.SchemaVersion != 1 {
		return nil, fmt.Errorf("content: arena templates %q: unsupported schema_version %d", path, doc.SchemaVersion)
	}

	out := make(map[string]localencounter.ArenaTemplate, len(doc.Templates))
	for _, t := range doc.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("content: arena templates %q: entry with empty id", path)
		}
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("content: arena template %q: width/height must be > 0", t.ID)
		}
		out[t.ID] = localencounter.ArenaTemplate{ID: t.ID, Width: t.Width, Height: t.Height, Entry: t.Entry}
	}
	if _, ok := out["default"]; !ok {
		out["default"] = localencounter.ArenaTemplate{ID: "default", Width: 8, Height: 8}
	}
	if _, ok := out["minimal"]; !ok {
		out["minimal"] = localencounter.ArenaTemplate{ID: "minimal", Width: 4, Height: 4}
	}
	return out, nil
}
