package content

import (
	"encoding/json"
	"fmt"
	"os"

	"hexkeep/internal/modules/encounter"
)

// EncounterTableDoc is the on-disk encounter table JSON shape:
// `{schema_version=1, table_id, description?, entries:[{entry_id,
// weight>=1, tags?, payload(object, JSON-safe)}]}`.
type EncounterTableDoc struct {
	SchemaVersion int                  `json:"schema_version"`
	TableID       string               `json:"table_id"`
	Description   string               `json:"description,omitempty"`
	Entries       []EncounterEntryDoc  `json:"entries"`
}

type EncounterEntryDoc struct {
	EntryID string         `json:"entry_id"`
	Weight  int            `json:"weight"`
	Tags    []string       `json:"tags,omitempty"`
	Payload map[string]any `json:"payload"`
}

// LoadEncounterTable reads an encounter table JSON file and compiles it
// into the weighted []encounter.TableEntry the encounter module consumes.
// Entry payloads are expected to carry an "actions" array compatible with
// encounter.ActionTemplate; a payload without one compiles to an empty
// action list, for which the encounter module's selection stage substitutes
// a single signal_intent action named after the entry.
func LoadEncounterTable(path string) ([]encounter.TableEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read encounter table %q: %w", path, err)
	}
	var doc EncounterTableDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("content: decode encounter table %q: %w", path, err)
	}
	if doc.SchemaVersion != 1 {
		return nil, fmt.Errorf("content: encounter table %q: unsupported schema_version %d", path, doc.SchemaVersion)
	}

	seen := make(map[string]struct{}, len(doc.Entries))
	table := make([]encounter.TableEntry, 0, len(doc.Entries))
	for _, e := range doc.Entries {
		if e.EntryID == "" {
			return nil, fmt.Errorf("content: encounter table %q: entry with empty entry_id", path)
		}
		if _, dup := seen[e.EntryID]; dup {
			return nil, fmt.Errorf("content: encounter table %q: duplicate entry_id %q", path, e.EntryID)
		}
		seen[e.EntryID] = struct{}{}
		if e.Weight < 1 {
			return nil, fmt.Errorf("content: encounter table %q: entry %q has weight < 1", path, e.EntryID)
		}
		table = append(table, encounter.TableEntry{
			ID:      e.EntryID,
			Weight:  e.Weight,
			Actions: actionsFromPayload(e.EntryID, e.Payload),
		})
	}
	return table, nil
}

func actionsFromPayload(entryID string, payload map[string]any) []encounter.ActionTemplate {
	raw, ok := payload["actions"].([]any)
	if !ok {
		return nil
	}
	actions := make([]encounter.ActionTemplate, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		a := encounter.ActionTemplate{}
		a.Type, _ = m["type"].(string)
		a.SignalID, _ = m["signal_id"].(string)
		if p, ok := m["params"].(map[string]any); ok {
			a.Params = p
		}
		if a.Type != "" {
			actions = append(actions, a)
		}
	}
	return actions
}
