package content

import (
	"encoding/json"
	"fmt"
	"os"

	"hexkeep/internal/modules/supply"
)

// SupplyProfileDoc is the on-disk supply profile JSON shape:
// `{schema_version=1, profiles:[{profile_id,
// consumes:[{item_id, quantity>0, interval_ticks>0}] (distinct item_ids)}]}`.
type SupplyProfileDoc struct {
	SchemaVersion int                 `json:"schema_version"`
	Profiles      []SupplyProfileEntry `json:"profiles"`
}

type SupplyProfileEntry struct {
	ProfileID string             `json:"profile_id"`
	Consumes  []SupplyConsumeLine `json:"consumes"`
}

type SupplyConsumeLine struct {
	ItemID       string `json:"item_id"`
	Quantity     int    `json:"quantity"`
	IntervalTicks uint64 `json:"interval_ticks"`
}

// LoadSupplyProfiles reads a supply profile JSON file and compiles it into
// the profile_id -> supply.Profile map the supply module consumes.
func LoadSupplyProfiles(path string) (map[string]supply.Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("content: read supply profiles %q: %w", path, err)
	}
	var doc SupplyProfileDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("content: decode supply profiles %q: %w", path, err)
	}
	if doc.SchemaVersion != 1 {
		return nil, fmt.Errorf("content: supply profiles %q: unsupported schema_version %d", path, doc.SchemaVersion)
	}

	out := make(map[string]supply.Profile, len(doc.Profiles))
	for _, p := range doc.Profiles {
		if p.ProfileID == "" {
			return nil, fmt.Errorf("content: supply profiles %q: profile with empty profile_id", path)
		}
		seenItems := make(map[string]struct{}, len(p.Consumes))
		lines := make([]supply.ConsumeLine, 0, len(p.Consumes))
		for _, c := range p.Consumes {
			if _, dup := seenItems[c.ItemID]; dup {
				return nil, fmt.Errorf("content: supply profile %q: duplicate item_id %q", p.ProfileID, c.ItemID)
			}
			seenItems[c.ItemID] = struct{}{}
			if c.Quantity <= 0 {
				return nil, fmt.Errorf("content: supply profile %q: item %q has quantity <= 0", p.ProfileID, c.ItemID)
			}
			if c.IntervalTicks == 0 {
				return nil, fmt.Errorf("content: supply profile %q: item %q has interval_ticks == 0", p.ProfileID, c.ItemID)
			}
			lines = append(lines, supply.ConsumeLine{ItemID: c.ItemID, Quantity: c.Quantity, IntervalTicks: c.IntervalTicks})
		}
		out[p.ProfileID] = supply.Profile{ID: p.ProfileID, Lines: lines}
	}
	return out, nil
}
