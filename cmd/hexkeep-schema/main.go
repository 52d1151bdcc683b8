// Command hexkeep-schema emits JSON Schema documents for the save-file
// format and every content-registry format: a flag-driven reflector that
// walks a named set of Go types and writes one schema file per type under
// an output directory.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"hexkeep/internal/content"
	"hexkeep/internal/saveio"
)

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "", "directory to write JSON Schema documents into")
	flag.Parse()

	if outDir == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	for _, s := range schemas() {
		path := filepath.Join(outDir, s.name+".schema.json")
		if err := writeSchema(path, s.build()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
	}
}

type namedSchema struct {
	name  string
	build func() *jsonschema.Schema
}

func schemas() []namedSchema {
	return []namedSchema{
		{"save", func() *jsonschema.Schema { return reflect(new(saveio.Document), "hexkeep save file", "Validates a hexkeep save document (schema_version=1).") }},
		{"world_map", func() *jsonschema.Schema { return reflect(new(content.WorldMapDoc), "hexkeep world map", "Validates an authored world map JSON file.") }},
		{"encounter_table", func() *jsonschema.Schema { return reflect(new(content.EncounterTableDoc), "hexkeep encounter table", "Validates an encounter table JSON file.") }},
		{"supply_profiles", func() *jsonschema.Schema { return reflect(new(content.SupplyProfileDoc), "hexkeep supply profiles", "Validates a supply profile JSON file.") }},
		{"item_catalog", func() *jsonschema.Schema { return reflect(new(content.ItemCatalogDoc), "hexkeep item catalog", "Validates an item catalog JSON file.") }},
		{"arena_templates", func() *jsonschema.Schema { return reflect(new(content.ArenaTemplateDoc), "hexkeep arena templates", "Validates a local-arena template JSON file.") }},
	}
}

func reflect(v any, title, description string) *jsonschema.Schema {
	reflector := jsonschema.Reflector{AllowAdditionalProperties: true}
	schema := reflector.Reflect(v)
	schema.Title = title
	schema.Description = description
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
