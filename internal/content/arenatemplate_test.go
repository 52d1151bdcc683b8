package content

import (
	"testing"

	"hexkeep/internal/worldstate"
)

func TestLoadArenaTemplatesCompilesEntries(t *testing.T) {
	path := writeFixture(t, "arenas.json", `{
		"schema_version": 1,
		"templates": [
			{"id": "crypt", "width": 6, "height": 10, "entry": {"a": 1, "b": 2}}
		]
	}`)

	templates, err := LoadArenaTemplates(path)
	if err != nil {
		t.Fatalf("LoadArenaTemplates: %v", err)
	}
	crypt, ok := templates["crypt"]
	if !ok {
		t.Fatalf("missing compiled template")
	}
	if crypt.Width != 6 || crypt.Height != 10 || crypt.Entry != (worldstate.Cell{A: 1, B: 2}) {
		t.Fatalf("unexpected compiled template: %+v", crypt)
	}
}

func TestLoadArenaTemplatesInjectsDefaultAndMinimalWhenAbsent(t *testing.T) {
	path := writeFixture(t, "arenas.json", `{"schema_version": 1, "templates": []}`)

	templates, err := LoadArenaTemplates(path)
	if err != nil {
		t.Fatalf("LoadArenaTemplates: %v", err)
	}
	def, ok := templates["default"]
	if !ok || def.Width != 8 || def.Height != 8 {
		t.Fatalf("expected fallback default template, got %+v", def)
	}
	minimal, ok := templates["minimal"]
	if !ok || minimal.Width != 4 || minimal.Height != 4 {
		t.Fatalf("expected fallback minimal template, got %+v", minimal)
	}
}

func TestLoadArenaTemplatesDoesNotOverrideAuthoredDefault(t *testing.T) {
	path := writeFixture(t, "arenas.json", `{
		"schema_version": 1,
		"templates": [{"id": "default", "width": 12, "height": 12}]
	}`)

	templates, err := LoadArenaTemplates(path)
	if err != nil {
		t.Fatalf("LoadArenaTemplates: %v", err)
	}
	if templates["default"].Width != 12 {
		t.Fatalf("authored default template was overridden: %+v", templates["default"])
	}
}

func TestLoadArenaTemplatesRejectsWrongSchemaVersion(t *testing.T) {
	path := writeFixture(t, "arenas.json", `{"schema_version": 2, "templates": []}`)
	if _, err := LoadArenaTemplates(path); err == nil {
		t.Fatalf("expected error for unsupported schema_version")
	}
}

func TestLoadArenaTemplatesRejectsEmptyID(t *testing.T) {
	path := writeFixture(t, "arenas.json", `{"schema_version": 1, "templates": [{"id": "", "width": 4, "height": 4}]}`)
	if _, err := LoadArenaTemplates(path); err == nil {
		t.Fatalf("expected error for empty template id")
	}
}

func TestLoadArenaTemplatesRejectsNonPositiveDimensions(t *testing.T) {
	path := writeFixture(t, "arenas.json", `{"schema_version": 1, "templates": [{"id": "crypt", "width": 0, "height": 4}]}`)
	if _, err := LoadArenaTemplates(path); err == nil {
		t.Fatalf("expected error for width <= 0")
	}
}
