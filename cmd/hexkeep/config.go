package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config carries the content-registry paths a Simulation is wired against,
// layered env (HEXKEEP_*) > yaml config file > built-in default. The only
// command-line override is new_save_from_map's --seed, which takes
// precedence over DefaultSeed.
type Config struct {
	EncounterTable string
	SupplyProfiles string
	ItemCatalog    string
	ArenaTemplates string
	DefaultSeed    string
}

func defaultConfig() Config {
	return Config{
		EncounterTable: "content/encounter_table.json",
		SupplyProfiles: "content/supply_profiles.json",
		ItemCatalog:    "content/item_catalog.json",
		ArenaTemplates: "content/arena_templates.json",
		DefaultSeed:    "hexkeep-default-seed",
	}
}

// loadConfig layers an optional yaml config file and HEXKEEP_-prefixed
// environment variables over the built-in defaults. configPath == ""
// skips the file layer entirely.
func loadConfig(configPath string) (Config, error) {
	cfg := defaultConfig()

	vp := viper.New()
	vp.SetEnvPrefix("HEXKEEP")
	vp.AutomaticEnv()
	vp.SetDefault("encounter_table", cfg.EncounterTable)
	vp.SetDefault("supply_profiles", cfg.SupplyProfiles)
	vp.SetDefault("item_catalog", cfg.ItemCatalog)
	vp.SetDefault("arena_templates", cfg.ArenaTemplates)
	vp.SetDefault("default_seed", cfg.DefaultSeed)

	if configPath != "" {
		vp.SetConfigFile(configPath)
		vp.SetConfigType("yaml")
		vp.AddConfigPath(filepath.Dir(configPath))
		if err := vp.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %q: %w", configPath, err)
		}
	}

	cfg.EncounterTable = vp.GetString("encounter_table")
	cfg.SupplyProfiles = vp.GetString("supply_profiles")
	cfg.ItemCatalog = vp.GetString("item_catalog")
	cfg.ArenaTemplates = vp.GetString("arena_templates")
	cfg.DefaultSeed = vp.GetString("default_seed")
	return cfg, nil
}
