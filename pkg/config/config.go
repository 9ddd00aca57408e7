// Package config loads the per-chain read-only configuration ("RoConfig")
// consumed by every phase of the pipeline. RoConfig is loaded once at
// process start and treated as an immutable value from then on — it is
// threaded explicitly through pipeline.Context, never read from a
// package-level global during block processing (spec.md Design Notes,
// "Global configuration").
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Chain identifies which network profile a process is running against.
type Chain string

const (
	ChainMain    Chain = "main"
	ChainTest    Chain = "test"
	ChainRegtest Chain = "regtest"
)

// ItemConfig describes a lootable/craftable item.
type ItemConfig struct {
	CargoSpace int `yaml:"cargo_space"`
}

// VehicleConfig describes a spawnable vehicle type.
type VehicleConfig struct {
	Speed      int `yaml:"speed"`
	CargoSpace int `yaml:"cargo_space"`
	AttackRange int `yaml:"attack_range"`
}

// BuildingConfig describes a constructible building type.
type BuildingConfig struct {
	MaxHP int `yaml:"max_hp"`
}

// FitmentConfig describes an equippable module.
type FitmentConfig struct {
	Slot string `yaml:"slot"`
}

// PrizeConfig describes a single prospecting prize tier.
type PrizeConfig struct {
	Name       string `yaml:"name"`
	Cap        int    `yaml:"cap"`
	Chance1000 int    `yaml:"chance_per_1000"`
}

// StarterZone describes a per-faction starter-zone rectangle in axial
// coordinates.
type StarterZone struct {
	Faction  string `yaml:"faction"`
	MinX     int    `yaml:"min_x"`
	MinY     int    `yaml:"min_y"`
	MaxX     int    `yaml:"max_x"`
	MaxY     int    `yaml:"max_y"`
}

// MiningConfig gives the per-block resource draw range.
type MiningConfig struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// CombatConfig collects the numeric constants spec.md §4.9 names.
type CombatConfig struct {
	EquippedFitmentDropPercent int `yaml:"equipped_fitment_drop_percent"`
	BuildingInventoryDropPercent int `yaml:"building_inventory_drop_percent"`
	DamageListWindowBlocks     int `yaml:"damage_list_window_blocks"`
	ExtendedDamageListWindowBlocks int `yaml:"extended_damage_list_window_blocks"`
	ArmourRegenMilliPerBlock   int64 `yaml:"armour_regen_milli_per_block"`
	ShieldRegenMilliPerBlock   int64 `yaml:"shield_regen_milli_per_block"`
	FamePointsPerKill          int64 `yaml:"fame_points_per_kill"`
}

// PathfindingConfig bounds the search-node budget of pkg/pathfind.
type PathfindingConfig struct {
	MaxSearchNodes int `yaml:"max_search_nodes"`
}

// MovementConfig collects the movement processor's obstacle-handling
// constants (spec.md §4.4, §4.8).
type MovementConfig struct {
	BlockedTurnsThreshold  int `yaml:"blocked_turns_threshold"`
	PostForkEnemyPenalty   int `yaml:"post_fork_enemy_penalty"`
}

// DebugConfig gates non-consensus-critical, slow diagnostics.
type DebugConfig struct {
	ValidateInvariants bool `yaml:"validate_invariants"`
}

// ForkHeights maps a fork name to its activation height for one chain.
type ForkHeights map[string]uint64

// RoConfig is the complete immutable per-chain configuration.
type RoConfig struct {
	Chain               Chain                  `yaml:"-"`
	CharacterLimitPerAccount int               `yaml:"character_limit_per_account"`
	ProspectingBlocks   int                    `yaml:"prospecting_blocks"`
	Items               map[string]ItemConfig  `yaml:"items"`
	Vehicles            map[string]VehicleConfig `yaml:"vehicles"`
	Buildings           map[string]BuildingConfig `yaml:"buildings"`
	Fitments            map[string]FitmentConfig `yaml:"fitments"`
	Prizes              []PrizeConfig          `yaml:"prizes"`
	StarterZones        []StarterZone          `yaml:"starter_zones"`
	Mining              MiningConfig           `yaml:"mining"`
	Combat              CombatConfig           `yaml:"combat"`
	Pathfinding         PathfindingConfig      `yaml:"pathfinding"`
	Movement            MovementConfig        `yaml:"movement"`
	Debug               DebugConfig            `yaml:"debug"`
	Forks               map[Chain]ForkHeights  `yaml:"forks"`
}

// Load parses a per-chain YAML configuration document.
func Load(chain Chain, path string) (*RoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg RoConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Chain = chain
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a minimal RoConfig with sane defaults, used by tests
// and by cmd/gspconsole's init-chain when no config file is supplied.
func Default(chain Chain) *RoConfig {
	cfg := &RoConfig{Chain: chain}
	cfg.applyDefaults()
	return cfg
}

func (c *RoConfig) applyDefaults() {
	if c.CharacterLimitPerAccount == 0 {
		c.CharacterLimitPerAccount = 20
	}
	if c.ProspectingBlocks == 0 {
		c.ProspectingBlocks = 10
	}
	if c.Mining.Min == 0 && c.Mining.Max == 0 {
		c.Mining.Min, c.Mining.Max = 1, 10
	}
	if c.Combat.EquippedFitmentDropPercent == 0 {
		c.Combat.EquippedFitmentDropPercent = 20
	}
	if c.Combat.BuildingInventoryDropPercent == 0 {
		c.Combat.BuildingInventoryDropPercent = 30
	}
	if c.Combat.DamageListWindowBlocks == 0 {
		c.Combat.DamageListWindowBlocks = 100
	}
	if c.Combat.ExtendedDamageListWindowBlocks == 0 {
		c.Combat.ExtendedDamageListWindowBlocks = 200
	}
	if c.Combat.ArmourRegenMilliPerBlock == 0 {
		c.Combat.ArmourRegenMilliPerBlock = 500
	}
	if c.Combat.ShieldRegenMilliPerBlock == 0 {
		c.Combat.ShieldRegenMilliPerBlock = 1000
	}
	if c.Combat.FamePointsPerKill == 0 {
		c.Combat.FamePointsPerKill = 100
	}
	if c.Pathfinding.MaxSearchNodes == 0 {
		c.Pathfinding.MaxSearchNodes = 10000
	}
	if c.Movement.BlockedTurnsThreshold == 0 {
		c.Movement.BlockedTurnsThreshold = 5
	}
	if c.Movement.PostForkEnemyPenalty == 0 {
		c.Movement.PostForkEnemyPenalty = 2
	}
	if c.Forks == nil {
		c.Forks = map[Chain]ForkHeights{}
	}
}
