package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultFillsInSaneConstants(t *testing.T) {
	cfg := Default(ChainRegtest)

	if cfg.Chain != ChainRegtest {
		t.Fatalf("expected chain %q, got %q", ChainRegtest, cfg.Chain)
	}
	if cfg.CharacterLimitPerAccount != 20 {
		t.Fatalf("expected default character limit 20, got %d", cfg.CharacterLimitPerAccount)
	}
	if cfg.Combat.DamageListWindowBlocks != 100 || cfg.Combat.ExtendedDamageListWindowBlocks != 200 {
		t.Fatalf("unexpected default damage list windows: %+v", cfg.Combat)
	}
	if cfg.Forks == nil {
		t.Fatal("expected applyDefaults to initialise a non-nil Forks map")
	}
}

func TestLoadOverridesDefaultsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chain.yaml")
	doc := "character_limit_per_account: 5\nmining:\n  min: 2\n  max: 4\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(ChainMain, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Chain != ChainMain {
		t.Fatalf("expected chain %q, got %q", ChainMain, cfg.Chain)
	}
	if cfg.CharacterLimitPerAccount != 5 {
		t.Fatalf("expected overridden character limit 5, got %d", cfg.CharacterLimitPerAccount)
	}
	if cfg.Mining.Min != 2 || cfg.Mining.Max != 4 {
		t.Fatalf("expected overridden mining range, got %+v", cfg.Mining)
	}
	// Fields the document doesn't set still get applyDefaults's fallback.
	if cfg.Combat.FamePointsPerKill != 100 {
		t.Fatalf("expected default fame points per kill 100, got %d", cfg.Combat.FamePointsPerKill)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(ChainRegtest, "/nonexistent/chain.yaml"); err == nil {
		t.Fatal("expected an error loading a missing config file")
	}
}
