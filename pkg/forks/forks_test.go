package forks

import "testing"

import "chainrealm/pkg/config"

func testConfig() *config.RoConfig {
	cfg := config.Default(config.ChainRegtest)
	cfg.Forks = map[config.Chain]config.ForkHeights{
		config.ChainRegtest: {
			UnblockSpawns:            100,
			ExtendedDamageListWindow: 200,
		},
	}
	cfg.Combat.DamageListWindowBlocks = 50
	cfg.Combat.ExtendedDamageListWindowBlocks = 500
	return cfg
}

func TestIsActiveRespectsActivationHeight(t *testing.T) {
	cfg := testConfig()

	before := NewHandler(cfg, config.ChainRegtest, 99)
	if before.IsActive(UnblockSpawns) {
		t.Fatal("expected UnblockSpawns inactive before its activation height")
	}

	at := NewHandler(cfg, config.ChainRegtest, 100)
	if !at.IsActive(UnblockSpawns) {
		t.Fatal("expected UnblockSpawns active at its activation height")
	}

	after := NewHandler(cfg, config.ChainRegtest, 1000)
	if !after.IsActive(UnblockSpawns) {
		t.Fatal("expected UnblockSpawns active after its activation height")
	}
}

func TestIsActiveUnconfiguredForkIsNeverActive(t *testing.T) {
	cfg := testConfig()
	h := NewHandler(cfg, config.ChainRegtest, 1_000_000)
	if h.IsActive("SomeForkNobodyConfigured") {
		t.Fatal("expected an unconfigured fork to never be active")
	}
}

func TestIsActiveUnconfiguredChainIsNeverActive(t *testing.T) {
	cfg := testConfig()
	h := NewHandler(cfg, config.ChainMain, 1_000_000)
	if h.IsActive(UnblockSpawns) {
		t.Fatal("expected a chain with no fork table to never activate forks")
	}
}

func TestDamageListWindowWidensAfterExtendedFork(t *testing.T) {
	cfg := testConfig()

	before := NewHandler(cfg, config.ChainRegtest, 199)
	if got := before.DamageListWindow(); got != 50 {
		t.Fatalf("expected narrow window 50 before fork, got %d", got)
	}

	after := NewHandler(cfg, config.ChainRegtest, 200)
	if got := after.DamageListWindow(); got != 500 {
		t.Fatalf("expected extended window 500 after fork, got %d", got)
	}
}
