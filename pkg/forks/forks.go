// Package forks answers height-gated consensus rule questions. Named
// forks read from RoConfig; consumers must never branch on height
// directly (spec.md §6, "Fork gating").
package forks

import "chainrealm/pkg/config"

// Named fork identifiers. Adding a new fork means adding an entry here
// and a corresponding height in the chain's configuration document —
// never a bare height literal at the call site.
const (
	// UnblockSpawns changed the vehicle-blocking semantics of pkg/movement:
	// pre-fork an enemy-faction vehicle on the next tile blocks the step
	// entirely; post-fork it no longer blocks, instead applying a
	// configured blocked-turn penalty, same as a same-faction vehicle's
	// slow-down always did (spec.md §4.4, Scenario 1).
	UnblockSpawns = "UnblockSpawns"

	// FriendlyFireEffects controls whether the "mentecon" effect extends
	// friendly-AoE target search to treat afflicted friendlies as valid
	// AoE targets rather than only enemy target search (supplements
	// spec.md §4.9's mentecon description per original_source/src/forks.cpp).
	FriendlyFireEffects = "FriendlyFireEffects"

	// ExtendedDamageListWindow widens the fame-attribution sliding
	// window from Combat.DamageListWindowBlocks to
	// Combat.ExtendedDamageListWindowBlocks.
	ExtendedDamageListWindow = "ExtendedDamageListWindow"
)

// Handler answers IsActive for a fixed (chain, height) pair.
type Handler struct {
	chain  config.Chain
	height uint64
	cfg    *config.RoConfig
}

// NewHandler builds a Handler bound to one block's chain and height.
func NewHandler(cfg *config.RoConfig, chain config.Chain, height uint64) Handler {
	return Handler{chain: chain, height: height, cfg: cfg}
}

// IsActive reports whether the named fork has activated by this
// handler's height on its chain. An unconfigured fork is treated as
// never-active rather than an error: chains that never define a fork
// simply never activate it (e.g. regtest fixtures that omit mainnet-only
// forks).
func (h Handler) IsActive(name string) bool {
	heights, ok := h.cfg.Forks[h.chain]
	if !ok {
		return false
	}
	activation, ok := heights[name]
	if !ok {
		return false
	}
	return h.height >= activation
}

// DamageListWindow returns the fame-attribution window in effect at
// this handler's height, honoring ExtendedDamageListWindow.
func (h Handler) DamageListWindow() uint64 {
	if h.IsActive(ExtendedDamageListWindow) {
		return uint64(h.cfg.Combat.ExtendedDamageListWindowBlocks)
	}
	return uint64(h.cfg.Combat.DamageListWindowBlocks)
}
