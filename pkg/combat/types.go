// Package combat implements the combat subsystem (spec.md §4.9): target
// acquisition, damage dealing, kill processing, regeneration, and fame
// attribution. It is the largest subsystem in the pipeline, split across
// targets.go, damage.go, kill.go, regen.go and fame.go.
package combat

import (
	"sort"

	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/model"
)

// fighterRef names any combat participant, character or building, by
// its TargetRef key.
type fighterRef = model.TargetRef

// fighterSnapshot is the read-only view of one fighter's combat-
// relevant state, captured once per phase so subsequent HP mutations
// never feed back into the same phase's decisions (spec.md §4.9,
// "all read-only modifier snapshots are captured before any HP
// changes").
type fighterSnapshot struct {
	Ref       fighterRef
	Faction   string
	Pos       hexgrid.Coord
	HP        model.HP
	Combat    model.CombatData
	Range     int
	CanAttack bool
}

// modifier bundles the damage/range/hit-chance percentage adjustments
// in effect for one fighter at snapshot time, derived from its active
// low-HP boost (the first one whose threshold the fighter's current
// armour ratio satisfies, lowest threshold first) plus its effects.
type modifier struct {
	DamagePercent    int
	RangePercent     int
	HitChancePercent int
}

func newModifier() modifier {
	return modifier{DamagePercent: 100, RangePercent: 100, HitChancePercent: 100}
}

// computeModifier applies the fighter's lowest-threshold satisfied
// low-HP boost (boosts are evaluated in ascending ThresholdPercent
// order so the tightest-fitting boost wins) plus ambient effects.
func computeModifier(hp model.HP, combat model.CombatData) modifier {
	mod := newModifier()
	if combat.Effects.RangePercent != 0 {
		mod.RangePercent = combat.Effects.RangePercent
	}
	if combat.Effects.HitChancePercent != 0 {
		mod.HitChancePercent = combat.Effects.HitChancePercent
	}
	if hp.MaxArmour <= 0 {
		return mod
	}
	boosts := append([]model.LowHPBoost(nil), combat.LowHPBoosts...)
	sort.Slice(boosts, func(i, j int) bool { return boosts[i].ThresholdPercent < boosts[j].ThresholdPercent })
	ratio := hp.Armour * 100 / hp.MaxArmour
	for _, b := range boosts {
		if ratio <= int64(b.ThresholdPercent) {
			mod.DamagePercent = b.DamagePercent
			mod.RangePercent = b.RangePercent
			mod.HitChancePercent = b.HitChancePercent
			break
		}
	}
	return mod
}

func applyPercent(base, percent int) int {
	return base * percent / 100
}

// baseHitChance implements spec.md §8's algebra:
// target ≥ weapon ⇒ 100; else floor(100*target/weapon).
func baseHitChance(targetSize, weaponSize int) int {
	if weaponSize <= 0 {
		return 100
	}
	if targetSize >= weaponSize {
		return 100
	}
	return 100 * targetSize / weaponSize
}

// shieldArmourSplit implements spec.md §4.9's exact split rules: all
// integer division truncates toward zero, and neither result may
// exceed the pool it is drawn from.
func shieldArmourSplit(dmg int64, shieldPercent, armourPercent int, shield, armour int64) (doneShield, doneArmour int64) {
	if shieldPercent == 0 {
		shieldPercent = 100
	}
	if armourPercent == 0 {
		armourPercent = 100
	}
	availableForShield := dmg * int64(shieldPercent) / 100
	doneShield = availableForShield
	if doneShield > shield {
		doneShield = shield
	}
	if doneShield < shield {
		return doneShield, 0
	}
	baseUsedForShield := int64(0)
	if shieldPercent > 0 {
		baseUsedForShield = doneShield * 100 / int64(shieldPercent)
	}
	remaining := dmg - baseUsedForShield
	if remaining < 0 {
		remaining = 0
	}
	availableForArmour := remaining * int64(armourPercent) / 100
	doneArmour = availableForArmour
	if doneArmour > armour {
		doneArmour = armour
	}
	return doneShield, doneArmour
}

func sortedRefs(refs map[fighterRef]bool) []fighterRef {
	out := make([]fighterRef, 0, len(refs))
	for r := range refs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
