package combat

import (
	"chainrealm/pkg/config"
	"chainrealm/pkg/store"
)

// RegenerateHP advances every regen-capable fighter's armour and shield
// by one block's worth of milli-HP (spec.md §4.9, "Regeneration"). The
// fractional carry lives in HP.MilliArmour/HP.MilliShield and never by
// itself keeps a fighter alive once its whole-HP pools reach zero.
func RegenerateHP(tx *store.Tx, cfg *config.RoConfig) {
	fighters := loadFighters(tx)
	for _, f := range fighters {
		canRegen := f.snap.HP.MaxArmour > 0 && func() bool {
			if f.ch != nil {
				return f.ch.C.CanRegen
			}
			return f.bh.B.CanRegen
		}()
		if !canRegen || f.currentHP().Dead() {
			f.discard()
			continue
		}
		hp := f.currentHP()
		shieldRate := cfg.Combat.ShieldRegenMilliPerBlock
		if pct := f.snap.Combat.Effects.ShieldRegenPercent; pct != 0 {
			shieldRate = shieldRate * int64(pct) / 100
		}
		hp.MilliArmour, hp.Armour = regenPool(hp.MilliArmour, hp.Armour, hp.MaxArmour, cfg.Combat.ArmourRegenMilliPerBlock)
		hp.MilliShield, hp.Shield = regenPool(hp.MilliShield, hp.Shield, hp.MaxShield, shieldRate)
		f.setHP(hp)
		f.commit()
	}
}

// regenPool advances one HP pool by ratePerBlock milli-HP, carrying the
// sub-1000 remainder in milli. Never regenerates past cap or below the
// current whole value.
func regenPool(milli, whole, ceiling, ratePerBlock int64) (newMilli, newWhole int64) {
	if whole >= ceiling {
		return 0, whole
	}
	milli += ratePerBlock
	gained := milli / 1000
	milli %= 1000
	whole += gained
	if whole > ceiling {
		whole = ceiling
		milli = 0
	}
	return milli, whole
}

func (f *liveFighter) discard() {
	if f.ch != nil {
		f.ch.Discard()
	} else {
		f.bh.Discard()
	}
}
