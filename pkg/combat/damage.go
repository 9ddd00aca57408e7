package combat

import (
	"sort"

	"chainrealm/pkg/config"
	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/model"
	"chainrealm/pkg/rng"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// drainKey identifies one (target,attacker) pair for gain-HP
// reconciliation.
type drainKey struct {
	Target, Attacker fighterRef
}

// DealCombatDamage runs the three-pass damage phase (spec.md §4.9,
// "Damage dealing"): gain-HP attacks first with multi-attacker
// reconciliation, then ordinary attacks, then the self-destruct
// cascade. Kills are returned (not deleted) so the caller can run fame
// attribution before ProcessKills removes the rows.
func DealCombatDamage(tx *store.Tx, cfg *config.RoConfig, stream *rng.Stream, height uint64) (dead []fighterRef) {
	fighters := loadFighters(tx)
	byRef := make(map[fighterRef]*liveFighter, len(fighters))
	for _, f := range fighters {
		byRef[f.snap.Ref] = f
	}

	// Snapshot every attacker's modifier up front so HP changes during
	// this phase never influence who hits whom or how hard.
	mods := make(map[fighterRef]modifier, len(fighters))
	for _, f := range fighters {
		mods[f.snap.Ref] = computeModifier(f.snap.HP, f.snap.Combat)
	}

	attackers := make([]*liveFighter, 0, len(fighters))
	for _, f := range fighters {
		hasTarget := (f.ch != nil && f.ch.C.Target != nil) || (f.bh != nil && f.bh.B.Target != nil)
		if hasTarget {
			attackers = append(attackers, f)
		}
	}
	sort.Slice(attackers, func(i, j int) bool { return attackers[i].snap.Ref.Less(attackers[j].snap.Ref) })

	drained := map[drainKey]model.HP{}
	newEffects := map[fighterRef]model.Effects{}
	deadSet := map[fighterRef]bool{}

	targetOf := func(f *liveFighter) *model.TargetRef {
		if f.ch != nil {
			return f.ch.C.Target
		}
		return f.bh.B.Target
	}

	applyHit := func(attacker *liveFighter, atk model.Attack, requireRange bool) {
		tref := targetOf(attacker)
		if tref == nil {
			return
		}
		target, ok := byRef[*tref]
		if !ok || target.currentHP().Dead() {
			return
		}
		if requireRange && atk.Range > 0 {
			areaCenter := target.snap.Pos
			if atk.Area == 0 {
				areaCenter = attacker.snap.Pos
			}
			if hexgrid.Distance(attacker.snap.Pos, areaCenter) > atk.Range {
				return
			}
		}
		mod := mods[attacker.snap.Ref]
		dmg := int64(stream.NextIntRange(int(atk.Min), int(atk.Max)))
		dmg = dmg * int64(mod.DamagePercent) / 100

		hit := baseHitChance(target.snap.Combat.Size, atk.Size)
		hit = hit * mod.HitChancePercent / 100
		if !stream.ProbabilityRoll(hit, 100) {
			return
		}

		hp := target.currentHP()
		doneShield, doneArmour := shieldArmourSplit(dmg, atk.ShieldPct, atk.ArmourPct, hp.Shield, hp.Armour)
		hp.Shield -= doneShield
		hp.Armour -= doneArmour
		target.setHP(hp)

		// The damage-list table keys on bare ids with no type column, so
		// only character-on-character hits are recorded: buildings carry
		// no account to attribute fame to, and mixing id spaces across
		// the two entity kinds would misattribute fame after a kill.
		if target.snap.Ref.Type == model.TargetCharacter && attacker.snap.Ref.Type == model.TargetCharacter {
			validate.Require(tx.RecordDamage(target.snap.Ref.ID, attacker.snap.Ref.ID, height) == nil,
				"combat: record damage %d->%d", attacker.snap.Ref.ID, target.snap.Ref.ID)
		}

		if atk.GainHP {
			key := drainKey{Target: target.snap.Ref, Attacker: attacker.snap.Ref}
			d := drained[key]
			d.Shield += doneShield
			d.Armour += doneArmour
			drained[key] = d
		}
		if hp.Dead() {
			deadSet[target.snap.Ref] = true
		}
	}

	// Pass A: gain-HP attacks.
	for _, attacker := range attackers {
		for _, atk := range attacker.snap.Combat.Attacks {
			if atk.GainHP {
				applyHit(attacker, atk, true)
			}
		}
	}

	// Reconcile gain-HP: count distinct attackers per target, then gate
	// each HP type's credit independently on whether the target still has
	// HP of that type left (spec.md "only if the target still has HP of
	// that type left"). A lone attacker always gets what it drained, even
	// if that drained the type to exactly zero.
	attackersPerTarget := map[fighterRef]int{}
	for k := range drained {
		attackersPerTarget[k.Target]++
	}
	pendingCredit := map[fighterRef]model.HP{}
	for k, amount := range drained {
		target, ok := byRef[k.Target]
		if !ok {
			continue
		}
		sole := attackersPerTarget[k.Target] == 1
		hp := target.currentHP()
		credit := pendingCredit[k.Attacker]
		if amount.Armour > 0 && (hp.Armour > 0 || sole) {
			credit.Armour += amount.Armour
		}
		if amount.Shield > 0 && (hp.Shield > 0 || sole) {
			credit.Shield += amount.Shield
		}
		pendingCredit[k.Attacker] = credit
	}

	// Pass B: ordinary attacks.
	for _, attacker := range attackers {
		for _, atk := range attacker.snap.Combat.Attacks {
			if !atk.GainHP {
				applyHit(attacker, atk, true)
			}
		}
		for _, atk := range attacker.snap.Combat.FriendlyAttacks {
			applyHit(attacker, atk, true)
		}
	}
	// Effects accumulate from each fighter's own static combat data; no
	// attack in this model carries an additional effect payload, so the
	// "new_effects" side map the damage phase swaps in atomically
	// (spec.md §4.9 step 5/8) is simply each surviving fighter's current
	// Effects, carried forward unchanged.
	for _, f := range fighters {
		newEffects[f.snap.Ref] = f.snap.Combat.Effects
	}

	// Self-destruct cascade: each newly-dead fighter's self-destructs
	// fire at full (zero-HP) low-HP boost strength and may kill others.
	alreadyDead := map[fighterRef]bool{}
	frontier := sortedRefs(deadSet)
	for len(frontier) > 0 {
		for _, ref := range frontier {
			alreadyDead[ref] = true
		}
		nextDead := map[fighterRef]bool{}
		for _, ref := range frontier {
			f, ok := byRef[ref]
			if !ok {
				continue
			}
			zeroHP := model.HP{MaxArmour: f.snap.HP.MaxArmour}
			mod := computeModifier(zeroHP, f.snap.Combat)
			for _, atk := range f.snap.Combat.SelfDestructs {
				for _, c := range hexgrid.Ball(f.snap.Pos, applyPercent(atk.Range, mod.RangePercent)) {
					for _, victim := range fightersAt(fighters, c) {
						if victim.snap.Ref == f.snap.Ref || alreadyDead[victim.snap.Ref] {
							continue
						}
						dmg := int64(stream.NextIntRange(int(atk.Min), int(atk.Max)))
						dmg = dmg * int64(mod.DamagePercent) / 100
						hp := victim.currentHP()
						ds, da := shieldArmourSplit(dmg, atk.ShieldPct, atk.ArmourPct, hp.Shield, hp.Armour)
						hp.Shield -= ds
						hp.Armour -= da
						victim.setHP(hp)
						if hp.Dead() && !alreadyDead[victim.snap.Ref] {
							nextDead[victim.snap.Ref] = true
						}
					}
				}
			}
		}
		frontier = sortedRefs(nextDead)
	}

	// Credit gain-HP only to attackers that survived the self-destruct
	// cascade, crediting each HP type to its matching field.
	for ref, amount := range pendingCredit {
		if alreadyDead[ref] {
			continue
		}
		attacker, ok := byRef[ref]
		if !ok {
			continue
		}
		hp := attacker.currentHP()
		hp.Armour += amount.Armour
		if hp.Armour > hp.MaxArmour {
			hp.Armour = hp.MaxArmour
		}
		hp.Shield += amount.Shield
		if hp.Shield > hp.MaxShield {
			hp.Shield = hp.MaxShield
		}
		attacker.setHP(hp)
	}

	for _, f := range fighters {
		if e, ok := newEffects[f.snap.Ref]; ok {
			f.setEffects(e)
		} else {
			f.setEffects(model.Effects{})
		}
		f.commit()
	}

	return sortedRefs(alreadyDead)
}

func fightersAt(fighters []*liveFighter, c hexgrid.Coord) []*liveFighter {
	var out []*liveFighter
	for _, f := range fighters {
		if f.snap.Pos == c {
			out = append(out, f)
		}
	}
	return out
}

func (f *liveFighter) currentHP() model.HP {
	if f.ch != nil {
		return f.ch.C.HP
	}
	return f.bh.B.HP
}

func (f *liveFighter) setHP(hp model.HP) {
	if f.ch != nil {
		f.ch.C.HP = hp
		f.ch.MarkDirty()
	} else {
		f.bh.B.HP = hp
		f.bh.MarkDirty()
	}
}

func (f *liveFighter) setEffects(e model.Effects) {
	if f.ch != nil {
		f.ch.C.Blob.Combat.Effects = e
		f.ch.MarkDirty()
	} else {
		f.bh.B.Combat.Effects = e
		f.bh.MarkDirty()
	}
}
