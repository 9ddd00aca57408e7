package combat

import (
	"sort"

	"chainrealm/pkg/forks"
	"chainrealm/pkg/hexgrid"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/model"
	"chainrealm/pkg/rng"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// liveFighter is one participant's full mutable handle plus its cached
// snapshot fields, used by both target acquisition and damage dealing.
type liveFighter struct {
	snap fighterSnapshot
	ch   *store.CharacterHandle // nil for buildings
	bh   *store.BuildingHandle  // nil for characters
}

func (f *liveFighter) setTarget(t *model.TargetRef) {
	if f.ch != nil {
		f.ch.C.Target = t
		f.ch.MarkDirty()
	} else {
		f.bh.B.Target = t
		f.bh.MarkDirty()
	}
}

func (f *liveFighter) commit() {
	if f.ch != nil {
		validate.Require(f.ch.Commit() == nil, "combat: commit character %d", f.ch.C.ID)
	} else {
		validate.Require(f.bh.Commit() == nil, "combat: commit building %d", f.bh.B.ID)
	}
}

// loadFighters pulls every on-map character and every non-foundation
// building into a uniform fighter list, ordered by (type,id) per the
// adopted tie-break rule.
func loadFighters(tx *store.Tx) []*liveFighter {
	var out []*liveFighter

	chars, err := tx.AllCharacters()
	validate.Require(err == nil, "combat: list characters: %v", err)
	for _, ch := range chars {
		if !ch.C.OnMap() {
			ch.Discard()
			continue
		}
		out = append(out, &liveFighter{
			snap: fighterSnapshot{
				Ref:     fighterRef{Type: model.TargetCharacter, ID: ch.C.ID},
				Faction: ch.C.Faction,
				Pos:     *ch.C.Pos,
				HP:      ch.C.HP,
				Combat:  ch.C.Blob.Combat,
				Range:   ch.C.AttackRange,
			},
			ch: ch,
		})
	}

	buildings, err := tx.AllBuildings()
	validate.Require(err == nil, "combat: list buildings: %v", err)
	for _, b := range buildings {
		if b.B.Blob.Foundation {
			b.Discard()
			continue
		}
		out = append(out, &liveFighter{
			snap: fighterSnapshot{
				Ref:     fighterRef{Type: model.TargetBuilding, ID: b.B.ID},
				Faction: b.B.Faction,
				Pos:     b.B.Center,
				HP:      b.B.HP,
				Combat:  b.B.Combat,
				Range:   b.B.AttackRange,
			},
			bh: b,
		})
	}

	return out
}

// FindCombatTargets re-acquires targets for every live fighter (spec.md
// §4.9, "Target acquisition"). Fighters are committed (target written
// back) before this function returns.
func FindCombatTargets(tx *store.Tx, oracle mapdata.Oracle, fh forks.Handler, stream *rng.Stream) {
	fighters := loadFighters(tx)

	byCoord := make(map[hexgrid.Coord][]*liveFighter)
	for _, f := range fighters {
		byCoord[f.snap.Pos] = append(byCoord[f.snap.Pos], f)
	}

	zones := oracle.SafeZones()

	for _, f := range fighters {
		hasAttack := len(f.snap.Combat.Attacks) > 0 || len(f.snap.Combat.FriendlyAttacks) > 0
		if !hasAttack || zones.IsNoCombat(f.snap.Pos) {
			f.setTarget(nil)
			f.commit()
			continue
		}

		mod := computeModifier(f.snap.HP, f.snap.Combat)
		radius := applyPercent(f.snap.Range, mod.RangePercent)
		if radius < 0 {
			radius = 0
		}

		mentecon := f.snap.Combat.Effects.Mentecon

		var closest []fighterRef
		bestDist := -1
		friendlyInRange := false

		for _, c := range hexgrid.Ball(f.snap.Pos, radius) {
			if zones.IsNoCombat(c) {
				continue
			}
			for _, other := range byCoord[c] {
				if other.snap.Ref == f.snap.Ref {
					continue
				}
				sameFaction := other.snap.Faction == f.snap.Faction
				if sameFaction && (!mentecon || fh.IsActive(forks.FriendlyFireEffects)) {
					friendlyInRange = true
				}
				if sameFaction && !mentecon {
					continue
				}
				d := hexgrid.Distance(f.snap.Pos, c)
				if bestDist == -1 || d < bestDist {
					bestDist = d
					closest = []fighterRef{other.snap.Ref}
				} else if d == bestDist {
					closest = append(closest, other.snap.Ref)
				}
			}
		}

		f.snap.Combat.FriendlyTargetInRange = friendlyInRange

		if len(closest) == 0 {
			f.setTarget(nil)
		} else {
			sort.Slice(closest, func(i, j int) bool { return closest[i].Less(closest[j]) })
			picked := rng.Pick(stream, closest)
			f.setTarget(&model.TargetRef{Type: picked.Type, ID: picked.ID})
		}
		f.commit()
	}
}
