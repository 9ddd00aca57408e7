package combat

import (
	"sort"

	"chainrealm/pkg/config"
	"chainrealm/pkg/forks"
	"chainrealm/pkg/model"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// AttributeFame runs before ProcessKills so the damage list is still
// intact: it splits each dying character's configured fame award
// evenly among every account with a still-live attribution in the
// sliding window (spec.md §4.9, "Fame attribution"), then clears the
// entry. Building deaths carry no owning account and award no fame.
// The division remainder goes one unit each to the accounts with the
// lowest names first, keeping the split deterministic.
func AttributeFame(tx *store.Tx, cfg *config.RoConfig, fh forks.Handler, height uint64, dead []fighterRef) {
	validate.Require(tx.PruneDamageList(height, fh.DamageListWindow()) == nil, "combat: prune damage list")

	for _, ref := range dead {
		if ref.Type != model.TargetCharacter {
			continue
		}
		attackerIDs, err := tx.AttackersOf(ref.ID)
		validate.Require(err == nil, "combat: load attackers of %d: %v", ref.ID, err)
		if len(attackerIDs) == 0 {
			continue
		}

		victim, ok, err := tx.Character(ref.ID)
		validate.Require(err == nil, "combat: load victim %d for fame: %v", ref.ID, err)
		victimFaction := ""
		if ok {
			victimFaction = victim.C.Faction
			victim.Discard()
		}

		accountsByOwner := map[string]bool{}
		var owners []string
		for _, attackerID := range attackerIDs {
			attacker, ok, err := tx.Character(attackerID)
			validate.Require(err == nil, "combat: load attacker %d for fame: %v", attackerID, err)
			if !ok {
				continue
			}
			owner := attacker.C.Owner
			skip := attacker.C.Faction == victimFaction
			attacker.Discard()
			if skip || accountsByOwner[owner] {
				continue
			}
			accountsByOwner[owner] = true
			owners = append(owners, owner)
		}
		sort.Strings(owners)

		if len(owners) > 0 {
			share := cfg.Combat.FamePointsPerKill / int64(len(owners))
			remainder := cfg.Combat.FamePointsPerKill % int64(len(owners))
			for i, owner := range owners {
				acc, ok, err := tx.Account(owner)
				validate.Require(err == nil, "combat: load account %s for fame: %v", owner, err)
				if !ok {
					continue
				}
				award := share
				if int64(i) < remainder {
					award++
				}
				acc.A.Fame += award
				acc.A.Kills++
				acc.MarkDirty()
				validate.Require(acc.Commit() == nil, "combat: commit fame to %s", owner)
			}
		}

		validate.Require(tx.ClearVictim(ref.ID) == nil, "combat: clear damage list for %d", ref.ID)
	}
}
