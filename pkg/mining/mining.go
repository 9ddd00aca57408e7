// Package mining implements the mining processor (spec.md §4.7):
// depleting region resources for characters actively mining a
// prospected region.
package mining

import (
	"sort"

	"chainrealm/pkg/config"
	"chainrealm/pkg/mapdata"
	"chainrealm/pkg/rng"
	"chainrealm/pkg/store"
	"chainrealm/pkg/validate"
)

// Processor drains region resources into mining characters' inventory.
type Processor struct {
	Cfg    *config.RoConfig
	Oracle mapdata.Oracle
}

// Process iterates every mining character in ascending id order and
// draws a randomised per-block amount, capped by cargo space and the
// region's remaining resource.
func (p *Processor) Process(tx *store.Tx, stream *rng.Stream) {
	chars, err := tx.AllCharacters()
	validate.Require(err == nil, "mining: list characters: %v", err)

	sort.Slice(chars, func(i, j int) bool { return chars[i].C.ID < chars[j].C.ID })

	for _, ch := range chars {
		if !ch.C.IsMining || ch.C.Blob.Mining == nil || !ch.C.OnMap() {
			ch.Discard()
			continue
		}
		p.mineOne(tx, stream, ch)
	}
}

func (p *Processor) mineOne(tx *store.Tx, stream *rng.Stream, ch *store.CharacterHandle) {
	regionID := ch.C.Blob.Mining.RegionID
	region, err := tx.Region(regionID, 0)
	validate.Require(err == nil, "mining: load region %d: %v", regionID, err)

	if region.R.ResourceLeft <= 0 || region.R.Blob.Prospection == nil {
		ch.Discard()
		region.Discard()
		return
	}

	amount := int64(stream.NextIntRange(p.Cfg.Mining.Min, p.Cfg.Mining.Max))

	used := int64(0)
	for _, v := range ch.C.Inventory {
		used += v
	}
	cargoFree := ch.C.Blob.CargoSpace - used
	if amount > cargoFree {
		amount = cargoFree
	}
	if amount > region.R.ResourceLeft {
		amount = region.R.ResourceLeft
	}
	if amount <= 0 {
		ch.Discard()
		region.Discard()
		return
	}

	resource := region.R.Blob.Prospection.ResourceType
	ch.C.Inventory[resource] += amount
	ch.MarkDirty()
	validate.Require(ch.Commit() == nil, "mining: commit character %d", ch.C.ID)

	region.R.ResourceLeft -= amount
	region.MarkDirty()
	validate.Require(region.Commit() == nil, "mining: commit region %d", regionID)
}
