// Package model defines the shared entity structs mutated by every
// pipeline phase: accounts, characters, buildings, regions, ongoing
// operations, and the small per-tile/per-account side tables. Each
// entity carries its indexed schema fields directly and an extensible
// "blob" substructure serialized as JSON into a single TEXT column,
// following the teacher's buildings_json/modules_json convention
// end-to-end (see DESIGN.md for why JSON rather than protobuf).
package model

import "chainrealm/pkg/hexgrid"

// TargetType distinguishes the two kinds of combat target.
type TargetType string

const (
	TargetCharacter TargetType = "character"
	TargetBuilding  TargetType = "building"
)

// FactionAncient is the built-in faction for neutral, ownerless map
// structures: buildings seeded by an admin move rather than player
// construction carry this faction and a nil Owner.
const FactionAncient = "ancient"

// TargetRef names a combat target by kind and id. Ordering ties on a
// TargetRef compare TargetCharacter before TargetBuilding, then
// ascending ID (SPEC_FULL.md Open Question decision 1).
type TargetRef struct {
	Type TargetType `json:"type"`
	ID   int64      `json:"id"`
}

// Less implements the adopted target-key tie-break: type first
// (Character < Building), then ascending id.
func (t TargetRef) Less(o TargetRef) bool {
	if t.Type != o.Type {
		return t.Type == TargetCharacter
	}
	return t.ID < o.ID
}

// HP holds a fighter's shield/armour pool plus fractional "milli-HP"
// carry for regeneration (spec.md §4.9 "Regeneration").
type HP struct {
	Armour      int64 `json:"armour"`
	MaxArmour   int64 `json:"max_armour"`
	Shield      int64 `json:"shield"`
	MaxShield   int64 `json:"max_shield"`
	MilliArmour int64 `json:"milli_armour"`
	MilliShield int64 `json:"milli_shield"`
}

// Dead reports whether this fighter's full HP has reached zero. Partial
// milli-HP never keeps a fighter alive on its own (spec.md §4.9).
func (h HP) Dead() bool { return h.Armour <= 0 }

// Attack describes a single weapon or ability a fighter carries.
type Attack struct {
	Name       string `json:"name"`
	Min        int64  `json:"min"`
	Max        int64  `json:"max"`
	GainHP     bool   `json:"gain_hp"`
	Range      int    `json:"range"`
	Area       int    `json:"area"`
	HitChance  int    `json:"hit_chance"`
	ShieldPct  int    `json:"shield_percent"`
	ArmourPct  int    `json:"armour_percent"`
	Size       int    `json:"size"`
}

// Effects are the non-damage combat modifiers currently applied to a
// fighter, keyed by effect name (speed, range, hit-chance, shield
// regen, mentecon).
type Effects struct {
	SpeedPercent     int  `json:"speed_percent,omitempty"`
	RangePercent     int  `json:"range_percent,omitempty"`
	HitChancePercent int  `json:"hit_chance_percent,omitempty"`
	ShieldRegenPercent int `json:"shield_regen_percent,omitempty"`
	Mentecon         bool `json:"mentecon,omitempty"`
}

// LowHPBoost is a conditional modifier active when a fighter's armour
// falls at or below max_hp*threshold/100.
type LowHPBoost struct {
	ThresholdPercent int `json:"threshold_percent"`
	DamagePercent    int `json:"damage_percent"`
	RangePercent     int `json:"range_percent"`
	HitChancePercent int `json:"hit_chance_percent"`
}

// CombatData bundles a fighter's static combat configuration: its
// attacks, low-HP boosts, and whether it can perform friendly-area
// attacks.
type CombatData struct {
	Attacks         []Attack     `json:"attacks,omitempty"`
	FriendlyAttacks []Attack     `json:"friendly_attacks,omitempty"`
	LowHPBoosts     []LowHPBoost `json:"low_hp_boosts,omitempty"`
	SelfDestructs   []Attack     `json:"self_destructs,omitempty"`
	Size            int          `json:"size"`
	Effects         Effects      `json:"effects"`
	FriendlyTargetInRange bool   `json:"-"`
}

// Account is a per-player row created on first registration move.
type Account struct {
	Name    string           `json:"-"`
	Faction string           `json:"-"`
	Kills   int64            `json:"-"`
	Fame    int64            `json:"-"`
	Coin    int64            `json:"-"`
	Goods   map[string]int64 `json:"goods"`
}

// MiningState marks a character as actively mining a region.
type MiningState struct {
	RegionID int64 `json:"region_id"`
}

// RefiningState marks a character as refining a raw resource.
type RefiningState struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// MovementState is a character's pending waypoint queue plus the
// lazily-computed step list and partial-step accumulator.
type MovementState struct {
	Waypoints    []hexgrid.Coord `json:"waypoints,omitempty"`
	Steps        []hexgrid.Coord `json:"steps,omitempty"`
	PartialStep  int64           `json:"partial_step"`
	BlockedTurns int             `json:"blocked_turns"`
}

// CharacterBlob is the character's extensible JSON-encoded field set.
type CharacterBlob struct {
	VehicleType string        `json:"vehicle_type"`
	Fitments    []string      `json:"fitments,omitempty"`
	Movement    *MovementState `json:"movement,omitempty"`
	Combat      CombatData    `json:"combat"`
	Mining      *MiningState  `json:"mining,omitempty"`
	Refining    *RefiningState `json:"refining,omitempty"`
	OngoingOpID *int64        `json:"ongoing_op_id,omitempty"`
	Speed       int64         `json:"speed"`
	CargoSpace  int64         `json:"cargo_space"`
}

// Character is a player-controlled or NPC fighter/worker unit.
type Character struct {
	ID              int64
	Owner           string
	Faction         string
	Pos             *hexgrid.Coord
	BuildingID      *int64
	EnterBuildingID *int64
	BusyBlocks      int
	IsMoving        bool
	IsMining        bool
	AttackRange     int
	CanRegen        bool
	HP              HP
	Target          *TargetRef
	Inventory       map[string]int64
	Blob            CharacterBlob
}

// OnMap reports whether the character occupies map coordinates (as
// opposed to sitting inside a building). spec.md §3 invariant: exactly
// one of Pos/BuildingID is set, never both, never neither.
func (c *Character) OnMap() bool { return c.Pos != nil }

// BuildingBlob is a building's extensible JSON-encoded field set.
type BuildingBlob struct {
	Foundation             bool              `json:"foundation"`
	ConstructionInventory  map[string]int64  `json:"construction_inventory,omitempty"`
	Rotation               int               `json:"rotation"`
	OngoingConstructionID  *int64            `json:"ongoing_construction_id,omitempty"`
	Config                 map[string]string `json:"config,omitempty"`
}

// Building is a map structure: ancient (neutral, Owner nil), a
// foundation under construction, or a completed player building.
type Building struct {
	ID          int64
	Type        string
	Owner       *string
	Faction     string
	Center      hexgrid.Coord
	HP          HP
	Target      *TargetRef
	AttackRange int
	CanRegen    bool
	Combat      CombatData
	Blob        BuildingBlob
}

// ProspectionResult records the outcome of a finished prospection.
type ProspectionResult struct {
	ResourceType string `json:"resource_type"`
	Height       uint64 `json:"height"`
}

// RegionBlob is a region's extensible JSON-encoded field set.
type RegionBlob struct {
	ProspectingCharacter *int64             `json:"prospecting_character,omitempty"`
	Prospection          *ProspectionResult `json:"prospection,omitempty"`
}

// Region is materialised lazily on first non-trivial change to a map
// tile's resource state (prospection or mining).
type Region struct {
	ID             int64
	ModifiedHeight uint64
	ResourceLeft   int64
	Blob           RegionBlob
}

// DamageListEntry records that AttackerID dealt damage to VictimID at
// Height, for fame attribution's sliding window.
type DamageListEntry struct {
	VictimID   int64
	AttackerID int64
	Height     uint64
}

// GroundLoot is the inventory sitting on an unoccupied map tile.
type GroundLoot struct {
	X, Y      int
	Inventory map[string]int64
}

// BuildingInventory is one account's private stash inside a building.
type BuildingInventory struct {
	BuildingID int64
	Account    string
	Inventory  map[string]int64
}

// PrizeCounter is a monotonic global counter gating a prospecting prize
// tier's availability.
type PrizeCounter struct {
	Name  string
	Found int64
}
