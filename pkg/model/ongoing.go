package model

// OngoingKind discriminates the tagged union of ongoing-operation
// variants. Every switch over Kind must be exhaustive; an unrecognised
// Kind is an invariant failure, never a default branch (spec.md Design
// Notes, "Tagged proto unions").
type OngoingKind string

const (
	OngoingProspection           OngoingKind = "prospection"
	OngoingArmourRepair          OngoingKind = "armour_repair"
	OngoingBlueprintCopy         OngoingKind = "blueprint_copy"
	OngoingItemConstruction      OngoingKind = "item_construction"
	OngoingBuildingConstruction  OngoingKind = "building_construction"
	OngoingBuildingConfigUpdate  OngoingKind = "building_config_update"
)

// ProspectionOp carries no payload: the region is derived from the
// owning character's position at finalise time.
type ProspectionOp struct{}

// ArmourRepairOp carries no payload: it always refills to max.
type ArmourRepairOp struct{}

// BlueprintCopyOp returns the original blueprint plus N copies.
type BlueprintCopyOp struct {
	BlueprintName string `json:"blueprint_name"`
	Copies        int    `json:"copies"`
}

// ItemConstructionOp emits items from either an original blueprint
// (one item per scheduled step, i.e. one per finalisation) or from
// copies (all items at once).
type ItemConstructionOp struct {
	ItemName   string `json:"item_name"`
	Amount     int64  `json:"amount"`
	FromCopies bool   `json:"from_copies"`
}

// BuildingConstructionOp promotes a foundation to a completed building.
type BuildingConstructionOp struct{}

// BuildingConfigUpdateOp swaps in a new building configuration
// atomically at finalise time.
type BuildingConfigUpdateOp struct {
	NewConfig map[string]string `json:"new_config"`
}

// OngoingVariant is the tagged union payload of an OngoingOp. Exactly
// the field named by Kind is non-nil; every other field is nil.
type OngoingVariant struct {
	Kind                 OngoingKind              `json:"kind"`
	Prospection          *ProspectionOp           `json:"prospection,omitempty"`
	ArmourRepair         *ArmourRepairOp          `json:"armour_repair,omitempty"`
	BlueprintCopy        *BlueprintCopyOp         `json:"blueprint_copy,omitempty"`
	ItemConstruction     *ItemConstructionOp      `json:"item_construction,omitempty"`
	BuildingConstruction *BuildingConstructionOp  `json:"building_construction,omitempty"`
	BuildingConfigUpdate *BuildingConfigUpdateOp  `json:"building_config_update,omitempty"`
}

// OngoingOp is a pending multi-block action owned by exactly one of a
// character or a building.
type OngoingOp struct {
	ID          int64
	ReadyHeight uint64
	CharacterID *int64
	BuildingID  *int64
	Variant     OngoingVariant
}
