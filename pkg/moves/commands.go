package moves

import (
	"encoding/json"
	"fmt"

	"chainrealm/pkg/hexgrid"
)

// Envelope is one entry of the block JSON's "admin" or "moves" array
// after structural validation: an owner plus a single tagged command
// under move.g.chainrealm.
type Envelope struct {
	Owner string          `json:"owner"`
	Move  struct {
		G struct {
			Chainrealm map[string]json.RawMessage `json:"chainrealm"`
		} `json:"g"`
	} `json:"move"`
}

// Command extracts the single (name, payload) pair a valid envelope
// carries. An envelope with zero or more than one key under
// "chainrealm" is ambiguous and rejected as malformed.
func (e Envelope) Command() (name string, payload json.RawMessage, ok bool) {
	if len(e.Move.G.Chainrealm) != 1 {
		return "", nil, false
	}
	for k, v := range e.Move.G.Chainrealm {
		return k, v, true
	}
	return "", nil, false
}

// ParseEnvelope structurally validates then decodes raw into an
// Envelope.
func ParseEnvelope(raw json.RawMessage) (Envelope, bool, string) {
	if ok, reason := ValidateStructure(raw); !ok {
		return Envelope{}, false, reason
	}
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, false, fmt.Sprintf("decode: %v", err)
	}
	return e, true, ""
}

// Per-command payload shapes. Neither the schema pass nor decoding
// checks numeric fields against the ≤10^9 bound; of the handlers, only
// placeTradeOrder checks its amounts against it.

type RegisterAccountCmd struct {
	Faction string `json:"faction"`
}

type CreateCharacterCmd struct {
	VehicleType string `json:"vehicle_type"`
}

type SetWaypointsCmd struct {
	CharacterID int64           `json:"character_id"`
	Waypoints   []hexgrid.Coord `json:"waypoints"`
}

type PickupLootCmd struct {
	CharacterID int64            `json:"character_id"`
	Items       map[string]int64 `json:"items"`
}

type DropLootCmd struct {
	CharacterID int64            `json:"character_id"`
	Items       map[string]int64 `json:"items"`
}

type ConfigureFitmentsCmd struct {
	CharacterID int64    `json:"character_id"`
	Fitments    []string `json:"fitments"`
}

type StartProspectionCmd struct {
	CharacterID int64 `json:"character_id"`
}

type StartConstructionCmd struct {
	CharacterID  int64  `json:"character_id"`
	BuildingType string `json:"building_type"`
}

type EnterBuildingCmd struct {
	CharacterID int64 `json:"character_id"`
	BuildingID  int64 `json:"building_id"`
}

type ExitBuildingCmd struct {
	CharacterID int64 `json:"character_id"`
}

type ConfigureBuildingCmd struct {
	BuildingID int64             `json:"building_id"`
	Config     map[string]string `json:"config"`
}

type PlaceTradeOrderCmd struct {
	BuildingID int64  `json:"building_id"`
	Item       string `json:"item"`
	Amount     int64  `json:"amount"`
	Coin       int64  `json:"coin"`
}

type CancelTradeOrderCmd struct {
	OrderID int64 `json:"order_id"`
}

// GodBuildAncientBuildingCmd seeds a neutral, ownerless building at an
// arbitrary map coordinate. Admin-only: spec.md's data model names
// this as a building's other creation path ("map seed"), alongside
// ordinary player construction.
type GodBuildAncientBuildingCmd struct {
	BuildingType string        `json:"building_type"`
	Center       hexgrid.Coord `json:"center"`
}

const (
	CmdRegisterAccount   = "register_account"
	CmdCreateCharacter   = "create_character"
	CmdSetWaypoints      = "set_waypoints"
	CmdPickupLoot        = "pickup_loot"
	CmdDropLoot          = "drop_loot"
	CmdConfigureFitments = "configure_fitments"
	CmdStartProspection  = "start_prospection"
	CmdStartConstruction = "start_construction"
	CmdEnterBuilding     = "enter_building"
	CmdExitBuilding      = "exit_building"
	CmdConfigureBuilding = "configure_building"
	CmdPlaceTradeOrder   = "place_trade_order"
	CmdCancelTradeOrder  = "cancel_trade_order"

	CmdGodBuildAncientBuilding = "god_build_ancient_building"
)

const maxBound = 1_000_000_000

func boundsOK(vs ...int64) bool {
	for _, v := range vs {
		if v > maxBound || v < -maxBound {
			return false
		}
	}
	return true
}
