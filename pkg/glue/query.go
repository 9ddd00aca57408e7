package glue

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"chainrealm/pkg/store"
)

// queryRequest is the narrow custom-state query shape spec.md §6 asks
// for: enough to answer a snapshot lookup without exposing the whole
// state document, keyed by a request kind.
type queryRequest struct {
	Kind        string `json:"kind"`
	Owner       string `json:"owner,omitempty"`
	CharacterID int64  `json:"character_id,omitempty"`
	BuildingID  int64  `json:"building_id,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
}

// QueryState answers one snapshot query against the current committed
// state, outside of block processing. It opens its own read-only
// transaction and always rolls it back, since a query never mutates
// state.
func QueryState(db *sql.DB, request []byte) ([]byte, error) {
	var req queryRequest
	if err := json.Unmarshal(request, &req); err != nil {
		return nil, fmt.Errorf("glue: decode query: %w", err)
	}

	tx, err := store.Begin(db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	switch req.Kind {
	case "account":
		acc, ok, err := tx.Account(req.Owner)
		if err != nil {
			return nil, err
		}
		if !ok {
			return json.Marshal(nil)
		}
		defer acc.Discard()
		// model.Account tags most fields json:"-" since that struct
		// doubles as the blob_json encoding, which already excludes
		// columns the store keeps separately; the query response needs
		// all of them, so it's reassembled here instead.
		return json.Marshal(struct {
			Name    string           `json:"name"`
			Faction string           `json:"faction"`
			Kills   int64            `json:"kills"`
			Fame    int64            `json:"fame"`
			Coin    int64            `json:"coin"`
			Goods   map[string]int64 `json:"goods"`
		}{acc.A.Name, acc.A.Faction, acc.A.Kills, acc.A.Fame, acc.A.Coin, acc.A.Goods})

	case "character":
		ch, ok, err := tx.Character(req.CharacterID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return json.Marshal(nil)
		}
		defer ch.Discard()
		return json.Marshal(ch.C)

	case "characters_by_owner":
		all, err := tx.AllCharacters()
		if err != nil {
			return nil, err
		}
		var owned []interface{}
		for _, ch := range all {
			if ch.C.Owner == req.Owner {
				owned = append(owned, ch.C)
			}
			ch.Discard()
		}
		return json.Marshal(owned)

	case "building":
		b, ok, err := tx.Building(req.BuildingID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return json.Marshal(nil)
		}
		defer b.Discard()
		return json.Marshal(b.B)

	case "ground_loot":
		loot, err := tx.GroundLoot(req.X, req.Y)
		if err != nil {
			return nil, err
		}
		return json.Marshal(loot)

	default:
		return nil, fmt.Errorf("glue: unrecognised query kind %q", req.Kind)
	}
}
