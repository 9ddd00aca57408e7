package store

import (
	"database/sql"
	"encoding/json"
)

// GroundLoot returns the inventory sitting at (x,y), or an empty map
// if the tile has none.
func (tx *Tx) GroundLoot(x, y int) (map[string]int64, error) {
	var invJSON string
	err := tx.sqlTx.QueryRow(`SELECT inventory_json FROM ground_loot WHERE x=? AND y=?`, x, y).Scan(&invJSON)
	if err == sql.ErrNoRows {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, err
	}
	inv := map[string]int64{}
	if err := json.Unmarshal([]byte(invJSON), &inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// SetGroundLoot overwrites the inventory at (x,y); an empty inventory
// deletes the row entirely (spec.md §3, "deleted when empty").
func (tx *Tx) SetGroundLoot(x, y int, inv map[string]int64) error {
	if len(inv) == 0 {
		_, err := tx.sqlTx.Exec(`DELETE FROM ground_loot WHERE x=? AND y=?`, x, y)
		return err
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	_, err = tx.sqlTx.Exec(`INSERT INTO ground_loot (x, y, inventory_json) VALUES (?,?,?)
		ON CONFLICT(x,y) DO UPDATE SET inventory_json=excluded.inventory_json`, x, y, string(data))
	return err
}

// MergeGroundLoot adds the given inventory into whatever is already on
// the ground at (x,y).
func (tx *Tx) MergeGroundLoot(x, y int, add map[string]int64) error {
	cur, err := tx.GroundLoot(x, y)
	if err != nil {
		return err
	}
	for k, v := range add {
		cur[k] += v
	}
	return tx.SetGroundLoot(x, y, cur)
}

// BuildingInventory returns one account's stash inside a building.
func (tx *Tx) BuildingInventory(buildingID int64, account string) (map[string]int64, error) {
	var invJSON string
	err := tx.sqlTx.QueryRow(`SELECT inventory_json FROM building_inventory WHERE building_id=? AND account=?`,
		buildingID, account).Scan(&invJSON)
	if err == sql.ErrNoRows {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, err
	}
	inv := map[string]int64{}
	if err := json.Unmarshal([]byte(invJSON), &inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// SetBuildingInventory overwrites one account's stash; an empty
// inventory deletes the row.
func (tx *Tx) SetBuildingInventory(buildingID int64, account string, inv map[string]int64) error {
	if len(inv) == 0 {
		_, err := tx.sqlTx.Exec(`DELETE FROM building_inventory WHERE building_id=? AND account=?`, buildingID, account)
		return err
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return err
	}
	_, err = tx.sqlTx.Exec(`INSERT INTO building_inventory (building_id, account, inventory_json) VALUES (?,?,?)
		ON CONFLICT(building_id,account) DO UPDATE SET inventory_json=excluded.inventory_json`,
		buildingID, account, string(data))
	return err
}

// AllBuildingInventories returns every inventory stored for a building,
// keyed by account name; as a map, the result carries no order.
func (tx *Tx) AllBuildingInventories(buildingID int64) (map[string]map[string]int64, error) {
	rows, err := tx.sqlTx.Query(`SELECT account, inventory_json FROM building_inventory WHERE building_id=? ORDER BY account ASC`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]map[string]int64{}
	for rows.Next() {
		var account, invJSON string
		if err := rows.Scan(&account, &invJSON); err != nil {
			return nil, err
		}
		inv := map[string]int64{}
		if err := json.Unmarshal([]byte(invJSON), &inv); err != nil {
			return nil, err
		}
		out[account] = inv
	}
	return out, nil
}

// PrizeCounterFound returns the current found-count for a named prize
// tier (0 if never touched).
func (tx *Tx) PrizeCounterFound(name string) (int64, error) {
	var found int64
	err := tx.sqlTx.QueryRow(`SELECT found FROM prize_counters WHERE name=?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return found, err
}

// IncrementPrizeCounter increments and returns the new found-count.
func (tx *Tx) IncrementPrizeCounter(name string) (int64, error) {
	found, err := tx.PrizeCounterFound(name)
	if err != nil {
		return 0, err
	}
	found++
	_, err = tx.sqlTx.Exec(`INSERT INTO prize_counters (name, found) VALUES (?,?)
		ON CONFLICT(name) DO UPDATE SET found=excluded.found`, name, found)
	return found, err
}
