package store

import "chainrealm/pkg/model"

// ensureTradeOrdersTable creates the table lazily rather than in SetupSchema's
// main list because trade orders are a supplementary feature layered
// on top of the core data model (see model.TradeOrder).
func ensureTradeOrdersTable(tx *Tx) error {
	_, err := tx.sqlTx.Exec(`CREATE TABLE IF NOT EXISTS trade_orders (
		id INTEGER PRIMARY KEY,
		building_id INTEGER NOT NULL,
		account TEXT NOT NULL,
		item TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reserved_coin INTEGER NOT NULL
	)`)
	return err
}

// PlaceTradeOrder records an order against a building's inventory,
// with its reserved_coin amount; it does not change the account's coin
// (the move processor deducts that).
func (tx *Tx) PlaceTradeOrder(o model.TradeOrder) (int64, error) {
	if err := ensureTradeOrdersTable(tx); err != nil {
		return 0, err
	}
	id, err := tx.NewID("trade_orders")
	if err != nil {
		return 0, err
	}
	_, err = tx.sqlTx.Exec(`INSERT INTO trade_orders (id, building_id, account, item, amount, reserved_coin)
		VALUES (?,?,?,?,?,?)`, id, o.BuildingID, o.Account, o.Item, o.Amount, o.ReservedCoin)
	return id, err
}

// CancelTradeOrder removes an order placed by account, returning
// whether one existed.
func (tx *Tx) CancelTradeOrder(id int64, account string) (model.TradeOrder, bool, error) {
	if err := ensureTradeOrdersTable(tx); err != nil {
		return model.TradeOrder{}, false, err
	}
	var o model.TradeOrder
	err := tx.sqlTx.QueryRow(`SELECT id, building_id, account, item, amount, reserved_coin FROM trade_orders WHERE id=? AND account=?`,
		id, account).Scan(&o.ID, &o.BuildingID, &o.Account, &o.Item, &o.Amount, &o.ReservedCoin)
	if err != nil {
		return model.TradeOrder{}, false, nil
	}
	_, err = tx.sqlTx.Exec(`DELETE FROM trade_orders WHERE id=?`, id)
	return o, true, err
}

// TradeOrdersForBuilding returns every standing order against a
// building, ordered by ascending id, used at building-destruction time
// to refund bidders (spec.md §4.9, "Building" kill processing).
func (tx *Tx) TradeOrdersForBuilding(buildingID int64) ([]model.TradeOrder, error) {
	if err := ensureTradeOrdersTable(tx); err != nil {
		return nil, err
	}
	rows, err := tx.sqlTx.Query(`SELECT id, building_id, account, item, amount, reserved_coin FROM trade_orders WHERE building_id=? ORDER BY id ASC`, buildingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TradeOrder
	for rows.Next() {
		var o model.TradeOrder
		if err := rows.Scan(&o.ID, &o.BuildingID, &o.Account, &o.Item, &o.Amount, &o.ReservedCoin); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// DeleteTradeOrdersForBuilding removes every order against a building.
func (tx *Tx) DeleteTradeOrdersForBuilding(buildingID int64) error {
	if err := ensureTradeOrdersTable(tx); err != nil {
		return err
	}
	_, err := tx.sqlTx.Exec(`DELETE FROM trade_orders WHERE building_id=?`, buildingID)
	return err
}
