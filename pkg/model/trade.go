package model

// TradeOrder is a standing buy/sell order against a building's
// inventory, supplementing the distillation's passing mention of
// "reserved trade-order coins/items" (spec.md §4.9, kill processing)
// with the concrete structure original_source/src/trading.cpp models.
type TradeOrder struct {
	ID           int64
	BuildingID   int64
	Account      string
	Item         string
	Amount       int64
	ReservedCoin int64
}
