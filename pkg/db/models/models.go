package models

// All lists every persisted model in dependency order, for gorm AutoMigrate on sqlite.
func All() []any {
	return []any{
		&Product{},
		&Customer{},
		&Sale{},
		&SaleItem{},
		&StockMovement{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
