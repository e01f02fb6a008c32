package model

import "github.com/shopspring/decimal"

// InventoryRecord is one manifest line, keyed by identifier.
type InventoryRecord struct {
	Identifier     string          `json:"identifier"`
	Lot            string          `json:"lot,omitempty"`
	SKU            string          `json:"sku,omitempty"`
	Quantity       int             `json:"quantity"`
	Category       string          `json:"category,omitempty"`
	Title          string          `json:"title"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
}
