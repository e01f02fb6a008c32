package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sale is one line of a marketplace sales report.
type Sale struct {
	OrderNumber string          `json:"order_number"`
	Identifier  string          `json:"identifier"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	SoldAt      time.Time       `json:"sold_at"`
	Buyer       string          `json:"buyer,omitempty"`
}
