package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal // display only
	Category      string
	InStock       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
