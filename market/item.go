package market

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ItemStateListed = "listed"
	ItemStateSold   = "sold"
)

type Item struct {
	ItemId    uint64
	Asset     string
	TokenId   string
	Price     decimal.Decimal
	Seller    string
	Sold      bool
	Buyer     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (item *Item) StateName() string {
	if item.Sold {
		return ItemStateSold
	}
	return ItemStateListed
}
