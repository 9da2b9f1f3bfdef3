package market

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypeListingCreated    = "LISTING_CREATED"
	EventTypePurchaseCompleted = "PURCHASE_COMPLETED"
)

// Event is the persisted form of a notification, appended in the same
// transaction as the state change it reports. Sequence is assigned by the
// store and starts at 1.
type Event struct {
	Sequence  uint64
	Type      string
	ItemId    uint64
	Asset     string
	TokenId   string
	Price     decimal.Decimal
	Seller    string
	Buyer     string
	CreatedAt time.Time
}

type ListingCreated struct {
	ItemId  uint64
	Asset   string
	TokenId string
	Price   decimal.Decimal
	Seller  string
}

type PurchaseCompleted struct {
	ItemId  uint64
	Asset   string
	TokenId string
	Price   decimal.Decimal
	Seller  string
	Buyer   string
}

func newItemEvent(typ string, item *Item, ts time.Time) *Event {
	return &Event{
		Type:      typ,
		ItemId:    item.ItemId,
		Asset:     item.Asset,
		TokenId:   item.TokenId,
		Price:     item.Price,
		Seller:    item.Seller,
		Buyer:     item.Buyer,
		CreatedAt: ts,
	}
}

func (m *Marketplace) notifyListingCreated(ctx context.Context, item *Item) {
	evt := &ListingCreated{
		ItemId:  item.ItemId,
		Asset:   item.Asset,
		TokenId: item.TokenId,
		Price:   item.Price,
		Seller:  item.Seller,
	}
	for _, n := range m.notifiers {
		n.OnListingCreated(ctx, evt)
	}
}

func (m *Marketplace) notifyPurchaseCompleted(ctx context.Context, item *Item) {
	evt := &PurchaseCompleted{
		ItemId:  item.ItemId,
		Asset:   item.Asset,
		TokenId: item.TokenId,
		Price:   item.Price,
		Seller:  item.Seller,
		Buyer:   item.Buyer,
	}
	for _, n := range m.notifiers {
		n.OnPurchaseCompleted(ctx, evt)
	}
}

func (m *Marketplace) ListEvents(ctx context.Context, offset uint64, limit int) ([]*Event, error) {
	return m.store.ListEvents(ctx, offset, limit)
}
