package market

import (
	"context"

	"github.com/shopspring/decimal"
)

type Store interface {
	WriteProperty(ctx context.Context, key, val []byte) error
	ReadProperty(key []byte) ([]byte, error)

	// RunInTransaction runs fn inside one read-write transaction carried by
	// the context it passes to fn. Every store call made with that context
	// joins the transaction, and an error from fn discards all of them.
	RunInTransaction(ctx context.Context, fn func(context.Context) error) error

	WriteItem(ctx context.Context, item *Item) error
	ReadItem(ctx context.Context, id uint64) (*Item, error)
	ReadItemCount(ctx context.Context) (uint64, error)
	ListItems(ctx context.Context, offset uint64, limit int) ([]*Item, error)
	ListItemsForSeller(ctx context.Context, seller string, limit int) ([]*Item, error)
	ListItemsForBuyer(ctx context.Context, buyer string, limit int) ([]*Item, error)

	WriteTransfer(ctx context.Context, t *Transfer) error
	ReadTransfer(ctx context.Context, traceId string) (*Transfer, error)
	ReadBalance(ctx context.Context, account string) (decimal.Decimal, error)

	WriteEvent(ctx context.Context, evt *Event) error
	ListEvents(ctx context.Context, offset uint64, limit int) ([]*Event, error)
}

// Registry is the custody capability of the asset registry, bound to the
// marketplace account as the operator of every transfer.
type Registry interface {
	OwnerOrApproved(ctx context.Context, asset, account, tokenId string) (bool, error)
	TransferCustody(ctx context.Context, asset, from, to, tokenId string) error
}

type Notifier interface {
	OnListingCreated(ctx context.Context, evt *ListingCreated)
	OnPurchaseCompleted(ctx context.Context, evt *PurchaseCompleted)
}
