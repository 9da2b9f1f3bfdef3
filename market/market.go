package market

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

const listPageSize = 100

// Marketplace is the settlement state machine. CreateListing and
// PurchaseItem are serialized by mutex and each commits in a single store
// transaction, so every caller observes either all of an operation or none.
type Marketplace struct {
	mutex     sync.Mutex
	store     Store
	registry  Registry
	clock     *Clock
	notifiers []Notifier

	account string
	fees    FeePolicy
}

func NewMarketplace(store Store, registry Registry, conf *Configuration) (*Marketplace, error) {
	if !validAccount(conf.Account) {
		return nil, fmt.Errorf("%w: account %q", ErrInvalidConfig, conf.Account)
	}
	fees, err := NewFeePolicy(conf.FeeRecipient, conf.FeeBasisPoints)
	if err != nil {
		return nil, err
	}
	if fees.Recipient == conf.Account {
		return nil, fmt.Errorf("%w: fee recipient is the escrow account", ErrInvalidConfig)
	}
	clock, err := NewClock(store)
	if err != nil {
		return nil, err
	}
	return &Marketplace{
		store:    store,
		registry: registry,
		clock:    clock,
		account:  conf.Account,
		fees:     fees,
	}, nil
}

// AddNotifier registers n for the notifications of every later commit.
func (m *Marketplace) AddNotifier(n Notifier) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.notifiers = append(m.notifiers, n)
}

func (m *Marketplace) Account() string {
	return m.account
}

func (m *Marketplace) FeeRecipient() string {
	return m.fees.Recipient
}

func (m *Marketplace) FeeRate() int64 {
	return m.fees.BasisPoints
}

func (m *Marketplace) FeePolicy() FeePolicy {
	return m.fees
}

func (m *Marketplace) ItemCount(ctx context.Context) (uint64, error) {
	return m.store.ReadItemCount(ctx)
}

func (m *Marketplace) GetItem(ctx context.Context, itemId uint64) (*Item, error) {
	return m.readItem(ctx, itemId)
}

func (m *Marketplace) TotalPrice(ctx context.Context, itemId uint64) (decimal.Decimal, error) {
	item, err := m.readItem(ctx, itemId)
	if err != nil {
		return decimal.Zero, err
	}
	return m.fees.Total(item.Price), nil
}

func (m *Marketplace) ListItems(ctx context.Context, offset uint64, limit int) ([]*Item, error) {
	return m.store.ListItems(ctx, offset, limit)
}

// ListItemsInState returns up to limit items whose StateName is state, in id
// order after id offset, scanning as many store pages as it takes.
func (m *Marketplace) ListItemsInState(ctx context.Context, state string, offset uint64, limit int) ([]*Item, error) {
	if limit <= 0 {
		limit = listPageSize
	}
	var items []*Item
	for {
		page, err := m.store.ListItems(ctx, offset, listPageSize)
		if err != nil {
			return nil, err
		}
		for _, item := range page {
			if item.StateName() != state {
				continue
			}
			items = append(items, item)
			if len(items) == limit {
				return items, nil
			}
		}
		if len(page) < listPageSize {
			return items, nil
		}
		offset = page[len(page)-1].ItemId
	}
}

func (m *Marketplace) ListItemsBySeller(ctx context.Context, seller string, limit int) ([]*Item, error) {
	return m.store.ListItemsForSeller(ctx, seller, limit)
}

func (m *Marketplace) ListItemsByBuyer(ctx context.Context, buyer string, limit int) ([]*Item, error) {
	return m.store.ListItemsForBuyer(ctx, buyer, limit)
}

func (m *Marketplace) readItem(ctx context.Context, itemId uint64) (*Item, error) {
	if itemId == 0 {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, itemId)
	}
	item, err := m.store.ReadItem(ctx, itemId)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %d", ErrItemNotFound, itemId)
	}
	return item, nil
}
