package market

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateListing escrows the token with the marketplace and records a new
// item priced at price. The returned item id is ItemCount after the call.
func (m *Marketplace) CreateListing(ctx context.Context, caller, asset, tokenId string, price decimal.Decimal) (uint64, error) {
	if !validPrice(price) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if !validAccount(caller) || caller == m.account {
		return 0, fmt.Errorf("%w: caller %q", ErrUnauthorized, caller)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var item *Item
	err := m.store.RunInTransaction(ctx, func(ctx context.Context) error {
		ok, err := m.registry.OwnerOrApproved(ctx, asset, caller, tokenId)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		if !ok {
			return fmt.Errorf("%w: %s %s", ErrUnauthorized, asset, tokenId)
		}
		ts, err := m.clock.Now(ctx)
		if err != nil {
			return err
		}

		count, err := m.store.ReadItemCount(ctx)
		if err != nil {
			return err
		}
		item = &Item{
			ItemId:    count + 1,
			Asset:     asset,
			TokenId:   tokenId,
			Price:     price,
			Seller:    caller,
			CreatedAt: ts,
			UpdatedAt: ts,
		}
		err = m.store.WriteItem(ctx, item)
		if err != nil {
			return err
		}
		err = m.store.WriteEvent(ctx, newItemEvent(EventTypeListingCreated, item, ts))
		if err != nil {
			return err
		}

		err = m.registry.TransferCustody(ctx, asset, caller, m.account, tokenId)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("listing created",
		zap.Uint64("item", item.ItemId),
		zap.String("asset", asset),
		zap.String("token", tokenId),
		zap.String("price", price.String()),
		zap.String("seller", caller))
	m.notifyListingCreated(ctx, item)
	return item.ItemId, nil
}
