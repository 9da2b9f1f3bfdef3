package market

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Settlement struct {
	ItemId  uint64
	Asset   string
	TokenId string
	Seller  string
	Buyer   string
	Price   decimal.Decimal
	Fee     decimal.Decimal
	Total   decimal.Decimal
	TraceId string
}

// PurchaseItem settles item itemId to caller. The buyer is charged the total
// price only; any amount tendered above it stays with the buyer.
func (m *Marketplace) PurchaseItem(ctx context.Context, caller string, itemId uint64, tendered decimal.Decimal) (*Settlement, error) {
	if !validAccount(caller) || caller == m.account {
		return nil, fmt.Errorf("%w: caller %q", ErrUnauthorized, caller)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var item *Item
	var receipt *Settlement
	err := m.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		item, err = m.readItem(ctx, itemId)
		if err != nil {
			return err
		}
		if item.Sold {
			return fmt.Errorf("%w: %d", ErrAlreadySold, itemId)
		}
		total := m.fees.Total(item.Price)
		if tendered.LessThan(total) {
			return fmt.Errorf("%w: %s < %s", ErrInsufficientPayment, tendered, total)
		}
		fee := total.Sub(item.Price)
		ts, err := m.clock.Now(ctx)
		if err != nil {
			return err
		}

		item.Sold = true
		item.Buyer = caller
		item.UpdatedAt = ts
		err = m.store.WriteItem(ctx, item)
		if err != nil {
			return err
		}

		memo := fmt.Sprintf("PURCHASE#%d", item.ItemId)
		sellerTrace := settlementTraceId(item.ItemId, settlementRoleSeller)
		err = m.writeSettlement(ctx, caller, item.Seller, item.Price, memo, sellerTrace, ts)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
		}
		err = m.writeSettlement(ctx, caller, m.fees.Recipient, fee, memo+":FEE", settlementTraceId(item.ItemId, settlementRoleFee), ts)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPaymentFailed, err)
		}

		err = m.store.WriteEvent(ctx, newItemEvent(EventTypePurchaseCompleted, item, ts))
		if err != nil {
			return err
		}

		err = m.registry.TransferCustody(ctx, item.Asset, m.account, caller, item.TokenId)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}

		receipt = &Settlement{
			ItemId:  item.ItemId,
			Asset:   item.Asset,
			TokenId: item.TokenId,
			Seller:  item.Seller,
			Buyer:   caller,
			Price:   item.Price,
			Fee:     fee,
			Total:   total,
			TraceId: sellerTrace,
		}
		return nil
	})
	if err != nil {
		zap.L().Debug("purchase rejected", zap.Uint64("item", itemId), zap.String("buyer", caller), zap.Error(err))
		return nil, err
	}

	zap.L().Info("purchase completed",
		zap.Uint64("item", receipt.ItemId),
		zap.String("buyer", receipt.Buyer),
		zap.String("seller", receipt.Seller),
		zap.String("price", receipt.Price.String()),
		zap.String("fee", receipt.Fee.String()))
	m.notifyPurchaseCompleted(ctx, item)
	return receipt, nil
}
