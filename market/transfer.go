package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fox-one/mixin-sdk-go"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// Transfer moves an amount between two payment ledger accounts. A transfer
// without Sender is a deposit from outside the ledger.
type Transfer struct {
	TraceId   string
	Sender    string
	Receiver  string
	Amount    decimal.Decimal
	Memo      string
	CreatedAt time.Time
}

const (
	settlementRoleSeller = "seller"
	settlementRoleFee    = "fee"
)

// derived from the item so a replayed settlement can never pay a role twice
func settlementTraceId(itemId uint64, role string) string {
	return mixin.UniqueConversationID(strconv.FormatUint(itemId, 10), "settlement:"+role)
}

// depositTraceId keeps caller chosen deposit ids out of the settlement ids.
func depositTraceId(traceId string) string {
	return mixin.UniqueConversationID("DEPOSIT", traceId)
}

// writeSettlement pays one leg of a purchase; its trace id must be unused.
func (m *Marketplace) writeSettlement(ctx context.Context, sender, receiver string, amount decimal.Decimal, memo, traceId string, ts time.Time) error {
	old, err := m.store.ReadTransfer(ctx, traceId)
	if err != nil {
		return err
	}
	if old != nil {
		return fmt.Errorf("settlement %s already recorded", traceId)
	}
	return m.writeTransfer(ctx, sender, receiver, amount, memo, traceId, ts)
}

func (m *Marketplace) writeTransfer(ctx context.Context, sender, receiver string, amount decimal.Decimal, memo, traceId string, ts time.Time) error {
	if amount.Sign() <= 0 {
		return nil
	}
	return m.store.WriteTransfer(ctx, &Transfer{
		TraceId:   traceId,
		Sender:    sender,
		Receiver:  receiver,
		Amount:    amount,
		Memo:      memo,
		CreatedAt: ts,
	})
}

// Deposit credits an account of the payment ledger from outside, the local
// stand-in for funding a wallet. Replaying a trace id with the same account
// and amount is a no-op.
func (m *Marketplace) Deposit(ctx context.Context, account string, amount decimal.Decimal, traceId string) error {
	if !validAccount(account) {
		return fmt.Errorf("%w: account %q", ErrUnauthorized, account)
	}
	if !validPrice(amount) {
		return fmt.Errorf("invalid deposit amount %s", amount)
	}
	if _, err := uuid.FromString(traceId); err != nil {
		return fmt.Errorf("invalid trace id %s", traceId)
	}
	ts, err := m.clock.Now(ctx)
	if err != nil {
		return err
	}
	return m.writeTransfer(ctx, "", account, amount, "DEPOSIT", depositTraceId(traceId), ts)
}

func (m *Marketplace) Balance(ctx context.Context, account string) (decimal.Decimal, error) {
	return m.store.ReadBalance(ctx, account)
}

func validAccount(id string) bool {
	uid, err := uuid.FromString(id)
	return err == nil && uid != uuid.Nil
}
