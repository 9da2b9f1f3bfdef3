package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/lainhathoang/nft-market/market"
	"github.com/shopspring/decimal"
)

const (
	prefixTransferPayload = "TRANSFER:PAYLOAD:"
	prefixBalance         = "BALANCE:"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTraceConflict       = errors.New("trace id already used by another transfer")
)

// WriteTransfer applies t to the balances once. Writing the same transfer
// again is a no-op; a different transfer under a used trace id fails.
func (bs *BadgerStore) WriteTransfer(ctx context.Context, t *market.Transfer) error {
	if t.Amount.Sign() <= 0 || t.Receiver == "" {
		panic(t.TraceId)
	}
	return bs.update(ctx, func(txn *badger.Txn) error {
		old, err := bs.readTransfer(txn, t.TraceId)
		if err != nil {
			return err
		}
		if old != nil {
			if old.Sender != t.Sender || old.Receiver != t.Receiver || !old.Amount.Equal(t.Amount) {
				return fmt.Errorf("%w: %s", ErrTraceConflict, t.TraceId)
			}
			return nil
		}

		if t.Sender != "" {
			bal, err := bs.readBalance(txn, t.Sender)
			if err != nil {
				return err
			}
			if bal.LessThan(t.Amount) {
				return fmt.Errorf("%w: %s %s < %s", ErrInsufficientBalance, t.Sender, bal, t.Amount)
			}
			err = bs.writeBalance(txn, t.Sender, bal.Sub(t.Amount))
			if err != nil {
				return err
			}
		}
		bal, err := bs.readBalance(txn, t.Receiver)
		if err != nil {
			return err
		}
		err = bs.writeBalance(txn, t.Receiver, bal.Add(t.Amount))
		if err != nil {
			return err
		}

		return writeRecord(txn, []byte(prefixTransferPayload+t.TraceId), t)
	})
}

func (bs *BadgerStore) ReadTransfer(ctx context.Context, traceId string) (*market.Transfer, error) {
	var t *market.Transfer
	err := bs.view(ctx, func(txn *badger.Txn) error {
		var err error
		t, err = bs.readTransfer(txn, traceId)
		return err
	})
	return t, err
}

func (bs *BadgerStore) ReadBalance(ctx context.Context, account string) (decimal.Decimal, error) {
	bal := decimal.Zero
	err := bs.view(ctx, func(txn *badger.Txn) error {
		var err error
		bal, err = bs.readBalance(txn, account)
		return err
	})
	return bal, err
}

func (bs *BadgerStore) readTransfer(txn *badger.Txn, traceId string) (*market.Transfer, error) {
	var t market.Transfer
	found, err := readRecord(txn, []byte(prefixTransferPayload+traceId), &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

func (bs *BadgerStore) readBalance(txn *badger.Txn, account string) (decimal.Decimal, error) {
	val, err := readBytes(txn, []byte(prefixBalance+account))
	if err != nil || val == nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(string(val))
}

func (bs *BadgerStore) writeBalance(txn *badger.Txn, account string, bal decimal.Decimal) error {
	if bal.Sign() < 0 {
		panic(account)
	}
	return txn.Set([]byte(prefixBalance+account), []byte(bal.String()))
}
