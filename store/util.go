package store

import (
	"context"
	"encoding/binary"

	"github.com/MixinNetwork/mixin/common"
	"github.com/dgraph-io/badger/v4"
)

type txnContextKey struct{}

// DefaultListLimit bounds every list call made with a limit of zero or less.
const DefaultListLimit = 100

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// RunInTransaction joins the transaction already carried by ctx, if any.
func (bs *BadgerStore) RunInTransaction(ctx context.Context, fn func(context.Context) error) error {
	if _, ok := ctx.Value(txnContextKey{}).(*badger.Txn); ok {
		return fn(ctx)
	}
	return bs.db.Update(func(txn *badger.Txn) error {
		return fn(context.WithValue(ctx, txnContextKey{}, txn))
	})
}

func (bs *BadgerStore) update(ctx context.Context, fn func(*badger.Txn) error) error {
	if txn, ok := ctx.Value(txnContextKey{}).(*badger.Txn); ok {
		return fn(txn)
	}
	return bs.db.Update(fn)
}

func (bs *BadgerStore) view(ctx context.Context, fn func(*badger.Txn) error) error {
	if txn, ok := ctx.Value(txnContextKey{}).(*badger.Txn); ok {
		return fn(txn)
	}
	return bs.db.View(fn)
}

func readBytes(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// readRecord returns false when key is absent.
func readRecord(txn *badger.Txn, key []byte, v interface{}) (bool, error) {
	val, err := readBytes(txn, key)
	if err != nil || val == nil {
		return false, err
	}
	return true, common.MsgpackUnmarshal(val, v)
}

func writeRecord(txn *badger.Txn, key []byte, v interface{}) error {
	return txn.Set(key, common.MsgpackMarshalPanic(v))
}

func readCounter(txn *badger.Txn, key []byte) (uint64, error) {
	val, err := readBytes(txn, key)
	if err != nil || len(val) == 0 {
		return 0, err
	}
	return binary.BigEndian.Uint64(val), nil
}

func writeCounter(txn *badger.Txn, key []byte, n uint64) error {
	return txn.Set(key, uint64ToBytes(n))
}

func uint64ToBytes(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func buildKey(prefix string, parts ...[]byte) []byte {
	key := []byte(prefix)
	for _, p := range parts {
		key = append(key, p...)
	}
	return key
}

// listKeys calls fn with the key suffix after prefix for every key under
// prefix, starting at start, until fn returns false.
func listKeys(txn *badger.Txn, prefix, start []byte, fn func(suffix []byte) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	if start == nil {
		start = prefix
	}
	for it.Seek(start); it.Valid(); it.Next() {
		key := it.Item().KeyCopy(nil)
		more, err := fn(key[len(prefix):])
		if err != nil || !more {
			return err
		}
	}
	return nil
}
