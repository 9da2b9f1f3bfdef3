package store

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/lainhathoang/nft-market/market"
)

const (
	prefixItemPayload = "ITEM:PAYLOAD:"
	prefixItemSeller  = "ITEM:SELLER:"
	prefixItemBuyer   = "ITEM:BUYER:"
	keyItemCount      = "ITEM:COUNT"
)

// WriteItem appends a new item, whose id must follow the current count, or
// settles an existing one. Anything else breaks the ledger and panics.
func (bs *BadgerStore) WriteItem(ctx context.Context, item *market.Item) error {
	return bs.update(ctx, func(txn *badger.Txn) error {
		old, err := bs.readItem(txn, item.ItemId)
		if err != nil {
			return err
		}
		if old == nil {
			err = bs.appendItem(txn, item)
		} else {
			err = bs.settleItem(txn, old, item)
		}
		if err != nil {
			return err
		}
		key := buildKey(prefixItemPayload, uint64ToBytes(item.ItemId))
		return writeRecord(txn, key, item)
	})
}

func (bs *BadgerStore) ReadItem(ctx context.Context, id uint64) (*market.Item, error) {
	var item *market.Item
	err := bs.view(ctx, func(txn *badger.Txn) error {
		var err error
		item, err = bs.readItem(txn, id)
		return err
	})
	return item, err
}

func (bs *BadgerStore) ReadItemCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := bs.view(ctx, func(txn *badger.Txn) error {
		var err error
		count, err = readCounter(txn, []byte(keyItemCount))
		return err
	})
	return count, err
}

// ListItems returns items in id order, starting after id offset.
func (bs *BadgerStore) ListItems(ctx context.Context, offset uint64, limit int) ([]*market.Item, error) {
	if offset == math.MaxUint64 {
		return nil, nil
	}
	limit = listLimit(limit)
	var items []*market.Item
	err := bs.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(prefixItemPayload)
		start := buildKey(prefixItemPayload, uint64ToBytes(offset+1))
		return listKeys(txn, prefix, start, func(suffix []byte) (bool, error) {
			item, err := bs.readItem(txn, binary.BigEndian.Uint64(suffix))
			if err != nil {
				return false, err
			}
			items = append(items, item)
			return len(items) != limit, nil
		})
	})
	return items, err
}

func (bs *BadgerStore) ListItemsForSeller(ctx context.Context, seller string, limit int) ([]*market.Item, error) {
	return bs.listIndexedItems(ctx, prefixItemSeller+seller, limit)
}

func (bs *BadgerStore) ListItemsForBuyer(ctx context.Context, buyer string, limit int) ([]*market.Item, error) {
	return bs.listIndexedItems(ctx, prefixItemBuyer+buyer, limit)
}

func (bs *BadgerStore) listIndexedItems(ctx context.Context, prefix string, limit int) ([]*market.Item, error) {
	limit = listLimit(limit)
	var items []*market.Item
	err := bs.view(ctx, func(txn *badger.Txn) error {
		return listKeys(txn, []byte(prefix), nil, func(suffix []byte) (bool, error) {
			if len(suffix) != 8 {
				return true, nil
			}
			item, err := bs.readItem(txn, binary.BigEndian.Uint64(suffix))
			if err != nil {
				return false, err
			}
			items = append(items, item)
			return len(items) != limit, nil
		})
	})
	return items, err
}

func (bs *BadgerStore) appendItem(txn *badger.Txn, item *market.Item) error {
	count, err := readCounter(txn, []byte(keyItemCount))
	if err != nil {
		return err
	}
	if item.ItemId != count+1 || item.Sold {
		panic(item.ItemId)
	}
	err = writeCounter(txn, []byte(keyItemCount), item.ItemId)
	if err != nil {
		return err
	}
	key := buildKey(prefixItemSeller+item.Seller, uint64ToBytes(item.ItemId))
	return txn.Set(key, []byte{1})
}

func (bs *BadgerStore) settleItem(txn *badger.Txn, old, item *market.Item) error {
	if old.Sold || !item.Sold || item.Buyer == "" {
		panic(item.ItemId)
	}
	if old.Asset != item.Asset || old.TokenId != item.TokenId ||
		old.Seller != item.Seller || !old.Price.Equal(item.Price) {
		panic(item.ItemId)
	}
	key := buildKey(prefixItemBuyer+item.Buyer, uint64ToBytes(item.ItemId))
	return txn.Set(key, []byte{1})
}

func (bs *BadgerStore) readItem(txn *badger.Txn, id uint64) (*market.Item, error) {
	key := buildKey(prefixItemPayload, uint64ToBytes(id))
	var item market.Item
	found, err := readRecord(txn, key, &item)
	if err != nil || !found {
		return nil, err
	}
	return &item, nil
}
