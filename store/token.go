package store

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/lainhathoang/nft-market/nft"
)

const (
	prefixCollectionPayload = "COLLECTIBLES:COLLECTION:"
	prefixTokenPayload      = "COLLECTIBLES:TOKEN:"
	prefixTokenBalance      = "COLLECTIBLES:BALANCE:"
	prefixTokenApproval     = "COLLECTIBLES:APPROVAL:"
)

func (bs *BadgerStore) WriteCollection(ctx context.Context, c *nft.Collection) error {
	return bs.update(ctx, func(txn *badger.Txn) error {
		old, err := bs.readCollection(txn, c.Key)
		if err != nil {
			return err
		}
		if old != nil && (old.Creator != c.Creator || old.Circulation > c.Circulation) {
			panic(c.Key)
		}
		return writeRecord(txn, []byte(prefixCollectionPayload+c.Key), c)
	})
}

func (bs *BadgerStore) ReadCollection(ctx context.Context, asset string) (*nft.Collection, error) {
	var c *nft.Collection
	err := bs.view(ctx, func(txn *badger.Txn) error {
		var err error
		c, err = bs.readCollection(txn, asset)
		return err
	})
	return c, err
}

// WriteToken stores t and moves the owner balances when the owner changed.
func (bs *BadgerStore) WriteToken(ctx context.Context, t *nft.Token) error {
	return bs.update(ctx, func(txn *badger.Txn) error {
		old, err := bs.readToken(txn, t.Collection, t.TokenId)
		if err != nil {
			return err
		}
		if old != nil && old.Owner != t.Owner {
			err = bs.addTokenBalance(txn, t.Collection, old.Owner, -1)
			if err != nil {
				return err
			}
		}
		if old == nil || old.Owner != t.Owner {
			err = bs.addTokenBalance(txn, t.Collection, t.Owner, 1)
			if err != nil {
				return err
			}
		}
		return writeRecord(txn, tokenKey(t.Collection, t.TokenId), t)
	})
}

func (bs *BadgerStore) ReadToken(ctx context.Context, asset, tokenId string) (*nft.Token, error) {
	var t *nft.Token
	err := bs.view(ctx, func(txn *badger.Txn) error {
		var err error
		t, err = bs.readToken(txn, asset, tokenId)
		return err
	})
	return t, err
}

func (bs *BadgerStore) ReadTokenBalance(ctx context.Context, asset, owner string) (uint64, error) {
	var n uint64
	err := bs.view(ctx, func(txn *badger.Txn) error {
		var err error
		n, err = readCounter(txn, balanceKey(asset, owner))
		return err
	})
	return n, err
}

func (bs *BadgerStore) WriteApproval(ctx context.Context, asset, owner, operator string, approved bool) error {
	key := buildKey(prefixTokenApproval+asset+":"+owner+":", []byte(operator))
	return bs.update(ctx, func(txn *badger.Txn) error {
		if approved {
			return txn.Set(key, []byte{1})
		}
		return txn.Delete(key)
	})
}

func (bs *BadgerStore) ReadApproval(ctx context.Context, asset, owner, operator string) (bool, error) {
	key := buildKey(prefixTokenApproval+asset+":"+owner+":", []byte(operator))
	var approved bool
	err := bs.view(ctx, func(txn *badger.Txn) error {
		val, err := readBytes(txn, key)
		approved = len(val) > 0
		return err
	})
	return approved, err
}

func (bs *BadgerStore) addTokenBalance(txn *badger.Txn, asset, owner string, delta int) error {
	key := balanceKey(asset, owner)
	n, err := readCounter(txn, key)
	if err != nil {
		return err
	}
	if delta < 0 && n == 0 {
		panic(owner)
	}
	return writeCounter(txn, key, uint64(int64(n)+int64(delta)))
}

func (bs *BadgerStore) readCollection(txn *badger.Txn, asset string) (*nft.Collection, error) {
	var c nft.Collection
	found, err := readRecord(txn, []byte(prefixCollectionPayload+asset), &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

func (bs *BadgerStore) readToken(txn *badger.Txn, asset, tokenId string) (*nft.Token, error) {
	var t nft.Token
	found, err := readRecord(txn, tokenKey(asset, tokenId), &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

func tokenKey(asset, tokenId string) []byte {
	return []byte(prefixTokenPayload + asset + ":" + tokenId)
}

func balanceKey(asset, owner string) []byte {
	return []byte(prefixTokenBalance + asset + ":" + owner)
}
