package store

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/dgraph-io/badger/v4"
	"github.com/lainhathoang/nft-market/market"
)

const (
	prefixEventQueue = "EVENT:QUEUE:"
	keyEventCount    = "EVENT:COUNT"
)

// WriteEvent appends evt to the event queue and sets its sequence.
func (bs *BadgerStore) WriteEvent(ctx context.Context, evt *market.Event) error {
	return bs.update(ctx, func(txn *badger.Txn) error {
		count, err := readCounter(txn, []byte(keyEventCount))
		if err != nil {
			return err
		}
		evt.Sequence = count + 1
		err = writeCounter(txn, []byte(keyEventCount), evt.Sequence)
		if err != nil {
			return err
		}
		key := buildKey(prefixEventQueue, uint64ToBytes(evt.Sequence))
		return writeRecord(txn, key, evt)
	})
}

// ListEvents returns events in commit order, starting after sequence offset.
func (bs *BadgerStore) ListEvents(ctx context.Context, offset uint64, limit int) ([]*market.Event, error) {
	if offset == math.MaxUint64 {
		return nil, nil
	}
	limit = listLimit(limit)
	var events []*market.Event
	err := bs.view(ctx, func(txn *badger.Txn) error {
		prefix := []byte(prefixEventQueue)
		start := buildKey(prefixEventQueue, uint64ToBytes(offset+1))
		return listKeys(txn, prefix, start, func(suffix []byte) (bool, error) {
			key := buildKey(prefixEventQueue, suffix)
			var evt market.Event
			_, err := readRecord(txn, key, &evt)
			if err != nil {
				return false, err
			}
			if evt.Sequence != binary.BigEndian.Uint64(suffix) {
				panic(evt.Sequence)
			}
			events = append(events, &evt)
			return len(events) != limit, nil
		})
	})
	return events, err
}
