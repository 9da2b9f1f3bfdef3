package market

import (
	"context"
	"encoding/binary"
	"sync"
	"time"
)

const clockStorePropertyKey = "MARKET:CLOCK:MONOTONIC"

// Clock never goes backwards, across restarts included. Now persists through
// the transaction carried by its context, if any.
type Clock struct {
	sync.Mutex
	store Store
	now   time.Time
}

func NewClock(store Store) (*Clock, error) {
	bs, err := store.ReadProperty([]byte(clockStorePropertyKey))
	if err != nil {
		return nil, err
	}
	var ts time.Time
	if len(bs) == 8 {
		ts = time.Unix(0, int64(binary.BigEndian.Uint64(bs)))
	}
	if now := time.Now(); ts.Before(now) {
		ts = now
	}
	return &Clock{store: store, now: ts}, nil
}

func (c *Clock) Now(ctx context.Context) (time.Time, error) {
	c.Lock()
	defer c.Unlock()

	now := time.Now()
	if !now.After(c.now) {
		now = c.now.Add(time.Nanosecond)
	}

	val := binary.BigEndian.AppendUint64(nil, uint64(now.UnixNano()))
	err := c.store.WriteProperty(ctx, []byte(clockStorePropertyKey), val)
	if err != nil {
		return time.Time{}, err
	}
	c.now = now
	return c.now, nil
}
