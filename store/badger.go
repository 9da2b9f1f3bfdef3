package store

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens the database at path, or an in-memory one when path is
// empty. The value log of an on-disk database is collected until ctx ends.
func OpenBadger(ctx context.Context, path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(&badgerLogger{zap.S().Named("badger")})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		go collectValueLog(ctx, db)
	}

	return &BadgerStore{
		db: db,
	}, nil
}

func collectValueLog(ctx context.Context, db *badger.DB) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		lsm, vlog := db.Size()
		zap.L().Debug("badger size", zap.Int64("lsm", lsm), zap.Int64("vlog", vlog))
		if lsm > 1024*1024*8 || vlog > 1024*1024*32 {
			err := db.RunValueLogGC(0.5)
			zap.L().Debug("badger value log gc", zap.Error(err))
		}
	}
}

func (bs *BadgerStore) Close() error {
	return bs.db.Close()
}

func (bs *BadgerStore) WriteProperty(ctx context.Context, key, val []byte) error {
	return bs.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

func (bs *BadgerStore) ReadProperty(key []byte) ([]byte, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	return readBytes(txn, key)
}

type badgerLogger struct {
	*zap.SugaredLogger
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}
