package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/buntdb"
)

// BuntKV stores records in a single buntdb file.
type BuntKV struct {
	db *buntdb.DB
}

// NewBuntKV opens (or creates) the database at path. ":memory:" keeps everything in RAM.
func NewBuntKV(path string) (*BuntKV, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open buntdb: %w", err)
	}

	if err := db.SetConfig(buntdb.Config{
		SyncPolicy:           buntdb.Always,
		AutoShrinkPercentage: 100,
		AutoShrinkMinSize:    32 * 1024,
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure buntdb: %w", err)
	}

	return &BuntKV{db: db}, nil
}

// NewMemoryKV is an in-memory BuntKV, used by tests and dry runs.
func NewMemoryKV() (*BuntKV, error) {
	return NewBuntKV(":memory:")
}

// Get returns the raw record stored under key.
func (b *BuntKV) Get(_ context.Context, key string) ([]byte, error) {
	var value string
	err := b.db.View(func(tx *buntdb.Tx) error {
		v, err := tx.Get(key)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("buntdb get %s: %w", key, err)
	}
	return []byte(value), nil
}

// Put replaces the record under key inside a single transaction.
func (b *BuntKV) Put(_ context.Context, key string, value []byte) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key, string(value), nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("buntdb put %s: %w", key, err)
	}
	return nil
}

// Close flushes and closes the database file.
func (b *BuntKV) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

var _ KV = (*BuntKV)(nil)
