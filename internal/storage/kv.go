package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotConfigured indicates the storage backend was not initialised.
	ErrNotConfigured = errors.New("storage: backend not configured")
	// ErrNotFound is returned by a KV when the key holds no record.
	ErrNotFound = errors.New("storage: record not found")
	// ErrInvalidArgument rejects a mutation before anything is written.
	ErrInvalidArgument = errors.New("storage: invalid argument")
)

// Record keys. Each typed store owns exactly one.
const (
	KeyBaseline = "baseline"
	KeySettings = "settings"
	KeyRegistry = "registry"
)

// KV is the durable key-value contract the typed stores are built on.
// Put replaces the whole value; readers never observe a partial write.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

// AdvisoryLocker exposes advisory lock helpers for backends that support them.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}
