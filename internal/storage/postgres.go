package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createRecordsTableSQL = `CREATE TABLE IF NOT EXISTS bot_records (
        record_key TEXT PRIMARY KEY,
        payload    TEXT NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );`

	getRecordSQL = `SELECT payload FROM bot_records WHERE record_key = $1;`

	upsertRecordSQL = `INSERT INTO bot_records (
        record_key,
        payload,
        updated_at
    ) VALUES (
        $1,$2,now()
    )
    ON CONFLICT (record_key) DO UPDATE
    SET
        payload    = EXCLUDED.payload,
        updated_at = EXCLUDED.updated_at;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PostgresKV stores records as rows of a single table.
type PostgresKV struct {
	pool *pgxpool.Pool
}

// NewPostgresKV wires a pgx pool into a PostgresKV.
func NewPostgresKV(pool *pgxpool.Pool) *PostgresKV {
	return &PostgresKV{pool: pool}
}

// EnsureSchema creates the records table when missing.
func (p *PostgresKV) EnsureSchema(ctx context.Context) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, createRecordsTableSQL); err != nil {
		return fmt.Errorf("create bot_records: %w", err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (p *PostgresKV) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}

func (p *PostgresKV) getPool() (*pgxpool.Pool, error) {
	if p == nil || p.pool == nil {
		return nil, ErrNotConfigured
	}
	return p.pool, nil
}

// Get returns the raw record stored under key.
func (p *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	pool, err := p.getPool()
	if err != nil {
		return nil, err
	}

	var payload string
	if err := pool.QueryRow(ctx, getRecordSQL, key).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Put upserts the record in a single statement.
func (p *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	pool, err := p.getPool()
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, upsertRecordSQL, key, string(value)); err != nil {
		return fmt.Errorf("upsert record %s: %w", key, err)
	}
	return nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (p *PostgresKV) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := p.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// best effort; the lock also dies with the session
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

var (
	_ KV             = (*PostgresKV)(nil)
	_ AdvisoryLocker = (*PostgresKV)(nil)
)
