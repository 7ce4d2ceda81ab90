package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"pricebot/internal/pricing"
)

// BaselineStore persists the last committed price snapshot.
type BaselineStore struct {
	kv     KV
	logger zerolog.Logger
}

// NewBaselineStore builds a BaselineStore on kv.
func NewBaselineStore(kv KV, logger zerolog.Logger) *BaselineStore {
	return &BaselineStore{kv: kv, logger: logger.With().Str("component", "baseline_store").Logger()}
}

// Load returns the committed snapshot. ok is false when nothing usable is
// stored; a corrupt record counts as absent. err is only set when the backend
// itself could not be read.
func (b *BaselineStore) Load(ctx context.Context) (pricing.Snapshot, bool, error) {
	if b == nil || b.kv == nil {
		return pricing.Snapshot{}, false, ErrNotConfigured
	}

	raw, err := b.kv.Get(ctx, KeyBaseline)
	if errors.Is(err, ErrNotFound) {
		return pricing.Snapshot{}, false, nil
	}
	if err != nil {
		return pricing.Snapshot{}, false, fmt.Errorf("load baseline: %w", err)
	}

	var snapshot pricing.Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		b.logger.Warn().Err(err).Msg("stored baseline is corrupt; treating as absent")
		return pricing.Snapshot{}, false, nil
	}
	if snapshot.IsEmpty() {
		return pricing.Snapshot{}, false, nil
	}
	return snapshot, true, nil
}

// Commit replaces the stored baseline with snapshot.
func (b *BaselineStore) Commit(ctx context.Context, snapshot pricing.Snapshot) error {
	if b == nil || b.kv == nil {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode baseline: %w", err)
	}
	if err := b.kv.Put(ctx, KeyBaseline, payload); err != nil {
		return fmt.Errorf("commit baseline: %w", err)
	}
	return nil
}
