package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// RegistryStore persists administrators and alert destinations.
//
// Mutations return (false, nil) for a duplicate add or an absent remove and a
// non-nil error only when storage failed, so callers can tell the two apart.
// Read-modify-write is serialised inside one process only; two processes
// sharing a backend are last-writer-wins.
type RegistryStore struct {
	kv     KV
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewRegistryStore builds a RegistryStore on kv.
func NewRegistryStore(kv KV, logger zerolog.Logger) *RegistryStore {
	return &RegistryStore{kv: kv, logger: logger.With().Str("component", "registry_store").Logger()}
}

// Load returns the stored registry, or an empty one when absent or corrupt.
func (r *RegistryStore) Load(ctx context.Context) (Registry, error) {
	raw, err := r.kv.Get(ctx, KeyRegistry)
	if errors.Is(err, ErrNotFound) {
		return Registry{}.normalised(), nil
	}
	if err != nil {
		return Registry{}.normalised(), fmt.Errorf("load registry: %w", err)
	}

	var reg Registry
	if err := json.Unmarshal(raw, &reg); err != nil {
		r.logger.Warn().Err(err).Msg("stored registry is corrupt; using empty registry")
		return Registry{}.normalised(), nil
	}
	return reg.normalised(), nil
}

func (r *RegistryStore) save(ctx context.Context, reg Registry) error {
	payload, err := json.MarshalIndent(reg.normalised(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := r.kv.Put(ctx, KeyRegistry, payload); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

// update loads, applies mutate and saves when mutate reports a change.
func (r *RegistryStore) update(ctx context.Context, mutate func(*Registry) bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, err := r.Load(ctx)
	if err != nil {
		return false, err
	}
	if !mutate(&reg) {
		return false, nil
	}
	if err := r.save(ctx, reg); err != nil {
		return false, err
	}
	return true, nil
}

// IsAdmin reports whether userID holds admin authority. When no admin exists
// yet the caller is granted authority and persisted as the sole admin in the
// same call. Two processes racing on an empty set can both be granted.
func (r *RegistryStore) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var bootstrapped bool
	var isAdmin bool

	_, err := r.update(ctx, func(reg *Registry) bool {
		if len(reg.AdminIDs) == 0 {
			reg.AdminIDs = append(reg.AdminIDs, userID)
			bootstrapped = true
			return true
		}
		isAdmin = lo.Contains(reg.AdminIDs, userID)
		return false
	})
	if err != nil {
		return false, err
	}
	if bootstrapped {
		r.logger.Info().Int64("user_id", userID).Msg("admin list empty; granted first caller admin")
		return true, nil
	}
	return isAdmin, nil
}

// AddAdmin adds userID; false when already present.
func (r *RegistryStore) AddAdmin(ctx context.Context, userID int64) (bool, error) {
	return r.update(ctx, func(reg *Registry) bool {
		if lo.Contains(reg.AdminIDs, userID) {
			return false
		}
		reg.AdminIDs = append(reg.AdminIDs, userID)
		return true
	})
}

// RemoveAdmin removes userID; false when absent.
func (r *RegistryStore) RemoveAdmin(ctx context.Context, userID int64) (bool, error) {
	return r.update(ctx, func(reg *Registry) bool {
		if !lo.Contains(reg.AdminIDs, userID) {
			return false
		}
		reg.AdminIDs = lo.Without(reg.AdminIDs, userID)
		return true
	})
}

// Admins lists administrator ids.
func (r *RegistryStore) Admins(ctx context.Context) ([]int64, error) {
	reg, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return reg.AdminIDs, nil
}

// AddDestination appends dest, keeping insertion order; false when the id is already registered.
func (r *RegistryStore) AddDestination(ctx context.Context, dest Destination) (bool, error) {
	dest.Name = strings.TrimSpace(dest.Name)
	if dest.ID == 0 {
		return false, fmt.Errorf("%w: destination id must be non-zero", ErrInvalidArgument)
	}
	return r.update(ctx, func(reg *Registry) bool {
		if hasDestination(reg.Destinations, dest.ID) {
			return false
		}
		reg.Destinations = append(reg.Destinations, dest)
		return true
	})
}

// RemoveDestination removes the destination with id; false when absent.
func (r *RegistryStore) RemoveDestination(ctx context.Context, id int64) (bool, error) {
	return r.update(ctx, func(reg *Registry) bool {
		if !hasDestination(reg.Destinations, id) {
			return false
		}
		reg.Destinations = lo.Reject(reg.Destinations, func(d Destination, _ int) bool {
			return d.ID == id
		})
		return true
	})
}

// Destinations lists registered destinations in insertion order.
func (r *RegistryStore) Destinations(ctx context.Context) ([]Destination, error) {
	reg, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return reg.Destinations, nil
}

func hasDestination(dests []Destination, id int64) bool {
	return lo.ContainsBy(dests, func(d Destination) bool { return d.ID == id })
}
