package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
)

// MaxIntervalSeconds bounds the poll interval accepted by SetInterval and Load.
const MaxIntervalSeconds = math.MaxInt32

// SettingsStore persists threshold and poll interval overrides.
type SettingsStore struct {
	kv       KV
	defaults Settings
	logger   zerolog.Logger
	mu       sync.Mutex
}

// NewSettingsStore builds a SettingsStore. Invalid fields in defaults fall back to DefaultSettings.
func NewSettingsStore(kv KV, defaults Settings, logger zerolog.Logger) *SettingsStore {
	if !validThreshold(defaults.ThresholdPct) {
		defaults.ThresholdPct = DefaultSettings.ThresholdPct
	}
	if defaults.CheckIntervalSeconds <= 0 {
		defaults.CheckIntervalSeconds = DefaultSettings.CheckIntervalSeconds
	}
	return &SettingsStore{
		kv:       kv,
		defaults: defaults,
		logger:   logger.With().Str("component", "settings_store").Logger(),
	}
}

// Defaults returns the values substituted for missing or corrupt fields.
func (s *SettingsStore) Defaults() Settings {
	return s.defaults
}

// Load reads the stored settings. Missing, corrupt or non-positive fields are
// replaced by defaults. The returned settings are always usable; err reports a
// backend failure, in which case the defaults are returned.
func (s *SettingsStore) Load(ctx context.Context) (Settings, error) {
	raw, err := s.kv.Get(ctx, KeySettings)
	if errors.Is(err, ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return s.defaults, fmt.Errorf("load settings: %w", err)
	}

	var stored struct {
		Threshold *float64 `json:"price_change_threshold"`
		Interval  *float64 `json:"check_interval"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn().Err(err).Msg("stored settings are corrupt; using defaults")
		return s.defaults, nil
	}

	settings := s.defaults
	if stored.Threshold != nil && validThreshold(*stored.Threshold) {
		settings.ThresholdPct = *stored.Threshold
	}
	if stored.Interval != nil && *stored.Interval >= 1 && *stored.Interval <= MaxIntervalSeconds {
		settings.CheckIntervalSeconds = int(math.Round(*stored.Interval))
	}
	return settings, nil
}

// Save writes settings as a whole record.
func (s *SettingsStore) Save(ctx context.Context, settings Settings) error {
	if !validThreshold(settings.ThresholdPct) || settings.CheckIntervalSeconds <= 0 || settings.CheckIntervalSeconds > MaxIntervalSeconds {
		return fmt.Errorf("%w: settings must be positive", ErrInvalidArgument)
	}
	payload, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.kv.Put(ctx, KeySettings, payload); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetThreshold persists a new threshold percentage. It applies from the next check.
func (s *SettingsStore) SetThreshold(ctx context.Context, pct float64) error {
	if !validThreshold(pct) {
		return fmt.Errorf("%w: threshold must be greater than zero, got %v", ErrInvalidArgument, pct)
	}
	return s.update(ctx, func(st *Settings) { st.ThresholdPct = pct })
}

// SetInterval persists a new poll interval in seconds. It applies from the next wait.
func (s *SettingsStore) SetInterval(ctx context.Context, seconds int) error {
	if seconds <= 0 || seconds > MaxIntervalSeconds {
		return fmt.Errorf("%w: interval must be between 1 and %d seconds, got %d", ErrInvalidArgument, MaxIntervalSeconds, seconds)
	}
	return s.update(ctx, func(st *Settings) { st.CheckIntervalSeconds = seconds })
}

func (s *SettingsStore) update(ctx context.Context, mutate func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Load(ctx)
	if err != nil {
		return err
	}
	mutate(&current)
	return s.Save(ctx, current)
}

func validThreshold(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
