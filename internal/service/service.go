package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pricebot/internal/alerting"
	"pricebot/internal/fetcher"
	"pricebot/internal/pricing"
	"pricebot/internal/scheduler"
	"pricebot/internal/storage"
)

// Outcome names what a single check did.
type Outcome string

const (
	OutcomeUnavailable    Outcome = "unavailable"
	OutcomeBootstrapped   Outcome = "bootstrapped"
	OutcomeBelowThreshold Outcome = "below_threshold"
	OutcomeNotified       Outcome = "notified"
	OutcomeSkipped        Outcome = "skipped"
)

// Result summarises one RunCheck.
type Result struct {
	Outcome   Outcome
	Baseline  pricing.Snapshot
	Snapshot  pricing.Snapshot
	Changes   pricing.ChangeSet
	Trigger   pricing.Change
	Message   string
	Delivered int
	Failed    int
}

// BaselineStore loads and commits the comparison baseline.
type BaselineStore interface {
	Load(ctx context.Context) (pricing.Snapshot, bool, error)
	Commit(ctx context.Context, snapshot pricing.Snapshot) error
}

// SettingsSource yields the runtime settings, read fresh every cycle.
type SettingsSource interface {
	Load(ctx context.Context) (storage.Settings, error)
}

// DestinationSource lists the registered alert destinations.
type DestinationSource interface {
	Destinations(ctx context.Context) ([]storage.Destination, error)
}

// Options carry presentation and routing parameters.
type Options struct {
	AssetName     string
	DefaultChatID int64
	ChatLink      string
	AssetsDir     string
	UpImage       string
	DownImage     string
	PricePlaces   int32
	PercentPlaces int32
	LockKey       int64
	CommitTimeout time.Duration
}

// Service runs price checks and fans alerts out to destinations.
type Service struct {
	scheduler *scheduler.Scheduler
	source    fetcher.PriceSource
	baseline  BaselineStore
	settings  SettingsSource
	registry  DestinationSource
	notifier  alerting.Notifier
	locker    storage.AdvisoryLocker
	opts      Options
	logger    zerolog.Logger

	mu sync.Mutex
}

// New constructs the monitoring service. sched and locker may be nil.
func New(opts Options, sched *scheduler.Scheduler, source fetcher.PriceSource, baseline BaselineStore, settings SettingsSource, registry DestinationSource, notifier alerting.Notifier, locker storage.AdvisoryLocker, logger zerolog.Logger) *Service {
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 5 * time.Second
	}
	return &Service{
		scheduler: sched,
		source:    source,
		baseline:  baseline,
		settings:  settings,
		registry:  registry,
		notifier:  notifier,
		locker:    locker,
		opts:      opts,
		logger:    logger.With().Str("component", "service").Logger(),
	}
}

// Run begins the polling loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context) error {
		_, err := s.RunCheck(ctx)
		return err
	})
}

// PollInterval reads the current poll interval from settings.
func (s *Service) PollInterval(ctx context.Context) time.Duration {
	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings unavailable; using default interval")
	}
	return settings.Interval()
}

// CurrentPrices fetches a fresh snapshot for display. The baseline is not touched.
func (s *Service) CurrentPrices(ctx context.Context) (pricing.Snapshot, error) {
	return s.source.Fetch(ctx)
}

// Currencies returns the tracked currency order.
func (s *Service) Currencies() []pricing.Currency {
	return s.source.Currencies()
}

// RunCheck performs one compare-and-notify cycle. Only one runs at a time.
func (s *Service) RunCheck(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return Result{}, err
	}
	if !proceed {
		s.logger.Debug().Msg("skip check because advisory lock held elsewhere")
		return Result{Outcome: OutcomeSkipped}, nil
	}
	if unlock != nil {
		defer unlock()
	}

	return s.executeCheck(ctx)
}

func (s *Service) executeCheck(ctx context.Context) (Result, error) {
	old, hasOld, err := s.baseline.Load(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("load baseline: %w", err)
	}

	current, err := s.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, fetcher.ErrUnavailable) {
			s.logger.Warn().Err(err).Msg("price source unavailable; skipping check")
		} else {
			s.logger.Error().Err(err).Msg("price fetch failed; skipping check")
		}
		return Result{Outcome: OutcomeUnavailable}, nil
	}

	if !hasOld {
		if err := s.baseline.Commit(ctx, current); err != nil {
			return Result{}, fmt.Errorf("bootstrap baseline: %w", err)
		}
		s.logger.Info().Stringer("baseline", current).Msg("baseline established")
		return Result{Outcome: OutcomeBootstrapped, Snapshot: current}, nil
	}

	result := Result{Baseline: old, Snapshot: current}
	result.Changes = pricing.Compare(old, current, s.source.Currencies())

	settings, err := s.settings.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("settings unavailable; using defaults")
	}
	threshold := settings.Threshold()

	triggered := result.Changes.Triggered(threshold)
	trigger, ok := triggered.Strongest()
	if !ok {
		event := s.logger.Debug().Str("threshold_pct", threshold.String())
		if strongest, found := result.Changes.Strongest(); found {
			event = event.Str("currency", string(strongest.Currency)).Str("change_pct", strongest.Percent.StringFixed(4))
		}
		event.Msg("change below threshold; baseline kept")
		result.Outcome = OutcomeBelowThreshold
		return result, nil
	}
	result.Trigger = trigger

	result.Message = alerting.RenderAlert(alerting.Alert{
		AssetName:     s.opts.AssetName,
		Currencies:    s.source.Currencies(),
		Old:           old,
		New:           current,
		Changes:       result.Changes,
		Trigger:       trigger,
		Threshold:     threshold,
		ChatLink:      s.opts.ChatLink,
		PricePlaces:   s.opts.PricePlaces,
		PercentPlaces: s.opts.PercentPlaces,
	})

	image := s.imageFor(trigger.Direction())
	result.Delivered, result.Failed = s.fanOut(ctx, s.destinations(ctx), result.Message, image)

	s.logger.Info().
		Str("currency", string(trigger.Currency)).
		Str("change_pct", trigger.Percent.StringFixed(4)).
		Str("direction", string(trigger.Direction())).
		Int("delivered", result.Delivered).
		Int("failed", result.Failed).
		Msg("price alert dispatched")

	// The alert has gone out; commit even if shutdown began mid fan-out.
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CommitTimeout)
	defer cancel()
	if err := s.baseline.Commit(commitCtx, current); err != nil {
		return result, fmt.Errorf("commit baseline: %w", err)
	}
	result.Outcome = OutcomeNotified
	return result, nil
}

// destinations returns the registered chats, or the configured default when none are registered.
func (s *Service) destinations(ctx context.Context) []storage.Destination {
	var dests []storage.Destination
	if s.registry != nil {
		var err error
		dests, err = s.registry.Destinations(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to load destinations; using default chat")
			dests = nil
		}
	}
	if len(dests) > 0 {
		return dests
	}
	if s.opts.DefaultChatID == 0 {
		s.logger.Warn().Msg("no destinations registered and no default chat configured")
		return nil
	}
	return []storage.Destination{{ID: s.opts.DefaultChatID, Name: "default"}}
}

// fanOut attempts each destination once; one failure never stops the others.
func (s *Service) fanOut(ctx context.Context, dests []storage.Destination, text, image string) (delivered, failed int) {
	if s.notifier == nil {
		s.logger.Warn().Msg("no notifier configured; alert not delivered")
		return 0, len(dests)
	}
	for _, dest := range dests {
		if err := s.deliver(ctx, dest.ID, text, image); err != nil {
			failed++
			s.logger.Error().Err(err).Int64("chat_id", dest.ID).Str("chat_name", dest.Name).Msg("failed to deliver alert")
			continue
		}
		delivered++
	}
	return delivered, failed
}

func (s *Service) deliver(ctx context.Context, chatID int64, text, image string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
		}
	}()
	if image != "" {
		return s.notifier.SendPhoto(ctx, chatID, image, text)
	}
	return s.notifier.SendText(ctx, chatID, text)
}

// imageFor returns the direction image path when it exists and is non-empty.
func (s *Service) imageFor(direction pricing.Direction) string {
	name := s.opts.UpImage
	if direction == pricing.DirectionDown {
		name = s.opts.DownImage
	}
	if s.opts.AssetsDir == "" || name == "" {
		return ""
	}
	path := filepath.Join(s.opts.AssetsDir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return ""
	}
	return path
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.opts.LockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.opts.LockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
