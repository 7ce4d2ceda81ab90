package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"pricebot/internal/alerting"
	"pricebot/internal/bot"
	"pricebot/internal/config"
	"pricebot/internal/fetcher"
	"pricebot/internal/logging"
	"pricebot/internal/pricing"
	"pricebot/internal/scheduler"
	"pricebot/internal/service"
	"pricebot/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

// stores groups the persistence-backed stores sharing one KV backend.
type stores struct {
	kv       storage.KV
	baseline *storage.BaselineStore
	settings *storage.SettingsStore
	registry *storage.RegistryStore
}

func (a *App) newStores(kv storage.KV) *stores {
	defaults := storage.Settings{
		ThresholdPct:         a.Config.Alerting.DefaultThresholdPct,
		CheckIntervalSeconds: a.Config.DefaultIntervalSeconds(),
	}
	return &stores{
		kv:       kv,
		baseline: storage.NewBaselineStore(kv, a.Logger),
		settings: storage.NewSettingsStore(kv, defaults, a.Logger),
		registry: storage.NewRegistryStore(kv, a.Logger),
	}
}

func (a *App) openStores(ctx context.Context) (*stores, func(), error) {
	kv, err := storage.Open(ctx, a.Config.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", a.Config.Storage.Backend, err)
	}
	closer := func() {
		if err := kv.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close storage")
		}
	}
	return a.newStores(kv), closer, nil
}

func (a *App) newFetcher() *fetcher.CoinGecko {
	return fetcher.NewCoinGecko(fetcher.CoinGeckoOptions{
		BaseURL:    a.Config.Price.BaseURL,
		AssetID:    a.Config.Price.AssetID,
		Currencies: pricing.ParseCurrencies(a.Config.Price.Currencies),
		Timeout:    a.Config.Price.RequestTimeout,
		UserAgent:  a.Config.Price.UserAgent,
	}, a.Logger)
}

// newBot builds the Telegram client. A nil poller gives a send-only client.
func (a *App) newBot(poller tele.Poller) (*tele.Bot, error) {
	offline := poller == nil
	return alerting.NewBot(a.Config.Telegram.BotToken, a.Config.Telegram.APIURL, poller, offline, func(err error, c tele.Context) {
		event := a.Logger.Error().Err(err)
		if c != nil && c.Chat() != nil {
			event = event.Int64("chat_id", c.Chat().ID)
		}
		event.Msg("telegram handler failed")
	})
}

func (a *App) serviceOptions(lockKey int64) service.Options {
	return service.Options{
		AssetName:     a.Config.Price.AssetName,
		DefaultChatID: a.Config.Telegram.DefaultChatID,
		ChatLink:      a.Config.Telegram.ChatLink,
		AssetsDir:     a.Config.Alerting.AssetsDir,
		UpImage:       a.Config.Alerting.UpImage,
		DownImage:     a.Config.Alerting.DownImage,
		PricePlaces:   a.Config.Alerting.PricePlaces,
		PercentPlaces: a.Config.Alerting.PercentPlaces,
		LockKey:       lockKey,
	}
}

func (a *App) newService(st *stores, sched *scheduler.Scheduler, source fetcher.PriceSource, notifier alerting.Notifier) *service.Service {
	var (
		locker  storage.AdvisoryLocker
		lockKey int64
	)
	if l, ok := st.kv.(storage.AdvisoryLocker); ok {
		locker = l
		lockKey = a.Config.Scheduler.AdvisoryLockKey
	}
	return service.New(a.serviceOptions(lockKey), sched, source, st.baseline, st.settings, st.registry, notifier, locker, a.Logger)
}

// Run executes the long-running bot: command handlers plus the price checker.
func (a *App) Run(ctx context.Context) error {
	if err := a.Config.ValidateBot(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	tgBot, err := a.newBot(&tele.LongPoller{Timeout: a.Config.Telegram.PollTimeout})
	if err != nil {
		return err
	}

	source := a.newFetcher()
	var svc *service.Service
	sched := scheduler.New(scheduler.Options{
		Interval:         func(ctx context.Context) time.Duration { return svc.PollInterval(ctx) },
		FallbackInterval: a.Config.Scheduler.DefaultInterval,
		StartupDelay:     a.Config.Scheduler.StartupDelay,
	}, a.Logger)
	svc = a.newService(st, sched, source, alerting.NewTelegramNotifier(tgBot, a.Logger))

	cmds := bot.NewCommands(bot.Options{
		AssetName:   a.Config.Price.AssetName,
		PricePlaces: a.Config.Alerting.PricePlaces,
		ChatLink:    a.Config.Telegram.ChatLink,
	}, svc, st.settings, st.registry, a.Logger)
	bot.Register(ctx, tgBot, cmds, a.Logger)

	go tgBot.Start()
	defer tgBot.Stop()

	a.Logger.Info().
		Str("asset", source.AssetID()).
		Str("backend", a.Config.Storage.Backend).
		Int64("default_chat_id", a.Config.Telegram.DefaultChatID).
		Msg("starting price bot")

	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("price bot stopped")
	return nil
}

// Check runs a single compare-and-notify cycle against the configured storage.
func (a *App) Check(ctx context.Context) (service.Result, error) {
	if err := a.Config.ValidateBot(); err != nil {
		return service.Result{}, err
	}

	st, closeStores, err := a.openStores(ctx)
	if err != nil {
		return service.Result{}, err
	}
	defer closeStores()

	tgBot, err := a.newBot(nil)
	if err != nil {
		return service.Result{}, err
	}

	start := time.Now()
	svc := a.newService(st, nil, a.newFetcher(), alerting.NewTelegramNotifier(tgBot, a.Logger))
	res, err := svc.RunCheck(ctx)
	if err != nil {
		return res, err
	}
	a.Logger.Info().Str("outcome", string(res.Outcome)).Dur("took", time.Since(start)).Msg("check finished")
	return res, nil
}
