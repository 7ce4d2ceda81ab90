package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pricebot/internal/fetcher"
	"pricebot/internal/pricing"
	"pricebot/internal/storage"
)

var currencies = []pricing.Currency{"usd", "rub", "uah"}

type stubSource struct {
	snapshot pricing.Snapshot
	err      error
	calls    int
}

func (s *stubSource) Fetch(context.Context) (pricing.Snapshot, error) {
	s.calls++
	return s.snapshot, s.err
}

func (s *stubSource) Currencies() []pricing.Currency { return currencies }

type delivery struct {
	chatID int64
	text   string
	image  string
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []delivery
	failFor map[int64]bool
}

func (n *recordingNotifier) SendText(_ context.Context, chatID int64, text string) error {
	return n.record(chatID, text, "")
}

func (n *recordingNotifier) SendPhoto(_ context.Context, chatID int64, path, caption string) error {
	return n.record(chatID, caption, path)
}

func (n *recordingNotifier) record(chatID int64, text, image string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[chatID] {
		return fmt.Errorf("chat %d unreachable", chatID)
	}
	n.sent = append(n.sent, delivery{chatID: chatID, text: text, image: image})
	return nil
}

func (n *recordingNotifier) chats() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]int64, 0, len(n.sent))
	for _, d := range n.sent {
		out = append(out, d.chatID)
	}
	return out
}

type fixture struct {
	svc      *Service
	source   *stubSource
	notifier *recordingNotifier
	baseline *storage.BaselineStore
	settings *storage.SettingsStore
	registry *storage.RegistryStore
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	kv, err := storage.NewMemoryKV()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	logger := zerolog.Nop()
	f := &fixture{
		source:   &stubSource{},
		notifier: &recordingNotifier{failFor: map[int64]bool{}},
		baseline: storage.NewBaselineStore(kv, logger),
		settings: storage.NewSettingsStore(kv, storage.Settings{ThresholdPct: 10, CheckIntervalSeconds: 60}, logger),
		registry: storage.NewRegistryStore(kv, logger),
	}
	if opts.DefaultChatID == 0 {
		opts.DefaultChatID = -1000
	}
	if opts.PricePlaces == 0 {
		opts.PricePlaces = 2
	}
	if opts.PercentPlaces == 0 {
		opts.PercentPlaces = 2
	}
	f.svc = New(opts, nil, f.source, f.baseline, f.settings, f.registry, f.notifier, nil, logger)
	return f
}

func snap(kv ...any) pricing.Snapshot {
	prices := make(map[pricing.Currency]decimal.Decimal)
	for i := 0; i < len(kv); i += 2 {
		prices[pricing.Currency(kv[i].(string))] = decimal.RequireFromString(kv[i+1].(string))
	}
	return pricing.NewSnapshot(prices)
}

func (f *fixture) loadBaseline(t *testing.T) pricing.Snapshot {
	t.Helper()
	got, ok, err := f.baseline.Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	return got
}

func TestBootstrapCommitsWithoutAlert(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.snapshot = snap("usd", "100", "rub", "9000", "uah", "4000")

	res, err := f.svc.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeBootstrapped, res.Outcome)
	require.Empty(t, f.notifier.sent)
	require.True(t, f.loadBaseline(t).Equal(f.source.snapshot))
}

func TestBelowThresholdKeepsBaseline(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	old := snap("usd", "100")
	require.NoError(t, f.baseline.Commit(ctx, old))

	f.source.snapshot = snap("usd", "105", "rub", "1", "uah", "1")
	res, err := f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeBelowThreshold, res.Outcome)
	require.Empty(t, f.notifier.sent)
	require.True(t, f.loadBaseline(t).Equal(old), "baseline must not drift")

	// Small moves do not accumulate against a moving baseline.
	f.source.snapshot = snap("usd", "110", "rub", "1", "uah", "1")
	res, err = f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeNotified, res.Outcome)
}

func TestTriggerCommitsNewBaseline(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.baseline.Commit(ctx, snap("usd", "100")))

	f.source.snapshot = snap("usd", "120", "rub", "9000", "uah", "4000")
	res, err := f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeNotified, res.Outcome)
	require.Equal(t, pricing.Currency("usd"), res.Trigger.Currency)
	require.Equal(t, []int64{-1000}, f.notifier.chats(), "falls back to the default chat")
	require.Contains(t, f.notifier.sent[0].text, "USD: 100.00 → 120.00 (+20.00%)")
	require.Contains(t, f.notifier.sent[0].text, "RUB: — → 9000.00 (no prior value)")
	require.True(t, f.loadBaseline(t).Equal(f.source.snapshot))
}

func TestZeroBaselineDoesNotTrigger(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	old := snap("usd", "0")
	require.NoError(t, f.baseline.Commit(ctx, old))

	f.source.snapshot = snap("usd", "5", "rub", "1", "uah", "1")
	res, err := f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeBelowThreshold, res.Outcome)
	require.Empty(t, res.Changes)
	require.Empty(t, f.notifier.sent)
	require.True(t, f.loadBaseline(t).Equal(old))
}

func TestFanOutIsolatesFailures(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	for _, id := range []int64{-1, -2, -3} {
		_, err := f.registry.AddDestination(ctx, storage.Destination{ID: id, Name: fmt.Sprint(id)})
		require.NoError(t, err)
	}
	f.notifier.failFor[-2] = true
	require.NoError(t, f.baseline.Commit(ctx, snap("usd", "100")))

	f.source.snapshot = snap("usd", "50", "rub", "1", "uah", "1")
	res, err := f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeNotified, res.Outcome)
	require.Equal(t, 2, res.Delivered)
	require.Equal(t, 1, res.Failed)
	require.Equal(t, []int64{-1, -3}, f.notifier.chats())
	require.True(t, f.loadBaseline(t).Equal(f.source.snapshot))
}

func TestTieBreakIsDeterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		f := newFixture(t, Options{})
		ctx := context.Background()
		require.NoError(t, f.baseline.Commit(ctx, snap("usd", "100", "rub", "100")))

		f.source.snapshot = snap("usd", "115", "rub", "85", "uah", "1")
		res, err := f.svc.RunCheck(ctx)
		require.NoError(t, err)
		require.Equal(t, pricing.Currency("usd"), res.Trigger.Currency)
		require.Equal(t, pricing.DirectionUp, res.Trigger.Direction())
	}
}

func TestUnavailableSourceIsNoop(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	old := snap("usd", "100")
	require.NoError(t, f.baseline.Commit(ctx, old))

	f.source.err = fmt.Errorf("%w: boom", fetcher.ErrUnavailable)
	res, err := f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeUnavailable, res.Outcome)
	require.Empty(t, f.notifier.sent)
	require.True(t, f.loadBaseline(t).Equal(old))
}

func TestThresholdIsReadEachCycle(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	require.NoError(t, f.baseline.Commit(ctx, snap("usd", "100")))
	f.source.snapshot = snap("usd", "103", "rub", "1", "uah", "1")

	res, err := f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeBelowThreshold, res.Outcome)

	require.NoError(t, f.settings.SetThreshold(ctx, 2))
	res, err = f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, OutcomeNotified, res.Outcome)
}

func TestPhotoUsedWhenImagePresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "down.png"), []byte("png"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "up.png"), nil, 0o600))

	f := newFixture(t, Options{AssetsDir: dir, UpImage: "up.png", DownImage: "down.png"})
	ctx := context.Background()
	require.NoError(t, f.baseline.Commit(ctx, snap("usd", "100")))

	f.source.snapshot = snap("usd", "80", "rub", "1", "uah", "1")
	_, err := f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "down.png"), f.notifier.sent[0].image)

	// up.png is empty, so the next alert goes out as text.
	f.source.snapshot = snap("usd", "100", "rub", "1", "uah", "1")
	_, err = f.svc.RunCheck(ctx)
	require.NoError(t, err)
	require.Len(t, f.notifier.sent, 2)
	require.Empty(t, f.notifier.sent[1].image)
}

type failingBaseline struct{ *storage.BaselineStore }

func (failingBaseline) Load(context.Context) (pricing.Snapshot, bool, error) {
	return pricing.Snapshot{}, false, errors.New("disk gone")
}

func TestBaselineBackendFailureAbortsCycle(t *testing.T) {
	f := newFixture(t, Options{})
	f.svc.baseline = failingBaseline{}

	_, err := f.svc.RunCheck(context.Background())
	require.Error(t, err)
	require.Zero(t, f.source.calls)
}

func TestCurrentPricesLeavesBaseline(t *testing.T) {
	f := newFixture(t, Options{})
	f.source.snapshot = snap("usd", "1", "rub", "2", "uah", "3")

	got, err := f.svc.CurrentPrices(context.Background())
	require.NoError(t, err)
	require.True(t, got.Equal(f.source.snapshot))

	_, ok, err := f.baseline.Load(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

type stubLocker struct{ acquired bool }

func (l stubLocker) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	return func() {}, l.acquired, nil
}

func TestRunCheckSkipsWhenLockHeld(t *testing.T) {
	f := newFixture(t, Options{LockKey: 7})
	f.svc.locker = stubLocker{acquired: false}

	res, err := f.svc.RunCheck(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, res.Outcome)
	require.Zero(t, f.source.calls)
}
