// Package bot implements the chat command surface: price queries for everyone
// and admin commands that tune the checker and manage alert destinations.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"

	"pricebot/internal/alerting"
	"pricebot/internal/pricing"
	"pricebot/internal/storage"
)

// ErrUnauthorized rejects an admin command from a non-admin.
var ErrUnauthorized = errors.New("admin authority required")

// PriceQuerier answers on-demand price queries.
type PriceQuerier interface {
	CurrentPrices(ctx context.Context) (pricing.Snapshot, error)
	Currencies() []pricing.Currency
}

// Chat describes where a command was issued.
type Chat struct {
	ID      int64
	Title   string
	Private bool
}

// Options tune command replies.
type Options struct {
	AssetName   string
	PricePlaces int32
	ChatLink    string
}

// Commands holds the command logic independent of the chat transport. Every
// method returns the reply text.
type Commands struct {
	prices   PriceQuerier
	settings *storage.SettingsStore
	registry *storage.RegistryStore
	opts     Options
	logger   zerolog.Logger
}

// NewCommands wires the command logic.
func NewCommands(opts Options, prices PriceQuerier, settings *storage.SettingsStore, registry *storage.RegistryStore, logger zerolog.Logger) *Commands {
	return &Commands{
		prices:   prices,
		settings: settings,
		registry: registry,
		opts:     opts,
		logger:   logger.With().Str("component", "bot_commands").Logger(),
	}
}

// Start greets the user.
func (c *Commands) Start(seed int64) string {
	return pickTemplate(seed, greetingTemplates) + "\n\n" + c.Help()
}

// Help lists the commands.
func (c *Commands) Help() string {
	return strings.Join([]string{
		"/price - current price",
		"/settings - threshold, interval and destinations (admin)",
		"/threshold <pct> - set alert threshold (admin)",
		"/interval <seconds|90s|5m> - set check interval (admin)",
		"/addgroup [id name] - add this or another chat to alerts (admin)",
		"/removegroup [id] - remove this or another chat from alerts (admin)",
		"/groups - list alert chats (admin)",
		"/addadmin <user id> - grant admin (admin)",
		"/removeadmin <user id> - revoke admin (admin)",
		"/admins - list admins (admin)",
	}, "\n")
}

// PrivateReply answers free text sent in a private chat.
func (c *Commands) PrivateReply(seed int64) string {
	reply := pickTemplate(seed, privateTemplates)
	if c.opts.ChatLink != "" {
		reply += "\n👉 " + c.opts.ChatLink
	}
	return reply
}

// Price fetches current prices. The alert baseline is not affected.
func (c *Commands) Price(ctx context.Context) string {
	snapshot, err := c.prices.CurrentPrices(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("price query failed")
		return "⚠️ Price data is unavailable right now, try again later."
	}
	return alerting.RenderPrices(c.opts.AssetName, c.prices.Currencies(), snapshot, c.opts.PricePlaces)
}

// Settings shows the current runtime settings.
func (c *Commands) Settings(ctx context.Context, userID int64) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}
	settings, err := c.settings.Load(ctx)
	if err != nil {
		return c.storageFailure(err)
	}
	dests, err := c.registry.Destinations(ctx)
	if err != nil {
		return c.storageFailure(err)
	}
	return fmt.Sprintf("⚙️ Settings\nThreshold: %s%%\nInterval: %s\nAlert chats: %d",
		settings.Threshold().String(), settings.Interval().String(), len(dests))
}

// SetThreshold handles /threshold <pct>.
func (c *Commands) SetThreshold(ctx context.Context, userID int64, args []string) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}
	if len(args) != 1 {
		return "Usage: /threshold <percent>, e.g. /threshold 7.5"
	}
	raw := strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(args[0]), ",", "."), "%")
	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Sprintf("❌ %q is not a number.", args[0])
	}
	if err := c.settings.SetThreshold(ctx, pct); err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return "❌ Threshold must be greater than zero."
		}
		return c.storageFailure(err)
	}
	c.logger.Info().Int64("user_id", userID).Float64("threshold_pct", pct).Msg("threshold changed")
	return fmt.Sprintf("✅ Threshold set to %s%%. It applies from the next check.", strconv.FormatFloat(pct, 'f', -1, 64))
}

// SetInterval handles /interval <seconds|duration>.
func (c *Commands) SetInterval(ctx context.Context, userID int64, args []string) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}
	if len(args) != 1 {
		return "Usage: /interval <seconds>, e.g. /interval 60 or /interval 5m"
	}
	seconds, err := parseInterval(args[0])
	if err != nil {
		return "❌ " + err.Error()
	}
	if err := c.settings.SetInterval(ctx, seconds); err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return fmt.Sprintf("❌ Interval must be between 1 and %d seconds.", storage.MaxIntervalSeconds)
		}
		return c.storageFailure(err)
	}
	c.logger.Info().Int64("user_id", userID).Int("interval_seconds", seconds).Msg("interval changed")
	interval := time.Duration(seconds) * time.Second
	return fmt.Sprintf("✅ Interval set to %s. It applies from the next wait.", interval.String())
}

// AddGroup registers a destination: the current chat, or an explicit id and name.
func (c *Commands) AddGroup(ctx context.Context, userID int64, chat Chat, args []string) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}

	dest := storage.Destination{ID: chat.ID, Name: chat.Title}
	if len(args) > 0 {
		id, err := parseChatID(args[0])
		if err != nil {
			return "❌ " + err.Error()
		}
		dest = storage.Destination{ID: id, Name: strings.Join(args[1:], " ")}
	} else if chat.Private {
		return "Usage: run /addgroup inside the group, or /addgroup <chat id> <name>"
	}
	if dest.Name == "" {
		dest.Name = strconv.FormatInt(dest.ID, 10)
	}

	added, err := c.registry.AddDestination(ctx, dest)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidArgument) {
			return "❌ Chat id must be non-zero."
		}
		return c.storageFailure(err)
	}
	if !added {
		return fmt.Sprintf("ℹ️ Chat %d is already receiving alerts.", dest.ID)
	}
	c.logger.Info().Int64("user_id", userID).Int64("chat_id", dest.ID).Msg("destination added")
	return fmt.Sprintf("✅ %s (%d) will receive alerts.", dest.Name, dest.ID)
}

// RemoveGroup unregisters the current chat or an explicit id.
func (c *Commands) RemoveGroup(ctx context.Context, userID int64, chat Chat, args []string) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}

	id := chat.ID
	if len(args) > 0 {
		parsed, err := parseChatID(args[0])
		if err != nil {
			return "❌ " + err.Error()
		}
		id = parsed
	} else if chat.Private {
		return "Usage: run /removegroup inside the group, or /removegroup <chat id>"
	}

	removed, err := c.registry.RemoveDestination(ctx, id)
	if err != nil {
		return c.storageFailure(err)
	}
	if !removed {
		return fmt.Sprintf("❌ Chat %d is not in the alert list.", id)
	}
	c.logger.Info().Int64("user_id", userID).Int64("chat_id", id).Msg("destination removed")
	return fmt.Sprintf("✅ Chat %d removed from alerts.", id)
}

// Groups lists destinations.
func (c *Commands) Groups(ctx context.Context, userID int64) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}
	dests, err := c.registry.Destinations(ctx)
	if err != nil {
		return c.storageFailure(err)
	}
	if len(dests) == 0 {
		return "No chats registered; alerts go to the default chat."
	}
	lines := lo.Map(dests, func(d storage.Destination, i int) string {
		return fmt.Sprintf("%d. %s (%d)", i+1, d.Name, d.ID)
	})
	return "📋 Alert chats\n" + strings.Join(lines, "\n")
}

// AddAdmin grants admin authority.
func (c *Commands) AddAdmin(ctx context.Context, userID int64, args []string) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}
	target, reply, ok := parseUserArg(args, "/addadmin")
	if !ok {
		return reply
	}
	added, err := c.registry.AddAdmin(ctx, target)
	if err != nil {
		return c.storageFailure(err)
	}
	if !added {
		return fmt.Sprintf("ℹ️ %d is already an admin.", target)
	}
	c.logger.Info().Int64("user_id", userID).Int64("admin_id", target).Msg("admin added")
	return fmt.Sprintf("✅ %d is now an admin.", target)
}

// RemoveAdmin revokes admin authority.
func (c *Commands) RemoveAdmin(ctx context.Context, userID int64, args []string) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}
	target, reply, ok := parseUserArg(args, "/removeadmin")
	if !ok {
		return reply
	}
	removed, err := c.registry.RemoveAdmin(ctx, target)
	if err != nil {
		return c.storageFailure(err)
	}
	if !removed {
		return fmt.Sprintf("❌ %d is not an admin.", target)
	}
	c.logger.Info().Int64("user_id", userID).Int64("admin_id", target).Msg("admin removed")
	return fmt.Sprintf("✅ %d is no longer an admin.", target)
}

// Admins lists admin ids.
func (c *Commands) Admins(ctx context.Context, userID int64) string {
	if reply, ok := c.authorize(ctx, userID); !ok {
		return reply
	}
	admins, err := c.registry.Admins(ctx)
	if err != nil {
		return c.storageFailure(err)
	}
	ids := lo.Map(admins, func(id int64, _ int) string { return strconv.FormatInt(id, 10) })
	return "👮 Admins\n" + strings.Join(ids, "\n")
}

// authorize returns a rejection reply when userID may not run admin commands.
func (c *Commands) authorize(ctx context.Context, userID int64) (string, bool) {
	ok, err := c.registry.IsAdmin(ctx, userID)
	if err != nil {
		return c.storageFailure(err), false
	}
	if !ok {
		c.logger.Warn().Int64("user_id", userID).Err(ErrUnauthorized).Msg("admin command rejected")
		return "⛔ This command is for admins only.", false
	}
	return "", true
}

func (c *Commands) storageFailure(err error) string {
	c.logger.Error().Err(err).Msg("storage failure while handling command")
	return "⚠️ Settings storage is unavailable, nothing was changed."
}

// parseInterval reads whole seconds or a duration such as 90s or 5m. Values
// outside the storable range are passed through as 0 or MaxIntervalSeconds+1
// so SetInterval rejects them without overflowing time.Duration.
func parseInterval(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return clampSeconds(seconds), nil
	} else if errors.Is(err, strconv.ErrRange) {
		return storage.MaxIntervalSeconds + 1, nil
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number of seconds or a duration like 90s or 5m", raw)
	}
	return clampSeconds(int64(d.Round(time.Second) / time.Second)), nil
}

func clampSeconds(seconds int64) int {
	switch {
	case seconds <= 0:
		return 0
	case seconds > storage.MaxIntervalSeconds:
		return storage.MaxIntervalSeconds + 1
	}
	return int(seconds)
}

func parseChatID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%q is not a valid chat id", raw)
	}
	return id, nil
}

func parseUserArg(args []string, command string) (int64, string, bool) {
	if len(args) != 1 {
		return 0, fmt.Sprintf("Usage: %s <user id>", command), false
	}
	id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Sprintf("❌ %q is not a valid user id.", args[0]), false
	}
	return id, "", true
}
