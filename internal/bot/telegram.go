package bot

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v3"

	"pricebot/internal/logging"
)

const handlerTimeout = 20 * time.Second

// Commands registered with Telegram's command menu.
var menu = []tele.Command{
	{Text: "start", Description: "Start the bot"},
	{Text: "price", Description: "Current price"},
	{Text: "settings", Description: "Show settings (admin)"},
	{Text: "threshold", Description: "Set alert threshold (admin)"},
	{Text: "interval", Description: "Set check interval (admin)"},
	{Text: "addgroup", Description: "Add chat to alerts (admin)"},
	{Text: "removegroup", Description: "Remove chat from alerts (admin)"},
	{Text: "groups", Description: "List alert chats (admin)"},
	{Text: "addadmin", Description: "Grant admin (admin)"},
	{Text: "removeadmin", Description: "Revoke admin (admin)"},
	{Text: "admins", Description: "List admins (admin)"},
	{Text: "help", Description: "Show help"},
}

// Register binds the command handlers to b. ctx bounds every handler.
func Register(ctx context.Context, b *tele.Bot, cmds *Commands, logger zerolog.Logger) {
	logger = logging.Component(logger, "bot_telegram")

	reply := func(fn func(ctx context.Context, c tele.Context) string) tele.HandlerFunc {
		return func(c tele.Context) error {
			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()
			return c.Send(fn(hctx, c))
		}
	}

	b.Handle("/start", reply(func(context.Context, tele.Context) string {
		return cmds.Start(time.Now().UnixNano())
	}))
	b.Handle("/help", reply(func(context.Context, tele.Context) string { return cmds.Help() }))
	b.Handle("/price", reply(func(ctx context.Context, _ tele.Context) string { return cmds.Price(ctx) }))
	b.Handle("/settings", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.Settings(ctx, senderID(c))
	}))
	b.Handle("/threshold", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.SetThreshold(ctx, senderID(c), c.Args())
	}))
	b.Handle("/interval", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.SetInterval(ctx, senderID(c), c.Args())
	}))
	b.Handle("/addgroup", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.AddGroup(ctx, senderID(c), chatOf(c), c.Args())
	}))
	b.Handle("/removegroup", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.RemoveGroup(ctx, senderID(c), chatOf(c), c.Args())
	}))
	b.Handle("/groups", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.Groups(ctx, senderID(c))
	}))
	b.Handle("/addadmin", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.AddAdmin(ctx, senderID(c), c.Args())
	}))
	b.Handle("/removeadmin", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.RemoveAdmin(ctx, senderID(c), c.Args())
	}))
	b.Handle("/admins", reply(func(ctx context.Context, c tele.Context) string {
		return cmds.Admins(ctx, senderID(c))
	}))
	b.Handle(tele.OnText, func(c tele.Context) error {
		if c.Chat() == nil || c.Chat().Type != tele.ChatPrivate {
			return nil
		}
		return c.Send(cmds.PrivateReply(time.Now().UnixNano()))
	})

	if err := b.SetCommands(menu); err != nil {
		logger.Warn().Err(err).Msg("failed to publish command menu")
	}
}

func senderID(c tele.Context) int64 {
	if c.Sender() == nil {
		return 0
	}
	return c.Sender().ID
}

func chatOf(c tele.Context) Chat {
	chat := c.Chat()
	if chat == nil {
		return Chat{Private: true}
	}
	title := chat.Title
	if title == "" {
		title = chat.Username
	}
	return Chat{ID: chat.ID, Title: title, Private: chat.Type == tele.ChatPrivate}
}
