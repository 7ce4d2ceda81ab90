// Package logging builds the zerolog logger shared by the bot, the price
// checker and the CLI commands.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config is the `logging` section of the bot configuration.
type Config struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"` // json or console
	TimeFormat  string `mapstructure:"time_format"`
	Caller      bool   `mapstructure:"caller"`
	PrettyPrint bool   `mapstructure:"pretty"`
}

// NewLogger logs to stderr so command output such as `show` tables stays clean on stdout.
func NewLogger(cfg Config) zerolog.Logger {
	return NewLoggerTo(os.Stderr, cfg)
}

// NewLoggerTo is NewLogger with an explicit sink. Unknown levels fall back to info.
func NewLoggerTo(out io.Writer, cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.TimeFormat != "" {
		zerolog.TimeFieldFormat = cfg.TimeFormat
	}

	ctx := zerolog.New(newWriter(out, cfg)).Level(parseLevel(cfg.Level)).With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// Component tags logger with the emitting part of the bot (engine, scheduler, bot_commands, ...).
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func parseLevel(raw string) zerolog.Level {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func newWriter(out io.Writer, cfg Config) io.Writer {
	if !cfg.PrettyPrint && !strings.EqualFold(cfg.Format, "console") {
		return out
	}
	return zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
}
