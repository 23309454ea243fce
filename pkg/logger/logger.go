package logger

import (
	"io"
	"log/slog"
	"os"
)

const BritishTimeFormat = "02.01.2006 15:04:05"

// Config describes how a binary logs.
//
// LogLevel is a level name ("debug", "info", "warn", "error"); LogHumanFriendly
// selects text output instead of JSON. Output defaults to stdout, the CLI points
// it at stderr so stdout carries only the lookup result. Service and Version,
// when set, are attached to every record.
type Config struct {
	LogLevel         string
	LogHumanFriendly bool
	Output           io.Writer
	Service          string
	Version          string
}

// ParseLevel converts a level name to slog.Level, defaulting to Info
func ParseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// NewFromConfig creates a slog.Logger based on Config
func NewFromConfig(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(cfg.LogLevel),
		ReplaceAttr: britishTime,
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler = slog.NewJSONHandler(out, opts)
	if cfg.LogHumanFriendly {
		handler = slog.NewTextHandler(out, opts)
	}

	log := slog.New(handler)
	if cfg.Service != "" {
		log = log.With(slog.String("service", cfg.Service))
	}
	if cfg.Version != "" {
		log = log.With(slog.String("version", cfg.Version))
	}
	return log
}

func britishTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.String(slog.TimeKey, a.Value.Time().Format(BritishTimeFormat))
	}
	return a
}
