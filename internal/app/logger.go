package app

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the process logger: JSON when LOG_FORMAT=json, text
// otherwise. Debug records are kept outside production.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelInfo}
	if cfg != nil && !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With(slog.String("service", "backoffice"))
}
