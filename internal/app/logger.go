package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON goes to log collectors in
// production; everything else gets the readable text handler. Every
// line carries the service name and environment so mixed streams from
// the server and the worker stay attributable.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	var handler slog.Handler
	if cfg != nil && cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	if cfg != nil {
		logger = logger.With(slog.String("service", "meridian"), slog.String("env", cfg.AppEnv))
	}
	return logger
}
