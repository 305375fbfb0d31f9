// Package logging configures the slog logger every TrendPulse component
// shares, and tags it so log lines can be attributed back to the
// component that emitted them once they reach a shared log sink.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ServiceName is attached to every log line this process emits, so a log
// aggregator ingesting output from several TrendPulse processes (API
// servers, background workers) can filter to this one.
const ServiceName = "trendservice"

type Config struct {
	Level            string
	Structured       bool
	StructuredFormat string
	IncludePID       bool
	ExtraFields      map[string]string
}

// Configure builds the process-wide logger and installs it as slog's
// default. Every logger returned carries a "service" attribute; Component
// further scopes a logger to one of the engine's collaborators.
func Configure(cfg Config) *slog.Logger {
	level := parseLevel(cfg.Level)
	var handler slog.Handler
	out := io.Writer(os.Stderr)

	attrs := make([]slog.Attr, 0, len(cfg.ExtraFields)+2)
	attrs = append(attrs, slog.String("service", ServiceName))
	for k, v := range cfg.ExtraFields {
		attrs = append(attrs, slog.String(k, v))
	}
	if cfg.IncludePID {
		attrs = append(attrs, slog.Int("pid", os.Getpid()))
	}

	if cfg.Structured {
		if strings.ToLower(cfg.StructuredFormat) == "json" {
			handler = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
		} else {
			// key=value-ish output
			handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
		}
	} else {
		handler = slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	}

	handler = handler.WithAttrs(attrs)
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// Component returns a child logger tagged with the given component name,
// e.g. Component(logger, "cache") or Component(logger, "upstream"). Handing
// each collaborator its own tagged logger lets an operator grep a shared
// log stream down to one piece of the query pipeline.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}

func parseLevel(s string) slog.Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	switch s {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
