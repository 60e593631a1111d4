package observability

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line as "service".
const ServiceName = "arxivite-search"

// LoggingConfig selects level, encoding and destination for the root logger.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error, fatal, panic. Unknown
	// values fall back to info.
	Level string
	// Format is json, or console/pretty for human-readable output.
	Format string
	// Output is stdout or stderr.
	Output     string
	AddSource  bool
	TimeFormat string
}

// NewLogger builds the root logger writing to cfg.Output.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	var w io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		w = os.Stderr
	}
	return NewLoggerWithWriter(cfg, w)
}

// NewLoggerWithWriter builds the root logger writing to w.
func NewLoggerWithWriter(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	if f := strings.ToLower(cfg.Format); f == "console" || f == "pretty" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	}

	lc := zerolog.New(w).With().Timestamp().Str("service", ServiceName)
	if cfg.AddSource {
		lc = lc.Caller()
	}
	return lc.Logger().Level(parseLevel(cfg.Level))
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel || l == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return l
}

// WithSearchContext tags a logger with the consumer query and the
// resolution path that served it.
func WithSearchContext(logger zerolog.Logger, query, path string) zerolog.Logger {
	return logger.With().Str("query", query).Str("path", path).Logger()
}

// LoggerFromContext adds the request and session ids carried by ctx.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := SessionIDFromContext(ctx); id != "" {
		lc = lc.Str("session_id", id)
	}
	return lc.Logger()
}
