package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
)

// ServiceName is attached to every log entry.
const ServiceName = "routelight"

// Logger is a slog.Logger carrying the service and version fields. Child
// loggers made with With or Component keep them.
type Logger struct {
	*slog.Logger
}

// New builds the process logger from the logging section of config.yaml.
// Output "stderr" writes to stderr, "discard" drops everything, anything
// else goes to stdout.
func New(cfg config.LoggingConfig, version string) *Logger {
	return NewWithWriter(cfg, version, writerFor(cfg.Output))
}

// NewWithWriter is New with an explicit destination. Format "text" selects
// the human-readable handler; every other value selects JSON.
func NewWithWriter(cfg config.LoggingConfig, version string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler.WithAttrs([]slog.Attr{
		slog.String("service", ServiceName),
		slog.String("version", version),
	}))}
}

// Default is the startup logger used until config.yaml has been read.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json", Output: "stdout"}, "dev")
}

// Discard returns a logger that writes nothing.
func Discard() *Logger {
	return NewWithWriter(config.LoggingConfig{Level: "error"}, "test", io.Discard)
}

func writerFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "stderr":
		return os.Stderr
	case "discard":
		return io.Discard
	default:
		return os.Stdout
	}
}

// parseLevel maps debug, info, warn(ing) and error to slog levels. Unknown
// values log at info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger with extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component returns a child logger tagged component=name. Each subsystem
// (ble, device, route, control, api, mqtt) logs through its own component.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}
