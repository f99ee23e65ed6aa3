// Package logging builds the structured loggers used by the services and the
// CLI.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log encoding.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

type Option func(*config) error

type config struct {
	writers          []io.Writer
	closers          []io.Closer
	useDefaultWriter bool
	level            zapcore.Level
	format           Format
}

func defaultConfig() *config {
	return &config{
		writers:          []io.Writer{os.Stderr},
		useDefaultWriter: true,
		level:            zapcore.InfoLevel,
		format:           FormatJSON,
	}
}

// WithWriter adds a destination.
func WithWriter(w io.Writer) Option {
	return func(cfg *config) error {
		if w == nil {
			return errors.New("writer cannot be nil")
		}
		cfg.writers = append(cfg.writers, w)
		return nil
	}
}

// WithFile appends log lines to path.
func WithFile(path string) Option {
	return func(cfg *config) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("file path cannot be empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		cfg.writers = append(cfg.writers, f)
		cfg.closers = append(cfg.closers, f)
		return nil
	}
}

// WithoutStderr drops the default stderr destination.
func WithoutStderr() Option {
	return func(cfg *config) error {
		cfg.useDefaultWriter = false
		filtered := cfg.writers[:0]
		for _, w := range cfg.writers {
			if w == os.Stderr {
				continue
			}
			filtered = append(filtered, w)
		}
		cfg.writers = filtered
		return nil
	}
}

// WithLevel sets the minimum level by name: debug, info, warn or error.
func WithLevel(level string) Option {
	return func(cfg *config) error {
		lvl, err := ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.level = lvl
		return nil
	}
}

// WithFormat selects json or console output.
func WithFormat(format string) Option {
	return func(cfg *config) error {
		switch f := Format(strings.ToLower(strings.TrimSpace(format))); f {
		case "", FormatJSON:
			cfg.format = FormatJSON
		case FormatConsole:
			cfg.format = FormatConsole
		default:
			return fmt.Errorf("unknown log format %q", format)
		}
		return nil
	}
}

// ParseLevel reads a level name. An empty name means info.
func ParseLevel(level string) (zapcore.Level, error) {
	if strings.TrimSpace(level) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return lvl, fmt.Errorf("unknown log level %q", level)
	}
	return lvl, nil
}

// Logger is a zap logger that owns the files it writes to.
type Logger struct {
	*zap.Logger
	closers []io.Closer
}

// New builds a logger tagged with component.
func New(component string, opts ...Option) (*Logger, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			for _, closer := range cfg.closers {
				_ = closer.Close()
			}
			return nil, err
		}
	}
	if !cfg.useDefaultWriter && len(cfg.writers) == 0 {
		return nil, errors.New("no writers configured for logger")
	}

	core := zapcore.NewCore(newEncoder(cfg.format), zapcore.AddSync(io.MultiWriter(cfg.writers...)), zap.NewAtomicLevelAt(cfg.level))
	zl := zap.New(core)
	if component != "" {
		zl = zl.With(zap.String("component", component))
	}
	return &Logger{Logger: zl, closers: cfg.closers}, nil
}

// MustNew is New that panics on error.
func MustNew(component string, opts ...Option) *Logger {
	logger, err := New(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Close flushes buffered entries and closes files opened by WithFile.
func (l *Logger) Close() error {
	if l == nil || l.Logger == nil {
		return nil
	}
	_ = l.Sync()
	var firstErr error
	for _, closer := range l.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.closers = nil
	return firstErr
}

// Key logs cipher key material by length only.
func Key(name, key string) zap.Field {
	return zap.String(name, fmt.Sprintf("[redacted:%d]", len([]rune(key))))
}

func newEncoder(format Format) zapcore.Encoder {
	if format == FormatConsole {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(enc)
	}
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(enc)
}
