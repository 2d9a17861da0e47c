// Package logger provides the zerolog setup shared by the golem CLI:
// console plus rotating file output, credential redaction, and runtime
// level changes driven by config reloads.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls logger construction.
type Options struct {
	Level     string // trace, debug, info, warn, error
	File      string // log file path, empty disables file output
	Console   bool
	Pretty    bool // human-readable console format
	Redaction bool
	MaxSizeMB int // file size before rotation, 0 uses 100
	MaxAgeDay int // rotated files older than this are removed, 0 uses 7
}

// Logger wraps a zerolog.Logger whose level can be changed at runtime.
type Logger struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	file   io.Closer
}

// New builds a logger from the given options. Unknown level strings
// fall back to info.
func New(opts Options) (*Logger, error) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writers []io.Writer
	if opts.Console {
		var cw io.Writer = os.Stdout
		if opts.Pretty {
			cw = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		}
		writers = append(writers, cw)
	}

	var file io.Closer
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 100
		}
		maxAge := opts.MaxAgeDay
		if maxAge <= 0 {
			maxAge = 7
		}
		rw, err := NewRotatingWriter(opts.File, maxSize, maxAge)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, rw)
		file = rw
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = os.Stdout
	case 1:
		writer = writers[0]
	default:
		writer = io.MultiWriter(writers...)
	}

	if opts.Redaction {
		writer = NewRedactor().Wrap(writer)
	}

	zl := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	log.Logger = zl

	return &Logger{logger: zl, file: file}, nil
}

// SetLevel changes the log level of this logger and the global one.
// Unknown level strings are ignored.
func (l *Logger) SetLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = l.logger.Level(parsed)
	log.Logger = l.logger
}

// Zerolog returns the wrapped logger for passing into components.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}

// Debug starts a debug-level event.
func (l *Logger) Debug() *zerolog.Event { zl := l.Zerolog(); return zl.Debug() }

// Info starts an info-level event.
func (l *Logger) Info() *zerolog.Event { zl := l.Zerolog(); return zl.Info() }

// Warn starts a warn-level event.
func (l *Logger) Warn() *zerolog.Event { zl := l.Zerolog(); return zl.Warn() }

// Error starts an error-level event.
func (l *Logger) Error() *zerolog.Event { zl := l.Zerolog(); return zl.Error() }

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
