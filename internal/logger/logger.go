// Package logger provides leveled logging for notesync.
//
// Warnings and errors are always printed. When verbose mode is enabled via
// the --verbose flag, debug and info messages are printed as well, to help
// users follow the sync pipeline. Output goes to stderr unless a log file
// is configured, in which case it is rotated by lumberjack.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu       sync.RWMutex
	verbose  bool
	jsonMode bool
	output   io.Writer = os.Stderr
	log                = build(os.Stderr, false, false)
)

// Options configures the logger in one call.
type Options struct {
	// Verbose lowers the threshold to debug.
	Verbose bool

	// File sends output to a rotating log file instead of stderr.
	File string

	// MaxSizeMB is the size at which the log file is rotated.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept.
	MaxBackups int

	// JSON writes one JSON object per line instead of console text.
	JSON bool
}

// Configure applies opts and returns a closer for the log file, if any.
func Configure(opts Options) io.Closer {
	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := opts.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 3
		}
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     28,
		}
		w = lj
		closer = lj
	}

	mu.Lock()
	defer mu.Unlock()
	verbose = opts.Verbose
	jsonMode = opts.JSON
	output = w
	log = build(output, verbose, jsonMode)
	return closer
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	log = build(output, verbose, jsonMode)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetJSON switches between console text and JSON lines.
func SetJSON(v bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonMode = v
	log = build(output, verbose, jsonMode)
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	log = build(output, verbose, jsonMode)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug().Msgf(format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose && !jsonMode {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info().Msgf(format, args...)
}

// Warn prints a warning message.
func Warn(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn().Msgf(format, args...)
}

// Error prints an error message.
func Error(format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error().Msgf(format, args...)
}

func build(w io.Writer, verbose, asJSON bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if asJSON {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}
	console := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			return "[" + strings.ToUpper(fmt.Sprint(i)) + "]"
		},
	}
	return zerolog.New(console).Level(level)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
