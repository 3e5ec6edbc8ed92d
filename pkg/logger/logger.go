// Package logger holds the process-wide zerolog logger of the portal.
//
// Call Init once from main; code that cannot receive a logger through its
// constructor may fall back to Get.
//
//	trace < debug < info (default) < warn < error
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger behaviour at initialisation time.
type Options struct {
	// Level is the minimum level: trace, debug, info, warn or error.
	// Empty or unknown values mean info.
	Level string
	// Pretty switches to coloured console output for local development.
	Pretty bool
	// Output defaults to os.Stdout.
	Output io.Writer
	// Service and Version, when set, are stamped on every event.
	Service string
	Version string
}

var (
	instance    zerolog.Logger
	once        sync.Once
	initialized bool
)

// Init builds the singleton on first call and returns it. Later calls return
// the existing logger and ignore opts.
func Init(opts Options) zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		zerolog.DurationFieldUnit = time.Millisecond

		lvl := parseLevel(opts.Level)
		zerolog.SetGlobalLevel(lvl)

		instance = New(opts)
		initialized = true
	})
	return instance
}

// New returns a logger configured by opts without touching the singleton or
// zerolog's global level.
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).
		Level(parseLevel(opts.Level)).
		With().
		Timestamp().
		Caller()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	if opts.Version != "" {
		ctx = ctx.Str("version", opts.Version)
	}
	return ctx.Logger()
}

// Get returns the singleton logger. Panics if Init has not been called yet.
func Get() zerolog.Logger {
	if !initialized {
		panic("logger: Get() called before Init()")
	}
	return instance
}

// Reset clears the singleton so the next Init rebuilds it. Tests only.
func Reset() {
	once = sync.Once{}
	instance = zerolog.Logger{}
	initialized = false
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
