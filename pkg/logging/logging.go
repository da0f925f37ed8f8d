// Package logging owns the single process-wide log backend. Per the
// concurrency model, the log backend is the one piece of global mutable
// state that is not confined to a pipeline object: it is a singleton,
// swappable at runtime behind a mutex, with a lock-free read path for the
// common case of just emitting a line.
package logging

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	handlerMu sync.Mutex
	current   atomic.Pointer[zerolog.Logger]
)

func init() {
	l := zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.StampMicro,
	}).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	current.Store(&l)
}

// L returns the current logger. Safe to call concurrently with SetLevel
// and SetHandler.
func L() *zerolog.Logger {
	return current.Load()
}

// SetLevel changes the minimum level of the process-wide logger.
func SetLevel(level zerolog.Level) {
	handlerMu.Lock()
	defer handlerMu.Unlock()

	l := current.Load().Level(level)
	current.Store(&l)
}

// SetHandler replaces the underlying zerolog.Logger wholesale, e.g. to
// redirect output to a file or switch to JSON for production deployments.
func SetHandler(l zerolog.Logger) {
	handlerMu.Lock()
	defer handlerMu.Unlock()

	current.Store(&l)
}

// Component returns a child logger tagged with a "component" field, the
// way each pipeline stage should identify itself in log lines.
func Component(name string) zerolog.Logger {
	return L().With().Str("component", name).Logger()
}
