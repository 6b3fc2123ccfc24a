// Package logging provides categorized logging for the cognitive core.
// Each subsystem logs under its own category so a single noisy concern
// (usually the bus) can be silenced without losing the rest. Backed by zap;
// the level can be changed at runtime, which the config watcher uses.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names one logging subsystem.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup, wiring, shutdown
	CategoryBus     Category = "bus"     // signal queue, delivery, expiry
	CategoryLoop    Category = "loop"    // frame scheduling, snapshots
	CategoryState   Category = "state"   // self-state updates, drives
	CategoryEngine  Category = "engine"  // engine ticks and errors
	CategoryBridge  Category = "bridge"  // thought/body bridges
	CategoryPersist Category = "persist" // sqlite store
)

var (
	mu      sync.RWMutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	root    *zap.Logger
	loggers = make(map[Category]*zap.SugaredLogger)
)

// Initialize installs the backing zap logger. Called once at startup;
// calling it again replaces the backend (tests do this).
func Initialize(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*zap.SugaredLogger)
}

// NewDevelopmentBackend builds a console zap logger honoring the shared
// atomic level.
func NewDevelopmentBackend() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	return cfg.Build()
}

// SetLevel changes the shared level at runtime. Unknown strings are ignored.
func SetLevel(s string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return
	}
	level.SetLevel(l)
}

// Get returns the sugared logger for a category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if lg, ok := loggers[cat]; ok {
		mu.RUnlock()
		return lg
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if lg, ok := loggers[cat]; ok {
		return lg
	}
	base := root
	if base == nil {
		base = zap.NewNop()
	}
	lg := base.Named(string(cat)).Sugar()
	loggers[cat] = lg
	return lg
}

// Printf-style helpers for the hot categories.

func Bus(format string, args ...interface{}) { Get(CategoryBus).Debugf(format, args...) }
func Loop(format string, args ...interface{}) { Get(CategoryLoop).Debugf(format, args...) }
func State(format string, args ...interface{}) { Get(CategoryState).Debugf(format, args...) }
func Engine(format string, args ...interface{}) { Get(CategoryEngine).Debugf(format, args...) }
func Bridge(format string, args ...interface{}) { Get(CategoryBridge).Infof(format, args...) }
func Persist(format string, args ...interface{}) { Get(CategoryPersist).Debugf(format, args...) }
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Infof(format, args...) }

// =============================================================================
// OPERATION TIMERS
// =============================================================================

// Timer measures one operation and logs its duration on Stop.
type Timer struct {
	cat   Category
	op    string
	start time.Time
}

// StartTimer begins timing an operation.
func StartTimer(cat Category, op string) *Timer {
	return &Timer{cat: cat, op: op, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() {
	Get(t.cat).Debugf("%s took %s", t.op, time.Since(t.start))
}
