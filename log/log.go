// Package log provides the structured, leveled, key-value logging used by
// every component of the node, in the call style of log.Info("msg", "k", v).
package log

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	rootMu  sync.Mutex
	rootLog *zap.Logger
)

// Init configures the process-wide root logger. debug widens the level to
// Debug; otherwise Info is the floor. Safe to call more than once.
func Init(debug bool) {
	rootMu.Lock()
	defer rootMu.Unlock()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "t"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Fall back to a bare logger rather than leaving rootLog nil.
		logger = zap.NewNop()
		fmt.Fprintln(os.Stderr, "log: falling back to no-op logger:", err)
	}
	rootLog = logger
}

func root() *zap.Logger {
	rootMu.Lock()
	defer rootMu.Unlock()
	if rootLog == nil {
		rootLog = zap.NewNop()
	}
	return rootLog
}

// Logger is a single named component's view onto the root logger.
type Logger struct {
	name string
	z    *zap.Logger
}

// NewModuleLogger returns the named logger for a component, e.g.
// log.NewModuleLogger("consensus").
func NewModuleLogger(name string) *Logger {
	return &Logger{name: name, z: root().Named(name)}
}

func kvToFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.z.Debug(msg, kvToFields(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.z.Info(msg, kvToFields(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.z.Warn(msg, kvToFields(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.z.Error(msg, kvToFields(kv)...) }

// With returns a derived logger carrying the given key-values on every call.
func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{name: l.name, z: l.z.With(kvToFields(kv)...)}
}
