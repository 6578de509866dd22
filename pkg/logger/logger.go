// Package logger wraps zap with a process-wide sugared logger.
package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global *Logger
)

// Logger wraps zap.SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// Init builds the global logger. env "production" selects the JSON encoder.
func Init(level, env string) error {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	z, err := cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}
	Set(&Logger{SugaredLogger: z.Sugar()})
	return nil
}

// Set replaces the global logger.
func Set(l *Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

// Get returns the global logger, falling back to a development logger.
func Get() *Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}

	z, err := zap.NewDevelopment()
	if err != nil {
		z = zap.NewNop()
	}
	l = &Logger{SugaredLogger: z.Sugar()}
	Set(l)
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// With creates a child logger with additional fields.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}

// Sync flushes buffered entries.
func Sync() {
	_ = Get().SugaredLogger.Sync()
}
