// Package gamelog wraps go.uber.org/zap into the structured logger used
// throughout the processor, replacing the teacher's InfoLog/ErrorLog
// stdlib globals with leveled, field-based logging.
package gamelog

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger = zap.NewNop()
)

// Field re-exports zap.Field so callers only need to import gamelog.
type Field = zap.Field

// Convenience field constructors, mirroring the ones call sites use
// most: block height, entity ids, move rejection reasons.
func Height(h uint64) Field       { return zap.Uint64("height", h) }
func ID(key string, id int64) Field { return zap.Int64(key, id) }
func Reason(r string) Field       { return zap.String("reason", r) }
func Err(err error) Field         { return zap.Error(err) }
func String(k, v string) Field    { return zap.String(k, v) }
func Int(k string, v int) Field   { return zap.Int(k, v) }

// Init installs the process-wide logger. dev selects a human-readable
// development encoder; false selects the JSON production encoder.
func Init(dev bool) error {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	l, err := cfg.Build()
	if err != nil {
		return err
	}
	mu.Lock()
	logger = l
	mu.Unlock()
	return nil
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, fields ...Field) { current().Debug(msg, fields...) }
func Info(msg string, fields ...Field)  { current().Info(msg, fields...) }
func Warn(msg string, fields ...Field)  { current().Warn(msg, fields...) }
func Error(msg string, fields ...Field) { current().Error(msg, fields...) }

// Sync flushes any buffered log entries; call before process exit.
func Sync() error { return current().Sync() }
