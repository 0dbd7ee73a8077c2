package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until New is called,
// so packages can log from tests without any setup.
var Log = zap.NewNop()

// New builds the application logger for the given environment and level and
// installs it as Log.
func New(environment, level string) *zap.Logger {
	var cfg zap.Config
	if environment == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	l, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// Sync flushes buffered log entries. Errors are ignored because stdout/stderr
// sync fails on some platforms.
func Sync() {
	_ = Log.Sync()
}
