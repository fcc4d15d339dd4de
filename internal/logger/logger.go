package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op until Init is called so that
// library code and tests can log unconditionally.
var Log = zap.NewNop()

// Init installs a development logger at info level.
func Init() {
	InitWithConfig(false)
}

// InitWithConfig installs a console logger, at debug level when debug is set.
func InitWithConfig(debug bool) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		// Fall back to the example logger rather than leaving Log unusable
		l = zap.NewExample()
		l.Warn("Falling back to example logger", zap.Error(err))
	}
	Log = l
}

// Sync flushes buffered entries. Safe to call on the no-op logger.
func Sync() {
	_ = Log.Sync()
}
