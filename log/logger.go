package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the logging interface used across the service.
// It is a thin wrapper around zap so that use cases do not depend
// on a concrete logging implementation.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	// Named adds a sub-scope to the logger's name.
	Named(name string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}

type loggerImpl struct {
	zap *zap.Logger
}

var _ Logger = &loggerImpl{}

// NewLogger creates a new logger.
// If isProduction is true, the logger writes JSON to the given file (stderr
// when fileName is empty). Otherwise, it writes human-readable output to
// stderr. logLevel is one of zap's level strings; invalid values default
// to info.
func NewLogger(isProduction bool, fileName, logLevel string) (Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if isProduction {
		config = zap.NewProductionConfig()
		if fileName != "" {
			config.OutputPaths = []string{fileName}
			config.ErrorOutputPaths = []string{fileName}
		}
	} else {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(level)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &loggerImpl{zap: logger}, nil
}

// NewNopLogger returns a logger that discards all output. Used in tests.
func NewNopLogger() Logger {
	return &loggerImpl{zap: zap.NewNop()}
}

func (l *loggerImpl) Debug(msg string, fields ...zap.Field) {
	l.zap.Debug(msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...zap.Field) {
	l.zap.Info(msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...zap.Field) {
	l.zap.Warn(msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...zap.Field) {
	l.zap.Error(msg, fields...)
}

func (l *loggerImpl) Named(name string) Logger {
	return &loggerImpl{zap: l.zap.Named(name)}
}

func (l *loggerImpl) Sync() error {
	return l.zap.Sync()
}
