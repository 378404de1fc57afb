// Package logger — структурированный логгер приложения поверх zap.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Стандартные имена полей, чтобы записи разных компонентов можно было фильтровать одинаково.
const (
	FieldRunID      = "run_id"
	FieldTemplateID = "template_id"
	FieldSupplierID = "supplier_id"
	FieldExternalID = "external_id"
	FieldURL        = "url"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
	FieldComponent  = "component"
)

// Logger — интерфейс логгера, используемый во всех слоях.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(err error, format string, args ...any)
	// With возвращает дочерний логгер с дополнительными полями (ключ, значение, ...).
	With(keysAndValues ...any) Logger
}

type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger создаёт логгер по переменным окружения LOG_FORMAT (json|console) и LOG_LEVEL.
func NewZapLogger() Logger {
	level := zap.NewAtomicLevelAt(parseLevel(os.Getenv("LOG_LEVEL")))

	var zl *zap.Logger
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		config := zap.NewProductionConfig()
		config.Level = level
		built, err := config.Build()
		if err != nil {
			built = zap.NewNop()
		}
		zl = built
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zl = zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.AddSync(os.Stdout),
			level,
		))
	}

	return &zapLogger{s: zl.Sugar()}
}

// NewFromZap оборачивает готовый zap-логгер (удобно в тестах с zaptest/observer).
func NewFromZap(l *zap.Logger) Logger {
	return &zapLogger{s: l.Sugar()}
}

// NewNop возвращает логгер, который ничего не пишет.
func NewNop() Logger {
	return &zapLogger{s: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debugf(format string, args ...any) {
	l.s.Debugf(format, args...)
}

func (l *zapLogger) Infof(format string, args ...any) {
	l.s.Infof(format, args...)
}

func (l *zapLogger) Warnf(format string, args ...any) {
	l.s.Warnf(format, args...)
}

func (l *zapLogger) Errorf(err error, format string, args ...any) {
	l.s.With(zap.Error(err)).Errorf(format, args...)
}

func (l *zapLogger) With(keysAndValues ...any) Logger {
	return &zapLogger{s: l.s.With(keysAndValues...)}
}

// Sync сбрасывает буферы, если реализация их держит.
func Sync(l Logger) {
	if zl, ok := l.(*zapLogger); ok {
		_ = zl.s.Sync()
	}
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
