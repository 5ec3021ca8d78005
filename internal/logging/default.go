package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// defaultLogger логгер пакетных функций. До InitDefaultLogger ничего не пишет.
var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(wrap("default", zap.NewNop()))
}

// InitDefaultLogger инициализирует логгер по умолчанию для компонента
func InitDefaultLogger(component string) error {
	l, err := NewLogger(component)
	if err != nil {
		return err
	}
	if old := defaultLogger.Swap(l); old != nil {
		_ = old.Close()
	}
	return nil
}

// SetDefault подменяет логгер по умолчанию, например на zaptest в тестах
func SetDefault(zl *zap.Logger) {
	defaultLogger.Store(wrap("default", zl))
}

// CloseDefaultLogger закрывает логгер по умолчанию и возвращает Nop
func CloseDefaultLogger() {
	if old := defaultLogger.Swap(wrap("default", zap.NewNop())); old != nil {
		_ = old.Close()
	}
}

// Default возвращает текущий логгер по умолчанию
func Default() *Logger { return defaultLogger.Load() }

// With возвращает структурный логгер с полями
func With(fields ...zap.Field) *zap.Logger {
	return defaultLogger.Load().Zap().With(fields...)
}

func Trace(format string, args ...interface{}) { defaultLogger.Load().Trace(format, args...) }
func Debug(format string, args ...interface{}) { defaultLogger.Load().Debug(format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.Load().Info(format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.Load().Warn(format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.Load().Error(format, args...) }
