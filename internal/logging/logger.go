package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel определяет уровни логирования
type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// traceLevel уровень zap ниже Debug
const traceLevel = zapcore.DebugLevel - 1

// String возвращает строковое представление уровня логирования
func (l LogLevel) String() string {
	switch l {
	case TRACE:
		return "TRACE"
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zap() zapcore.Level {
	switch l {
	case TRACE:
		return traceLevel
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel разбирает имя уровня, неизвестное имя даёт INFO
func ParseLevel(s string) LogLevel {
	for l := TRACE; l <= ERROR; l++ {
		if l.String() == s {
			return l
		}
	}
	return INFO
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == traceLevel {
		enc.AppendString("TRACE")
		return
	}
	zapcore.CapitalLevelEncoder(l, enc)
}

// Logger логгер компонента: консоль с INFO и выше, файл с DEBUG и выше
type Logger struct {
	component    string
	zl           *zap.Logger
	sugar        *zap.SugaredLogger
	consoleLevel zap.AtomicLevel
	fileLevel    zap.AtomicLevel
	file         *os.File
	closeOnce    sync.Once
}

// NewLogger создаёт логгер компонента с файлом logs/<component>_<время>.log
func NewLogger(component string) (*Logger, error) {
	if err := os.MkdirAll("logs", 0755); err != nil {
		return nil, fmt.Errorf("ошибка создания директории logs: %w", err)
	}
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join("logs", fmt.Sprintf("%s_%s.log", component, timestamp))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания файла логов: %w", err)
	}
	l := newLogger(component, zapcore.Lock(os.Stdout), zapcore.AddSync(file))
	l.file = file
	return l, nil
}

// newLogger собирает логгер поверх произвольных приёмников
func newLogger(component string, console, file zapcore.WriteSyncer) *Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = encodeLevel

	consoleCfg := encCfg
	consoleCfg.EncodeLevel = func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + levelName(l) + "]")
	}

	l := &Logger{
		component:    component,
		consoleLevel: zap.NewAtomicLevelAt(INFO.zap()),
		fileLevel:    zap.NewAtomicLevelAt(DEBUG.zap()),
	}
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), console, l.consoleLevel)}
	if file != nil {
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), file, l.fileLevel))
	}
	l.zl = zap.New(zapcore.NewTee(cores...)).With(zap.String("component", component))
	l.sugar = l.zl.Sugar()
	return l
}

// wrap оборачивает готовый zap-логгер (используется для Nop и тестов)
func wrap(component string, zl *zap.Logger) *Logger {
	return &Logger{
		component:    component,
		zl:           zl,
		sugar:        zl.Sugar(),
		consoleLevel: zap.NewAtomicLevelAt(INFO.zap()),
		fileLevel:    zap.NewAtomicLevelAt(DEBUG.zap()),
	}
}

func levelName(l zapcore.Level) string {
	if l == traceLevel {
		return "TRACE"
	}
	return l.CapitalString()
}

// Component имя компонента
func (l *Logger) Component() string { return l.component }

// Zap возвращает структурный логгер для вызовов с полями
func (l *Logger) Zap() *zap.Logger { return l.zl }

// SetLevels меняет пороги консоли и файла
func (l *Logger) SetLevels(console, file LogLevel) {
	l.consoleLevel.SetLevel(console.zap())
	l.fileLevel.SetLevel(file.zap())
}

func (l *Logger) logf(level zapcore.Level, format string, args ...interface{}) {
	if ce := l.zl.Check(level, fmt.Sprintf(format, args...)); ce != nil {
		ce.Write()
	}
}

func (l *Logger) Trace(format string, args ...interface{}) { l.logf(traceLevel, format, args...) }
func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Close сбрасывает буферы и закрывает файл логов
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		_ = l.zl.Sync()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}
