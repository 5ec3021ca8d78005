package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDefaultLoggerIsNopUntilInit(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("сообщение %d", 1)
		Trace("трассировка")
	})
}

func TestSetDefaultRoutesPackageFunctions(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetDefault(zap.New(core))
	t.Cleanup(CloseDefaultLogger)

	Info("правка %s: %d блоков", "set", 42)
	Debug("отладка")
	Warn("внимание")

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "правка set: 42 блоков", entries[0].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)

	With(zap.Int("affected", 3)).Info("структурно")
	last := logs.All()[3]
	assert.Equal(t, int64(3), last.ContextMap()["affected"])
}

func TestComponentLoggerLevels(t *testing.T) {
	console, logs := observer.New(zapcore.DebugLevel)
	l := wrap("edit", zap.New(console))
	l.Trace("не попадёт: трассировка ниже Debug")
	l.Debug("попадёт")
	assert.Equal(t, 1, logs.Len())
}

func TestManagerFallsBackOnFactoryError(t *testing.T) {
	lm := NewLoggerManager(func(string) (*Logger, error) { return nil, errors.New("нет диска") })
	l := lm.MustGetLogger("storage")
	require.NotNil(t, l)
	assert.Equal(t, "storage", l.Component())
	assert.Empty(t, lm.ListComponents())
}

func TestManagerCachesLoggers(t *testing.T) {
	created := 0
	lm := NewLoggerManager(func(c string) (*Logger, error) {
		created++
		return wrap(c, zap.NewNop()), nil
	})
	a, err := lm.GetLogger("api")
	require.NoError(t, err)
	b, _ := lm.GetLogger("api")
	assert.Same(t, a, b)
	assert.Equal(t, 1, created)
	require.NoError(t, lm.SetLogLevel("api", WARN, ERROR))
	assert.Error(t, lm.SetLogLevel("nope", WARN, ERROR))
	assert.Equal(t, []string{"api"}, lm.ListComponents())
	assert.NoError(t, lm.CloseAll())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, WARN, ParseLevel("WARN"))
	assert.Equal(t, INFO, ParseLevel("bogus"))
}
