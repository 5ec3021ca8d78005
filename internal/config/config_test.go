package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPath(t *testing.T) {
	t.Setenv("BLOCKEDIT_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Nil(t, cfg, "без пути конфиг не загружается")

	cfg, err = LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editd.yaml")
	data := []byte(`
edit:
  max_change_limit: 50000
history:
  journal_depth: 40
eventbus:
  driver: jetstream
auth:
  operators:
    alice: secret-a
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Setenv("BLOCKEDIT_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 50000, cfg.Edit.MaxChangeLimit)
	assert.Equal(t, -1, cfg.Edit.DefaultChangeLimit, "незаданные поля остаются по умолчанию")
	assert.Equal(t, "jetstream", cfg.EventBus.Driver)
	assert.Equal(t, "secret-a", cfg.Auth.Operators["alice"])

	limits := cfg.SessionLimits()
	assert.Equal(t, 40, limits.JournalDepth)
	assert.Equal(t, 50000, limits.MaxChangeLimit)
}

func TestLoadBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("edit: [1, 2"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvFallbacks(t *testing.T) {
	var s ServerConfig
	t.Setenv("BLOCKEDIT_REST_PORT", "9099")
	assert.Equal(t, 9099, s.GetRESTPort())
	s.RESTPort = 8000
	assert.Equal(t, 8000, s.GetRESTPort(), "значение из конфига важнее окружения")

	t.Setenv("BLOCKEDIT_REST_PORT", "abc")
	assert.Equal(t, 8088, (&ServerConfig{}).GetRESTPort(), "некорректное значение окружения игнорируется")

	t.Setenv("BLOCKEDIT_NODE_ID", "node-7")
	assert.Equal(t, "node-7", (&ServerConfig{}).GetNodeID())

	var e EditConfig
	assert.Equal(t, 30*time.Minute, e.SessionIdle())
	e.MaxRadius = 10
	assert.NoError(t, e.CheckRadius(10))
	assert.Error(t, e.CheckRadius(10.5))
}
