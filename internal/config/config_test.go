package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrickward/livepad/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "livepad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func env(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Addr)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 150*time.Millisecond, cfg.Sync.EditorDebounce)
	assert.Equal(t, 100*time.Millisecond, cfg.Sync.RebuildSettle)
	assert.Equal(t, 300*time.Millisecond, cfg.Sync.ReentryGuard)
	assert.Equal(t, time.Second, cfg.Sync.HighlightDuration)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, `
addr: 0.0.0.0
port: 9000
data_dir: /srv/notes
log_level: debug
sync:
  editor_debounce: 250ms
  highlight_duration: 2s
encryption:
  identity_file: /keys/key.txt
  recipient_file: /keys/key.pub
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr())
	assert.Equal(t, "/srv/notes", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.EditorDebounce)
	assert.Equal(t, 2*time.Second, cfg.Sync.HighlightDuration)
	// Unset keys keep their defaults.
	assert.Equal(t, 300*time.Millisecond, cfg.Sync.ReentryGuard)
	assert.Equal(t, "/keys/key.txt", cfg.Encryption.IdentityFile)
	assert.Equal(t, filepath.Join("/srv/notes", "keys"), cfg.KeysDir())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidFile(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "sync:\n  editor_debounce: soon\n")

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()

	err := cfg.ApplyEnv(env(map[string]string{
		"LIVEPAD_PORT":            "7000",
		"LIVEPAD_DATA_DIR":        "/tmp/pad",
		"LIVEPAD_REENTRY_GUARD":   "500ms",
		"LIVEPAD_LOG_FILE":        "/tmp/pad.log",
		"LIVEPAD_ADDR":            "",
		"UNRELATED_IDENTITY_FILE": "/x",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "/tmp/pad", cfg.DataDir)
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.ReentryGuard)
	assert.Equal(t, "localhost", cfg.Addr)
	assert.Empty(t, cfg.Encryption.IdentityFile)
	assert.Equal(t, "/tmp/pad.log", cfg.Logging().LogFile)
}

func TestConfig_ApplyEnvErrors(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	assert.Error(t, cfg.ApplyEnv(env(map[string]string{"LIVEPAD_PORT": "eighty"})))

	cfg = config.DefaultConfig()
	assert.Error(t, cfg.ApplyEnv(env(map[string]string{"LIVEPAD_EDITOR_DEBOUNCE": "fast"})))
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "empty data dir", mutate: func(c *config.Config) { c.DataDir = "" }, wantErr: "data_dir"},
		{name: "bad port", mutate: func(c *config.Config) { c.Port = 70000 }, wantErr: "port"},
		{name: "bad level", mutate: func(c *config.Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
		{name: "negative delay", mutate: func(c *config.Config) { c.Sync.ReentryGuard = -time.Second }, wantErr: "sync.reentry_guard"},
		{name: "half encryption", mutate: func(c *config.Config) { c.Encryption.IdentityFile = "/k" }, wantErr: "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_SessionOptions(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	cfg.Sync.EditorDebounce = 40 * time.Millisecond

	opts := cfg.SessionOptions()

	assert.Equal(t, 40*time.Millisecond, opts.EditorDebounce)
	assert.Equal(t, time.Second, opts.HighlightDuration)
	assert.Nil(t, opts.Clock)
}

func TestConfig_Logging(t *testing.T) {
	t.Parallel()
	cfg := config.DefaultConfig()
	cfg.DataDir = "/data"
	cfg.LogLevel = "warn"

	lc := cfg.Logging()

	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, filepath.Join("/data", "service", "livepad.log"), lc.LogFile)
}
