package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graphdir.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, filepath.Join("data", "journal"), cfg.Storage.JournalDir())
	assert.Equal(t, filepath.Join("data", "snapshots"), cfg.Storage.SnapshotDir())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: "localhost:9090"
  shutdownTimeout: 3s
  corsOrigins: ["https://example.com"]
log:
  level: debug
storage:
  backend: memory
  dataDir: ""
  journal: false
  snapshotInterval: 5
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 5, cfg.Storage.SnapshotInterval)
	assert.Empty(t, cfg.Storage.JournalDir())
	assert.False(t, cfg.Metrics.Enabled)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: debug\n")
	t.Setenv("GRAPHDIR_LOG_LEVEL", "warn")
	t.Setenv("GRAPHDIR_ADDR", ":7000")
	t.Setenv("GRAPHDIR_SNAPSHOT_INTERVAL", "10")
	t.Setenv("GRAPHDIR_SYNC_WRITES", "false")
	t.Setenv("GRAPHDIR_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("GRAPHDIR_SHUTDOWN_TIMEOUT", "1m")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Storage.SnapshotInterval)
	assert.False(t, cfg.Storage.SyncWrites)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, time.Minute, cfg.Server.ShutdownTimeout)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "unknown backend",
			file:    "storage:\n  backend: postgres\n",
			wantErr: "Storage.Backend must be one of [badger memory]",
		},
		{
			name:    "badger needs a data dir",
			file:    "storage:\n  dataDir: \"\"\n",
			wantErr: "Storage.DataDir is required",
		},
		{
			name:    "bad log level",
			env:     map[string]string{"GRAPHDIR_LOG_LEVEL": "loud"},
			wantErr: "Log.Level must be one of",
		},
		{
			name:    "snapshot interval",
			env:     map[string]string{"GRAPHDIR_SNAPSHOT_INTERVAL": "0"},
			wantErr: "Storage.SnapshotInterval must be at least 1",
		},
		{
			name:    "unparsable bool",
			env:     map[string]string{"GRAPHDIR_JOURNAL": "maybe"},
			wantErr: "GRAPHDIR_JOURNAL",
		},
		{
			name:    "unparsable duration",
			env:     map[string]string{"GRAPHDIR_READ_TIMEOUT": "soon"},
			wantErr: "GRAPHDIR_READ_TIMEOUT",
		},
		{
			name:    "bad address",
			env:     map[string]string{"GRAPHDIR_ADDR": "nope"},
			wantErr: "Server.Addr must be host:port",
		},
		{
			name:    "metrics path",
			file:    "metrics:\n  path: metrics\n",
			wantErr: "Metrics.Path must start with",
		},
		{
			name:    "malformed yaml",
			file:    "server: [",
			wantErr: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
