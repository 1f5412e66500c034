package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShard_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadShard(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultShard(), cfg)
}

func TestLoadShard_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shard_id: eu-2
port: 9000
write_timeout: 2s
max_permission_overrides: 8
database:
  host: db
`), 0o600))

	cfg, err := LoadShard(path)
	require.NoError(t, err)
	assert.Equal(t, "eu-2", cfg.ShardID)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 8, cfg.MaxPermissionOverrides)
	assert.Equal(t, "db", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 256, cfg.SendQueueSize)
}

func TestLoadDirectory_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1"), 0o600))

	_, err := LoadDirectory(path)
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", d.DSN())
}

func TestLoadDirectory_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session_ttl: 1h
join_ticket_ttl: 15s
max_characters_per_account: 2
`), 0o600))

	cfg, err := LoadDirectory(path)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 15*time.Second, cfg.JoinTicketTTL)
	assert.Equal(t, 2, cfg.MaxCharactersPerAccount)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 8080, cfg.Port)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("verbose"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel(""))
}
