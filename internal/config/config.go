package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func defaultDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     5432,
		User:     "dressroom",
		Password: "dressroom",
		DBName:   "dressroom",
		SSLMode:  "disable",
	}
}

// Directory holds all configuration for the directory server.
type Directory struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Каталог ассетов для внешности новых персонажей; пусто — встроенный
	AssetsPath string `yaml:"assets_path"`

	// Accounts
	BcryptCost              int           `yaml:"bcrypt_cost"`
	MaxCharactersPerAccount int           `yaml:"max_characters_per_account"`
	SessionTTL              time.Duration `yaml:"session_ttl"` // срок жизни bearer-сессии (default: 24h)

	// Matchmaking
	ShardHeartbeatTimeout time.Duration `yaml:"shard_heartbeat_timeout"` // shard считается мёртвым после (default: 30s)
	JoinTicketTTL         time.Duration `yaml:"join_ticket_ttl"`         // срок жизни токена входа в space (default: 60s)
}

// DefaultDirectory returns Directory config with sensible defaults.
func DefaultDirectory() Directory {
	return Directory{
		BindAddress:             "0.0.0.0",
		Port:                    8080,
		Database:                defaultDatabase(),
		LogLevel:                "info",
		BcryptCost:              10,
		MaxCharactersPerAccount: 5,
		SessionTTL:              24 * time.Hour,
		ShardHeartbeatTimeout:   30 * time.Second,
		JoinTicketTTL:           60 * time.Second,
	}
}

// LoadDirectory loads directory server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadDirectory(path string) (Directory, error) {
	cfg := DefaultDirectory()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func load(path string, cfg any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}

	return nil
}

// ParseLogLevel переводит log_level из конфига в slog.Level.
// Неизвестное значение даёт info.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
