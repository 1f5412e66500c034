package config

import "time"

// Shard holds all configuration for a shard server.
type Shard struct {
	// Identity
	ShardID       string `yaml:"shard_id"`
	PublicAddress string `yaml:"public_address"` // адрес, который directory отдаёт клиентам

	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Database
	Database DatabaseConfig `yaml:"database"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Asset definitions (YAML). Пустой путь — встроенный каталог.
	AssetsPath string `yaml:"assets_path"`

	// Write queue / timeouts
	WriteTimeout  time.Duration `yaml:"write_timeout"`   // per-write deadline (default: 5s)
	ReadTimeout   time.Duration `yaml:"read_timeout"`    // idle client disconnect (default: 120s)
	SendQueueSize int           `yaml:"send_queue_size"` // per-client outbox capacity (default: 256)

	// Persistence
	PersistWorkers int `yaml:"persist_workers"` // параллельные сохранения после commit (default: 4)

	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"` // (default: 10s)

	// Permissions
	MaxPermissionOverrides int `yaml:"max_permission_overrides"` // per character per group (default: 64)
}

// DefaultShard returns Shard config with sensible defaults.
func DefaultShard() Shard {
	return Shard{
		ShardID:                "shard-1",
		PublicAddress:          "ws://127.0.0.1:7777/ws",
		BindAddress:            "0.0.0.0",
		Port:                   7777,
		Database:               defaultDatabase(),
		LogLevel:               "info",
		WriteTimeout:           5 * time.Second,
		ReadTimeout:            120 * time.Second,
		SendQueueSize:          256,
		PersistWorkers:         4,
		HeartbeatInterval:      10 * time.Second,
		MaxPermissionOverrides: 64,
	}
}

// LoadShard loads shard config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadShard(path string) (Shard, error) {
	cfg := DefaultShard()
	if err := load(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
