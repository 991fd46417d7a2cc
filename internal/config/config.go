package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	DriverMongoDB = "mongodb"
	DriverBolt    = "bolt"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	MongoDB MongoDBConfig
	Bolt    BoltConfig
	JWT     JWTConfig
	Redis   RedisConfig
	Lottery LotteryConfig
	Log     LogConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	Mode            string
	AllowedOrigins  []string
	ShutdownTimeout time.Duration
}

// StoreConfig selects the session store
type StoreConfig struct {
	Driver string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// BoltConfig holds the embedded store location
type BoltConfig struct {
	Path string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

// RedisConfig enables fan-out of live events across API instances
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Channel  string
}

// LotteryConfig tunes the draw
type LotteryConfig struct {
	DrawDelay       time.Duration
	MaxDrawAttempts int
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string
	Environment string
}

// Load reads .env, then config.yaml from the given paths (default "." and "./config"), then
// environment variables such as MONGODB_URI or JWT_SECRET.
func Load(paths ...string) (*Config, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loaded = v
	return &cfg, nil
}

// loaded is the viper instance behind the last successful Load, used by Watch
var loaded *viper.Viper

// Watch calls onChange with the reloaded config whenever the config file changes.
// It does nothing when no config file was found.
func Watch(onChange func(*Config)) {
	v := loaded
	if v == nil || v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			return
		}
		if cfg.Validate() == nil {
			onChange(&cfg)
		}
	})
	v.WatchConfig()
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("config: JWT secret is required (JWT_SECRET)")
	}
	switch c.Store.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			return errors.New("config: MongoDB URI is required (MONGODB_URI)")
		}
	case DriverBolt:
		if c.Bolt.Path == "" {
			return errors.New("config: bolt path is required (BOLT_PATH)")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Lottery.MaxDrawAttempts <= 0 {
		return errors.New("config: lottery max draw attempts must be positive")
	}
	if c.Lottery.DrawDelay < 0 {
		return errors.New("config: lottery draw delay must not be negative")
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.Mode", "release")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("Server.ShutdownTimeout", 5*time.Second)
	v.SetDefault("Store.Driver", DriverMongoDB)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "draft-lottery")
	v.SetDefault("MongoDB.Timeout", 10*time.Second)
	v.SetDefault("Bolt.Path", "draft-lottery.db")
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*time.Hour)
	v.SetDefault("Redis.Enabled", false)
	v.SetDefault("Redis.Addr", "localhost:6379")
	v.SetDefault("Redis.Password", "")
	v.SetDefault("Redis.DB", 0)
	v.SetDefault("Redis.Channel", "draft-lottery:live")
	v.SetDefault("Lottery.DrawDelay", 2*time.Second)
	v.SetDefault("Lottery.MaxDrawAttempts", 10000)
	v.SetDefault("Log.Level", "info")
	v.SetDefault("Log.Environment", "production")
}
