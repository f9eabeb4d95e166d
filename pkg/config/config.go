package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "posd"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App   AppConfig
	NATS  NATSConfig
	Redis RedisConfig
	Sync  SyncConfig
	Cache CacheConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Sync.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"POSD_APP_ENV" default:"dev"`
	Port         string `envconfig:"POSD_APP_PORT" default:"8086"`
	ClientID     string `envconfig:"POSD_CLIENT_ID"`
	LogLevel     string `envconfig:"POSD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"POSD_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type NATSConfig struct {
	URL            string        `envconfig:"POSD_NATS_URL" default:"nats://127.0.0.1:4222"`
	EventSubject   string        `envconfig:"POSD_NATS_EVENT_SUBJECT" default:"pos.orders.events"`
	ResyncSubject  string        `envconfig:"POSD_NATS_RESYNC_SUBJECT" default:"pos.orders.resync"`
	SyncSubject    string        `envconfig:"POSD_NATS_SYNC_SUBJECT" default:"pos.orders.sync"`
	CommandSubject string        `envconfig:"POSD_NATS_COMMAND_SUBJECT" default:"pos.orders.commands"`
	RequestTimeout time.Duration `envconfig:"POSD_NATS_REQUEST_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POSD_REDIS_URL"`
	Address      string        `envconfig:"POSD_REDIS_ADDR"`
	Password     string        `envconfig:"POSD_REDIS_PASSWORD"`
	DB           int           `envconfig:"POSD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"POSD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POSD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POSD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POSD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POSD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a cache backend has been configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type SyncConfig struct {
	GapThreshold      int64         `envconfig:"POSD_SYNC_GAP_THRESHOLD" default:"1000"`
	BackoffBase       time.Duration `envconfig:"POSD_SYNC_BACKOFF_BASE" default:"500ms"`
	BackoffMultiplier float64       `envconfig:"POSD_SYNC_BACKOFF_MULTIPLIER" default:"2.0"`
	BackoffMax        time.Duration `envconfig:"POSD_SYNC_BACKOFF_MAX" default:"30s"`
	MaxAttempts       int           `envconfig:"POSD_SYNC_MAX_ATTEMPTS" default:"10"`
}

func (s SyncConfig) validate() error {
	if s.GapThreshold <= 0 {
		return fmt.Errorf("%s must be positive", "POSD_SYNC_GAP_THRESHOLD")
	}
	if s.BackoffBase <= 0 {
		return fmt.Errorf("%s must be positive", "POSD_SYNC_BACKOFF_BASE")
	}
	if s.BackoffMultiplier < 1 {
		return fmt.Errorf("%s must be at least 1", "POSD_SYNC_BACKOFF_MULTIPLIER")
	}
	if s.BackoffMax < s.BackoffBase {
		return fmt.Errorf("%s must not be below the base delay", "POSD_SYNC_BACKOFF_MAX")
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", "POSD_SYNC_MAX_ATTEMPTS")
	}
	return nil
}

type CacheConfig struct {
	SnapshotTTL   time.Duration `envconfig:"POSD_CACHE_SNAPSHOT_TTL" default:"72h"`
	SaveInterval  time.Duration `envconfig:"POSD_CACHE_SAVE_INTERVAL" default:"30s"`
	KeyNamespace  string        `envconfig:"POSD_CACHE_KEY_NAMESPACE" default:"posd"`
}
