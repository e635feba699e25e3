package cache

import (
	"strings"
	"time"

	"github.com/gobeaver/beaver-trust/config"
)

// Config holds cache configuration, read from BEAVER_CACHE_* variables.
type Config struct {
	// Driver specifies cache backend: "memory" or "redis"
	Driver string `env:"CACHE_DRIVER,default:memory"`

	// Redis specific settings
	Host     string `env:"CACHE_HOST,default:localhost"`
	Port     string `env:"CACHE_PORT,default:6379"`
	Password string `env:"CACHE_PASSWORD,secret"`
	Database int    `env:"CACHE_DATABASE,default:0"`

	// Connection URL (overrides host/port/password)
	URL string `env:"CACHE_URL,secret"`

	// Connection pool settings
	MaxRetries      int           `env:"CACHE_MAX_RETRIES,default:3"`
	PoolSize        int           `env:"CACHE_POOL_SIZE,default:10"`
	MinIdleConns    int           `env:"CACHE_MIN_IDLE_CONNS,default:2"`
	MaxIdleConns    int           `env:"CACHE_MAX_IDLE_CONNS,default:5"`
	ConnMaxLifetime time.Duration `env:"CACHE_CONN_MAX_LIFETIME,default:0s"`
	ConnMaxIdleTime time.Duration `env:"CACHE_CONN_MAX_IDLE_TIME,default:0s"`

	// Memory cache specific
	MaxSize         int64         `env:"CACHE_MAX_SIZE,default:0"` // bytes
	MaxKeys         int           `env:"CACHE_MAX_KEYS,default:0"`
	DefaultTTL      time.Duration `env:"CACHE_DEFAULT_TTL,default:0s"`
	CleanupInterval time.Duration `env:"CACHE_CLEANUP_INTERVAL,default:1m"`

	// TLS settings for Redis
	UseTLS   bool   `env:"CACHE_USE_TLS,default:false"`
	CertFile string `env:"CACHE_CERT_FILE"`
	KeyFile  string `env:"CACHE_KEY_FILE"`
	CAFile   string `env:"CACHE_CA_FILE"`

	// Common settings
	KeyPrefix string `env:"CACHE_KEY_PREFIX"`
	Namespace string `env:"CACHE_NAMESPACE"`
}

// GetConfig loads configuration from environment variables.
func GetConfig(opts ...config.LoadOptions) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, opts...); err != nil {
		return nil, err
	}

	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))

	return cfg, nil
}
