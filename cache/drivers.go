package cache

import (
	"github.com/gobeaver/beaver-trust/cache/driver/memory"
	"github.com/gobeaver/beaver-trust/cache/driver/redis"
)

func newMemory(cfg Config) (Cache, error) {
	return memory.New(memory.Config{
		MaxSize:         cfg.MaxSize,
		MaxKeys:         cfg.MaxKeys,
		DefaultTTL:      cfg.DefaultTTL,
		CleanupInterval: cfg.CleanupInterval,
		KeyPrefix:       cfg.KeyPrefix,
		Namespace:       cfg.Namespace,
	})
}

func newRedis(cfg Config) (Cache, error) {
	return redis.New(redis.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		Database: cfg.Database,
		URL:      cfg.URL,

		MaxRetries:      cfg.MaxRetries,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,

		UseTLS:   cfg.UseTLS,
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
		CAFile:   cfg.CAFile,

		KeyPrefix: cfg.KeyPrefix,
		Namespace: cfg.Namespace,
	})
}
