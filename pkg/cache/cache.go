package cache

import (
	"context"
	"flag"
	"fmt"

	"github.com/go-kit/log"
	instr "github.com/grafana/dskit/instrument"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vthacker/solrscan/pkg/util"
)

const (
	// BackendLocal keeps entries in an in-process LRU.
	BackendLocal = "local"
	// BackendMemcached stores entries in a memcached cluster.
	BackendMemcached = "memcached"
	// BackendRedis stores entries in a redis server.
	BackendRedis = "redis"
)

// Cache is a store for small, immutable byte blobs keyed by string. All
// implementations are best effort: a failed fetch is a miss and a failed
// store is dropped. Failures are logged and counted, never returned.
type Cache interface {
	// FetchKey returns the cached value for key, if present.
	FetchKey(ctx context.Context, key string) ([]byte, bool)
	// Store caches buf under key.
	Store(ctx context.Context, key string, buf []byte)
	// Stop releases any resources held by the cache.
	Stop()
}

type Config struct {
	Backend   string          `yaml:"backend"`
	Local     LocalConfig     `yaml:"local"`
	Memcached MemcachedConfig `yaml:"memcached"`
	Redis     RedisConfig     `yaml:"redis"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Backend, util.PrefixConfig(prefix, "backend"), "", "Cache backend to use. One of: local, memcached, redis. Empty disables caching.")
	cfg.Local.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "local"), f)
	cfg.Memcached.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "memcached"), f)
	cfg.Redis.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "redis"), f)
}

// New builds the configured cache. An empty backend returns nil without
// error, meaning caching is disabled.
func New(cfg *Config, reg prometheus.Registerer, logger log.Logger) (Cache, error) {
	switch cfg.Backend {
	case "":
		return nil, nil
	case BackendLocal:
		return NewLocal(cfg.Local)
	case BackendMemcached:
		return NewMemcached(cfg.Memcached, newMemcachedClient(cfg.Memcached), "solrscan", reg, logger), nil
	case BackendRedis:
		return NewRedis(cfg.Redis, "solrscan", reg, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

func measureRequest(ctx context.Context, method string, c *instr.HistogramCollector, toStatusCode func(error) string, f func(context.Context) error) error {
	return instr.CollectedRequest(ctx, method, c, toStatusCode, f)
}
