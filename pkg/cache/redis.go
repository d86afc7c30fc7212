package cache

import (
	"context"
	"errors"
	"flag"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	instr "github.com/grafana/dskit/instrument"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vthacker/solrscan/pkg/util"
)

type RedisConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	Timeout    time.Duration `yaml:"timeout"`
	Expiration time.Duration `yaml:"expiration"`
}

func (cfg *RedisConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Endpoint, util.PrefixConfig(prefix, "endpoint"), "", "Redis endpoint to use when caching.")
	f.StringVar(&cfg.Password, util.PrefixConfig(prefix, "password"), "", "Password to connect to redis.")
	f.IntVar(&cfg.DB, util.PrefixConfig(prefix, "db"), 0, "Database index.")
	f.DurationVar(&cfg.Timeout, util.PrefixConfig(prefix, "timeout"), 100*time.Millisecond, "Maximum time to wait before giving up on redis requests.")
	f.DurationVar(&cfg.Expiration, util.PrefixConfig(prefix, "expiration"), 0, "How long keys stay in redis. 0 means no expiration.")
}

// Redis caches entries in a redis server.
type Redis struct {
	cfg             RedisConfig
	redis           *redis.Client
	name            string
	requestDuration *instr.HistogramCollector
	logger          log.Logger
}

// NewRedis makes a new Redis.
func NewRedis(cfg RedisConfig, name string, reg prometheus.Registerer, logger log.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Endpoint,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	return &Redis{
		cfg:    cfg,
		redis:  client,
		name:   name,
		logger: logger,
		requestDuration: instr.NewHistogramCollector(
			promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
				Namespace:   "solrscan",
				Name:        "redis_request_duration_seconds",
				Help:        "Total time spent in seconds doing redis requests.",
				Buckets:     prometheus.ExponentialBuckets(0.000016, 4, 8),
				ConstLabels: prometheus.Labels{"name": name},
			}, []string{"method", "status_code"}),
		),
	}
}

func redisStatusCode(err error) string {
	if errors.Is(err, redis.Nil) {
		return "404"
	}
	if err != nil {
		return "500"
	}
	return "200"
}

// FetchKey gets a single key from the cache.
func (c *Redis) FetchKey(ctx context.Context, key string) ([]byte, bool) {
	const method = "Redis.Get"
	var buf []byte
	err := measureRequest(ctx, method, c.requestDuration, redisStatusCode, func(ctx context.Context) error {
		var err error
		buf, err = c.redis.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				level.Debug(c.logger).Log("msg", "Failed to get key from redis", "err", err, "key", key)
			} else {
				level.Error(c.logger).Log("msg", "Error getting key from redis", "err", err, "key", key)
			}
		}
		return err
	})
	if err != nil {
		return nil, false
	}
	return buf, true
}

// Store stores the key in the cache.
func (c *Redis) Store(ctx context.Context, key string, buf []byte) {
	err := measureRequest(ctx, "Redis.Put", c.requestDuration, redisStatusCode, func(ctx context.Context) error {
		return c.redis.Set(ctx, key, buf, c.cfg.Expiration).Err()
	})
	if err != nil {
		level.Error(c.logger).Log("msg", "failed to put to redis", "name", c.name, "err", err)
	}
}

func (c *Redis) Stop() {
	_ = c.redis.Close()
}
