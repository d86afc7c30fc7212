package cache

import (
	"context"
	"errors"
	"flag"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	instr "github.com/grafana/dskit/instrument"
	"github.com/grafana/gomemcache/memcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vthacker/solrscan/pkg/util"
)

type MemcachedConfig struct {
	Addresses    string        `yaml:"addresses"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	Expiration   time.Duration `yaml:"expiration"`
}

func (cfg *MemcachedConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Addresses, util.PrefixConfig(prefix, "addresses"), "", "Comma separated list of memcached addresses.")
	f.DurationVar(&cfg.Timeout, util.PrefixConfig(prefix, "timeout"), 100*time.Millisecond, "Maximum time to wait for a memcached request.")
	f.IntVar(&cfg.MaxIdleConns, util.PrefixConfig(prefix, "max-idle-conns"), 16, "Maximum number of idle connections to memcached.")
	f.DurationVar(&cfg.Expiration, util.PrefixConfig(prefix, "expiration"), 0, "How long keys stay in memcached. 0 means no expiration.")
}

// MemcachedClient is the subset of the memcache client used here.
type MemcachedClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Close()
}

// Memcached caches entries in a memcached cluster.
type Memcached struct {
	cfg             MemcachedConfig
	memcache        MemcachedClient
	name            string
	requestDuration *instr.HistogramCollector
	logger          log.Logger
}

type memcachedClient struct {
	client *memcache.Client
}

func (m *memcachedClient) Get(key string) (*memcache.Item, error) { return m.client.Get(key) }
func (m *memcachedClient) Set(item *memcache.Item) error          { return m.client.Set(item) }
func (m *memcachedClient) Close()                                 { m.client.Close() }

func newMemcachedClient(cfg MemcachedConfig) MemcachedClient {
	client := memcache.New(strings.Split(cfg.Addresses, ",")...)
	client.Timeout = cfg.Timeout
	client.MaxIdleConns = cfg.MaxIdleConns
	return &memcachedClient{client: client}
}

// NewMemcached makes a new Memcached.
func NewMemcached(cfg MemcachedConfig, client MemcachedClient, name string, reg prometheus.Registerer, logger log.Logger) *Memcached {
	return &Memcached{
		cfg:      cfg,
		memcache: client,
		name:     name,
		logger:   logger,
		requestDuration: instr.NewHistogramCollector(
			promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "solrscan",
				Name:      "memcache_request_duration_seconds",
				Help:      "Total time spent in seconds doing memcache requests.",
				// Memcached requests are very quick: smallest bucket is 16us, biggest is 1s
				Buckets:     prometheus.ExponentialBuckets(0.000016, 4, 8),
				ConstLabels: prometheus.Labels{"name": name},
			}, []string{"method", "status_code"}),
		),
	}
}

func memcacheStatusCode(err error) string {
	// See https://godoc.org/github.com/bradfitz/gomemcache/memcache#pkg-variables
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "404"
	}
	if errors.Is(err, memcache.ErrMalformedKey) {
		return "400"
	}
	if err != nil {
		return "500"
	}
	return "200"
}

// FetchKey gets a single key from the cache.
func (c *Memcached) FetchKey(ctx context.Context, key string) ([]byte, bool) {
	const method = "Memcache.Get"
	var item *memcache.Item
	err := measureRequest(ctx, method, c.requestDuration, memcacheStatusCode, func(_ context.Context) error {
		var err error
		item, err = c.memcache.Get(key)
		if err != nil {
			if errors.Is(err, memcache.ErrCacheMiss) {
				level.Debug(c.logger).Log("msg", "Failed to get key from memcached", "err", err, "key", key)
			} else {
				level.Error(c.logger).Log("msg", "Error getting key from memcached", "err", err, "key", key)
			}
		}
		return err
	})
	if err != nil {
		return nil, false
	}
	return item.Value, true
}

// Store stores the key in the cache.
func (c *Memcached) Store(ctx context.Context, key string, buf []byte) {
	err := measureRequest(ctx, "Memcache.Put", c.requestDuration, memcacheStatusCode, func(_ context.Context) error {
		item := memcache.Item{
			Key:        key,
			Value:      buf,
			Expiration: int32(c.cfg.Expiration.Seconds()),
		}
		return c.memcache.Set(&item)
	})
	if err != nil {
		level.Error(c.logger).Log("msg", "failed to put to memcached", "name", c.name, "err", err)
	}
}

func (c *Memcached) Stop() {
	c.memcache.Close()
}
