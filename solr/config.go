package solr

import (
	"flag"
	"time"

	"github.com/grafana/dskit/backoff"

	"github.com/vthacker/solrscan/pkg/cache"
	"github.com/vthacker/solrscan/pkg/util"
)

type Config struct {
	// Endpoint is the base URL of any node in the cluster, e.g.
	// http://localhost:8983/solr. Shard scoped queries go to the replica URLs
	// discovered through it.
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`

	// HedgeRequestsAt duplicates in-flight requests past this duration.
	// 0 disables hedging.
	HedgeRequestsAt   time.Duration `yaml:"hedge_requests_at"`
	HedgeRequestsUpTo int           `yaml:"hedge_requests_up_to"`

	// Backoff drives the wait for shards to come up during discovery. It
	// never applies to planning queries, those fail straight through.
	Backoff backoff.Config `yaml:"backoff"`

	// Cache optionally caches stats and count responses.
	Cache cache.Config `yaml:"cache"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&cfg.Endpoint, util.PrefixConfig(prefix, "endpoint"), "http://localhost:8983/solr", "Base URL of a node in the Solr cluster.")
	f.DurationVar(&cfg.Timeout, util.PrefixConfig(prefix, "timeout"), 30*time.Second, "Maximum time to wait for a single Solr request.")
	f.DurationVar(&cfg.HedgeRequestsAt, util.PrefixConfig(prefix, "hedge-requests-at"), 2*time.Second, "If set to a non-zero value requests are hedged after this duration. 0 disables hedging.")
	f.IntVar(&cfg.HedgeRequestsUpTo, util.PrefixConfig(prefix, "hedge-requests-up-to"), 2, "The maximum number of requests to execute when hedging.")

	cfg.Backoff = backoff.Config{
		MinBackoff: 100 * time.Millisecond,
		MaxBackoff: 5 * time.Second,
		MaxRetries: 10,
	}

	cfg.Cache.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "cache"), f)
}
