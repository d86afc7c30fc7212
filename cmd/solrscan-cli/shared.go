package main

import (
	"context"
	"fmt"
	"os"

	"github.com/drone/envsubst"
	dslog "github.com/grafana/dskit/log"
	"gopkg.in/yaml.v2"

	"github.com/vthacker/solrscan/pkg/util/log"
	"github.com/vthacker/solrscan/shardsplit"
	"github.com/vthacker/solrscan/solr"
)

func initLogger(g *globalOptions) error {
	var lvl dslog.Level
	if err := lvl.Set(g.LogLevel); err != nil {
		return err
	}

	log.InitLogger(g.LogFormat, lvl)
	return nil
}

func loadConfig(g *globalOptions) (*Config, error) {
	cfg := newDefaultConfig()

	if g.ConfigFile != "" {
		buff, err := os.ReadFile(g.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read configFile %s: %w", g.ConfigFile, err)
		}

		if g.ExpandEnv {
			s, err := envsubst.EvalEnv(string(buff))
			if err != nil {
				return nil, fmt.Errorf("failed to expand env vars from configFile %s: %w", g.ConfigFile, err)
			}
			buff = []byte(s)
		}

		if err := yaml.UnmarshalStrict(buff, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configFile %s: %w", g.ConfigFile, err)
		}
	}

	if g.Endpoint != "" {
		cfg.Solr.Endpoint = g.Endpoint
	}

	return cfg, nil
}

func newClient(g *globalOptions) (*solr.Client, *Config, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, nil, err
	}

	client, err := solr.New(&cfg.Solr, log.Logger)
	if err != nil {
		return nil, nil, err
	}

	return client, cfg, nil
}

// planOptions are the planning knobs shared by the plan and scan commands.
type planOptions struct {
	Query          string `short:"q" default:"*:*" help:"Base query every document must match."`
	FieldType      string `default:"long" help:"Solr type of the split field (long, double, date, string, ...)."`
	SplitsPerShard int    `default:"8" help:"Number of splits to aim for on each shard."`
	Shard          string `help:"Restrict planning to this named shard."`
}

func planSplits(ctx context.Context, client *solr.Client, cfg *Config, collection, field string, opts *planOptions) ([]shardsplit.Split, error) {
	shards, err := client.ClusterShards(ctx, collection)
	if err != nil {
		return nil, err
	}

	fs, err := shardsplit.NewFieldSplitter(opts.FieldType)
	if err != nil {
		return nil, err
	}

	gw := func(shard string) (shardsplit.Gateway, error) {
		return client.Shard(shard), nil
	}
	planner := shardsplit.New(cfg.Split, fs, gw, shardsplit.NewLogReporter(log.Logger), log.Logger)

	base := solr.NewQuery(opts.Query)

	var (
		splits  []shardsplit.Split
		planned int
	)
	for _, shard := range shards {
		if opts.Shard != "" && shard.Name != opts.Shard {
			continue
		}

		s, err := planner.Splits(ctx, shard.ActiveReplicaURL(), base, field, opts.SplitsPerShard)
		if err != nil {
			return nil, err
		}

		splits = append(splits, s...)
		planned++
	}

	if planned == 0 {
		return nil, fmt.Errorf("no shard %s in collection %s", opts.Shard, collection)
	}

	return splits, nil
}
