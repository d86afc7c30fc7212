package main

import (
	"flag"

	"github.com/vthacker/solrscan/pkg/util"
	"github.com/vthacker/solrscan/scan"
	"github.com/vthacker/solrscan/shardsplit"
	"github.com/vthacker/solrscan/solr"
)

// Config collects the configuration of everything the CLI drives.
type Config struct {
	Solr  solr.Config       `yaml:"solr,omitempty"`
	Split shardsplit.Config `yaml:"split,omitempty"`
	Scan  scan.Config       `yaml:"scan,omitempty"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	cfg.Solr.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "solr"), f)
	cfg.Split.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "split"), f)
	cfg.Scan.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "scan"), f)
}

func newDefaultConfig() *Config {
	cfg := &Config{}
	cfg.RegisterFlagsAndApplyDefaults("", flag.NewFlagSet("", flag.PanicOnError))
	return cfg
}
