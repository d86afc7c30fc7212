package shardsplit

import (
	"flag"

	"github.com/vthacker/solrscan/pkg/util"
)

const (
	// DefaultOversizeFactor caps how far above the per split target a joined
	// split may grow. The join threshold is round(docsPerSplit * factor).
	DefaultOversizeFactor = 1.18

	// DefaultResplitFactor is the multiple of the per split target past
	// which a split is subdivided instead of kept.
	DefaultResplitFactor = 1.8

	// DefaultOutlierFactor is the multiple of the average split size past
	// which a split is reported as oversized.
	DefaultOutlierFactor = 1.40

	// DefaultBalancePasses is how many join and re-split rounds run before
	// the final sweep over non adjacent splits.
	DefaultBalancePasses = 3
)

type Config struct {
	OversizeFactor float64 `yaml:"oversize_factor"`
	ResplitFactor  float64 `yaml:"resplit_factor"`
	OutlierFactor  float64 `yaml:"outlier_factor"`
	BalancePasses  int     `yaml:"balance_passes"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	cfg.OversizeFactor = DefaultOversizeFactor
	cfg.ResplitFactor = DefaultResplitFactor
	cfg.OutlierFactor = DefaultOutlierFactor
	f.IntVar(&cfg.BalancePasses, util.PrefixConfig(prefix, "balance-passes"), DefaultBalancePasses, "Number of balance passes over the initial splits.")
}
