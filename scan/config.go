package scan

import (
	"flag"

	"github.com/vthacker/solrscan/pkg/util"
	"github.com/vthacker/solrscan/scan/pool"
)

type Config struct {
	Rows      int         `yaml:"rows"`
	SortField string      `yaml:"sort_field"`
	Pool      pool.Config `yaml:"pool"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.Rows, util.PrefixConfig(prefix, "rows"), 1000, "Documents fetched per cursor page.")
	f.StringVar(&cfg.SortField, util.PrefixConfig(prefix, "sort-field"), "id", "Unique key field cursor paging sorts on.")
	cfg.Pool.RegisterFlagsAndApplyDefaults(util.PrefixConfig(prefix, "pool"), f)
}
