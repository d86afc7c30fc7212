package cache

import (
	"context"
	"flag"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/vthacker/solrscan/pkg/util"
)

type LocalConfig struct {
	MaxItems int `yaml:"max_items"`
}

func (cfg *LocalConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.MaxItems, util.PrefixConfig(prefix, "max-items"), 1024, "Maximum number of entries kept by the in-process cache.")
}

// Local is an in-process LRU cache. It is the cheapest way to dedupe repeat
// stats queries within one planning process.
type Local struct {
	lru *lru.Cache[string, []byte]
}

// NewLocal makes a new Local.
func NewLocal(cfg LocalConfig) (*Local, error) {
	l, err := lru.New[string, []byte](cfg.MaxItems) // only errors if MaxItems <= 0
	if err != nil {
		return nil, err
	}
	return &Local{lru: l}, nil
}

func (c *Local) FetchKey(_ context.Context, key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *Local) Store(_ context.Context, key string, buf []byte) {
	_ = c.lru.Add(key, buf)
}

func (c *Local) Stop() {}
