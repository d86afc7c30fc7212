package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/atomic"

	"github.com/vthacker/solrscan/pkg/util/log"
	"github.com/vthacker/solrscan/scan"
	"github.com/vthacker/solrscan/shardsplit"
	"github.com/vthacker/solrscan/solr"
)

type scanCmd struct {
	Collection string `arg:"" help:"Collection to scan."`
	Field      string `arg:"" help:"Field splits are ranged over."`

	Out string `short:"o" type:"path" help:"Write scanned documents as newline separated JSON to this file."`

	planOptions
}

func (cmd *scanCmd) Run(g *globalOptions) error {
	client, cfg, err := newClient(g)
	if err != nil {
		return err
	}
	defer client.Stop()

	ctx := context.Background()

	splits, err := planSplits(ctx, client, cfg, cmd.Collection, cmd.Field, &cmd.planOptions)
	if err != nil {
		return err
	}

	var w *bufio.Writer
	if cmd.Out != "" {
		f, err := os.Create(cmd.Out)
		if err != nil {
			return err
		}
		defer f.Close()

		w = bufio.NewWriter(f)
	}

	scanner := scan.New(cfg.Scan, client, log.Logger)
	defer scanner.Stop()

	var (
		mtx     sync.Mutex
		scanned = atomic.NewInt64(0)
	)

	start := time.Now()
	err = scanner.Scan(ctx, solr.NewQuery(cmd.Query), splits, func(_ context.Context, _ shardsplit.Split, docs []jsoniter.RawMessage) error {
		scanned.Add(int64(len(docs)))

		if w == nil {
			return nil
		}

		mtx.Lock()
		defer mtx.Unlock()
		for _, d := range docs {
			if _, err := w.Write(d); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if w != nil {
		if err := w.Flush(); err != nil {
			return err
		}
	}

	fmt.Printf("scanned %s documents from %d splits in %s\n",
		humanize.Comma(scanned.Load()), len(splits), time.Since(start).Round(time.Millisecond))
	return nil
}
