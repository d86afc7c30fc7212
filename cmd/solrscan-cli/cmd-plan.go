package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/vthacker/solrscan/shardsplit"
)

type planCmd struct {
	Collection string `arg:"" help:"Collection to plan splits for."`
	Field      string `arg:"" help:"Field splits are ranged over."`

	planOptions
}

func (cmd *planCmd) Run(g *globalOptions) error {
	client, cfg, err := newClient(g)
	if err != nil {
		return err
	}
	defer client.Stop()

	splits, err := planSplits(context.Background(), client, cfg, cmd.Collection, cmd.Field, &cmd.planOptions)
	if err != nil {
		return err
	}

	displaySplits(splits)
	return nil
}

func displaySplits(splits []shardsplit.Split) {
	var total int64

	table := tablewriter.NewTable(os.Stdout)
	table.Header("shard", "filter", "hits")
	for _, s := range splits {
		table.Append([]string{s.Shard(), s.FilterQuery(), humanize.Comma(s.Hits())})
		total += s.Hits()
	}
	table.Render()

	fmt.Printf("%d splits, %s documents\n", len(splits), humanize.Comma(total))
}
