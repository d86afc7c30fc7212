package main

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/vthacker/solrscan/solr"
)

type fieldStatsCmd struct {
	Collection string `arg:"" help:"Collection to inspect."`
	Field      string `arg:"" help:"Field to fetch stats for."`

	Query string `short:"q" default:"*:*" help:"Base query every document must match."`
}

func (cmd *fieldStatsCmd) Run(g *globalOptions) error {
	client, _, err := newClient(g)
	if err != nil {
		return err
	}
	defer client.Stop()

	ctx := context.Background()

	shards, err := client.ClusterShards(ctx, cmd.Collection)
	if err != nil {
		return err
	}

	base := solr.NewQuery(cmd.Query)

	table := tablewriter.NewTable(os.Stdout)
	table.Header("shard", "count", "missing", "min", "max")
	for _, s := range shards {
		stats, err := client.FieldStats(ctx, s.ActiveReplicaURL(), base, cmd.Field)
		if err != nil {
			return err
		}

		missing := "-"
		if stats.Missing != nil {
			missing = humanize.Comma(*stats.Missing)
		}

		table.Append([]string{s.Name, humanize.Comma(stats.Count), missing, string(stats.Min), string(stats.Max)})
	}
	table.Render()
	return nil
}
