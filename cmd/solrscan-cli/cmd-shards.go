package main

import (
	"context"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

type listShardsCmd struct {
	Collection string `arg:"" help:"Collection to list."`
}

func (cmd *listShardsCmd) Run(g *globalOptions) error {
	client, _, err := newClient(g)
	if err != nil {
		return err
	}
	defer client.Stop()

	shards, err := client.ClusterShards(context.Background(), cmd.Collection)
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(os.Stdout)
	table.Header("shard", "state", "replicas", "url")
	for _, s := range shards {
		table.Append([]string{s.Name, s.State, strconv.Itoa(len(s.Replicas)), s.ActiveReplicaURL()})
	}
	table.Render()
	return nil
}
