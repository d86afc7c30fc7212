package main

import (
	"github.com/alecthomas/kong"
)

type globalOptions struct {
	ConfigFile string `type:"path" short:"c" help:"Path to a solrscan config file."`
	ExpandEnv  bool   `help:"Expand ${VAR} references in the config file."`

	Endpoint  string `short:"e" help:"Base URL of a Solr node, overrides the config file."`
	LogLevel  string `default:"info" enum:"debug,info,warn,error" help:"Log level."`
	LogFormat string `default:"logfmt" enum:"logfmt,json" help:"Log format."`
}

var cli struct {
	globalOptions

	Plan   planCmd       `cmd:"" help:"Plan balanced splits for every shard of a collection."`
	Scan   scanCmd       `cmd:"" help:"Plan splits and stream every matching document through them."`
	Shards listShardsCmd `cmd:"" help:"List the shards of a collection with their replicas."`
	Stats  fieldStatsCmd `cmd:"" help:"Show stats of a field on every shard of a collection."`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("solrscan-cli"),
		kong.Description("Plans balanced shard splits and runs full collection scans against SolrCloud."),
		kong.UsageOnError(),
	)

	ctx.FatalIfErrorf(initLogger(&cli.globalOptions))

	err := ctx.Run(&cli.globalOptions)
	ctx.FatalIfErrorf(err)
}
