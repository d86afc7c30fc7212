package shardsplit

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vthacker/solrscan/solr"
)

var tracer = otel.Tracer("shardsplit")

var metricPlanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "solrscan",
	Name:      "plan_duration_seconds",
	Help:      "Time taken to plan the splits of one shard.",
	Buckets:   prometheus.ExponentialBuckets(.25, 2, 10),
})

// Splitter plans the splits of one shard at a time. It is stateless across
// shards and safe for concurrent use as long as the GatewayFunc is.
type Splitter struct {
	cfg      Config
	splitter FieldSplitter
	gateway  GatewayFunc
	reporter Reporter
	logger   log.Logger
}

func New(cfg Config, fs FieldSplitter, gw GatewayFunc, reporter Reporter, logger log.Logger) *Splitter {
	return &Splitter{
		cfg:      cfg,
		splitter: fs,
		gateway:  gw,
		reporter: reporter,
		logger:   logger,
	}
}

// Splits partitions one shard into roughly splitsPerShard balanced splits
// over field, using the field's stats as the only size signal. Every query
// runs on one connection to the shard, released before return. Failures
// propagate unwrapped in meaning: a failed stats or count query fails the
// plan.
func (p *Splitter) Splits(ctx context.Context, shard string, base *solr.Query, field string, splitsPerShard int) ([]Split, error) {
	ctx, span := tracer.Start(ctx, "shardsplit.Splits")
	defer span.End()
	span.SetAttributes(attribute.String("shard", shard), attribute.String("field", field))

	start := time.Now()
	defer func() { metricPlanDuration.Observe(time.Since(start).Seconds()) }()

	if splitsPerShard < 1 {
		splitsPerShard = 1
	}

	gw, err := p.gateway(shard)
	if err != nil {
		return nil, errors.Wrapf(err, "acquiring connection to %s", shard)
	}
	defer gw.Close()

	stats, err := gw.FieldStats(ctx, base, field)
	if err != nil {
		return nil, errors.Wrapf(err, "stats for field %s on %s", field, shard)
	}

	whole, err := p.splitter.InitialSplit(shard, base, field, stats)
	if err != nil {
		return nil, err
	}

	docsPerSplit := round(float64(stats.Count) / float64(splitsPerShard))

	var splits []Split
	if stats.Count == 0 || !stats.HasBounds() {
		// nothing to divide: one split covers every valued document
		level.Debug(p.logger).Log("msg", "field stats unusable, planning a single split", "shard", shard, "field", field, "count", stats.Count)
		splits = []Split{whole}
	} else {
		splits, err = whole.ReSplit(ctx, gw, docsPerSplit)
		if err != nil {
			return nil, err
		}

		threshold := round(float64(docsPerSplit) * p.cfg.OversizeFactor)
		for pass := 0; pass < p.cfg.BalancePasses; pass++ {
			splits, err = p.balance(ctx, gw, splits, docsPerSplit, threshold)
			if err != nil {
				return nil, err
			}
		}
		splits = p.joinNonAdjacentSmallSplits(splits, threshold)
	}

	splits, err = p.appendMissing(ctx, gw, shard, base, field, stats, docsPerSplit, splits)
	if err != nil {
		return nil, err
	}

	p.report(shard, field, splits, time.Since(start))

	return splits, nil
}

// appendMissing adds the catch-all split for documents with no value in the
// split field. The count comes from the stats response when present and from
// one dedicated count query otherwise.
func (p *Splitter) appendMissing(ctx context.Context, gw Gateway, shard string, base *solr.Query, field string, stats *solr.FieldStats, docsPerSplit int64, splits []Split) ([]Split, error) {
	var missing int64
	if stats.Missing != nil {
		missing = *stats.Missing
	} else {
		n, err := gw.Count(ctx, base.Clone().AddFilter(solr.NotExistsFilter(field)))
		if err != nil {
			return nil, errors.Wrapf(err, "counting documents missing %s", field)
		}
		missing = n
	}

	if missing == 0 {
		return splits, nil
	}
	if missing > 2*docsPerSplit {
		p.reporter.MissingOversized(shard, field, missing, docsPerSplit)
	}

	return append(splits, newMissingSplit(shard, field, missing)), nil
}

func (p *Splitter) report(shard, field string, splits []Split, elapsed time.Duration) {
	if len(splits) > 0 {
		var total int64
		for _, s := range splits {
			total += s.Hits()
		}
		avg := round(float64(total) / float64(len(splits)))
		if avg > 0 {
			warnAt := round(float64(avg) * p.cfg.OutlierFactor)
			for _, s := range splits {
				if s.Hits() > warnAt {
					pct := round((float64(s.Hits())/float64(avg) - 1) * 100)
					p.reporter.SplitOversized(s, avg, pct)
				}
			}
		}
	}

	p.reporter.SplitsPlanned(shard, field, len(splits), elapsed)
}
