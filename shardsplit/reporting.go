package shardsplit

import (
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSplitsPlanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "solrscan",
		Name:      "splits_planned_total",
		Help:      "Total number of splits planned.",
	})
	metricSizeWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solrscan",
		Name:      "split_size_warnings_total",
		Help:      "Total number of size warnings raised while planning.",
	}, []string{"kind"})
)

// Reporter receives notable planning outcomes. Planning is synchronous, so
// implementations must not block.
type Reporter interface {
	// SplitsPlanned fires once per shard after planning completes.
	SplitsPlanned(shard, field string, splits int, elapsed time.Duration)
	// SplitOversized fires for each split whose hits stand out from the
	// shard average. pct is how far above the average, in whole percent.
	SplitOversized(split Split, avg, pct int64)
	// MissingOversized fires when the missing value bucket dwarfs the per
	// split target.
	MissingOversized(shard, field string, missing, docsPerSplit int64)
}

// LogReporter logs planning outcomes and keeps the planning counters.
type LogReporter struct {
	logger log.Logger
}

var _ Reporter = (*LogReporter)(nil)

func NewLogReporter(logger log.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) SplitsPlanned(shard, field string, splits int, elapsed time.Duration) {
	metricSplitsPlanned.Add(float64(splits))
	level.Info(r.logger).Log("msg", "planned splits", "shard", shard, "field", field, "splits", splits, "elapsed", elapsed)
}

func (r *LogReporter) SplitOversized(split Split, avg, pct int64) {
	metricSizeWarnings.WithLabelValues("oversized_split").Inc()
	level.Warn(r.logger).Log("msg", "split is much larger than the shard average", "shard", split.Shard(), "fq", split.FilterQuery(), "hits", split.Hits(), "avg", avg, "pct_above_avg", pct)
}

func (r *LogReporter) MissingOversized(shard, field string, missing, docsPerSplit int64) {
	metricSizeWarnings.WithLabelValues("oversized_missing").Inc()
	level.Warn(r.logger).Log("msg", "many documents have no value in the split field", "shard", shard, "field", field, "missing", missing, "docs_per_split", docsPerSplit)
}
