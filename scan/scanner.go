package scan

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vthacker/solrscan/scan/pool"
	"github.com/vthacker/solrscan/shardsplit"
	"github.com/vthacker/solrscan/solr"
)

var tracer = otel.Tracer("scan")

var (
	metricDocsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "solrscan",
		Name:      "docs_scanned_total",
		Help:      "Total number of documents read from splits.",
	})
	metricSplitsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solrscan",
		Name:      "splits_scanned_total",
		Help:      "Total number of splits scanned by outcome.",
	}, []string{"status"})
)

// Pager reads one page of documents from a shard.
type Pager interface {
	SelectPage(ctx context.Context, shardURL string, q *solr.Query) (*solr.Page, error)
}

// PageFunc receives each page of documents from one split, in cursor order.
// It is called from multiple workers, one split at a time each.
type PageFunc func(ctx context.Context, split shardsplit.Split, docs []jsoniter.RawMessage) error

// Scanner reads every document of every split, feeding pages to a callback.
// Splits scan concurrently, pages within a split sequentially.
type Scanner struct {
	cfg    Config
	pager  Pager
	pool   *pool.Pool
	logger log.Logger
}

func New(cfg Config, pager Pager, logger log.Logger) *Scanner {
	return &Scanner{
		cfg:    cfg,
		pager:  pager,
		pool:   pool.NewPool(&cfg.Pool),
		logger: logger,
	}
}

func (s *Scanner) Stop() {
	s.pool.Shutdown()
}

// Scan runs every split to completion, even when some fail, and returns the
// combined failures. base must be the query the splits were planned for.
func (s *Scanner) Scan(ctx context.Context, base *solr.Query, splits []shardsplit.Split, fn PageFunc) error {
	ctx, span := tracer.Start(ctx, "scan.Scan")
	defer span.End()

	runID := uuid.New().String()
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("splits", len(splits)))

	level.Info(s.logger).Log("msg", "starting scan", "run_id", runID, "splits", len(splits))
	start := time.Now()

	payloads := make([]interface{}, 0, len(splits))
	for _, sp := range splits {
		payloads = append(payloads, sp)
	}

	err := s.pool.RunJobs(ctx, payloads, func(ctx context.Context, payload interface{}) error {
		return s.scanSplit(ctx, runID, base, payload.(shardsplit.Split), fn)
	})
	if err != nil {
		level.Error(s.logger).Log("msg", "scan finished with failures", "run_id", runID, "elapsed", time.Since(start), "err", err)
		return err
	}

	level.Info(s.logger).Log("msg", "scan finished", "run_id", runID, "splits", len(splits), "elapsed", time.Since(start))
	return nil
}

func (s *Scanner) scanSplit(ctx context.Context, runID string, base *solr.Query, split shardsplit.Split, fn PageFunc) error {
	ctx, span := tracer.Start(ctx, "scan.Split")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("shard", split.Shard()),
		attribute.String("fq", split.FilterQuery()),
	)

	q := base.Clone().
		AddFilter(split.FilterQuery()).
		SetRows(s.cfg.Rows).
		SetSort(s.cfg.SortField + " asc").
		SetDistrib(false)

	var scanned int64
	mark := "*"
	for {
		page, err := s.pager.SelectPage(ctx, split.Shard(), q.Clone().SetCursorMark(mark))
		if err != nil {
			metricSplitsScanned.WithLabelValues("failed").Inc()
			return errors.Wrapf(err, "scanning split %s", split.FilterQuery())
		}

		if len(page.Docs) > 0 {
			if err := fn(ctx, split, page.Docs); err != nil {
				metricSplitsScanned.WithLabelValues("failed").Inc()
				return errors.Wrapf(err, "handling page of split %s", split.FilterQuery())
			}
			scanned += int64(len(page.Docs))
			metricDocsScanned.Add(float64(len(page.Docs)))
		}

		// the cursor is exhausted when the next mark stops moving
		if page.NextCursorMark == "" || page.NextCursorMark == mark {
			break
		}
		mark = page.NextCursorMark
	}

	metricSplitsScanned.WithLabelValues("ok").Inc()
	level.Debug(s.logger).Log("msg", "split scanned", "run_id", runID, "shard", split.Shard(), "fq", split.FilterQuery(), "docs", scanned)
	return nil
}
