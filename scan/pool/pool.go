package pool

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/vthacker/solrscan/pkg/util"
)

const queueLengthReportDuration = 15 * time.Second

var (
	metricScanQueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "solrscan",
		Name:      "scan_queue_length",
		Help:      "Current length of the scan job queue.",
	})

	metricScanQueueMax = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "solrscan",
		Name:      "scan_queue_max",
		Help:      "Maximum number of items in the scan job queue.",
	})
)

type Config struct {
	MaxWorkers int `yaml:"max_workers"`
	QueueDepth int `yaml:"queue_depth"`
}

func (cfg *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.MaxWorkers, util.PrefixConfig(prefix, "max-workers"), 30, "Number of workers running scan jobs.")
	f.IntVar(&cfg.QueueDepth, util.PrefixConfig(prefix, "queue-depth"), 10000, "Maximum number of scan jobs waiting to run.")
}

func defaultConfig() *Config {
	return &Config{
		MaxWorkers: 30,
		QueueDepth: 10000,
	}
}

// JobFunc runs one job. Errors do not stop the other jobs in the batch.
type JobFunc func(ctx context.Context, payload interface{}) error

type job struct {
	ctx     context.Context
	payload interface{}
	fn      JobFunc

	wg   *sync.WaitGroup
	errs chan error
}

// Pool runs batches of jobs over a fixed set of workers. Unlike a
// first-result pool, every job in a batch runs to completion and all
// failures come back combined.
type Pool struct {
	cfg     *Config
	size    *atomic.Int32
	stopped *atomic.Bool

	workQueue chan *job
	stopCh    chan struct{}
}

func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = defaultConfig()
	}

	q := make(chan *job, cfg.QueueDepth)
	p := &Pool{
		cfg:       cfg,
		size:      atomic.NewInt32(0),
		stopped:   atomic.NewBool(false),
		workQueue: q,
		stopCh:    make(chan struct{}),
	}

	for i := 0; i < cfg.MaxWorkers; i++ {
		go p.worker(q)
	}
	go p.reportQueueLength()

	metricScanQueueMax.Set(float64(cfg.QueueDepth))

	return p
}

// RunJobs queues one job per payload and waits for all of them to finish.
// The returned error combines every job failure; a single failure does not
// stop the rest.
func (p *Pool) RunJobs(ctx context.Context, payloads []interface{}, fn JobFunc) error {
	if p.stopped.Load() {
		return fmt.Errorf("pool is stopped")
	}

	totalJobs := len(payloads)

	// sanity check before we even attempt to start adding jobs
	if int(p.size.Load())+totalJobs > p.cfg.QueueDepth {
		return fmt.Errorf("queue doesn't have room for %d jobs", totalJobs)
	}

	wg := &sync.WaitGroup{}
	errs := make(chan error, totalJobs)

	wg.Add(totalJobs)
	// add each job one at a time. even though we checked length above these
	// might still fail
	queued := 0
	for _, payload := range payloads {
		j := &job{
			ctx:     ctx,
			payload: payload,
			fn:      fn,
			wg:      wg,
			errs:    errs,
		}

		select {
		case p.workQueue <- j:
			p.size.Inc()
			queued++
		default:
			// let the jobs already queued drain their wg slots
			wg.Add(queued - totalJobs)
			return fmt.Errorf("failed to add a job to work queue")
		}
	}

	wg.Wait()
	close(errs)

	all := make([]error, 0, len(errs))
	for err := range errs {
		all = append(all, err)
	}
	return multierr.Combine(all...)
}

// Shutdown stops the workers once the queue drains. Jobs submitted after
// Shutdown fail.
func (p *Pool) Shutdown() {
	p.stopped.Store(true)
	close(p.workQueue)
	close(p.stopCh)
}

func (p *Pool) worker(q <-chan *job) {
	for j := range q {
		p.size.Dec()

		if err := j.ctx.Err(); err != nil {
			j.errs <- err
			j.wg.Done()
			continue
		}

		if err := j.fn(j.ctx, j.payload); err != nil {
			j.errs <- err
		}
		j.wg.Done()
	}
}

func (p *Pool) reportQueueLength() {
	ticker := time.NewTicker(queueLengthReportDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			metricScanQueueLength.Set(float64(p.size.Load()))
		case <-p.stopCh:
			return
		}
	}
}
