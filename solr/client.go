package solr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cristalhq/hedgedhttp"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vthacker/solrscan/pkg/cache"
	"github.com/vthacker/solrscan/pkg/hedgedmetrics"
	util_log "github.com/vthacker/solrscan/pkg/util/log"
)

const selectPath = "/select"

const (
	cacheKeyPrefixFieldStats = "fs:"
	cacheKeyPrefixCount      = "ct:"
)

var (
	metricRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "solrscan",
		Name:      "solr_request_duration_seconds",
		Help:      "Duration of requests to Solr in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status_code"})
	metricHedgedRoundTrips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "solrscan",
		Name:      "solr_hedged_roundtrips_total",
		Help:      "Total number of hedged requests to Solr.",
	})
	metricCacheOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solrscan",
		Name:      "solr_stats_cache_total",
		Help:      "Total stats cache lookups by outcome.",
	}, []string{"outcome"})
)

// ErrNotFound means the queried core or handler does not exist.
var ErrNotFound = errors.New("resource not found")

// Client talks to Solr over the select and collections APIs. One Client is
// shared across shards; per shard sessions come from Shard.
type Client struct {
	cfg    *Config
	client *http.Client
	cache  cache.Cache
	logger log.Logger
}

// New builds a Client from cfg, including the cache backend cfg names.
func New(cfg *Config, logger log.Logger) (*Client, error) {
	statsCache, err := cache.New(&cfg.Cache, prometheus.DefaultRegisterer, logger)
	if err != nil {
		return nil, err
	}
	return NewWithCache(cfg, statsCache, logger)
}

// NewWithCache builds a Client with the given stats cache, which may be nil.
// The Client owns the cache and stops it on Stop.
func NewWithCache(cfg *Config, statsCache cache.Cache, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = util_log.Logger
	}

	transport := gzhttp.Transport(http.DefaultTransport)
	var rt http.RoundTripper = otelhttp.NewTransport(transport)

	if cfg.HedgeRequestsAt != 0 {
		var (
			stats *hedgedhttp.Stats
			err   error
		)
		rt, stats, err = hedgedhttp.NewRoundTripperAndStats(cfg.HedgeRequestsAt, cfg.HedgeRequestsUpTo, rt)
		if err != nil {
			return nil, err
		}
		hedgedmetrics.Publish(stats, metricHedgedRoundTrips)
	}

	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: rt,
		},
		cache:  statsCache,
		logger: logger,
	}, nil
}

// Stop releases the client's resources.
func (c *Client) Stop() {
	c.client.CloseIdleConnections()
	if c.cache != nil {
		c.cache.Stop()
	}
}

// CloseIdleConnections drops pooled connections. Shard sessions call this on
// Close so a finished shard does not pin sockets.
func (c *Client) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}

// ShardConn scopes queries to one shard replica URL. It exists so one shard's
// planning session can be released independently of the shared Client.
type ShardConn struct {
	c   *Client
	url string
}

// Shard returns a session scoped to the replica at shardURL, e.g.
// http://host:8983/solr/collection_shard1_replica_n1.
func (c *Client) Shard(shardURL string) *ShardConn {
	return &ShardConn{c: c, url: strings.TrimSuffix(shardURL, "/")}
}

func (s *ShardConn) URL() string {
	return s.url
}

func (s *ShardConn) FieldStats(ctx context.Context, q *Query, field string) (*FieldStats, error) {
	return s.c.FieldStats(ctx, s.url, q, field)
}

func (s *ShardConn) Count(ctx context.Context, q *Query) (int64, error) {
	return s.c.Count(ctx, s.url, q)
}

func (s *ShardConn) SelectPage(ctx context.Context, q *Query) (*Page, error) {
	return s.c.SelectPage(ctx, s.url, q)
}

// Close releases the session's connections. Safe to call on every exit path.
func (s *ShardConn) Close() {
	s.c.CloseIdleConnections()
}

// FieldStats runs a zero row stats query for field against the core at
// shardURL. The query is normalized to shard local execution: no rows, no
// cursor, distrib=false.
func (c *Client) FieldStats(ctx context.Context, shardURL string, q *Query, field string) (*FieldStats, error) {
	sq := q.Clone().
		SetRows(0).
		SetStart(0).
		ClearCursorMark().
		SetDistrib(false).
		WithStats(field)

	key := queryCacheKey(cacheKeyPrefixFieldStats, shardURL, sq)
	if buf, ok := c.cacheFetch(ctx, key); ok {
		stats := &FieldStats{}
		if err := jsoniter.Unmarshal(buf, stats); err == nil {
			return stats, nil
		}
		level.Warn(c.logger).Log("msg", "discarding undecodable cached field stats", "key", key)
	}

	body, err := c.doRequest(ctx, shardURL+selectPath+"?"+sq.Encode())
	if err != nil {
		return nil, err
	}

	resp := &selectResponse{}
	if err := jsoniter.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("error decoding stats response: %w", err)
	}
	if resp.Stats == nil {
		return nil, fmt.Errorf("stats section missing from response for field %s", field)
	}
	entry, ok := resp.Stats.StatsFields[field]
	if !ok {
		return nil, fmt.Errorf("no stats returned for field %s", field)
	}

	stats := &FieldStats{
		Field:   field,
		Min:     entry.Min,
		Max:     entry.Max,
		Count:   entry.Count,
		Missing: entry.Missing,
	}
	c.cacheStore(ctx, key, stats)
	return stats, nil
}

// Count returns the number of documents matching q in the core at shardURL,
// using a zero row shard local query.
func (c *Client) Count(ctx context.Context, shardURL string, q *Query) (int64, error) {
	cq := q.Clone().
		SetRows(0).
		SetStart(0).
		ClearCursorMark().
		SetDistrib(false)

	key := queryCacheKey(cacheKeyPrefixCount, shardURL, cq)
	if buf, ok := c.cacheFetch(ctx, key); ok {
		if n, err := strconv.ParseInt(string(buf), 10, 64); err == nil {
			return n, nil
		}
		level.Warn(c.logger).Log("msg", "discarding undecodable cached count", "key", key)
	}

	body, err := c.doRequest(ctx, shardURL+selectPath+"?"+cq.Encode())
	if err != nil {
		return 0, err
	}

	resp := &selectResponse{}
	if err := jsoniter.Unmarshal(body, resp); err != nil {
		return 0, fmt.Errorf("error decoding count response: %w", err)
	}

	if key != "" && c.cache != nil {
		c.cache.Store(ctx, key, []byte(strconv.FormatInt(resp.Response.NumFound, 10)))
	}
	return resp.Response.NumFound, nil
}

// SelectPage fetches one page of documents. The query must carry a cursor
// mark and a sort on the unique key.
func (c *Client) SelectPage(ctx context.Context, shardURL string, q *Query) (*Page, error) {
	body, err := c.doRequest(ctx, shardURL+selectPath+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	resp := &selectResponse{}
	if err := jsoniter.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("error decoding select response: %w", err)
	}

	return &Page{
		Docs:           resp.Response.Docs,
		NumFound:       resp.Response.NumFound,
		NextCursorMark: resp.NextCursorMark,
	}, nil
}

// doRequest issues a GET and handles bad status codes. The caller owns URL
// construction including query parameters.
func (c *Client) doRequest(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	statusCode := "error"
	defer func() {
		metricRequestDuration.WithLabelValues(statusCode).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("solr request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	statusCode = strconv.Itoa(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.URL.Path)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET request to %s failed with response: %d body: %s", req.URL.String(), resp.StatusCode, string(body))
	}

	return body, nil
}

func (c *Client) cacheFetch(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil || key == "" {
		return nil, false
	}
	buf, ok := c.cache.FetchKey(ctx, key)
	if ok {
		metricCacheOutcome.WithLabelValues("hit").Inc()
	} else {
		metricCacheOutcome.WithLabelValues("miss").Inc()
	}
	return buf, ok
}

func (c *Client) cacheStore(ctx context.Context, key string, v interface{}) {
	if c.cache == nil || key == "" {
		return
	}
	buf, err := jsoniter.Marshal(v)
	if err != nil {
		return
	}
	c.cache.Store(ctx, key, buf)
}

// queryCacheKey builds a stable key for one shard scoped query. An empty key
// means the result cannot be cached.
func queryCacheKey(prefix, shardURL string, q *Query) string {
	if shardURL == "" {
		return ""
	}

	h := xxhash.New()
	_, _ = h.WriteString(shardURL)
	_, _ = h.WriteString("?")
	_, _ = h.WriteString(q.Encode())

	sb := strings.Builder{}
	sb.Grow(len(prefix) + 20) // 20 for the uint64
	sb.WriteString(prefix)
	sb.WriteString(strconv.FormatUint(h.Sum64(), 10))

	return sb.String()
}
