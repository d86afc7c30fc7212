package hedgedmetrics

import (
	"time"

	"github.com/cristalhq/hedgedhttp"
	"github.com/prometheus/client_golang/prometheus"
)

const hedgedMetricsPublishDuration = 10 * time.Second

// Publish flushes the count of hedged requests from the given stats to the
// counter on a fixed interval. The counter only advances by the number of
// extra round trips, never by the requested ones.
func Publish(s *hedgedhttp.Stats, counter prometheus.Counter) {
	publishWithDuration(s, counter, hedgedMetricsPublishDuration)
}

func publishWithDuration(s *hedgedhttp.Stats, counter prometheus.Counter, d time.Duration) {
	ticker := time.NewTicker(d)
	go func() {
		var last int64
		for range ticker.C {
			snap := s.Snapshot()
			extra := int64(snap.ActualRoundTrips) - int64(snap.RequestedRoundTrips)
			if extra < 0 {
				extra = 0
			}
			if delta := extra - last; delta > 0 {
				counter.Add(float64(delta))
			}
			last = extra
		}
	}()
}
