package shardsplit

import (
	"context"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fsplit(fq string, hits int64) Split {
	return &filterSplit{shard: testShardURL, field: "id", fq: fq, hits: hits}
}

func splitHits(splits []Split) []int64 {
	out := make([]int64, 0, len(splits))
	for _, s := range splits {
		out = append(out, s.Hits())
	}
	return out
}

func splitFilters(splits []Split) []string {
	out := make([]string, 0, len(splits))
	for _, s := range splits {
		out = append(out, s.FilterQuery())
	}
	return out
}

func TestBalanceJoinsNeighbors(t *testing.T) {
	p := newTestSplitter(&recordingReporter{}, nil)

	splits, err := p.balance(context.Background(), nil, []Split{
		fsplit("id:[0 TO 10}", 100),
		fsplit("id:[10 TO 20}", 100),
		fsplit("id:[20 TO 30}", 100),
		fsplit("id:[30 TO *]", 1_000),
	}, 10_000, 250)
	require.NoError(t, err)

	// the first two stay under the threshold together, the third tips over
	assert.Equal(t, []int64{200, 100, 1_000}, splitHits(splits))
	assert.Equal(t, "id:[0 TO 10} OR id:[10 TO 20}", splits[0].FilterQuery())
}

func TestBalanceKeepsRangeSemanticsOnAdjacentJoin(t *testing.T) {
	p := newTestSplitter(&recordingReporter{}, nil)

	splits, err := p.balance(context.Background(), nil, []Split{
		newInt64Split(nil, int64p(100), 40),
		newInt64Split(int64p(100), int64p(200), 50),
	}, 10_000, 250)
	require.NoError(t, err)

	require.Len(t, splits, 1)
	assert.Equal(t, "id:[* TO 200}", splits[0].FilterQuery())
	assert.NotContains(t, splits[0].FilterQuery(), " OR ")
	assert.Equal(t, int64(90), splits[0].Hits())
}

func TestBalanceResplitsOversizedRange(t *testing.T) {
	values := make([]int64, 0, 1_000)
	for i := 0; i < 1_000; i++ {
		values = append(values, int64(i))
	}
	shard := &fakeShard{values: values}
	p := newTestSplitter(&recordingReporter{}, nil)

	splits, err := p.balance(context.Background(), shard, []Split{newInt64Split(nil, nil, 1_000)}, 250, 295)
	require.NoError(t, err)

	require.Len(t, splits, 4)
	assert.Equal(t, 4, shard.countQueries)
	var total int64
	for _, s := range splits {
		total += s.Hits()
	}
	assert.Equal(t, int64(1_000), total)
}

func TestBalanceLeavesUnsplittableOversized(t *testing.T) {
	p := newTestSplitter(&recordingReporter{}, nil)

	big := fsplit("id:[0 TO *]", 1_000)
	splits, err := p.balance(context.Background(), nil, []Split{big}, 500, 590)
	require.NoError(t, err)

	// past the trigger but with no bounds to divide, it stays as is
	require.Len(t, splits, 1)
	assert.Same(t, big, splits[0])
}

func TestSweepJoinsNonAdjacentSmallSplits(t *testing.T) {
	p := newTestSplitter(&recordingReporter{}, nil)

	splits := p.joinNonAdjacentSmallSplits([]Split{
		fsplit("id:[0 TO 1}", 10),
		fsplit("id:[1 TO 2}", 10),
		fsplit("id:[2 TO 3}", 10),
		fsplit("id:[3 TO 4}", 200_000),
		fsplit("id:[4 TO *]", 20),
	}, 295_000)

	require.Equal(t, []int64{50, 200_000}, splitHits(splits))
	assert.True(t, strings.Contains(splits[0].FilterQuery(), "id:[4 TO *]"), "the sweep joins across the big split")
}

func TestSweepIdempotent(t *testing.T) {
	p := newTestSplitter(&recordingReporter{}, nil)

	first := p.joinNonAdjacentSmallSplits([]Split{
		fsplit("id:[0 TO 1}", 10),
		fsplit("id:[1 TO 2}", 10),
		fsplit("id:[2 TO 3}", 10),
		fsplit("id:[3 TO 4}", 200_000),
		fsplit("id:[4 TO *]", 20),
	}, 295_000)
	firstHits := splitHits(first)
	firstFilters := splitFilters(first)

	second := p.joinNonAdjacentSmallSplits(first, 295_000)
	require.Empty(t, deep.Equal(firstHits, splitHits(second)))
	require.Empty(t, deep.Equal(firstFilters, splitFilters(second)))
}

func TestSweepStopsOnceBig(t *testing.T) {
	p := newTestSplitter(&recordingReporter{}, nil)

	first := p.joinNonAdjacentSmallSplits([]Split{
		fsplit("id:[0 TO 3}", 150_000),
		fsplit("id:[3 TO 6}", 150_000),
		fsplit("id:[6 TO *]", 20_000),
	}, 295_000)

	// the joined pair crosses the small line, so the trailing split is left
	// alone
	require.Equal(t, []int64{300_000, 20_000}, splitHits(first))

	second := p.joinNonAdjacentSmallSplits(first, 295_000)
	require.Empty(t, deep.Equal(splitHits(first), splitHits(second)))
}
