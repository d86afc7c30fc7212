package shardsplit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vthacker/solrscan/solr"
)

func int64p(v int64) *int64 { return &v }

func newInt64Split(lower, upper *int64, hits int64) *rangeSplit[int64] {
	statsLo, statsHi := int64(0), int64(999)
	return &rangeSplit[int64]{
		shard:   testShardURL,
		field:   "id",
		dom:     int64Domain{},
		base:    solr.NewQuery(""),
		lower:   lower,
		upper:   upper,
		statsLo: &statsLo,
		statsHi: &statsHi,
		hits:    hits,
	}
}

func TestRangeSplitFilterQuery(t *testing.T) {
	assert.Equal(t, "id:[* TO *]", newInt64Split(nil, nil, 0).FilterQuery())
	assert.Equal(t, "id:[10 TO *]", newInt64Split(int64p(10), nil, 0).FilterQuery())
	assert.Equal(t, "id:[10 TO 20}", newInt64Split(int64p(10), int64p(20), 0).FilterQuery())

	lo := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	dateSplit := &rangeSplit[time.Time]{field: "ts", dom: dateDomain{}, lower: &lo, upper: &hi}
	assert.Equal(t, "ts:[2021-01-01T00:00:00.000Z TO 2021-06-01T00:00:00.000Z}", dateSplit.FilterQuery())

	a, b := "a b", "c"
	strSplit := &rangeSplit[string]{field: "name", dom: stringDomain{}, lower: &a, upper: &b}
	assert.Equal(t, `name:[a\ b TO c}`, strSplit.FilterQuery())
}

func TestRangeSplitKey(t *testing.T) {
	s := newInt64Split(int64p(10), int64p(20), 5)
	assert.NotEmpty(t, s.Key())
	assert.Equal(t, s.Key(), newInt64Split(int64p(10), int64p(20), 99).Key(), "the key ignores hits")
	assert.NotEqual(t, s.Key(), newInt64Split(int64p(10), int64p(30), 5).Key())
}

func TestRangeSplitReSplit(t *testing.T) {
	values := make([]int64, 0, 1_000)
	for i := 0; i < 1_000; i++ {
		values = append(values, int64(i))
	}
	shard := &fakeShard{values: values}

	whole := newInt64Split(nil, nil, 1_000)
	children, err := whole.ReSplit(context.Background(), shard, 250)
	require.NoError(t, err)

	require.Len(t, children, 4)
	assert.Equal(t, 4, shard.countQueries)

	// the ends inherit the parent's open bounds
	assert.Equal(t, "id:[* TO 249}", children[0].FilterQuery())
	assert.Equal(t, "id:[747 TO *]", children[3].FilterQuery())

	verifyPartition(t, shard, children)
}

func TestRangeSplitReSplitKeepsParentBounds(t *testing.T) {
	values := make([]int64, 0, 1_000)
	for i := 0; i < 1_000; i++ {
		values = append(values, int64(i))
	}
	shard := &fakeShard{values: values}

	s := newInt64Split(int64p(100), int64p(900), 800)
	children, err := s.ReSplit(context.Background(), shard, 400)
	require.NoError(t, err)

	require.Len(t, children, 2)
	assert.Equal(t, "id:[100 TO 500}", children[0].FilterQuery())
	assert.Equal(t, "id:[500 TO 900}", children[1].FilterQuery())
	assert.Equal(t, int64(400), children[0].Hits())
	assert.Equal(t, int64(400), children[1].Hits())
}

func TestRangeSplitReSplitBelowTarget(t *testing.T) {
	shard := &fakeShard{}

	s := newInt64Split(nil, nil, 300)
	children, err := s.ReSplit(context.Background(), shard, 250)
	require.NoError(t, err)

	// round(300/250) is 1, nothing to divide
	require.Len(t, children, 1)
	assert.Same(t, s, children[0].(*rangeSplit[int64]))
	assert.Equal(t, 0, shard.countQueries)
}

func TestRangeSplitReSplitNoBounds(t *testing.T) {
	s := newInt64Split(nil, nil, 1_000)
	s.statsLo, s.statsHi = nil, nil

	children, err := s.ReSplit(context.Background(), &fakeShard{}, 250)
	require.NoError(t, err)
	require.Len(t, children, 1)
}

func TestRangeSplitReSplitCountErrorPropagates(t *testing.T) {
	shard := &fakeShard{countErr: fmt.Errorf("blerg")}

	s := newInt64Split(nil, nil, 1_000)
	_, err := s.ReSplit(context.Background(), shard, 250)
	require.ErrorContains(t, err, "blerg")
}

func TestJoinAdjacent(t *testing.T) {
	a := newInt64Split(nil, int64p(100), 40)
	b := newInt64Split(int64p(100), int64p(200), 50)

	joined, ok := a.JoinAdjacent(b)
	require.True(t, ok)
	assert.Equal(t, "id:[* TO 200}", joined.FilterQuery())
	assert.Equal(t, int64(90), joined.Hits())

	// order does not matter
	joined, ok = b.JoinAdjacent(a)
	require.True(t, ok)
	assert.Equal(t, "id:[* TO 200}", joined.FilterQuery())
	assert.Equal(t, int64(90), joined.Hits())
}

func TestJoinAdjacentRejectsGaps(t *testing.T) {
	a := newInt64Split(nil, int64p(100), 40)
	b := newInt64Split(int64p(150), int64p(200), 50)

	_, ok := a.JoinAdjacent(b)
	assert.False(t, ok)
	_, ok = b.JoinAdjacent(a)
	assert.False(t, ok)
}

func TestJoinAdjacentRejectsStrangers(t *testing.T) {
	a := newInt64Split(nil, int64p(100), 40)

	other := newInt64Split(int64p(100), int64p(200), 50)
	other.shard = "http://solr-2:8983/solr/docs_shard2_replica_n1"
	_, ok := a.JoinAdjacent(other)
	assert.False(t, ok, "different shards never join")

	otherField := newInt64Split(int64p(100), int64p(200), 50)
	otherField.field = "price"
	_, ok = a.JoinAdjacent(otherField)
	assert.False(t, ok, "different fields never join")

	_, ok = a.JoinAdjacent(&filterSplit{shard: testShardURL, field: "id", fq: "id:[100 TO 200}", hits: 50})
	assert.False(t, ok, "filter splits have no bounds to join on")

	unbounded := newInt64Split(nil, int64p(300), 10)
	_, ok = a.JoinAdjacent(unbounded)
	assert.False(t, ok, "two open lower bounds overlap rather than touch")
}
