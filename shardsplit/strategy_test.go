package shardsplit

import (
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vthacker/solrscan/solr"
)

func TestNewFieldSplitter(t *testing.T) {
	known := []string{
		"int", "pint", "tint", "long", "plong", "tlong",
		"float", "pfloat", "tfloat", "double", "pdouble", "tdouble",
		"date", "pdate", "tdate",
		"string", "str",
		"PLONG",
	}
	for _, ft := range known {
		_, err := NewFieldSplitter(ft)
		require.NoError(t, err, "field type %s", ft)
	}

	_, err := NewFieldSplitter("text_general")
	assert.Error(t, err)
}

func TestInitialSplitParsesBounds(t *testing.T) {
	stats := &solr.FieldStats{
		Field: "id",
		Count: 500,
		Min:   jsoniter.RawMessage(`10`),
		Max:   jsoniter.RawMessage(`99`),
	}

	s, err := Int64Splitter().InitialSplit(testShardURL, solr.NewQuery(""), "id", stats)
	require.NoError(t, err)

	rs := s.(*rangeSplit[int64])
	assert.Equal(t, int64(500), rs.Hits())
	assert.Equal(t, "id:[* TO *]", rs.FilterQuery())
	assert.Nil(t, rs.lower)
	assert.Nil(t, rs.upper)
	require.NotNil(t, rs.statsLo)
	require.NotNil(t, rs.statsHi)
	assert.Equal(t, int64(10), *rs.statsLo)
	assert.Equal(t, int64(99), *rs.statsHi)
}

func TestInitialSplitDateBounds(t *testing.T) {
	stats := &solr.FieldStats{
		Field: "ts",
		Count: 9,
		Min:   jsoniter.RawMessage(`"2020-01-01T00:00:00Z"`),
		Max:   jsoniter.RawMessage(`"2020-12-31T23:59:59.999Z"`),
	}

	s, err := DateSplitter().InitialSplit(testShardURL, solr.NewQuery(""), "ts", stats)
	require.NoError(t, err)

	rs := s.(*rangeSplit[time.Time])
	require.NotNil(t, rs.statsLo)
	require.NotNil(t, rs.statsHi)
	assert.Equal(t, "2020-01-01T00:00:00.000Z", rs.dom.Format(*rs.statsLo))
	assert.Equal(t, "2020-12-31T23:59:59.999Z", rs.dom.Format(*rs.statsHi))
}

func TestInitialSplitSkipsAbsentBounds(t *testing.T) {
	stats := &solr.FieldStats{Field: "id", Count: 0}

	s, err := Int64Splitter().InitialSplit(testShardURL, solr.NewQuery(""), "id", stats)
	require.NoError(t, err)

	rs := s.(*rangeSplit[int64])
	assert.Nil(t, rs.statsLo)
	assert.Nil(t, rs.statsHi)
}

func TestInitialSplitBadBounds(t *testing.T) {
	stats := &solr.FieldStats{
		Field: "id",
		Count: 5,
		Min:   jsoniter.RawMessage(`"blerg"`),
		Max:   jsoniter.RawMessage(`99`),
	}

	_, err := Int64Splitter().InitialSplit(testShardURL, solr.NewQuery(""), "id", stats)
	assert.Error(t, err)
}
