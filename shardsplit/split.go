package shardsplit

import (
	"context"

	"github.com/vthacker/solrscan/solr"
)

// Split is one scannable slice of a shard: a filter query selecting its
// documents plus an estimated hit count. Splits are immutable; joins and
// re-splits produce new values.
type Split interface {
	// FilterQuery returns the filter selecting this split's documents. It is
	// applied on top of the base query the split was planned for.
	FilterQuery() string
	// Hits returns the estimated number of documents in the split.
	Hits() int64
	// Shard returns the shard URL the split partitions.
	Shard() string
	// Field returns the field the shard was split on.
	Field() string
	// Key returns a stable job key for downstream dedup, or "" when the
	// split is not keyable.
	Key() string
}

// RangeSplit is a Split with half open bound semantics: inclusive of its
// lower bound, exclusive of its upper, either end possibly unbounded. Range
// splits know how to refine themselves and how to join with an exactly
// contiguous neighbor.
type RangeSplit interface {
	Split
	// ReSplit divides the split into contiguous children targeting
	// docsPerSplit documents each, partitioning the receiver exactly. Each
	// child's hit count comes from one zero row count query. Returns the
	// receiver unchanged when no useful subdivision exists.
	ReSplit(ctx context.Context, gw Gateway, docsPerSplit int64) ([]Split, error)
	// JoinAdjacent returns a single range spanning both splits when other is
	// exactly contiguous with the receiver, in either order.
	JoinAdjacent(other Split) (Split, bool)
}

// Gateway executes shard scoped stats queries. Implementations must scope
// every query to one shard and must not retry failures: a failed query fails
// the whole plan. Close releases the shard's connection and is called on
// every exit path.
type Gateway interface {
	FieldStats(ctx context.Context, q *solr.Query, field string) (*solr.FieldStats, error)
	Count(ctx context.Context, q *solr.Query) (int64, error)
	Close()
}

// GatewayFunc acquires a gateway for one shard. The planner owns the
// returned gateway for the duration of one plan.
type GatewayFunc func(shard string) (Gateway, error)

// filterSplit is a split held together only by its filter query: the result
// of joining non-contiguous splits, or the missing value bucket. It has no
// bound semantics and cannot be re-split.
type filterSplit struct {
	shard string
	field string
	fq    string
	hits  int64
}

var _ Split = (*filterSplit)(nil)

func (f *filterSplit) FilterQuery() string { return f.fq }
func (f *filterSplit) Hits() int64         { return f.hits }
func (f *filterSplit) Shard() string       { return f.shard }
func (f *filterSplit) Field() string       { return f.field }
func (f *filterSplit) Key() string         { return splitKey(f.shard, f.field, f.fq) }

// joinFilters ORs two splits together. Hit counts add exactly.
func joinFilters(lhs, rhs Split) Split {
	return &filterSplit{
		shard: lhs.Shard(),
		field: lhs.Field(),
		fq:    solr.OrFilter(lhs.FilterQuery(), rhs.FilterQuery()),
		hits:  lhs.Hits() + rhs.Hits(),
	}
}

// newMissingSplit builds the catch-all split for documents with no value in
// the split field.
func newMissingSplit(shard, field string, hits int64) Split {
	return &filterSplit{
		shard: shard,
		field: field,
		fq:    solr.NotExistsFilter(field),
		hits:  hits,
	}
}
