package shardsplit

import (
	"context"

	"github.com/pkg/errors"

	"github.com/vthacker/solrscan/solr"
)

// rangeSplit is one half open interval [lower, upper) of a field's value
// space. A nil bound is unbounded on that end; the whole shard split is
// nil/nil. statsLo and statsHi carry the field's observed min and max so
// unbounded ends can still be divided without another stats query.
type rangeSplit[T any] struct {
	shard string
	field string
	dom   valueDomain[T]
	base  *solr.Query

	lower *T
	upper *T

	statsLo *T
	statsHi *T

	hits int64
}

var _ RangeSplit = (*rangeSplit[int64])(nil)

func (s *rangeSplit[T]) FilterQuery() string {
	lo, hi := "", ""
	if s.lower != nil {
		lo = s.dom.Format(*s.lower)
	}
	if s.upper != nil {
		hi = s.dom.Format(*s.upper)
	}
	return solr.RangeFilter(s.field, lo, hi)
}

func (s *rangeSplit[T]) Hits() int64   { return s.hits }
func (s *rangeSplit[T]) Shard() string { return s.shard }
func (s *rangeSplit[T]) Field() string { return s.field }
func (s *rangeSplit[T]) Key() string   { return splitKey(s.shard, s.field, s.FilterQuery()) }

// bounds resolves the interval to divide, falling back to the field's
// observed min and max for unbounded ends.
func (s *rangeSplit[T]) bounds() (lo, hi T, ok bool) {
	lp, hp := s.lower, s.upper
	if lp == nil {
		lp = s.statsLo
	}
	if hp == nil {
		hp = s.statsHi
	}
	if lp == nil || hp == nil {
		return lo, hi, false
	}
	return *lp, *hp, true
}

// ReSplit divides the split into round(hits/docsPerSplit) contiguous
// children and counts each with one zero row query, sequentially. The first
// child inherits the receiver's lower bound and the last its upper, so the
// children partition the receiver exactly. Any count failure aborts the
// whole re-split.
func (s *rangeSplit[T]) ReSplit(ctx context.Context, gw Gateway, docsPerSplit int64) ([]Split, error) {
	if docsPerSplit <= 0 {
		return []Split{s}, nil
	}

	k := round(float64(s.hits) / float64(docsPerSplit))
	if k < 2 {
		return []Split{s}, nil
	}

	lo, hi, ok := s.bounds()
	if !ok {
		return []Split{s}, nil
	}

	bounds := s.dom.Divide(lo, hi, k)
	if len(bounds) < 3 {
		// the domain cannot subdivide this interval any further
		return []Split{s}, nil
	}

	children := make([]Split, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		child := &rangeSplit[T]{
			shard:   s.shard,
			field:   s.field,
			dom:     s.dom,
			base:    s.base,
			statsLo: s.statsLo,
			statsHi: s.statsHi,
		}
		if i == 0 {
			child.lower = s.lower
		} else {
			v := bounds[i]
			child.lower = &v
		}
		if i == len(bounds)-2 {
			child.upper = s.upper
		} else {
			v := bounds[i+1]
			child.upper = &v
		}

		hits, err := gw.Count(ctx, s.base.Clone().AddFilter(child.FilterQuery()))
		if err != nil {
			return nil, errors.Wrapf(err, "counting split %s", child.FilterQuery())
		}
		child.hits = hits

		children = append(children, child)
	}

	return children, nil
}

// JoinAdjacent merges the receiver with other when the two ranges share a
// boundary value, in either order. The joined range spans both and its hit
// count is the exact sum.
func (s *rangeSplit[T]) JoinAdjacent(other Split) (Split, bool) {
	o, ok := other.(*rangeSplit[T])
	if !ok || o.shard != s.shard || o.field != s.field {
		return nil, false
	}

	// order the pair by lower bound, a nil lower sorting first
	a, b := s, o
	switch {
	case a.lower == nil && b.lower == nil:
		return nil, false
	case b.lower == nil:
		a, b = b, a
	case a.lower == nil:
	default:
		if s.dom.Compare(*a.lower, *b.lower) > 0 {
			a, b = b, a
		}
	}

	// contiguous means a's exclusive upper is exactly b's inclusive lower
	if a.upper == nil || s.dom.Compare(*a.upper, *b.lower) != 0 {
		return nil, false
	}

	return &rangeSplit[T]{
		shard:   s.shard,
		field:   s.field,
		dom:     s.dom,
		base:    s.base,
		lower:   a.lower,
		upper:   b.upper,
		statsLo: s.statsLo,
		statsHi: s.statsHi,
		hits:    a.hits + b.hits,
	}, true
}
