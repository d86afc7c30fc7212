package shardsplit

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vthacker/solrscan/solr"
)

// FieldSplitter builds the initial whole shard split for one field type.
// Splitters are stateless and safe to share across shards.
type FieldSplitter interface {
	// InitialSplit returns the unbounded split covering every document with
	// a value in field, seeded with the field's stats. The stats bounds are
	// parsed once here; re-splits reuse them instead of querying again.
	InitialSplit(shard string, base *solr.Query, field string, stats *solr.FieldStats) (RangeSplit, error)
}

type domainSplitter[T any] struct {
	dom valueDomain[T]
}

func (d domainSplitter[T]) InitialSplit(shard string, base *solr.Query, field string, stats *solr.FieldStats) (RangeSplit, error) {
	s := &rangeSplit[T]{
		shard: shard,
		field: field,
		dom:   d.dom,
		base:  base,
		hits:  stats.Count,
	}

	if stats.HasBounds() {
		lo, err := d.dom.Parse(stats.Min)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s min", field)
		}
		hi, err := d.dom.Parse(stats.Max)
		if err != nil {
			return nil, errors.Wrapf(err, "field %s max", field)
		}
		s.statsLo = &lo
		s.statsHi = &hi
	}

	return s, nil
}

// Int64Splitter splits integer fields.
func Int64Splitter() FieldSplitter { return domainSplitter[int64]{dom: int64Domain{}} }

// Float64Splitter splits float and double fields.
func Float64Splitter() FieldSplitter { return domainSplitter[float64]{dom: float64Domain{}} }

// DateSplitter splits date fields at millisecond granularity.
func DateSplitter() FieldSplitter { return domainSplitter[time.Time]{dom: dateDomain{}} }

// StringSplitter splits string fields by byte order.
func StringSplitter() FieldSplitter { return domainSplitter[string]{dom: stringDomain{}} }

// NewFieldSplitter returns the splitter for a Solr field type name.
func NewFieldSplitter(fieldType string) (FieldSplitter, error) {
	switch strings.ToLower(fieldType) {
	case "int", "pint", "tint", "long", "plong", "tlong":
		return Int64Splitter(), nil
	case "float", "pfloat", "tfloat", "double", "pdouble", "tdouble":
		return Float64Splitter(), nil
	case "date", "pdate", "tdate":
		return DateSplitter(), nil
	case "string", "str":
		return StringSplitter(), nil
	default:
		return nil, errors.Errorf("no splitter for field type %s", fieldType)
	}
}
