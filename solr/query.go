package solr

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	paramQuery      = "q"
	paramFilter     = "fq"
	paramRows       = "rows"
	paramStart      = "start"
	paramSort       = "sort"
	paramFields     = "fl"
	paramCursorMark = "cursorMark"
	paramDistrib    = "distrib"
	paramWriterType = "wt"
	paramStats      = "stats"
	paramStatsField = "stats.field"
)

// Query is a Solr select query. The zero value is not usable, construct with
// NewQuery. All setters return the receiver so they chain.
type Query struct {
	params url.Values
}

// NewQuery returns a query matching q, or every document when q is empty.
// Responses are always requested as JSON.
func NewQuery(q string) *Query {
	if q == "" {
		q = "*:*"
	}
	params := url.Values{}
	params.Set(paramQuery, q)
	params.Set(paramWriterType, "json")
	return &Query{params: params}
}

// Clone returns a deep copy. Splits derive their count and stats queries from
// a shared base query, so the base must never be mutated through a child.
func (q *Query) Clone() *Query {
	params := make(url.Values, len(q.params))
	for k, v := range q.params {
		params[k] = append([]string(nil), v...)
	}
	return &Query{params: params}
}

// AddFilter appends an fq parameter. Filters are conjunctive.
func (q *Query) AddFilter(fq string) *Query {
	q.params.Add(paramFilter, fq)
	return q
}

// Filters returns the filter queries in the order added.
func (q *Query) Filters() []string {
	return q.params[paramFilter]
}

func (q *Query) SetRows(n int) *Query {
	q.params.Set(paramRows, strconv.Itoa(n))
	return q
}

func (q *Query) SetStart(n int) *Query {
	q.params.Set(paramStart, strconv.Itoa(n))
	return q
}

func (q *Query) SetSort(sort string) *Query {
	q.params.Set(paramSort, sort)
	return q
}

func (q *Query) SetFields(fields ...string) *Query {
	q.params.Set(paramFields, strings.Join(fields, ","))
	return q
}

func (q *Query) SetCursorMark(mark string) *Query {
	q.params.Set(paramCursorMark, mark)
	return q
}

func (q *Query) ClearCursorMark() *Query {
	q.params.Del(paramCursorMark)
	return q
}

// SetDistrib controls whether the query fans out across the cluster. Shard
// scoped queries must set it to false.
func (q *Query) SetDistrib(distrib bool) *Query {
	q.params.Set(paramDistrib, strconv.FormatBool(distrib))
	return q
}

// WithStats requests field statistics for field and no documents.
func (q *Query) WithStats(field string) *Query {
	q.params.Set(paramStats, "true")
	q.params.Add(paramStatsField, field)
	return q
}

// Get returns the first value set for a parameter.
func (q *Query) Get(param string) string {
	return q.params.Get(param)
}

// Encode returns the query as URL encoded parameters, sorted by key.
func (q *Query) Encode() string {
	return q.params.Encode()
}

// RangeFilter returns a half open range filter on field: inclusive of lower,
// exclusive of upper. Empty or "*" bounds leave that end open; an open upper
// end closes the bracket inclusively since nothing lies above it.
func RangeFilter(field, lower, upper string) string {
	if lower == "" {
		lower = "*"
	}
	if upper == "" {
		upper = "*"
	}
	if upper == "*" {
		return field + ":[" + lower + " TO *]"
	}
	return field + ":[" + lower + " TO " + upper + "}"
}

// NotExistsFilter returns a filter matching documents with no value for field.
func NotExistsFilter(field string) string {
	return "-" + field + ":[* TO *]"
}

// OrFilter returns the disjunction of two filters.
func OrFilter(lhs, rhs string) string {
	return lhs + " OR " + rhs
}

// rangeEscaper escapes characters that terminate or alter a range term.
// Numeric and date bounds never need it, string bounds might.
var rangeEscaper = strings.NewReplacer(
	`\`, `\\`,
	` `, `\ `,
	`"`, `\"`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`:`, `\:`,
	`^`, `\^`,
	`~`, `\~`,
	`*`, `\*`,
	`?`, `\?`,
	`/`, `\/`,
	`+`, `\+`,
	`-`, `\-`,
	`!`, `\!`,
	`&`, `\&`,
	`|`, `\|`,
)

// EscapeRangeValue escapes a literal string for use as a range bound.
func EscapeRangeValue(v string) string {
	return rangeEscaper.Replace(v)
}
