package solr

import (
	"bytes"

	jsoniter "github.com/json-iterator/go"
)

// FieldStats is the statistics snapshot for one field under one query:
// observed minimum and maximum, the number of documents carrying the field,
// and optionally the number of documents missing it. Min and Max stay raw
// JSON so integer fields keep full precision; the consumer parses them with
// the field's own type. A FieldStats is immutable once fetched.
type FieldStats struct {
	Field   string              `json:"field"`
	Min     jsoniter.RawMessage `json:"min"`
	Max     jsoniter.RawMessage `json:"max"`
	Count   int64               `json:"count"`
	Missing *int64              `json:"missing"`
}

var jsonNull = []byte("null")

// HasBounds reports whether both min and max carry values. Solr returns null
// bounds when no document has the field.
func (s *FieldStats) HasBounds() bool {
	return len(s.Min) > 0 && !bytes.Equal(s.Min, jsonNull) &&
		len(s.Max) > 0 && !bytes.Equal(s.Max, jsonNull)
}

// Page is one cursor page of documents.
type Page struct {
	Docs           []jsoniter.RawMessage
	NumFound       int64
	NextCursorMark string
}

type selectResponse struct {
	ResponseHeader responseHeader `json:"responseHeader"`
	Response       responseBody   `json:"response"`
	NextCursorMark string         `json:"nextCursorMark"`
	Stats          *statsSection  `json:"stats"`
}

type responseHeader struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

type responseBody struct {
	NumFound int64                 `json:"numFound"`
	Start    int64                 `json:"start"`
	Docs     []jsoniter.RawMessage `json:"docs"`
}

type statsSection struct {
	StatsFields map[string]statsEntry `json:"stats_fields"`
}

type statsEntry struct {
	Min     jsoniter.RawMessage `json:"min"`
	Max     jsoniter.RawMessage `json:"max"`
	Count   int64               `json:"count"`
	Missing *int64              `json:"missing"`
}
