package shardsplit

import (
	"math"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/vthacker/solrscan/solr"
)

// valueDomain parses, compares, formats, and divides one field type's
// values. A domain is stateless; one instance serves every split of a field.
type valueDomain[T any] interface {
	// Parse decodes a raw JSON stats bound.
	Parse(raw jsoniter.RawMessage) (T, error)
	// Format renders a value as a range bound literal.
	Format(v T) string
	// Compare returns a negative, zero, or positive number as a sorts
	// before, equal to, or after b.
	Compare(a, b T) int
	// Divide returns ordered boundary values from lo to hi inclusive,
	// targeting k sub ranges. Interior boundaries are strictly increasing
	// and strictly inside (lo, hi); granularity the domain cannot express
	// collapses, so fewer than k+1 boundaries may come back.
	Divide(lo, hi T, k int64) []T
}

type int64Domain struct{}

func (int64Domain) Parse(raw jsoniter.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return n, nil
	}
	// stats on trie fields occasionally come back float formatted
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil {
		return 0, errors.Wrapf(err, "parsing integer bound %q", s)
	}
	return int64(f), nil
}

func (int64Domain) Format(v int64) string { return strconv.FormatInt(v, 10) }

func (int64Domain) Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (int64Domain) Divide(lo, hi int64, k int64) []int64 {
	if hi <= lo || k < 2 {
		return []int64{lo, hi}
	}

	// unsigned arithmetic keeps full width ranges from overflowing
	diff := uint64(hi) - uint64(lo)
	step := diff / uint64(k)
	if step == 0 {
		step = 1
	}

	bounds := make([]int64, 0, k+1)
	bounds = append(bounds, lo)
	prev := lo
	for i := int64(1); i < k; i++ {
		b := int64(uint64(lo) + uint64(i)*step)
		if b <= prev || b >= hi {
			continue
		}
		bounds = append(bounds, b)
		prev = b
	}
	return append(bounds, hi)
}

type float64Domain struct{}

func (float64Domain) Parse(raw jsoniter.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing float bound %q", s)
	}
	return f, nil
}

func (float64Domain) Format(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func (float64Domain) Compare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (float64Domain) Divide(lo, hi float64, k int64) []float64 {
	if !(hi > lo) || k < 2 {
		return []float64{lo, hi}
	}

	step := (hi - lo) / float64(k)
	bounds := make([]float64, 0, k+1)
	bounds = append(bounds, lo)
	prev := lo
	for i := int64(1); i < k; i++ {
		b := lo + float64(i)*step
		if b <= prev || b >= hi {
			continue
		}
		bounds = append(bounds, b)
		prev = b
	}
	return append(bounds, hi)
}

// solrDateFormat renders instants the way Solr expects them, millisecond
// precision, always UTC.
const solrDateFormat = "2006-01-02T15:04:05.000Z"

type dateDomain struct{}

func (dateDomain) Parse(raw jsoniter.RawMessage) (time.Time, error) {
	var s string
	if err := jsoniter.Unmarshal(raw, &s); err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing date bound %s", string(raw))
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "parsing date bound %q", s)
	}
	return t.UTC(), nil
}

func (dateDomain) Format(v time.Time) string { return v.UTC().Format(solrDateFormat) }

func (dateDomain) Compare(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func (dateDomain) Divide(lo, hi time.Time, k int64) []time.Time {
	if !hi.After(lo) || k < 2 {
		return []time.Time{lo, hi}
	}

	step := hi.Sub(lo) / time.Duration(k)
	if step < time.Millisecond {
		step = time.Millisecond
	}

	bounds := make([]time.Time, 0, k+1)
	bounds = append(bounds, lo)
	prev := lo
	for i := int64(1); i < k; i++ {
		b := lo.Add(time.Duration(i) * step).Truncate(time.Millisecond)
		if !b.After(prev) || !hi.After(b) {
			continue
		}
		bounds = append(bounds, b)
		prev = b
	}
	return append(bounds, hi)
}

// stringInterpolationWidth is how many bytes past the common prefix take part
// in boundary interpolation. Eight bytes keep the arithmetic in one uint64.
const stringInterpolationWidth = 8

type stringDomain struct{}

func (stringDomain) Parse(raw jsoniter.RawMessage) (string, error) {
	var s string
	if err := jsoniter.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrapf(err, "parsing string bound %s", string(raw))
	}
	return s, nil
}

func (stringDomain) Format(v string) string { return solr.EscapeRangeValue(v) }

func (stringDomain) Compare(a, b string) int { return strings.Compare(a, b) }

// Divide interpolates boundaries byte wise: the bytes after the common
// prefix are read as big endian integers and divided evenly. Term order in
// Solr string fields is byte order, so interpolated boundaries sort between
// lo and hi.
func (stringDomain) Divide(lo, hi string, k int64) []string {
	if hi <= lo || k < 2 {
		return []string{lo, hi}
	}

	prefix := 0
	for prefix < len(lo) && prefix < len(hi) && lo[prefix] == hi[prefix] {
		prefix++
	}

	loNum := packBytes(lo[prefix:])
	hiNum := packBytes(hi[prefix:])
	if hiNum <= loNum {
		return []string{lo, hi}
	}

	step := (hiNum - loNum) / uint64(k)
	if step == 0 {
		return []string{lo, hi}
	}

	bounds := make([]string, 0, k+1)
	bounds = append(bounds, lo)
	prev := lo
	for i := int64(1); i < k; i++ {
		b := lo[:prefix] + unpackBytes(loNum+uint64(i)*step)
		if b <= prev || b >= hi {
			continue
		}
		bounds = append(bounds, b)
		prev = b
	}
	return append(bounds, hi)
}

// packBytes reads up to stringInterpolationWidth bytes as a big endian
// integer, zero padded on the right so shorter strings sort first.
func packBytes(s string) uint64 {
	var n uint64
	for i := 0; i < stringInterpolationWidth; i++ {
		n <<= 8
		if i < len(s) {
			n |= uint64(s[i])
		}
	}
	return n
}

// unpackBytes is the inverse of packBytes with trailing zero bytes trimmed.
func unpackBytes(n uint64) string {
	buf := make([]byte, stringInterpolationWidth)
	for i := stringInterpolationWidth - 1; i >= 0; i-- {
		buf[i] = byte(n)
		n >>= 8
	}
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return string(buf[:end])
}

func round(v float64) int64 {
	return int64(math.Round(v))
}
