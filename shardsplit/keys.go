package shardsplit

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const splitKeyPrefix = "sp:"

// splitKey returns a stable key identifying one split of one shard. Callers
// use it to dedupe scan jobs across retries of the enclosing scheduler. An
// empty string means no valid key could be built.
func splitKey(shard, field, fq string) string {
	if shard == "" || fq == "" {
		return ""
	}

	h := xxhash.New()
	_, _ = h.WriteString(shard)
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(field)
	_, _ = h.WriteString(":")
	_, _ = h.WriteString(fq)

	sb := strings.Builder{}
	sb.Grow(len(splitKeyPrefix) + 20) // 20 for the uint64
	sb.WriteString(splitKeyPrefix)
	sb.WriteString(strconv.FormatUint(h.Sum64(), 10))

	return sb.String()
}
