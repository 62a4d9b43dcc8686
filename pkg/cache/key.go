package cache

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// QueryKey derives a stable cache key from a canonical query representation
// and a pagination position. Logically identical queries hash to the same key
// because the canonical form is order-free; the position keeps separate pages
// of the same query in separate entries.
func QueryKey(prefix, canonical, position string) string {
	return fmt.Sprintf("%s:%016x:%s", prefix, xxhash.Sum64String(canonical), position)
}
