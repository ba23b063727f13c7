package cache

import "hash/fnv"

// Key fingerprints statement text for the statement cache.
func Key(query string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(query))
	return h.Sum64()
}
