// Package partition runs a simulation with links sharded across worker
// goroutines. Troons that leave one worker's shard are handed to the owner
// of their next link by message each tick; the printed output is identical
// to a single-worker run.
package partition

// Range is a half-open interval [Lo, Hi) of link indices.
type Range struct {
	Lo, Hi int
}

// Contains reports whether link i falls in the range.
func (r Range) Contains(i int) bool { return i >= r.Lo && i < r.Hi }

// Len returns the number of links in the range.
func (r Range) Len() int { return r.Hi - r.Lo }

// ShardSize is the number of links each worker owns: ceil(links/workers).
func ShardSize(links, workers int) int {
	if links == 0 {
		return 1
	}
	return (links + workers - 1) / workers
}

// Ranges splits links into contiguous shards, one per worker. Trailing
// workers may own an empty range.
func Ranges(links, workers int) []Range {
	size := ShardSize(links, workers)
	out := make([]Range, workers)
	for w := range out {
		lo := min(w*size, links)
		hi := min(lo+size, links)
		out[w] = Range{Lo: lo, Hi: hi}
	}
	return out
}

// Owner returns the worker owning link i for the given shard size.
func Owner(i, size int) int { return i / size }
