package compact

import "skimmer/particles"

// Predicate decides whether record i of src triggers capture. It must be
// pure: the count and append phases evaluate it independently and their
// results have to agree exactly.
type Predicate func(src *particles.Tile, i int) bool

// Transform copies record srcIdx of src into the pre-reserved slot dstIdx
// of dst, applying whatever localization the boundary kind requires.
type Transform func(dst, src *particles.Tile, srcIdx, dstIdx int)

// Compactor is a reusable two-phase filter. It knows nothing about
// boundary semantics; callers parameterize it with {predicate, transform}.
// A Compactor is not safe for concurrent use; parallelism lives inside a
// single FilterTo call.
type Compactor struct {
	pool *pool
}

// New creates a compactor with the given worker count (<= 0 means
// GOMAXPROCS).
func New(workers int) *Compactor {
	return &Compactor{pool: newPool(workers)}
}

// Close stops the worker pool.
func (c *Compactor) Close() {
	c.pool.stop()
}

// Count returns the exact number of records in src matching pred, via an
// order-independent parallel reduction over disjoint chunks.
func (c *Compactor) Count(src *particles.Tile, pred Predicate) int {
	n := src.NumParticles()
	if n == 0 {
		return 0
	}
	spans := c.pool.chunks(n)
	counts := make([]int, len(spans))
	c.pool.run(n, spans, func(start, end, slot int) {
		m := 0
		for i := start; i < end; i++ {
			if pred(src, i) {
				m++
			}
		}
		counts[slot] = m
	})
	total := 0
	for _, m := range counts {
		total += m
	}
	return total
}

// FilterTo appends a transformed copy of every record of src matching
// pred onto dst, preserving relative source order. dst is grown by
// exactly the matched count before any transform runs; each chunk writes
// a disjoint range sized to its local count, so workers never contend for
// a slot. Returns the number of records appended.
func (c *Compactor) FilterTo(dst, src *particles.Tile, pred Predicate, tf Transform) int {
	n := src.NumParticles()
	if n == 0 {
		return 0
	}
	spans := c.pool.chunks(n)

	// Phase 1: exact per-chunk match counts.
	counts := make([]int, len(spans))
	c.pool.run(n, spans, func(start, end, slot int) {
		m := 0
		for i := start; i < end; i++ {
			if pred(src, i) {
				m++
			}
		}
		counts[slot] = m
	})

	total := 0
	for _, m := range counts {
		total += m
	}
	if total == 0 {
		return 0
	}

	// Reserve: grow dst by exactly the counted matches, then hand each
	// chunk the offset where its block starts.
	dstStart := dst.NumParticles()
	dst.Resize(dstStart + total)
	offsets := make([]int, len(spans))
	off := dstStart
	for slot, m := range counts {
		offsets[slot] = off
		off += m
	}

	// Phase 2: stable append into the pre-reserved disjoint blocks.
	c.pool.run(n, spans, func(start, end, slot int) {
		o := offsets[slot]
		for i := start; i < end; i++ {
			if pred(src, i) {
				tf(dst, src, i, o)
				o++
			}
		}
	})
	return total
}
