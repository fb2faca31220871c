package capture

import (
	"fmt"
	"log/slog"

	"skimmer/compact"
	"skimmer/fields"
	"skimmer/geom"
	"skimmer/particles"
)

// StampAttr is the name of the single extra int attribute every capture
// buffer carries: the global step on which each record was captured.
const StampAttr = "capture_step"

// Options configures a Buffer.
type Options struct {
	// LocalRank is the rank Count treats as "local". Tiles are mapped to
	// ranks by the decomposition.
	LocalRank int
	// Workers bounds the compaction worker pool; <= 0 means GOMAXPROCS.
	Workers int
}

// Buffer is the capture subsystem: a flat (boundary, species) table of
// lazily-defined particle containers, populated by Gather and reshuffled
// by Redistribute. A nil table entry means "never allocated"; an
// allocated entry may still be empty. Buffers only grow between explicit
// clears, and gathering never mutates the live containers it reads.
type Buffer struct {
	reg       *Registry
	domain    geom.Domain
	decomp    *geom.Decomposition
	localRank int
	comp      *compact.Compactor

	containers [][]*particles.Container // [boundary][species]
	stampIdx   [][]int
}

// New creates the capture subsystem for a fixed registry, domain and
// decomposition.
func New(reg *Registry, domain geom.Domain, decomp *geom.Decomposition, opts Options) *Buffer {
	b := &Buffer{
		reg:       reg,
		domain:    domain,
		decomp:    decomp,
		localRank: opts.LocalRank,
		comp:      compact.New(opts.Workers),
	}
	nb := reg.NumBoundaries()
	ns := reg.NumSpecies()
	b.containers = make([][]*particles.Container, nb)
	b.stampIdx = make([][]int, nb)
	for i := 0; i < nb; i++ {
		b.containers[i] = make([]*particles.Container, ns)
		b.stampIdx[i] = make([]int, ns)
	}
	return b
}

// Close stops the internal worker pool.
func (b *Buffer) Close() { b.comp.Close() }

// Registry returns the activation table the buffer was built with.
func (b *Buffer) Registry() *Registry { return b.reg }

// IsDefined reports whether the (boundary, species) buffer has been
// allocated, distinguishing "never allocated" from "allocated but empty".
func (b *Buffer) IsDefined(species string, boundary int) bool {
	return b.containers[boundary][b.reg.MustSpeciesIndex(species)] != nil
}

// define lazily allocates the buffer for an enabled pair: a schema clone
// of the live container plus the one capture-step attribute.
func (b *Buffer) define(boundary, species int, live *particles.Container) *particles.Container {
	c := b.containers[boundary][species]
	if c == nil {
		c = live.MakeAlike()
		b.stampIdx[boundary][species] = c.AddIntAttr(StampAttr)
		b.containers[boundary][species] = c
	}
	return c
}

// Gather scans every live container and appends copies of crossing
// particles to the matching capture buffers. live is indexed by registry
// species order; phi holds the per-level level-set field (may be nil when
// no species captures at the embedded surface); dt is the per-level step
// duration (a single entry applies to all levels). Gather reads the live
// containers without mutating them; it must not run concurrently with
// operations that modify them. Returns the number of records captured.
func (b *Buffer) Gather(live []*particles.Container, phi []*fields.NodalField, step int, dt []float64) int {
	if len(live) != b.reg.NumSpecies() {
		panic(fmt.Sprintf("capture: Gather got %d live containers for %d species",
			len(live), b.reg.NumSpecies()))
	}

	captured := 0
	dim := b.reg.Mode().Dim()
	for axis := 0; axis < dim; axis++ {
		// Exiting on a periodic axis is a wrap-around, not a capture event.
		if b.domain.Periodic[axis] {
			continue
		}
		for side := 0; side < 2; side++ {
			boundary := geom.BoundaryIndex(axis, side)
			if !b.reg.AnyEnabled(boundary) {
				continue
			}
			pred := outsideDomain(b.domain, axis, side)
			for s := 0; s < b.reg.NumSpecies(); s++ {
				if !b.reg.IsEnabled(boundary, s) {
					continue
				}
				buf := b.define(boundary, s, live[s])
				tf := copyAndStamp(b.stampIdx[boundary][s], int64(step))
				for lev := 0; lev < live[s].NumLevels(); lev++ {
					captured += b.gatherLevel(buf, live[s], lev, pred, tf)
				}
			}
		}
	}

	eb := b.reg.Mode().EmbeddedBoundary()
	if !b.reg.AnyEnabled(eb) {
		return captured
	}
	for s := 0; s < b.reg.NumSpecies(); s++ {
		if !b.reg.IsEnabled(eb, s) {
			continue
		}
		buf := b.define(eb, s, live[s])
		stamp := b.stampIdx[eb][s]
		for lev := 0; lev < live[s].NumLevels(); lev++ {
			if phi == nil || lev >= len(phi) || phi[lev] == nil {
				panic(fmt.Sprintf("capture: species %q captures at the embedded surface but no level-set field was supplied for level %d",
					b.reg.SpeciesName(s), lev))
			}
			field := phi[lev]
			pred := insideSurface(field)
			tf := intersectSurface(b.reg.Mode(), field, levelDt(dt, lev), stamp, int64(step))
			captured += b.gatherLevel(buf, live[s], lev, pred, tf)
		}
	}
	return captured
}

// gatherLevel runs the two-phase compaction over every tile of one live
// container level.
func (b *Buffer) gatherLevel(buf, live *particles.Container, level int, pred compact.Predicate, tf compact.Transform) int {
	total := 0
	for _, idx := range live.TileIndices(level) {
		src, _ := live.Tile(level, idx)
		if src.NumParticles() == 0 {
			continue
		}
		dst := buf.DefineAndReturnTile(level, idx)
		total += b.comp.FilterTo(dst, src, pred, tf)
	}
	return total
}

// levelDt picks the step duration for a level; a single-entry slice
// applies everywhere.
func levelDt(dt []float64, level int) float64 {
	if level < len(dt) {
		return dt[level]
	}
	if len(dt) == 0 {
		panic("capture: no step duration supplied")
	}
	return dt[len(dt)-1]
}

// Count returns the number of particles captured for a pair: 0 when the
// buffer was never allocated, otherwise either the rank-local count or
// the aggregate over every rank.
func (b *Buffer) Count(species string, boundary int, local bool) int {
	c := b.containers[boundary][b.reg.MustSpeciesIndex(species)]
	if c == nil {
		return 0
	}
	if !local {
		return c.TotalParticles()
	}
	n := 0
	for lev := 0; lev < c.NumLevels(); lev++ {
		for _, idx := range c.TileIndices(lev) {
			if b.decomp.Rank(lev, idx) != b.localRank {
				continue
			}
			t, _ := c.Tile(lev, idx)
			n += t.NumParticles()
		}
	}
	return n
}

// SpeciesBuffer returns the capture container for a pair. Asking for a
// pair that was never enabled, or enabled but never gathered into, is a
// programming error and panics.
func (b *Buffer) SpeciesBuffer(species string, boundary int) *particles.Container {
	s := b.reg.MustSpeciesIndex(species)
	if !b.reg.IsEnabled(boundary, s) {
		panic(fmt.Sprintf("capture: particle buffer for boundary %q requested but (%s, %s) capture is not enabled",
			b.reg.BoundaryName(boundary), species, b.reg.BoundaryName(boundary)))
	}
	c := b.containers[boundary][s]
	if c == nil {
		panic(fmt.Sprintf("capture: particle buffer for (%s, %s) was never allocated",
			species, b.reg.BoundaryName(boundary)))
	}
	return c
}

// SpeciesBufferPointer returns the container slot without any checks;
// the result is nil for pairs that were never allocated.
func (b *Buffer) SpeciesBufferPointer(species string, boundary int) *particles.Container {
	return b.containers[boundary][b.reg.MustSpeciesIndex(species)]
}

// Clear empties every species buffer at one boundary, preserving defined
// status and attribute schema.
func (b *Buffer) Clear(boundary int) {
	for _, c := range b.containers[boundary] {
		if c != nil {
			c.ClearParticles()
		}
	}
}

// ClearAll empties every buffer.
func (b *Buffer) ClearAll() {
	for boundary := range b.containers {
		b.Clear(boundary)
	}
}

// LogCounts reports every buffer's per-pair particle count through the
// default logger.
func (b *Buffer) LogCounts() {
	for boundary := 0; boundary < b.reg.NumBoundaries(); boundary++ {
		for s := 0; s < b.reg.NumSpecies(); s++ {
			c := b.containers[boundary][s]
			n := 0
			if c != nil {
				n = c.TotalParticles()
			}
			slog.Info("boundary buffer population",
				"species", b.reg.SpeciesName(s),
				"boundary", b.reg.BoundaryName(boundary),
				"particles", n)
		}
	}
}
