package capture

import "skimmer/particles"

// move records one pending relocation discovered during the scan phase.
type move struct {
	level   int
	srcTile int
	srcIdx  int
	dstTile int
}

// Redistribute reassigns captured records whose (possibly corrected)
// position no longer lies inside their tile's nominal region to the tile
// that owns it. The operation is collective: it covers every defined
// buffer, never drops a record, and leaves sentinel records (negative id)
// pinned in place regardless of position. Records whose position falls
// outside every tile region stay where they are.
//
// Redistribute must not overlap with a Gather or Clear on the same
// buffer.
func (b *Buffer) Redistribute() {
	dim := b.reg.Mode().Dim()
	for boundary := range b.containers {
		for _, c := range b.containers[boundary] {
			if c != nil {
				b.redistributeContainer(c, dim)
			}
		}
	}
}

func (b *Buffer) redistributeContainer(c *particles.Container, dim int) {
	for lev := 0; lev < c.NumLevels(); lev++ {
		var moves []move
		masks := make(map[int][]bool)

		// Scan phase: read-only pass over every tile collecting records
		// that belong elsewhere.
		for _, idx := range c.TileIndices(lev) {
			t, _ := c.Tile(lev, idx)
			region := b.decomp.Region(lev, idx)
			for i := 0; i < t.NumParticles(); i++ {
				if t.ID[i] < 0 {
					continue // pinned sentinel
				}
				p := t.Position(i)
				if region.Contains(dim, p) {
					continue
				}
				owner, ok := b.decomp.Owner(lev, p)
				if !ok || owner == idx {
					continue
				}
				moves = append(moves, move{level: lev, srcTile: idx, srcIdx: i, dstTile: owner})
				mask, exists := masks[idx]
				if !exists {
					mask = make([]bool, t.NumParticles())
					masks[idx] = mask
				}
				mask[i] = true
			}
		}

		// Append phase: copy moved records onto their owning tiles.
		for _, m := range moves {
			src, _ := c.Tile(lev, m.srcTile)
			dst := c.DefineAndReturnTile(lev, m.dstTile)
			n := dst.NumParticles()
			dst.Resize(n + 1)
			dst.CopyFrom(src, m.srcIdx, n)
		}

		// Removal phase: compact each source tile in place, preserving
		// the relative order of surviving records. Appends from this
		// pass land past the mask range and always survive.
		for idx, mask := range masks {
			t, _ := c.Tile(lev, idx)
			removeMasked(t, mask)
		}
	}
}

// removeMasked drops the records flagged in mask (indexed over the
// tile's state when the mask was built) and shrinks the tile.
func removeMasked(t *particles.Tile, mask []bool) {
	w := 0
	for i := 0; i < t.NumParticles(); i++ {
		if i < len(mask) && mask[i] {
			continue
		}
		if w != i {
			t.CopyFrom(t, i, w)
		}
		w++
	}
	t.Resize(w)
}
