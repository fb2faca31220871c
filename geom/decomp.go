package geom

// Region is the nominal spatial box owned by one tile. The low edge is
// inclusive, the high edge exclusive, so adjacent regions never overlap.
type Region struct {
	Lo [3]float64
	Hi [3]float64
}

// Contains reports whether p lies inside the region, using the first
// dim coordinates.
func (r Region) Contains(dim int, p [3]float64) bool {
	for a := 0; a < dim; a++ {
		if p[a] < r.Lo[a] || p[a] >= r.Hi[a] {
			return false
		}
	}
	return true
}

// TileSpec describes one tile of the decomposition: its region and the
// rank that owns it.
type TileSpec struct {
	Region Region
	Rank   int
}

// Decomposition partitions the domain into tiles per refinement level.
// It is the ownership map consulted when captured particles are
// redistributed after localization moves them across tile edges.
type Decomposition struct {
	mode   Mode
	domain Domain
	tiles  [3]int
	levels [][]TileSpec
}

// NewUniform builds a regular decomposition: the same tiles-per-axis grid
// on every level, with tiles assigned to ranks round-robin.
func NewUniform(mode Mode, d Domain, tilesPerAxis [3]int, numLevels, numRanks int) *Decomposition {
	dim := mode.Dim()
	for a := 0; a < 3; a++ {
		if tilesPerAxis[a] < 1 {
			tilesPerAxis[a] = 1
		}
	}
	if numLevels < 1 {
		numLevels = 1
	}
	if numRanks < 1 {
		numRanks = 1
	}

	dc := &Decomposition{mode: mode, domain: d, tiles: tilesPerAxis}
	n := 1
	for a := 0; a < dim; a++ {
		n *= tilesPerAxis[a]
	}

	dc.levels = make([][]TileSpec, numLevels)
	for lev := 0; lev < numLevels; lev++ {
		specs := make([]TileSpec, n)
		for t := 0; t < n; t++ {
			idx := t
			var reg Region
			reg.Lo = d.Lo
			reg.Hi = d.Hi
			for a := 0; a < dim; a++ {
				ia := idx % tilesPerAxis[a]
				idx /= tilesPerAxis[a]
				w := (d.Hi[a] - d.Lo[a]) / float64(tilesPerAxis[a])
				reg.Lo[a] = d.Lo[a] + float64(ia)*w
				reg.Hi[a] = reg.Lo[a] + w
			}
			specs[t] = TileSpec{Region: reg, Rank: t % numRanks}
		}
		dc.levels[lev] = specs
	}
	return dc
}

// NumLevels returns the number of refinement levels.
func (dc *Decomposition) NumLevels() int { return len(dc.levels) }

// NumTiles returns the tile count on one level.
func (dc *Decomposition) NumTiles(level int) int { return len(dc.levels[level]) }

// Region returns the nominal region of a tile.
func (dc *Decomposition) Region(level, tile int) Region { return dc.levels[level][tile].Region }

// Rank returns the rank owning a tile.
func (dc *Decomposition) Rank(level, tile int) int { return dc.levels[level][tile].Rank }

// Owner returns the tile whose region contains p, or ok=false when p lies
// outside every tile (outside the domain).
func (dc *Decomposition) Owner(level int, p [3]float64) (int, bool) {
	dim := dc.mode.Dim()
	if !dc.domain.Contains(dim, p) {
		return 0, false
	}
	t := 0
	stride := 1
	for a := 0; a < dim; a++ {
		w := (dc.domain.Hi[a] - dc.domain.Lo[a]) / float64(dc.tiles[a])
		ia := int((p[a] - dc.domain.Lo[a]) / w)
		if ia < 0 {
			ia = 0
		}
		if ia >= dc.tiles[a] {
			ia = dc.tiles[a] - 1
		}
		t += ia * stride
		stride *= dc.tiles[a]
	}
	return t, true
}
