package particles

// Tile is a contiguous SoA batch of particle records belonging to one
// spatial sub-region of one level. Tiles are the unit of parallel work:
// a tile is only ever touched by one task at a time.
type Tile struct {
	schema *Schema
	np     int

	// Pos holds one slice per stored position coordinate: (x, z) in 2D,
	// (x, y, z) in 3D, (r, z) in RZ.
	Pos [][]float64
	// Theta is the azimuthal angle, present only in RZ mode.
	Theta  []float64
	Mom    [3][]float64
	Weight []float64
	// ID is the 64-bit particle identifier. Negative values are reserved
	// sentinels meaning "do not relocate".
	ID []int64

	// Real and Int hold the extra per-species runtime attributes, one
	// slice per attribute, in schema order.
	Real [][]float64
	Int  [][]int64
}

func newTile(schema *Schema) *Tile {
	t := &Tile{schema: schema}
	t.Pos = make([][]float64, schema.Mode.Dim())
	t.Real = make([][]float64, schema.NumRealAttrs())
	t.Int = make([][]int64, schema.NumIntAttrs())
	return t
}

// Schema returns the tile's attribute schema.
func (t *Tile) Schema() *Schema { return t.schema }

// NumParticles returns the number of records in the tile.
func (t *Tile) NumParticles() int { return t.np }

// Resize grows or shrinks the tile to hold exactly n records. Growth
// extends every attribute slice; new slots are zero-valued until written.
func (t *Tile) Resize(n int) {
	for a := range t.Pos {
		t.Pos[a] = resizeFloat(t.Pos[a], n)
	}
	if t.schema.Mode.Axisymmetric() {
		t.Theta = resizeFloat(t.Theta, n)
	}
	for a := range t.Mom {
		t.Mom[a] = resizeFloat(t.Mom[a], n)
	}
	t.Weight = resizeFloat(t.Weight, n)
	t.ID = resizeInt(t.ID, n)
	for a := range t.Real {
		t.Real[a] = resizeFloat(t.Real[a], n)
	}
	for a := range t.Int {
		t.Int[a] = resizeInt(t.Int[a], n)
	}
	t.np = n
}

// CopyFrom copies every attribute of record srcIdx in src into record
// dstIdx of t. The destination may carry more int attributes than the
// source (the capture-step slot); those extra slots are left untouched.
func (t *Tile) CopyFrom(src *Tile, srcIdx, dstIdx int) {
	for a := range src.Pos {
		t.Pos[a][dstIdx] = src.Pos[a][srcIdx]
	}
	if src.schema.Mode.Axisymmetric() {
		t.Theta[dstIdx] = src.Theta[srcIdx]
	}
	for a := range src.Mom {
		t.Mom[a][dstIdx] = src.Mom[a][srcIdx]
	}
	t.Weight[dstIdx] = src.Weight[srcIdx]
	t.ID[dstIdx] = src.ID[srcIdx]
	for a := range src.Real {
		t.Real[a][dstIdx] = src.Real[a][srcIdx]
	}
	for a := range src.Int {
		t.Int[a][dstIdx] = src.Int[a][srcIdx]
	}
}

// Position returns the stored position coordinates of record i, padded
// with zeros beyond the mode's dimensionality.
func (t *Tile) Position(i int) [3]float64 {
	var p [3]float64
	for a := range t.Pos {
		p[a] = t.Pos[a][i]
	}
	return p
}

// SetPosition writes the stored position coordinates of record i.
func (t *Tile) SetPosition(i int, p [3]float64) {
	for a := range t.Pos {
		t.Pos[a][i] = p[a]
	}
}

// addIntAttr extends the tile with one more int attribute slice.
func (t *Tile) addIntAttr() {
	t.Int = append(t.Int, make([]int64, t.np))
}

func resizeFloat(s []float64, n int) []float64 {
	if n <= cap(s) {
		return s[:n]
	}
	out := make([]float64, n, growCap(n))
	copy(out, s)
	return out
}

func resizeInt(s []int64, n int) []int64 {
	if n <= cap(s) {
		return s[:n]
	}
	out := make([]int64, n, growCap(n))
	copy(out, s)
	return out
}

// growCap over-allocates so repeated per-step appends stay amortized.
func growCap(n int) int {
	if n < 16 {
		return 16
	}
	return n + n/2
}
