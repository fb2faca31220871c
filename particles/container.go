package particles

import (
	"fmt"
	"sort"
)

// Container is a sparse, tiled particle store for one species: per level,
// a map from tile index to Tile, with tiles defined on first touch and
// only ever growing until an explicit clear.
type Container struct {
	schema Schema
	levels []map[int]*Tile
}

// NewContainer creates an empty container with the given schema and
// number of refinement levels.
func NewContainer(schema Schema, numLevels int) *Container {
	if numLevels < 1 {
		numLevels = 1
	}
	c := &Container{schema: schema}
	c.levels = make([]map[int]*Tile, numLevels)
	for i := range c.levels {
		c.levels[i] = make(map[int]*Tile)
	}
	return c
}

// MakeAlike returns an empty container sharing this container's schema
// and level structure but none of its particles. Capture buffers are
// created this way from the live container they shadow.
func (c *Container) MakeAlike() *Container {
	return NewContainer(c.schema.clone(), len(c.levels))
}

// Schema returns the container's attribute schema.
func (c *Container) Schema() *Schema { return &c.schema }

// NumLevels returns the number of refinement levels.
func (c *Container) NumLevels() int { return len(c.levels) }

// AddIntAttr registers one more runtime int attribute and returns its
// slot. Existing tiles are extended with zero-valued slots.
func (c *Container) AddIntAttr(name string) int {
	if c.schema.IntAttrIndex(name) >= 0 {
		panic(fmt.Sprintf("particles: int attribute %q already registered on species %q", name, c.schema.Name))
	}
	c.schema.IntAttrs = append(c.schema.IntAttrs, name)
	for _, lev := range c.levels {
		for _, t := range lev {
			t.addIntAttr()
		}
	}
	return len(c.schema.IntAttrs) - 1
}

// DefineAndReturnTile returns the tile at (level, index), creating an
// empty one on first touch.
func (c *Container) DefineAndReturnTile(level, index int) *Tile {
	t, ok := c.levels[level][index]
	if !ok {
		t = newTile(&c.schema)
		c.levels[level][index] = t
	}
	return t
}

// Tile returns the tile at (level, index) if it has been defined.
func (c *Container) Tile(level, index int) (*Tile, bool) {
	t, ok := c.levels[level][index]
	return t, ok
}

// TileIndices returns the defined tile indices on one level in ascending
// order, so iteration over a container is deterministic.
func (c *Container) TileIndices(level int) []int {
	out := make([]int, 0, len(c.levels[level]))
	for idx := range c.levels[level] {
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// TotalParticles returns the particle count summed over all levels and
// tiles.
func (c *Container) TotalParticles() int {
	n := 0
	for _, lev := range c.levels {
		for _, t := range lev {
			n += t.NumParticles()
		}
	}
	return n
}

// ClearParticles empties every tile while preserving the defined tiles
// and the attribute schema.
func (c *Container) ClearParticles() {
	for _, lev := range c.levels {
		for _, t := range lev {
			t.Resize(0)
		}
	}
}
