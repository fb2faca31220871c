// Package particles provides the sparse, tiled particle storage shared by
// the live simulation snapshots and the capture buffers: a per-species
// attribute schema, a contiguous SoA tile, and a lazily-defined container
// of tiles keyed by (level, tile index).
package particles

import "skimmer/geom"

// Schema fixes the attribute layout of one species: the geometry mode
// (which determines position storage) and the names of the extra real- and
// integer-valued attributes. The layout is set at configuration time; the
// only later change allowed is registering additional int attributes on a
// buffer cloned with MakeAlike, before it holds any particles.
type Schema struct {
	Name      string
	Mode      geom.Mode
	RealAttrs []string
	IntAttrs  []string
}

// NumRealAttrs returns the number of extra real attributes.
func (s *Schema) NumRealAttrs() int { return len(s.RealAttrs) }

// NumIntAttrs returns the number of extra int attributes.
func (s *Schema) NumIntAttrs() int { return len(s.IntAttrs) }

// IntAttrIndex returns the slot of a named int attribute, or -1.
func (s *Schema) IntAttrIndex(name string) int {
	for i, n := range s.IntAttrs {
		if n == name {
			return i
		}
	}
	return -1
}

func (s *Schema) clone() Schema {
	c := Schema{Name: s.Name, Mode: s.Mode}
	c.RealAttrs = append([]string(nil), s.RealAttrs...)
	c.IntAttrs = append([]string(nil), s.IntAttrs...)
	return c
}
