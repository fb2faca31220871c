// Package geom provides the spatial vocabulary for the capture engine:
// geometry modes, domain extents, boundary descriptors, the ballistic
// position push, and the tiled domain decomposition.
package geom

import (
	"fmt"
	"math"
)

// Mode selects the coordinate system the simulation runs in.
// It is fixed at configuration time and never changes afterwards.
type Mode int

const (
	// Cartesian2D uses (x, z) coordinates.
	Cartesian2D Mode = iota
	// Cartesian3D uses (x, y, z) coordinates.
	Cartesian3D
	// RZ is the axisymmetric mode: particles store (r, z) plus an
	// azimuthal angle theta carried as a separate attribute.
	RZ
)

// ParseMode converts a config string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "cartesian2d":
		return Cartesian2D, nil
	case "cartesian3d":
		return Cartesian3D, nil
	case "rz":
		return RZ, nil
	}
	return 0, fmt.Errorf("geom: unknown geometry mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case Cartesian2D:
		return "cartesian2d"
	case Cartesian3D:
		return "cartesian3d"
	case RZ:
		return "rz"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Dim returns the number of stored position coordinates.
func (m Mode) Dim() int {
	if m == Cartesian3D {
		return 3
	}
	return 2
}

// Axisymmetric reports whether positions are (r, z) with a theta attribute.
func (m Mode) Axisymmetric() bool { return m == RZ }

// NumBoundaries returns the number of boundary slots: two per spatial
// axis plus the embedded surface.
func (m Mode) NumBoundaries() int { return 2*m.Dim() + 1 }

// EmbeddedBoundary returns the index of the embedded-surface boundary.
func (m Mode) EmbeddedBoundary() int { return 2 * m.Dim() }

// BoundaryIndex returns the boundary slot for an axis and side
// (side 0 = low, side 1 = high).
func BoundaryIndex(axis, side int) int { return 2*axis + side }

// BoundaryNames returns the fixed symbol table for this mode, indexed by
// boundary slot. The names are used for config lookup and diagnostics only.
func (m Mode) BoundaryNames() []string {
	switch m {
	case Cartesian3D:
		return []string{"xlo", "xhi", "ylo", "yhi", "zlo", "zhi", "eb"}
	default:
		// 2D Cartesian stores (x, z); RZ stores (r, z) but keeps the
		// x-based symbols so config keys are mode-independent.
		return []string{"xlo", "xhi", "zlo", "zhi", "eb"}
	}
}

// Domain describes the axis-aligned computational domain.
type Domain struct {
	Lo       [3]float64
	Hi       [3]float64
	Periodic [3]bool
}

// Contains reports whether p lies inside the domain, using the first
// dim coordinates. The low edge is inclusive, the high edge exclusive.
func (d Domain) Contains(dim int, p [3]float64) bool {
	for a := 0; a < dim; a++ {
		if p[a] < d.Lo[a] || p[a] >= d.Hi[a] {
			return false
		}
	}
	return true
}

// ToRZ converts a Cartesian (x, y) pair into (r, theta).
func ToRZ(x, y float64) (r, theta float64) {
	return math.Hypot(x, y), math.Atan2(y, x)
}
