// Package fields provides per-level nodal scalar fields and the weight
// computation used to interpolate them at particle positions. The capture
// engine consumes these as the level-set description of the embedded
// surface: negative inside the forbidden region, zero on the surface.
package fields

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// NodalField is a scalar field sampled at the nodes of a regular grid.
// Values between nodes are obtained by bi-/trilinear interpolation.
type NodalField struct {
	dim   int
	n     [3]int // nodes per axis
	lo    [3]float64
	invDx [3]float64
	data  []float64
}

// NewNodalField creates a zero field with n nodes per axis spanning
// [lo, hi] in each of dim axes.
func NewNodalField(dim int, n [3]int, lo, hi [3]float64) *NodalField {
	if dim != 2 && dim != 3 {
		panic(fmt.Sprintf("fields: unsupported dimensionality %d", dim))
	}
	f := &NodalField{dim: dim, n: n, lo: lo}
	size := 1
	for a := 0; a < dim; a++ {
		if n[a] < 2 {
			panic(fmt.Sprintf("fields: axis %d needs at least 2 nodes, got %d", a, n[a]))
		}
		f.invDx[a] = float64(n[a]-1) / (hi[a] - lo[a])
		size *= n[a]
	}
	f.data = make([]float64, size)
	return f
}

// NewFromFunc samples fn at every node. fn receives the node coordinates
// padded with zeros beyond dim.
func NewFromFunc(dim int, n [3]int, lo, hi [3]float64, fn func(c [3]float64) float64) *NodalField {
	f := NewNodalField(dim, n, lo, hi)
	var nodes [3][]float64
	for a := 0; a < dim; a++ {
		nodes[a] = make([]float64, n[a])
		floats.Span(nodes[a], lo[a], hi[a])
	}
	nk := 1
	if dim == 3 {
		nk = n[2]
	}
	for k := 0; k < nk; k++ {
		for j := 0; j < n[1]; j++ {
			for i := 0; i < n[0]; i++ {
				var c [3]float64
				c[0] = nodes[0][i]
				c[1] = nodes[1][j]
				if dim == 3 {
					c[2] = nodes[2][k]
				}
				f.data[f.index(i, j, k)] = fn(c)
			}
		}
	}
	return f
}

// Dim returns the field's dimensionality.
func (f *NodalField) Dim() int { return f.dim }

func (f *NodalField) index(i, j, k int) int {
	return (k*f.n[1]+j)*f.n[0] + i
}

// Set writes the value at node (i, j, k). k is ignored in 2D.
func (f *NodalField) Set(i, j, k int, v float64) {
	f.data[f.index(i, j, k)] = v
}

// At reads the value at node (i, j, k). k is ignored in 2D.
func (f *NodalField) At(i, j, k int) float64 {
	return f.data[f.index(i, j, k)]
}

// lowerNode returns the lower node index and linear weight along one axis,
// clamped so positions slightly outside the grid extrapolate from the
// edge cell instead of indexing out of bounds.
func (f *NodalField) lowerNode(axis int, c float64) (int, float64) {
	x := (c - f.lo[axis]) * f.invDx[axis]
	i := int(x)
	if x < 0 {
		i = 0
	}
	if i > f.n[axis]-2 {
		i = f.n[axis] - 2
	}
	return i, x - float64(i)
}

// Interp evaluates the field at an arbitrary position by nodal (linear)
// interpolation. Coordinates beyond dim are ignored.
func (f *NodalField) Interp(c [3]float64) float64 {
	i, wx := f.lowerNode(0, c[0])
	j, wy := f.lowerNode(1, c[1])
	if f.dim == 2 {
		return (1-wx)*(1-wy)*f.At(i, j, 0) +
			wx*(1-wy)*f.At(i+1, j, 0) +
			(1-wx)*wy*f.At(i, j+1, 0) +
			wx*wy*f.At(i+1, j+1, 0)
	}
	k, wz := f.lowerNode(2, c[2])
	v := 0.0
	for dk := 0; dk < 2; dk++ {
		wk := wz
		if dk == 0 {
			wk = 1 - wz
		}
		for dj := 0; dj < 2; dj++ {
			wj := wy
			if dj == 0 {
				wj = 1 - wy
			}
			for di := 0; di < 2; di++ {
				wi := wx
				if di == 0 {
					wi = 1 - wx
				}
				v += wi * wj * wk * f.At(i+di, j+dj, k+dk)
			}
		}
	}
	return v
}
