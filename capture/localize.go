package capture

import (
	"math"

	"skimmer/compact"
	"skimmer/fields"
	"skimmer/geom"
	"skimmer/particles"
)

// outsideDomain is the domain-side crossing predicate: true iff the
// already-pushed coordinate on the boundary's axis is below the low
// extent (side 0) or at/above the high extent (side 1). The axis indexes
// stored coordinates, so axis 1 is z in 2D and RZ modes.
func outsideDomain(d geom.Domain, axis, side int) compact.Predicate {
	if side == 0 {
		lo := d.Lo[axis]
		return func(src *particles.Tile, i int) bool {
			return src.Pos[axis][i] < lo
		}
	}
	hi := d.Hi[axis]
	return func(src *particles.Tile, i int) bool {
		return src.Pos[axis][i] >= hi
	}
}

// insideSurface is the embedded-surface crossing predicate: true iff the
// nodally interpolated level-set value at the particle's position is
// negative (the particle sits on the forbidden side of the surface).
func insideSurface(phi *fields.NodalField) compact.Predicate {
	return func(src *particles.Tile, i int) bool {
		return phi.Interp(src.Position(i)) < 0
	}
}

// copyAndStamp is the domain-side localizer: every attribute copies
// verbatim and the capture-step slot receives the current step. No
// positional correction is applied; the stored position is the post-push
// one, so its error is bounded by a single push step.
func copyAndStamp(stampIdx int, step int64) compact.Transform {
	return func(dst, src *particles.Tile, srcIdx, dstIdx int) {
		dst.CopyFrom(src, srcIdx, dstIdx)
		dst.Int[stampIdx][dstIdx] = step
	}
}

// cartesian expands a stored position into full Cartesian coordinates.
// theta is only consulted in RZ mode.
func cartesian(mode geom.Mode, p [3]float64, theta float64) (x, y, z float64) {
	switch mode {
	case geom.Cartesian3D:
		return p[0], p[1], p[2]
	case geom.RZ:
		return p[0] * math.Cos(theta), p[0] * math.Sin(theta), p[1]
	default: // Cartesian2D stores (x, z)
		return p[0], 0, p[1]
	}
}

// planeCoords projects Cartesian coordinates back onto the stored
// coordinate plane the level-set field is sampled in.
func planeCoords(mode geom.Mode, x, y, z float64) [3]float64 {
	switch mode {
	case geom.Cartesian3D:
		return [3]float64{x, y, z}
	case geom.RZ:
		return [3]float64{math.Hypot(x, y), z, 0}
	default:
		return [3]float64{x, z, 0}
	}
}

// intersectSurface is the embedded-surface localizer. It copies all
// attributes and stamps the capture step like copyAndStamp, then rewinds
// the particle along its momentum to the sub-step point where the
// level set vanishes: a bisection over the backward time fraction
// f in [0, 1], where f=0 is the current (outside) position and f=1 the
// reconstructed pre-step (inside) position. The destination position is
// overwritten with the crossing point; in RZ mode the Cartesian crossing
// point is converted back to (r, theta, z).
func intersectSurface(mode geom.Mode, phi *fields.NodalField, dt float64, stampIdx int, step int64) compact.Transform {
	return func(dst, src *particles.Tile, srcIdx, dstIdx int) {
		dst.CopyFrom(src, srcIdx, dstIdx)
		dst.Int[stampIdx][dstIdx] = step

		var theta float64
		if mode.Axisymmetric() {
			theta = dst.Theta[dstIdx]
		}
		x, y, z := cartesian(mode, dst.Position(dstIdx), theta)
		ux := dst.Mom[0][dstIdx]
		uy := dst.Mom[1][dstIdx]
		uz := dst.Mom[2][dstIdx]

		frac := Bisect(0, 1, func(f float64) float64 {
			xt, yt, zt := geom.PushPosition(x, y, z, ux, uy, uz, -f*dt)
			return phi.Interp(planeCoords(mode, xt, yt, zt))
		}, BisectTol)

		xt, yt, zt := geom.PushPosition(x, y, z, ux, uy, uz, -frac*dt)
		switch mode {
		case geom.Cartesian3D:
			dst.SetPosition(dstIdx, [3]float64{xt, yt, zt})
		case geom.RZ:
			r, th := geom.ToRZ(xt, yt)
			dst.Theta[dstIdx] = th
			dst.SetPosition(dstIdx, [3]float64{r, zt, 0})
		default:
			dst.SetPosition(dstIdx, [3]float64{xt, zt, 0})
		}
	}
}
