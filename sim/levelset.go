package sim

import (
	"math"

	"skimmer/config"
	"skimmer/fields"
	"skimmer/geom"
)

// buildLevelSet samples the configured spherical embedded surface into
// one nodal field per level: distance to the sphere, negative inside
// (the forbidden region). Returns nil when the surface is disabled.
func buildLevelSet(cfg *config.Config, numLevels int) []*fields.NodalField {
	if !cfg.Surface.Enabled {
		return nil
	}
	mode := cfg.Derived.Mode
	dim := mode.Dim()
	d := cfg.Derived.Domain

	// Center is given in stored coordinates: (x, y, z) in 3D, (x, z) in
	// 2D, (r=0 implied, z) in RZ where the surface must be axisymmetric.
	sphere := func(c [3]float64) float64 {
		var sq float64
		if mode == geom.RZ {
			dz := c[1] - cfg.Surface.Center[1]
			sq = c[0]*c[0] + dz*dz
		} else {
			for a := 0; a < dim; a++ {
				dd := c[a] - cfg.Surface.Center[a]
				sq += dd * dd
			}
		}
		return math.Sqrt(sq) - cfg.Surface.Radius
	}

	phi := make([]*fields.NodalField, numLevels)
	for lev := range phi {
		phi[lev] = fields.NewFromFunc(dim, cfg.Surface.NodesPerAxis, d.Lo, d.Hi, sphere)
	}
	return phi
}
