package geom

import "math"

// SpeedOfLight in m/s.
const SpeedOfLight = 299792458.0

// PushPosition advances a Cartesian position ballistically by dt using the
// relativistic momentum-per-mass components (ux, uy, uz) = gamma*v.
// A negative dt walks the trajectory backwards, which is how the
// embedded-surface localizer reconstructs pre-step positions.
func PushPosition(x, y, z, ux, uy, uz, dt float64) (float64, float64, float64) {
	const invC2 = 1.0 / (SpeedOfLight * SpeedOfLight)
	invGamma := 1.0 / math.Sqrt(1.0+(ux*ux+uy*uy+uz*uz)*invC2)
	return x + ux*invGamma*dt, y + uy*invGamma*dt, z + uz*invGamma*dt
}
