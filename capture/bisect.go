package capture

// BisectTol is the bracket-width tolerance for crossing localization.
const BisectTol = 1e-6

const bisectMaxIter = 100

// Bisect finds a root of fn inside [lo, hi] by bracket halving, assuming
// fn changes sign across the bracket. Bisection is used instead of a
// gradient-based search because the discrete level-set gradient near
// complex geometry is unreliable at grid resolution; sign evaluations are
// always trustworthy and the sign change is guaranteed by construction
// (the particle was inside at one bracket end and outside at the other).
func Bisect(lo, hi float64, fn func(float64) float64, tol float64) float64 {
	flo := fn(lo)
	if flo == 0 {
		return lo
	}
	for iter := 0; iter < bisectMaxIter && hi-lo >= tol; iter++ {
		mid := 0.5 * (lo + hi)
		fm := fn(mid)
		if fm == 0 {
			return mid
		}
		if (fm > 0) == (flo > 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}
