package mathutil

// Tolerances used when comparing derived rotations and coordinates.
const (
	// Epsilon is the default absolute tolerance for matrix and vector comparisons.
	Epsilon = 1e-9

	// gimbalEpsilon bounds cos(ry) below which Euler decomposition is treated as locked.
	gimbalEpsilon = 1e-12
)
