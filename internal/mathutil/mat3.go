package mathutil

import "math"

// Mat3 is a 3×3 matrix stored row-major: [r0c0, r0c1, r0c2, r1c0, ...].
// Value type for zero heap allocation.
type Mat3 [9]float64

func Mat3Identity() Mat3 {
	return Mat3{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func Mat3Diag(x, y, z float64) Mat3 {
	return Mat3{x, 0, 0, 0, y, 0, 0, 0, z}
}

// Mat3Mul returns a × b.
func Mat3Mul(a, b Mat3) Mat3 {
	var m Mat3
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m[r*3+c] = a[r*3+0]*b[0*3+c] + a[r*3+1]*b[1*3+c] + a[r*3+2]*b[2*3+c]
		}
	}
	return m
}

// Mat3Chain multiplies left to right: ms[0] × ms[1] × ... .
func Mat3Chain(ms ...Mat3) Mat3 {
	m := Mat3Identity()
	for _, n := range ms {
		m = Mat3Mul(m, n)
	}
	return m
}

// MulVec3 returns M × v.
func (m Mat3) MulVec3(v Vec3) Vec3 {
	return Vec3{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

// At returns the element at row r, column c.
func (m Mat3) At(r, c int) float64 {
	return m[r*3+c]
}

func (m Mat3) Det() float64 {
	return m[0]*(m[4]*m[8]-m[5]*m[7]) -
		m[1]*(m[3]*m[8]-m[5]*m[6]) +
		m[2]*(m[3]*m[7]-m[4]*m[6])
}

// Transpose is also the inverse of a proper rotation.
func (m Mat3) Transpose() Mat3 {
	return Mat3{
		m[0], m[3], m[6],
		m[1], m[4], m[7],
		m[2], m[5], m[8],
	}
}

// ApproxEqual reports whether every element of m and n differs by at most tol.
func (m Mat3) ApproxEqual(n Mat3, tol float64) bool {
	for i := range m {
		if math.Abs(m[i]-n[i]) > tol {
			return false
		}
	}
	return true
}

// IsRotation reports whether m is orthonormal with determinant +1 within tol.
func (m Mat3) IsRotation(tol float64) bool {
	if !Mat3Mul(m, m.Transpose()).ApproxEqual(Mat3Identity(), tol) {
		return false
	}
	return math.Abs(m.Det()-1) <= tol
}
