package mathutil

import "math"

// RotX returns a 3×3 rotation matrix around the X axis. Angle in radians.
func RotX(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	}
}

// RotY returns a 3×3 rotation matrix around the Y axis.
func RotY(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	}
}

// RotZ returns a 3×3 rotation matrix around the Z axis.
func RotZ(a float64) Mat3 {
	c, s := math.Cos(a), math.Sin(a)
	return Mat3{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	}
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(r float64) float64 {
	return r * 180 / math.Pi
}

// EulerXYZ composes static-frame rotations about X, then Y, then Z:
// Rz(rz) × Ry(ry) × Rx(rx). Angles in radians.
func EulerXYZ(rx, ry, rz float64) Mat3 {
	return Mat3Mul(Mat3Mul(RotZ(rz), RotY(ry)), RotX(rx))
}

// EulerXYZDeg is EulerXYZ with the angles given in degrees.
func EulerXYZDeg(deg Vec3) Mat3 {
	return EulerXYZ(Deg2Rad(deg[0]), Deg2Rad(deg[1]), Deg2Rad(deg[2]))
}

// ToEulerXYZ decomposes a rotation built by EulerXYZ back into (rx, ry, rz)
// radians. ry is kept in [-π/2, π/2]; at gimbal lock rz is reported as 0.
func ToEulerXYZ(m Mat3) Vec3 {
	cy := math.Hypot(m[0], m[3])
	ry := math.Atan2(-m[6], cy)
	if cy > gimbalEpsilon {
		return Vec3{math.Atan2(m[7], m[8]), ry, math.Atan2(m[3], m[0])}
	}
	return Vec3{math.Atan2(-m[5], m[4]), ry, 0}
}
