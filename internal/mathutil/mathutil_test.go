package mathutil

import (
	"math"
	"testing"
)

func TestEulerXYZOrder(t *testing.T) {
	rx, ry, rz := 0.3, -0.7, 1.1
	want := Mat3Mul(Mat3Mul(RotZ(rz), RotY(ry)), RotX(rx))
	if have := EulerXYZ(rx, ry, rz); !have.ApproxEqual(want, Epsilon) {
		t.Fatalf("EulerXYZ:\nhave %v\nwant %v", have, want)
	}
}

func TestRotationSigns(t *testing.T) {
	down := Vec3{0, -1, 0}
	cases := []struct {
		name string
		m    Mat3
		v    Vec3
		want Vec3
	}{
		{"z90 of -y", RotZ(math.Pi / 2), down, Vec3{1, 0, 0}},
		{"y90 of -y", RotY(math.Pi / 2), down, down},
		{"x90 of -y", RotX(math.Pi / 2), down, Vec3{0, 0, -1}},
		{"y90 of +x", RotY(math.Pi / 2), Vec3{1, 0, 0}, Vec3{0, 0, -1}},
	}
	for _, c := range cases {
		if have := c.m.MulVec3(c.v); !have.ApproxEqual(c.want, Epsilon) {
			t.Errorf("%s:\nhave %v\nwant %v", c.name, have, c.want)
		}
	}
}

func TestToEulerXYZ(t *testing.T) {
	for _, e := range []Vec3{
		{0, 0, 0},
		{0.1, 0.2, 0.3},
		{-1.2, 0.9, 2.5},
		{math.Pi / 3, -math.Pi / 4, -math.Pi / 6},
	} {
		have := ToEulerXYZ(EulerXYZ(e[0], e[1], e[2]))
		if !have.ApproxEqual(e, 1e-9) {
			t.Errorf("ToEulerXYZ(EulerXYZ(%v)):\nhave %v\nwant %v", e, have, e)
		}
	}

	// Gimbal lock: only the recomposed matrix is meaningful.
	m := EulerXYZ(0.4, math.Pi/2, 0.2)
	e := ToEulerXYZ(m)
	if have := EulerXYZ(e[0], e[1], e[2]); !have.ApproxEqual(m, 1e-9) {
		t.Fatalf("gimbal recompose:\nhave %v\nwant %v", have, m)
	}
}

func TestIsRotation(t *testing.T) {
	if !EulerXYZ(0.5, 1, -2).IsRotation(Epsilon) {
		t.Fatal("EulerXYZ: not a rotation")
	}
	if Mat3Diag(-1, 1, 1).IsRotation(Epsilon) {
		t.Fatal("reflection reported as rotation")
	}
	if Mat3Diag(2, 1, 1).IsRotation(Epsilon) {
		t.Fatal("scale reported as rotation")
	}
	m := RotY(0.8)
	if !Mat3Mul(m, m.Transpose()).ApproxEqual(Mat3Identity(), Epsilon) {
		t.Fatal("transpose is not the inverse")
	}
}

func TestAxisAngleToMat3(t *testing.T) {
	cases := []struct {
		v    Vec3
		want Mat3
	}{
		{Vec3{}, Mat3Identity()},
		{Vec3{0, math.Pi / 2, 0}, RotY(math.Pi / 2)},
		{Vec3{-0.4, 0, 0}, RotX(-0.4)},
		{Vec3{0, 0, 2}, RotZ(2)},
	}
	for _, c := range cases {
		if have := AxisAngleToMat3(c.v); !have.ApproxEqual(c.want, 1e-12) {
			t.Errorf("AxisAngleToMat3(%v):\nhave %v\nwant %v", c.v, have, c.want)
		}
	}
}
