package skeleton

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"mocap-fk/internal/jointmap"
	"mocap-fk/internal/mathutil"
)

func twoJointSMPL(t *testing.T) *SMPLSkeleton {
	t.Helper()
	s, err := BuildSMPL([]JointSpec{
		{Index: 0, Parent: -1},
		{Index: 1, Parent: 0, Rest: mathutil.Vec3{0, -5, 0}},
	})
	if err != nil {
		t.Fatalf("BuildSMPL: %v", err)
	}
	return s
}

// canonicalRest is a rough T-pose for the 24 SMPL joints.
func canonicalRest() []mathutil.Vec3 {
	return []mathutil.Vec3{
		{0, 0.9, 0}, {0.1, 0.8, 0}, {-0.1, 0.8, 0}, {0, 1.0, 0},
		{0.1, 0.45, 0}, {-0.1, 0.45, 0}, {0, 1.15, 0}, {0.1, 0.05, 0},
		{-0.1, 0.05, 0}, {0, 1.2, 0}, {0.1, 0, 0.12}, {-0.1, 0, 0.12},
		{0, 1.4, 0}, {0.08, 1.32, 0}, {-0.08, 1.32, 0}, {0, 1.5, 0.05},
		{0.18, 1.35, 0}, {-0.18, 1.35, 0}, {0.43, 1.35, 0}, {-0.43, 1.35, 0},
		{0.68, 1.35, 0}, {-0.68, 1.35, 0}, {0.76, 1.35, 0}, {-0.76, 1.35, 0},
	}
}

func TestSMPLTwoJointScenario(t *testing.T) {
	s := twoJointSMPL(t)
	if have := s.Joint(1).Offset; have != (mathutil.Vec3{0, -5, 0}) {
		t.Fatalf("offset\nhave %v\nwant (0,-5,0)", have)
	}

	id := mathutil.Mat3Identity()
	pose, err := s.Solve([]mathutil.Mat3{id, id}, SMPLOptions{})
	if err != nil {
		t.Fatal(err)
	}
	want := mathutil.Vec3{0, -5, 0}
	if have := pose.At(1).Coordinate; !have.ApproxEqual(want, tol) {
		t.Fatalf("joint 1\nhave %v\nwant %v", have, want)
	}

	ry := mathutil.RotY(math.Pi / 2)
	pose, err = s.Solve([]mathutil.Mat3{id, ry}, SMPLOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if have := pose.At(1).Coordinate; !have.ApproxEqual(want, tol) {
		t.Fatalf("joint 1 after own rotation\nhave %v\nwant %v", have, want)
	}
	if have := pose.At(1).Rotation; !have.ApproxEqual(ry, tol) {
		t.Fatalf("joint 1 rotation\nhave %v\nwant %v", have, ry)
	}

	// a parent rotation does move the child
	rz := mathutil.RotZ(math.Pi / 2)
	pose, err = s.Solve([]mathutil.Mat3{rz, id}, SMPLOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if have := pose.At(1).Coordinate; !have.ApproxEqual(mathutil.Vec3{5, 0, 0}, tol) {
		t.Fatalf("joint 1 after root rotation\nhave %v\nwant (5,0,0)", have)
	}

	origin := mathutil.Vec3{1, 1, 1}
	pose, err = s.Solve([]mathutil.Mat3{id, id}, SMPLOptions{RootCoordinate: &origin})
	if err != nil {
		t.Fatal(err)
	}
	if have := pose.At(1).Coordinate; !have.ApproxEqual(mathutil.Vec3{1, -4, 1}, tol) {
		t.Fatalf("joint 1 with moved root\nhave %v\nwant (1,-4,1)", have)
	}
}

func TestSMPLRestPose(t *testing.T) {
	rest := canonicalRest()
	s, err := CanonicalSMPL(rest)
	if err != nil {
		t.Fatal(err)
	}
	restPose := s.RestPose()
	pose, err := s.Solve(IdentityRotations(s.Len()), SMPLOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < s.Len(); i++ {
		if have := restPose.At(i).Coordinate; have != rest[i] {
			t.Errorf("RestPose joint %d\nhave %v\nwant %v", i, have, rest[i])
		}
		if have := pose.At(i).Coordinate; !have.ApproxEqual(rest[i], tol) {
			t.Errorf("identity solve joint %d\nhave %v\nwant %v", i, have, rest[i])
		}
	}
	if j, ok := pose.Lookup("lknee"); !ok || j.Index != 4 {
		t.Fatalf("Lookup(lknee): have %+v, %v", j, ok)
	}
}

func TestSMPLOrthonormalAndIsolation(t *testing.T) {
	s, err := CanonicalSMPL(canonicalRest())
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(4))
	vec := make([]float64, 3*s.Len())
	for i := range vec {
		vec[i] = rng.Float64()*2 - 1
	}
	r, err := AxisAngleRotations(vec)
	if err != nil {
		t.Fatal(err)
	}
	before, err := s.Solve(r, SMPLOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, j := range before.Joints() {
		if !j.Rotation.IsRotation(1e-9) {
			t.Fatalf("%s: rotation not orthonormal", j.Name)
		}
	}

	// rotating the left elbow moves only the left wrist and hand
	r[18] = mathutil.Mat3Mul(r[18], mathutil.RotZ(0.5))
	after, err := s.Solve(r, SMPLOptions{})
	if err != nil {
		t.Fatal(err)
	}
	moved := map[int]bool{20: true, 22: true}
	for i := 0; i < s.Len(); i++ {
		same := after.At(i).Coordinate.ApproxEqual(before.At(i).Coordinate, tol)
		if moved[i] == same {
			t.Errorf("joint %d: moved=%v, want %v", i, !same, moved[i])
		}
	}
}

func TestSMPLErrors(t *testing.T) {
	s := twoJointSMPL(t)
	var mismatch *ChannelCountMismatchError
	if _, err := s.Solve(IdentityRotations(3), SMPLOptions{}); !errors.As(err, &mismatch) || mismatch.Want != 2 {
		t.Errorf("Solve with 3 rotations: have %v", err)
	}
	if _, err := AxisAngleRotations(make([]float64, 7)); !errors.As(err, &mismatch) {
		t.Errorf("AxisAngleRotations(7): have %v", err)
	}
	if _, err := CanonicalSMPL(make([]mathutil.Vec3, 3)); err == nil {
		t.Error("CanonicalSMPL with 3 joints succeeded")
	}

	cases := map[string][]JointSpec{
		"duplicate": {{Index: 0, Parent: -1}, {Index: 0, Parent: -1}},
		"range":     {{Index: 0, Parent: -1}, {Index: 5, Parent: 0}},
		"dangling":  {{Index: 0, Parent: -1}, {Index: 1, Parent: 7}},
		"two roots": {{Index: 0, Parent: -1}, {Index: 1, Parent: -1}},
		"cycle":     {{Index: 0, Parent: -1}, {Index: 1, Parent: 2}, {Index: 2, Parent: 1}},
		"no root":   {{Index: 0, Parent: 1}, {Index: 1, Parent: 0}},
	}
	for name, specs := range cases {
		var serr *StructureError
		if _, err := BuildSMPL(specs); !errors.As(err, &serr) {
			t.Errorf("%s: have %v, want StructureError", name, err)
		}
	}
}

func TestSMPLNames(t *testing.T) {
	s := twoJointSMPL(t)
	for i := 0; i < s.Len(); i++ {
		want, _ := jointmap.SMPLName(i)
		if have := s.Joint(i).Name; have != want {
			t.Errorf("joint %d name\nhave %q\nwant %q", i, have, want)
		}
	}
}
