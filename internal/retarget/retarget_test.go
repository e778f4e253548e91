package retarget

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"mocap-fk/internal/jointmap"
	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/skeleton"
)

// asfSpecs lays the 24 mapped bones out along the SMPL tree and inserts
// two unmapped hip bones between the root and the femurs.
func asfSpecs(dof func(name string) []string) []skeleton.BoneSpec {
	names := jointmap.ASFNames()
	specs := []skeleton.BoneSpec{{Name: "root", AxisOrder: "XYZ"}}
	for idx := 1; idx < jointmap.Count; idx++ {
		p, _ := jointmap.SMPLParent(idx)
		parent := names[p]
		switch names[idx] {
		case "lfemur":
			parent = "lhipjoint"
		case "rfemur":
			parent = "rhipjoint"
		}
		f := float64(idx)
		specs = append(specs, skeleton.BoneSpec{
			Name:      names[idx],
			Parent:    parent,
			Direction: mathutil.Vec3{math.Sin(f), math.Cos(f), 0.3},
			Length:    1 + f/10,
			Axis:      mathutil.Vec3{f * 7, -f * 3, f * 11},
			DOF:       dof(names[idx]),
		})
	}
	specs = append(specs,
		skeleton.BoneSpec{Name: "lhipjoint", Parent: "root", Direction: mathutil.Vec3{1, -1, 0}, Length: 2, Axis: mathutil.Vec3{0, 0, -20}},
		skeleton.BoneSpec{Name: "rhipjoint", Parent: "root", Direction: mathutil.Vec3{-1, -1, 0}, Length: 2, Axis: mathutil.Vec3{0, 0, 20}},
	)
	return specs
}

func fullDOF(string) []string { return []string{"rx", "ry", "rz"} }

func kneeDOF(name string) []string {
	if name == "ltibia" || name == "rtibia" {
		return []string{"rx"}
	}
	return fullDOF(name)
}

func smplSkeleton(t *testing.T) *skeleton.SMPLSkeleton {
	t.Helper()
	rest := make([]mathutil.Vec3, jointmap.Count)
	for i := range rest {
		rest[i] = mathutil.Vec3{float64(i) * 0.1, float64(i%5) * 0.2, float64(i%3) * -0.1}
	}
	s, err := skeleton.CanonicalSMPL(rest)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func build(t *testing.T, dof func(string) []string, opts Options) (*skeleton.Skeleton, *Retargeter) {
	t.Helper()
	asf, err := skeleton.Build(asfSpecs(dof))
	if err != nil {
		t.Fatal(err)
	}
	r, err := New(asf, smplSkeleton(t), opts)
	if err != nil {
		t.Fatal(err)
	}
	return asf, r
}

func randomFrame(s *skeleton.Skeleton, rng *rand.Rand) skeleton.Frame {
	f := s.ZeroFrame()
	for name, v := range f {
		for i := range v {
			if name == "root" && i < 3 {
				continue
			}
			v[i] = rng.Float64()*80 - 40
		}
	}
	return f
}

func TestWorldRotationsCarryOver(t *testing.T) {
	asf, r := build(t, kneeDOF, Options{})
	rng := rand.New(rand.NewSource(5))
	for n := 0; n < 20; n++ {
		frame := randomFrame(asf, rng)
		asfPose, err := asf.Solve(frame, skeleton.Options{})
		if err != nil {
			t.Fatal(err)
		}
		smplPose, err := r.Drive(frame, skeleton.Options{}, skeleton.SMPLOptions{})
		if err != nil {
			t.Fatal(err)
		}
		for idx := 0; idx < jointmap.Count; idx++ {
			name, _ := jointmap.ToASFName(idx)
			want, _ := asfPose.Lookup(name)
			if have := smplPose.At(idx).Rotation; !have.ApproxEqual(want.Rotation, 1e-9) {
				t.Fatalf("frame %d joint %d (%s):\nhave %v\nwant %v", n, idx, name, have, want.Rotation)
			}
		}
	}
}

func TestZeroFrameGivesIdentity(t *testing.T) {
	asf, r := build(t, kneeDOF, Options{})
	pose, err := asf.Solve(asf.ZeroFrame(), skeleton.Options{})
	if err != nil {
		t.Fatal(err)
	}
	rot, err := r.ToSMPL(pose)
	if err != nil {
		t.Fatal(err)
	}
	for i, m := range rot {
		if !m.ApproxEqual(mathutil.Mat3Identity(), 1e-9) {
			t.Fatalf("joint %d: have %v, want identity", i, m)
		}
	}
}

func TestRoundTripFullDOF(t *testing.T) {
	asf, r := build(t, fullDOF, Options{RequireFullDOF: true})
	rng := rand.New(rand.NewSource(6))
	for n := 0; n < 20; n++ {
		frame := randomFrame(asf, rng)
		frame["root"][0], frame["root"][1], frame["root"][2] = 1, 2, 3
		pose, err := asf.Solve(frame, skeleton.Options{})
		if err != nil {
			t.Fatal(err)
		}
		rot, err := r.ToSMPL(pose)
		if err != nil {
			t.Fatal(err)
		}
		back, err := r.ToFrame(rot, mathutil.Vec3{1, 2, 3})
		if err != nil {
			t.Fatal(err)
		}
		for name, want := range frame {
			have := back[name]
			if len(have) != len(want) {
				t.Fatalf("%s: have %d channels, want %d", name, len(have), len(want))
			}
			for k := range want {
				if math.Abs(have[k]-want[k]) > 1e-6 {
					t.Fatalf("frame %d %s[%d]\nhave %v\nwant %v", n, name, k, have, want)
				}
			}
		}
	}
}

func TestToFrameMasksFixedAxes(t *testing.T) {
	asf, r := build(t, kneeDOF, Options{})
	rot := skeleton.IdentityRotations(jointmap.Count)
	knee := asf.Bone(mustLookup(t, asf, "ltibia"))
	// a rotation about the knee's live axis survives, a twist is dropped
	live := knee.LocalRotation([3]float64{25, 0, 0})
	rot[4] = live
	frame, err := r.ToFrame(rot, mathutil.Vec3{})
	if err != nil {
		t.Fatal(err)
	}
	if have := frame["ltibia"]; len(have) != 1 || math.Abs(have[0]-25) > 1e-9 {
		t.Fatalf("ltibia\nhave %v\nwant [25]", have)
	}
	if _, ok := frame["lhipjoint"]; ok {
		t.Fatal("zero-DOF lhipjoint got channels")
	}

	rot[4] = knee.LocalRotation([3]float64{25, 30, 0})
	frame, err = r.ToFrame(rot, mathutil.Vec3{})
	if err != nil {
		t.Fatal(err)
	}
	if len(frame["ltibia"]) != 1 {
		t.Fatalf("ltibia: have %v, want one channel", frame["ltibia"])
	}
	if _, err := asf.Solve(frame, skeleton.Options{}); err != nil {
		t.Fatalf("Solve(ToFrame): %v", err)
	}
}

func TestConfigurationErrors(t *testing.T) {
	var cerr *skeleton.ConfigurationError

	asf, err := skeleton.Build(asfSpecs(kneeDOF))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(asf, smplSkeleton(t), Options{RequireFullDOF: true}); !errors.As(err, &cerr) {
		t.Errorf("RequireFullDOF with 1-DOF knees: have %v", err)
	}

	specs := asfSpecs(fullDOF)
	for i := range specs {
		if specs[i].Name == "head" {
			specs = append(specs[:i], specs[i+1:]...)
			break
		}
	}
	asf, err = skeleton.Build(specs)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := New(asf, smplSkeleton(t), Options{}); !errors.As(err, &cerr) || cerr.Joint != "head" {
		t.Errorf("missing head: have %v", err)
	}

	small, err := skeleton.BuildSMPL([]skeleton.JointSpec{{Index: 0, Parent: -1}})
	if err != nil {
		t.Fatal(err)
	}
	asf, _ = skeleton.Build(asfSpecs(fullDOF))
	if _, err := New(asf, small, Options{}); !errors.As(err, &cerr) {
		t.Errorf("1-joint SMPL: have %v", err)
	}
}

func TestSizeErrors(t *testing.T) {
	_, r := build(t, fullDOF, Options{})
	var mismatch *skeleton.ChannelCountMismatchError
	if _, err := r.ToFrame(skeleton.IdentityRotations(3), mathutil.Vec3{}); !errors.As(err, &mismatch) {
		t.Errorf("ToFrame(3): have %v", err)
	}
	small, _ := skeleton.BuildSMPL([]skeleton.JointSpec{{Index: 0, Parent: -1}})
	if _, err := r.ToSMPL(small.RestPose()); !errors.As(err, &mismatch) {
		t.Errorf("ToSMPL(1-joint pose): have %v", err)
	}
}

func mustLookup(t *testing.T, s *skeleton.Skeleton, name string) int {
	t.Helper()
	i, ok := s.Lookup(name)
	if !ok {
		t.Fatalf("no bone %q", name)
	}
	return i
}

func TestSMPLFromASF(t *testing.T) {
	asf, err := skeleton.Build(asfSpecs(fullDOF))
	if err != nil {
		t.Fatal(err)
	}
	smpl, err := SMPLFromASF(asf)
	if err != nil {
		t.Fatal(err)
	}
	if smpl.Len() != jointmap.Count {
		t.Fatalf("have %d joints", smpl.Len())
	}

	rest := asf.RestPose()
	lhip, _ := rest.Lookup("lhipjoint")
	if have := smpl.RestPose().At(1).Coordinate; !have.ApproxEqual(lhip.Coordinate, 1e-12) {
		t.Fatalf("SMPL joint 1 (lfemur pivot)\nhave %v\nwant %v", have, lhip.Coordinate)
	}
	if have := smpl.RestPose().At(0).Coordinate; have != (mathutil.Vec3{}) {
		t.Fatalf("root at %v", have)
	}

	if _, err := New(asf, smpl, Options{}); err != nil {
		t.Fatalf("derived skeleton rejected: %v", err)
	}

	partial, err := skeleton.Build([]skeleton.BoneSpec{{Name: "root"}})
	if err != nil {
		t.Fatal(err)
	}
	var cfg *skeleton.ConfigurationError
	if _, err := SMPLFromASF(partial); !errors.As(err, &cfg) {
		t.Fatalf("have %v, want ConfigurationError", err)
	}
}
