package skeleton

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"mocap-fk/internal/jointmap"
	"mocap-fk/internal/mathutil"
)

// JointSpec is the static description of one SMPL-style joint: its index,
// its parent's index (-1 for the root) and its rest-pose world coordinate.
type JointSpec struct {
	Index  int
	Parent int
	Rest   mathutil.Vec3
}

// Joint is one node of a built SMPLSkeleton.
type Joint struct {
	Name     string
	Index    int
	Parent   int
	Children []int
	Rest     mathutil.Vec3
	Offset   mathutil.Vec3 // Rest minus the parent's Rest; zero for the root
}

// SMPLSkeleton is an immutable joint hierarchy indexed by joint id.
type SMPLSkeleton struct {
	joints []Joint
	byName map[string]int
	order  []int
	root   int
}

// BuildSMPL validates specs and derives each joint's rest offset. Indices
// must cover 0..len(specs)-1 exactly once.
func BuildSMPL(specs []JointSpec) (*SMPLSkeleton, error) {
	var merr *multierror.Error

	n := len(specs)
	s := &SMPLSkeleton{
		joints: make([]Joint, n),
		byName: make(map[string]int, n),
	}
	seen := make([]bool, n)
	parents := make([]int, n)
	names := make([]string, n)
	for i := range names {
		names[i] = smplJointName(i)
	}
	for _, spec := range specs {
		if spec.Index < 0 || spec.Index >= n {
			merr = multierror.Append(merr, &StructureError{
				Joint:  fmt.Sprintf("joint%d", spec.Index),
				Reason: fmt.Sprintf("index outside 0..%d", n-1),
			})
			continue
		}
		if seen[spec.Index] {
			merr = multierror.Append(merr, &StructureError{Joint: names[spec.Index], Reason: "duplicate index"})
			continue
		}
		seen[spec.Index] = true
		if spec.Parent < -1 || spec.Parent >= n {
			merr = multierror.Append(merr, &StructureError{
				Joint:  names[spec.Index],
				Reason: fmt.Sprintf("unknown parent %d", spec.Parent),
			})
			continue
		}
		parents[spec.Index] = spec.Parent
		s.joints[spec.Index] = Joint{
			Name:   names[spec.Index],
			Index:  spec.Index,
			Parent: spec.Parent,
			Rest:   spec.Rest,
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}

	root, order, err := orderTree(names, parents)
	if err != nil {
		return nil, err
	}
	children := childLists(parents)
	for _, i := range order {
		j := &s.joints[i]
		j.Children = children[i]
		if j.Parent >= 0 {
			j.Offset = j.Rest.Sub(s.joints[j.Parent].Rest)
		}
		s.byName[j.Name] = i
	}
	s.root = root
	s.order = order
	return s, nil
}

// CanonicalSMPL builds the standard 24-joint SMPL tree from rest coordinates
// given by joint index.
func CanonicalSMPL(rest []mathutil.Vec3) (*SMPLSkeleton, error) {
	if len(rest) != jointmap.Count {
		return nil, &StructureError{Reason: fmt.Sprintf("have %d rest coordinates, want %d", len(rest), jointmap.Count)}
	}
	specs := make([]JointSpec, jointmap.Count)
	for i := range specs {
		p, err := jointmap.SMPLParent(i)
		if err != nil {
			return nil, err
		}
		specs[i] = JointSpec{Index: i, Parent: p, Rest: rest[i]}
	}
	return BuildSMPL(specs)
}

func smplJointName(i int) string {
	if name, err := jointmap.SMPLName(i); err == nil {
		return name
	}
	return fmt.Sprintf("joint%d", i)
}

// Len returns the number of joints.
func (s *SMPLSkeleton) Len() int { return len(s.joints) }

// Root returns the index of the root joint.
func (s *SMPLSkeleton) Root() int { return s.root }

// Joint returns joint i. The returned value must not be modified.
func (s *SMPLSkeleton) Joint(i int) *Joint { return &s.joints[i] }

// Order returns the evaluation order, parents before children.
func (s *SMPLSkeleton) Order() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// RestPose returns every joint at its rest coordinate with identity rotation.
func (s *SMPLSkeleton) RestPose() *Pose {
	pose := newPose(len(s.joints), s.byName)
	for _, i := range s.order {
		j := &s.joints[i]
		pose.joints[i] = JointState{
			Name:       j.Name,
			Index:      i,
			Parent:     j.Parent,
			Coordinate: j.Rest,
			Rotation:   mathutil.Mat3Identity(),
		}
	}
	return pose
}

// SMPLOptions configures an SMPL solve.
type SMPLOptions struct {
	// RootCoordinate overrides the root's rest coordinate when set.
	RootCoordinate *mathutil.Vec3
	Trace          TraceFunc
}

// Solve runs forward kinematics from local rotations indexed by joint id.
// A joint's own rotation affects its children's offsets, not its own
// position.
func (s *SMPLSkeleton) Solve(rotations []mathutil.Mat3, opts SMPLOptions) (*Pose, error) {
	if len(rotations) != len(s.joints) {
		return nil, &ChannelCountMismatchError{Joint: "rotations", Have: len(rotations), Want: len(s.joints)}
	}

	pose := newPose(len(s.joints), s.byName)
	for _, i := range s.order {
		j := &s.joints[i]
		st := JointState{Name: j.Name, Index: i, Parent: j.Parent}
		if j.Parent < 0 {
			st.Rotation = rotations[i]
			st.Coordinate = j.Rest
			if opts.RootCoordinate != nil {
				st.Coordinate = *opts.RootCoordinate
			}
		} else {
			parent := &pose.joints[j.Parent]
			st.Coordinate = parent.Coordinate.Add(parent.Rotation.MulVec3(j.Offset))
			st.Rotation = mathutil.Mat3Mul(parent.Rotation, rotations[i])
		}
		pose.joints[i] = st
		if opts.Trace != nil {
			opts.Trace(st)
		}
	}
	return pose, nil
}

// IdentityRotations returns n identity matrices, the rest-pose input to Solve.
func IdentityRotations(n int) []mathutil.Mat3 {
	r := make([]mathutil.Mat3, n)
	for i := range r {
		r[i] = mathutil.Mat3Identity()
	}
	return r
}

// AxisAngleRotations converts a flat SMPL pose vector (3 radians per joint)
// into local rotation matrices.
func AxisAngleRotations(pose []float64) ([]mathutil.Mat3, error) {
	if len(pose)%3 != 0 {
		return nil, &ChannelCountMismatchError{Joint: "pose", Have: len(pose), Want: len(pose) - len(pose)%3}
	}
	r := make([]mathutil.Mat3, len(pose)/3)
	for i := range r {
		r[i] = mathutil.AxisAngleToMat3(mathutil.Vec3{pose[3*i], pose[3*i+1], pose[3*i+2]})
	}
	return r, nil
}
