// Package skeleton implements forward kinematics for two skeleton
// conventions: ASF-style bones (direction, length, axis correction, DOF
// mask) and SMPL-style joints (indexed, parent-relative rest offsets).
//
// Topologies are immutable once built. Solving a frame never touches the
// topology and returns a fresh Pose, so independent frames may be solved
// concurrently.
package skeleton

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"

	"mocap-fk/internal/mathutil"
)

// RootChannels is the number of frame values for the ASF root:
// translation (x, y, z) followed by rotation (rx, ry, rz) in degrees.
const RootChannels = 6

// BoneSpec is the static description of one ASF bone as supplied by a
// skeleton-file reader.
type BoneSpec struct {
	Name      string
	Parent    string        // empty for the root
	Direction mathutil.Vec3 // rest direction, normalized on build
	Length    float64
	Axis      mathutil.Vec3 // axis-correction angles in degrees
	AxisOrder string        // "" or "XYZ"
	DOF       []string      // subset of rx, ry, rz in channel order
	Limits    [][2]float64  // parallel to DOF, degrees; may be empty
}

// Bone is one node of a built Skeleton.
type Bone struct {
	Name      string
	Index     int
	Parent    int // -1 for the root
	Children  []int
	Direction mathutil.Vec3
	Length    float64
	Axis      mathutil.Mat3 // C
	AxisInv   mathutil.Mat3 // C transposed
	DOF       DOF
}

// Channels is the number of values a frame must carry for the bone.
func (b *Bone) Channels() int {
	if b.Parent < 0 {
		return RootChannels
	}
	return b.DOF.Channels()
}

// Fixed reports a non-root bone declared without any DOF axis. It always
// keeps its parent's world rotation.
func (b *Bone) Fixed() bool {
	return b.Parent >= 0 && b.DOF.Channels() == 0
}

// LocalRotation returns C × E(deg) × C⁻¹ for rotation angles in degrees.
func (b *Bone) LocalRotation(deg [3]float64) mathutil.Mat3 {
	return mathutil.Mat3Chain(b.Axis, mathutil.EulerXYZDeg(deg), b.AxisInv)
}

// Skeleton is an immutable ASF bone hierarchy stored as an arena.
type Skeleton struct {
	bones  []Bone
	byName map[string]int
	order  []int
	root   int
}

// Build validates specs and returns the skeleton. All structure and
// configuration problems found are reported together.
func Build(specs []BoneSpec) (*Skeleton, error) {
	var merr *multierror.Error

	s := &Skeleton{
		bones:  make([]Bone, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		switch _, dup := s.byName[spec.Name]; {
		case spec.Name == "":
			merr = multierror.Append(merr, &StructureError{Joint: fmt.Sprintf("#%d", i), Reason: "empty name"})
		case dup:
			merr = multierror.Append(merr, &StructureError{Joint: spec.Name, Reason: "duplicate name"})
		default:
			s.byName[spec.Name] = i
		}
	}

	names := make([]string, len(specs))
	parents := make([]int, len(specs))
	for i, spec := range specs {
		names[i] = spec.Name
		parents[i] = -1
		if spec.Parent != "" {
			p, ok := s.byName[spec.Parent]
			if !ok {
				merr = multierror.Append(merr, &StructureError{
					Joint:  spec.Name,
					Reason: fmt.Sprintf("unknown parent %q", spec.Parent),
				})
				continue
			}
			parents[i] = p
		}

		if spec.Length < 0 {
			merr = multierror.Append(merr, &StructureError{Joint: spec.Name, Reason: "negative length"})
		}
		if spec.AxisOrder != "" && !strings.EqualFold(spec.AxisOrder, "XYZ") {
			merr = multierror.Append(merr, &ConfigurationError{
				Joint:  spec.Name,
				Reason: fmt.Sprintf("axis order %q, solver composes XYZ", spec.AxisOrder),
			})
		}

		var dof DOF
		if spec.Parent != "" {
			d, err := newDOF(spec.DOF, spec.Limits)
			if err != nil {
				merr = multierror.Append(merr, &ConfigurationError{Joint: spec.Name, Reason: err.Error()})
			}
			dof = d
		}

		c := mathutil.EulerXYZDeg(spec.Axis)
		s.bones[i] = Bone{
			Name:      spec.Name,
			Index:     i,
			Direction: spec.Direction.Normalize(),
			Length:    spec.Length,
			Axis:      c,
			AxisInv:   c.Transpose(),
			DOF:       dof,
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
	for i := range s.bones {
		s.bones[i].Parent = parents[i]
		s.bones[i].Children = children[i]
	}
	s.root = root
	s.order = order
	return s, nil
}

// Len returns the number of bones.
func (s *Skeleton) Len() int { return len(s.bones) }

// Root returns the index of the root bone.
func (s *Skeleton) Root() int { return s.root }

// Bone returns bone i. The returned value must not be modified.
func (s *Skeleton) Bone(i int) *Bone { return &s.bones[i] }

// Lookup returns the index of the named bone.
func (s *Skeleton) Lookup(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Order returns the evaluation order, parents before children.
func (s *Skeleton) Order() []int {
	out := make([]int, len(s.order))
	copy(out, s.order)
	return out
}

// RestPose places the root at the origin and every other bone's end at
// parent end + length × direction, with identity rotations.
func (s *Skeleton) RestPose() *Pose {
	pose := newPose(len(s.bones), s.byName)
	for _, i := range s.order {
		b := &s.bones[i]
		st := JointState{Name: b.Name, Index: i, Parent: b.Parent, Rotation: mathutil.Mat3Identity()}
		if b.Parent >= 0 {
			st.Coordinate = pose.joints[b.Parent].Coordinate.Add(b.Direction.Scale(b.Length))
		}
		pose.joints[i] = st
	}
	return pose
}

// Describe writes a human-readable dump of every bone in evaluation order.
func (s *Skeleton) Describe(w io.Writer) error {
	for _, i := range s.order {
		b := &s.bones[i]
		parent := "-"
		if b.Parent >= 0 {
			parent = s.bones[b.Parent].Name
		}
		dof := []string{}
		if b.Fixed() {
			dof = append(dof, "fixed")
		}
		for axis, a := range b.DOF {
			if a.Enabled {
				dof = append(dof, fmt.Sprintf("%s(%g %g)", Axis(axis), a.Min, a.Max))
			}
		}
		if _, err := fmt.Fprintf(w, "%-12s parent=%-12s len=%-8.4g dir=(%.4f %.4f %.4f) dof=[%s]\n",
			b.Name, parent, b.Length, b.Direction[0], b.Direction[1], b.Direction[2],
			strings.Join(dof, " ")); err != nil {
			return err
		}
	}
	return nil
}
