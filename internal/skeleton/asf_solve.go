package skeleton

import "mocap-fk/internal/mathutil"

// Frame maps bone names to motion values in degrees. The root carries
// RootChannels values; other bones carry one value per live DOF axis in
// rx, ry, rz order.
type Frame map[string][]float64

// RootTranslation selects how the root's translation channels are used.
type RootTranslation int

const (
	// RootDiscard pins the root at the origin (pose-only output).
	RootDiscard RootTranslation = iota
	// RootApply places the root at the frame's translation.
	RootApply
)

func (r RootTranslation) String() string {
	if r == RootApply {
		return "apply"
	}
	return "discard"
}

// Options configures an ASF solve.
type Options struct {
	RootTranslation RootTranslation
	Trace           TraceFunc
}

// Solve runs forward kinematics for one frame. The frame is checked in
// full before any joint is evaluated; on error no pose is returned.
func (s *Skeleton) Solve(frame Frame, opts Options) (*Pose, error) {
	locals := make([]mathutil.Mat3, len(s.bones))
	var translation mathutil.Vec3
	for _, i := range s.order {
		b := &s.bones[i]
		values, ok := frame[b.Name]
		want := b.Channels()

		if b.Parent < 0 {
			if !ok {
				return nil, &MissingChannelError{Bone: b.Name}
			}
			if len(values) != want {
				return nil, &ChannelCountMismatchError{Joint: b.Name, Have: len(values), Want: want}
			}
			translation = mathutil.Vec3{values[0], values[1], values[2]}
			locals[i] = b.LocalRotation([3]float64{values[3], values[4], values[5]})
			continue
		}

		if want > 0 && !ok {
			return nil, &MissingChannelError{Bone: b.Name}
		}
		if len(values) != want {
			return nil, &ChannelCountMismatchError{Joint: b.Name, Have: len(values), Want: want}
		}
		locals[i] = b.LocalRotation(b.DOF.Expand(values))
	}

	pose := newPose(len(s.bones), s.byName)
	for _, i := range s.order {
		b := &s.bones[i]
		st := JointState{Name: b.Name, Index: i, Parent: b.Parent}
		if b.Parent < 0 {
			st.Rotation = locals[i]
			if opts.RootTranslation == RootApply {
				st.Coordinate = translation
			}
		} else {
			parent := &pose.joints[b.Parent]
			st.Rotation = mathutil.Mat3Mul(parent.Rotation, locals[i])
			st.Coordinate = parent.Coordinate.Add(st.Rotation.MulVec3(b.Direction).Scale(b.Length))
		}
		pose.joints[i] = st
		if opts.Trace != nil {
			opts.Trace(st)
		}
	}
	return pose, nil
}

// ZeroFrame returns a frame with every channel at zero, which solves to
// the rest pose.
func (s *Skeleton) ZeroFrame() Frame {
	f := make(Frame, len(s.bones))
	for i := range s.bones {
		b := &s.bones[i]
		if n := b.Channels(); n > 0 {
			f[b.Name] = make([]float64, n)
		}
	}
	return f
}
