package skeleton

import "mocap-fk/internal/mathutil"

// JointState is the solved world-space state of one joint. For ASF bones
// Coordinate is the far end of the bone; for SMPL joints it is the joint
// position itself.
type JointState struct {
	Name       string
	Index      int
	Parent     int
	Coordinate mathutil.Vec3
	Rotation   mathutil.Mat3
}

// TraceFunc observes each joint once its state is final, in evaluation
// order (parents before children).
type TraceFunc func(JointState)

// Pose is the output of one solve. It is freshly allocated per call and
// owned by the caller.
type Pose struct {
	joints []JointState
	byName map[string]int
}

func newPose(n int, byName map[string]int) *Pose {
	return &Pose{joints: make([]JointState, n), byName: byName}
}

// Len returns the number of joints.
func (p *Pose) Len() int { return len(p.joints) }

// At returns the state of joint i.
func (p *Pose) At(i int) JointState { return p.joints[i] }

// Lookup returns the state of the named joint.
func (p *Pose) Lookup(name string) (JointState, bool) {
	i, ok := p.byName[name]
	if !ok {
		return JointState{}, false
	}
	return p.joints[i], true
}

// Joints returns a copy of all joint states, indexed like the topology.
func (p *Pose) Joints() []JointState {
	out := make([]JointState, len(p.joints))
	copy(out, p.joints)
	return out
}

// Coordinates maps joint names to world coordinates.
func (p *Pose) Coordinates() map[string]mathutil.Vec3 {
	out := make(map[string]mathutil.Vec3, len(p.joints))
	for _, j := range p.joints {
		out[j.Name] = j.Coordinate
	}
	return out
}
