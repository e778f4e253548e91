// Package retarget drives one skeleton convention with motion authored for
// the other, through the fixed ASF/SMPL joint correspondence.
package retarget

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"mocap-fk/internal/jointmap"
	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/skeleton"
)

// Options configures the build-time compatibility checks.
type Options struct {
	// RequireFullDOF rejects mapped ASF bones with fewer than three live
	// axes, which cannot reproduce an arbitrary SMPL rotation.
	RequireFullDOF bool
}

// Retargeter converts between an ASF skeleton's motion and an SMPL
// skeleton's local rotations. It holds no per-frame state.
type Retargeter struct {
	asf    *skeleton.Skeleton
	smpl   *skeleton.SMPLSkeleton
	bones  [jointmap.Count]int // ASF bone per SMPL joint
	smplOf []int               // SMPL joint per ASF bone, -1 if unmapped
}

// New checks that both skeletons carry every mapped joint and returns a
// Retargeter. Incompatibilities are ConfigurationErrors.
func New(asf *skeleton.Skeleton, smpl *skeleton.SMPLSkeleton, opts Options) (*Retargeter, error) {
	var merr *multierror.Error

	if smpl.Len() != jointmap.Count {
		merr = multierror.Append(merr, &skeleton.ConfigurationError{
			Reason: fmt.Sprintf("SMPL skeleton has %d joints, want %d", smpl.Len(), jointmap.Count),
		})
	}

	r := &Retargeter{asf: asf, smpl: smpl, smplOf: make([]int, asf.Len())}
	for i := range r.smplOf {
		r.smplOf[i] = -1
	}
	for idx := 0; idx < jointmap.Count; idx++ {
		name, err := jointmap.ToASFName(idx)
		if err != nil {
			return nil, err
		}
		b, ok := asf.Lookup(name)
		if !ok {
			merr = multierror.Append(merr, &skeleton.ConfigurationError{Joint: name, Reason: "mapped bone missing from ASF skeleton"})
			continue
		}
		r.bones[idx] = b
		r.smplOf[b] = idx

		bone := asf.Bone(b)
		if idx == 0 && bone.Parent >= 0 {
			merr = multierror.Append(merr, &skeleton.ConfigurationError{Joint: name, Reason: "mapped SMPL root is not the ASF root"})
		}
		if opts.RequireFullDOF && bone.Parent >= 0 && bone.DOF.Channels() != 3 {
			merr = multierror.Append(merr, &skeleton.ConfigurationError{
				Joint:  name,
				Reason: fmt.Sprintf("%d DOF axes, SMPL joint %d rotates about 3", bone.DOF.Channels(), idx),
			})
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return nil, err
	}
	return r, nil
}

// ToSMPL converts a solved ASF pose into SMPL local rotations: each SMPL
// joint receives the rotation between its parent's and its own mapped ASF
// world rotations. Solving the SMPL skeleton with the result reproduces the
// ASF world rotation of every mapped joint.
func (r *Retargeter) ToSMPL(pose *skeleton.Pose) ([]mathutil.Mat3, error) {
	if pose.Len() != r.asf.Len() {
		return nil, &skeleton.ChannelCountMismatchError{Joint: "pose", Have: pose.Len(), Want: r.asf.Len()}
	}
	out := make([]mathutil.Mat3, jointmap.Count)
	for idx := 0; idx < jointmap.Count; idx++ {
		world := pose.At(r.bones[idx]).Rotation
		p := r.smpl.Joint(idx).Parent
		if p < 0 {
			out[idx] = world
			continue
		}
		parent := pose.At(r.bones[p]).Rotation
		out[idx] = mathutil.Mat3Mul(parent.Transpose(), world)
	}
	return out, nil
}

// Drive solves an ASF frame and replays it on the SMPL skeleton.
func (r *Retargeter) Drive(frame skeleton.Frame, asfOpts skeleton.Options, smplOpts skeleton.SMPLOptions) (*skeleton.Pose, error) {
	pose, err := r.asf.Solve(frame, asfOpts)
	if err != nil {
		return nil, err
	}
	rotations, err := r.ToSMPL(pose)
	if err != nil {
		return nil, err
	}
	return r.smpl.Solve(rotations, smplOpts)
}

// ToFrame converts SMPL local rotations into an ASF frame. Each mapped
// bone's local rotation is expressed in its DOF frame and decomposed into
// XYZ Euler angles; only live axes are kept, so rotation about a fixed axis
// is lost. Unmapped bones get zero channels. Errors from dropped axes do
// not accumulate: children are matched against the reconstructed parent.
func (r *Retargeter) ToFrame(rotations []mathutil.Mat3, translation mathutil.Vec3) (skeleton.Frame, error) {
	if len(rotations) != r.smpl.Len() {
		return nil, &skeleton.ChannelCountMismatchError{Joint: "rotations", Have: len(rotations), Want: r.smpl.Len()}
	}
	target := make([]mathutil.Mat3, r.smpl.Len())
	for _, j := range r.smpl.Order() {
		p := r.smpl.Joint(j).Parent
		if p < 0 {
			target[j] = rotations[j]
			continue
		}
		target[j] = mathutil.Mat3Mul(target[p], rotations[j])
	}

	frame := make(skeleton.Frame, r.asf.Len())
	actual := make([]mathutil.Mat3, r.asf.Len())
	for _, i := range r.asf.Order() {
		b := r.asf.Bone(i)
		parent := mathutil.Mat3Identity()
		if b.Parent >= 0 {
			parent = actual[b.Parent]
		}
		want := parent
		if idx := r.smplOf[i]; idx >= 0 {
			want = target[idx]
		}
		local := mathutil.Mat3Mul(parent.Transpose(), want)
		e := mathutil.ToEulerXYZ(mathutil.Mat3Chain(b.AxisInv, local, b.Axis))
		deg := [3]float64{mathutil.Rad2Deg(e[0]), mathutil.Rad2Deg(e[1]), mathutil.Rad2Deg(e[2])}

		if b.Parent < 0 {
			frame[b.Name] = []float64{translation[0], translation[1], translation[2], deg[0], deg[1], deg[2]}
			actual[i] = b.LocalRotation(deg)
			continue
		}
		channels := b.DOF.Compact(deg)
		if len(channels) > 0 {
			frame[b.Name] = channels
		}
		actual[i] = mathutil.Mat3Mul(parent, b.LocalRotation(b.DOF.Expand(channels)))
	}
	return frame, nil
}

// SMPLFromASF builds the canonical SMPL skeleton whose rest joints sit at
// the pivots of the mapped ASF bones in the ASF rest pose. A bone pivots
// about its parent's end, so joint j rests where the parent of
// ToASFName(j) ends; the root rests at the ASF root.
func SMPLFromASF(asf *skeleton.Skeleton) (*skeleton.SMPLSkeleton, error) {
	rest := asf.RestPose()
	coords := make([]mathutil.Vec3, jointmap.Count)
	for idx := range coords {
		name, err := jointmap.ToASFName(idx)
		if err != nil {
			return nil, err
		}
		b, ok := asf.Lookup(name)
		if !ok {
			return nil, &skeleton.ConfigurationError{Joint: name, Reason: "mapped bone missing from ASF skeleton"}
		}
		if p := asf.Bone(b).Parent; p >= 0 {
			b = p
		}
		coords[idx] = rest.At(b).Coordinate
	}
	return skeleton.CanonicalSMPL(coords)
}
