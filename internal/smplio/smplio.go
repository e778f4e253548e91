// Package smplio reads SMPL rest-joint and pose files. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON.
package smplio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"mocap-fk/internal/jointmap"
	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/skeleton"
)

// RestFile lists joints with their rest-pose world coordinates. A joint
// without a parent field takes its parent from the canonical SMPL tree.
type RestFile struct {
	Joints []RestJoint `json:"joints" yaml:"joints"`
}

type RestJoint struct {
	Index  int        `json:"index" yaml:"index"`
	Parent *int       `json:"parent,omitempty" yaml:"parent,omitempty"`
	Rest   [3]float64 `json:"rest" yaml:"rest"`
}

// PoseFile holds frames of local rotations, either as flat axis-angle
// vectors (3 radians per joint) or as row-major 3×3 matrices per joint.
type PoseFile struct {
	Frames []PoseFrame `json:"frames" yaml:"frames"`
}

type PoseFrame struct {
	AxisAngle []float64    `json:"axis_angle,omitempty" yaml:"axis_angle,omitempty"`
	Matrices  [][9]float64 `json:"matrices,omitempty" yaml:"matrices,omitempty"`
	Root      *[3]float64  `json:"root,omitempty" yaml:"root,omitempty"`
}

// Rotations returns the frame's local rotation matrices.
func (f PoseFrame) Rotations() ([]mathutil.Mat3, error) {
	switch {
	case len(f.AxisAngle) > 0 && len(f.Matrices) > 0:
		return nil, fmt.Errorf("smplio: frame has both axis_angle and matrices")
	case len(f.AxisAngle) > 0:
		return skeleton.AxisAngleRotations(f.AxisAngle)
	}
	out := make([]mathutil.Mat3, len(f.Matrices))
	for i, m := range f.Matrices {
		out[i] = mathutil.Mat3(m)
	}
	return out, nil
}

// Specs converts the file into builder input.
func (r *RestFile) Specs() ([]skeleton.JointSpec, error) {
	specs := make([]skeleton.JointSpec, len(r.Joints))
	for i, j := range r.Joints {
		parent := 0
		if j.Parent != nil {
			parent = *j.Parent
		} else {
			p, err := jointmap.SMPLParent(j.Index)
			if err != nil {
				return nil, fmt.Errorf("smplio: joint %d has no parent and no canonical one: %w", j.Index, err)
			}
			parent = p
		}
		specs[i] = skeleton.JointSpec{Index: j.Index, Parent: parent, Rest: mathutil.Vec3(j.Rest)}
	}
	return specs, nil
}

// LoadSkeleton reads a rest file and builds the SMPL skeleton.
func LoadSkeleton(path string) (*skeleton.SMPLSkeleton, error) {
	var rf RestFile
	if err := decode(path, &rf); err != nil {
		return nil, err
	}
	specs, err := rf.Specs()
	if err != nil {
		return nil, err
	}
	return skeleton.BuildSMPL(specs)
}

// LoadPoses reads a pose file.
func LoadPoses(path string) (*PoseFile, error) {
	var pf PoseFile
	if err := decode(path, &pf); err != nil {
		return nil, err
	}
	return &pf, nil
}

// WritePoses writes frames of local rotations as matrices.
func WritePoses(path string, frames [][]mathutil.Mat3) error {
	pf := PoseFile{Frames: make([]PoseFrame, len(frames))}
	for i, rots := range frames {
		ms := make([][9]float64, len(rots))
		for k, m := range rots {
			ms[k] = [9]float64(m)
		}
		pf.Frames[i].Matrices = ms
	}
	return encode(path, &pf)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func decode(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("smplio: read %s: %w", path, err)
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, v)
	} else {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return fmt.Errorf("smplio: parse %s: %w", path, err)
	}
	return nil
}

func encode(path string, v any) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(v)
	} else {
		data, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("smplio: encode %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}
