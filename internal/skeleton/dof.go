package skeleton

import (
	"fmt"
	"strings"
)

// Axis identifies one rotation axis of a bone's DOF frame.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "rx"
	case AxisY:
		return "ry"
	case AxisZ:
		return "rz"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// ParseAxis accepts "rx", "ry" or "rz" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(s) {
	case "rx":
		return AxisX, nil
	case "ry":
		return AxisY, nil
	case "rz":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown DOF axis %q", s)
}

// AxisDOF describes one axis: whether motion data drives it and its limits
// in degrees. Limits are informational; the solver does not clamp.
type AxisDOF struct {
	Enabled bool
	Min     float64
	Max     float64
}

// DOF is the per-bone descriptor indexed by Axis.
type DOF [3]AxisDOF

// Channels is the number of motion values a frame carries for the bone.
func (d DOF) Channels() int {
	n := 0
	for _, a := range d {
		if a.Enabled {
			n++
		}
	}
	return n
}

// Expand spreads live channel values over (rx, ry, rz) in axis order;
// fixed axes stay at 0. len(values) must equal d.Channels().
func (d DOF) Expand(values []float64) [3]float64 {
	var out [3]float64
	k := 0
	for axis, a := range d {
		if a.Enabled {
			out[axis] = values[k]
			k++
		}
	}
	return out
}

// Compact is the inverse of Expand: it keeps the live axes only.
func (d DOF) Compact(angles [3]float64) []float64 {
	out := make([]float64, 0, 3)
	for axis, a := range d {
		if a.Enabled {
			out = append(out, angles[axis])
		}
	}
	return out
}

// newDOF resolves a declared axis list and its parallel limit list.
// An empty limit list leaves every live axis unbounded.
func newDOF(axes []string, limits [][2]float64) (DOF, error) {
	var d DOF
	if len(limits) != 0 && len(limits) != len(axes) {
		return d, fmt.Errorf("%d limits for %d DOF axes", len(limits), len(axes))
	}
	for i, s := range axes {
		axis, err := ParseAxis(s)
		if err != nil {
			return d, err
		}
		if d[axis].Enabled {
			return d, fmt.Errorf("DOF axis %s declared twice", axis)
		}
		d[axis].Enabled = true
		if len(limits) != 0 {
			lo, hi := limits[i][0], limits[i][1]
			if lo > hi {
				return d, fmt.Errorf("%s limit (%g %g) has min above max", axis, lo, hi)
			}
			d[axis].Min, d[axis].Max = lo, hi
		}
	}
	return d, nil
}
