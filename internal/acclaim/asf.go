package acclaim

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/skeleton"
)

// rootOrder is the only root channel layout the solver accepts.
var rootOrder = []string{"TX", "TY", "TZ", "RX", "RY", "RZ"}

// ASF is a parsed skeleton file.
type ASF struct {
	Version string
	Name    string
	Units   map[string]string
	Bones   []skeleton.BoneSpec // root first, then bonedata order
}

// Build constructs the skeleton described by the file.
func (a *ASF) Build() (*skeleton.Skeleton, error) {
	return skeleton.Build(a.Bones)
}

// LoadASF reads and parses an ASF file.
func LoadASF(path string) (*ASF, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acclaim: read %s: %w", path, err)
	}
	defer f.Close()

	a, err := ReadASF(f)
	if err != nil {
		return nil, fmt.Errorf("acclaim: parse %s: %w", path, err)
	}
	return a, nil
}

// ReadASF parses ASF text. Hierarchy entries become BoneSpec parents;
// bones never named in :hierarchy are left without a parent and rejected
// later by skeleton.Build as extra roots.
func ReadASF(r io.Reader) (*ASF, error) {
	a := &ASF{Units: make(map[string]string)}
	root := skeleton.BoneSpec{Name: "root"}
	byName := make(map[string]int)
	s := newLineScanner(r)

	section := ""
	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, ":") {
			fields := strings.Fields(line)
			section = fields[0]
			switch section {
			case ":version":
				a.Version = strings.Join(fields[1:], " ")
			case ":name":
				a.Name = strings.Join(fields[1:], " ")
			}
			continue
		}

		fields := strings.Fields(line)
		var err error
		switch section {
		case ":units":
			if len(fields) >= 2 {
				a.Units[fields[0]] = fields[1]
			}
		case ":root":
			err = parseRoot(&root, fields)
		case ":bonedata":
			if fields[0] != "begin" {
				err = fmt.Errorf("expected begin, got %q", fields[0])
				break
			}
			var b skeleton.BoneSpec
			b, err = parseBone(s)
			if err != nil {
				break
			}
			if _, dup := byName[b.Name]; dup || b.Name == root.Name {
				err = fmt.Errorf("bone %q defined twice", b.Name)
				break
			}
			byName[b.Name] = len(a.Bones)
			a.Bones = append(a.Bones, b)
		case ":hierarchy":
			switch fields[0] {
			case "begin", "end":
			default:
				err = linkChildren(a.Bones, byName, fields)
			}
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", s.line, err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}

	a.Bones = append([]skeleton.BoneSpec{root}, a.Bones...)
	return a, nil
}

func parseRoot(root *skeleton.BoneSpec, fields []string) error {
	switch strings.ToLower(fields[0]) {
	case "order":
		got := fields[1:]
		if len(got) != len(rootOrder) {
			return &skeleton.ConfigurationError{Joint: "root", Reason: fmt.Sprintf("root order %v", got)}
		}
		for i := range got {
			if !strings.EqualFold(got[i], rootOrder[i]) {
				return &skeleton.ConfigurationError{Joint: "root", Reason: fmt.Sprintf("root order %v", got)}
			}
		}
	case "axis":
		if len(fields) != 2 {
			return fmt.Errorf("root axis: %v", fields[1:])
		}
		root.AxisOrder = fields[1]
	case "orientation":
		v, err := parseVec3(fields[1:])
		if err != nil {
			return fmt.Errorf("root orientation: %w", err)
		}
		root.Axis = v
	case "position":
		// the root is placed by the frame's translation channels
	}
	return nil
}

func parseBone(s *lineScanner) (skeleton.BoneSpec, error) {
	var b skeleton.BoneSpec
	inLimits := false
	for s.Scan() {
		fields := strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(s.Text()))
		if len(fields) == 0 {
			continue
		}
		key := strings.ToLower(fields[0])
		if inLimits && isNumber(key) {
			lim, err := parseLimits(fields)
			if err != nil {
				return b, err
			}
			b.Limits = append(b.Limits, lim...)
			continue
		}
		inLimits = false

		var err error
		switch key {
		case "end":
			if b.Name == "" {
				return b, fmt.Errorf("bone without name")
			}
			return b, nil
		case "id":
		case "name":
			if len(fields) != 2 {
				return b, fmt.Errorf("bad name line")
			}
			b.Name = fields[1]
		case "direction":
			b.Direction, err = parseVec3(fields[1:])
		case "length":
			if len(fields) != 2 {
				return b, fmt.Errorf("%s: bad length", b.Name)
			}
			b.Length, err = strconv.ParseFloat(fields[1], 64)
		case "axis":
			if len(fields) != 5 {
				return b, fmt.Errorf("%s: axis wants 3 angles and an order", b.Name)
			}
			b.Axis, err = parseVec3(fields[1:4])
			b.AxisOrder = fields[4]
		case "dof":
			b.DOF = append([]string(nil), fields[1:]...)
		case "limits":
			inLimits = true
			var lim [][2]float64
			lim, err = parseLimits(fields[1:])
			b.Limits = append(b.Limits, lim...)
		case "bodymass", "cofmass":
		default:
			err = fmt.Errorf("unknown bone field %q", fields[0])
		}
		if err != nil {
			return b, fmt.Errorf("%s: %w", b.Name, err)
		}
	}
	return b, fmt.Errorf("unterminated bone %q", b.Name)
}

func linkChildren(bones []skeleton.BoneSpec, byName map[string]int, fields []string) error {
	parent := fields[0]
	if _, ok := byName[parent]; !ok && parent != "root" {
		return fmt.Errorf("hierarchy: unknown bone %q", parent)
	}
	for _, child := range fields[1:] {
		i, ok := byName[child]
		if !ok {
			return fmt.Errorf("hierarchy: unknown bone %q", child)
		}
		if bones[i].Parent != "" {
			return fmt.Errorf("hierarchy: %q has parents %q and %q", child, bones[i].Parent, parent)
		}
		bones[i].Parent = parent
	}
	return nil
}

func parseVec3(fields []string) (mathutil.Vec3, error) {
	var v mathutil.Vec3
	if len(fields) != 3 {
		return v, fmt.Errorf("want 3 values, have %d", len(fields))
	}
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return v, err
		}
		v[i] = x
	}
	return v, nil
}

func parseLimits(fields []string) ([][2]float64, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("odd number of limit values")
	}
	out := make([][2]float64, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		lo, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		hi, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, err
		}
		out = append(out, [2]float64{lo, hi})
	}
	return out, nil
}

// isNumber also accepts "inf" and "-inf", used for unbounded axes.
func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
