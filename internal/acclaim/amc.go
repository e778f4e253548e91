package acclaim

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"mocap-fk/internal/mathutil"
	"mocap-fk/internal/skeleton"
)

// Motion is a parsed AMC file. Rotation values are always in degrees;
// files declared :RADIANS are converted on read.
type Motion struct {
	Numbers []int
	Frames  []skeleton.Frame
}

// LoadAMC reads and parses an AMC file.
func LoadAMC(path string) (*Motion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acclaim: read %s: %w", path, err)
	}
	defer f.Close()

	m, err := ReadAMC(f)
	if err != nil {
		return nil, fmt.Errorf("acclaim: parse %s: %w", path, err)
	}
	return m, nil
}

// ReadAMC parses AMC text: header keywords, then for each frame its number
// on a line of its own followed by one "bone v1 v2 ..." line per bone.
func ReadAMC(r io.Reader) (*Motion, error) {
	m := &Motion{}
	radians := false
	var cur skeleton.Frame
	s := newLineScanner(r)

	for s.Scan() {
		line := s.Text()
		if strings.HasPrefix(line, ":") {
			switch strings.ToUpper(line) {
			case ":RADIANS":
				radians = true
			case ":DEGREES":
				radians = false
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 1 {
			n, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("line %d: bad frame number %q", s.line, fields[0])
			}
			cur = make(skeleton.Frame)
			m.Numbers = append(m.Numbers, n)
			m.Frames = append(m.Frames, cur)
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("line %d: channel data before first frame number", s.line)
		}

		name := fields[0]
		values := make([]float64, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", s.line, name, err)
			}
			values[i] = v
		}
		if radians {
			first := 0
			if name == "root" {
				first = 3
			}
			for i := first; i < len(values); i++ {
				values[i] = mathutil.Rad2Deg(values[i])
			}
		}
		if _, dup := cur[name]; dup {
			return nil, fmt.Errorf("line %d: %s repeated in frame %d", s.line, name, m.Numbers[len(m.Numbers)-1])
		}
		cur[name] = values
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteAMC writes frames in degrees, numbered from 1, with bones in the
// given order. Bones absent from a frame or without values are skipped.
func WriteAMC(w io.Writer, frames []skeleton.Frame, order []string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, ":FULLY-SPECIFIED")
	fmt.Fprintln(bw, ":DEGREES")
	for i, f := range frames {
		fmt.Fprintln(bw, i+1)
		for _, name := range order {
			values, ok := f[name]
			if !ok || len(values) == 0 {
				continue
			}
			bw.WriteString(name)
			for _, v := range values {
				bw.WriteByte(' ')
				bw.WriteString(strconv.FormatFloat(v, 'g', 10, 64))
			}
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}
