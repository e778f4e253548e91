// Package jointmap holds the fixed correspondence between ASF bone names and
// SMPL joint indices used to retarget motion between the two skeletons.
package jointmap

import (
	"fmt"
	"sort"
)

// Count is the number of SMPL joints and of mapped ASF bones.
const Count = 24

// smplToASF lists the ASF bone driven by each SMPL joint, by SMPL index.
var smplToASF = [Count]string{
	0:  "root",
	1:  "lfemur",
	2:  "rfemur",
	3:  "upperback",
	4:  "ltibia",
	5:  "rtibia",
	6:  "thorax",
	7:  "lfoot",
	8:  "rfoot",
	9:  "lowerneck",
	10: "ltoes",
	11: "rtoes",
	12: "upperneck",
	13: "lclavicle",
	14: "rclavicle",
	15: "head",
	16: "lhumerus",
	17: "rhumerus",
	18: "lradius",
	19: "rradius",
	20: "lwrist",
	21: "rwrist",
	22: "lhand",
	23: "rhand",
}

// smplNames are the semantic SMPL joint names, by SMPL index.
var smplNames = [Count]string{
	0:  "root",
	1:  "llegroot",
	2:  "rlegroot",
	3:  "lowerback",
	4:  "lknee",
	5:  "rknee",
	6:  "upperback",
	7:  "lankle",
	8:  "rankle",
	9:  "thorax",
	10: "ltoes",
	11: "rtoes",
	12: "lowerneck",
	13: "lclavicle",
	14: "rclavicle",
	15: "upperneck",
	16: "larmroot",
	17: "rarmroot",
	18: "lelbow",
	19: "relbow",
	20: "lwrist",
	21: "rwrist",
	22: "lhand",
	23: "rhand",
}

// smplParents is the canonical SMPL kinematic tree; -1 marks the root.
var smplParents = [Count]int{
	-1, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 9, 9, 12, 13, 14, 16, 17, 18, 19, 20, 21,
}

var asfToSMPL map[string]int

func init() {
	asfToSMPL = make(map[string]int, Count)
	for i, name := range smplToASF {
		asfToSMPL[name] = i
	}
	if err := Validate(); err != nil {
		panic(err)
	}
}

// UnknownJointError reports a lookup outside the 24 canonical entries.
type UnknownJointError struct {
	Name  string
	Index int
}

func (e *UnknownJointError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("jointmap: unknown ASF bone %q", e.Name)
	}
	return fmt.Sprintf("jointmap: unknown SMPL joint index %d", e.Index)
}

// ToSMPLIndex returns the SMPL joint driven by the named ASF bone.
func ToSMPLIndex(name string) (int, error) {
	idx, ok := asfToSMPL[name]
	if !ok {
		return 0, &UnknownJointError{Name: name}
	}
	return idx, nil
}

// ToASFName returns the ASF bone corresponding to SMPL joint idx.
func ToASFName(idx int) (string, error) {
	if idx < 0 || idx >= Count {
		return "", &UnknownJointError{Index: idx}
	}
	return smplToASF[idx], nil
}

// SMPLName returns the semantic name of SMPL joint idx.
func SMPLName(idx int) (string, error) {
	if idx < 0 || idx >= Count {
		return "", &UnknownJointError{Index: idx}
	}
	return smplNames[idx], nil
}

// SMPLParent returns the parent of idx in the canonical SMPL tree, -1 for the root.
func SMPLParent(idx int) (int, error) {
	if idx < 0 || idx >= Count {
		return 0, &UnknownJointError{Index: idx}
	}
	return smplParents[idx], nil
}

// ASFNames returns the mapped ASF bone names ordered by SMPL index.
func ASFNames() []string {
	names := make([]string, Count)
	copy(names, smplToASF[:])
	return names
}

// Validate checks that the two directions of the table are mutually inverse
// over exactly Count entries and that the SMPL parent table is a tree
// rooted at 0 with parents listed before children.
func Validate() error {
	if len(asfToSMPL) != Count {
		dup := duplicates(smplToASF[:])
		return fmt.Errorf("jointmap: table has %d distinct ASF names, want %d (duplicates: %v)", len(asfToSMPL), Count, dup)
	}
	for i, name := range smplToASF {
		if name == "" {
			return fmt.Errorf("jointmap: SMPL joint %d has no ASF bone", i)
		}
		if back := asfToSMPL[name]; back != i {
			return fmt.Errorf("jointmap: %q maps back to %d, want %d", name, back, i)
		}
	}
	for i, p := range smplParents {
		switch {
		case i == 0 && p != -1:
			return fmt.Errorf("jointmap: SMPL root has parent %d", p)
		case i > 0 && (p < 0 || p >= i):
			return fmt.Errorf("jointmap: SMPL joint %d has parent %d", i, p)
		}
	}
	return nil
}

func duplicates(names []string) []string {
	seen := make(map[string]int, len(names))
	for _, n := range names {
		seen[n]++
	}
	var dup []string
	for n, c := range seen {
		if c > 1 {
			dup = append(dup, n)
		}
	}
	sort.Strings(dup)
	return dup
}
