package skeleton

import "fmt"

// StructureError reports a malformed hierarchy found while building a
// topology: duplicate or empty names, dangling parents, zero or several
// roots, cycles.
type StructureError struct {
	Joint  string
	Reason string
}

func (e *StructureError) Error() string {
	if e.Joint == "" {
		return "skeleton: structure: " + e.Reason
	}
	return fmt.Sprintf("skeleton: structure: %s: %s", e.Joint, e.Reason)
}

// ConfigurationError reports static joint data the solver cannot honour,
// such as an unknown DOF axis or an axis-correction order other than XYZ.
type ConfigurationError struct {
	Joint  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Joint == "" {
		return "skeleton: configuration: " + e.Reason
	}
	return fmt.Sprintf("skeleton: configuration: %s: %s", e.Joint, e.Reason)
}

// MissingChannelError reports a frame without data for a bone that has at
// least one live DOF axis.
type MissingChannelError struct {
	Bone string
}

func (e *MissingChannelError) Error() string {
	return fmt.Sprintf("skeleton: frame has no channels for %q", e.Bone)
}

// ChannelCountMismatchError reports frame data whose length differs from
// what the topology expects for a joint.
type ChannelCountMismatchError struct {
	Joint string
	Have  int
	Want  int
}

func (e *ChannelCountMismatchError) Error() string {
	return fmt.Sprintf("skeleton: %s: have %d channels, want %d", e.Joint, e.Have, e.Want)
}
