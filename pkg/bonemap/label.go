// Package bonemap binds canonical bone labels to the nodes of an arbitrary
// rig by fuzzy name matching.
package bonemap

import (
	"fmt"
	"strings"
)

// Label is a naming-convention independent bone identifier.
type Label int

const (
	Hips Label = iota
	Spine
	Chest
	Neck
	Head
	LeftShoulder
	LeftUpperArm
	LeftLowerArm
	LeftHand
	RightShoulder
	RightUpperArm
	RightLowerArm
	RightHand
	LeftUpperLeg
	LeftLowerLeg
	LeftFoot
	RightUpperLeg
	RightLowerLeg
	RightFoot

	labelCount
)

var labelNames = [labelCount]string{
	"Hips", "Spine", "Chest", "Neck", "Head",
	"LeftShoulder", "LeftUpperArm", "LeftLowerArm", "LeftHand",
	"RightShoulder", "RightUpperArm", "RightLowerArm", "RightHand",
	"LeftUpperLeg", "LeftLowerLeg", "LeftFoot",
	"RightUpperLeg", "RightLowerLeg", "RightFoot",
}

// parents gives the canonical parent of each label; Hips has none.
var parents = [labelCount]Label{
	Hips:          -1,
	Spine:         Hips,
	Chest:         Spine,
	Neck:          Chest,
	Head:          Neck,
	LeftShoulder:  Chest,
	LeftUpperArm:  LeftShoulder,
	LeftLowerArm:  LeftUpperArm,
	LeftHand:      LeftLowerArm,
	RightShoulder: Chest,
	RightUpperArm: RightShoulder,
	RightLowerArm: RightUpperArm,
	RightHand:     RightLowerArm,
	LeftUpperLeg:  Hips,
	LeftLowerLeg:  LeftUpperLeg,
	LeftFoot:      LeftLowerLeg,
	RightUpperLeg: Hips,
	RightLowerLeg: RightUpperLeg,
	RightFoot:     RightLowerLeg,
}

// Labels returns every label, parents before children.
func Labels() []Label {
	out := make([]Label, labelCount)
	for i := range out {
		out[i] = Label(i)
	}
	return out
}

// Valid reports whether l is a known label.
func (l Label) Valid() bool {
	return l >= 0 && l < labelCount
}

// String returns the PascalCase label name.
func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// Parent returns the canonical parent label and false for Hips.
func (l Label) Parent() (Label, bool) {
	if !l.Valid() || parents[l] < 0 {
		return 0, false
	}
	return parents[l], true
}

// Side returns "left", "right" or "" for center labels.
func (l Label) Side() string {
	name := l.String()
	switch {
	case strings.HasPrefix(name, "Left"):
		return "left"
	case strings.HasPrefix(name, "Right"):
		return "right"
	}
	return ""
}

// ParseLabel resolves a label name case-insensitively.
func ParseLabel(s string) (Label, error) {
	for i, n := range labelNames {
		if strings.EqualFold(n, s) {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("bonemap: unknown label %q", s)
}

// MarshalText implements encoding.TextMarshaler so labels work as JSON and
// YAML map keys.
func (l Label) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("bonemap: invalid label %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(b []byte) error {
	v, err := ParseLabel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}
