package pose

import "github.com/teslashibe/go-mocap/pkg/rig"

// ToLocal expresses t in the parent space of n. Local targets are returned
// unchanged. Parents must already hold this frame's transform for the
// result to be exact.
func ToLocal(t Target, n rig.Node) Target {
	if t.Space == Local || n == nil {
		return t
	}
	if t.HasRotation {
		t.Rotation = rig.ToLocalRotation(n, t.Rotation)
	}
	if t.HasPosition {
		t.Position = rig.ToLocalPosition(n, t.Position)
	}
	t.Space = Local
	return t
}
