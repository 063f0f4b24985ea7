// Package pose turns keypoint frames into per-bone target transforms.
//
// Two strategies share one interface: Direct computes shortest-arc
// rotations from keypoint pairs; Delegated hands the frame to an external
// kinematics solver and rescales its output.
package pose

import (
	"context"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// Space is the frame a target's rotation and position are expressed in.
type Space int

const (
	// World targets are converted to parent-local space when applied.
	World Space = iota
	// Local targets are written to the node unchanged.
	Local
)

func (s Space) String() string {
	if s == Local {
		return "local"
	}
	return "world"
}

// Target is the solved transform for one bone.
type Target struct {
	Label bonemap.Label

	Rotation    spatial.Quat
	HasRotation bool

	Position    r3.Vec
	HasPosition bool

	// Scale stretches the bone along its rest axis. Zero leaves scale alone.
	Scale float64

	Space Space
}

// Skip records a bone that produced no target this frame.
type Skip struct {
	Label bonemap.Label
	Err   error
}

// Result is the output of one solve.
type Result struct {
	Targets []Target
	Skipped []Skip
}

// Target returns the target for l, if any.
func (r *Result) Target(l bonemap.Label) (Target, bool) {
	for _, t := range r.Targets {
		if t.Label == l {
			return t, true
		}
	}
	return Target{}, false
}

// Binding describes the rig a strategy is solving for.
type Binding interface {
	// Has reports whether l is bound to a node.
	Has(l bonemap.Label) bool
	// FreeStanding reports whether segments are independent world-space
	// meshes rather than bones of a connected hierarchy.
	FreeStanding() bool
	// RestLength returns the authored length of l, zero when l is not
	// length-scaled.
	RestLength(l bonemap.Label) float64
}

// Strategy computes bone targets from a frame.
type Strategy interface {
	Name() string
	Solve(ctx context.Context, f *keypoint.Frame, b Binding) (Result, error)
}

// AllBound is a Binding for a connected hierarchy where every label is bound.
type AllBound struct{}

func (AllBound) Has(bonemap.Label) bool           { return true }
func (AllBound) FreeStanding() bool               { return false }
func (AllBound) RestLength(bonemap.Label) float64 { return 0 }
