package pose

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// StrategyDelegated is the Name of the delegated strategy.
const StrategyDelegated = "delegated"

// Input is a frame reshaped for an external kinematics solver.
type Input struct {
	// World holds metric landmarks in capture coordinates.
	World []keypoint.Keypoint `json:"world"`
	// Image holds normalized image landmarks; World is reused when the
	// frame carries none.
	Image []keypoint.Keypoint `json:"image"`

	Runtime     string `json:"runtime"`
	VideoWidth  int    `json:"video_width"`
	VideoHeight int    `json:"video_height"`
	EnableLegs  bool   `json:"enable_legs"`
}

// Euler is an XYZ rotation in radians.
type Euler struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scale multiplies every angle by f.
func (e Euler) Scale(f float64) Euler {
	return Euler{X: e.X * f, Y: e.Y * f, Z: e.Z * f}
}

// Quat converts e to a quaternion.
func (e Euler) Quat() spatial.Quat {
	return spatial.FromEuler(e.X, e.Y, e.Z)
}

// SolvedBone is one entry of a Solution.
type SolvedBone struct {
	Rotation Euler   `json:"rotation"`
	Position *r3.Vec `json:"position,omitempty"`
}

// Solution is an external solver's output keyed by label. A nil Solution
// means the solver could not pose the frame.
type Solution map[bonemap.Label]SolvedBone

// Kinematics is an external full-body solver.
type Kinematics interface {
	Solve(ctx context.Context, in Input) (Solution, error)
}

// KinematicsFunc adapts a function to Kinematics.
type KinematicsFunc func(ctx context.Context, in Input) (Solution, error)

// Solve implements Kinematics.
func (f KinematicsFunc) Solve(ctx context.Context, in Input) (Solution, error) {
	return f(ctx, in)
}

// Delegated forwards frames to a Kinematics solver and rescales the
// returned rotations per label.
type Delegated struct {
	cfg    Config
	kin    Kinematics
	source map[bonemap.Label]bonemap.Label
}

// NewDelegated creates a delegated strategy. A nil kin is a configuration
// error reported as ErrSolverUnavailable.
func NewDelegated(cfg Config, kin Kinematics) (*Delegated, error) {
	if kin == nil {
		return nil, ErrSolverUnavailable
	}
	cfg = cfg.withDefaults()

	source := make(map[bonemap.Label]bonemap.Label, len(cfg.Delegated.Tuning))
	for l, t := range cfg.Delegated.Tuning {
		if t.Source == "" {
			source[l] = l
			continue
		}
		src, err := bonemap.ParseLabel(t.Source)
		if err != nil {
			return nil, fmt.Errorf("tuning for %s: %w", l, err)
		}
		source[l] = src
	}
	return &Delegated{cfg: cfg, kin: kin, source: source}, nil
}

// Name implements Strategy.
func (d *Delegated) Name() string { return StrategyDelegated }

// Reshape builds the solver input for f.
func (d *Delegated) Reshape(f *keypoint.Frame) Input {
	in := Input{
		World:       append([]keypoint.Keypoint(nil), f.World[:]...),
		Runtime:     d.cfg.Delegated.Runtime,
		VideoWidth:  d.cfg.Delegated.VideoWidth,
		VideoHeight: d.cfg.Delegated.VideoHeight,
		EnableLegs:  d.cfg.Delegated.EnableLegs,
	}
	if f.HasImage {
		in.Image = append([]keypoint.Keypoint(nil), f.Image[:]...)
	} else {
		in.Image = in.World
	}
	return in
}

// Solve implements Strategy. Solver failures and empty solutions return
// ErrNoSolution or ErrSolverUnavailable; the caller keeps the prior pose.
func (d *Delegated) Solve(ctx context.Context, f *keypoint.Frame, b Binding) (Result, error) {
	var res Result
	if f == nil || !f.Present {
		return res, ErrEmptyFrame
	}
	if b == nil {
		b = AllBound{}
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Delegated.Timeout)
	defer cancel()

	sol, err := d.kin.Solve(ctx, d.Reshape(f))
	if err != nil {
		if errors.Is(err, ErrNoSolution) {
			return res, err
		}
		return res, fmt.Errorf("%w: %w", ErrSolverUnavailable, err)
	}
	if len(sol) == 0 {
		return res, ErrNoSolution
	}

	for _, l := range bonemap.Labels() {
		if !b.Has(l) {
			continue
		}
		tun, tuned := d.cfg.Delegated.Tuning[l]
		src := l
		if tuned {
			src = d.source[l]
		} else {
			tun = Tuning{Dampen: DefaultLimbDampen}
		}
		bone, ok := sol[src]
		if !ok {
			continue
		}

		t := Target{
			Label:       l,
			Rotation:    bone.Rotation.Scale(tun.Dampen).Quat(),
			HasRotation: true,
			Space:       Local,
		}
		if l == bonemap.Hips && bone.Position != nil {
			t.Position = d.rootPosition(*bone.Position)
			t.HasPosition = true
		}
		res.Targets = append(res.Targets, t)
	}
	return res, nil
}

func (d *Delegated) rootPosition(p r3.Vec) r3.Vec {
	c := d.cfg.Delegated
	scaled := r3.Vec{
		X: p.X * c.RootSign.X * c.RootDampen,
		Y: p.Y * c.RootSign.Y * c.RootDampen,
		Z: p.Z * c.RootSign.Z * c.RootDampen,
	}
	return r3.Add(scaled, c.RootOffset)
}

var _ Strategy = (*Delegated)(nil)
