package pose

import (
	"context"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// StrategyDirect is the Name of the direct-vector strategy.
const StrategyDirect = "direct"

// Direct orients each bone so its rest axis (+Y) points along the
// keypoint segment it spans.
type Direct struct {
	cfg      Config
	segments []Segment
}

// NewDirect creates a direct-vector strategy.
func NewDirect(cfg Config) *Direct {
	cfg = cfg.withDefaults()
	segs := make([]Segment, len(Segments))
	for i, s := range Segments {
		if cfg.Mirror {
			s = s.mirror()
		}
		segs[i] = s
	}
	return &Direct{cfg: cfg, segments: segs}
}

// Name implements Strategy.
func (d *Direct) Name() string { return StrategyDirect }

// Solve implements Strategy. Unbound labels are ignored; occluded and
// degenerate segments are reported in Result.Skipped.
func (d *Direct) Solve(_ context.Context, f *keypoint.Frame, b Binding) (Result, error) {
	var res Result
	if f == nil || !f.Present {
		return res, ErrEmptyFrame
	}
	if b == nil {
		b = AllBound{}
	}

	for _, seg := range d.segments {
		if !b.Has(seg.Label) {
			continue
		}
		t, err := d.solveSegment(f, seg, b)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{Label: seg.Label, Err: err})
			continue
		}
		res.Targets = append(res.Targets, t)
	}
	return res, nil
}

func (d *Direct) solveSegment(f *keypoint.Frame, seg Segment, b Binding) (Target, error) {
	thr := d.cfg.VisibilityThreshold
	if !seg.From.Visible(f, thr) || !seg.To.Visible(f, thr) {
		return Target{}, ErrOccluded
	}

	a, z := seg.From.Resolve(f), seg.To.Resolve(f)
	if !spatial.Finite(a) || !spatial.Finite(z) {
		return Target{}, ErrDegenerateSegment
	}

	t := Target{Label: seg.Label, Space: World}
	if seg.PositionOnly {
		t.Position = r3.Add(a, d.cfg.RootOffset)
		t.HasPosition = true
		return t, nil
	}

	dir := r3.Sub(z, a)
	dist := r3.Norm(dir)
	if dist < d.cfg.Epsilon {
		return Target{}, ErrDegenerateSegment
	}
	t.Rotation = spatial.FromUnitVectors(spatial.Up, dir)
	t.HasRotation = true

	switch {
	case b.FreeStanding():
		if rest := b.RestLength(seg.Label); rest > 0 {
			t.Scale = math.Max(d.cfg.MinScale, dist/rest)
			t.Position = spatial.Mid(a, z)
		} else {
			t.Position = anchor(seg.Anchor, a, z)
		}
		t.HasPosition = true
	case d.cfg.DriveJointPositions:
		t.Position = a
		t.HasPosition = true
	}
	return t, nil
}

func anchor(an Anchor, a, z r3.Vec) r3.Vec {
	switch an {
	case AnchorProximal:
		return a
	case AnchorDistal:
		return z
	}
	return spatial.Mid(a, z)
}

var _ Strategy = (*Direct)(nil)
