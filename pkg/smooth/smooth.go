// Package smooth damps frame-to-frame bone motion by blending each bone's
// current transform toward its solved target.
//
// Every call moves a fixed fraction of the remaining distance, so repeated
// application approaches the target exponentially and never overshoots.
package smooth

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/rig"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// Default blend factors.
const (
	DefaultRotationBlend = 0.3
	DefaultPositionBlend = 1.0
	DefaultRootBlend     = 0.07
	DefaultScaleBlend    = 1.0
)

// Blend holds per-quantity factors in (0, 1]. Zero fields inherit the
// Config default.
type Blend struct {
	Rotation float64 `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	Position float64 `yaml:"position,omitempty" json:"position,omitempty"`
}

// Config holds default factors plus per-label overrides.
type Config struct {
	RotationBlend float64                 `yaml:"rotation_blend" json:"rotation_blend"`
	PositionBlend float64                 `yaml:"position_blend" json:"position_blend"`
	ScaleBlend    float64                 `yaml:"scale_blend" json:"scale_blend"`
	Overrides     map[bonemap.Label]Blend `yaml:"overrides" json:"overrides"`
}

// DefaultConfig returns responsive limbs and a slow-following root.
func DefaultConfig() Config {
	return Config{
		RotationBlend: DefaultRotationBlend,
		PositionBlend: DefaultPositionBlend,
		ScaleBlend:    DefaultScaleBlend,
		Overrides: map[bonemap.Label]Blend{
			bonemap.Hips: {Position: DefaultRootBlend},
		},
	}
}

// SmoothConfig returns heavier damping for noisy captures.
func SmoothConfig() Config {
	return Config{
		RotationBlend: 0.15,
		PositionBlend: 0.5,
		ScaleBlend:    0.5,
		Overrides: map[bonemap.Label]Blend{
			bonemap.Hips: {Position: 0.04},
		},
	}
}

// ImmediateConfig applies every target as-is.
func ImmediateConfig() Config {
	return Config{RotationBlend: 1, PositionBlend: 1, ScaleBlend: 1}
}

// Smoother blends node transforms toward targets.
type Smoother struct {
	cfg Config
}

// New creates a smoother. Non-positive defaults fall back to the package
// defaults; factors above 1 are clamped.
func New(cfg Config) *Smoother {
	if cfg.RotationBlend <= 0 {
		cfg.RotationBlend = DefaultRotationBlend
	}
	if cfg.PositionBlend <= 0 {
		cfg.PositionBlend = DefaultPositionBlend
	}
	if cfg.ScaleBlend <= 0 {
		cfg.ScaleBlend = DefaultScaleBlend
	}
	return &Smoother{cfg: cfg}
}

// Factors returns the rotation and position factors for l.
func (s *Smoother) Factors(l bonemap.Label) (rotation, position float64) {
	rotation, position = s.cfg.RotationBlend, s.cfg.PositionBlend
	if o, ok := s.cfg.Overrides[l]; ok {
		if o.Rotation > 0 {
			rotation = o.Rotation
		}
		if o.Position > 0 {
			position = o.Position
		}
	}
	return factor(rotation), factor(position)
}

// Apply blends n toward t. t must already be in the node's local space.
func (s *Smoother) Apply(n rig.Node, t pose.Target) {
	rot, pos := s.Factors(t.Label)
	if t.HasRotation {
		n.SetRotation(Rotation(n.Rotation(), t.Rotation, rot))
	}
	if t.HasPosition {
		n.SetPosition(Position(n.Position(), t.Position, pos))
	}
	if t.Scale > 0 {
		cur := n.Scale()
		cur.Y += (t.Scale - cur.Y) * factor(s.cfg.ScaleBlend)
		n.SetScale(cur)
	}
}

// Rotation slerps cur toward target by f.
func Rotation(cur, target spatial.Quat, f float64) spatial.Quat {
	return spatial.Slerp(cur, target, factor(f)).Normalize()
}

// Position lerps cur toward target by f.
func Position(cur, target r3.Vec, f float64) r3.Vec {
	return spatial.Lerp(cur, target, factor(f))
}

func factor(f float64) float64 {
	if f <= 0 || f > 1 {
		return 1
	}
	return f
}
