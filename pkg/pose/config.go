package pose

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/bonemap"
)

// Solver defaults.
const (
	DefaultEpsilon             = 1e-3
	DefaultMinScale            = 0.1
	DefaultVisibilityThreshold = 0.5

	DefaultHipsDampen  = 0.7
	DefaultChestDampen = 0.25
	DefaultSpineDampen = 0.45
	DefaultLimbDampen  = 1.0

	DefaultRuntime       = "mediapipe"
	DefaultVideoWidth    = 720
	DefaultVideoHeight   = 1280
	DefaultSolverTimeout = 200 * time.Millisecond
)

// Tuning adjusts how one label consumes an external solution.
type Tuning struct {
	// Source names the solution entry driving this label; empty means
	// the label itself.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`
	// Dampen scales the Euler angles before conversion.
	Dampen float64 `yaml:"dampen" json:"dampen"`
}

// DelegatedConfig configures the Delegated strategy.
type DelegatedConfig struct {
	Tuning map[bonemap.Label]Tuning `yaml:"tuning" json:"tuning"`

	// Root position is transformed as pos*RootSign*RootDampen + RootOffset.
	RootSign   r3.Vec  `yaml:"root_sign" json:"root_sign"`
	RootOffset r3.Vec  `yaml:"root_offset" json:"root_offset"`
	RootDampen float64 `yaml:"root_dampen" json:"root_dampen"`

	Runtime     string        `yaml:"runtime" json:"runtime"`
	VideoWidth  int           `yaml:"video_width" json:"video_width"`
	VideoHeight int           `yaml:"video_height" json:"video_height"`
	EnableLegs  bool          `yaml:"enable_legs" json:"enable_legs"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
}

// Config selects and tunes the pose strategy.
type Config struct {
	// Strategy is "direct" or "delegated".
	Strategy string `yaml:"strategy" json:"strategy"`

	Epsilon             float64 `yaml:"epsilon" json:"epsilon"`
	MinScale            float64 `yaml:"min_scale" json:"min_scale"`
	VisibilityThreshold float64 `yaml:"visibility_threshold" json:"visibility_threshold"`

	// Mirror drives left labels from right keypoints and vice versa, for
	// a character facing the viewer like a mirror image.
	Mirror bool `yaml:"mirror" json:"mirror"`
	// DriveJointPositions sets every hierarchy bone's position to its
	// proximal keypoint, not just the root.
	DriveJointPositions bool   `yaml:"drive_joint_positions" json:"drive_joint_positions"`
	RootOffset          r3.Vec `yaml:"root_offset" json:"root_offset"`

	Delegated DelegatedConfig `yaml:"delegated" json:"delegated"`
}

// DefaultDelegatedConfig returns the tuning used for an external solver
// built for a different skeleton's degrees of freedom.
func DefaultDelegatedConfig() DelegatedConfig {
	t := map[bonemap.Label]Tuning{
		bonemap.Hips:  {Dampen: DefaultHipsDampen},
		bonemap.Chest: {Source: bonemap.Spine.String(), Dampen: DefaultChestDampen},
		bonemap.Spine: {Dampen: DefaultSpineDampen},
	}
	for _, l := range []bonemap.Label{
		bonemap.LeftUpperArm, bonemap.LeftLowerArm,
		bonemap.RightUpperArm, bonemap.RightLowerArm,
		bonemap.LeftUpperLeg, bonemap.LeftLowerLeg,
		bonemap.RightUpperLeg, bonemap.RightLowerLeg,
	} {
		t[l] = Tuning{Dampen: DefaultLimbDampen}
	}
	return DelegatedConfig{
		Tuning:      t,
		RootSign:    r3.Vec{X: -1, Y: 1, Z: -1},
		RootOffset:  r3.Vec{Y: 1},
		RootDampen:  1,
		Runtime:     DefaultRuntime,
		VideoWidth:  DefaultVideoWidth,
		VideoHeight: DefaultVideoHeight,
		EnableLegs:  true,
		Timeout:     DefaultSolverTimeout,
	}
}

// DefaultConfig returns the direct strategy with standard thresholds.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategyDirect,
		Epsilon:             DefaultEpsilon,
		MinScale:            DefaultMinScale,
		VisibilityThreshold: DefaultVisibilityThreshold,
		Delegated:           DefaultDelegatedConfig(),
	}
}

// MirroredConfig returns DefaultConfig with left and right swapped.
func MirroredConfig() Config {
	cfg := DefaultConfig()
	cfg.Mirror = true
	return cfg
}

// DelegatedPreset returns DefaultConfig selecting the delegated strategy.
func DelegatedPreset() Config {
	cfg := DefaultConfig()
	cfg.Strategy = StrategyDelegated
	return cfg
}

func (c Config) withDefaults() Config {
	if c.Epsilon <= 0 {
		c.Epsilon = DefaultEpsilon
	}
	if c.MinScale <= 0 {
		c.MinScale = DefaultMinScale
	}
	if c.VisibilityThreshold <= 0 {
		c.VisibilityThreshold = DefaultVisibilityThreshold
	}
	d := DefaultDelegatedConfig()
	if c.Delegated.Tuning == nil {
		c.Delegated.Tuning = d.Tuning
	}
	if c.Delegated.RootSign == (r3.Vec{}) {
		c.Delegated.RootSign = d.RootSign
	}
	if c.Delegated.RootDampen == 0 {
		c.Delegated.RootDampen = d.RootDampen
	}
	if c.Delegated.Runtime == "" {
		c.Delegated.Runtime = d.Runtime
	}
	if c.Delegated.VideoWidth <= 0 || c.Delegated.VideoHeight <= 0 {
		c.Delegated.VideoWidth, c.Delegated.VideoHeight = d.VideoWidth, d.VideoHeight
	}
	if c.Delegated.Timeout <= 0 {
		c.Delegated.Timeout = d.Timeout
	}
	return c
}

// New returns the strategy named by cfg.Strategy. Selecting the delegated
// strategy without a kinematics solver logs a warning and falls back to
// the direct strategy.
func New(cfg Config, kin Kinematics, logger *slog.Logger) (Strategy, error) {
	logger = log.Or(logger, "pose")
	switch cfg.Strategy {
	case "", StrategyDirect:
		return NewDirect(cfg), nil
	case StrategyDelegated:
		d, err := NewDelegated(cfg, kin)
		if err != nil {
			logger.Warn("delegated strategy unavailable, using direct", "error", err)
			return NewDirect(cfg), nil
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, cfg.Strategy)
}
