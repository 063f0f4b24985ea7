package animator

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/playback"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/smooth"
)

// Config aggregates the tunables of every pipeline stage.
type Config struct {
	Pose     pose.Config      `yaml:"pose" json:"pose"`
	Smooth   smooth.Config    `yaml:"smooth" json:"smooth"`
	Playback playback.Options `yaml:"playback" json:"playback"`

	// Aliases are tried before the built-in alias table.
	Aliases map[bonemap.Label][]string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// DefaultConfig returns the direct strategy, default smoothing and 60 Hz
// looping playback.
func DefaultConfig() Config {
	return Config{
		Pose:     pose.DefaultConfig(),
		Smooth:   smooth.DefaultConfig(),
		Playback: playback.DefaultOptions(),
	}
}

var presets = map[string]func() Config{
	"default": DefaultConfig,
	"smooth": func() Config {
		cfg := DefaultConfig()
		cfg.Smooth = smooth.SmoothConfig()
		return cfg
	},
	"immediate": func() Config {
		cfg := DefaultConfig()
		cfg.Smooth = smooth.ImmediateConfig()
		return cfg
	},
	"mirror": func() Config {
		cfg := DefaultConfig()
		cfg.Pose = pose.MirroredConfig()
		return cfg
	},
	"delegated": func() Config {
		cfg := DefaultConfig()
		cfg.Pose = pose.DelegatedPreset()
		return cfg
	},
}

// Presets returns the names accepted by Preset.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Preset returns a named configuration.
func Preset(name string) (Config, error) {
	fn, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q (have %s)", ErrUnknownPreset, name, strings.Join(Presets(), ", "))
	}
	return fn(), nil
}

// ParseConfig overlays YAML data on base. Maps in base are merged in
// place.
func ParseConfig(base Config, data []byte) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile overlays the YAML file at path on DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(DefaultConfig(), data)
}
