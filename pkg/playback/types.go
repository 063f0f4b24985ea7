// Package playback advances a fractional frame cursor through a pose
// stream at a fixed tick rate, independent of the stream's sample rate.
package playback

// Defaults.
const (
	DefaultTickRate = 60.0
	DefaultSpeed    = 1.0
	DefaultLoop     = true
)

// State describes the scheduler.
type State int

const (
	StateEmpty State = iota
	StatePaused
	StatePlaying
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Options configures a Scheduler.
type Options struct {
	// TickRate is the nominal number of Tick calls per second.
	TickRate float64 `yaml:"tick_rate" json:"tick_rate"`
	// Speed multiplies the stream's sample rate.
	Speed float64 `yaml:"speed" json:"speed"`
	// Loop wraps to the first frame at the end instead of stopping.
	Loop bool `yaml:"loop" json:"loop"`
}

// DefaultOptions returns 60 Hz ticks at normal speed with looping.
func DefaultOptions() Options {
	return Options{
		TickRate: DefaultTickRate,
		Speed:    DefaultSpeed,
		Loop:     DefaultLoop,
	}
}

// Status is a snapshot of scheduler state.
type Status struct {
	State      string  `json:"state"`
	Playing    bool    `json:"playing"`
	Loop       bool    `json:"loop"`
	Speed      float64 `json:"speed"`
	Cursor     float64 `json:"cursor"`
	Index      int     `json:"index"`
	FrameCount int     `json:"frame_count"`
	SampleRate float64 `json:"sample_rate"`
	Progress   float64 `json:"progress"`
	Ticks      uint64  `json:"ticks"`
	Wraps      uint64  `json:"wraps"`
}
