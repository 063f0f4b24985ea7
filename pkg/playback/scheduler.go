package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-mocap/pkg/keypoint"
)

// Scheduler owns the playback cursor for one stream. It is safe for
// concurrent use.
type Scheduler struct {
	mu      sync.RWMutex
	stream  *keypoint.Stream
	opts    Options
	cursor  float64
	playing bool
	ticks   uint64
	wraps   uint64
}

// New creates a scheduler. Non-positive TickRate or Speed take defaults.
func New(opts Options) *Scheduler {
	if opts.TickRate <= 0 || math.IsNaN(opts.TickRate) {
		opts.TickRate = DefaultTickRate
	}
	if opts.Speed <= 0 || math.IsNaN(opts.Speed) {
		opts.Speed = DefaultSpeed
	}
	return &Scheduler{opts: opts}
}

// Load replaces the stream, rewinds to frame 0 and pauses.
func (s *Scheduler) Load(stream *keypoint.Stream) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stream = stream
	s.cursor = 0
	s.playing = false
	s.wraps = 0
}

// Stream returns the loaded stream, or nil.
func (s *Scheduler) Stream() *keypoint.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream
}

// SetPlaying starts or pauses playback. Starting at the last frame
// rewinds to the first.
func (s *Scheduler) SetPlaying(playing bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream.Len() == 0 {
		s.playing = false
		if playing {
			return ErrNoStream
		}
		return nil
	}
	if playing && !s.playing && s.cursor >= s.last() {
		s.cursor = 0
	}
	s.playing = playing
	return nil
}

// Toggle flips playback and returns the new playing state.
func (s *Scheduler) Toggle() bool {
	s.mu.RLock()
	next := !s.playing
	s.mu.RUnlock()
	if err := s.SetPlaying(next); err != nil {
		return false
	}
	return next
}

// Playing reports whether the cursor advances on Tick.
func (s *Scheduler) Playing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playing
}

// SetSpeed sets the speed multiplier. Non-positive values are rejected.
func (s *Scheduler) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return ErrInvalidSpeed
	}
	s.mu.Lock()
	s.opts.Speed = speed
	s.mu.Unlock()
	return nil
}

// SetTickRate changes the nominal tick rate.
func (s *Scheduler) SetTickRate(rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ErrInvalidRate
	}
	s.mu.Lock()
	s.opts.TickRate = rate
	s.mu.Unlock()
	return nil
}

// SetLoop sets the end-of-stream policy.
func (s *Scheduler) SetLoop(loop bool) {
	s.mu.Lock()
	s.opts.Loop = loop
	s.mu.Unlock()
}

// Options returns the current options.
func (s *Scheduler) Options() Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts
}

// Seek moves the cursor to a normalized position in [0, 1]. Out of range
// values are clamped.
func (s *Scheduler) Seek(normalized float64) {
	if math.IsNaN(normalized) {
		normalized = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = clamp(normalized, 0, 1) * s.last()
}

// SetCursor moves the cursor to a fractional frame position, clamped to
// the stream bounds.
func (s *Scheduler) SetCursor(cursor float64) {
	if math.IsNaN(cursor) {
		cursor = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor = clamp(cursor, 0, s.last())
}

// Cursor returns the fractional frame position.
func (s *Scheduler) Cursor() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Tick advances the cursor by speed*sampleRate/tickRate when playing and
// returns the resolved frame index. At the end the cursor wraps to 0 when
// looping; otherwise it clamps to the last frame and playback stops.
func (s *Scheduler) Tick() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ticks++
	n := s.stream.Len()
	if n == 0 {
		return 0
	}
	if s.playing {
		s.cursor += s.opts.Speed * s.stream.SampleRate() / s.opts.TickRate
		if s.cursor >= float64(n) {
			if s.opts.Loop {
				s.cursor = 0
				s.wraps++
			} else {
				s.cursor = s.last()
				s.playing = false
			}
		}
	}
	return s.index()
}

// Index returns the resolved frame index floor(clamp(cursor, 0, last)).
func (s *Scheduler) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index()
}

func (s *Scheduler) index() int {
	return int(math.Floor(clamp(s.cursor, 0, s.last())))
}

func (s *Scheduler) last() float64 {
	n := s.stream.Len()
	if n == 0 {
		return 0
	}
	return float64(n - 1)
}

// Frame returns the frame at the resolved index, or nil.
func (s *Scheduler) Frame() *keypoint.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream.Frame(s.index())
}

// Progress returns the resolved index as a fraction of the last index.
func (s *Scheduler) Progress() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.progress()
}

func (s *Scheduler) progress() float64 {
	last := s.last()
	if last == 0 {
		return 0
	}
	return float64(s.index()) / last
}

// State returns the coarse playback state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state()
}

func (s *Scheduler) state() State {
	switch {
	case s.stream.Len() == 0:
		return StateEmpty
	case s.playing:
		return StatePlaying
	case !s.opts.Loop && s.last() > 0 && s.cursor >= s.last():
		return StateEnded
	default:
		return StatePaused
	}
}

// Status returns a snapshot of all scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:      s.state().String(),
		Playing:    s.playing,
		Loop:       s.opts.Loop,
		Speed:      s.opts.Speed,
		Cursor:     s.cursor,
		Index:      s.index(),
		FrameCount: s.stream.Len(),
		SampleRate: s.stream.SampleRate(),
		Ticks:      s.ticks,
		Wraps:      s.wraps,
		Progress:   s.progress(),
	}
	return st
}

// Run calls fn at rate Hz until ctx is done.
func Run(ctx context.Context, rate float64, fn func()) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ErrInvalidRate
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
