package playback

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/teslashibe/go-mocap/pkg/keypoint"
)

func newStream(n int, fps float64) *keypoint.Stream {
	return keypoint.WaveStream(n, fps, 0.5)
}

func playing(t *testing.T, loop bool) *Scheduler {
	t.Helper()
	s := New(Options{TickRate: 60, Speed: 1, Loop: loop})
	s.Load(newStream(100, 30))
	if err := s.SetPlaying(true); err != nil {
		t.Fatalf("SetPlaying: %v", err)
	}
	return s
}

func TestTickStopsAtEndWithoutLoop(t *testing.T) {
	s := playing(t, false)
	var idx int
	for i := 0; i < 200; i++ {
		idx = s.Tick()
	}
	if idx != 99 {
		t.Errorf("index = %d, want 99", idx)
	}
	if s.Playing() {
		t.Error("still playing after end of stream")
	}
	if got := s.State(); got != StateEnded {
		t.Errorf("state = %v, want ended", got)
	}
}

func TestTickWrapsWithLoop(t *testing.T) {
	s := playing(t, true)
	for i := 0; i < 200; i++ {
		s.Tick()
	}
	st := s.Status()
	if st.Wraps < 1 {
		t.Errorf("wraps = %d, want >= 1", st.Wraps)
	}
	if !st.Playing {
		t.Error("looping playback stopped")
	}
	if st.Index < 0 || st.Index > 99 {
		t.Errorf("index %d out of range", st.Index)
	}
}

func TestTickAdvanceRate(t *testing.T) {
	tests := []struct {
		name     string
		fps      float64
		speed    float64
		tickRate float64
		ticks    int
		want     float64
	}{
		{"half step", 30, 1, 60, 10, 5},
		{"unit step", 60, 1, 60, 10, 10},
		{"double speed", 30, 2, 60, 10, 10},
		{"slow", 30, 0.5, 60, 8, 2},
		{"default fps", 0, 1, 60, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(Options{TickRate: tt.tickRate, Speed: tt.speed, Loop: true})
			str := newStream(1000, tt.fps)
			str.Metadata.FPS = tt.fps
			s.Load(str)
			s.SetPlaying(true)
			for i := 0; i < tt.ticks; i++ {
				s.Tick()
			}
			if got := s.Cursor(); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cursor = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPausedTickHoldsCursor(t *testing.T) {
	s := New(DefaultOptions())
	s.Load(newStream(10, 30))
	s.SetCursor(3.5)
	for i := 0; i < 20; i++ {
		if idx := s.Tick(); idx != 3 {
			t.Fatalf("tick %d: index = %d, want 3", i, idx)
		}
	}
}

func TestSeekIdempotent(t *testing.T) {
	s := New(DefaultOptions())
	s.Load(newStream(100, 30))

	setups := []func(){
		func() {},
		func() { s.SetPlaying(true); s.Tick(); s.Tick() },
		func() { s.SetCursor(87.2) },
		func() { s.SetLoop(false); s.SetSpeed(3) },
	}
	for i, setup := range setups {
		setup()
		s.Seek(0.5)
		if got := s.Index(); got != 49 {
			t.Errorf("setup %d: index = %d, want floor(0.5*99) = 49", i, got)
		}
	}
}

func TestSeekClamps(t *testing.T) {
	s := New(DefaultOptions())
	s.Load(newStream(11, 30))

	tests := []struct {
		in   float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.25, 2},
		{1, 10},
		{7, 10},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		s.Seek(tt.in)
		if got := s.Index(); got != tt.want {
			t.Errorf("Seek(%v): index = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestLoadResets(t *testing.T) {
	s := playing(t, true)
	for i := 0; i < 30; i++ {
		s.Tick()
	}
	s.Load(newStream(5, 30))
	if s.Playing() {
		t.Error("Load should pause")
	}
	if s.Cursor() != 0 {
		t.Errorf("cursor = %v after Load, want 0", s.Cursor())
	}
	if s.Frame() == nil || s.Frame().Number != 0 {
		t.Error("Frame() should return frame 0 after Load")
	}
}

func TestPlayAtEndRestarts(t *testing.T) {
	s := playing(t, false)
	for s.Playing() {
		s.Tick()
	}
	if s.Index() != 99 {
		t.Fatalf("index = %d, want 99", s.Index())
	}
	if !s.Toggle() {
		t.Fatal("Toggle should resume playback")
	}
	if s.Cursor() != 0 {
		t.Errorf("cursor = %v, want restart at 0", s.Cursor())
	}
	if s.Toggle() {
		t.Error("second Toggle should pause")
	}
}

func TestSetSpeedRejectsNonPositive(t *testing.T) {
	s := New(DefaultOptions())
	for _, v := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if err := s.SetSpeed(v); !errors.Is(err, ErrInvalidSpeed) {
			t.Errorf("SetSpeed(%v) err = %v, want ErrInvalidSpeed", v, err)
		}
	}
	if got := s.Options().Speed; got != DefaultSpeed {
		t.Errorf("speed = %v, want unchanged %v", got, DefaultSpeed)
	}
	if err := s.SetSpeed(2); err != nil {
		t.Fatalf("SetSpeed(2): %v", err)
	}
	if got := s.Options().Speed; got != 2 {
		t.Errorf("speed = %v, want 2", got)
	}
}

func TestSpeedRoundTrip(t *testing.T) {
	// At speed 2 a 100-frame 30 fps stream ends after 100 ticks at 60 Hz.
	s := playing(t, false)
	s.SetSpeed(2)
	ticks := 0
	for s.Playing() && ticks < 1000 {
		s.Tick()
		ticks++
	}
	if ticks != 100 {
		t.Errorf("ended after %d ticks, want 100", ticks)
	}
}

func TestEmptyScheduler(t *testing.T) {
	s := New(Options{})
	if got := s.Options(); got.TickRate != DefaultTickRate || got.Speed != DefaultSpeed {
		t.Errorf("zero options not defaulted: %+v", got)
	}
	if err := s.SetPlaying(true); !errors.Is(err, ErrNoStream) {
		t.Errorf("SetPlaying on empty = %v, want ErrNoStream", err)
	}
	if s.Toggle() {
		t.Error("Toggle on empty should not play")
	}
	if idx := s.Tick(); idx != 0 {
		t.Errorf("Tick on empty = %d", idx)
	}
	if s.Frame() != nil {
		t.Error("Frame on empty should be nil")
	}
	s.Seek(0.5)
	if st := s.Status(); st.State != "empty" || st.Progress != 0 {
		t.Errorf("status = %+v", st)
	}
}

func TestStatusProgress(t *testing.T) {
	s := New(DefaultOptions())
	s.Load(newStream(5, 30))
	s.SetCursor(2)
	st := s.Status()
	if st.Progress != 0.5 || st.FrameCount != 5 || st.SampleRate != 30 || st.State != "paused" {
		t.Errorf("status = %+v", st)
	}
}

func TestStateString(t *testing.T) {
	for st, want := range map[State]string{
		StateEmpty:   "empty",
		StatePaused:  "paused",
		StatePlaying: "playing",
		StateEnded:   "ended",
		State(42):    "unknown",
	} {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}

func TestRun(t *testing.T) {
	if err := Run(context.Background(), 0, func() {}); !errors.Is(err, ErrInvalidRate) {
		t.Errorf("Run(rate 0) = %v, want ErrInvalidRate", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var calls atomic.Int64
	err := Run(ctx, 200, func() { calls.Add(1) })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run err = %v, want deadline exceeded", err)
	}
	if calls.Load() == 0 {
		t.Error("Run never called fn")
	}
}
