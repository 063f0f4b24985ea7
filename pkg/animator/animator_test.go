package animator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/rig"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

const tolerance = 1e-5

func init() {
	log.SetOutput(io.Discard, "error")
}

func newSession(t *testing.T, cfg Config, loader rig.Loader) *Session {
	t.Helper()
	s, err := New(Options{Config: cfg, Loader: loader})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func segmentRotation(f *keypoint.Frame, from, to int) spatial.Quat {
	dir := r3.Unit(r3.Sub(f.Point(to), f.Point(from)))
	return spatial.FromUnitVectors(spatial.Up, dir)
}

func testLoader() rig.Loader {
	return rig.LoaderFunc(func(ctx context.Context, location string) (*rig.Skeleton, error) {
		switch location {
		case "broken.glb":
			return nil, fmt.Errorf("%w: truncated header", rig.ErrLoadFailed)
		default:
			s := rig.Humanoid(rig.MixamoNames)
			s.Source = location
			return s, nil
		}
	})
}

func TestTickConvergesOnPausedFrame(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)
	stream := keypoint.WaveStream(30, 30, 0.5)
	if err := s.LoadStream(stream); err != nil {
		t.Fatalf("LoadStream: %v", err)
	}

	want := segmentRotation(stream.Frame(0), keypoint.LeftShoulder, keypoint.LeftElbow)
	node := s.Skeleton().Find("LeftUpperArm")

	prev := spatial.Angle(node.Rotation(), want)
	for i := 0; i < 60; i++ {
		snap := s.Tick()
		if snap.Frame != 0 {
			t.Fatalf("paused session advanced to frame %d", snap.Frame)
		}
		d := spatial.Angle(node.Rotation(), want)
		if d > prev+1e-12 {
			t.Fatalf("tick %d: distance grew from %v to %v", i, prev, d)
		}
		prev = d
	}
	if prev > tolerance {
		t.Errorf("LeftUpperArm is %v rad from target after 60 ticks", prev)
	}
}

func TestTickDegenerateSegmentKeepsPose(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)

	f := keypoint.StandingFrame()
	f.World[keypoint.LeftElbow] = f.World[keypoint.LeftShoulder]
	if err := s.LoadStream(&keypoint.Stream{Frames: []keypoint.Frame{f}}); err != nil {
		t.Fatalf("LoadStream: %v", err)
	}

	node := s.Skeleton().Find("LeftUpperArm")
	held := spatial.FromAxisAngle(r3.Vec{X: 1}, 0.3)
	node.SetRotation(held)

	snap := s.Tick()
	if node.Rotation() != held {
		t.Errorf("rotation changed to %v, want %v", node.Rotation(), held)
	}
	found := false
	for _, l := range snap.Skipped {
		found = found || l == "LeftUpperArm"
	}
	if !found {
		t.Errorf("snapshot skipped = %v, want LeftUpperArm", snap.Skipped)
	}
	if got := s.Diagnostics().Skipped["LeftUpperArm"]["degenerate"]; got != 1 {
		t.Errorf("degenerate count = %d, want 1", got)
	}
}

func TestTickEmptyFrameIsNoop(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)
	if err := s.LoadStream(&keypoint.Stream{Frames: []keypoint.Frame{{}}}); err != nil {
		t.Fatalf("LoadStream: %v", err)
	}
	before := s.Tick().Bones
	for i := 0; i < 5; i++ {
		after := s.Tick().Bones
		for j := range after {
			if after[j] != before[j] {
				t.Fatalf("bone %s moved on an empty frame", after[j].Node)
			}
		}
	}
}

func TestTickWithoutStream(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)
	snap := s.Tick()
	if snap.Frame != 0 || snap.Playing {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Bones) == 0 {
		t.Error("procedural rig should report bound bones")
	}
	if snap.Session != s.ID() {
		t.Errorf("session = %q, want %q", snap.Session, s.ID())
	}
}

func TestHierarchyWorldRotations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Smooth.RotationBlend = 1
	s := newSession(t, cfg, testLoader())
	if err := s.SwapRigSync(context.Background(), "mixamo.glb"); err != nil {
		t.Fatalf("SwapRigSync: %v", err)
	}
	stream := keypoint.WaveStream(30, 30, 0.8)
	s.LoadStream(stream)
	s.Seek(0.25)
	s.Tick()

	f := s.Scheduler().Frame()
	tests := []struct {
		node     string
		from, to int
	}{
		{"mixamorig:LeftArm", keypoint.LeftShoulder, keypoint.LeftElbow},
		{"mixamorig:LeftForeArm", keypoint.LeftElbow, keypoint.LeftWrist},
		{"mixamorig:RightLeg", keypoint.RightKnee, keypoint.RightAnkle},
	}
	for _, tt := range tests {
		n := s.Skeleton().Find(tt.node)
		want := segmentRotation(f, tt.from, tt.to)
		if d := spatial.Angle(rig.WorldRotation(n), want); d > tolerance {
			t.Errorf("%s world rotation off by %v rad", tt.node, d)
		}
	}
}

func TestSeekRoundTrip(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)
	s.LoadStream(keypoint.WaveStream(50, 30, 0.5))
	s.SetLoop(false)
	if err := s.SetSpeed(2); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}

	const k = 17
	s.Scheduler().SetCursor(k)
	want := s.Scheduler().Index()

	s.Seek(0)
	if err := s.SetPlaying(true); err != nil {
		t.Fatalf("SetPlaying: %v", err)
	}
	var snap Snapshot
	for i := 0; i < k; i++ {
		snap = s.Tick()
	}
	if snap.Frame != want {
		t.Errorf("frame after %d ticks = %d, want %d", k, snap.Frame, want)
	}
}

func TestPlaybackStopsAtEnd(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)
	s.LoadStream(keypoint.WaveStream(100, 30, 0.5))
	s.SetLoop(false)
	s.SetPlaying(true)

	var snap Snapshot
	for i := 0; i < 200; i++ {
		snap = s.Tick()
	}
	if snap.Frame != 99 || snap.Playing {
		t.Errorf("frame = %d playing = %v, want 99 false", snap.Frame, snap.Playing)
	}
}

func TestLoadStreamErrors(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)
	if err := s.LoadStream(nil); !errors.Is(err, ErrLoadFailure) || !errors.Is(err, keypoint.ErrNoFrames) {
		t.Errorf("LoadStream(nil) = %v", err)
	}
	if err := s.LoadStreamData([]byte("{")); !errors.Is(err, ErrLoadFailure) {
		t.Errorf("LoadStreamData(bad) = %v", err)
	}
	if err := s.LoadStreamFrom(context.Background(), t.TempDir()+"/missing.json"); !errors.Is(err, ErrLoadFailure) {
		t.Errorf("LoadStreamFrom(missing) = %v", err)
	}
	if err := s.SetPlaying(true); err == nil {
		t.Error("SetPlaying without a stream should fail")
	}
}

func TestSwapRig(t *testing.T) {
	s := newSession(t, DefaultConfig(), testLoader())
	if got := s.Status().Rig.Source; got != rig.ProceduralName {
		t.Fatalf("initial rig = %q, want procedural", got)
	}

	if err := <-s.SwapRig(context.Background(), "mixamo.glb"); err != nil {
		t.Fatalf("SwapRig: %v", err)
	}
	st := s.Status().Rig
	if st.Name != "Armature" || st.Source != "mixamo.glb" || st.Pending != "" {
		t.Errorf("rig status = %+v", st)
	}
	if !s.Mapping().Has(bonemap.LeftUpperArm) {
		t.Error("mixamo rig should bind LeftUpperArm")
	}

	if err := s.SwapRigSync(context.Background(), ""); err != nil {
		t.Fatalf("SwapRig(procedural): %v", err)
	}
	if got := s.Status().Rig.Source; got != rig.ProceduralName {
		t.Errorf("rig = %q, want procedural", got)
	}
}

func TestSwapRigFailureKeepsRig(t *testing.T) {
	s := newSession(t, DefaultConfig(), testLoader())
	s.LoadStream(keypoint.WaveStream(10, 30, 0.5))
	s.SwapRigSync(context.Background(), "mixamo.glb")

	err := s.SwapRigSync(context.Background(), "broken.glb")
	if !errors.Is(err, ErrLoadFailure) || !errors.Is(err, rig.ErrLoadFailed) {
		t.Fatalf("err = %v, want ErrLoadFailure wrapping rig.ErrLoadFailed", err)
	}
	st := s.Status().Rig
	if st.Source != "mixamo.glb" {
		t.Errorf("rig = %q, want previous rig kept", st.Source)
	}
	if st.LastError == "" {
		t.Error("LastError should describe the failure")
	}
	if snap := s.Tick(); len(snap.Bones) == 0 {
		t.Error("previous rig should keep animating")
	}
}

func TestSwapRigNewestWins(t *testing.T) {
	started := make(chan struct{})
	loader := rig.LoaderFunc(func(ctx context.Context, location string) (*rig.Skeleton, error) {
		if location == "slow.glb" {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return testLoader().Load(ctx, location)
	})
	s := newSession(t, DefaultConfig(), loader)

	slow := s.SwapRig(context.Background(), "slow.glb")
	<-started
	if got := s.Status().Rig.Pending; got != "slow.glb" {
		t.Errorf("pending = %q, want slow.glb", got)
	}
	fast := s.SwapRig(context.Background(), "fast.glb")

	if err := <-fast; err != nil {
		t.Fatalf("fast: %v", err)
	}
	select {
	case err := <-slow:
		if !errors.Is(err, ErrSuperseded) {
			t.Errorf("slow: %v, want ErrSuperseded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("superseded request never finished")
	}
	if got := s.Status().Rig.Source; got != "fast.glb" {
		t.Errorf("rig = %q, want fast.glb", got)
	}
}

func TestSolverUnavailableHoldsPose(t *testing.T) {
	var healthy atomic.Bool
	kin := pose.KinematicsFunc(func(ctx context.Context, in pose.Input) (pose.Solution, error) {
		if !healthy.Load() {
			return nil, errors.New("connection refused")
		}
		return pose.Solution{
			bonemap.LeftUpperArm: {Rotation: pose.Euler{Z: 0.5}},
		}, nil
	})
	s, err := New(Options{Config: mustPreset(t, "delegated"), Kinematics: kin})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	s.LoadStream(keypoint.WaveStream(10, 30, 0.5))

	for i := 0; i < 5; i++ {
		s.Tick()
	}
	d := s.Diagnostics()
	if !d.SolverDown || d.Failures != 5 {
		t.Errorf("diagnostics = %+v, want solver down after 5 failures", d)
	}

	healthy.Store(true)
	s.Tick()
	if s.Diagnostics().SolverDown {
		t.Error("solver should be marked recovered")
	}
	if s.Status().Strategy != pose.StrategyDelegated {
		t.Errorf("strategy = %q", s.Status().Strategy)
	}
}

func TestTickRecoversFromPanic(t *testing.T) {
	kin := pose.KinematicsFunc(func(context.Context, pose.Input) (pose.Solution, error) {
		panic("solver bug")
	})
	s, err := New(Options{Config: mustPreset(t, "delegated"), Kinematics: kin})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	s.LoadStream(keypoint.WaveStream(10, 30, 0.5))

	snap := s.Tick()
	if snap.Session != s.ID() {
		t.Error("recovered tick should still return a snapshot")
	}
	// The session lock must have been released.
	_ = s.Status()
}

func TestOnSnapshot(t *testing.T) {
	s := newSession(t, DefaultConfig(), nil)
	var calls atomic.Int64
	s.OnSnapshot(func(snap Snapshot) {
		calls.Add(1)
		_ = s.Status()
	})
	for i := 0; i < 3; i++ {
		s.Tick()
	}
	if calls.Load() != 3 {
		t.Errorf("listener calls = %d, want 3", calls.Load())
	}
	if got := s.Status().Ticks; got != 3 {
		t.Errorf("ticks = %d, want 3", got)
	}
}

func TestRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Playback.TickRate = 200
	s := newSession(t, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run = %v", err)
	}
	if s.Status().Ticks == 0 {
		t.Error("Run never ticked")
	}
}

func mustPreset(t *testing.T, name string) Config {
	t.Helper()
	cfg, err := Preset(name)
	if err != nil {
		t.Fatalf("Preset(%q): %v", name, err)
	}
	return cfg
}

func TestPresets(t *testing.T) {
	for _, name := range Presets() {
		if _, err := Preset(name); err != nil {
			t.Errorf("Preset(%q): %v", name, err)
		}
	}
	if cfg := mustPreset(t, " Mirror "); !cfg.Pose.Mirror {
		t.Error("mirror preset should set Pose.Mirror")
	}
	if _, err := Preset("cartoon"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("Preset(cartoon) = %v", err)
	}
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
pose:
  strategy: delegated
  mirror: true
smooth:
  rotation_blend: 0.5
  overrides:
    LeftHand:
      rotation: 0.9
playback:
  tick_rate: 30
aliases:
  hips: [pelvis_root]
`)
	cfg, err := ParseConfig(DefaultConfig(), data)
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Pose.Strategy != pose.StrategyDelegated || !cfg.Pose.Mirror {
		t.Errorf("pose = %+v", cfg.Pose)
	}
	if cfg.Pose.Epsilon != pose.DefaultEpsilon {
		t.Errorf("epsilon = %v, want default kept", cfg.Pose.Epsilon)
	}
	if cfg.Smooth.RotationBlend != 0.5 {
		t.Errorf("rotation blend = %v", cfg.Smooth.RotationBlend)
	}
	if got := cfg.Smooth.Overrides[bonemap.LeftHand].Rotation; got != 0.9 {
		t.Errorf("LeftHand override = %v", got)
	}
	if got := cfg.Smooth.Overrides[bonemap.Hips].Position; got == 0 {
		t.Error("default hips override should be kept")
	}
	if cfg.Playback.TickRate != 30 || !cfg.Playback.Loop {
		t.Errorf("playback = %+v", cfg.Playback)
	}
	if got := cfg.Aliases[bonemap.Hips]; len(got) != 1 || got[0] != "pelvis_root" {
		t.Errorf("aliases = %v", cfg.Aliases)
	}

	if _, err := ParseConfig(DefaultConfig(), []byte("pose: [")); err == nil {
		t.Error("malformed YAML should fail")
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	cfg, err := LoadConfigFile(t.TempDir() + "/nope.yaml")
	if err == nil {
		t.Fatal("missing file should fail")
	}
	if cfg.Pose.Strategy != pose.StrategyDirect {
		t.Error("defaults should be returned alongside the error")
	}
}

func TestCustomAliasesResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aliases = map[bonemap.Label][]string{bonemap.Hips: {"pelvis_root"}}
	loader := rig.LoaderFunc(func(context.Context, string) (*rig.Skeleton, error) {
		return rig.New("custom", rig.NewBone("pelvis_root")), nil
	})
	s := newSession(t, cfg, loader)
	if err := s.SwapRigSync(context.Background(), "custom.json"); err != nil {
		t.Fatalf("SwapRigSync: %v", err)
	}
	if n := s.Mapping().Node(bonemap.Hips); n == nil || n.Name() != "pelvis_root" {
		t.Errorf("Hips bound to %v", n)
	}
}
