// Package animator drives a rig from a pose stream.
//
// A Session owns one stream, one rig and its bone mapping, the pose
// strategy and the smoother. Tick runs the whole pipeline synchronously:
// advance the playback cursor, solve the current frame and blend the
// result into the rig. Rig loading is the only asynchronous operation.
package animator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/playback"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/rig"
	"github.com/teslashibe/go-mocap/pkg/smooth"
)

// Options configures a Session.
type Options struct {
	Config Config
	// Kinematics backs the delegated strategy. Nil selects direct.
	Kinematics pose.Kinematics
	// Loader fetches rigs for SwapRig. Nil uses rig.FileLoader.
	Loader rig.Loader
	Logger *slog.Logger
}

// Session animates one rig from one stream.
type Session struct {
	id       string
	log      *slog.Logger
	cfg      Config
	loader   rig.Loader
	resolver *bonemap.Resolver
	strategy pose.Strategy
	smoother *smooth.Smoother
	sched    *playback.Scheduler

	// mu guards the rig, the solve cache and the stats below. Tick holds
	// it for the whole pipeline.
	mu      sync.Mutex
	skel    *rig.Skeleton
	mapping *bonemap.Mapping
	bind    binding
	order   []bound
	rigGen  uint64
	rigErr  string
	ticks   uint64
	cache   solved
	skipped map[bonemap.Label]map[string]int
	solves  uint64
	fails   uint64
	down    bool

	swapMu     sync.Mutex
	swapGen    uint64
	swapCancel context.CancelFunc
	pending    string

	listenMu  sync.RWMutex
	listeners []func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
}

// solved caches the last successful result so a frame re-resolved on
// consecutive ticks is solved once.
type solved struct {
	ok     bool
	index  int
	rigGen uint64
	stream *keypoint.Stream
	result pose.Result
}

// New creates a session bound to the procedural rig.
func New(opts Options) (*Session, error) {
	cfg := opts.Config
	logger := log.Or(opts.Logger, "animator")

	strategy, err := pose.New(cfg.Pose, opts.Kinematics, logger)
	if err != nil {
		return nil, err
	}
	loader := opts.Loader
	if loader == nil {
		loader = rig.FileLoader{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	s := &Session{
		id:       id,
		log:      logger.With("session", id),
		cfg:      cfg,
		loader:   loader,
		resolver: bonemap.NewResolver(cfg.Aliases),
		strategy: strategy,
		smoother: smooth.New(cfg.Smooth),
		sched:    playback.New(cfg.Playback),
		skipped:  make(map[bonemap.Label]map[string]int),
		ctx:      ctx,
		cancel:   cancel,
	}
	skel := rig.Procedural()
	s.install(skel, s.resolver.Resolve(skel))

	s.log.Info("session created", "strategy", strategy.Name(), "rig", skel.Source)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Close cancels any pending rig load. The session stays usable.
func (s *Session) Close() {
	s.swapMu.Lock()
	if s.swapCancel != nil {
		s.swapCancel()
	}
	s.swapMu.Unlock()
	s.cancel()
}

// =============================================================================
// Stream and playback
// =============================================================================

// LoadStream replaces the stream, rewinds to the first frame and pauses.
func (s *Session) LoadStream(stream *keypoint.Stream) error {
	if stream.Len() == 0 {
		return fmt.Errorf("%w: %w", ErrLoadFailure, keypoint.ErrNoFrames)
	}
	s.mu.Lock()
	s.sched.Load(stream)
	s.cache = solved{}
	s.mu.Unlock()

	s.log.Info("stream loaded",
		"frames", stream.Len(),
		"fps", stream.SampleRate(),
		"source", stream.Metadata.SourceVideo,
	)
	return nil
}

// LoadStreamData parses and loads a stream document.
func (s *Session) LoadStreamData(data []byte) error {
	stream, err := keypoint.Parse(data)
	if err != nil {
		s.log.Warn("stream rejected", "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}
	return s.LoadStream(stream)
}

// LoadStreamFrom loads a stream from a file path or http(s) URL.
func (s *Session) LoadStreamFrom(ctx context.Context, location string) error {
	stream, err := keypoint.Load(ctx, location)
	if err != nil {
		s.log.Warn("stream load failed", "location", location, "error", err)
		return fmt.Errorf("%w: %w", ErrLoadFailure, err)
	}
	return s.LoadStream(stream)
}

// SetPlaying starts or pauses playback.
func (s *Session) SetPlaying(playing bool) error {
	return s.sched.SetPlaying(playing)
}

// TogglePlaying flips playback and returns the new state.
func (s *Session) TogglePlaying() bool {
	return s.sched.Toggle()
}

// SetSpeed sets the playback speed multiplier.
func (s *Session) SetSpeed(speed float64) error {
	return s.sched.SetSpeed(speed)
}

// Seek moves to a normalized position in [0, 1].
func (s *Session) Seek(normalized float64) {
	s.sched.Seek(normalized)
}

// SetLoop sets the end-of-stream policy.
func (s *Session) SetLoop(loop bool) {
	s.sched.SetLoop(loop)
}

// Scheduler exposes the playback scheduler.
func (s *Session) Scheduler() *playback.Scheduler { return s.sched }

// Run ticks the session at the configured tick rate until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	return playback.Run(ctx, s.sched.Options().TickRate, func() { s.Tick() })
}

// OnSnapshot registers fn to receive every tick's snapshot. fn runs on
// the ticking goroutine after the session lock is released.
func (s *Session) OnSnapshot(fn func(Snapshot)) {
	s.listenMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenMu.Unlock()
}

// =============================================================================
// Tick
// =============================================================================

// Tick advances playback, solves the current frame and blends the result
// into the rig. Solver failures leave affected bones at their previous
// pose. Tick never returns an error and never panics.
func (s *Session) Tick() Snapshot {
	snap := s.tick()

	s.listenMu.RLock()
	listeners := s.listeners
	s.listenMu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return snap
}

func (s *Session) tick() (snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("tick panicked, pose retained", "panic", r)
			snap = s.snapshot(nil)
		}
	}()

	s.ticks++
	index := s.sched.Tick()
	frame := s.sched.Frame()
	if frame == nil {
		return s.snapshot(nil)
	}

	res, ok := s.solve(index, frame)
	if !ok {
		return s.snapshot(nil)
	}
	for _, b := range s.order {
		t, ok := res.Target(b.label)
		if !ok {
			continue
		}
		s.smoother.Apply(b.node, pose.ToLocal(t, b.node))
	}
	for _, sk := range res.Skipped {
		s.countSkip(sk)
	}
	return s.snapshot(res.Skipped)
}

func (s *Session) solve(index int, frame *keypoint.Frame) (pose.Result, bool) {
	stream := s.sched.Stream()
	if c := s.cache; c.ok && c.index == index && c.rigGen == s.rigGen && c.stream == stream {
		return c.result, true
	}

	s.solves++
	res, err := s.strategy.Solve(s.ctx, frame, s.bind)
	if err != nil {
		s.fails++
		s.solveFailed(index, err)
		return pose.Result{}, false
	}
	if s.down {
		s.down = false
		s.log.Info("kinematics solver recovered", "frame", index)
	}
	s.cache = solved{ok: true, index: index, rigGen: s.rigGen, stream: stream, result: res}
	return res, true
}

func (s *Session) solveFailed(index int, err error) {
	switch {
	case errors.Is(err, pose.ErrSolverUnavailable):
		if !s.down {
			s.down = true
			s.log.Warn("kinematics solver unavailable, holding pose", "frame", index, "error", err)
		}
	case errors.Is(err, pose.ErrEmptyFrame), errors.Is(err, pose.ErrNoSolution):
		s.log.Debug("frame skipped", "frame", index, "reason", err)
	default:
		s.log.Debug("solve failed", "frame", index, "error", err)
	}
}

func (s *Session) countSkip(sk pose.Skip) {
	reasons := s.skipped[sk.Label]
	if reasons == nil {
		reasons = make(map[string]int)
		s.skipped[sk.Label] = reasons
	}
	reasons[skipReason(sk.Err)]++
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, pose.ErrDegenerateSegment):
		return "degenerate"
	case errors.Is(err, pose.ErrOccluded):
		return "occluded"
	default:
		return "other"
	}
}

func (s *Session) snapshot(skipped []pose.Skip) Snapshot {
	snap := Snapshot{
		Session: s.id,
		Rig:     s.skel.Name,
		Frame:   s.sched.Index(),
		Cursor:  s.sched.Cursor(),
		Playing: s.sched.Playing(),
		Bones:   make([]BonePose, 0, len(s.order)),
	}
	for _, b := range s.order {
		p, sc := b.node.Position(), b.node.Scale()
		snap.Bones = append(snap.Bones, BonePose{
			Label:    b.label,
			Node:     b.node.Name(),
			Rotation: b.node.Rotation(),
			Position: [3]float64{p.X, p.Y, p.Z},
			Scale:    [3]float64{sc.X, sc.Y, sc.Z},
		})
	}
	for _, sk := range skipped {
		snap.Skipped = append(snap.Skipped, sk.Label.String())
	}
	return snap
}

// =============================================================================
// Rig
// =============================================================================

// SwapRig loads the rig at location in the background and returns a
// channel that receives the outcome. An empty location selects the
// procedural rig. The current rig keeps animating until the new one is
// resolved; a newer request cancels and supersedes an older one; on
// failure the current rig is kept.
func (s *Session) SwapRig(ctx context.Context, location string) <-chan error {
	done := make(chan error, 1)

	s.swapMu.Lock()
	if s.swapCancel != nil {
		s.swapCancel()
	}
	s.swapGen++
	gen := s.swapGen
	ctx, cancel := context.WithCancel(ctx)
	s.swapCancel = cancel
	s.pending = displayLocation(location)
	s.swapMu.Unlock()

	logger := s.log.With("request", uuid.NewString(), "rig", displayLocation(location))
	logger.Info("rig load started")

	go func() {
		defer cancel()
		err := s.swapRig(ctx, gen, location, logger)
		done <- err
		close(done)
	}()
	return done
}

// SwapRigSync is SwapRig that waits for the outcome.
func (s *Session) SwapRigSync(ctx context.Context, location string) error {
	return <-s.SwapRig(ctx, location)
}

func (s *Session) swapRig(ctx context.Context, gen uint64, location string, logger *slog.Logger) error {
	var skel *rig.Skeleton
	if location == "" {
		skel = rig.Procedural()
	} else {
		var err error
		skel, err = s.loader.Load(ctx, location)
		if err != nil {
			if ctx.Err() != nil && s.superseded(gen) {
				logger.Debug("rig load superseded")
				return ErrSuperseded
			}
			logger.Warn("rig load failed, keeping current rig", "error", err)
			s.rigFailed(gen, err)
			return fmt.Errorf("%w: %w", ErrLoadFailure, err)
		}
	}
	mapping := s.resolver.Resolve(skel)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.superseded(gen) {
		logger.Debug("rig load superseded")
		return ErrSuperseded
	}
	s.install(skel, mapping)
	s.clearPending(gen)

	report := mapping.Report()
	if mapping.Len() == 0 {
		logger.Warn("rig installed with no resolved bones", "nodes", skel.Len())
	} else {
		logger.Info("rig installed",
			"nodes", skel.Len(),
			"resolved", mapping.Len(),
			"unresolved", report.Unresolved,
		)
	}
	return nil
}

// install swaps in a resolved rig. Callers hold mu, except New.
func (s *Session) install(skel *rig.Skeleton, mapping *bonemap.Mapping) {
	s.skel = skel
	s.mapping = mapping
	s.bind = binding{mapping: mapping, free: skel.FreeStanding()}
	s.order = applyOrder(skel, mapping)
	s.rigGen++
	s.rigErr = ""
	s.cache = solved{}
	s.skipped = make(map[bonemap.Label]map[string]int)
}

func (s *Session) superseded(gen uint64) bool {
	s.swapMu.Lock()
	defer s.swapMu.Unlock()
	return gen != s.swapGen
}

func (s *Session) clearPending(gen uint64) {
	s.swapMu.Lock()
	if gen == s.swapGen {
		s.pending = ""
	}
	s.swapMu.Unlock()
}

func (s *Session) rigFailed(gen uint64, err error) {
	s.mu.Lock()
	if !s.superseded(gen) {
		s.rigErr = err.Error()
	}
	s.mu.Unlock()
	s.clearPending(gen)
}

func displayLocation(location string) string {
	if location == "" {
		return rig.ProceduralName
	}
	return location
}

// Skeleton returns the active rig. Callers must not mutate it while the
// session is ticking.
func (s *Session) Skeleton() *rig.Skeleton {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skel
}

// Mapping returns the active bone mapping.
func (s *Session) Mapping() *bonemap.Mapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapping
}

// =============================================================================
// Introspection
// =============================================================================

// Status returns playback and rig state.
func (s *Session) Status() Status {
	s.swapMu.Lock()
	pending := s.pending
	s.swapMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	source := s.skel.Source
	if source == "" {
		source = s.skel.Name
	}
	return Status{
		ID:       s.id,
		Strategy: s.strategy.Name(),
		Playback: s.sched.Status(),
		Rig: RigStatus{
			Name:      s.skel.Name,
			Source:    source,
			Nodes:     s.skel.Len(),
			Resolved:  s.mapping.Len(),
			Coverage:  s.mapping.Report().Coverage,
			Pending:   pending,
			LastError: s.rigErr,
		},
		Ticks: s.ticks,
	}
}

// Diagnostics returns the mapping report and solver counters.
func (s *Session) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()

	skipped := make(map[string]map[string]int, len(s.skipped))
	for l, reasons := range s.skipped {
		m := make(map[string]int, len(reasons))
		for r, n := range reasons {
			m[r] = n
		}
		skipped[l.String()] = m
	}
	return Diagnostics{
		Mapping:    s.mapping.Report(),
		Skipped:    skipped,
		Solves:     s.solves,
		Failures:   s.fails,
		SolverDown: s.down,
	}
}
