// Package bake solves a whole stream offline into per-bone keyframe tracks.
package bake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"

	"github.com/cheggaaa/pb/v3"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/animator"
	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/rig"
	"github.com/teslashibe/go-mocap/pkg/smooth"
	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// progressTemplate matches the counters/bar/eta layout used by our CLIs.
const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.01f%%" "?"}} {{etime . "%s elapsed"}} {{rtime . "%s remain" "%s total" "???"}}`

// Key is one baked sample of a bone.
type Key struct {
	Frame    int          `json:"frame"`
	Time     float64      `json:"time"`
	Rotation spatial.Quat `json:"rotation"`
	Position [3]float64   `json:"position"`
}

// Clip is the baked result of a stream.
type Clip struct {
	FPS    float64                 `json:"fps"`
	Frames int                     `json:"frames"`
	Rig    string                  `json:"rig"`
	Bones  map[bonemap.Label][]Key `json:"bones"`
	// Skipped counts frames per label that kept the previous pose.
	Skipped map[bonemap.Label]int `json:"skipped,omitempty"`
}

// Options configures Bake.
type Options struct {
	Config animator.Config
	// Smoothed keeps Config.Smooth. By default every frame is baked
	// without temporal blending.
	Smoothed   bool
	Rig        string
	Loader     rig.Loader
	Kinematics pose.Kinematics
	// Progress receives a progress bar when non-nil.
	Progress io.Writer
	Logger   *slog.Logger
}

// Bake solves every frame of stream once, in order.
func Bake(ctx context.Context, stream *keypoint.Stream, opts Options) (*Clip, error) {
	if stream == nil || len(stream.Frames) == 0 {
		return nil, keypoint.ErrNoFrames
	}
	logger := log.Or(opts.Logger, "bake")

	cfg := opts.Config
	if !opts.Smoothed {
		cfg.Smooth = smooth.ImmediateConfig()
	}
	cfg.Playback.Loop = false

	sess, err := animator.New(animator.Options{
		Config:     cfg,
		Kinematics: opts.Kinematics,
		Loader:     opts.Loader,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if opts.Rig != "" {
		if err := sess.SwapRigSync(ctx, opts.Rig); err != nil {
			return nil, err
		}
	}
	if err := sess.LoadStream(stream); err != nil {
		return nil, err
	}

	n := len(stream.Frames)
	clip := &Clip{
		FPS:     stream.SampleRate(),
		Frames:  n,
		Rig:     sess.Status().Rig.Name,
		Bones:   make(map[bonemap.Label][]Key),
		Skipped: make(map[bonemap.Label]int),
	}

	var bar *pb.ProgressBar
	if opts.Progress != nil {
		bar = pb.ProgressBarTemplate(progressTemplate).New(n)
		bar.SetWriter(opts.Progress)
		bar.Set("prefix", "bake")
		bar.Start()
		defer bar.Finish()
	}

	sched := sess.Scheduler()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sched.SetCursor(float64(i))
		snap := sess.Tick()

		t := float64(i) / clip.FPS
		for _, b := range snap.Bones {
			clip.Bones[b.Label] = append(clip.Bones[b.Label], Key{
				Frame:    i,
				Time:     t,
				Rotation: b.Rotation,
				Position: b.Position,
			})
		}
		for _, name := range snap.Skipped {
			if l, err := bonemap.ParseLabel(name); err == nil {
				clip.Skipped[l]++
			}
		}
		if bar != nil {
			bar.Increment()
		}
	}

	logger.Info("bake complete", "frames", n, "bones", len(clip.Bones), "rig", clip.Rig)
	return clip, nil
}

// Labels returns the baked labels in skeleton order.
func (c *Clip) Labels() []bonemap.Label {
	out := make([]bonemap.Label, 0, len(c.Bones))
	for l := range c.Bones {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Angles returns the rotation angle in degrees of label per frame.
func (c *Clip) Angles(l bonemap.Label) []float64 {
	keys := c.Bones[l]
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = spatial.Angle(spatial.Identity(), k.Rotation) * 180 / math.Pi
	}
	return out
}

// WriteJSON encodes the clip.
func (c *Clip) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// WriteFile writes the clip as JSON to path.
func (c *Clip) WriteFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return c.WriteJSON(f)
}

// ReadClip decodes a clip written by WriteJSON.
func ReadClip(r io.Reader) (*Clip, error) {
	var c Clip
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode clip: %w", err)
	}
	return &c, nil
}
