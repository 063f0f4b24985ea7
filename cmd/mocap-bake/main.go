// mocap-bake: solves a pose stream offline and writes per-bone keyframes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/teslashibe/go-mocap/internal/config"
	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/animator"
	"github.com/teslashibe/go-mocap/pkg/bake"
	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/kinematics"
	"github.com/teslashibe/go-mocap/pkg/pose"
)

func main() {
	env, envErr := config.Load()

	var (
		stream    = flag.String("stream", env.Stream, "Pose stream file or URL")
		rigURL    = flag.String("rig", env.RigURL, "Rig file or URL (empty for the procedural figure)")
		out       = flag.String("out", "clip.json", "Output clip path")
		plotPath  = flag.String("plot", "", "Write a rotation chart (png, svg, pdf) to this path")
		bones     = flag.String("bones", "", "Comma-separated bones to plot (default all)")
		preset    = flag.String("preset", "default", "Tuning preset: "+fmt.Sprint(animator.Presets()))
		tuning    = flag.String("tuning", env.Tuning, "YAML file overriding solver and smoothing constants")
		solverURL = flag.String("solver", env.SolverURL, "External kinematics solver URL")
		smoothed  = flag.Bool("smoothed", false, "Apply temporal smoothing between frames")
		quiet     = flag.Bool("quiet", false, "Hide the progress bar")
		level     = flag.String("log-level", env.LogLevel, "Log level")
	)
	flag.Parse()

	log.Init(*level)
	logger := log.Component("bake")
	if envErr != nil {
		logger.Warn("ignoring unreadable .env", "error", envErr)
	}

	if *stream == "" {
		fmt.Fprintln(os.Stderr, "usage: mocap-bake -stream <file|url> [-rig <file|url>] [-out clip.json] [-plot curves.png]")
		os.Exit(2)
	}

	cfg, err := animator.Preset(*preset)
	if err == nil && *tuning != "" {
		var data []byte
		if data, err = os.ReadFile(*tuning); err == nil {
			cfg, err = animator.ParseConfig(cfg, data)
		}
	}
	if err != nil {
		logger.Error("invalid tuning", "error", err)
		os.Exit(1)
	}

	var kin pose.Kinematics
	if *solverURL != "" {
		kin = kinematics.NewRemote(*solverURL, log.Component("kinematics"))
		cfg.Pose.Strategy = pose.StrategyDelegated
	}

	var labels []bonemap.Label
	if *bones != "" {
		for _, name := range strings.Split(*bones, ",") {
			l, err := bonemap.ParseLabel(strings.TrimSpace(name))
			if err != nil {
				logger.Error("invalid bone", "error", err)
				os.Exit(1)
			}
			labels = append(labels, l)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := keypoint.Load(ctx, *stream)
	if err != nil {
		logger.Error("load stream", "stream", *stream, "error", err)
		os.Exit(1)
	}

	opts := bake.Options{
		Config:     cfg,
		Smoothed:   *smoothed,
		Rig:        *rigURL,
		Kinematics: kin,
	}
	if !*quiet {
		opts.Progress = os.Stderr
	}
	clip, err := bake.Bake(ctx, s, opts)
	if err != nil {
		logger.Error("bake failed", "error", err)
		os.Exit(1)
	}

	if err := clip.WriteFile(*out); err != nil {
		logger.Error("write clip", "error", err)
		os.Exit(1)
	}
	fmt.Printf("✅ %d frames, %d bones → %s\n", clip.Frames, len(clip.Bones), *out)

	if *plotPath != "" {
		if err := clip.SavePlot(*plotPath, labels...); err != nil {
			logger.Error("plot", "error", err)
			os.Exit(1)
		}
		fmt.Printf("📈 rotation chart → %s\n", *plotPath)
	}
}
