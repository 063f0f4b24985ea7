// mocap-server: drives a rig from a pose stream and serves it over HTTP
// and websockets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-mocap/internal/config"
	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/animator"
	"github.com/teslashibe/go-mocap/pkg/kinematics"
	"github.com/teslashibe/go-mocap/pkg/overlay"
	"github.com/teslashibe/go-mocap/pkg/pose"
	"github.com/teslashibe/go-mocap/pkg/web"
)

var version = "0.1.0"

func main() {
	env, envErr := config.Load()

	var (
		port      = flag.String("port", env.Port, "HTTP server port")
		stream    = flag.String("stream", env.Stream, "Pose stream file or URL loaded at startup")
		rigURL    = flag.String("rig", env.RigURL, "Rig file or URL (empty for the procedural figure)")
		tuning    = flag.String("tuning", env.Tuning, "YAML file overriding solver and smoothing constants")
		preset    = flag.String("preset", "default", "Tuning preset: "+fmt.Sprint(animator.Presets()))
		solverURL = flag.String("solver", env.SolverURL, "External kinematics solver URL (enables delegated strategy)")
		static    = flag.String("static", "", "Directory served at /")
		noOverlay = flag.Bool("no-overlay", false, "Disable the keypoint overlay feed")
		play      = flag.Bool("play", true, "Start playing once the stream is loaded")
		level     = flag.String("log-level", env.LogLevel, "Log level: debug, info, warn, error")
	)
	flag.Parse()

	log.Init(*level)
	logger := log.Component("server")
	if envErr != nil {
		logger.Warn("ignoring unreadable .env", "error", envErr)
	}

	fmt.Println()
	fmt.Println("🕺 go-mocap v" + version)
	fmt.Println()

	cfg, err := animator.Preset(*preset)
	if err != nil {
		logger.Error("invalid preset", "preset", *preset, "error", err)
		os.Exit(1)
	}
	if *tuning != "" {
		data, err := os.ReadFile(*tuning)
		if err == nil {
			cfg, err = animator.ParseConfig(cfg, data)
		}
		if err != nil {
			logger.Error("tuning file rejected", "path", *tuning, "error", err)
			os.Exit(1)
		}
	}

	var kin pose.Kinematics
	if *solverURL != "" {
		kin = kinematics.NewRemote(*solverURL, log.Component("kinematics"))
		cfg.Pose.Strategy = pose.StrategyDelegated
	}

	sess, err := animator.New(animator.Options{Config: cfg, Kinematics: kin})
	if err != nil {
		logger.Error("create session", "error", err)
		os.Exit(1)
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *rigURL != "" {
		// Swaps complete in the background; the procedural rig animates meanwhile.
		go func() {
			if err := <-sess.SwapRig(ctx, *rigURL); err != nil && !errors.Is(err, animator.ErrSuperseded) {
				logger.Warn("initial rig not loaded", "rig", *rigURL, "error", err)
			}
		}()
	}

	if *stream != "" {
		if err := sess.LoadStreamFrom(ctx, *stream); err != nil {
			logger.Error("load stream", "stream", *stream, "error", err)
			os.Exit(1)
		}
		if *play {
			if err := sess.SetPlaying(true); err != nil {
				logger.Warn("start playback", "error", err)
			}
		}
	}

	opts := web.Options{
		Port:      *port,
		StaticDir: *static,
		Session:   sess,
		Drive:     true,
	}
	if !*noOverlay {
		opts.Overlay = overlay.New(overlay.DefaultConfig())
	}
	server := web.NewServer(opts)

	logger.Info("listening",
		"http", fmt.Sprintf("http://localhost:%s/api/status", *port),
		"pose", fmt.Sprintf("ws://localhost:%s/ws/pose", *port),
		"control", fmt.Sprintf("ws://localhost:%s/ws/control", *port),
	)

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
	fmt.Println("\n👋 Shutting down...")
}
