// Package web serves the HTTP and WebSocket surface of a mocap session
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-mocap/internal/log"
	"github.com/teslashibe/go-mocap/pkg/animator"
	"github.com/teslashibe/go-mocap/pkg/control"
	"github.com/teslashibe/go-mocap/pkg/hub"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
	"github.com/teslashibe/go-mocap/pkg/protocol"
)

// DefaultOverlayEvery is the number of ticks between overlay frames
const DefaultOverlayEvery = 4

// FrameRenderer draws a keypoint frame as a JPEG
type FrameRenderer interface {
	Render(f *keypoint.Frame) ([]byte, error)
}

// Options configures a Server
type Options struct {
	Port      string
	StaticDir string // Served at / when set

	Session *animator.Session
	// Drive ticks the session from Start at its configured rate
	Drive bool

	Overlay      FrameRenderer // Nil disables /ws/overlay frames
	OverlayEvery int

	Logger *slog.Logger
}

// Server is the web server for one session
type Server struct {
	app     *fiber.App
	port    string
	session *animator.Session
	opts    Options
	log     *slog.Logger

	// Hubs for websocket broadcast (thread-safe!)
	poseHub    *hub.Hub
	overlayHub *hub.Hub
	control    *control.Hub

	overlayReq chan *keypoint.Frame
	ticks      atomic.Uint64
}

// NewServer creates a server for opts.Session
func NewServer(opts Options) *Server {
	if opts.OverlayEvery <= 0 {
		opts.OverlayEvery = DefaultOverlayEvery
	}
	logger := log.Or(opts.Logger, "web")

	s := &Server{
		port:       opts.Port,
		session:    opts.Session,
		opts:       opts,
		log:        logger,
		poseHub:    hub.New("pose", hub.WithReplay(), hub.WithLogger(logger)),
		overlayHub: hub.New("overlay", hub.WithLogger(logger)),
		control:    control.NewHub(opts.Session, logger),
		overlayReq: make(chan *keypoint.Frame, 1),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-mocap",
		DisableStartupMessage: true,
		BodyLimit:             64 << 20, // Inline pose streams
	})

	// CORS for local development
	app.Use(cors.New())

	// Static files
	if opts.StaticDir != "" {
		app.Static("/", opts.StaticDir)
	}

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/diagnostics", s.handleDiagnostics)
	api.Get("/feeds", s.handleFeeds)
	api.Post("/stream", s.handleStream)
	api.Post("/play", s.handleCommand(protocol.TypePlay))
	api.Post("/speed", s.handleCommand(protocol.TypeSpeed))
	api.Post("/seek", s.handleCommand(protocol.TypeSeek))
	api.Post("/loop", s.handleCommand(protocol.TypeLoop))
	api.Post("/rig", s.handleRig)
	s.control.RegisterAPIRoutes(api)

	// Control channel
	s.control.RegisterRoutes(app)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	// WebSocket feeds
	app.Get("/ws/pose", websocket.New(hub.Handler(s.poseHub)))
	app.Get("/ws/overlay", websocket.New(hub.Handler(s.overlayHub)))

	opts.Session.OnSnapshot(s.publish)

	s.app = app
	return s
}

// App returns the underlying Fiber app
func (s *Server) App() *fiber.App { return s.app }

// Start runs the hubs and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.log.Info("web server listening", "addr", ln.Addr().String())

	go s.poseHub.Run(ctx)
	go s.overlayHub.Run(ctx)
	if s.opts.Overlay != nil {
		go s.renderOverlays(ctx)
	}
	if s.opts.Drive {
		go func() {
			if err := s.session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Error("session loop stopped", "error", err)
			}
		}()
	}
	go func() {
		<-ctx.Done()
		s.app.Shutdown()
	}()

	return s.app.Listener(ln)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// PoseHub returns the pose feed hub
func (s *Server) PoseHub() *hub.Hub { return s.poseHub }

// OverlayHub returns the overlay feed hub
func (s *Server) OverlayHub() *hub.Hub { return s.overlayHub }

// ControlHub returns the controller hub
func (s *Server) ControlHub() *control.Hub { return s.control }

// publish runs on the ticking goroutine after every session tick
func (s *Server) publish(snap animator.Snapshot) {
	tick := s.ticks.Add(1)

	if s.poseHub.ClientCount() > 0 {
		msg, err := protocol.NewMessage(protocol.TypePose, snap)
		if err == nil {
			err = s.poseHub.BroadcastMessage(msg)
		}
		if err != nil {
			s.log.Debug("pose broadcast failed", "error", err)
		}
	}

	if s.opts.Overlay == nil || tick%uint64(s.opts.OverlayEvery) != 0 || s.overlayHub.ClientCount() == 0 {
		return
	}
	if f := s.session.Scheduler().Frame(); f != nil {
		select {
		case s.overlayReq <- f:
		default:
			// Renderer busy; skip this frame
		}
	}
}

// renderOverlays draws requested frames off the tick goroutine
func (s *Server) renderOverlays(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-s.overlayReq:
			jpeg, err := s.opts.Overlay.Render(f)
			if err != nil {
				s.log.Debug("overlay render failed", "frame", f.Number, "error", err)
				continue
			}
			s.overlayHub.BroadcastBinary(jpeg)
		}
	}
}

// rigDone reports a finished rig swap to controllers
func (s *Server) rigDone(err error) {
	var (
		msg  *protocol.Message
		merr error
	)
	if err != nil {
		msg, merr = protocol.NewErrorMessage(protocol.TypeSwapRig, err)
	} else {
		msg, merr = protocol.NewMessage(protocol.TypeStatus, s.session.Status())
	}
	if merr == nil {
		s.control.Broadcast(msg)
	}
}
