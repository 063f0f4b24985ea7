package overlay

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mocap/pkg/keypoint"
)

func TestConnectionsInRange(t *testing.T) {
	for _, c := range Connections {
		for _, i := range c {
			if i < 0 || i >= keypoint.Count {
				t.Errorf("connection %v out of range", c)
			}
		}
	}
	if len(Connections) != 35 {
		t.Errorf("expected 35 connections, got %d", len(Connections))
	}
}

func TestRenderJPEG(t *testing.T) {
	r := New(Config{Width: 320, Height: 240})
	f := keypoint.StandingFrame()

	data, err := r.Render(&f)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		t.Fatalf("expected JPEG header, got % x", data[:2])
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		t.Fatalf("IMDecode: %v", err)
	}
	defer img.Close()
	if img.Cols() != 320 || img.Rows() != 240 {
		t.Errorf("expected 320x240, got %dx%d", img.Cols(), img.Rows())
	}
}

func TestRenderNoLandmarks(t *testing.T) {
	r := New(DefaultConfig())
	if _, err := r.Render(nil); !errors.Is(err, ErrNoLandmarks) {
		t.Errorf("nil frame: expected ErrNoLandmarks, got %v", err)
	}
	if _, err := r.Render(&keypoint.Frame{}); !errors.Is(err, ErrNoLandmarks) {
		t.Errorf("empty frame: expected ErrNoLandmarks, got %v", err)
	}
}

func TestPointsImage(t *testing.T) {
	r := New(Config{Width: 100, Height: 200})
	f := keypoint.Frame{HasImage: true}
	f.Image[keypoint.Nose] = keypoint.Keypoint{X: 0.5, Y: 0.25, Visibility: 1}
	f.Image[keypoint.LeftWrist] = keypoint.Keypoint{X: 0.1, Y: 0.1, Visibility: 0.2}

	pts, ok := r.Points(&f)
	if !ok[keypoint.Nose] || pts[keypoint.Nose] != image.Pt(50, 50) {
		t.Errorf("nose: got %v ok=%v", pts[keypoint.Nose], ok[keypoint.Nose])
	}
	if ok[keypoint.LeftWrist] {
		t.Error("low visibility landmark should be skipped")
	}
}

func TestPointsWorldFallback(t *testing.T) {
	r := New(Config{Width: 200, Height: 200, WorldScale: 100})
	f := keypoint.Frame{Present: true}
	f.World[keypoint.LeftHip] = keypoint.Keypoint{X: 0.1, Y: 0.2, Visibility: 1}

	pts, ok := r.Points(&f)
	if !ok[keypoint.LeftHip] {
		t.Fatal("expected world landmark to project")
	}
	if pts[keypoint.LeftHip] != image.Pt(110, 120) {
		t.Errorf("expected (110,120), got %v", pts[keypoint.LeftHip])
	}
}

func TestLimbColor(t *testing.T) {
	r := New(DefaultConfig())
	cfg := r.Config()
	tests := []struct {
		c    Connection
		want string
	}{
		{Connection{0, 1}, "center"},
		{Connection{11, 12}, "center"},
		{Connection{11, 13}, "left"},
		{Connection{12, 14}, "right"},
		{Connection{27, 31}, "left"},
	}
	colors := map[string]any{"center": cfg.Center, "left": cfg.Left, "right": cfg.Right}
	for _, tt := range tests {
		if got := r.limbColor(tt.c); got != colors[tt.want] {
			t.Errorf("limbColor(%v) = %v, want %s", tt.c, got, tt.want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	r := New(Config{})
	cfg := r.Config()
	def := DefaultConfig()
	if cfg.Width != def.Width || cfg.Height != def.Height || cfg.Quality != def.Quality {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}
