// Package overlay draws keypoint frames onto JPEG images for the overlay feed.
package overlay

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-mocap/pkg/keypoint"
)

// ErrNoLandmarks is returned for frames without any landmarks to draw.
var ErrNoLandmarks = errors.New("overlay: frame has no landmarks")

// Connection joins two landmark indices.
type Connection [2]int

// Connections lists the limbs drawn between landmarks.
var Connections = []Connection{
	// face
	{0, 1}, {1, 2}, {2, 3}, {3, 7}, {0, 4}, {4, 5}, {5, 6}, {6, 8}, {9, 10},
	// torso
	{11, 12}, {11, 23}, {12, 24}, {23, 24},
	// left arm
	{11, 13}, {13, 15}, {15, 17}, {15, 19}, {15, 21}, {17, 19},
	// right arm
	{12, 14}, {14, 16}, {16, 18}, {16, 20}, {16, 22}, {18, 20},
	// left leg
	{23, 25}, {25, 27}, {27, 29}, {27, 31}, {29, 31},
	// right leg
	{24, 26}, {26, 28}, {28, 30}, {28, 32}, {30, 32},
}

// Config controls overlay appearance.
type Config struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	LineThickness int     `yaml:"line_thickness"`
	JointRadius   int     `yaml:"joint_radius"`
	MinVisibility float64 `yaml:"min_visibility"`
	// WorldScale is pixels per meter when projecting world landmarks.
	WorldScale float64 `yaml:"world_scale"`
	Quality    int     `yaml:"quality"`
	Label      bool    `yaml:"label"`

	Background color.RGBA `yaml:"-"`
	Left       color.RGBA `yaml:"-"`
	Right      color.RGBA `yaml:"-"`
	Center     color.RGBA `yaml:"-"`
	Joint      color.RGBA `yaml:"-"`
}

// DefaultConfig returns a 640x480 overlay.
func DefaultConfig() Config {
	return Config{
		Width:         640,
		Height:        480,
		LineThickness: 2,
		JointRadius:   3,
		MinVisibility: keypoint.DefaultVisibilityThreshold,
		WorldScale:    200,
		Quality:       80,
		Label:         true,
		Background:    color.RGBA{R: 16, G: 16, B: 24, A: 255},
		Left:          color.RGBA{R: 0, G: 200, B: 255, A: 255},
		Right:         color.RGBA{R: 255, G: 140, B: 0, A: 255},
		Center:        color.RGBA{R: 220, G: 220, B: 220, A: 255},
		Joint:         color.RGBA{R: 0, G: 255, B: 120, A: 255},
	}
}

// Renderer draws frames with gocv. It is safe for concurrent use.
type Renderer struct {
	mu     sync.Mutex
	config Config
}

// New creates a renderer, filling zero fields from DefaultConfig.
func New(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = def.Width, def.Height
	}
	if cfg.LineThickness <= 0 {
		cfg.LineThickness = def.LineThickness
	}
	if cfg.JointRadius <= 0 {
		cfg.JointRadius = def.JointRadius
	}
	if cfg.MinVisibility <= 0 {
		cfg.MinVisibility = def.MinVisibility
	}
	if cfg.WorldScale <= 0 {
		cfg.WorldScale = def.WorldScale
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = def.Quality
	}
	if cfg.Background == (color.RGBA{}) {
		cfg.Background = def.Background
	}
	if cfg.Left == (color.RGBA{}) {
		cfg.Left, cfg.Right, cfg.Center, cfg.Joint = def.Left, def.Right, def.Center, def.Joint
	}
	return &Renderer{config: cfg}
}

// Config returns the renderer configuration.
func (r *Renderer) Config() Config {
	return r.config
}

// Points projects the landmarks of f to pixel coordinates. Entries for
// landmarks below MinVisibility are reported as not ok.
func (r *Renderer) Points(f *keypoint.Frame) (pts [keypoint.Count]image.Point, ok [keypoint.Count]bool) {
	cfg := r.config
	for i := 0; i < keypoint.Count; i++ {
		var k keypoint.Keypoint
		var x, y float64
		switch {
		case f.HasImage:
			k = f.Image[i]
			x, y = k.X*float64(cfg.Width), k.Y*float64(cfg.Height)
		case f.Present:
			// world origin sits at the hips; Y already points down
			k = f.World[i]
			x = float64(cfg.Width)/2 + k.X*cfg.WorldScale
			y = float64(cfg.Height)/2 + k.Y*cfg.WorldScale
		default:
			continue
		}
		if !k.Valid() || k.Visibility < cfg.MinVisibility {
			continue
		}
		if math.Abs(x) > 1e6 || math.Abs(y) > 1e6 {
			continue
		}
		pts[i] = image.Pt(int(math.Round(x)), int(math.Round(y)))
		ok[i] = true
	}
	return pts, ok
}

// Render draws f and returns the JPEG bytes.
func (r *Renderer) Render(f *keypoint.Frame) ([]byte, error) {
	if f == nil || (!f.Present && !f.HasImage) {
		return nil, ErrNoLandmarks
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg := r.config
	bg := gocv.NewScalar(float64(cfg.Background.B), float64(cfg.Background.G), float64(cfg.Background.R), 0)
	img := gocv.NewMatWithSizeFromScalar(bg, cfg.Height, cfg.Width, gocv.MatTypeCV8UC3)
	defer img.Close()

	pts, ok := r.Points(f)

	for _, c := range Connections {
		a, b := c[0], c[1]
		if !ok[a] || !ok[b] {
			continue
		}
		gocv.Line(&img, pts[a], pts[b], r.limbColor(c), cfg.LineThickness)
	}
	for i := 0; i < keypoint.Count; i++ {
		if ok[i] {
			gocv.Circle(&img, pts[i], cfg.JointRadius, cfg.Joint, -1)
		}
	}
	if cfg.Label {
		gocv.PutText(&img, fmt.Sprintf("frame %d", f.Number), image.Pt(8, 20),
			gocv.FontHersheySimplex, 0.5, cfg.Center, 1)
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// limbColor picks a side color from the landmark parity: MediaPipe places
// left landmarks on odd indices from the shoulders down.
func (r *Renderer) limbColor(c Connection) color.RGBA {
	a, b := c[0], c[1]
	if a < keypoint.LeftShoulder || b < keypoint.LeftShoulder {
		return r.config.Center
	}
	switch {
	case a%2 == 1 && b%2 == 1:
		return r.config.Left
	case a%2 == 0 && b%2 == 0:
		return r.config.Right
	default:
		return r.config.Center
	}
}
