package keypoint

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/teslashibe/go-mocap/internal/httpc"
)

type wireKeypoint struct {
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	Z          float64  `json:"z"`
	Visibility *float64 `json:"visibility,omitempty"`
}

type wireFrame struct {
	FrameNumber *int           `json:"frame_number,omitempty"`
	Timestamp   *float64       `json:"timestamp,omitempty"`
	Landmarks3D []wireKeypoint `json:"landmarks_3d"`
	Landmarks2D []wireKeypoint `json:"landmarks_2d,omitempty"`
}

type wireStream struct {
	Metadata *Metadata   `json:"metadata"`
	Frames   []wireFrame `json:"frames"`
}

// Parse decodes a stream document.
func Parse(data []byte) (*Stream, error) {
	var w wireStream
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}
	return fromWire(&w)
}

// Decode reads a stream document from r.
func Decode(r io.Reader) (*Stream, error) {
	var w wireStream
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStream, err)
	}
	return fromWire(&w)
}

func fromWire(w *wireStream) (*Stream, error) {
	if len(w.Frames) == 0 {
		return nil, ErrNoFrames
	}

	s := &Stream{Frames: make([]Frame, len(w.Frames))}
	if w.Metadata != nil {
		s.Metadata = *w.Metadata
	}

	for i, wf := range w.Frames {
		f := &s.Frames[i]
		f.Number = i
		if wf.FrameNumber != nil {
			f.Number = *wf.FrameNumber
		}
		if wf.Timestamp != nil {
			f.Timestamp = *wf.Timestamp
		} else {
			f.Timestamp = float64(i) / s.SampleRate()
		}

		switch len(wf.Landmarks3D) {
		case 0:
			// No detection for this frame; solving it is a no-op.
		case Count:
			copyKeypoints(&f.World, wf.Landmarks3D)
			f.Present = true
		default:
			return nil, fmt.Errorf("%w: frame %d has %d", ErrFrameSize, i, len(wf.Landmarks3D))
		}

		if len(wf.Landmarks2D) == Count {
			copyKeypoints(&f.Image, wf.Landmarks2D)
			f.HasImage = true
		}
	}

	if s.Metadata.FrameCount == 0 {
		s.Metadata.FrameCount = len(s.Frames)
	}
	return s, nil
}

func copyKeypoints(dst *[Count]Keypoint, src []wireKeypoint) {
	for i, k := range src {
		vis := 1.0
		if k.Visibility != nil {
			vis = *k.Visibility
		}
		dst[i] = Keypoint{X: k.X, Y: k.Y, Z: k.Z, Visibility: vis}
	}
}

// Encode writes s in the stream document format.
func Encode(w io.Writer, s *Stream) error {
	out := wireStream{
		Metadata: &s.Metadata,
		Frames:   make([]wireFrame, len(s.Frames)),
	}
	for i := range s.Frames {
		f := &s.Frames[i]
		n, ts := f.Number, f.Timestamp
		wf := wireFrame{FrameNumber: &n, Timestamp: &ts, Landmarks3D: []wireKeypoint{}}
		if f.Present {
			wf.Landmarks3D = toWire(&f.World)
		}
		if f.HasImage {
			wf.Landmarks2D = toWire(&f.Image)
		}
		out.Frames[i] = wf
	}
	enc := json.NewEncoder(w)
	return enc.Encode(&out)
}

func toWire(src *[Count]Keypoint) []wireKeypoint {
	out := make([]wireKeypoint, Count)
	for i, k := range src {
		v := k.Visibility
		out[i] = wireKeypoint{X: k.X, Y: k.Y, Z: k.Z, Visibility: &v}
	}
	return out
}

// LoadFile reads a stream document from disk.
func LoadFile(path string) (*Stream, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return s, nil
}

// Fetch downloads a stream document over HTTP.
func Fetch(ctx context.Context, url string) (*Stream, error) {
	data, err := httpc.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stream: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return s, nil
}

// Load dispatches to Fetch for http(s) URLs and LoadFile otherwise.
func Load(ctx context.Context, location string) (*Stream, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return Fetch(ctx, location)
	}
	return LoadFile(location)
}
