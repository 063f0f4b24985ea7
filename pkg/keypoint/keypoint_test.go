package keypoint

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
)

func floatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) < tolerance
}

func landmarksJSON(n int, withVisibility bool) string {
	parts := make([]string, n)
	for i := range parts {
		if withVisibility {
			parts[i] = fmt.Sprintf(`{"x":%d,"y":%d,"z":%d,"visibility":0.9}`, i, i+1, i+2)
		} else {
			parts[i] = fmt.Sprintf(`{"x":%d,"y":%d,"z":%d}`, i, i+1, i+2)
		}
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestTargetNegatesYAndZ(t *testing.T) {
	k := Keypoint{X: 1, Y: 2, Z: 3, Visibility: 1}
	v := k.Target()
	if v.X != 1 || v.Y != -2 || v.Z != -3 {
		t.Errorf("Target() = %+v, want {1 -2 -3}", v)
	}
}

func TestFrameMid(t *testing.T) {
	f := StandingFrame()
	mid := f.Mid(LeftHip, RightHip)
	if !floatEquals(mid.X, 0, 1e-9) || !floatEquals(mid.Y, 0, 1e-9) {
		t.Errorf("hip mid = %+v, want origin", mid)
	}

	// Shoulders are above the hips once flipped into rig space.
	sh := f.Mid(LeftShoulder, RightShoulder)
	if sh.Y <= 0 {
		t.Errorf("shoulder mid Y = %v, want > 0", sh.Y)
	}
}

func TestVisible(t *testing.T) {
	f := StandingFrame()
	f.World[Nose].Visibility = 0.49
	f.World[LeftEye].Visibility = 0.5

	if f.Visible(Nose, DefaultVisibilityThreshold) {
		t.Error("visibility 0.49 should be invisible")
	}
	if !f.Visible(LeftEye, DefaultVisibilityThreshold) {
		t.Error("visibility 0.5 should be visible")
	}

	f.Present = false
	if f.Visible(LeftEye, DefaultVisibilityThreshold) {
		t.Error("absent frame should have no visible keypoints")
	}
}

func TestParse(t *testing.T) {
	doc := `{"metadata":{"fps":24,"width":640,"height":480},"frames":[` +
		`{"frame_number":0,"timestamp":0,"landmarks_3d":` + landmarksJSON(Count, true) + `},` +
		`{"landmarks_3d":` + landmarksJSON(Count, false) + `,"landmarks_2d":` + landmarksJSON(Count, true) + `},` +
		`{"landmarks_3d":[]}]}`

	s, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	if s.SampleRate() != 24 {
		t.Errorf("SampleRate = %v, want 24", s.SampleRate())
	}
	if s.Metadata.FrameCount != 3 {
		t.Errorf("FrameCount = %d, want 3", s.Metadata.FrameCount)
	}

	f0 := s.Frame(0)
	if !f0.Present || f0.World[5].X != 5 || f0.World[5].Visibility != 0.9 {
		t.Errorf("frame 0 landmark 5 = %+v", f0.World[5])
	}

	f1 := s.Frame(1)
	if f1.World[0].Visibility != 1 {
		t.Errorf("missing visibility should default to 1, got %v", f1.World[0].Visibility)
	}
	if !f1.HasImage {
		t.Error("frame 1 should carry 2D landmarks")
	}
	if !floatEquals(f1.Timestamp, 1.0/24, 1e-9) {
		t.Errorf("derived timestamp = %v, want %v", f1.Timestamp, 1.0/24)
	}

	if s.Frame(2).Present {
		t.Error("frame with no landmarks should not be present")
	}
	if s.Frame(3) != nil || s.Frame(-1) != nil {
		t.Error("out of range frames should be nil")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"malformed", `{"frames":`, ErrInvalidStream},
		{"no frames", `{"metadata":{"fps":30},"frames":[]}`, ErrNoFrames},
		{"short frame", `{"frames":[{"landmarks_3d":` + landmarksJSON(10, true) + `}]}`, ErrFrameSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Errorf("Parse error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSampleRateFallback(t *testing.T) {
	s := &Stream{Frames: make([]Frame, 1)}
	if s.SampleRate() != DefaultSampleRate {
		t.Errorf("SampleRate = %v, want %v", s.SampleRate(), DefaultSampleRate)
	}
	var nilStream *Stream
	if nilStream.Len() != 0 {
		t.Error("nil stream should have zero length")
	}
}

func TestEncodeDecode(t *testing.T) {
	src := WaveStream(5, 30, 0.5)
	src.Frames[2].Present = false

	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Len() != 5 {
		t.Fatalf("Len = %d, want 5", got.Len())
	}
	if got.Frame(2).Present {
		t.Error("absent frame should stay absent")
	}
	a, b := src.Frame(4).World[LeftWrist], got.Frame(4).World[LeftWrist]
	if !floatEquals(a.X, b.X, 1e-9) || !floatEquals(a.Y, b.Y, 1e-9) {
		t.Errorf("wrist = %+v, want %+v", b, a)
	}
}

func TestWaveStreamMovesArm(t *testing.T) {
	s := WaveStream(30, 30, 1.0)
	first := s.Frame(0).Point(LeftWrist)
	quarter := s.Frame(7).Point(LeftWrist)
	if floatEquals(first.X, quarter.X, 1e-3) && floatEquals(first.Y, quarter.Y, 1e-3) {
		t.Error("wrist should move during the wave")
	}
	// Shoulder stays put.
	if s.Frame(0).Point(LeftShoulder) != s.Frame(7).Point(LeftShoulder) {
		t.Error("shoulder should not move")
	}
}

func TestName(t *testing.T) {
	if Name(LeftWrist) != "left_wrist" {
		t.Errorf("Name(LeftWrist) = %q", Name(LeftWrist))
	}
	if Name(Count) != "" {
		t.Error("out of range name should be empty")
	}
}
