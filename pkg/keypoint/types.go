// Package keypoint defines pose keypoint frames and streams.
//
// Coordinates arrive in the capture convention (Y down, Z toward the
// camera). Frame.Point and Frame.Mid return vectors in the rig convention
// (Y up, Z away) and are the only place the axis flip happens.
package keypoint

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Count is the number of keypoints in a frame.
const Count = 33

// DefaultVisibilityThreshold marks keypoints below it as not visible.
const DefaultVisibilityThreshold = 0.5

// DefaultSampleRate is used when a stream carries no usable fps.
const DefaultSampleRate = 30.0

// Landmark indices.
const (
	Nose = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex
)

var names = [Count]string{
	"nose", "left_eye_inner", "left_eye", "left_eye_outer",
	"right_eye_inner", "right_eye", "right_eye_outer",
	"left_ear", "right_ear", "mouth_left", "mouth_right",
	"left_shoulder", "right_shoulder", "left_elbow", "right_elbow",
	"left_wrist", "right_wrist", "left_pinky", "right_pinky",
	"left_index", "right_index", "left_thumb", "right_thumb",
	"left_hip", "right_hip", "left_knee", "right_knee",
	"left_ankle", "right_ankle", "left_heel", "right_heel",
	"left_foot_index", "right_foot_index",
}

// Name returns the landmark name for index i, or "" when out of range.
func Name(i int) string {
	if i < 0 || i >= Count {
		return ""
	}
	return names[i]
}

// Keypoint is one tracked point in capture coordinates.
type Keypoint struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// Target converts the keypoint into rig coordinates (Y and Z negated).
func (k Keypoint) Target() r3.Vec {
	return r3.Vec{X: k.X, Y: -k.Y, Z: -k.Z}
}

// Valid reports whether all coordinates are finite.
func (k Keypoint) Valid() bool {
	for _, v := range [...]float64{k.X, k.Y, k.Z, k.Visibility} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Frame is one sample of the pose stream.
type Frame struct {
	Number    int
	Timestamp float64

	// World holds metric 3D landmarks, origin at the hips.
	World [Count]Keypoint
	// Image holds normalized 2D landmarks, used for overlays and
	// external solvers.
	Image [Count]Keypoint

	// Present is false when the source frame had no 3D landmarks.
	Present  bool
	HasImage bool
}

// Point returns keypoint i in rig coordinates.
func (f *Frame) Point(i int) r3.Vec {
	return f.World[i].Target()
}

// Mid returns the midpoint of keypoints i and j in rig coordinates.
func (f *Frame) Mid(i, j int) r3.Vec {
	return r3.Scale(0.5, r3.Add(f.Point(i), f.Point(j)))
}

// Visible reports whether keypoint i meets threshold.
func (f *Frame) Visible(i int, threshold float64) bool {
	return f.Present && f.World[i].Visibility >= threshold
}

// Metadata describes the capture a stream came from.
type Metadata struct {
	FPS         float64 `json:"fps"`
	FrameCount  int     `json:"frame_count,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
	SourceVideo string  `json:"source_video,omitempty"`
}

// Stream is an ordered sequence of frames at a nominal sample rate.
// A Stream is not modified after it is parsed.
type Stream struct {
	Metadata Metadata
	Frames   []Frame
}

// SampleRate returns the stream fps, or DefaultSampleRate when unset.
func (s *Stream) SampleRate() float64 {
	if s == nil || s.Metadata.FPS <= 0 || math.IsNaN(s.Metadata.FPS) || math.IsInf(s.Metadata.FPS, 0) {
		return DefaultSampleRate
	}
	return s.Metadata.FPS
}

// Len returns the number of frames.
func (s *Stream) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Frames)
}

// Duration returns the stream length in seconds.
func (s *Stream) Duration() float64 {
	return float64(s.Len()) / s.SampleRate()
}

// Frame returns frame i, or nil when out of range.
func (s *Stream) Frame(i int) *Frame {
	if s == nil || i < 0 || i >= len(s.Frames) {
		return nil
	}
	return &s.Frames[i]
}
