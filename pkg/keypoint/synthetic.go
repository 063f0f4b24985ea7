package keypoint

import "math"

// standing is a neutral upright pose in capture coordinates (meters,
// origin between the hips, Y down).
var standing = [Count][3]float64{
	Nose:           {0, -0.62, -0.08},
	LeftEyeInner:   {0.015, -0.66, -0.07},
	LeftEye:        {0.03, -0.66, -0.07},
	LeftEyeOuter:   {0.045, -0.66, -0.06},
	RightEyeInner:  {-0.015, -0.66, -0.07},
	RightEye:       {-0.03, -0.66, -0.07},
	RightEyeOuter:  {-0.045, -0.66, -0.06},
	LeftEar:        {0.07, -0.64, 0},
	RightEar:       {-0.07, -0.64, 0},
	MouthLeft:      {0.02, -0.58, -0.07},
	MouthRight:     {-0.02, -0.58, -0.07},
	LeftShoulder:   {0.18, -0.45, 0},
	RightShoulder:  {-0.18, -0.45, 0},
	LeftElbow:      {0.2, -0.23, 0},
	RightElbow:     {-0.2, -0.23, 0},
	LeftWrist:      {0.21, -0.03, 0},
	RightWrist:     {-0.21, -0.03, 0},
	LeftPinky:      {0.22, 0.05, 0.01},
	RightPinky:     {-0.22, 0.05, 0.01},
	LeftIndex:      {0.21, 0.06, -0.01},
	RightIndex:     {-0.21, 0.06, -0.01},
	LeftThumb:      {0.2, 0.03, -0.02},
	RightThumb:     {-0.2, 0.03, -0.02},
	LeftHip:        {0.1, 0, 0},
	RightHip:       {-0.1, 0, 0},
	LeftKnee:       {0.1, 0.42, 0},
	RightKnee:      {-0.1, 0.42, 0},
	LeftAnkle:      {0.1, 0.82, 0},
	RightAnkle:     {-0.1, 0.82, 0},
	LeftHeel:       {0.1, 0.86, 0.05},
	RightHeel:      {-0.1, 0.86, 0.05},
	LeftFootIndex:  {0.1, 0.88, -0.1},
	RightFootIndex: {-0.1, 0.88, -0.1},
}

// StandingFrame returns a fully visible neutral pose.
func StandingFrame() Frame {
	var f Frame
	for i, p := range standing {
		f.World[i] = Keypoint{X: p[0], Y: p[1], Z: p[2], Visibility: 1}
		// Rough image projection for overlays.
		f.Image[i] = Keypoint{X: 0.5 + p[0]*0.5, Y: 0.5 + p[1]*0.5, Z: p[2], Visibility: 1}
	}
	f.Present = true
	f.HasImage = true
	return f
}

// WaveStream returns n frames of a left-arm wave at fps.
// The arm swings about the shoulder by up to amplitude radians.
func WaveStream(n int, fps, amplitude float64) *Stream {
	if fps <= 0 {
		fps = DefaultSampleRate
	}
	s := &Stream{
		Metadata: Metadata{FPS: fps, FrameCount: n, Width: 720, Height: 1280, SourceVideo: "synthetic"},
		Frames:   make([]Frame, n),
	}
	for i := range s.Frames {
		f := StandingFrame()
		f.Number = i
		f.Timestamp = float64(i) / fps
		angle := amplitude * math.Sin(2*math.Pi*f.Timestamp)
		swingArm(&f, angle)
		s.Frames[i] = f
	}
	return s
}

// swingArm rotates the left arm chain about the shoulder in the XY plane.
func swingArm(f *Frame, angle float64) {
	sx, sy := f.World[LeftShoulder].X, f.World[LeftShoulder].Y
	sin, cos := math.Sincos(angle)
	for _, i := range []int{LeftElbow, LeftWrist, LeftPinky, LeftIndex, LeftThumb} {
		dx, dy := f.World[i].X-sx, f.World[i].Y-sy
		f.World[i].X = sx + dx*cos - dy*sin
		f.World[i].Y = sy + dx*sin + dy*cos
		f.Image[i].X = 0.5 + f.World[i].X*0.5
		f.Image[i].Y = 0.5 + f.World[i].Y*0.5
	}
}
