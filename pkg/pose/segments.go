package pose

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/bonemap"
	"github.com/teslashibe/go-mocap/pkg/keypoint"
)

// Ref addresses a keypoint, or the midpoint of two when J >= 0.
type Ref struct {
	I, J int
}

// Point references a single keypoint.
func Point(i int) Ref { return Ref{I: i, J: -1} }

// Midpoint references the midpoint of keypoints i and j.
func Midpoint(i, j int) Ref { return Ref{I: i, J: j} }

var (
	hipMid      = Midpoint(keypoint.LeftHip, keypoint.RightHip)
	shoulderMid = Midpoint(keypoint.LeftShoulder, keypoint.RightShoulder)
)

// Resolve returns the referenced point in rig coordinates.
func (r Ref) Resolve(f *keypoint.Frame) r3.Vec {
	if r.J < 0 {
		return f.Point(r.I)
	}
	return f.Mid(r.I, r.J)
}

// Visible reports whether every referenced keypoint meets threshold.
func (r Ref) Visible(f *keypoint.Frame, threshold float64) bool {
	if !f.Visible(r.I, threshold) {
		return false
	}
	return r.J < 0 || f.Visible(r.J, threshold)
}

func (r Ref) mirror() Ref {
	out := Ref{I: mirrorIndex(r.I), J: r.J}
	if r.J >= 0 {
		out.J = mirrorIndex(r.J)
	}
	return out
}

// mirrorIndex swaps left and right landmark indices.
func mirrorIndex(i int) int {
	switch {
	case i >= keypoint.LeftEyeInner && i <= keypoint.RightEyeOuter:
		if i <= keypoint.LeftEyeOuter {
			return i + 3
		}
		return i - 3
	case i >= keypoint.LeftEar:
		if (i-keypoint.LeftEar)%2 == 0 {
			return i + 1
		}
		return i - 1
	}
	return i
}

// Anchor selects where a free-standing segment is placed.
type Anchor int

const (
	AnchorMid Anchor = iota
	AnchorProximal
	AnchorDistal
)

// Segment is the keypoint geometry driving one label.
type Segment struct {
	Label    bonemap.Label
	From, To Ref
	Anchor   Anchor
	// PositionOnly segments carry no rotation (the hips root).
	PositionOnly bool
}

// Segments is the default label→keypoint table, parents first. Terminal
// hands and feet orient toward the next point along the chain.
var Segments = []Segment{
	{Label: bonemap.Hips, From: hipMid, To: hipMid, Anchor: AnchorProximal, PositionOnly: true},
	{Label: bonemap.Spine, From: hipMid, To: shoulderMid},
	{Label: bonemap.Chest, From: hipMid, To: shoulderMid},
	{Label: bonemap.Neck, From: shoulderMid, To: Point(keypoint.Nose)},
	{Label: bonemap.Head, From: shoulderMid, To: Point(keypoint.Nose), Anchor: AnchorDistal},

	{Label: bonemap.LeftShoulder, From: shoulderMid, To: Point(keypoint.LeftShoulder), Anchor: AnchorDistal},
	{Label: bonemap.LeftUpperArm, From: Point(keypoint.LeftShoulder), To: Point(keypoint.LeftElbow)},
	{Label: bonemap.LeftLowerArm, From: Point(keypoint.LeftElbow), To: Point(keypoint.LeftWrist)},
	{Label: bonemap.LeftHand, From: Point(keypoint.LeftWrist), To: Midpoint(keypoint.LeftPinky, keypoint.LeftIndex), Anchor: AnchorProximal},

	{Label: bonemap.RightShoulder, From: shoulderMid, To: Point(keypoint.RightShoulder), Anchor: AnchorDistal},
	{Label: bonemap.RightUpperArm, From: Point(keypoint.RightShoulder), To: Point(keypoint.RightElbow)},
	{Label: bonemap.RightLowerArm, From: Point(keypoint.RightElbow), To: Point(keypoint.RightWrist)},
	{Label: bonemap.RightHand, From: Point(keypoint.RightWrist), To: Midpoint(keypoint.RightPinky, keypoint.RightIndex), Anchor: AnchorProximal},

	{Label: bonemap.LeftUpperLeg, From: Point(keypoint.LeftHip), To: Point(keypoint.LeftKnee)},
	{Label: bonemap.LeftLowerLeg, From: Point(keypoint.LeftKnee), To: Point(keypoint.LeftAnkle)},
	{Label: bonemap.LeftFoot, From: Point(keypoint.LeftAnkle), To: Point(keypoint.LeftFootIndex), Anchor: AnchorProximal},

	{Label: bonemap.RightUpperLeg, From: Point(keypoint.RightHip), To: Point(keypoint.RightKnee)},
	{Label: bonemap.RightLowerLeg, From: Point(keypoint.RightKnee), To: Point(keypoint.RightAnkle)},
	{Label: bonemap.RightFoot, From: Point(keypoint.RightAnkle), To: Point(keypoint.RightFootIndex), Anchor: AnchorProximal},
}

func (s Segment) mirror() Segment {
	s.From, s.To = s.From.mirror(), s.To.mirror()
	return s
}
