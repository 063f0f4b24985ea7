package rig

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// Authored rest lengths of the procedural figure's capsules (meters).
const (
	TorsoLength    = 0.35
	NeckLength     = 0.1
	UpperArmLength = 0.22
	ForearmLength  = 0.20
	UpperLegLength = 0.35
	LowerLegLength = 0.34

	// DefaultRestLength applies to scaled segments with no authored length.
	DefaultRestLength = 0.25
)

// ProceduralName is the Source of the built-in skeleton.
const ProceduralName = "procedural"

// Procedural builds the built-in figure. Every segment hangs directly off
// an identity root, so local and world space coincide. Bones are named
// with canonical labels and carry no Chest.
func Procedural() *Skeleton {
	root := NewBone("Figure")

	seg := func(name string, length float64) *Bone {
		return NewBone(name).WithLength(length)
	}

	root.Add(
		seg("Hips", 0),
		seg("Spine", TorsoLength),
		seg("Neck", NeckLength),
		seg("Head", 0),
		seg("LeftShoulder", 0),
		seg("LeftUpperArm", UpperArmLength),
		seg("LeftLowerArm", ForearmLength),
		seg("LeftHand", 0),
		seg("RightShoulder", 0),
		seg("RightUpperArm", UpperArmLength),
		seg("RightLowerArm", ForearmLength),
		seg("RightHand", 0),
		seg("LeftUpperLeg", UpperLegLength),
		seg("LeftLowerLeg", LowerLegLength),
		seg("LeftFoot", 0),
		seg("RightUpperLeg", UpperLegLength),
		seg("RightLowerLeg", LowerLegLength),
		seg("RightFoot", 0),
	)

	s := New("Figure", root)
	s.Source = ProceduralName
	s.freeStanding = true
	return s
}

// Humanoid builds a connected test rig using the given bone names for
// hips, spine, neck, head and the left/right arm and leg chains.
// Offsets roughly match an adult figure standing at the origin.
func Humanoid(names HumanoidNames) *Skeleton {
	b := func(name string, x, y, z float64) *Bone {
		return NewBoneAt(name, r3.Vec{X: x, Y: y, Z: z}, spatial.Identity())
	}

	hips := b(names.Hips, 0, 1.0, 0)
	spine := b(names.Spine, 0, 0.1, 0)
	chest := b(names.Chest, 0, 0.15, 0)
	neck := b(names.Neck, 0, 0.2, 0)
	head := b(names.Head, 0, 0.1, 0)

	lShoulder := b(names.LeftShoulder, 0.05, 0.15, 0)
	lArm := b(names.LeftUpperArm, 0.12, 0, 0)
	lForeArm := b(names.LeftLowerArm, 0, UpperArmLength, 0)
	lHand := b(names.LeftHand, 0, ForearmLength, 0)

	rShoulder := b(names.RightShoulder, -0.05, 0.15, 0)
	rArm := b(names.RightUpperArm, -0.12, 0, 0)
	rForeArm := b(names.RightLowerArm, 0, UpperArmLength, 0)
	rHand := b(names.RightHand, 0, ForearmLength, 0)

	lUpLeg := b(names.LeftUpperLeg, 0.1, -0.05, 0)
	lLeg := b(names.LeftLowerLeg, 0, -UpperLegLength, 0)
	lFoot := b(names.LeftFoot, 0, -LowerLegLength, 0)

	rUpLeg := b(names.RightUpperLeg, -0.1, -0.05, 0)
	rLeg := b(names.RightLowerLeg, 0, -UpperLegLength, 0)
	rFoot := b(names.RightFoot, 0, -LowerLegLength, 0)

	lShoulder.Add(lArm.Add(lForeArm.Add(lHand)))
	rShoulder.Add(rArm.Add(rForeArm.Add(rHand)))
	neck.Add(head)
	chest.Add(neck, lShoulder, rShoulder)
	spine.Add(chest)
	lUpLeg.Add(lLeg.Add(lFoot))
	rUpLeg.Add(rLeg.Add(rFoot))
	hips.Add(spine, lUpLeg, rUpLeg)

	armature := NewBone(names.Root).Add(hips)
	return New(names.Root, armature)
}

// HumanoidNames names the bones created by Humanoid.
type HumanoidNames struct {
	Root          string
	Hips          string
	Spine         string
	Chest         string
	Neck          string
	Head          string
	LeftShoulder  string
	LeftUpperArm  string
	LeftLowerArm  string
	LeftHand      string
	RightShoulder string
	RightUpperArm string
	RightLowerArm string
	RightHand     string
	LeftUpperLeg  string
	LeftLowerLeg  string
	LeftFoot      string
	RightUpperLeg string
	RightLowerLeg string
	RightFoot     string
}

// MixamoNames is the naming used by Mixamo exports.
var MixamoNames = HumanoidNames{
	Root:          "Armature",
	Hips:          "mixamorig:Hips",
	Spine:         "mixamorig:Spine",
	Chest:         "mixamorig:Spine2",
	Neck:          "mixamorig:Neck",
	Head:          "mixamorig:Head",
	LeftShoulder:  "mixamorig:LeftShoulder",
	LeftUpperArm:  "mixamorig:LeftArm",
	LeftLowerArm:  "mixamorig:LeftForeArm",
	LeftHand:      "mixamorig:LeftHand",
	RightShoulder: "mixamorig:RightShoulder",
	RightUpperArm: "mixamorig:RightArm",
	RightLowerArm: "mixamorig:RightForeArm",
	RightHand:     "mixamorig:RightHand",
	LeftUpperLeg:  "mixamorig:LeftUpLeg",
	LeftLowerLeg:  "mixamorig:LeftLeg",
	LeftFoot:      "mixamorig:LeftFoot",
	RightUpperLeg: "mixamorig:RightUpLeg",
	RightLowerLeg: "mixamorig:RightLeg",
	RightFoot:     "mixamorig:RightFoot",
}
