// Package rig models the bone hierarchy a pose is applied to.
//
// Node is the contract a renderer's scene graph satisfies; Bone is the
// in-memory implementation used by the procedural rig, loaded rigs and tests.
package rig

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/spatial"
)

// Node is one joint of a hierarchy. Rotation, Position and Scale are local
// to the parent.
type Node interface {
	Name() string
	Parent() Node
	Children() []Node

	Rotation() spatial.Quat
	SetRotation(q spatial.Quat)
	Position() r3.Vec
	SetPosition(p r3.Vec)
	Scale() r3.Vec
	SetScale(s r3.Vec)
}

// Lengther is implemented by nodes that know their authored rest length
// along the rest axis. Zero means the node is not length-scaled.
type Lengther interface {
	RestLength() float64
}

// Resetter is implemented by nodes that can restore their rest pose.
type Resetter interface {
	ResetPose()
}

// WorldRotationer is implemented by nodes whose scene graph already knows
// their resolved world rotation, such as a renderer's bone objects.
type WorldRotationer interface {
	WorldRotation() spatial.Quat
}

// WorldRotation returns the world rotation of n. Nodes implementing
// WorldRotationer answer for themselves and their subtree; otherwise local
// rotations are composed from the root down.
func WorldRotation(n Node) spatial.Quat {
	if n == nil {
		return spatial.Identity()
	}
	if w, ok := n.(WorldRotationer); ok {
		return w.WorldRotation().Normalize()
	}
	return WorldRotation(n.Parent()).Mul(n.Rotation()).Normalize()
}

// WorldScale multiplies local scales from the root down to n.
func WorldScale(n Node) r3.Vec {
	s := r3.Vec{X: 1, Y: 1, Z: 1}
	for ; n != nil; n = n.Parent() {
		ns := n.Scale()
		s = r3.Vec{X: s.X * ns.X, Y: s.Y * ns.Y, Z: s.Z * ns.Z}
	}
	return s
}

// WorldPosition returns the origin of n in world space.
func WorldPosition(n Node) r3.Vec {
	if n == nil {
		return r3.Vec{}
	}
	p := n.Parent()
	if p == nil {
		return n.Position()
	}
	local := mulVec(WorldScale(p), n.Position())
	return r3.Add(WorldPosition(p), WorldRotation(p).Rotate(local))
}

// ToLocalRotation expresses a world rotation in the parent space of n.
func ToLocalRotation(n Node, world spatial.Quat) spatial.Quat {
	p := n.Parent()
	if p == nil {
		return world
	}
	return WorldRotation(p).Inverse().Mul(world).Normalize()
}

// ToLocalPosition expresses a world point in the parent space of n.
func ToLocalPosition(n Node, world r3.Vec) r3.Vec {
	p := n.Parent()
	if p == nil {
		return world
	}
	rel := r3.Sub(world, WorldPosition(p))
	local := WorldRotation(p).Inverse().Rotate(rel)
	return divVec(local, WorldScale(p))
}

func mulVec(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

func divVec(a, b r3.Vec) r3.Vec {
	div := func(x, y float64) float64 {
		if y == 0 {
			return x
		}
		return x / y
	}
	return r3.Vec{X: div(a.X, b.X), Y: div(a.Y, b.Y), Z: div(a.Z, b.Z)}
}
