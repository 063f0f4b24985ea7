package rig

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/teslashibe/go-mocap/pkg/spatial"
)

var unitScale = r3.Vec{X: 1, Y: 1, Z: 1}

// Bone is an in-memory Node.
type Bone struct {
	name     string
	parent   *Bone
	children []*Bone

	rotation spatial.Quat
	position r3.Vec
	scale    r3.Vec
	length   float64

	restRotation spatial.Quat
	restPosition r3.Vec
	restScale    r3.Vec
}

// NewBone creates a detached bone at the identity pose.
func NewBone(name string) *Bone {
	return NewBoneAt(name, r3.Vec{}, spatial.Identity())
}

// NewBoneAt creates a detached bone whose rest pose is (pos, rot).
func NewBoneAt(name string, pos r3.Vec, rot spatial.Quat) *Bone {
	if rot.IsZero() {
		rot = spatial.Identity()
	}
	return &Bone{
		name:         name,
		rotation:     rot,
		position:     pos,
		scale:        unitScale,
		restRotation: rot,
		restPosition: pos,
		restScale:    unitScale,
	}
}

// WithLength sets the rest length and returns b.
func (b *Bone) WithLength(l float64) *Bone {
	b.length = l
	return b
}

// WithScale sets the local and rest scale and returns b.
func (b *Bone) WithScale(s r3.Vec) *Bone {
	b.scale, b.restScale = s, s
	return b
}

// Add attaches children to b and returns b.
func (b *Bone) Add(children ...*Bone) *Bone {
	for _, c := range children {
		if c.parent != nil {
			c.parent.remove(c)
		}
		c.parent = b
		b.children = append(b.children, c)
	}
	return b
}

func (b *Bone) remove(c *Bone) {
	for i, x := range b.children {
		if x == c {
			b.children = append(b.children[:i], b.children[i+1:]...)
			return
		}
	}
}

func (b *Bone) Name() string { return b.name }

func (b *Bone) Parent() Node {
	if b.parent == nil {
		return nil
	}
	return b.parent
}

func (b *Bone) Children() []Node {
	out := make([]Node, len(b.children))
	for i, c := range b.children {
		out[i] = c
	}
	return out
}

func (b *Bone) Rotation() spatial.Quat     { return b.rotation }
func (b *Bone) SetRotation(q spatial.Quat) { b.rotation = q }
func (b *Bone) Position() r3.Vec           { return b.position }
func (b *Bone) SetPosition(p r3.Vec)       { b.position = p }
func (b *Bone) Scale() r3.Vec              { return b.scale }
func (b *Bone) SetScale(s r3.Vec)          { b.scale = s }

// RestLength implements Lengther.
func (b *Bone) RestLength() float64 { return b.length }

// ResetPose implements Resetter.
func (b *Bone) ResetPose() {
	b.rotation = b.restRotation
	b.position = b.restPosition
	b.scale = b.restScale
}

var (
	_ Node     = (*Bone)(nil)
	_ Lengther = (*Bone)(nil)
	_ Resetter = (*Bone)(nil)
)
