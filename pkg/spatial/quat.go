// Package spatial provides the rotation math used by the solver and smoother.
//
// Quaternions are gonum quat.Number values; vectors are gonum r3.Vec.
package spatial

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon is the tolerance used for near-parallel and near-zero checks.
const Epsilon = 1e-9

// Quat is a rotation quaternion. Real is w; Imag, Jmag, Kmag are x, y, z.
type Quat quat.Number

// Identity returns the zero rotation.
func Identity() Quat {
	return Quat{Real: 1}
}

// FromAxisAngle returns the rotation of angle radians about axis.
func FromAxisAngle(axis r3.Vec, angle float64) Quat {
	n := r3.Norm(axis)
	if n < Epsilon {
		return Identity()
	}
	axis = r3.Scale(1/n, axis)
	s, c := math.Sincos(angle / 2)
	return Quat{Real: c, Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// FromUnitVectors returns the shortest-arc rotation taking from onto to.
// Both inputs are normalized first. Antiparallel inputs rotate half a turn
// about an axis orthogonal to from.
func FromUnitVectors(from, to r3.Vec) Quat {
	from, to = unit(from), unit(to)
	r := r3.Dot(from, to) + 1

	var q Quat
	if r < Epsilon {
		if math.Abs(from.X) > math.Abs(from.Z) {
			q = Quat{Real: 0, Imag: -from.Y, Jmag: from.X, Kmag: 0}
		} else {
			q = Quat{Real: 0, Imag: 0, Jmag: -from.Z, Kmag: from.Y}
		}
	} else {
		c := r3.Cross(from, to)
		q = Quat{Real: r, Imag: c.X, Jmag: c.Y, Kmag: c.Z}
	}
	return q.Normalize()
}

// FromEuler returns the rotation for intrinsic XYZ Euler angles in radians.
func FromEuler(x, y, z float64) Quat {
	s1, c1 := math.Sincos(x / 2)
	s2, c2 := math.Sincos(y / 2)
	s3, c3 := math.Sincos(z / 2)
	return Quat{
		Real: c1*c2*c3 - s1*s2*s3,
		Imag: s1*c2*c3 + c1*s2*s3,
		Jmag: c1*s2*c3 - s1*c2*s3,
		Kmag: c1*c2*s3 + s1*s2*c3,
	}
}

// Mul returns q*p: p applied first, then q.
func (q Quat) Mul(p Quat) Quat {
	return Quat(quat.Mul(quat.Number(q), quat.Number(p)))
}

// Inverse returns the inverse rotation.
func (q Quat) Inverse() Quat {
	if q.IsZero() {
		return Identity()
	}
	return Quat(quat.Inv(quat.Number(q)))
}

// Len returns the quaternion norm.
func (q Quat) Len() float64 {
	return quat.Abs(quat.Number(q))
}

// IsZero reports whether q is the zero quaternion (not a rotation).
func (q Quat) IsZero() bool {
	return q == Quat{}
}

// Normalize returns q scaled to unit length. The zero quaternion
// normalizes to the identity.
func (q Quat) Normalize() Quat {
	n := q.Len()
	if n < Epsilon {
		return Identity()
	}
	return Quat(quat.Scale(1/n, quat.Number(q)))
}

// Dot returns the 4D dot product.
func (q Quat) Dot(p Quat) float64 {
	return q.Real*p.Real + q.Imag*p.Imag + q.Jmag*p.Jmag + q.Kmag*p.Kmag
}

// Rotate applies q to v.
func (q Quat) Rotate(v r3.Vec) r3.Vec {
	return r3.Rotation(q.Normalize()).Rotate(v)
}

// AxisAngle decomposes q into a unit axis and an angle in [0, π].
func (q Quat) AxisAngle() (r3.Vec, float64) {
	q = q.Normalize()
	if q.Real < 0 {
		q = Quat(quat.Scale(-1, quat.Number(q)))
	}
	angle := 2 * math.Acos(clamp(q.Real, -1, 1))
	s := math.Sqrt(1 - q.Real*q.Real)
	if s < Epsilon {
		return r3.Vec{X: 1}, 0
	}
	return r3.Vec{X: q.Imag / s, Y: q.Jmag / s, Z: q.Kmag / s}, angle
}

// Angle returns the rotation angle between q and p in [0, π].
func Angle(q, p Quat) float64 {
	r := q.Normalize().Inverse().Mul(p.Normalize())
	v := math.Sqrt(r.Imag*r.Imag + r.Jmag*r.Jmag + r.Kmag*r.Kmag)
	return 2 * math.Atan2(v, math.Abs(r.Real))
}

// ApproxEqual reports whether q and p represent the same rotation within tol.
func ApproxEqual(q, p Quat, tol float64) bool {
	return Angle(q, p) <= tol
}

// Slerp interpolates from a to b along the shorter arc. t is clamped to [0, 1].
func Slerp(a, b Quat, t float64) Quat {
	t = clamp(t, 0, 1)
	if t == 0 {
		return a
	}
	if t == 1 {
		return b
	}
	a, b = a.Normalize(), b.Normalize()

	cos := a.Dot(b)
	if cos < 0 {
		b = Quat(quat.Scale(-1, quat.Number(b)))
		cos = -cos
	}

	// Nearly identical: linear blend is accurate and avoids dividing by sin≈0.
	if cos > 1-1e-6 {
		q := quat.Add(
			quat.Scale(1-t, quat.Number(a)),
			quat.Scale(t, quat.Number(b)),
		)
		return Quat(q).Normalize()
	}

	theta := math.Acos(cos)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	return Quat(quat.Add(quat.Scale(wa, quat.Number(a)), quat.Scale(wb, quat.Number(b))))
}

type wireQuat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// MarshalJSON encodes q as {x, y, z, w}.
func (q Quat) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireQuat{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real})
}

// UnmarshalJSON decodes {x, y, z, w}.
func (q *Quat) UnmarshalJSON(data []byte) error {
	var w wireQuat
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*q = Quat{Real: w.W, Imag: w.X, Jmag: w.Y, Kmag: w.Z}
	return nil
}
