package geom

import (
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid transform: rotate by Rotation, then translate by
// Position. Rotation must be a unit quaternion.
type Transform struct {
	Rotation mgl64.Quat
	Position v3.Vec
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// NewTransform returns the transform rotating by rot then translating by pos.
func NewTransform(rot mgl64.Quat, pos v3.Vec) Transform {
	return Transform{Rotation: rot.Normalize(), Position: pos}
}

// Translation returns a pure translation.
func Translation(pos v3.Vec) Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Position: pos}
}

// Rotate rotates v by q.
func Rotate(q mgl64.Quat, v v3.Vec) v3.Vec {
	return FromMgl(q.Rotate(ToMgl(v)))
}

// RotationMatrix returns the 3x3 rotation matrix of q.
func RotationMatrix(q mgl64.Quat) mgl64.Mat3 {
	return q.Mat4().Mat3()
}

// IsIdentityRotation reports whether q represents no rotation within tol.
func IsIdentityRotation(q mgl64.Quat, tol float64) bool {
	return q.OrientationEqualThreshold(mgl64.QuatIdent(), tol)
}

// Apply transforms the point p.
func (t Transform) Apply(p v3.Vec) v3.Vec {
	return Rotate(t.Rotation, p).Add(t.Position)
}

// ApplyDirection rotates the direction d.
func (t Transform) ApplyDirection(d v3.Vec) v3.Vec {
	return Rotate(t.Rotation, d)
}

// InverseApply maps a point from the transformed space back.
func (t Transform) InverseApply(p v3.Vec) v3.Vec {
	return Rotate(t.Rotation.Conjugate(), p.Sub(t.Position))
}

// InverseApplyDirection maps a direction from the transformed space back.
func (t Transform) InverseApplyDirection(d v3.Vec) v3.Vec {
	return Rotate(t.Rotation.Conjugate(), d)
}

// Inverse returns the inverse transform.
func (t Transform) Inverse() Transform {
	inv := t.Rotation.Conjugate()
	return Transform{Rotation: inv, Position: Rotate(inv, t.Position).Neg()}
}

// Mul returns t * o: o is applied first.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Rotation: t.Rotation.Mul(o.Rotation).Normalize(),
		Position: t.Apply(o.Position),
	}
}

// PreTranslated returns t * Translation(v): v is expressed in local space.
func (t Transform) PreTranslated(v v3.Vec) Transform {
	return Transform{Rotation: t.Rotation, Position: t.Apply(v)}
}

// PostTranslated returns Translation(v) * t.
func (t Transform) PostTranslated(v v3.Vec) Transform {
	return Transform{Rotation: t.Rotation, Position: t.Position.Add(v)}
}

// Axis returns column i of the rotation, the local axis i in the parent
// space.
func (t Transform) Axis(i int) v3.Vec {
	return FromMgl(RotationMatrix(t.Rotation).Col(i))
}

// ApproxEqual reports whether both transforms match within tol.
func (t Transform) ApproxEqual(o Transform, tol float64) bool {
	return ApproxEqual(t.Position, o.Position, tol) && t.Rotation.OrientationEqualThreshold(o.Rotation, tol)
}

// QuatFromAxisAngle returns the rotation of angle radians around axis.
func QuatFromAxisAngle(axis v3.Vec, angle float64) mgl64.Quat {
	return mgl64.QuatRotate(angle, ToMgl(axis.Normalize()))
}

// RotateInertia returns R·I·Rᵀ.
func RotateInertia(inertia mgl64.Mat3, q mgl64.Quat) mgl64.Mat3 {
	r := RotationMatrix(q)
	return r.Mul3(inertia).Mul3(r.Transpose())
}
