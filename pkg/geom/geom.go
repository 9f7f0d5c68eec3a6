// Package geom provides the 3D math used by the collision code: helpers on
// top of sdfx vectors and boxes, rigid transforms built on mathgl
// quaternions, and the ray/box/triangle primitives shared by every shape.
package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// NoHit is the fraction reported by ray tests that miss.
const NoHit = math.MaxFloat64

// Epsilon is the general purpose tolerance for near-zero checks.
const Epsilon = 1e-9

// Splat returns a vector with all components set to s.
func Splat(s float64) v3.Vec {
	return v3.Vec{X: s, Y: s, Z: s}
}

// AxisY is the unit Y axis.
var AxisY = v3.Vec{Y: 1}

// Component returns component i (0 = X, 1 = Y, 2 = Z) of v.
func Component(v v3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// WithComponent returns v with component i replaced by s.
func WithComponent(v v3.Vec, i int, s float64) v3.Vec {
	switch i {
	case 0:
		v.X = s
	case 1:
		v.Y = s
	default:
		v.Z = s
	}
	return v
}

// Reciprocal returns (1/x, 1/y, 1/z).
func Reciprocal(v v3.Vec) v3.Vec {
	return v3.Vec{X: 1 / v.X, Y: 1 / v.Y, Z: 1 / v.Z}
}

// IsNearZero reports whether |v|² is below tol².
func IsNearZero(v v3.Vec, tol float64) bool {
	return v.Length2() <= tol*tol
}

// IsUniform reports whether all components of v are equal within tol.
func IsUniform(v v3.Vec, tol float64) bool {
	return math.Abs(v.X-v.Y) <= tol && math.Abs(v.X-v.Z) <= tol
}

// NormalizedOr returns v normalized, or fallback when v is (near) zero.
func NormalizedOr(v, fallback v3.Vec) v3.Vec {
	if IsNearZero(v, Epsilon) {
		return fallback
	}
	return v.Normalize()
}

// Perpendicular returns a unit vector perpendicular to the unit vector n.
func Perpendicular(n v3.Vec) v3.Vec {
	if math.Abs(n.X) > math.Abs(n.Y) {
		return v3.Vec{X: n.Z, Z: -n.X}.Normalize()
	}
	return v3.Vec{Y: n.Z, Z: -n.Y}.Normalize()
}

// ToMgl converts an sdfx vector to a mathgl vector.
func ToMgl(v v3.Vec) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

// FromMgl converts a mathgl vector to an sdfx vector.
func FromMgl(v mgl64.Vec3) v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

// ApproxEqual reports whether a and b differ by at most tol per component.
func ApproxEqual(a, b v3.Vec, tol float64) bool {
	return math.Abs(a.X-b.X) <= tol && math.Abs(a.Y-b.Y) <= tol && math.Abs(a.Z-b.Z) <= tol
}
