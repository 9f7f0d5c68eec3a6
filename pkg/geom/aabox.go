package geom

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// AABox is an axis aligned bounding box. A box with Min > Max on any axis is
// invalid (empty).
type AABox = sdf.Box3

// NewAABox returns the box spanning min and max.
func NewAABox(min, max v3.Vec) AABox {
	return AABox{Min: min, Max: max}
}

// EmptyAABox returns an inverted box that any Encapsulate call will replace.
func EmptyAABox() AABox {
	return AABox{Min: Splat(math.MaxFloat64), Max: Splat(-math.MaxFloat64)}
}

// IsValid reports whether b has Min <= Max on every axis.
func IsValid(b AABox) bool {
	return b.Min.X <= b.Max.X && b.Min.Y <= b.Max.Y && b.Min.Z <= b.Max.Z
}

// Encapsulate grows b to include p. An empty box becomes the point box at p.
func Encapsulate(b AABox, p v3.Vec) AABox {
	if !IsValid(b) {
		return AABox{Min: p, Max: p}
	}
	return b.Include(p)
}

// Union returns the smallest box containing a and b, ignoring invalid inputs.
func Union(a, b AABox) AABox {
	switch {
	case !IsValid(a):
		return b
	case !IsValid(b):
		return a
	}
	return a.Extend(b)
}

// Overlaps reports whether a and b intersect (touching counts).
func Overlaps(a, b AABox) bool {
	if !IsValid(a) || !IsValid(b) {
		return false
	}
	return a.Min.X <= b.Max.X && a.Max.X >= b.Min.X &&
		a.Min.Y <= b.Max.Y && a.Max.Y >= b.Min.Y &&
		a.Min.Z <= b.Max.Z && a.Max.Z >= b.Min.Z
}

// Contains reports whether p lies inside b (boundary inclusive).
func Contains(b AABox, p v3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ExpandBy grows b by e on every side.
func ExpandBy(b AABox, e v3.Vec) AABox {
	return AABox{Min: b.Min.Sub(e), Max: b.Max.Add(e)}
}

// Extent returns the half size of b.
func Extent(b AABox) v3.Vec {
	return b.Size().MulScalar(0.5)
}

// Scaled returns b scaled component-wise by s. Negative scale components
// swap the corresponding min and max.
func Scaled(b AABox, s v3.Vec) AABox {
	p, q := b.Min.Mul(s), b.Max.Mul(s)
	return AABox{Min: p.Min(q), Max: p.Max(q)}
}

// Transformed returns the axis aligned bounds of b after applying t.
func Transformed(b AABox, t Transform) AABox {
	if !IsValid(b) {
		return b
	}
	r := RotationMatrix(t.Rotation)
	center := t.Apply(b.Center())
	e := Extent(b)
	var ext [3]float64
	for row := 0; row < 3; row++ {
		ext[row] = math.Abs(r.At(row, 0))*e.X + math.Abs(r.At(row, 1))*e.Y + math.Abs(r.At(row, 2))*e.Z
	}
	half := v3.Vec{X: ext[0], Y: ext[1], Z: ext[2]}
	return AABox{Min: center.Sub(half), Max: center.Add(half)}
}

// ClosestPoint returns the point of b closest to p.
func ClosestPoint(b AABox, p v3.Vec) v3.Vec {
	return p.Max(b.Min).Min(b.Max)
}
