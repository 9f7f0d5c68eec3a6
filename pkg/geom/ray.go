package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// RayInvDirection caches the reciprocal of a ray direction for repeated slab
// tests. Axes with a zero direction component are flagged so the slab test
// only checks whether the origin lies between the planes.
type RayInvDirection struct {
	Inv      v3.Vec
	Parallel [3]bool
}

// NewRayInvDirection precomputes the inverse of dir.
func NewRayInvDirection(dir v3.Vec) RayInvDirection {
	var r RayInvDirection
	for i := 0; i < 3; i++ {
		d := Component(dir, i)
		if math.Abs(d) < 1e-20 {
			r.Parallel[i] = true
			r.Inv = WithComponent(r.Inv, i, 0)
			continue
		}
		r.Inv = WithComponent(r.Inv, i, 1/d)
	}
	return r
}

// RayAABox returns the fraction at which the ray origin + t·dir enters box,
// 0 or less when the origin is inside, or NoHit when the ray line misses. The
// caller still has to compare the result against its own maximum fraction.
func RayAABox(origin v3.Vec, inv RayInvDirection, box AABox) float64 {
	if !IsValid(box) {
		return NoHit
	}
	tmin, tmax := -math.MaxFloat64, math.MaxFloat64
	for i := 0; i < 3; i++ {
		o := Component(origin, i)
		lo, hi := Component(box.Min, i), Component(box.Max, i)
		if inv.Parallel[i] {
			if o < lo || o > hi {
				return NoHit
			}
			continue
		}
		id := Component(inv.Inv, i)
		t1 := (lo - o) * id
		t2 := (hi - o) * id
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return NoHit
		}
	}
	if tmax < 0 {
		return NoHit
	}
	return tmin
}

// RayTriangle returns the fraction along dir at which the ray hits the
// triangle (either side), or NoHit.
func RayTriangle(origin, dir, v0, v1, v2 v3.Vec) float64 {
	const eps = 1e-12

	e1 := v1.Sub(v0)
	e2 := v2.Sub(v0)
	p := dir.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < eps {
		return NoHit
	}
	invDet := 1 / det
	s := origin.Sub(v0)
	u := s.Dot(p) * invDet
	if u < 0 || u > 1 {
		return NoHit
	}
	q := s.Cross(e1)
	v := dir.Dot(q) * invDet
	if v < 0 || u+v > 1 {
		return NoHit
	}
	t := e2.Dot(q) * invDet
	if t < 0 {
		return NoHit
	}
	return t
}

// TriangleNormal returns the unnormalized normal (v1-v0)×(v2-v0).
func TriangleNormal(v0, v1, v2 v3.Vec) v3.Vec {
	return v1.Sub(v0).Cross(v2.Sub(v0))
}
