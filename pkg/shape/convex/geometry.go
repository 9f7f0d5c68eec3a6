package convex

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Kind selects the primitive a Geometry describes.
type Kind uint8

const (
	KindSphere Kind = iota
	KindBox
	KindTriangle
)

// Geometry is a convex primitive placed in some space: a sphere, an
// oriented box or a triangle.
type Geometry struct {
	Kind   Kind
	Center v3.Vec
	// Axes and Half describe a box.
	Axes [3]v3.Vec
	Half v3.Vec
	// Radius describes a sphere.
	Radius float64
	// Verts describe a triangle.
	Verts [3]v3.Vec
}

// SphereGeometry returns a sphere around center.
func SphereGeometry(center v3.Vec, radius float64) Geometry {
	return Geometry{Kind: KindSphere, Center: center, Radius: radius}
}

// BoxGeometry returns a box with half extents half placed by t.
func BoxGeometry(t geom.Transform, half v3.Vec) Geometry {
	return Geometry{
		Kind:   KindBox,
		Center: t.Position,
		Axes:   [3]v3.Vec{t.Axis(0), t.Axis(1), t.Axis(2)},
		Half:   half,
	}
}

// TriangleGeometry returns the triangle (v0, v1, v2).
func TriangleGeometry(v0, v1, v2 v3.Vec) Geometry {
	return Geometry{
		Kind:   KindTriangle,
		Center: v0.Add(v1).Add(v2).MulScalar(1.0 / 3.0),
		Verts:  [3]v3.Vec{v0, v1, v2},
	}
}

// Translated returns g moved by d.
func (g Geometry) Translated(d v3.Vec) Geometry {
	g.Center = g.Center.Add(d)
	for i := range g.Verts {
		g.Verts[i] = g.Verts[i].Add(d)
	}
	return g
}

func (g Geometry) vertices() []v3.Vec {
	switch g.Kind {
	case KindBox:
		out := make([]v3.Vec, 0, 8)
		for i := 0; i < 8; i++ {
			p := g.Center
			for a := 0; a < 3; a++ {
				h := geom.Component(g.Half, a)
				if i&(1<<a) == 0 {
					h = -h
				}
				p = p.Add(g.Axes[a].MulScalar(h))
			}
			out = append(out, p)
		}
		return out
	case KindTriangle:
		return g.Verts[:]
	}
	return []v3.Vec{g.Center}
}

// Support returns the point of g furthest along dir.
func (g Geometry) Support(dir v3.Vec) v3.Vec {
	if g.Kind == KindSphere {
		return g.Center.Add(geom.NormalizedOr(dir, geom.AxisY).MulScalar(g.Radius))
	}
	best, bestDot := g.Center, -math.MaxFloat64
	for _, v := range g.vertices() {
		if d := v.Dot(dir); d > bestDot {
			best, bestDot = v, d
		}
	}
	return best
}

// Project returns the interval g covers on the unit axis.
func (g Geometry) Project(axis v3.Vec) (lo, hi float64) {
	switch g.Kind {
	case KindSphere:
		c := g.Center.Dot(axis)
		return c - g.Radius, c + g.Radius
	case KindBox:
		c := g.Center.Dot(axis)
		r := g.Half.X*math.Abs(g.Axes[0].Dot(axis)) + g.Half.Y*math.Abs(g.Axes[1].Dot(axis)) + g.Half.Z*math.Abs(g.Axes[2].Dot(axis))
		return c - r, c + r
	}
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, v := range g.Verts {
		d := v.Dot(axis)
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}
	return lo, hi
}

// Bounds returns the axis aligned bounds of g.
func (g Geometry) Bounds() geom.AABox {
	var lo, hi [3]float64
	for i := 0; i < 3; i++ {
		lo[i], hi[i] = g.Project(geom.WithComponent(v3.Vec{}, i, 1))
	}
	return geom.NewAABox(v3.Vec{X: lo[0], Y: lo[1], Z: lo[2]}, v3.Vec{X: hi[0], Y: hi[1], Z: hi[2]})
}

// Normal returns the unit normal of a triangle, (v1-v0)×(v2-v0) normalized.
func (g Geometry) Normal() v3.Vec {
	return geom.NormalizedOr(geom.TriangleNormal(g.Verts[0], g.Verts[1], g.Verts[2]), geom.AxisY)
}

func (g Geometry) faceNormals() []v3.Vec {
	switch g.Kind {
	case KindBox:
		return g.Axes[:]
	case KindTriangle:
		return []v3.Vec{g.Normal()}
	}
	return nil
}

func (g Geometry) edgeDirs() []v3.Vec {
	switch g.Kind {
	case KindBox:
		return g.Axes[:]
	case KindTriangle:
		return []v3.Vec{g.Verts[1].Sub(g.Verts[0]), g.Verts[2].Sub(g.Verts[1]), g.Verts[0].Sub(g.Verts[2])}
	}
	return nil
}

// closestPoint returns the point of a box or triangle closest to p and
// whether p lies inside a box.
func (g Geometry) closestPoint(p v3.Vec) (v3.Vec, bool) {
	if g.Kind == KindTriangle {
		return geom.ClosestPointOnTriangle(p, g.Verts[0], g.Verts[1], g.Verts[2]), false
	}
	d := p.Sub(g.Center)
	q := g.Center
	inside := true
	for i := 0; i < 3; i++ {
		l := d.Dot(g.Axes[i])
		h := geom.Component(g.Half, i)
		if l > h {
			l, inside = h, false
		} else if l < -h {
			l, inside = -h, false
		}
		q = q.Add(g.Axes[i].MulScalar(l))
	}
	return q, inside
}

// escape returns the outward normal of the face of g nearest to the
// interior point p and the distance to that face.
func (g Geometry) escape(p v3.Vec) (v3.Vec, float64) {
	if g.Kind == KindTriangle {
		return g.Normal(), 0
	}
	d := p.Sub(g.Center)
	best, bestDist := g.Axes[0], math.MaxFloat64
	for i := 0; i < 3; i++ {
		l := d.Dot(g.Axes[i])
		dist := geom.Component(g.Half, i) - math.Abs(l)
		if dist < bestDist {
			bestDist = dist
			if l < 0 {
				best = g.Axes[i].Neg()
			} else {
				best = g.Axes[i]
			}
		}
	}
	return best, bestDist
}

// feature returns the centroid of the vertices of g that are furthest along
// dir and how many there are: 1 for a vertex, 2 for an edge, more for a
// face.
func (g Geometry) feature(dir v3.Vec) (v3.Vec, int) {
	verts := g.vertices()
	lo, hi := math.MaxFloat64, -math.MaxFloat64
	for _, v := range verts {
		d := v.Dot(dir)
		lo, hi = math.Min(lo, d), math.Max(hi, d)
	}
	tol := 1e-6 * (1 + hi - lo)
	var sum v3.Vec
	n := 0
	for _, v := range verts {
		if v.Dot(dir) >= hi-tol {
			sum = sum.Add(v)
			n++
		}
	}
	return sum.DivScalar(float64(n)), n
}

// Penetration is the result of Penetrate: the signed distance between two
// convex primitives, the unit axis from A towards B and the closest (or
// deepest) point on each.
type Penetration struct {
	Separation float64
	Axis       v3.Vec
	PointA     v3.Vec
	PointB     v3.Vec
}

func (p Penetration) swapped() Penetration {
	return Penetration{Separation: p.Separation, Axis: p.Axis.Neg(), PointA: p.PointB, PointB: p.PointA}
}

// Penetrate computes the separation of a and b. A negative separation is a
// penetration depth. Swapping the arguments negates the axis and swaps the
// points.
func Penetrate(a, b Geometry) Penetration {
	switch {
	case a.Kind == KindSphere && b.Kind == KindSphere:
		return sphereVsSphere(a, b)
	case a.Kind == KindSphere:
		return sphereVsPolytope(a, b)
	case b.Kind == KindSphere:
		return sphereVsPolytope(b, a).swapped()
	}
	return polytopeVsPolytope(a, b)
}

func sphereVsSphere(a, b Geometry) Penetration {
	d := b.Center.Sub(a.Center)
	axis := geom.NormalizedOr(d, geom.AxisY)
	return Penetration{
		Separation: d.Length() - a.Radius - b.Radius,
		Axis:       axis,
		PointA:     a.Center.Add(axis.MulScalar(a.Radius)),
		PointB:     b.Center.Sub(axis.MulScalar(b.Radius)),
	}
}

func sphereVsPolytope(s, p Geometry) Penetration {
	q, inside := p.closestPoint(s.Center)
	d := q.Sub(s.Center)
	if dist := d.Length(); !inside && dist > geom.Epsilon {
		axis := d.DivScalar(dist)
		return Penetration{
			Separation: dist - s.Radius,
			Axis:       axis,
			PointA:     s.Center.Add(axis.MulScalar(s.Radius)),
			PointB:     q,
		}
	}
	n, depth := p.escape(s.Center)
	axis := n.Neg()
	return Penetration{
		Separation: -(depth + s.Radius),
		Axis:       axis,
		PointA:     s.Center.Add(axis.MulScalar(s.Radius)),
		PointB:     s.Center.Add(n.MulScalar(depth)),
	}
}

// edgeAxisTolerance keeps face axes when an edge cross product separates
// by the same amount.
const edgeAxisTolerance = 1e-6

func polytopeVsPolytope(a, b Geometry) Penetration {
	best := -math.MaxFloat64
	bestAxis := geom.AxisY
	test := func(l v3.Vec, tolerance float64) {
		n := l.Length()
		if n < 1e-9 {
			return
		}
		l = l.DivScalar(n)
		aLo, aHi := a.Project(l)
		bLo, bHi := b.Project(l)
		sep, axis := bLo-aHi, l
		if s := aLo - bHi; s > sep {
			sep, axis = s, l.Neg()
		}
		if sep > best+tolerance {
			best, bestAxis = sep, axis
		}
	}
	for _, n := range a.faceNormals() {
		test(n, 0)
	}
	for _, n := range b.faceNormals() {
		test(n, 0)
	}
	for _, ea := range a.edgeDirs() {
		for _, eb := range b.edgeDirs() {
			test(ea.Cross(eb), edgeAxisTolerance)
		}
	}

	pa, na := a.feature(bestAxis)
	pb, nb := b.feature(bestAxis.Neg())
	shift := bestAxis.MulScalar(best)
	var pointA, pointB v3.Vec
	switch {
	case na < nb:
		pointA, pointB = pa, pa.Add(shift)
	case nb < na:
		pointA, pointB = pb.Sub(shift), pb
	default:
		pointB = pb.Add(pa.Add(shift)).MulScalar(0.5)
		pointA = pointB.Sub(shift)
	}
	return Penetration{Separation: best, Axis: bestAxis, PointA: pointA, PointB: pointB}
}

const (
	maxSweepIterations = 64
	sweepTolerance     = 1e-6
)

// Sweep moves a along dir and returns the first fraction in [0, maxFraction]
// at which it touches b, with the penetration at that fraction. Shapes that
// overlap at the start hit at fraction 0.
func Sweep(a Geometry, dir v3.Vec, b Geometry, maxFraction float64) (float64, Penetration, bool) {
	p := Penetrate(a, b)
	if p.Separation <= 0 {
		return 0, p, true
	}
	t := 0.0
	for i := 0; i < maxSweepIterations; i++ {
		closing := dir.Dot(p.Axis)
		if closing <= 1e-12 {
			return 0, p, false
		}
		t += p.Separation / closing
		if t > maxFraction {
			return 0, p, false
		}
		p = Penetrate(a.Translated(dir.MulScalar(t)), b)
		if p.Separation <= sweepTolerance {
			return t, p, true
		}
	}
	return t, p, true
}
