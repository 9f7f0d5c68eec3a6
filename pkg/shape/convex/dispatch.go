package convex

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func init() {
	shape.RegisterCollide(shape.TypeConvex, shape.TypeConvex, collideConvexVsConvex)
	shape.RegisterCast(shape.TypeConvex, shape.CastLeafVsShape)
	shape.RegisterFactory(shape.SubTypeSphere, func() shape.Shape { return &Sphere{base: newBase(shape.SubTypeSphere, nil)} })
	shape.RegisterFactory(shape.SubTypeBox, func() shape.Shape { return &Box{base: newBase(shape.SubTypeBox, nil)} })
}

func collideConvexVsConvex(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	if !filter.ShouldCollide(creator1.ID(), creator2.ID()) {
		return
	}
	g1 := shape1.(Shape).Geometry(t1, scale1)
	g2 := shape2.(Shape).Geometry(t2, scale2)
	p := Penetrate(g1, g2)
	if p.Separation > settings.MaxSeparationDistance {
		return
	}
	if p.Separation >= c.EarlyOutFraction() {
		return
	}
	c.AddHit(shape.CollideShapeResult{
		ContactPointOn1:  p.PointA,
		ContactPointOn2:  p.PointB,
		PenetrationAxis:  p.Axis,
		PenetrationDepth: -p.Separation,
		SubShapeID1:      creator1.ID(),
		SubShapeID2:      creator2.ID(),
		BodyID2:          c.Context(),
	})
}

// castConvexVsConvex sweeps a convex cast, given in the space of target,
// against a convex target.
func castConvexVsConvex(cast shape.ShapeCast, settings shape.ShapeCastSettings, target Shape, scale v3.Vec, filter shape.ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	if !filter.ShouldCollide(creator1.ID(), creator2.ID()) {
		return
	}
	a := cast.Shape.(Shape).Geometry(cast.CenterOfMassStart, cast.Scale)
	b := target.Geometry(geom.Identity(), scale)
	reportSweep(a, cast.Direction, b, settings, settings.BackFaceModeConvex, comTransform2, creator1.ID(), creator2.ID(), c)
}

// sweep describes where and how a sweep reports its hit.
type sweep struct {
	settings      shape.ShapeCastSettings
	backFaces     shape.BackFaceMode
	comTransform2 geom.Transform
	id1, id2      shape.SubShapeID
	c             shape.CastShapeCollector
	// isBackFace decides whether a hit is on a back face; nil uses the
	// contact axis.
	isBackFace func(Penetration) bool
	// fixAxis may replace the contact axis before reporting.
	fixAxis func(Penetration) Penetration
}

func reportSweep(a Geometry, dir v3.Vec, b Geometry, settings shape.ShapeCastSettings, backFaces shape.BackFaceMode,
	comTransform2 geom.Transform, id1, id2 shape.SubShapeID, c shape.CastShapeCollector) bool {
	sw := sweep{settings: settings, backFaces: backFaces, comTransform2: comTransform2, id1: id1, id2: id2, c: c}
	return sw.run(a, dir, b)
}

// run sweeps a against b in the local space of shape 2 and reports the hit
// in world space.
func (sw sweep) run(a Geometry, dir v3.Vec, b Geometry) bool {
	maxFraction := math.Min(sw.c.EarlyOutFraction(), 1+shape.FloatEpsilon)
	t, p, ok := Sweep(a, dir, b, maxFraction)
	if !ok {
		return false
	}
	backFace := p.Axis.Dot(dir) < 0
	if sw.isBackFace != nil {
		backFace = sw.isBackFace(p)
	}
	if backFace && sw.backFaces == shape.IgnoreBackFaces {
		return false
	}
	if sw.fixAxis != nil {
		p = sw.fixAxis(p)
	}
	depth := 0.0
	if t == 0 && sw.settings.ReturnDeepestPoint {
		depth = math.Max(0, -p.Separation)
	}
	result := shape.ShapeCastResult{
		CollideShapeResult: shape.CollideShapeResult{
			ContactPointOn1:  sw.comTransform2.Apply(p.PointA),
			ContactPointOn2:  sw.comTransform2.Apply(p.PointB),
			PenetrationAxis:  sw.comTransform2.ApplyDirection(p.Axis),
			PenetrationDepth: depth,
			SubShapeID1:      sw.id1,
			SubShapeID2:      sw.id2,
			BodyID2:          sw.c.Context(),
		},
		Fraction:      t,
		IsBackFaceHit: backFace,
	}
	if result.EarlyOutFraction() >= sw.c.EarlyOutFraction() {
		return false
	}
	sw.c.AddHit(result)
	return true
}
