package heightfield

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/chazu/narrowphase/pkg/shape/convex"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

type rayVisitor struct {
	h       *HeightField
	ray     shape.RayCast
	inv     geom.RayInvDirection
	creator shape.SubShapeIDCreator
	hit     *shape.RayCastResult
	found   bool
	dist    [stackSize]float64
}

func (v *rayVisitor) ShouldAbort() bool { return v.hit.Fraction <= 0 }

func (v *rayVisitor) ShouldVisitRangeBlock(top int) bool { return v.dist[top] < v.hit.Fraction }

func (v *rayVisitor) VisitRangeBlock(blocks []Block, top int) int {
	return closestFirst(blocks, &v.dist, top, v.hit.Fraction, func(b geom.AABox) float64 {
		return geom.RayAABox(v.ray.Origin, v.inv, b)
	})
}

func (v *rayVisitor) VisitTriangle(x, y, tri uint32, v0, v1, v2 v3.Vec) {
	f := geom.RayTriangle(v.ray.Origin, v.ray.Direction, v0, v1, v2)
	if f < v.hit.Fraction {
		v.hit.Fraction = f
		v.hit.SubShapeID2 = v.h.encodeSubShapeID(v.creator, x, y, tri)
		v.found = true
	}
}

// CastRay finds the closest triangle hit, from either side, closer than
// hit.Fraction.
func (h *HeightField) CastRay(ray shape.RayCast, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	v := &rayVisitor{h: h, ray: ray, inv: geom.NewRayInvDirection(ray.Direction), creator: creator, hit: hit}
	h.Walk(v)
	return v.found
}

type rayCollectVisitor struct {
	h        *HeightField
	ray      shape.RayCast
	inv      geom.RayInvDirection
	settings shape.RayCastSettings
	creator  shape.SubShapeIDCreator
	c        shape.RayCastCollector
	filter   shape.ShapeFilter
	dist     [stackSize]float64
}

func (v *rayCollectVisitor) ShouldAbort() bool { return v.c.ShouldEarlyOut() }

func (v *rayCollectVisitor) ShouldVisitRangeBlock(top int) bool {
	return v.dist[top] < v.c.EarlyOutFraction()
}

func (v *rayCollectVisitor) VisitRangeBlock(blocks []Block, top int) int {
	return closestFirst(blocks, &v.dist, top, v.c.EarlyOutFraction(), func(b geom.AABox) float64 {
		return geom.RayAABox(v.ray.Origin, v.inv, b)
	})
}

func (v *rayCollectVisitor) VisitTriangle(x, y, tri uint32, v0, v1, v2 v3.Vec) {
	// A ray travelling along the triangle normal sees its back.
	if v.settings.BackFaceMode == shape.IgnoreBackFaces && geom.TriangleNormal(v0, v1, v2).Dot(v.ray.Direction) > 0 {
		return
	}
	id := v.h.encodeSubShapeID(v.creator, x, y, tri)
	if !v.filter.ShouldCollideSubShape(id) {
		return
	}
	f := geom.RayTriangle(v.ray.Origin, v.ray.Direction, v0, v1, v2)
	if f < v.c.EarlyOutFraction() {
		v.c.AddHit(shape.RayCastResult{BodyID: v.c.Context(), Fraction: f, SubShapeID2: id})
	}
}

func (h *HeightField) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, c shape.RayCastCollector, filter shape.ShapeFilter) {
	h.Walk(&rayCollectVisitor{
		h:        h,
		ray:      ray,
		inv:      geom.NewRayInvDirection(ray.Direction),
		settings: settings,
		creator:  creator,
		c:        c,
		filter:   shape.FilterOrDefault(filter),
	})
}

// CollidePoint reports points inside the bounds that have terrain above
// them: a downward ray 10% longer than the bounds are high must miss.
func (h *HeightField) CollidePoint(p v3.Vec, creator shape.SubShapeIDCreator, c shape.CollidePointCollector, filter shape.ShapeFilter) {
	if !shape.FilterOrDefault(filter).ShouldCollideSubShape(creator.ID()) {
		return
	}
	bounds := h.LocalBounds()
	if !geom.Contains(bounds, p) {
		return
	}
	hit := shape.NewRayCastResult()
	down := shape.RayCast{Origin: p, Direction: v3.Vec{Y: -1.1 * bounds.Size().Y}}
	if !h.CastRay(down, creator, &hit) {
		c.AddHit(shape.CollidePointResult{BodyID: c.Context(), SubShapeID2: creator.ID()})
	}
}

type castVisitor struct {
	h       *HeightField
	caster  *convex.TriangleCaster
	scale   v3.Vec
	inv     geom.RayInvDirection
	center  v3.Vec
	extent  v3.Vec
	creator shape.SubShapeIDCreator
	c       shape.CastShapeCollector
	dist    [stackSize]float64
}

func (v *castVisitor) ShouldAbort() bool { return v.c.ShouldEarlyOut() }

func (v *castVisitor) ShouldVisitRangeBlock(top int) bool {
	return v.dist[top] < v.c.EarlyOutFraction()
}

// VisitRangeBlock sweeps the centre of the cast bounds through the scaled
// child bounds grown by the cast extent.
func (v *castVisitor) VisitRangeBlock(blocks []Block, top int) int {
	return closestFirst(blocks, &v.dist, top, v.c.EarlyOutFraction(), func(b geom.AABox) float64 {
		return geom.RayAABox(v.center, v.inv, geom.ExpandBy(geom.Scaled(b, v.scale), v.extent))
	})
}

func (v *castVisitor) VisitTriangle(x, y, tri uint32, v0, v1, v2 v3.Vec) {
	v.caster.Cast(v0, v1, v2, v.h.EdgeFlags(x, y, tri), v.h.encodeSubShapeID(v.creator, x, y, tri))
}

// CastShape sweeps a convex cast, in the local space of the height field,
// against the terrain triangles.
func (h *HeightField) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale v3.Vec, filter shape.ShapeFilter, comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	caster := convex.NewTriangleCaster(cast, settings, scale, comTransform2, creator1, c, filter)
	start := caster.Start().Bounds()
	h.Walk(&castVisitor{
		h:       h,
		caster:  caster,
		scale:   scale,
		inv:     geom.NewRayInvDirection(caster.Direction()),
		center:  start.Center(),
		extent:  geom.Extent(start),
		creator: creator2,
		c:       c,
	})
}

type collideVisitor struct {
	h        *HeightField
	collider *convex.TriangleCollider
	bounds   geom.AABox
	scale    v3.Vec
	creator  shape.SubShapeIDCreator
	c        shape.CollideShapeCollector
}

func (v *collideVisitor) ShouldAbort() bool { return v.c.ShouldEarlyOut() }

func (v *collideVisitor) ShouldVisitRangeBlock(int) bool { return true }

func (v *collideVisitor) VisitRangeBlock(blocks []Block, _ int) int {
	return keepIf(blocks, func(b geom.AABox) bool {
		return geom.Overlaps(geom.Scaled(b, v.scale), v.bounds)
	})
}

func (v *collideVisitor) VisitTriangle(x, y, tri uint32, v0, v1, v2 v3.Vec) {
	v.collider.Collide(v0, v1, v2, v.h.EdgeFlags(x, y, tri), v.h.encodeSubShapeID(v.creator, x, y, tri))
}

// CollideConvexVsHeightField reports the overlaps of a convex shape with the
// terrain triangles.
func CollideConvexVsHeightField(shape1 convex.Shape, hf *HeightField, scale1, scale2 v3.Vec, comTransform1, comTransform2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	collider := convex.NewTriangleCollider(shape1, scale1, scale2, comTransform1, comTransform2, creator1, settings, c, filter)
	hf.Walk(&collideVisitor{
		h:        hf,
		collider: collider,
		bounds:   collider.Bounds(),
		scale:    scale2,
		creator:  creator2,
		c:        c,
	})
}
