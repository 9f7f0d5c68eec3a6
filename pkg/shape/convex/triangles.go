package convex

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Edge bits of a triangle (v0, v1, v2).
const (
	EdgeV0V1 uint8 = 1 << iota
	EdgeV1V2
	EdgeV2V0
	AllEdges = EdgeV0V1 | EdgeV1V2 | EdgeV2V0
)

// flipEdges maps edge bits onto a triangle whose v1 and v2 were swapped.
func flipEdges(edges uint8) uint8 {
	return edges&EdgeV1V2 | (edges&EdgeV0V1)<<2 | (edges&EdgeV2V0)>>2
}

// triangleSpace turns unscaled triangle vertices of shape 2 into its scaled
// local space, keeping them counter clockwise under a mirroring scale.
type triangleSpace struct {
	scale v3.Vec
	flip  bool
}

func newTriangleSpace(scale v3.Vec) triangleSpace {
	return triangleSpace{scale: scale, flip: scale.X*scale.Y*scale.Z < 0}
}

func (s triangleSpace) triangle(v0, v1, v2 v3.Vec, edges uint8) (Geometry, uint8) {
	v0, v1, v2 = v0.Mul(s.scale), v1.Mul(s.scale), v2.Mul(s.scale)
	if s.flip {
		return TriangleGeometry(v0, v2, v1), flipEdges(edges)
	}
	return TriangleGeometry(v0, v1, v2), edges
}

// contactEdges returns the edges of tri that p lies on: one bit for an edge,
// two for a vertex and none for the interior.
func contactEdges(tri Geometry, p v3.Vec) uint8 {
	var mask uint8
	for i := 0; i < 3; i++ {
		a, b := tri.Verts[i], tri.Verts[(i+1)%3]
		ab := b.Sub(a)
		l2 := ab.Length2()
		t := 0.0
		if l2 > 0 {
			t = mgl64.Clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
		}
		tol := 1e-4 * (1 + ab.Length())
		if a.Add(ab.MulScalar(t)).Sub(p).Length2() <= tol*tol {
			mask |= 1 << i
		}
	}
	return mask
}

// fixActiveEdge replaces the axis of a contact on an inactive edge or
// vertex with the triangle normal, so convex shapes slide over internal
// edges of a mesh.
func fixActiveEdge(p Penetration, tri Geometry, activeEdges uint8) Penetration {
	on := contactEdges(tri, p.PointB)
	if on == 0 || on&activeEdges != 0 {
		return p
	}
	n := tri.Normal()
	if n.Dot(p.Axis) < 0 {
		n = n.Neg()
	}
	p.Axis = n
	return p
}

// TriangleCollider tests one convex shape against triangles of shape 2.
// Everything happens in the scaled local space of shape 2; results are
// reported in world space.
type TriangleCollider struct {
	geometry      Geometry
	space         triangleSpace
	settings      shape.CollideShapeSettings
	comTransform2 geom.Transform
	id1           shape.SubShapeID
	c             shape.CollideShapeCollector
	filter        shape.ShapeFilter
}

// NewTriangleCollider prepares shape1, placed in the world by
// comTransform1, for testing against the triangles of a shape placed by
// comTransform2 with scale2.
func NewTriangleCollider(shape1 Shape, scale1, scale2 v3.Vec, comTransform1, comTransform2 geom.Transform, creator1 shape.SubShapeIDCreator,
	settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) *TriangleCollider {
	local := comTransform2.Inverse().Mul(comTransform1)
	return &TriangleCollider{
		geometry:      shape1.Geometry(local, scale1),
		space:         newTriangleSpace(scale2),
		settings:      settings,
		comTransform2: comTransform2,
		id1:           creator1.ID(),
		c:             c,
		filter:        shape.FilterOrDefault(filter),
	}
}

// Bounds returns the bounds of shape 1 in the scaled local space of shape
// 2, grown by the maximum separation distance.
func (tc *TriangleCollider) Bounds() geom.AABox {
	return geom.ExpandBy(tc.geometry.Bounds(), geom.Splat(tc.settings.MaxSeparationDistance))
}

// Collide tests one triangle given in unscaled local space.
func (tc *TriangleCollider) Collide(v0, v1, v2 v3.Vec, activeEdges uint8, id2 shape.SubShapeID) {
	if !tc.filter.ShouldCollide(tc.id1, id2) {
		return
	}
	tri, edges := tc.space.triangle(v0, v1, v2, activeEdges)
	n := tri.Normal()
	if tc.settings.BackFaceMode == shape.IgnoreBackFaces && tc.geometry.Center.Sub(tri.Verts[0]).Dot(n) < 0 {
		return
	}
	p := Penetrate(tc.geometry, tri)
	if p.Separation > tc.settings.MaxSeparationDistance || p.Separation >= tc.c.EarlyOutFraction() {
		return
	}
	if tc.settings.ActiveEdgeMode == shape.CollideOnlyWithActive && edges != AllEdges {
		p = fixActiveEdge(p, tri, edges)
	}
	tc.c.AddHit(shape.CollideShapeResult{
		ContactPointOn1:  tc.comTransform2.Apply(p.PointA),
		ContactPointOn2:  tc.comTransform2.Apply(p.PointB),
		PenetrationAxis:  tc.comTransform2.ApplyDirection(p.Axis),
		PenetrationDepth: -p.Separation,
		SubShapeID1:      tc.id1,
		SubShapeID2:      id2,
		BodyID2:          tc.c.Context(),
	})
}

// TriangleCaster sweeps one convex cast against triangles of shape 2.
type TriangleCaster struct {
	geometry Geometry
	dir      v3.Vec
	space    triangleSpace
	sweep    sweep
	filter   shape.ShapeFilter
}

// NewTriangleCaster prepares cast, expressed in the centre of mass space of
// a shape with scale2 placed in the world by comTransform2.
func NewTriangleCaster(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale2 v3.Vec, comTransform2 geom.Transform,
	creator1 shape.SubShapeIDCreator, c shape.CastShapeCollector, filter shape.ShapeFilter) *TriangleCaster {
	return &TriangleCaster{
		geometry: cast.Shape.(Shape).Geometry(cast.CenterOfMassStart, cast.Scale),
		dir:      cast.Direction,
		space:    newTriangleSpace(scale2),
		sweep: sweep{
			settings:      settings,
			backFaces:     shape.CollideWithBackFaces,
			comTransform2: comTransform2,
			id1:           creator1.ID(),
			c:             c,
		},
		filter: shape.FilterOrDefault(filter),
	}
}

// Direction is the sweep direction in the scaled local space of shape 2.
func (tc *TriangleCaster) Direction() v3.Vec { return tc.dir }

// Bounds returns the swept bounds of the cast in the scaled local space of
// shape 2.
func (tc *TriangleCaster) Bounds() geom.AABox {
	b := tc.geometry.Bounds()
	return geom.Union(b, geom.AABox{Min: b.Min.Add(tc.dir), Max: b.Max.Add(tc.dir)})
}

// Start returns the cast geometry at fraction 0.
func (tc *TriangleCaster) Start() Geometry { return tc.geometry }

// Cast sweeps against one triangle given in unscaled local space.
func (tc *TriangleCaster) Cast(v0, v1, v2 v3.Vec, activeEdges uint8, id2 shape.SubShapeID) {
	if !tc.filter.ShouldCollide(tc.sweep.id1, id2) {
		return
	}
	tri, edges := tc.space.triangle(v0, v1, v2, activeEdges)
	n := tri.Normal()
	backFace := tc.dir.Dot(n) > 0
	if backFace && tc.sweep.settings.BackFaceModeTriangles == shape.IgnoreBackFaces {
		return
	}
	sw := tc.sweep
	sw.id2 = id2
	sw.isBackFace = func(Penetration) bool { return backFace }
	if sw.settings.ActiveEdgeMode == shape.CollideOnlyWithActive && edges != AllEdges {
		sw.fixAxis = func(p Penetration) Penetration { return fixActiveEdge(p, tri, edges) }
	}
	sw.run(tc.geometry, tc.dir, tri)
}
