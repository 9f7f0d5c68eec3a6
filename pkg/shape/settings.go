package shape

import (
	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BackFaceMode controls whether triangles facing away from a query report
// hits.
type BackFaceMode uint8

const (
	IgnoreBackFaces BackFaceMode = iota
	CollideWithBackFaces
)

// ActiveEdgeMode controls how contacts on internal triangle edges choose
// their normal.
type ActiveEdgeMode uint8

const (
	// CollideOnlyWithActive replaces the normal of contacts on inactive
	// edges with the triangle normal.
	CollideOnlyWithActive ActiveEdgeMode = iota
	CollideWithAll
)

// RayCastSettings configures collector-based ray casts.
type RayCastSettings struct {
	BackFaceMode BackFaceMode
	// TreatConvexAsSolid makes a ray starting inside a convex shape hit at
	// fraction 0.
	TreatConvexAsSolid bool
}

// DefaultRayCastSettings ignores back faces and treats convex shapes as
// solid.
func DefaultRayCastSettings() RayCastSettings {
	return RayCastSettings{BackFaceMode: IgnoreBackFaces, TreatConvexAsSolid: true}
}

// CollideShapeSettings configures overlap queries.
type CollideShapeSettings struct {
	// MaxSeparationDistance reports shapes closer than this as colliding
	// with a negative penetration depth.
	MaxSeparationDistance float64
	BackFaceMode          BackFaceMode
	ActiveEdgeMode        ActiveEdgeMode
}

// DefaultCollideShapeSettings returns zero separation, back faces ignored
// and only active edges used for normals.
func DefaultCollideShapeSettings() CollideShapeSettings {
	return CollideShapeSettings{BackFaceMode: IgnoreBackFaces, ActiveEdgeMode: CollideOnlyWithActive}
}

// ShapeCastSettings configures sweeps.
type ShapeCastSettings struct {
	BackFaceModeTriangles BackFaceMode
	BackFaceModeConvex    BackFaceMode
	ActiveEdgeMode        ActiveEdgeMode
	// ReturnDeepestPoint reports the penetration depth of initially
	// overlapping shapes instead of a zero depth.
	ReturnDeepestPoint bool
}

// DefaultShapeCastSettings ignores back faces and reports depths.
func DefaultShapeCastSettings() ShapeCastSettings {
	return ShapeCastSettings{ActiveEdgeMode: CollideOnlyWithActive, ReturnDeepestPoint: true}
}

// ShapeCast is a shape swept from CenterOfMassStart along Direction.
type ShapeCast struct {
	Shape             Shape
	Scale             v3.Vec
	CenterOfMassStart geom.Transform
	Direction         v3.Vec
	// ShapeWorldBounds covers the whole sweep in the cast's space.
	ShapeWorldBounds geom.AABox
}

// NewShapeCast builds a cast and computes its swept bounds.
func NewShapeCast(s Shape, scale v3.Vec, start geom.Transform, dir v3.Vec) ShapeCast {
	b := s.WorldSpaceBounds(start, scale)
	swept := geom.Union(b, geom.AABox{Min: b.Min.Add(dir), Max: b.Max.Add(dir)})
	return ShapeCast{Shape: s, Scale: scale, CenterOfMassStart: start, Direction: dir, ShapeWorldBounds: swept}
}

// PostTransformed returns the cast after applying t to it.
func (c ShapeCast) PostTransformed(t geom.Transform) ShapeCast {
	return NewShapeCast(c.Shape, c.Scale, t.Mul(c.CenterOfMassStart), t.ApplyDirection(c.Direction))
}

// PostTranslated returns the cast moved by v.
func (c ShapeCast) PostTranslated(v v3.Vec) ShapeCast {
	return ShapeCast{
		Shape:             c.Shape,
		Scale:             c.Scale,
		CenterOfMassStart: c.CenterOfMassStart.PostTranslated(v),
		Direction:         c.Direction,
		ShapeWorldBounds:  geom.AABox{Min: c.ShapeWorldBounds.Min.Add(v), Max: c.ShapeWorldBounds.Max.Add(v)},
	}
}
