package shape

import (
	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// NewTransformedShape places s at the centre of mass position pos.
func NewTransformedShape(pos v3.Vec, rot mgl64.Quat, s Shape, body BodyID) TransformedShape {
	return TransformedShape{
		PositionCOM:       pos,
		Rotation:          rot,
		Shape:             s,
		Scale:             geom.Splat(1),
		BodyID:            body,
		SubShapeIDCreator: NewSubShapeIDCreator(),
	}
}

// CenterOfMassTransform returns the world transform of the centre of mass.
func (ts TransformedShape) CenterOfMassTransform() geom.Transform {
	return geom.Transform{Rotation: ts.Rotation, Position: ts.PositionCOM}
}

// WorldSpaceBounds returns the world bounds of the shape.
func (ts TransformedShape) WorldSpaceBounds() geom.AABox {
	if ts.Shape == nil {
		return geom.EmptyAABox()
	}
	return ts.Shape.WorldSpaceBounds(ts.CenterOfMassTransform(), ts.Scale)
}

func (ts TransformedShape) toLocal(p v3.Vec) v3.Vec {
	return ts.CenterOfMassTransform().InverseApply(p).Div(ts.Scale)
}

// CastRay casts a world space ray and updates hit with the closest hit
// closer than hit.Fraction.
func (ts TransformedShape) CastRay(ray RayCast, hit *RayCastResult) bool {
	if ts.Shape == nil {
		return false
	}
	local := ray.Transformed(ts.CenterOfMassTransform().Inverse()).Scaled(ts.Scale)
	if ts.Shape.CastRay(local, ts.SubShapeIDCreator, hit) {
		hit.BodyID = ts.BodyID
		return true
	}
	return false
}

// CastRayCollect casts a world space ray and reports every hit to c.
func (ts TransformedShape) CastRayCollect(ray RayCast, settings RayCastSettings, c RayCastCollector, filter ShapeFilter) {
	if ts.Shape == nil {
		return
	}
	c.SetContext(ts.BodyID)
	local := ray.Transformed(ts.CenterOfMassTransform().Inverse()).Scaled(ts.Scale)
	ts.Shape.CastRayCollect(local, settings, ts.SubShapeIDCreator, c, FilterOrDefault(filter))
}

// CollidePoint reports to c if the world space point is inside the shape.
func (ts TransformedShape) CollidePoint(p v3.Vec, c CollidePointCollector, filter ShapeFilter) {
	if ts.Shape == nil {
		return
	}
	c.SetContext(ts.BodyID)
	ts.Shape.CollidePoint(ts.toLocal(p), ts.SubShapeIDCreator, c, FilterOrDefault(filter))
}

// CollideShape tests s, placed by comTransform with scale, against this
// shape. s is shape 1 of every result.
func (ts TransformedShape) CollideShape(s Shape, scale v3.Vec, comTransform geom.Transform, settings CollideShapeSettings, c CollideShapeCollector, filter ShapeFilter) {
	if ts.Shape == nil {
		return
	}
	c.SetContext(ts.BodyID)
	CollideShapeVsShape(s, ts.Shape, scale, ts.Scale, comTransform, ts.CenterOfMassTransform(),
		NewSubShapeIDCreator(), ts.SubShapeIDCreator, settings, c, filter)
}

// CastShape sweeps a world space cast against this shape.
func (ts TransformedShape) CastShape(cast ShapeCast, settings ShapeCastSettings, c CastShapeCollector, filter ShapeFilter) {
	if ts.Shape == nil {
		return
	}
	c.SetContext(ts.BodyID)
	CastShapeVsShapeWorldSpace(cast, settings, ts.Shape, ts.Scale, filter, ts.CenterOfMassTransform(),
		NewSubShapeIDCreator(), ts.SubShapeIDCreator, c)
}

// CollectTransformedShapes reports the leaf shapes whose bounds touch the
// world space box.
func (ts TransformedShape) CollectTransformedShapes(box geom.AABox, c TransformedShapeCollector, filter ShapeFilter) {
	if ts.Shape == nil {
		return
	}
	c.SetContext(ts.BodyID)
	ts.Shape.CollectTransformedShapes(box, ts.PositionCOM, ts.Rotation, ts.Scale, ts.SubShapeIDCreator, c, FilterOrDefault(filter))
}

// WorldSpaceSurfaceNormal returns the outward normal of sub-shape id at the
// world space position pos.
func (ts TransformedShape) WorldSpaceSurfaceNormal(id SubShapeID, pos v3.Vec) v3.Vec {
	n := ts.Shape.SurfaceNormal(id, ts.toLocal(pos))
	n = geom.NormalizedOr(n.Div(ts.Scale), n)
	return ts.CenterOfMassTransform().ApplyDirection(n)
}

// Material returns the material of sub-shape id.
func (ts TransformedShape) Material(id SubShapeID) *Material {
	return ts.Shape.Material(id)
}

// CollectLeaf is the CollectTransformedShapes implementation for shapes
// without children: it reports the shape itself when its bounds touch box.
func CollectLeaf(s Shape, box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator SubShapeIDCreator, c TransformedShapeCollector, filter ShapeFilter) {
	if !filter.ShouldCollideSubShape(creator.ID()) {
		return
	}
	t := geom.Transform{Rotation: rot, Position: pos}
	if !geom.Overlaps(s.WorldSpaceBounds(t, scale), box) {
		return
	}
	c.AddHit(TransformedShape{
		PositionCOM:       pos,
		Rotation:          rot,
		Shape:             s,
		Scale:             scale,
		BodyID:            c.Context(),
		SubShapeIDCreator: creator,
	})
}
