package decorated

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// OffsetCenterOfMass moves the centre of mass of its inner shape by offset
// without moving the geometry.
type OffsetCenterOfMass struct {
	decorator
	offset v3.Vec
}

var _ shape.Shape = (*OffsetCenterOfMass)(nil)

// NewOffsetCenterOfMass shifts the centre of mass of inner by offset.
func NewOffsetCenterOfMass(inner shape.Shape, offset v3.Vec) (*OffsetCenterOfMass, error) {
	d, err := newDecorator(shape.SubTypeOffsetCenterOfMass, inner)
	if err != nil {
		return nil, err
	}
	return &OffsetCenterOfMass{decorator: d, offset: offset}, nil
}

func (o *OffsetCenterOfMass) Offset() v3.Vec { return o.offset }

func (o *OffsetCenterOfMass) CenterOfMass() v3.Vec { return o.inner.CenterOfMass().Add(o.offset) }

// innerTransform places the inner shape given our centre of mass transform
// and scale.
func (o *OffsetCenterOfMass) innerTransform(t geom.Transform, scale v3.Vec) geom.Transform {
	return t.PreTranslated(o.offset.Mul(scale).Neg())
}

func (o *OffsetCenterOfMass) LocalBounds() geom.AABox {
	b := o.inner.LocalBounds()
	return geom.AABox{Min: b.Min.Sub(o.offset), Max: b.Max.Sub(o.offset)}
}

func (o *OffsetCenterOfMass) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	return o.inner.WorldSpaceBounds(o.innerTransform(t, scale), scale)
}

func (o *OffsetCenterOfMass) MassProperties() shape.MassProperties {
	return o.inner.MassProperties().Translate(o.offset)
}

func (o *OffsetCenterOfMass) SurfaceNormal(id shape.SubShapeID, p v3.Vec) v3.Vec {
	return o.inner.SurfaceNormal(id, p.Add(o.offset))
}

func (o *OffsetCenterOfMass) IsValidScale(scale v3.Vec) bool {
	return o.inner.IsValidScale(scale)
}

func (o *OffsetCenterOfMass) CastRay(ray shape.RayCast, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	ray.Origin = ray.Origin.Add(o.offset)
	return o.inner.CastRay(ray, creator, hit)
}

func (o *OffsetCenterOfMass) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, c shape.RayCastCollector, filter shape.ShapeFilter) {
	ray.Origin = ray.Origin.Add(o.offset)
	o.inner.CastRayCollect(ray, settings, creator, c, filter)
}

func (o *OffsetCenterOfMass) CollidePoint(p v3.Vec, creator shape.SubShapeIDCreator, c shape.CollidePointCollector, filter shape.ShapeFilter) {
	o.inner.CollidePoint(p.Add(o.offset), creator, c, filter)
}

func (o *OffsetCenterOfMass) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale v3.Vec, filter shape.ShapeFilter, comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	local := cast.PostTranslated(o.offset.Mul(scale))
	o.inner.CastShape(local, settings, scale, filter, o.innerTransform(comTransform2, scale), creator1, creator2, c)
}

func (o *OffsetCenterOfMass) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, c shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	t := o.innerTransform(geom.Transform{Rotation: rot, Position: pos}, scale)
	o.inner.CollectTransformedShapes(box, t.Position, rot, scale, creator, c, filter)
}

func (o *OffsetCenterOfMass) SaveBinaryState(out *shape.StreamOut) {
	o.Base.SaveBinaryState(out)
	out.WriteVec3(o.offset)
}

func (o *OffsetCenterOfMass) RestoreBinaryState(in *shape.StreamIn) {
	o.Base.RestoreBinaryState(in)
	o.offset = in.ReadVec3()
}
