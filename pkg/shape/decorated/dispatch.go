package decorated

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func init() {
	shape.RegisterCollideRow(shape.TypeScaled, collideScaledVsShape)
	shape.RegisterCollideRow(shape.TypeRotatedTranslated, collideRotatedTranslatedVsShape)
	shape.RegisterCollideRow(shape.TypeOffsetCenterOfMass, collideOffsetCenterOfMassVsShape)
	shape.RegisterCollide(shape.TypeConvex, shape.TypeScaled, collideShapeVsScaled)
	shape.RegisterCollide(shape.TypeConvex, shape.TypeRotatedTranslated, collideShapeVsRotatedTranslated)
	shape.RegisterCollide(shape.TypeConvex, shape.TypeOffsetCenterOfMass, collideShapeVsOffsetCenterOfMass)

	shape.RegisterCast(shape.TypeScaled, castScaledVsShape)
	shape.RegisterCast(shape.TypeRotatedTranslated, castRotatedTranslatedVsShape)
	shape.RegisterCast(shape.TypeOffsetCenterOfMass, castOffsetCenterOfMassVsShape)

	shape.RegisterFactory(shape.SubTypeScaled, func() shape.Shape {
		return &Scaled{decorator: decorator{Base: shape.NewBase(shape.SubTypeScaled)}}
	})
	shape.RegisterFactory(shape.SubTypeRotatedTranslated, func() shape.Shape {
		return &RotatedTranslated{decorator: decorator{Base: shape.NewBase(shape.SubTypeRotatedTranslated)}}
	})
	shape.RegisterFactory(shape.SubTypeOffsetCenterOfMass, func() shape.Shape {
		return &OffsetCenterOfMass{decorator: decorator{Base: shape.NewBase(shape.SubTypeOffsetCenterOfMass)}}
	})
}

func collideScaledVsShape(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	s := shape1.(*Scaled)
	shape.CollideShapeVsShape(s.inner, shape2, scale1.Mul(s.scale), scale2, t1, t2, creator1, creator2, settings, c, filter)
}

func collideShapeVsScaled(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	s := shape2.(*Scaled)
	shape.CollideShapeVsShape(shape1, s.inner, scale1, scale2.Mul(s.scale), t1, t2, creator1, creator2, settings, c, filter)
}

func collideRotatedTranslatedVsShape(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	r := shape1.(*RotatedTranslated)
	shape.CollideShapeVsShape(r.inner, shape2, scale1, scale2, t1.Mul(r.rot()), t2, creator1, creator2, settings, c, filter)
}

func collideShapeVsRotatedTranslated(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	r := shape2.(*RotatedTranslated)
	shape.CollideShapeVsShape(shape1, r.inner, scale1, scale2, t1, t2.Mul(r.rot()), creator1, creator2, settings, c, filter)
}

func collideOffsetCenterOfMassVsShape(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	o := shape1.(*OffsetCenterOfMass)
	shape.CollideShapeVsShape(o.inner, shape2, scale1, scale2, o.innerTransform(t1, scale1), t2, creator1, creator2, settings, c, filter)
}

func collideShapeVsOffsetCenterOfMass(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	o := shape2.(*OffsetCenterOfMass)
	shape.CollideShapeVsShape(shape1, o.inner, scale1, scale2, t1, o.innerTransform(t2, scale2), creator1, creator2, settings, c, filter)
}

// The cast routines unwrap the cast shape and dispatch again; the target
// unwraps itself in its CastShape.

func castScaledVsShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, target shape.Shape, scale v3.Vec, filter shape.ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	s := cast.Shape.(*Scaled)
	inner := shape.NewShapeCast(s.inner, cast.Scale.Mul(s.scale), cast.CenterOfMassStart, cast.Direction)
	shape.CastShapeVsShape(inner, settings, target, scale, filter, comTransform2, creator1, creator2, c)
}

func castRotatedTranslatedVsShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, target shape.Shape, scale v3.Vec, filter shape.ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	r := cast.Shape.(*RotatedTranslated)
	inner := shape.NewShapeCast(r.inner, cast.Scale, cast.CenterOfMassStart.Mul(r.rot()), cast.Direction)
	shape.CastShapeVsShape(inner, settings, target, scale, filter, comTransform2, creator1, creator2, c)
}

func castOffsetCenterOfMassVsShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, target shape.Shape, scale v3.Vec, filter shape.ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	o := cast.Shape.(*OffsetCenterOfMass)
	inner := shape.NewShapeCast(o.inner, cast.Scale, o.innerTransform(cast.CenterOfMassStart, cast.Scale), cast.Direction)
	shape.CastShapeVsShape(inner, settings, target, scale, filter, comTransform2, creator1, creator2, c)
}
