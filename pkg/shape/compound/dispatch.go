package compound

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func init() {
	shape.RegisterCollideRow(shape.TypeCompound, collideCompoundVsShape)
	shape.RegisterCollide(shape.TypeConvex, shape.TypeCompound, collideShapeVsCompound)
	shape.RegisterCast(shape.TypeCompound, castCompoundVsShape)
	shape.RegisterFactory(shape.SubTypeStaticCompound, func() shape.Shape {
		return &StaticCompound{Base: shape.NewBase(shape.SubTypeStaticCompound)}
	})
}

// collideCompoundVsShape recurses into every child of shape1 whose world
// bounds touch shape2.
func collideCompoundVsShape(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	compound := shape1.(*StaticCompound)
	bounds2 := geom.ExpandBy(shape2.WorldSpaceBounds(t2, scale2), geom.Splat(settings.MaxSeparationDistance))
	// Move shape 2's bounds into the compound frame for the child test.
	local := geom.Transformed(bounds2, t1.Inverse())
	for _, i := range compound.overlapping(local, scale1) {
		if c.ShouldEarlyOut() {
			return
		}
		ch := &compound.children[i]
		shape.CollideShapeVsShape(ch.shape, shape2, scale1, scale2, t1.Mul(ch.transform(scale1)), t2,
			compound.pushChild(creator1, i), creator2, settings, c, filter)
	}
}

func collideShapeVsCompound(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	compound := shape2.(*StaticCompound)
	bounds1 := geom.ExpandBy(shape1.WorldSpaceBounds(t1, scale1), geom.Splat(settings.MaxSeparationDistance))
	local := geom.Transformed(bounds1, t2.Inverse())
	for _, i := range compound.overlapping(local, scale2) {
		if c.ShouldEarlyOut() {
			return
		}
		ch := &compound.children[i]
		shape.CollideShapeVsShape(shape1, ch.shape, scale1, scale2, t1, t2.Mul(ch.transform(scale2)),
			creator1, compound.pushChild(creator2, i), settings, c, filter)
	}
}

// castCompoundVsShape casts every child of the cast compound separately.
func castCompoundVsShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, target shape.Shape, scale v3.Vec, filter shape.ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	compound := cast.Shape.(*StaticCompound)
	for i := range compound.children {
		if c.ShouldEarlyOut() {
			return
		}
		ch := &compound.children[i]
		inner := shape.NewShapeCast(ch.shape, cast.Scale, cast.CenterOfMassStart.Mul(ch.transform(cast.Scale)), cast.Direction)
		shape.CastShapeVsShape(inner, settings, target, scale, filter, comTransform2, compound.pushChild(creator1, i), creator2, c)
	}
}
