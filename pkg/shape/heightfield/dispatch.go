package heightfield

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/chazu/narrowphase/pkg/shape/convex"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

func init() {
	shape.RegisterCollide(shape.TypeConvex, shape.TypeHeightField, collideConvexVsHeightField)
	shape.RegisterStaticOnly(shape.TypeHeightField)
	shape.RegisterFactory(shape.SubTypeHeightField, func() shape.Shape {
		return &HeightField{Base: shape.NewBase(shape.SubTypeHeightField)}
	})
}

func collideConvexVsHeightField(shape1, shape2 shape.Shape, scale1, scale2 v3.Vec, t1, t2 geom.Transform,
	creator1, creator2 shape.SubShapeIDCreator, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, filter shape.ShapeFilter) {
	CollideConvexVsHeightField(shape1.(convex.Shape), shape2.(*HeightField), scale1, scale2, t1, t2, creator1, creator2, settings, c, filter)
}
