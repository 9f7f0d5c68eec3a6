package shape

import (
	"fmt"

	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// CollideFunc tests shape1 against shape2 with both placed in world space by
// their centre of mass transforms. Results go to c in world space.
type CollideFunc func(shape1, shape2 Shape, scale1, scale2 v3.Vec, comTransform1, comTransform2 geom.Transform,
	creator1, creator2 SubShapeIDCreator, settings CollideShapeSettings, c CollideShapeCollector, filter ShapeFilter)

// CastFunc sweeps cast (in the centre of mass space of target) against
// target. comTransform2 places target in the world.
type CastFunc func(cast ShapeCast, settings ShapeCastSettings, target Shape, scale v3.Vec, filter ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 SubShapeIDCreator, c CastShapeCollector)

var (
	collideTable [NumTypes][NumTypes]CollideFunc
	castTable    [NumTypes]CastFunc
	staticOnly   [NumTypes]bool
)

// RegisterCollide installs the routine for (t1, t2). Registering a pair
// twice panics.
func RegisterCollide(t1, t2 Type, fn CollideFunc) {
	if collideTable[t1][t2] != nil {
		panic(fmt.Sprintf("shape: collide routine for %s vs %s already registered", t1, t2))
	}
	collideTable[t1][t2] = fn
}

// RegisterCollideRow installs fn for t1 against every type that has no
// routine yet.
func RegisterCollideRow(t1 Type, fn CollideFunc) {
	for t2 := Type(0); t2 < NumTypes; t2++ {
		if collideTable[t1][t2] == nil {
			collideTable[t1][t2] = fn
		}
	}
}

// RegisterCast installs the routine used when the cast shape has type t.
func RegisterCast(t Type, fn CastFunc) {
	if castTable[t] != nil {
		panic(fmt.Sprintf("shape: cast routine for %s already registered", t))
	}
	castTable[t] = fn
}

// RegisterStaticOnly marks t as only valid as the second argument.
func RegisterStaticOnly(t Type) {
	staticOnly[t] = true
}

// CollideShapeVsShape routes an overlap query on the runtime types of both
// shapes. A static-only shape as shape1 or a pair with no routine is a
// programming error and panics.
func CollideShapeVsShape(shape1, shape2 Shape, scale1, scale2 v3.Vec, comTransform1, comTransform2 geom.Transform,
	creator1, creator2 SubShapeIDCreator, settings CollideShapeSettings, c CollideShapeCollector, filter ShapeFilter) {
	t1, t2 := shape1.Type(), shape2.Type()
	if staticOnly[t1] {
		panic(fmt.Sprintf("shape: %s shapes cannot be the dynamic argument of a collide query", t1))
	}
	fn := collideTable[t1][t2]
	if fn == nil {
		panic(fmt.Sprintf("shape: no collide routine for %s vs %s", t1, t2))
	}
	fn(shape1, shape2, scale1, scale2, comTransform1, comTransform2, creator1, creator2, settings, c, FilterOrDefault(filter))
}

// CastShapeVsShape routes a sweep whose cast is expressed in the centre of
// mass space of target. The shape filter is consulted before anything else.
func CastShapeVsShape(cast ShapeCast, settings ShapeCastSettings, target Shape, scale v3.Vec, filter ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 SubShapeIDCreator, c CastShapeCollector) {
	filter = FilterOrDefault(filter)
	if !filter.ShouldCollide(creator1.ID(), creator2.ID()) {
		return
	}
	t := cast.Shape.Type()
	if staticOnly[t] {
		panic(fmt.Sprintf("shape: %s shapes cannot be cast", t))
	}
	fn := castTable[t]
	if fn == nil {
		panic(fmt.Sprintf("shape: no cast routine for %s", t))
	}
	fn(cast, settings, target, scale, filter, comTransform2, creator1, creator2, c)
}

// CastShapeVsShapeWorldSpace moves a world space cast into the centre of
// mass space of target and dispatches it.
func CastShapeVsShapeWorldSpace(cast ShapeCast, settings ShapeCastSettings, target Shape, scale v3.Vec, filter ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 SubShapeIDCreator, c CastShapeCollector) {
	local := cast.PostTransformed(comTransform2.Inverse())
	CastShapeVsShape(local, settings, target, scale, filter, comTransform2, creator1, creator2, c)
}

// CastLeafVsShape is the cast routine for leaf cast shapes: the target
// performs the sweep.
func CastLeafVsShape(cast ShapeCast, settings ShapeCastSettings, target Shape, scale v3.Vec, filter ShapeFilter,
	comTransform2 geom.Transform, creator1, creator2 SubShapeIDCreator, c CastShapeCollector) {
	target.CastShape(cast, settings, scale, filter, comTransform2, creator1, creator2, c)
}

// ReverseCollector feeds results to an inner collector with shape 1 and
// shape 2 swapped. It lets a "shape vs X" routine reuse an "X vs shape"
// routine.
type ReverseCollector struct {
	CollideShapeCollector
}

func (r ReverseCollector) AddHit(hit CollideShapeResult) {
	r.CollideShapeCollector.AddHit(hit.Reversed())
}
