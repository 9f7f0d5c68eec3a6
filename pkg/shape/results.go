package shape

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// FloatEpsilon is the float32 machine epsilon; fractions start just above 1
// by this much so hits at exactly the end of a ray are still reported.
const FloatEpsilon = 1.1920929e-07

// MinPositiveFraction is the smallest normal float32. Early-out propagation
// of shape casts never drops below it.
const MinPositiveFraction = 0x1p-126

// RayCast is a ray in some space. Direction is not normalized: its length
// is the maximum distance, and hit fractions are relative to it.
type RayCast struct {
	Origin    v3.Vec
	Direction v3.Vec
}

// PointAt returns the point at fraction f along the ray.
func (r RayCast) PointAt(f float64) v3.Vec {
	return r.Origin.Add(r.Direction.MulScalar(f))
}

// Transformed applies t to the ray.
func (r RayCast) Transformed(t geom.Transform) RayCast {
	o := t.Apply(r.Origin)
	return RayCast{Origin: o, Direction: t.Apply(r.Origin.Add(r.Direction)).Sub(o)}
}

// Scaled divides the ray by scale, moving it into unscaled shape space.
func (r RayCast) Scaled(scale v3.Vec) RayCast {
	return RayCast{Origin: r.Origin.Div(scale), Direction: r.Direction.Div(scale)}
}

// RayCastResult is a ray hit. Fraction is relative to the ray direction.
type RayCastResult struct {
	BodyID      BodyID
	Fraction    float64
	SubShapeID2 SubShapeID
}

// NewRayCastResult returns a result that accepts any hit up to the end of
// the ray.
func NewRayCastResult() RayCastResult {
	return RayCastResult{BodyID: InvalidBodyID, Fraction: 1 + FloatEpsilon, SubShapeID2: EmptySubShapeID}
}

func (r RayCastResult) EarlyOutFraction() float64 { return r.Fraction }

// CollidePointResult reports that a point lies inside a shape.
type CollidePointResult struct {
	BodyID      BodyID
	SubShapeID2 SubShapeID
}

func (r CollidePointResult) EarlyOutFraction() float64 { return 0 }

// CollideShapeResult is an overlap between shape 1 and shape 2 in world
// space. PenetrationAxis points from shape 1 towards shape 2: moving shape 2
// along it resolves the overlap.
type CollideShapeResult struct {
	ContactPointOn1  v3.Vec
	ContactPointOn2  v3.Vec
	PenetrationAxis  v3.Vec
	PenetrationDepth float64
	SubShapeID1      SubShapeID
	SubShapeID2      SubShapeID
	BodyID2          BodyID
}

// EarlyOutFraction is the negated depth so deeper hits sort first.
func (r CollideShapeResult) EarlyOutFraction() float64 { return -r.PenetrationDepth }

// Reversed swaps the roles of shape 1 and shape 2.
func (r CollideShapeResult) Reversed() CollideShapeResult {
	return CollideShapeResult{
		ContactPointOn1:  r.ContactPointOn2,
		ContactPointOn2:  r.ContactPointOn1,
		PenetrationAxis:  r.PenetrationAxis.Neg(),
		PenetrationDepth: r.PenetrationDepth,
		SubShapeID1:      r.SubShapeID2,
		SubShapeID2:      r.SubShapeID1,
		BodyID2:          r.BodyID2,
	}
}

// ShapeCastResult is a sweep hit. Fraction is along the cast direction; at
// fraction 0 the shapes overlapped initially and PenetrationDepth says how
// much.
type ShapeCastResult struct {
	CollideShapeResult
	Fraction      float64
	IsBackFaceHit bool
}

// EarlyOutFraction is the fraction, or the negated depth for initial
// overlaps, so that deeper initial overlaps win.
func (r ShapeCastResult) EarlyOutFraction() float64 {
	if r.Fraction > 0 {
		return r.Fraction
	}
	return -r.PenetrationDepth
}

// TransformedShape pairs a shape with a world placement for the duration of
// a query. PositionCOM is the world position of the centre of mass.
type TransformedShape struct {
	PositionCOM       v3.Vec
	Rotation          mgl64.Quat
	Shape             Shape
	Scale             v3.Vec
	BodyID            BodyID
	SubShapeIDCreator SubShapeIDCreator
}

func (ts TransformedShape) EarlyOutFraction() float64 { return 0 }

// maxFloat is the early-out fraction meaning "accept anything".
const maxFloat = math.MaxFloat64
