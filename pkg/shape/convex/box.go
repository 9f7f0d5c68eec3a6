package convex

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis aligned box in its local space, centred on its centre of
// mass.
type Box struct {
	base
	half v3.Vec
}

var _ Shape = (*Box)(nil)

// NewBox returns a box with the given half extents.
func NewBox(half v3.Vec, opts ...Option) (*Box, error) {
	if !(half.X > 0 && half.Y > 0 && half.Z > 0) {
		return nil, shape.NewConstructionError(shape.SubTypeBox, shape.CodeInvalidDimension, "half extents must be positive, got %v", half)
	}
	b := &Box{base: newBase(shape.SubTypeBox, opts), half: half}
	if err := b.buildSDF(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Box) buildSDF() error {
	d, err := sdf.Box3D(b.half.MulScalar(2), 0)
	if err != nil {
		return shape.NewConstructionError(shape.SubTypeBox, shape.CodeInvalidDimension, "sdfx.Box3D: %v", err)
	}
	b.sdf = d
	return nil
}

func (b *Box) HalfExtents() v3.Vec { return b.half }

func (b *Box) LocalBounds() geom.AABox {
	return geom.NewAABox(b.half.Neg(), b.half)
}

func (b *Box) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	return shape.DefaultWorldSpaceBounds(b, t, scale)
}

func (b *Box) MassProperties() shape.MassProperties {
	return shape.SolidBox(b.half, b.density)
}

func (b *Box) Volume() float64 {
	return 8 * b.half.X * b.half.Y * b.half.Z
}

// SurfaceNormal returns the normal of the face p is closest to.
func (b *Box) SurfaceNormal(_ shape.SubShapeID, p v3.Vec) v3.Vec {
	best, bestDist := 0, math.MaxFloat64
	for i := 0; i < 3; i++ {
		d := math.Abs(geom.Component(b.half, i) - math.Abs(geom.Component(p, i)))
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	n := geom.WithComponent(v3.Vec{}, best, 1)
	if geom.Component(p, best) < 0 {
		n = n.Neg()
	}
	return n
}

func (b *Box) IsValidScale(scale v3.Vec) bool {
	return scale.X != 0 && scale.Y != 0 && scale.Z != 0
}

func (b *Box) Geometry(t geom.Transform, scale v3.Vec) Geometry {
	return BoxGeometry(t, b.half.Mul(scale.Abs()))
}

func (b *Box) rayInterval(ray shape.RayCast) rayInterval {
	enter, exit := -math.MaxFloat64, math.MaxFloat64
	for i := 0; i < 3; i++ {
		o := geom.Component(ray.Origin, i)
		d := geom.Component(ray.Direction, i)
		h := geom.Component(b.half, i)
		if math.Abs(d) < 1e-20 {
			if o < -h || o > h {
				return rayInterval{}
			}
			continue
		}
		t1, t2 := (-h-o)/d, (h-o)/d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		enter, exit = math.Max(enter, t1), math.Min(exit, t2)
		if enter > exit {
			return rayInterval{}
		}
	}
	return rayInterval{enter: enter, exit: exit, ok: true}
}

func (b *Box) CastRay(ray shape.RayCast, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	return castRay(b.rayInterval(ray), creator, hit)
}

func (b *Box) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, c shape.RayCastCollector, filter shape.ShapeFilter) {
	castRayCollect(b.rayInterval(ray), settings, creator, c, filter)
}

func (b *Box) CollidePoint(p v3.Vec, creator shape.SubShapeIDCreator, c shape.CollidePointCollector, filter shape.ShapeFilter) {
	collidePoint(&b.base, p, creator, c, filter)
}

func (b *Box) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale v3.Vec, filter shape.ShapeFilter, comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	castConvexVsConvex(cast, settings, b, scale, filter, comTransform2, creator1, creator2, c)
}

func (b *Box) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, c shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	collectTransformedShapes(b, box, pos, rot, scale, creator, c, filter)
}

func (b *Box) SaveBinaryState(out *shape.StreamOut) {
	b.saveBase(out)
	out.WriteVec3(b.half)
}

func (b *Box) RestoreBinaryState(in *shape.StreamIn) {
	b.restoreBase(in)
	b.half = in.ReadVec3()
	if in.Err() != nil {
		return
	}
	if err := b.buildSDF(); err != nil {
		in.Fail(err)
	}
}
