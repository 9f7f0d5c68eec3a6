package convex

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Sphere is a sphere centred on its centre of mass.
type Sphere struct {
	base
	radius float64
}

var _ Shape = (*Sphere)(nil)

// NewSphere returns a sphere of the given radius.
func NewSphere(radius float64, opts ...Option) (*Sphere, error) {
	if !(radius > 0) {
		return nil, shape.NewConstructionError(shape.SubTypeSphere, shape.CodeInvalidDimension, "radius must be positive, got %v", radius)
	}
	s := &Sphere{base: newBase(shape.SubTypeSphere, opts), radius: radius}
	if err := s.buildSDF(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sphere) buildSDF() error {
	d, err := sdf.Sphere3D(s.radius)
	if err != nil {
		return shape.NewConstructionError(shape.SubTypeSphere, shape.CodeInvalidDimension, "sdfx.Sphere3D: %v", err)
	}
	s.sdf = d
	return nil
}

func (s *Sphere) Radius() float64 { return s.radius }

func (s *Sphere) LocalBounds() geom.AABox {
	return geom.NewAABox(geom.Splat(-s.radius), geom.Splat(s.radius))
}

func (s *Sphere) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	r := s.radius * math.Abs(scale.X)
	return geom.NewAABox(t.Position.Sub(geom.Splat(r)), t.Position.Add(geom.Splat(r)))
}

func (s *Sphere) MassProperties() shape.MassProperties {
	return shape.SolidSphere(s.radius, s.density)
}

func (s *Sphere) Volume() float64 {
	return 4.0 / 3.0 * math.Pi * s.radius * s.radius * s.radius
}

func (s *Sphere) SurfaceNormal(_ shape.SubShapeID, p v3.Vec) v3.Vec {
	return geom.NormalizedOr(p, geom.AxisY)
}

// IsValidScale accepts uniform scales only.
func (s *Sphere) IsValidScale(scale v3.Vec) bool {
	return geom.IsUniform(scale.Abs(), 1e-6) && !geom.IsNearZero(scale, 0)
}

func (s *Sphere) Geometry(t geom.Transform, scale v3.Vec) Geometry {
	return SphereGeometry(t.Position, s.radius*math.Abs(scale.X))
}

func (s *Sphere) rayInterval(ray shape.RayCast) rayInterval {
	// |o + t·d|² = r²
	a := ray.Direction.Length2()
	b := ray.Origin.Dot(ray.Direction)
	c := ray.Origin.Length2() - s.radius*s.radius
	if a == 0 {
		return rayInterval{ok: c <= 0, enter: 0, exit: 0}
	}
	disc := b*b - a*c
	if disc < 0 {
		return rayInterval{}
	}
	sq := math.Sqrt(disc)
	return rayInterval{enter: (-b - sq) / a, exit: (-b + sq) / a, ok: true}
}

func (s *Sphere) CastRay(ray shape.RayCast, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	return castRay(s.rayInterval(ray), creator, hit)
}

func (s *Sphere) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, c shape.RayCastCollector, filter shape.ShapeFilter) {
	castRayCollect(s.rayInterval(ray), settings, creator, c, filter)
}

func (s *Sphere) CollidePoint(p v3.Vec, creator shape.SubShapeIDCreator, c shape.CollidePointCollector, filter shape.ShapeFilter) {
	collidePoint(&s.base, p, creator, c, filter)
}

func (s *Sphere) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale v3.Vec, filter shape.ShapeFilter, comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	castConvexVsConvex(cast, settings, s, scale, filter, comTransform2, creator1, creator2, c)
}

func (s *Sphere) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, c shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	collectTransformedShapes(s, box, pos, rot, scale, creator, c, filter)
}

func (s *Sphere) SaveBinaryState(out *shape.StreamOut) {
	s.saveBase(out)
	out.WriteFloat(s.radius)
}

func (s *Sphere) RestoreBinaryState(in *shape.StreamIn) {
	s.restoreBase(in)
	s.radius = in.ReadFloat()
	if in.Err() != nil {
		return
	}
	if err := s.buildSDF(); err != nil {
		in.Fail(err)
	}
}
