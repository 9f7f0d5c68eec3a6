package decorated

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Scaled stretches its inner shape by a per-axis scale around the inner
// centre of mass.
type Scaled struct {
	decorator
	scale v3.Vec
}

var _ shape.Shape = (*Scaled)(nil)

// NewScaled wraps inner with scale. Every component must be non-zero, the
// scale must not mirror (negative determinant) and inner must accept it.
func NewScaled(inner shape.Shape, scale v3.Vec) (*Scaled, error) {
	d, err := newDecorator(shape.SubTypeScaled, inner)
	if err != nil {
		return nil, err
	}
	if scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return nil, shape.NewConstructionError(shape.SubTypeScaled, shape.CodeInvalidScale, "scale %v has a zero component", scale)
	}
	if scale.X*scale.Y*scale.Z < 0 {
		return nil, shape.NewConstructionError(shape.SubTypeScaled, shape.CodeInvalidScale, "scale %v mirrors the shape", scale)
	}
	if !inner.IsValidScale(scale) {
		return nil, shape.NewConstructionError(shape.SubTypeScaled, shape.CodeInvalidScale, "scale %v is not valid for %s", scale, inner.SubType())
	}
	return &Scaled{decorator: d, scale: scale}, nil
}

func (s *Scaled) Scale() v3.Vec { return s.scale }

func (s *Scaled) CenterOfMass() v3.Vec { return s.inner.CenterOfMass().Mul(s.scale) }

func (s *Scaled) LocalBounds() geom.AABox {
	return geom.Scaled(s.inner.LocalBounds(), s.scale)
}

func (s *Scaled) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	return s.inner.WorldSpaceBounds(t, scale.Mul(s.scale))
}

func (s *Scaled) MassProperties() shape.MassProperties {
	return s.inner.MassProperties().Scale(s.scale)
}

func (s *Scaled) Volume() float64 {
	return math.Abs(s.scale.X*s.scale.Y*s.scale.Z) * s.inner.Volume()
}

func (s *Scaled) SurfaceNormal(id shape.SubShapeID, p v3.Vec) v3.Vec {
	n := s.inner.SurfaceNormal(id, p.Div(s.scale))
	return geom.NormalizedOr(n.Div(s.scale), n)
}

func (s *Scaled) IsValidScale(scale v3.Vec) bool {
	return s.inner.IsValidScale(scale.Mul(s.scale))
}

func (s *Scaled) CastRay(ray shape.RayCast, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	return s.inner.CastRay(ray.Scaled(s.scale), creator, hit)
}

func (s *Scaled) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, c shape.RayCastCollector, filter shape.ShapeFilter) {
	s.inner.CastRayCollect(ray.Scaled(s.scale), settings, creator, c, filter)
}

func (s *Scaled) CollidePoint(p v3.Vec, creator shape.SubShapeIDCreator, c shape.CollidePointCollector, filter shape.ShapeFilter) {
	s.inner.CollidePoint(p.Div(s.scale), creator, c, filter)
}

func (s *Scaled) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale v3.Vec, filter shape.ShapeFilter, comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	s.inner.CastShape(cast, settings, scale.Mul(s.scale), filter, comTransform2, creator1, creator2, c)
}

func (s *Scaled) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, c shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	s.inner.CollectTransformedShapes(box, pos, rot, scale.Mul(s.scale), creator, c, filter)
}

func (s *Scaled) SaveBinaryState(out *shape.StreamOut) {
	s.Base.SaveBinaryState(out)
	out.WriteVec3(s.scale)
}

func (s *Scaled) RestoreBinaryState(in *shape.StreamIn) {
	s.Base.RestoreBinaryState(in)
	s.scale = in.ReadVec3()
}
