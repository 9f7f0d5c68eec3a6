package decorated

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

const rotationTolerance = 1e-5

// RotatedTranslated places its inner shape at a position and rotation
// relative to the decorator's own frame.
type RotatedTranslated struct {
	decorator
	rotation mgl64.Quat
	// centerOfMass is position + rotation·inner centre of mass.
	centerOfMass v3.Vec
}

var _ shape.Shape = (*RotatedTranslated)(nil)

// NewRotatedTranslated places inner at position with rotation, which must
// be a unit quaternion.
func NewRotatedTranslated(position v3.Vec, rotation mgl64.Quat, inner shape.Shape) (*RotatedTranslated, error) {
	d, err := newDecorator(shape.SubTypeRotatedTranslated, inner)
	if err != nil {
		return nil, err
	}
	if math.Abs(rotation.Len()-1) > rotationTolerance {
		return nil, shape.NewConstructionError(shape.SubTypeRotatedTranslated, shape.CodeInvalidRotation, "rotation %v is not normalized", rotation)
	}
	com := position.Add(geom.Rotate(rotation, inner.CenterOfMass()))
	return &RotatedTranslated{decorator: d, rotation: rotation, centerOfMass: com}, nil
}

func (r *RotatedTranslated) Rotation() mgl64.Quat { return r.rotation }

// Position returns the translation of the inner shape.
func (r *RotatedTranslated) Position() v3.Vec {
	return r.centerOfMass.Sub(geom.Rotate(r.rotation, r.inner.CenterOfMass()))
}

func (r *RotatedTranslated) CenterOfMass() v3.Vec { return r.centerOfMass }

// rot maps the inner centre of mass space into ours; the two share an
// origin.
func (r *RotatedTranslated) rot() geom.Transform {
	return geom.Transform{Rotation: r.rotation}
}

func (r *RotatedTranslated) LocalBounds() geom.AABox {
	return geom.Transformed(r.inner.LocalBounds(), r.rot())
}

func (r *RotatedTranslated) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	return r.inner.WorldSpaceBounds(t.Mul(r.rot()), scale)
}

func (r *RotatedTranslated) MassProperties() shape.MassProperties {
	return r.inner.MassProperties().Rotate(r.rotation)
}

func (r *RotatedTranslated) SurfaceNormal(id shape.SubShapeID, p v3.Vec) v3.Vec {
	n := r.inner.SurfaceNormal(id, r.rot().InverseApply(p))
	return r.rot().ApplyDirection(n)
}

// IsValidScale accepts uniform scales, and any scale when the rotation is
// the identity.
func (r *RotatedTranslated) IsValidScale(scale v3.Vec) bool {
	if !geom.IsUniform(scale.Abs(), 1e-6) && !geom.IsIdentityRotation(r.rotation, 1e-6) {
		return false
	}
	return r.inner.IsValidScale(scale)
}

func (r *RotatedTranslated) CastRay(ray shape.RayCast, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	return r.inner.CastRay(ray.Transformed(r.rot().Inverse()), creator, hit)
}

func (r *RotatedTranslated) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, c shape.RayCastCollector, filter shape.ShapeFilter) {
	r.inner.CastRayCollect(ray.Transformed(r.rot().Inverse()), settings, creator, c, filter)
}

func (r *RotatedTranslated) CollidePoint(p v3.Vec, creator shape.SubShapeIDCreator, c shape.CollidePointCollector, filter shape.ShapeFilter) {
	r.inner.CollidePoint(r.rot().InverseApply(p), creator, c, filter)
}

func (r *RotatedTranslated) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale v3.Vec, filter shape.ShapeFilter, comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, c shape.CastShapeCollector) {
	local := cast.PostTransformed(r.rot().Inverse())
	r.inner.CastShape(local, settings, scale, filter, comTransform2.Mul(r.rot()), creator1, creator2, c)
}

func (r *RotatedTranslated) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, c shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	r.inner.CollectTransformedShapes(box, pos, rot.Mul(r.rotation).Normalize(), scale, creator, c, filter)
}

func (r *RotatedTranslated) SaveBinaryState(out *shape.StreamOut) {
	r.Base.SaveBinaryState(out)
	out.WriteVec3(r.centerOfMass)
	out.WriteQuat(r.rotation)
}

func (r *RotatedTranslated) RestoreBinaryState(in *shape.StreamIn) {
	r.Base.RestoreBinaryState(in)
	r.centerOfMass = in.ReadVec3()
	r.rotation = in.ReadQuat()
}
