// Package convex implements the convex leaf shapes (sphere and box) and the
// convex routines shared by every shape that collides with them: overlap
// and sweep between convex primitives, and convex-vs-triangle tests used by
// terrain.
package convex

import (
	"fmt"
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultDensity is the density used when none is given, in kg/m³.
const DefaultDensity = 1000.0

// Shape is implemented by every convex leaf shape.
type Shape interface {
	shape.Shape
	// Geometry returns the shape scaled by scale and placed by t.
	Geometry(t geom.Transform, scale v3.Vec) Geometry
	// SDF returns the signed distance function of the unscaled shape.
	SDF() sdf.SDF3
}

// Option configures a convex shape at construction.
type Option func(*base)

// WithDensity sets the density used for mass properties.
func WithDensity(d float64) Option {
	return func(b *base) { b.density = d }
}

// WithMaterial assigns a surface material.
func WithMaterial(m *shape.Material) Option {
	return func(b *base) { b.material = m }
}

// base holds what sphere and box share: density, material and the signed
// distance function used for point containment.
type base struct {
	shape.Base
	density  float64
	material *shape.Material
	sdf      sdf.SDF3
}

func newBase(st shape.SubType, opts []Option) base {
	b := base{Base: shape.NewBase(st), density: DefaultDensity}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b *base) Density() float64              { return b.density }
func (b *base) SDF() sdf.SDF3                 { return b.sdf }
func (b *base) SubShapeIDBitsRecursive() uint { return 0 }
func (b *base) CenterOfMass() v3.Vec          { return v3.Vec{} }
func (b *base) Material(shape.SubShapeID) *shape.Material {
	return shape.MaterialOrDefault(b.material)
}

func (b *base) SaveMaterialState(materials *[]*shape.Material) {
	*materials = append(*materials, b.material)
}

func (b *base) RestoreMaterialState(materials []*shape.Material) {
	if len(materials) != 1 {
		panic(fmt.Sprintf("convex: expected 1 material, got %d", len(materials)))
	}
	b.material = materials[0]
}

func (b *base) saveBase(out *shape.StreamOut) {
	b.Base.SaveBinaryState(out)
	out.WriteFloat(b.density)
}

func (b *base) restoreBase(in *shape.StreamIn) {
	b.Base.RestoreBinaryState(in)
	b.density = in.ReadFloat()
}

// containsPoint evaluates the signed distance function at the unscaled
// local point p.
func (b *base) containsPoint(p v3.Vec) bool {
	return b.sdf.Evaluate(p) <= 0
}

func collidePoint(b *base, p v3.Vec, creator shape.SubShapeIDCreator, c shape.CollidePointCollector, filter shape.ShapeFilter) {
	if !filter.ShouldCollideSubShape(creator.ID()) {
		return
	}
	if b.containsPoint(p) {
		c.AddHit(shape.CollidePointResult{BodyID: c.Context(), SubShapeID2: creator.ID()})
	}
}

func collectTransformedShapes(s Shape, box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, c shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	shape.CollectLeaf(s, box, pos, rot, scale, creator, c, filter)
}

// rayInterval is the entry and exit fraction of a ray through a convex
// shape. ok is false when the ray line misses.
type rayInterval struct {
	enter, exit float64
	ok          bool
}

// castRay applies the single-hit ray contract to an interval: a ray
// starting inside reports fraction 0.
func castRay(iv rayInterval, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	if !iv.ok || iv.exit < 0 {
		return false
	}
	f := math.Max(0, iv.enter)
	if f >= hit.Fraction {
		return false
	}
	hit.Fraction = f
	hit.SubShapeID2 = creator.ID()
	return true
}

// castRayCollect reports the entry hit (or fraction 0 for a solid shape
// the ray starts in) and, when back faces are wanted, the exit hit.
func castRayCollect(iv rayInterval, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, c shape.RayCastCollector, filter shape.ShapeFilter) {
	if !filter.ShouldCollideSubShape(creator.ID()) {
		return
	}
	if !iv.ok || iv.exit < 0 || iv.enter >= c.EarlyOutFraction() {
		return
	}
	hit := shape.RayCastResult{BodyID: c.Context(), SubShapeID2: creator.ID()}
	if settings.TreatConvexAsSolid || iv.enter > 0 {
		hit.Fraction = math.Max(0, iv.enter)
		c.AddHit(hit)
	}
	if settings.BackFaceMode == shape.CollideWithBackFaces && iv.exit > iv.enter && iv.exit < c.EarlyOutFraction() {
		hit.Fraction = iv.exit
		c.AddHit(hit)
	}
}
