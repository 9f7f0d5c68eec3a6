// Package compound implements StaticCompound, an immutable group of child
// shapes each with its own rotation and position.
package compound

import (
	"fmt"
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// SubShapeSettings places one child in the compound's shape space.
type SubShapeSettings struct {
	Shape    shape.Shape
	Rotation mgl64.Quat
	Position v3.Vec
}

// child is a placed child, positioned relative to the compound centre of
// mass.
type child struct {
	shape       shape.Shape
	rotation    mgl64.Quat
	positionCOM v3.Vec
	// bounds of the child in the compound centre of mass space, unscaled.
	bounds geom.AABox
}

// transform places the child in the compound centre of mass space under
// scale. Only valid for scales accepted by IsValidScale.
func (c *child) transform(scale v3.Vec) geom.Transform {
	return geom.Transform{Rotation: c.rotation, Position: c.positionCOM.Mul(scale)}
}

// StaticCompound is a compound whose children never change after
// construction. Hits carry the child index in the low sub-shape ID bits.
type StaticCompound struct {
	shape.Base
	children     []child
	centerOfMass v3.Vec
	localBounds  geom.AABox
	childBits    uint
}

var _ shape.Shape = (*StaticCompound)(nil)

// NewStaticCompound builds a compound from at least two children.
func NewStaticCompound(settings []SubShapeSettings) (*StaticCompound, error) {
	if len(settings) < 2 {
		return nil, shape.NewConstructionError(shape.SubTypeStaticCompound, shape.CodeTooFewChildren, "need at least 2 children, got %d", len(settings))
	}
	for i, s := range settings {
		if s.Shape == nil {
			return nil, shape.NewConstructionError(shape.SubTypeStaticCompound, shape.CodeMissingInnerShape, "child %d has no shape", i)
		}
		if math.Abs(s.Rotation.Len()-1) > 1e-5 {
			return nil, shape.NewConstructionError(shape.SubTypeStaticCompound, shape.CodeInvalidRotation, "child %d rotation %v is not normalized", i, s.Rotation)
		}
	}

	// Mass weighted centre of mass; children without mass (terrain) do not
	// move it.
	var com v3.Vec
	var mass float64
	for _, s := range settings {
		m := s.Shape.MassProperties().Mass
		com = com.Add(childCenterOfMass(s).MulScalar(m))
		mass += m
	}
	if mass > 0 {
		com = com.DivScalar(mass)
	}

	c := &StaticCompound{Base: shape.NewBase(shape.SubTypeStaticCompound), centerOfMass: com}
	for _, s := range settings {
		c.children = append(c.children, child{
			shape:       s.Shape,
			rotation:    s.Rotation,
			positionCOM: childCenterOfMass(s).Sub(com),
		})
	}
	if err := c.finalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func childCenterOfMass(s SubShapeSettings) v3.Vec {
	return s.Position.Add(geom.Rotate(s.Rotation, s.Shape.CenterOfMass()))
}

// finalize computes the derived state shared by construction and restore.
func (c *StaticCompound) finalize() error {
	c.childBits = shape.BitsForCount(len(c.children))
	var maxChildBits uint
	c.localBounds = geom.EmptyAABox()
	for i := range c.children {
		ch := &c.children[i]
		ch.bounds = ch.shape.WorldSpaceBounds(ch.transform(geom.Splat(1)), geom.Splat(1))
		c.localBounds = geom.Union(c.localBounds, ch.bounds)
		maxChildBits = max(maxChildBits, ch.shape.SubShapeIDBitsRecursive())
	}
	if total := c.childBits + maxChildBits; total > shape.MaxSubShapeIDBits {
		return shape.NewConstructionError(shape.SubTypeStaticCompound, shape.CodeSubShapeIDBitsExceeded,
			"%d child index bits + %d child bits exceed %d", c.childBits, maxChildBits, shape.MaxSubShapeIDBits)
	}
	return nil
}

// NumChildren returns the number of children.
func (c *StaticCompound) NumChildren() int { return len(c.children) }

// Child returns child i, its rotation and its position relative to the
// compound centre of mass.
func (c *StaticCompound) Child(i int) (shape.Shape, mgl64.Quat, v3.Vec) {
	ch := &c.children[i]
	return ch.shape, ch.rotation, ch.positionCOM
}

// ChildIndex splits a sub-shape ID into the child index and the remainder
// for that child. It panics on IDs this compound did not produce, including
// the EmptySubShapeID a query leaves behind when it finds no hit.
func (c *StaticCompound) ChildIndex(id shape.SubShapeID) (int, shape.SubShapeID) {
	v, rest := id.PopID(c.childBits)
	if int(v) >= len(c.children) {
		panic(fmt.Sprintf("compound: sub-shape ID %#x addresses child %d of %d", uint32(id), v, len(c.children)))
	}
	return int(v), rest
}

func (c *StaticCompound) pushChild(creator shape.SubShapeIDCreator, i int) shape.SubShapeIDCreator {
	return creator.PushID(uint32(i), c.childBits)
}

// overlapping returns the indices of children whose scaled bounds touch
// box, both in the compound centre of mass space.
func (c *StaticCompound) overlapping(box geom.AABox, scale v3.Vec) []int {
	return lo.Filter(lo.Range(len(c.children)), func(i int, _ int) bool {
		return geom.Overlaps(geom.Scaled(c.children[i].bounds, scale), box)
	})
}

func (c *StaticCompound) CenterOfMass() v3.Vec    { return c.centerOfMass }
func (c *StaticCompound) LocalBounds() geom.AABox { return c.localBounds }

func (c *StaticCompound) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	b := geom.EmptyAABox()
	for i := range c.children {
		ch := &c.children[i]
		b = geom.Union(b, ch.shape.WorldSpaceBounds(t.Mul(ch.transform(scale)), scale))
	}
	return b
}

func (c *StaticCompound) MassProperties() shape.MassProperties {
	var mp shape.MassProperties
	for i := range c.children {
		ch := &c.children[i]
		mp = mp.Add(ch.shape.MassProperties().Rotate(ch.rotation).Translate(ch.positionCOM))
	}
	return mp
}

func (c *StaticCompound) Volume() float64 {
	return lo.SumBy(c.children, func(ch child) float64 { return ch.shape.Volume() })
}

func (c *StaticCompound) SubShapeIDBitsRecursive() uint {
	var bits uint
	for i := range c.children {
		bits = max(bits, c.children[i].shape.SubShapeIDBitsRecursive())
	}
	return c.childBits + bits
}

func (c *StaticCompound) Material(id shape.SubShapeID) *shape.Material {
	i, rest := c.ChildIndex(id)
	return c.children[i].shape.Material(rest)
}

func (c *StaticCompound) SurfaceNormal(id shape.SubShapeID, p v3.Vec) v3.Vec {
	i, rest := c.ChildIndex(id)
	t := c.children[i].transform(geom.Splat(1))
	return t.ApplyDirection(c.children[i].shape.SurfaceNormal(rest, t.InverseApply(p)))
}

// IsValidScale accepts uniform scales, or any scale when no child is
// rotated.
func (c *StaticCompound) IsValidScale(scale v3.Vec) bool {
	uniform := geom.IsUniform(scale.Abs(), 1e-6)
	for i := range c.children {
		ch := &c.children[i]
		if !uniform && !geom.IsIdentityRotation(ch.rotation, 1e-6) {
			return false
		}
		if !ch.shape.IsValidScale(scale) {
			return false
		}
	}
	return true
}

func (c *StaticCompound) CastRay(ray shape.RayCast, creator shape.SubShapeIDCreator, hit *shape.RayCastResult) bool {
	inv := geom.NewRayInvDirection(ray.Direction)
	found := false
	for i := range c.children {
		ch := &c.children[i]
		if geom.RayAABox(ray.Origin, inv, ch.bounds) >= hit.Fraction {
			continue
		}
		local := ray.Transformed(ch.transform(geom.Splat(1)).Inverse())
		if ch.shape.CastRay(local, c.pushChild(creator, i), hit) {
			found = true
		}
	}
	return found
}

func (c *StaticCompound) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, creator shape.SubShapeIDCreator, col shape.RayCastCollector, filter shape.ShapeFilter) {
	inv := geom.NewRayInvDirection(ray.Direction)
	for i := range c.children {
		if col.ShouldEarlyOut() {
			return
		}
		ch := &c.children[i]
		if geom.RayAABox(ray.Origin, inv, ch.bounds) >= col.EarlyOutFraction() {
			continue
		}
		local := ray.Transformed(ch.transform(geom.Splat(1)).Inverse())
		ch.shape.CastRayCollect(local, settings, c.pushChild(creator, i), col, filter)
	}
}

func (c *StaticCompound) CollidePoint(p v3.Vec, creator shape.SubShapeIDCreator, col shape.CollidePointCollector, filter shape.ShapeFilter) {
	for i := range c.children {
		if col.ShouldEarlyOut() {
			return
		}
		ch := &c.children[i]
		if !geom.Contains(ch.bounds, p) {
			continue
		}
		ch.shape.CollidePoint(ch.transform(geom.Splat(1)).InverseApply(p), c.pushChild(creator, i), col, filter)
	}
}

// CastShape sweeps a cast against every child whose bounds the sweep
// touches.
func (c *StaticCompound) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, scale v3.Vec, filter shape.ShapeFilter, comTransform2 geom.Transform, creator1, creator2 shape.SubShapeIDCreator, col shape.CastShapeCollector) {
	for _, i := range c.overlapping(cast.ShapeWorldBounds, scale) {
		if col.ShouldEarlyOut() {
			return
		}
		ch := &c.children[i]
		t := ch.transform(scale)
		local := cast.PostTransformed(t.Inverse())
		shape.CastShapeVsShape(local, settings, ch.shape, scale, filter, comTransform2.Mul(t), creator1, c.pushChild(creator2, i), col)
	}
}

func (c *StaticCompound) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, col shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	t := geom.Transform{Rotation: rot, Position: pos}
	for i := range c.children {
		if col.ShouldEarlyOut() {
			return
		}
		ch := &c.children[i]
		ct := t.Mul(ch.transform(scale))
		ch.shape.CollectTransformedShapes(box, ct.Position, ct.Rotation, scale, c.pushChild(creator, i), col, filter)
	}
}

func (c *StaticCompound) SaveBinaryState(out *shape.StreamOut) {
	c.Base.SaveBinaryState(out)
	out.WriteVec3(c.centerOfMass)
	out.WriteUint32(uint32(len(c.children)))
	for i := range c.children {
		out.WriteQuat(c.children[i].rotation)
		out.WriteVec3(c.children[i].positionCOM)
	}
}

func (c *StaticCompound) RestoreBinaryState(in *shape.StreamIn) {
	c.Base.RestoreBinaryState(in)
	c.centerOfMass = in.ReadVec3()
	n := in.ReadUint32()
	if in.Err() != nil {
		return
	}
	if n < 2 {
		in.Fail(fmt.Errorf("compound: restore: invalid child count %d", n))
		return
	}
	c.children = make([]child, 0, min(n, 1024))
	for i := uint32(0); i < n && in.Err() == nil; i++ {
		c.children = append(c.children, child{rotation: in.ReadQuat(), positionCOM: in.ReadVec3()})
	}
}

func (c *StaticCompound) SaveSubShapeState(subShapes *[]shape.Shape) {
	for i := range c.children {
		*subShapes = append(*subShapes, c.children[i].shape)
	}
}

func (c *StaticCompound) RestoreSubShapeState(subShapes []shape.Shape) {
	if len(subShapes) != len(c.children) {
		panic(fmt.Sprintf("compound: restore: got %d sub shapes for %d children", len(subShapes), len(c.children)))
	}
	for i, s := range subShapes {
		c.children[i].shape = s
	}
	if err := c.finalize(); err != nil {
		panic(err)
	}
}
