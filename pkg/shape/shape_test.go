package shape

import (
	"bytes"
	"math"
	"testing"

	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// stubShape is a minimal leaf used to exercise the dispatcher and the
// serialization helpers without importing the concrete shape packages.
type stubShape struct {
	Base
	children  []Shape
	materials []*Material
	calls     *int
}

var _ Shape = (*stubShape)(nil)

func (s *stubShape) CenterOfMass() v3.Vec { return v3.Vec{} }
func (s *stubShape) LocalBounds() geom.AABox {
	return geom.NewAABox(geom.Splat(-1), geom.Splat(1))
}
func (s *stubShape) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	return DefaultWorldSpaceBounds(s, t, scale)
}
func (s *stubShape) MassProperties() MassProperties          { return MassProperties{} }
func (s *stubShape) Volume() float64                         { return 8 }
func (s *stubShape) SubShapeIDBitsRecursive() uint           { return 0 }
func (s *stubShape) Material(SubShapeID) *Material           { return DefaultMaterial }
func (s *stubShape) SurfaceNormal(SubShapeID, v3.Vec) v3.Vec { return geom.AxisY }
func (s *stubShape) IsValidScale(v3.Vec) bool                { return true }
func (s *stubShape) CastRay(RayCast, SubShapeIDCreator, *RayCastResult) bool {
	return false
}
func (s *stubShape) CastRayCollect(RayCast, RayCastSettings, SubShapeIDCreator, RayCastCollector, ShapeFilter) {
}
func (s *stubShape) CollidePoint(v3.Vec, SubShapeIDCreator, CollidePointCollector, ShapeFilter) {}
func (s *stubShape) CastShape(ShapeCast, ShapeCastSettings, v3.Vec, ShapeFilter, geom.Transform, SubShapeIDCreator, SubShapeIDCreator, CastShapeCollector) {
	if s.calls != nil {
		*s.calls++
	}
}
func (s *stubShape) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator SubShapeIDCreator, c TransformedShapeCollector, filter ShapeFilter) {
	CollectLeaf(s, box, pos, rot, scale, creator, c, filter)
}
func (s *stubShape) SaveSubShapeState(out *[]Shape)      { *out = append(*out, s.children...) }
func (s *stubShape) RestoreSubShapeState(in []Shape)     { s.children = in }
func (s *stubShape) SaveMaterialState(out *[]*Material)  { *out = append(*out, s.materials...) }
func (s *stubShape) RestoreMaterialState(in []*Material) { s.materials = in }

func init() {
	RegisterFactory(SubTypeSphere, func() Shape { return &stubShape{Base: NewBase(SubTypeSphere)} })
}

func TestSubShapeIDPushPop(t *testing.T) {
	c := NewSubShapeIDCreator()
	c = c.PushID(5, 3)
	c = c.PushID(1, 1)
	c = c.PushID(1000, 12)
	if c.NumBitsWritten() != 16 {
		t.Fatalf("bits written: got %d, want 16", c.NumBitsWritten())
	}

	id := c.ID()
	v, rest := id.PopID(3)
	if v != 5 {
		t.Fatalf("first pop: got %d, want 5", v)
	}
	v, rest = rest.PopID(1)
	if v != 1 {
		t.Fatalf("second pop: got %d, want 1", v)
	}
	v, rest = rest.PopID(12)
	if v != 1000 {
		t.Fatalf("third pop: got %d, want 1000", v)
	}
	if !rest.IsEmpty() {
		t.Fatalf("remainder should be empty, got %#x", uint32(rest))
	}
}

func TestSubShapeIDOverflowPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{"too many bits", func() { NewSubShapeIDCreator().PushID(0, 20).PushID(0, 13) }},
		{"value does not fit", func() { NewSubShapeIDCreator().PushID(8, 3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestBitsForCount(t *testing.T) {
	tests := []struct {
		n    int
		want uint
	}{{1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {256, 8}, {257, 9}}
	for _, tt := range tests {
		if got := BitsForCount(tt.n); got != tt.want {
			t.Errorf("BitsForCount(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestClosestHitEarlyOutMonotonic(t *testing.T) {
	c := NewClosestHitCollector[RayCastResult](RayTraits)
	prev := c.EarlyOutFraction()
	for _, f := range []float64{0.9, 0.95, 0.4, 0.7, 0.2, 0.3} {
		c.AddHit(RayCastResult{Fraction: f})
		if c.EarlyOutFraction() > prev {
			t.Fatalf("early-out regressed from %v to %v after hit %v", prev, c.EarlyOutFraction(), f)
		}
		prev = c.EarlyOutFraction()
	}
	if c.Hit.Fraction != 0.2 {
		t.Fatalf("closest hit: got %v, want 0.2", c.Hit.Fraction)
	}
}

func TestUpdateEarlyOutRegressionPanics(t *testing.T) {
	c := NewAllHitCollector[ShapeCastResult](CastShapeTraits)
	c.UpdateEarlyOutFraction(0.5)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic when raising the early-out fraction")
		}
	}()
	c.UpdateEarlyOutFraction(0.6)
}

func TestCollectorTraits(t *testing.T) {
	ray := NewAnyHitCollector[RayCastResult](RayTraits)
	if ray.ShouldEarlyOut() {
		t.Fatal("fresh collector should not early out")
	}
	ray.AddHit(RayCastResult{Fraction: 0.5})
	if !ray.ShouldEarlyOut() || !ray.HadHit() {
		t.Fatal("any-hit collector should early out after a hit")
	}

	cast := NewClosestHitCollector[ShapeCastResult](CastShapeTraits)
	cast.AddHit(ShapeCastResult{CollideShapeResult: CollideShapeResult{PenetrationDepth: 0.25}})
	if got := cast.EarlyOutFraction(); got != -0.25 {
		t.Fatalf("cast early-out after penetrating hit: got %v, want -0.25", got)
	}
	if cast.ShouldEarlyOut() {
		t.Fatal("negative cast fractions should not stop the query")
	}

	all := NewAllHitCollector[CollideShapeResult](CollideTraits)
	all.AddHit(CollideShapeResult{PenetrationDepth: 0.1})
	all.AddHit(CollideShapeResult{PenetrationDepth: 0.3})
	all.Sort()
	if all.Hits[0].PenetrationDepth != 0.3 {
		t.Fatal("deepest hit should sort first")
	}
	all.Reset()
	if all.HadHit() || all.EarlyOutFraction() != math.MaxFloat64 {
		t.Fatal("reset should clear hits and early-out")
	}
}

func TestDispatchPanics(t *testing.T) {
	s := &stubShape{Base: NewBase(SubTypeSphere)}
	tests := []struct {
		name string
		fn   func()
	}{
		{"duplicate registration", func() {
			RegisterCast(TypeConvex, CastLeafVsShape)
			RegisterCast(TypeConvex, CastLeafVsShape)
		}},
		{"missing collide routine", func() {
			c := NewAllHitCollector[CollideShapeResult](CollideTraits)
			CollideShapeVsShape(s, s, geom.Splat(1), geom.Splat(1), geom.Identity(), geom.Identity(),
				NewSubShapeIDCreator(), NewSubShapeIDCreator(), DefaultCollideShapeSettings(), c, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestCastFilterRunsFirst(t *testing.T) {
	calls := 0
	target := &stubShape{Base: NewBase(SubTypeSphere), calls: &calls}
	castShape := &stubShape{Base: NewBase(SubTypeSphere)}
	if castTable[TypeConvex] == nil {
		RegisterCast(TypeConvex, CastLeafVsShape)
	}
	cast := NewShapeCast(castShape, geom.Splat(1), geom.Identity(), v3.Vec{X: 1})
	c := NewAllHitCollector[ShapeCastResult](CastShapeTraits)

	reject := ShapeFilterFunc(func(id1, id2 SubShapeID) bool { return false })
	CastShapeVsShape(cast, DefaultShapeCastSettings(), target, geom.Splat(1), reject, geom.Identity(),
		NewSubShapeIDCreator(), NewSubShapeIDCreator(), c)
	if calls != 0 {
		t.Fatalf("filtered cast reached the target %d times", calls)
	}
	CastShapeVsShape(cast, DefaultShapeCastSettings(), target, geom.Splat(1), nil, geom.Identity(),
		NewSubShapeIDCreator(), NewSubShapeIDCreator(), c)
	if calls != 1 {
		t.Fatalf("unfiltered cast: got %d calls, want 1", calls)
	}
}

func TestSaveRestoreWithChildren(t *testing.T) {
	shared := &Material{Name: "rock"}
	leaf := &stubShape{Base: NewBase(SubTypeSphere), materials: []*Material{shared}}
	leaf.SetUserData(42)
	root := &stubShape{Base: NewBase(SubTypeSphere), children: []Shape{leaf, leaf, nil}, materials: []*Material{shared}}

	var buf bytes.Buffer
	out := NewStreamOut(&buf)
	SaveWithChildren(root, out, ShapeToID{}, MaterialToID{})
	if out.Err() != nil {
		t.Fatalf("save: %v", out.Err())
	}

	var shapes []Shape
	var materials []*Material
	got, err := RestoreWithChildren(NewStreamIn(bytes.NewReader(buf.Bytes())), &shapes, &materials)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	r := got.(*stubShape)
	if len(r.children) != 3 || r.children[0] != r.children[1] || r.children[2] != nil {
		t.Fatalf("children not restored with sharing: %#v", r.children)
	}
	if r.children[0].UserData() != 42 {
		t.Fatalf("user data: got %d, want 42", r.children[0].UserData())
	}
	if len(materials) != 1 || r.materials[0] != r.children[0].(*stubShape).materials[0] {
		t.Fatal("shared material should be restored once")
	}
	if len(shapes) != 2 {
		t.Fatalf("restored %d distinct shapes, want 2", len(shapes))
	}
}

func TestStreamTruncated(t *testing.T) {
	var buf bytes.Buffer
	out := NewStreamOut(&buf)
	out.WriteVec3(v3.Vec{X: 1, Y: 2, Z: 3})
	in := NewStreamIn(bytes.NewReader(buf.Bytes()[:7]))
	in.ReadVec3()
	if in.Err() == nil {
		t.Fatal("expected error for truncated stream")
	}
	if got := in.ReadUint32(); got != 0 {
		t.Fatalf("reads after an error should return zero, got %d", got)
	}
}

func TestMassPropertiesScale(t *testing.T) {
	box := SolidBox(v3.Vec{X: 1, Y: 1, Z: 1}, 1)
	scaled := box.Scale(v3.Vec{X: 2, Y: 1, Z: 1})
	want := SolidBox(v3.Vec{X: 2, Y: 1, Z: 1}, 1)
	if math.Abs(scaled.Mass-want.Mass) > 1e-9 {
		t.Fatalf("mass: got %v, want %v", scaled.Mass, want.Mass)
	}
	for i := 0; i < 3; i++ {
		if math.Abs(scaled.Inertia.At(i, i)-want.Inertia.At(i, i)) > 1e-9 {
			t.Fatalf("inertia[%d]: got %v, want %v", i, scaled.Inertia.At(i, i), want.Inertia.At(i, i))
		}
	}
}

func TestTransformedShapeCollectLeaf(t *testing.T) {
	s := &stubShape{Base: NewBase(SubTypeSphere)}
	ts := NewTransformedShape(v3.Vec{X: 10}, mgl64.QuatIdent(), s, 7)
	c := NewAllHitCollector[TransformedShape](CollideTraits)

	ts.CollectTransformedShapes(geom.NewAABox(geom.Splat(-1), geom.Splat(1)), c, nil)
	if c.HadHit() {
		t.Fatal("far box should not collect the shape")
	}
	ts.CollectTransformedShapes(geom.NewAABox(v3.Vec{X: 8}, v3.Vec{X: 9.5, Y: 1, Z: 1}), c, nil)
	if len(c.Hits) != 1 || c.Hits[0].BodyID != 7 {
		t.Fatalf("expected one hit stamped with body 7, got %+v", c.Hits)
	}
}
