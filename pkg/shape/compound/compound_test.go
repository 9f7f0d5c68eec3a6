package compound

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/chazu/narrowphase/pkg/shape/convex"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

const tol = 1e-6

var unit = geom.Splat(1)

func mustBox(t *testing.T, half v3.Vec, opts ...convex.Option) *convex.Box {
	t.Helper()
	b, err := convex.NewBox(half, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustSphere(t *testing.T, r float64) *convex.Sphere {
	t.Helper()
	s, err := convex.NewSphere(r)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// twoBoxes returns unit boxes centred at x = -2 and x = 2.
func twoBoxes(t *testing.T) *StaticCompound {
	t.Helper()
	box := mustBox(t, unit)
	c, err := NewStaticCompound([]SubShapeSettings{
		{Shape: box, Rotation: mgl64.QuatIdent(), Position: v3.Vec{X: -2}},
		{Shape: box, Rotation: mgl64.QuatIdent(), Position: v3.Vec{X: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestConstructionErrors(t *testing.T) {
	box := mustBox(t, unit)
	tests := []struct {
		name     string
		settings []SubShapeSettings
		code     string
	}{
		{"empty", nil, shape.CodeTooFewChildren},
		{"single", []SubShapeSettings{{Shape: box, Rotation: mgl64.QuatIdent()}}, shape.CodeTooFewChildren},
		{"nil child", []SubShapeSettings{{Shape: box, Rotation: mgl64.QuatIdent()}, {Rotation: mgl64.QuatIdent()}}, shape.CodeMissingInnerShape},
		{"bad rotation", []SubShapeSettings{{Shape: box, Rotation: mgl64.QuatIdent()}, {Shape: box}}, shape.CodeInvalidRotation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewStaticCompound(tt.settings)
			var ce *shape.ConstructionError
			if !errors.As(err, &ce) || c != nil {
				t.Fatalf("got (%v, %v), want a ConstructionError and no shape", c, err)
			}
			if ce.Code != tt.code {
				t.Errorf("code: got %q, want %q", ce.Code, tt.code)
			}
		})
	}
}

func TestSubShapeIDBitsExceeded(t *testing.T) {
	box := mustBox(t, unit)
	c, err := NewStaticCompound([]SubShapeSettings{
		{Shape: box, Rotation: mgl64.QuatIdent()},
		{Shape: box, Rotation: mgl64.QuatIdent(), Position: v3.Vec{X: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Every level of nesting adds one bit.
	for level := 2; ; level++ {
		next, err := NewStaticCompound([]SubShapeSettings{
			{Shape: c, Rotation: mgl64.QuatIdent()},
			{Shape: box, Rotation: mgl64.QuatIdent(), Position: v3.Vec{Y: 3}},
		})
		if err != nil {
			var ce *shape.ConstructionError
			if !errors.As(err, &ce) || ce.Code != shape.CodeSubShapeIDBitsExceeded {
				t.Fatalf("level %d: got %v", level, err)
			}
			if level != shape.MaxSubShapeIDBits+1 {
				t.Fatalf("failed at level %d, want %d", level, shape.MaxSubShapeIDBits+1)
			}
			return
		}
		if got := next.SubShapeIDBitsRecursive(); got != uint(level) {
			t.Fatalf("level %d: %d bits", level, got)
		}
		c = next
	}
}

func TestCenterOfMass(t *testing.T) {
	light := mustBox(t, unit)
	heavy := mustBox(t, unit, convex.WithDensity(3000))
	c, err := NewStaticCompound([]SubShapeSettings{
		{Shape: light, Rotation: mgl64.QuatIdent()},
		{Shape: heavy, Rotation: mgl64.QuatIdent(), Position: v3.Vec{X: 4}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !geom.ApproxEqual(c.CenterOfMass(), v3.Vec{X: 3}, tol) {
		t.Errorf("centre of mass: got %v, want (3, 0, 0)", c.CenterOfMass())
	}
	_, _, pos := c.Child(0)
	if !geom.ApproxEqual(pos, v3.Vec{X: -3}, tol) {
		t.Errorf("child 0 position: got %v, want (-3, 0, 0)", pos)
	}
	if got, want := c.MassProperties().Mass, 32000.0; math.Abs(got-want) > tol*want {
		t.Errorf("mass: got %v, want %v", got, want)
	}
	if got := c.Volume(); math.Abs(got-16) > tol {
		t.Errorf("volume: got %v, want 16", got)
	}
}

func TestCastRayOffCenterOfMass(t *testing.T) {
	steel := &shape.Material{Name: "steel"}
	light := mustBox(t, unit)
	heavy := mustBox(t, unit, convex.WithDensity(3000), convex.WithMaterial(steel))
	c, err := NewStaticCompound([]SubShapeSettings{
		{Shape: light, Rotation: mgl64.QuatIdent()},
		{Shape: heavy, Rotation: mgl64.QuatIdent(), Position: v3.Vec{X: 4}},
	})
	if err != nil {
		t.Fatal(err)
	}
	// Rays are given in the space the children were placed in and moved
	// into centre of mass space, where the boxes span x in [-4, -2] and
	// [0, 2].
	com := c.CenterOfMass()
	tests := []struct {
		name     string
		origin   v3.Vec
		dir      v3.Vec
		child    int
		fract    float64
		material *shape.Material
	}{
		{"from left", v3.Vec{X: -10}, v3.Vec{X: 20}, 0, 0.45, shape.DefaultMaterial},
		{"from right", v3.Vec{X: 10}, v3.Vec{X: -20}, 1, 0.25, steel},
		{"onto light box", v3.Vec{Y: 5}, v3.Vec{Y: -10}, 0, 0.4, shape.DefaultMaterial},
		{"onto heavy box", v3.Vec{X: 4, Y: 5}, v3.Vec{Y: -8}, 1, 0.5, steel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := shape.NewRayCastResult()
			ray := shape.RayCast{Origin: tt.origin.Sub(com), Direction: tt.dir}
			if !c.CastRay(ray, shape.NewSubShapeIDCreator(), &hit) {
				t.Fatal("expected a hit")
			}
			if math.Abs(hit.Fraction-tt.fract) > tol {
				t.Errorf("fraction: got %v, want %v", hit.Fraction, tt.fract)
			}
			if i, rest := c.ChildIndex(hit.SubShapeID2); i != tt.child || !rest.IsEmpty() {
				t.Errorf("child: got %d (rest %#x), want %d", i, uint32(rest), tt.child)
			}
			if m := c.Material(hit.SubShapeID2); m != tt.material {
				t.Errorf("material: got %v, want %v", m.Name, tt.material.Name)
			}
		})
	}

	// x = 2 lies inside the heavy box before the shift and in the gap after.
	hit := shape.NewRayCastResult()
	ray := shape.RayCast{Origin: v3.Vec{X: 2, Y: 5}.Sub(com), Direction: v3.Vec{Y: -10}}
	if c.CastRay(ray, shape.NewSubShapeIDCreator(), &hit) {
		t.Errorf("ray through the gap hit %+v", hit)
	}
}

func TestCastRay(t *testing.T) {
	c := twoBoxes(t)
	tests := []struct {
		name  string
		ray   shape.RayCast
		child int
		fract float64
	}{
		{"from left", shape.RayCast{Origin: v3.Vec{X: -10}, Direction: v3.Vec{X: 20}}, 0, 0.35},
		{"from right", shape.RayCast{Origin: v3.Vec{X: 10}, Direction: v3.Vec{X: -20}}, 1, 0.35},
		{"from above", shape.RayCast{Origin: v3.Vec{X: 2, Y: 5}, Direction: v3.Vec{Y: -8}}, 1, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hit := shape.NewRayCastResult()
			if !c.CastRay(tt.ray, shape.NewSubShapeIDCreator(), &hit) {
				t.Fatal("expected a hit")
			}
			if math.Abs(hit.Fraction-tt.fract) > tol {
				t.Errorf("fraction: got %v, want %v", hit.Fraction, tt.fract)
			}
			if i, rest := c.ChildIndex(hit.SubShapeID2); i != tt.child || !rest.IsEmpty() {
				t.Errorf("child: got %d (rest %#x), want %d", i, uint32(rest), tt.child)
			}
		})
	}

	hit := shape.NewRayCastResult()
	if c.CastRay(shape.RayCast{Origin: v3.Vec{Y: 5}, Direction: v3.Vec{Y: -10}}, shape.NewSubShapeIDCreator(), &hit) {
		t.Error("ray through the gap should miss")
	}

	all := shape.NewAllHitCollector[shape.RayCastResult](shape.RayTraits)
	c.CastRayCollect(shape.RayCast{Origin: v3.Vec{X: -10}, Direction: v3.Vec{X: 20}}, shape.DefaultRayCastSettings(),
		shape.NewSubShapeIDCreator(), all, shape.DefaultShapeFilter{})
	all.Sort()
	if len(all.Hits) != 2 || math.Abs(all.Hits[1].Fraction-0.55) > tol {
		t.Errorf("collect: got %+v, want hits at 0.35 and 0.55", all.Hits)
	}
}

func TestCollidePointAndNormal(t *testing.T) {
	c := twoBoxes(t)
	col := shape.NewAllHitCollector[shape.CollidePointResult](shape.CollideTraits)
	c.CollidePoint(v3.Vec{X: 2, Y: 0.5}, shape.NewSubShapeIDCreator(), col, shape.DefaultShapeFilter{})
	if len(col.Hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(col.Hits))
	}
	id := col.Hits[0].SubShapeID2
	if i, _ := c.ChildIndex(id); i != 1 {
		t.Errorf("child: got %d, want 1", i)
	}
	if n := c.SurfaceNormal(id, v3.Vec{X: 2, Y: 1}); !geom.ApproxEqual(n, v3.Vec{Y: 1}, tol) {
		t.Errorf("normal: got %v, want +Y", n)
	}
	if m := c.Material(id); m != shape.DefaultMaterial {
		t.Errorf("material: got %v", m)
	}
}

func TestCollideBothOrders(t *testing.T) {
	c := twoBoxes(t)
	sphere := mustSphere(t, 1.5)
	settings := shape.DefaultCollideShapeSettings()

	col := shape.NewAllHitCollector[shape.CollideShapeResult](shape.CollideTraits)
	shape.CollideShapeVsShape(sphere, c, unit, unit, geom.Identity(), geom.Identity(),
		shape.NewSubShapeIDCreator(), shape.NewSubShapeIDCreator(), settings, col, nil)
	if len(col.Hits) != 2 {
		t.Fatalf("convex vs compound: got %d hits, want 2", len(col.Hits))
	}
	seen := map[int]bool{}
	for _, h := range col.Hits {
		if math.Abs(h.PenetrationDepth-0.5) > tol {
			t.Errorf("depth: got %v, want 0.5", h.PenetrationDepth)
		}
		i, _ := c.ChildIndex(h.SubShapeID2)
		seen[i] = true
	}
	if !seen[0] || !seen[1] {
		t.Errorf("children hit: %v", seen)
	}

	col = shape.NewAllHitCollector[shape.CollideShapeResult](shape.CollideTraits)
	shape.CollideShapeVsShape(c, sphere, unit, unit, geom.Identity(), geom.Identity(),
		shape.NewSubShapeIDCreator(), shape.NewSubShapeIDCreator(), settings, col, nil)
	if len(col.Hits) != 2 {
		t.Fatalf("compound vs convex: got %d hits, want 2", len(col.Hits))
	}
	for _, h := range col.Hits {
		i, _ := c.ChildIndex(h.SubShapeID1)
		// The axis points from the child box towards the sphere centre.
		want := v3.Vec{X: 1}
		if i == 1 {
			want = v3.Vec{X: -1}
		}
		if !geom.ApproxEqual(h.PenetrationAxis, want, tol) {
			t.Errorf("child %d axis: got %v, want %v", i, h.PenetrationAxis, want)
		}
	}

	// Any-hit stops after the first child.
	anyHit := shape.NewAnyHitCollector[shape.CollideShapeResult](shape.CollideTraits)
	shape.CollideShapeVsShape(c, sphere, unit, unit, geom.Identity(), geom.Identity(),
		shape.NewSubShapeIDCreator(), shape.NewSubShapeIDCreator(), settings, anyHit, nil)
	if !anyHit.HadHit() {
		t.Error("any hit: expected a hit")
	}
}

func TestCastShape(t *testing.T) {
	c := twoBoxes(t)
	sphere := mustSphere(t, 1)
	at := geom.Translation(v3.Vec{Z: 10})

	cast := shape.NewShapeCast(sphere, unit, geom.Translation(v3.Vec{X: 2, Y: 5, Z: 10}), v3.Vec{Y: -10})
	col := shape.NewClosestHitCollector[shape.ShapeCastResult](shape.CastShapeTraits)
	shape.CastShapeVsShapeWorldSpace(cast, shape.DefaultShapeCastSettings(), c, unit, nil, at,
		shape.NewSubShapeIDCreator(), shape.NewSubShapeIDCreator(), col)
	if !col.HadHit() || math.Abs(col.Hit.Fraction-0.3) > tol {
		t.Fatalf("compound target: got %+v, want fraction 0.3", col.Hit)
	}
	if i, _ := c.ChildIndex(col.Hit.SubShapeID2); i != 1 {
		t.Errorf("child: got %d, want 1", i)
	}
	if !geom.ApproxEqual(col.Hit.ContactPointOn2, v3.Vec{X: 2, Y: 1, Z: 10}, tol) {
		t.Errorf("contact: got %v", col.Hit.ContactPointOn2)
	}

	// The compound as the cast shape.
	box := mustBox(t, unit)
	cast = shape.NewShapeCast(c, unit, geom.Translation(v3.Vec{Y: 5}), v3.Vec{Y: -10})
	col = shape.NewClosestHitCollector[shape.ShapeCastResult](shape.CastShapeTraits)
	shape.CastShapeVsShapeWorldSpace(cast, shape.DefaultShapeCastSettings(), box, unit, nil, geom.Translation(v3.Vec{X: 2}),
		shape.NewSubShapeIDCreator(), shape.NewSubShapeIDCreator(), col)
	if !col.HadHit() || math.Abs(col.Hit.Fraction-0.3) > tol {
		t.Fatalf("compound cast: got %+v, want fraction 0.3", col.Hit)
	}
	if i, _ := c.ChildIndex(col.Hit.SubShapeID1); i != 1 {
		t.Errorf("cast child: got %d, want 1", i)
	}
}

func TestCollectTransformedShapes(t *testing.T) {
	c := twoBoxes(t)
	col := shape.NewAllHitCollector[shape.TransformedShape](shape.CollideTraits)
	ts := shape.NewTransformedShape(v3.Vec{Y: 10}, mgl64.QuatIdent(), c, 5)
	ts.CollectTransformedShapes(geom.NewAABox(v3.Vec{X: 1, Y: 9, Z: -1}, v3.Vec{X: 4, Y: 11, Z: 1}), col, nil)
	if len(col.Hits) != 1 {
		t.Fatalf("got %d shapes, want 1", len(col.Hits))
	}
	got := col.Hits[0]
	if !geom.ApproxEqual(got.PositionCOM, v3.Vec{X: 2, Y: 10}, tol) || got.BodyID != 5 {
		t.Errorf("got %+v", got)
	}
	if i, _ := c.ChildIndex(got.SubShapeIDCreator.ID()); i != 1 {
		t.Errorf("child: got %d, want 1", i)
	}
}

func TestBinaryStateRoundTrip(t *testing.T) {
	mat := &shape.Material{Name: "oak"}
	box, err := convex.NewBox(unit, convex.WithMaterial(mat))
	if err != nil {
		t.Fatal(err)
	}
	rot := geom.QuatFromAxisAngle(v3.Vec{Y: 1}, math.Pi/4)
	c, err := NewStaticCompound([]SubShapeSettings{
		{Shape: box, Rotation: rot, Position: v3.Vec{X: -2}},
		{Shape: mustSphere(t, 1), Rotation: mgl64.QuatIdent(), Position: v3.Vec{X: 2}},
		{Shape: box, Rotation: mgl64.QuatIdent(), Position: v3.Vec{Y: 3}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	out := shape.NewStreamOut(&buf)
	shape.SaveWithChildren(c, out, shape.ShapeToID{}, shape.MaterialToID{})
	if out.Err() != nil {
		t.Fatal(out.Err())
	}
	var shapes []shape.Shape
	var materials []*shape.Material
	restored, err := shape.RestoreWithChildren(shape.NewStreamIn(&buf), &shapes, &materials)
	if err != nil {
		t.Fatal(err)
	}
	// The shared box and its material are stored once.
	if len(shapes) != 3 || len(materials) != 1 {
		t.Fatalf("restored %d shapes and %d materials, want 3 and 1", len(shapes), len(materials))
	}
	c2 := restored.(*StaticCompound)
	if c2.NumChildren() != 3 {
		t.Fatalf("children: got %d", c2.NumChildren())
	}
	s0, _, _ := c2.Child(0)
	s2, _, _ := c2.Child(2)
	if s0 != s2 {
		t.Error("shared child restored twice")
	}

	if !geom.ApproxEqual(c2.CenterOfMass(), c.CenterOfMass(), tol) {
		t.Errorf("centre of mass: got %v, want %v", c2.CenterOfMass(), c.CenterOfMass())
	}
	// The horizontal ray meets the rotated box, the vertical one the box on
	// top; both carry the oak material.
	com := c.CenterOfMass()
	for _, ray := range []shape.RayCast{
		{Origin: v3.Vec{X: -10}.Sub(com), Direction: v3.Vec{X: 20}},
		{Origin: v3.Vec{Y: 10}.Sub(com), Direction: v3.Vec{Y: -20}},
	} {
		h1, h2 := shape.NewRayCastResult(), shape.NewRayCastResult()
		ok1 := c.CastRay(ray, shape.NewSubShapeIDCreator(), &h1)
		ok2 := c2.CastRay(ray, shape.NewSubShapeIDCreator(), &h2)
		if !ok1 || !ok2 {
			t.Fatalf("ray %+v: hit %v before and %v after restore", ray, ok1, ok2)
		}
		if math.Abs(h1.Fraction-h2.Fraction) > 1e-5 || h1.SubShapeID2 != h2.SubShapeID2 {
			t.Errorf("ray %+v: %+v vs %+v", ray, h1, h2)
		}
		if m := c2.Material(h2.SubShapeID2); m != materials[0] || m.Name != "oak" {
			t.Errorf("material: got %v", m.Name)
		}
	}
}
