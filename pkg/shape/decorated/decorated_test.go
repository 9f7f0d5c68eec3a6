package decorated

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

func mustSphere(t *testing.T, r float64) *convex.Sphere {
	t.Helper()
	s, err := convex.NewSphere(r)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustBox(t *testing.T, half v3.Vec) *convex.Box {
	t.Helper()
	b, err := convex.NewBox(half)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func castRay(s shape.Shape, ray shape.RayCast) (float64, bool) {
	hit := shape.NewRayCastResult()
	ok := s.CastRay(ray, shape.NewSubShapeIDCreator(), &hit)
	return hit.Fraction, ok
}

func collide(s1, s2 shape.Shape, t1, t2 geom.Transform) []shape.CollideShapeResult {
	c := shape.NewAllHitCollector[shape.CollideShapeResult](shape.CollideTraits)
	shape.CollideShapeVsShape(s1, s2, unit, unit, t1, t2, shape.NewSubShapeIDCreator(), shape.NewSubShapeIDCreator(),
		shape.DefaultCollideShapeSettings(), c, nil)
	return c.Hits
}

func castWorld(cast shape.ShapeCast, target shape.Shape, t2 geom.Transform) *shape.ClosestHitCollector[shape.ShapeCastResult] {
	c := shape.NewClosestHitCollector[shape.ShapeCastResult](shape.CastShapeTraits)
	shape.CastShapeVsShapeWorldSpace(cast, shape.DefaultShapeCastSettings(), target, unit, nil, t2,
		shape.NewSubShapeIDCreator(), shape.NewSubShapeIDCreator(), c)
	return c
}

func TestIdentityScaleTransparency(t *testing.T) {
	sphere := mustSphere(t, 1)
	scaled, err := NewScaled(sphere, unit)
	if err != nil {
		t.Fatal(err)
	}

	rays := []shape.RayCast{
		{Origin: v3.Vec{X: -3}, Direction: v3.Vec{X: 6}},
		{Origin: v3.Vec{X: -3, Y: 0.5}, Direction: v3.Vec{X: 6}},
		{Origin: v3.Vec{X: -3, Y: 2}, Direction: v3.Vec{X: 6}},
		{Origin: v3.Vec{Y: 0.2}, Direction: v3.Vec{Z: 4}},
	}
	for _, ray := range rays {
		f1, ok1 := castRay(sphere, ray)
		f2, ok2 := castRay(scaled, ray)
		if ok1 != ok2 || (ok1 && math.Abs(f1-f2) > tol) {
			t.Errorf("ray %+v: inner (%v, %v), scaled (%v, %v)", ray, f1, ok1, f2, ok2)
		}
	}

	for _, p := range []v3.Vec{{}, {X: 0.9}, {X: 1.1}, {X: 0.7, Y: 0.7}, {X: 0.8, Y: 0.8}} {
		c1 := shape.NewAnyHitCollector[shape.CollidePointResult](shape.CollideTraits)
		c2 := shape.NewAnyHitCollector[shape.CollidePointResult](shape.CollideTraits)
		sphere.CollidePoint(p, shape.NewSubShapeIDCreator(), c1, shape.DefaultShapeFilter{})
		scaled.CollidePoint(p, shape.NewSubShapeIDCreator(), c2, shape.DefaultShapeFilter{})
		if c1.HadHit() != c2.HadHit() {
			t.Errorf("point %v: inner %v, scaled %v", p, c1.HadHit(), c2.HadHit())
		}
	}

	box := mustBox(t, unit)
	at := geom.Translation(v3.Vec{X: 1.5, Y: 0.2})
	for _, order := range []string{"decorated first", "decorated second"} {
		var want, got []shape.CollideShapeResult
		if order == "decorated first" {
			want = collide(sphere, box, at, geom.Identity())
			got = collide(scaled, box, at, geom.Identity())
		} else {
			want = collide(box, sphere, geom.Identity(), at)
			got = collide(box, scaled, geom.Identity(), at)
		}
		if len(want) != 1 || len(got) != 1 {
			t.Fatalf("%s: got %d and %d hits, want 1", order, len(want), len(got))
		}
		if math.Abs(want[0].PenetrationDepth-got[0].PenetrationDepth) > tol ||
			!geom.ApproxEqual(want[0].PenetrationAxis, got[0].PenetrationAxis, tol) ||
			!geom.ApproxEqual(want[0].ContactPointOn2, got[0].ContactPointOn2, tol) {
			t.Errorf("%s: inner %+v, scaled %+v", order, want[0], got[0])
		}
	}
}

func TestConstructionErrors(t *testing.T) {
	sphere := mustSphere(t, 1)
	box := mustBox(t, unit)
	tests := []struct {
		name string
		make func() error
		code string
	}{
		{"scaled nil inner", func() error { _, err := NewScaled(nil, unit); return err }, shape.CodeMissingInnerShape},
		{"scaled zero", func() error { _, err := NewScaled(box, v3.Vec{X: 1, Y: 0, Z: 1}); return err }, shape.CodeInvalidScale},
		{"scaled mirror", func() error { _, err := NewScaled(box, v3.Vec{X: -1, Y: 1, Z: 1}); return err }, shape.CodeInvalidScale},
		{"scaled sphere non-uniform", func() error { _, err := NewScaled(sphere, v3.Vec{X: 1, Y: 2, Z: 1}); return err }, shape.CodeInvalidScale},
		{"rotated nil inner", func() error { _, err := NewRotatedTranslated(v3.Vec{}, mgl64.QuatIdent(), nil); return err }, shape.CodeMissingInnerShape},
		{"rotated not unit", func() error {
			_, err := NewRotatedTranslated(v3.Vec{}, mgl64.Quat{W: 2}, box)
			return err
		}, shape.CodeInvalidRotation},
		{"offset nil inner", func() error { _, err := NewOffsetCenterOfMass(nil, v3.Vec{}); return err }, shape.CodeMissingInnerShape},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ce *shape.ConstructionError
			if err := tt.make(); !errors.As(err, &ce) {
				t.Fatalf("got %v, want a ConstructionError", err)
			}
			if ce.Code != tt.code {
				t.Errorf("code: got %q, want %q", ce.Code, tt.code)
			}
		})
	}

	// A mirroring scale with a positive determinant is fine.
	if _, err := NewScaled(box, v3.Vec{X: -1, Y: -1, Z: 1}); err != nil {
		t.Errorf("double mirror: %v", err)
	}
}

func TestScaledNonUniform(t *testing.T) {
	box := mustBox(t, unit)
	s, err := NewScaled(box, v3.Vec{X: 2, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	if f, ok := castRay(s, shape.RayCast{Origin: v3.Vec{X: -5}, Direction: v3.Vec{X: 10}}); !ok || math.Abs(f-0.3) > tol {
		t.Errorf("ray: got (%v, %v), want (0.3, true)", f, ok)
	}
	if got := s.Volume(); math.Abs(got-16) > tol {
		t.Errorf("volume: got %v, want 16", got)
	}
	if got, want := s.MassProperties().Mass, 2*box.MassProperties().Mass; math.Abs(got-want) > tol*want {
		t.Errorf("mass: got %v, want %v", got, want)
	}
	n := s.SurfaceNormal(shape.EmptySubShapeID, v3.Vec{X: 2, Y: 0.1})
	if !geom.ApproxEqual(n, v3.Vec{X: 1}, tol) {
		t.Errorf("normal: got %v, want +X", n)
	}
	b := s.LocalBounds()
	if !geom.ApproxEqual(b.Max, v3.Vec{X: 2, Y: 1, Z: 1}, tol) {
		t.Errorf("bounds: got %v", b)
	}
}

func TestRotatedTranslated(t *testing.T) {
	box := mustBox(t, v3.Vec{X: 2, Y: 1, Z: 1})
	rot := geom.QuatFromAxisAngle(v3.Vec{Z: 1}, math.Pi/2)
	rt, err := NewRotatedTranslated(v3.Vec{Y: 3}, rot, box)
	if err != nil {
		t.Fatal(err)
	}
	if !geom.ApproxEqual(rt.CenterOfMass(), v3.Vec{Y: 3}, tol) || !geom.ApproxEqual(rt.Position(), v3.Vec{Y: 3}, tol) {
		t.Errorf("centre of mass %v, position %v", rt.CenterOfMass(), rt.Position())
	}
	// The long axis now points along Y.
	if f, ok := castRay(rt, shape.RayCast{Origin: v3.Vec{Y: 7}, Direction: v3.Vec{Y: -10}}); !ok || math.Abs(f-0.5) > tol {
		t.Errorf("ray: got (%v, %v), want (0.5, true)", f, ok)
	}
	b := rt.LocalBounds()
	if !geom.ApproxEqual(b.Max, v3.Vec{X: 1, Y: 2, Z: 1}, tol) {
		t.Errorf("bounds: got %v", b)
	}
	n := rt.SurfaceNormal(shape.EmptySubShapeID, v3.Vec{Y: 2, X: 0.1})
	if !geom.ApproxEqual(n, v3.Vec{Y: 1}, tol) {
		t.Errorf("normal: got %v, want +Y", n)
	}

	if rt.IsValidScale(v3.Vec{X: 1, Y: 2, Z: 1}) {
		t.Error("non-uniform scale with a rotation should be rejected")
	}
	plain, err := NewRotatedTranslated(v3.Vec{}, mgl64.QuatIdent(), box)
	if err != nil {
		t.Fatal(err)
	}
	if !plain.IsValidScale(v3.Vec{X: 1, Y: 2, Z: 1}) {
		t.Error("non-uniform scale without rotation should be accepted")
	}

	// As a cast target: a box of half extents (1, 1, 2) turned a quarter
	// around Y is 4 wide along X.
	tall := mustBox(t, v3.Vec{X: 1, Y: 1, Z: 2})
	turned, err := NewRotatedTranslated(v3.Vec{}, geom.QuatFromAxisAngle(v3.Vec{Y: 1}, math.Pi/2), tall)
	if err != nil {
		t.Fatal(err)
	}
	cast := shape.NewShapeCast(mustSphere(t, 1), unit, geom.Translation(v3.Vec{X: -5}), v3.Vec{X: 10})
	c := castWorld(cast, turned, geom.Identity())
	if !c.HadHit() || math.Abs(c.Hit.Fraction-0.2) > tol {
		t.Errorf("cast: got %+v, want fraction 0.2", c.Hit)
	}
}

func TestOffsetCenterOfMass(t *testing.T) {
	sphere := mustSphere(t, 1)
	o, err := NewOffsetCenterOfMass(sphere, v3.Vec{X: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !geom.ApproxEqual(o.CenterOfMass(), v3.Vec{X: 1}, tol) {
		t.Errorf("centre of mass: got %v", o.CenterOfMass())
	}
	if got := o.LocalBounds().Min.X; math.Abs(got+2) > tol {
		t.Errorf("bounds min x: got %v, want -2", got)
	}

	tests := []struct {
		p    v3.Vec
		want bool
	}{
		{v3.Vec{X: -1.5}, true},
		{v3.Vec{X: 0.5}, false},
	}
	for _, tt := range tests {
		c := shape.NewAnyHitCollector[shape.CollidePointResult](shape.CollideTraits)
		o.CollidePoint(tt.p, shape.NewSubShapeIDCreator(), c, shape.DefaultShapeFilter{})
		if c.HadHit() != tt.want {
			t.Errorf("point %v: got %v, want %v", tt.p, c.HadHit(), tt.want)
		}
	}

	// The geometry sits at -offset, so it reaches a box the bare sphere
	// would miss.
	box := mustBox(t, unit)
	boxAt := geom.Translation(v3.Vec{X: -2.5})
	if hits := collide(sphere, box, geom.Identity(), boxAt); len(hits) != 0 {
		t.Fatalf("bare sphere: got %d hits, want 0", len(hits))
	}
	hits := collide(o, box, geom.Identity(), boxAt)
	if len(hits) != 1 || math.Abs(hits[0].PenetrationDepth-0.5) > tol {
		t.Fatalf("offset first: got %+v", hits)
	}
	hits = collide(box, o, boxAt, geom.Identity())
	if len(hits) != 1 || math.Abs(hits[0].PenetrationDepth-0.5) > tol {
		t.Fatalf("offset second: got %+v", hits)
	}

	// As a cast target.
	target, err := NewOffsetCenterOfMass(box, v3.Vec{X: 1})
	if err != nil {
		t.Fatal(err)
	}
	cast := shape.NewShapeCast(sphere, unit, geom.Translation(v3.Vec{X: -5}), v3.Vec{X: 10})
	c := castWorld(cast, target, geom.Identity())
	if !c.HadHit() || math.Abs(c.Hit.Fraction-0.2) > tol {
		t.Fatalf("cast: got %+v, want fraction 0.2", c.Hit)
	}
	if !geom.ApproxEqual(c.Hit.ContactPointOn2, v3.Vec{X: -2}, tol) {
		t.Errorf("cast contact: got %v, want (-2, 0, 0)", c.Hit.ContactPointOn2)
	}
}

func TestDecoratedCastShape(t *testing.T) {
	small := mustSphere(t, 0.5)
	scaled, err := NewScaled(small, geom.Splat(2))
	if err != nil {
		t.Fatal(err)
	}
	box := mustBox(t, unit)
	cast := shape.NewShapeCast(scaled, unit, geom.Translation(v3.Vec{X: -5}), v3.Vec{X: 10})
	c := castWorld(cast, box, geom.Identity())
	if !c.HadHit() || math.Abs(c.Hit.Fraction-0.3) > tol {
		t.Errorf("scaled cast: got %+v, want fraction 0.3", c.Hit)
	}

	shifted, err := NewOffsetCenterOfMass(mustSphere(t, 1), v3.Vec{X: -1})
	if err != nil {
		t.Fatal(err)
	}
	// The sphere geometry sits one unit ahead of the centre of mass.
	cast = shape.NewShapeCast(shifted, unit, geom.Translation(v3.Vec{X: -6}), v3.Vec{X: 10})
	c = castWorld(cast, box, geom.Identity())
	if !c.HadHit() || math.Abs(c.Hit.Fraction-0.3) > tol {
		t.Errorf("offset cast: got %+v, want fraction 0.3", c.Hit)
	}
}

func TestBinaryStateRoundTrip(t *testing.T) {
	box := mustBox(t, v3.Vec{X: 2, Y: 1, Z: 1})
	scaled, err := NewScaled(box, v3.Vec{X: 1, Y: 3, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	rot := geom.QuatFromAxisAngle(v3.Vec{Z: 1}, math.Pi/2)
	rt, err := NewRotatedTranslated(v3.Vec{Y: 3}, rot, scaled)
	if err != nil {
		t.Fatal(err)
	}
	oc, err := NewOffsetCenterOfMass(rt, v3.Vec{X: 0.25})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	out := shape.NewStreamOut(&buf)
	shape.SaveWithChildren(oc, out, shape.ShapeToID{}, shape.MaterialToID{})
	if out.Err() != nil {
		t.Fatal(out.Err())
	}
	var shapes []shape.Shape
	var materials []*shape.Material
	restored, err := shape.RestoreWithChildren(shape.NewStreamIn(&buf), &shapes, &materials)
	if err != nil {
		t.Fatal(err)
	}
	if len(shapes) != 4 {
		t.Fatalf("restored %d shapes, want 4", len(shapes))
	}
	o2, ok := restored.(*OffsetCenterOfMass)
	if !ok {
		t.Fatalf("got %T, want *OffsetCenterOfMass", restored)
	}
	if !geom.ApproxEqual(o2.Offset(), v3.Vec{X: 0.25}, tol) {
		t.Errorf("offset: got %v", o2.Offset())
	}
	rt2 := o2.InnerShape().(*RotatedTranslated)
	if !geom.ApproxEqual(rt2.CenterOfMass(), rt.CenterOfMass(), 1e-5) || !rt2.Rotation().OrientationEqualThreshold(rot, 1e-5) {
		t.Errorf("rotated translated: com %v, rotation %v", rt2.CenterOfMass(), rt2.Rotation())
	}
	s2 := rt2.InnerShape().(*Scaled)
	if !geom.ApproxEqual(s2.Scale(), v3.Vec{X: 1, Y: 3, Z: 1}, tol) {
		t.Errorf("scale: got %v", s2.Scale())
	}

	ray := shape.RayCast{Origin: v3.Vec{X: 10, Y: 0.1}, Direction: v3.Vec{X: -20}}
	f1, ok1 := castRay(oc, ray)
	f2, ok2 := castRay(restored, ray)
	if !ok1 || !ok2 || math.Abs(f1-f2) > 1e-5 {
		t.Errorf("ray after restore: (%v, %v) vs (%v, %v)", f1, ok1, f2, ok2)
	}
}
