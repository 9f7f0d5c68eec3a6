package body

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/chazu/narrowphase/pkg/broadphase"
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/chazu/narrowphase/pkg/shape/convex"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

func unitSphere(t *testing.T) shape.Shape {
	t.Helper()
	s, err := convex.NewSphere(1)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func mustManager(t *testing.T, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

type idCollector struct {
	shape.CollectorBase
	hits []shape.BodyID
}

func newIDCollector() *idCollector {
	return &idCollector{CollectorBase: shape.NewCollectorBase(shape.CollideTraits)}
}

func (c *idCollector) AddHit(id shape.BodyID) { c.hits = append(c.hits, id) }

// --- Manager ---

func TestNewManagerOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"one mutex", []Option{WithLockPoolSize(1)}, false},
		{"full mask", []Option{WithLockPoolSize(64)}, false},
		{"zero mutexes", []Option{WithLockPoolSize(0)}, true},
		{"not a power of two", []Option{WithLockPoolSize(12)}, true},
		{"too many mutexes", []Option{WithLockPoolSize(128)}, true},
		{"no bodies", []Option{WithMaxBodies(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewManager(tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBodyIDReuse(t *testing.T) {
	m := mustManager(t)
	s := unitSphere(t)
	a, err := m.AddBody(CreationSettings{Shape: s})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.AddBody(CreationSettings{Shape: s})
	if Index(a.ID()) != 0 || Index(b.ID()) != 1 {
		t.Fatalf("indices %d, %d", Index(a.ID()), Index(b.ID()))
	}

	old := a.ID()
	if _, ok := m.RemoveBody(old); !ok {
		t.Fatal("remove failed")
	}
	if _, ok := m.RemoveBody(old); ok {
		t.Error("second remove succeeded")
	}
	c, _ := m.AddBody(CreationSettings{Shape: s})
	if Index(c.ID()) != Index(old) {
		t.Errorf("slot %d not reused", Index(old))
	}
	if Sequence(c.ID()) != Sequence(old)+1 {
		t.Errorf("sequence %d, want %d", Sequence(c.ID()), Sequence(old)+1)
	}
	if m.TryGetBody(old) != nil {
		t.Error("stale ID still resolves")
	}
	if m.TryGetBody(c.ID()) != c {
		t.Error("new ID does not resolve")
	}
	if m.NumBodies() != 2 || len(m.BodyIDs()) != 2 {
		t.Errorf("NumBodies = %d", m.NumBodies())
	}
}

func TestAddBodyErrors(t *testing.T) {
	m := mustManager(t, WithMaxBodies(1))
	if _, err := m.AddBody(CreationSettings{}); !errors.Is(err, ErrNoShape) {
		t.Errorf("no shape: got %v", err)
	}
	if _, err := m.AddBody(CreationSettings{Shape: unitSphere(t)}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddBody(CreationSettings{Shape: unitSphere(t)}); !errors.Is(err, ErrTooManyBodies) {
		t.Errorf("full: got %v", err)
	}
	if m.TryGetBody(shape.InvalidBodyID) != nil {
		t.Error("invalid ID resolved")
	}
}

func TestZeroRotationIsIdentity(t *testing.T) {
	m := mustManager(t)
	b, _ := m.AddBody(CreationSettings{Shape: unitSphere(t)})
	if !geom.IsIdentityRotation(b.Rotation(), 1e-12) {
		t.Errorf("rotation = %v", b.Rotation())
	}
}

// --- Lock masks ---

func TestMutexMask(t *testing.T) {
	m := mustManager(t, WithLockPoolSize(8))
	ids := []shape.BodyID{makeID(1, 0), makeID(9, 3), makeID(3, 0), shape.InvalidBodyID}
	if got := m.MutexMask(ids); got != 0b1010 {
		t.Errorf("mask = %b, want 1010", got)
	}
	if got := m.MutexMask(nil); got != 0 {
		t.Errorf("empty mask = %b", got)
	}
}

func TestMaskLocksAscending(t *testing.T) {
	var order []int
	eachMutex(0b10101010, func(i int) { order = append(order, i) })
	want := []int{1, 3, 5, 7}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	// The top bit of a full pool is reachable.
	var top []int
	eachMutex(MutexMask(1)<<63, func(i int) { top = append(top, i) })
	if len(top) != 1 || top[0] != 63 {
		t.Errorf("top = %v", top)
	}
}

func TestMaskOutOfRangePanics(t *testing.T) {
	m := mustManager(t, WithLockPoolSize(4))
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	m.LockRead(0b10000)
}

func TestMaskLockExcludesWriters(t *testing.T) {
	m := mustManager(t, WithLockPoolSize(4))
	mask := MutexMask(0b0110)
	m.LockWrite(mask)
	if m.locks[1].TryRLock() || m.locks[2].TryRLock() {
		t.Error("masked mutex was free")
	}
	if !m.locks[0].TryLock() {
		t.Error("unmasked mutex was held")
	}
	m.locks[0].Unlock()
	m.UnlockWrite(mask)

	m.LockRead(mask)
	if !m.locks[1].TryRLock() {
		t.Error("readers excluded each other")
	}
	m.locks[1].RUnlock()
	if m.locks[2].TryLock() {
		t.Error("writer got a read-locked mutex")
	}
	m.UnlockRead(mask)
}

// --- Lock interfaces ---

func TestScopedLocks(t *testing.T) {
	m := mustManager(t)
	b, _ := m.AddBody(CreationSettings{Shape: unitSphere(t), UserData: 7})
	tests := []struct {
		name   string
		li     LockInterface
		locked bool
	}{
		{"locking", NewLocking(m), true},
		{"no lock", NewNoLock(m), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, release := LockWrite(tt.li, b.ID())
			if got != b || got.UserData() != 7 {
				t.Fatalf("got %v", got)
			}
			if free := m.MutexForBody(b.ID()).TryRLock(); free == tt.locked {
				t.Errorf("mutex free = %v while write locked", free)
			} else if free {
				m.MutexForBody(b.ID()).RUnlock()
			}
			release()

			missing, release := LockRead(tt.li, makeID(5, 0))
			if missing != nil {
				t.Error("missing body resolved")
			}
			release()
		})
	}
}

func TestLockMulti(t *testing.T) {
	m := mustManager(t, WithLockPoolSize(2))
	s := unitSphere(t)
	var ids []shape.BodyID
	for i := 0; i < 4; i++ {
		b, _ := m.AddBody(CreationSettings{Shape: s, UserData: uint64(i)})
		ids = append(ids, b.ID())
	}
	li := NewLocking(m)

	l := LockMultiRead(li, ids)
	for i := 0; i < l.Len(); i++ {
		if l.Body(i).UserData() != uint64(i) {
			t.Errorf("body %d has user data %d", i, l.Body(i).UserData())
		}
	}
	if m.locks[0].TryLock() || m.locks[1].TryLock() {
		t.Error("writer got a read-locked mutex")
	}
	l.Release()

	w := LockMultiWrite(li, ids[:1])
	if m.locks[0].TryRLock() {
		t.Error("reader got a write-locked mutex")
	}
	if !m.locks[1].TryRLock() {
		t.Error("unrelated mutex was held")
	}
	m.locks[1].RUnlock()
	w.Release()
}

// --- Interface ---

func newWorld(t *testing.T) (*Interface, *broadphase.BruteForce) {
	t.Helper()
	m := mustManager(t)
	bp := broadphase.NewBruteForce(nil)
	return NewInterface(m, NewLocking(m), bp), bp
}

func bodiesAt(bp *broadphase.BruteForce, p v3.Vec) []shape.BodyID {
	c := newIDCollector()
	bp.CollidePoint(p, c, nil, nil)
	return c.hits
}

func TestInterfaceKeepsBroadPhaseInSync(t *testing.T) {
	bi, bp := newWorld(t)
	id, err := bi.CreateBody(CreationSettings{Shape: unitSphere(t), Position: v3.Vec{X: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if got := bodiesAt(bp, v3.Vec{X: 5.5}); len(got) != 1 || got[0] != id {
		t.Fatalf("after create: %v", got)
	}

	if !bi.SetPositionAndRotation(id, v3.Vec{Y: -5}, mgl64.QuatIdent()) {
		t.Fatal("move failed")
	}
	if got := bodiesAt(bp, v3.Vec{X: 5.5}); len(got) != 0 {
		t.Errorf("old place still occupied: %v", got)
	}
	if got := bodiesAt(bp, v3.Vec{Y: -5.5}); len(got) != 1 {
		t.Errorf("new place empty")
	}
	pos, _, ok := bi.PositionAndRotation(id)
	if !ok || pos != (v3.Vec{Y: -5}) {
		t.Errorf("position = %v", pos)
	}

	if !bi.RemoveBody(id) || bi.RemoveBody(id) {
		t.Error("remove reported the wrong result")
	}
	if bp.Len() != 0 {
		t.Errorf("broad phase still has %d bodies", bp.Len())
	}
	if bi.SetPositionAndRotation(id, v3.Vec{}, mgl64.QuatIdent()) {
		t.Error("moved a removed body")
	}
	if _, err := bi.CreateBody(CreationSettings{}); !errors.Is(err, ErrNoShape) {
		t.Errorf("create without shape: %v", err)
	}
}

func TestTransformedShape(t *testing.T) {
	bi, _ := newWorld(t)
	box, err := convex.NewBox(v3.Vec{X: 1, Y: 2, Z: 3})
	if err != nil {
		t.Fatal(err)
	}
	rot := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	id, _ := bi.CreateBody(CreationSettings{Shape: box, Position: v3.Vec{X: 1, Y: 2, Z: 3}, Rotation: rot})

	ts := bi.TransformedShape(id)
	if ts.Shape != box || ts.BodyID != id || ts.PositionCOM != (v3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("got %+v", ts)
	}
	// The box's x half extent maps onto world z after a quarter turn.
	bounds := ts.WorldSpaceBounds()
	if math.Abs(bounds.Max.Z-4) > 1e-9 || math.Abs(bounds.Max.X-4) > 1e-9 {
		t.Errorf("bounds = %v", bounds)
	}

	hit := shape.NewRayCastResult()
	if !ts.CastRay(shape.RayCast{Origin: v3.Vec{X: 10, Y: 2, Z: 3}, Direction: v3.Vec{X: -10}}, &hit) {
		t.Fatal("ray missed the body")
	}
	if hit.BodyID != id || math.Abs(hit.Fraction-0.6) > 1e-9 {
		t.Errorf("hit = %+v", hit)
	}

	bi.RemoveBody(id)
	if gone := bi.TransformedShape(id); gone.Shape != nil || gone.BodyID.IsValid() {
		t.Errorf("removed body: %+v", gone)
	}
	if bi.Shape(id) != nil {
		t.Error("removed body has a shape")
	}
}

func TestConcurrentBodies(t *testing.T) {
	bi, bp := newWorld(t)
	s := unitSphere(t)
	var ids []shape.BodyID
	for i := 0; i < 16; i++ {
		id, err := bi.CreateBody(CreationSettings{Shape: s, Position: v3.Vec{X: float64(3 * i)}})
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := ids[(w*5+i)%len(ids)]
				switch i % 3 {
				case 0:
					bi.SetPositionAndRotation(id, v3.Vec{X: float64(i), Y: float64(w)}, mgl64.QuatIdent())
				case 1:
					_ = bi.TransformedShape(id).WorldSpaceBounds()
				default:
					l := LockMultiRead(bi.LockInterface(), ids[:w+2])
					for j := 0; j < l.Len(); j++ {
						_ = l.Body(j).Position()
					}
					l.Release()
				}
				bodiesAt(bp, v3.Vec{X: float64(i)})
			}
		}(w)
	}
	wg.Wait()
	if bp.Len() != len(ids) {
		t.Errorf("broad phase has %d bodies, want %d", bp.Len(), len(ids))
	}
}

// --- Filters ---

func TestFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		id     shape.BodyID
		want   bool
	}{
		{"default", nil, 3, true},
		{"ignore single hit", IgnoreSingleFilter(3), 3, false},
		{"ignore single miss", IgnoreSingleFilter(3), 4, true},
		{"ignore many", IgnoreBodies(1, 2), 2, false},
		{"ignore many miss", IgnoreBodies(1, 2), 5, true},
		{"func", FilterFunc(func(id shape.BodyID) bool { return id%2 == 0 }), 3, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FilterOrDefault(tt.filter).ShouldCollide(tt.id); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
