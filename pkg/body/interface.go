package body

import (
	"github.com/chazu/narrowphase/pkg/broadphase"
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// BroadPhase is the write side of a broad phase kept in sync with the
// bodies.
type BroadPhase interface {
	Insert(id shape.BodyID, bounds geom.AABox, layer broadphase.ObjectLayer)
	Update(id shape.BodyID, bounds geom.AABox) bool
	Remove(id shape.BodyID) bool
}

// Interface creates, moves and removes bodies under their locks and
// mirrors every change into the broad phase.
type Interface struct {
	m    *Manager
	lock LockInterface
	bp   BroadPhase
}

// NewInterface returns an Interface over m that locks through lock. bp may
// be nil.
func NewInterface(m *Manager, lock LockInterface, bp BroadPhase) *Interface {
	return &Interface{m: m, lock: lock, bp: bp}
}

// Manager returns the underlying body storage.
func (bi *Interface) Manager() *Manager { return bi.m }

// LockInterface returns the lock interface bodies are accessed through.
func (bi *Interface) LockInterface() LockInterface { return bi.lock }

// CreateBody adds a body and inserts it in the broad phase.
func (bi *Interface) CreateBody(s CreationSettings) (shape.BodyID, error) {
	b, err := bi.m.AddBody(s)
	if err != nil {
		return shape.InvalidBodyID, err
	}
	if bi.bp != nil {
		// The write lock keeps a concurrent removal from racing the insert.
		mu := bi.lock.LockWrite(b.id)
		if bi.lock.TryGetBody(b.id) == b {
			bi.bp.Insert(b.id, b.WorldSpaceBounds(), b.layer)
		}
		bi.lock.UnlockWrite(mu)
	}
	return b.id, nil
}

// RemoveBody removes a body. It returns false when the body does not exist.
func (bi *Interface) RemoveBody(id shape.BodyID) bool {
	b, release := LockWrite(bi.lock, id)
	defer release()
	if b == nil {
		return false
	}
	if bi.bp != nil {
		bi.bp.Remove(id)
	}
	_, ok := bi.m.RemoveBody(id)
	return ok
}

// SetPositionAndRotation moves a body and updates its broad phase bounds.
func (bi *Interface) SetPositionAndRotation(id shape.BodyID, pos v3.Vec, rot mgl64.Quat) bool {
	b, release := LockWrite(bi.lock, id)
	defer release()
	if b == nil {
		return false
	}
	b.position = pos
	b.rotation = rot.Normalize()
	if bi.bp != nil {
		bi.bp.Update(id, b.WorldSpaceBounds())
	}
	return true
}

// PositionAndRotation returns the placement of a body.
func (bi *Interface) PositionAndRotation(id shape.BodyID) (v3.Vec, mgl64.Quat, bool) {
	b, release := LockRead(bi.lock, id)
	defer release()
	if b == nil {
		return v3.Vec{}, mgl64.QuatIdent(), false
	}
	return b.position, b.rotation, true
}

// Shape returns the shape of a body, or nil when it does not exist.
func (bi *Interface) Shape(id shape.BodyID) shape.Shape {
	b, release := LockRead(bi.lock, id)
	defer release()
	if b == nil {
		return nil
	}
	return b.shape
}

// TransformedShape returns a copy of a body's shape at its current
// placement. The read lock is held only while copying. A missing body
// yields a TransformedShape without shape, which every query ignores.
func (bi *Interface) TransformedShape(id shape.BodyID) shape.TransformedShape {
	b, release := LockRead(bi.lock, id)
	defer release()
	if b == nil {
		return shape.TransformedShape{BodyID: shape.InvalidBodyID}
	}
	return b.TransformedShape()
}
