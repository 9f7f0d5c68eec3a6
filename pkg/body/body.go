// Package body stores bodies and guards them with a fixed pool of
// reader/writer locks. A body hashes to one lock of the pool; code that
// locks several bodies always locks the pool entries in ascending index
// order.
package body

import (
	"github.com/chazu/narrowphase/pkg/broadphase"
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	indexBits     = 23
	indexMask     = 1<<indexBits - 1
	sequenceShift = indexBits
	// MaxBodies is the largest number of bodies a manager can address.
	MaxBodies = indexMask
)

func makeID(index uint32, sequence uint8) shape.BodyID {
	return shape.BodyID(uint32(sequence)<<sequenceShift | index)
}

// Index returns the storage slot of id. Slots are reused after removal.
func Index(id shape.BodyID) uint32 { return uint32(id) & indexMask }

// Sequence returns the reuse counter of id. It tells a removed body from
// the body that later took its slot.
func Sequence(id shape.BodyID) uint8 { return uint8(uint32(id) >> sequenceShift) }

// Body is a shape placed in the world. Its fields are read under the body's
// read lock and written under its write lock.
type Body struct {
	id       shape.BodyID
	shape    shape.Shape
	position v3.Vec
	rotation mgl64.Quat
	layer    broadphase.ObjectLayer
	userData uint64
}

func (b *Body) ID() shape.BodyID                    { return b.id }
func (b *Body) Shape() shape.Shape                  { return b.shape }
func (b *Body) Position() v3.Vec                    { return b.position }
func (b *Body) Rotation() mgl64.Quat                { return b.rotation }
func (b *Body) ObjectLayer() broadphase.ObjectLayer { return b.layer }
func (b *Body) UserData() uint64                    { return b.userData }
func (b *Body) SetUserData(data uint64)             { b.userData = data }

// CenterOfMassPosition returns the world position of the shape's centre of
// mass.
func (b *Body) CenterOfMassPosition() v3.Vec {
	return b.position.Add(geom.Rotate(b.rotation, b.shape.CenterOfMass()))
}

// CenterOfMassTransform places the shape's centre of mass in the world.
func (b *Body) CenterOfMassTransform() geom.Transform {
	return geom.NewTransform(b.rotation, b.CenterOfMassPosition())
}

// WorldSpaceBounds returns the world bounds of the body's shape.
func (b *Body) WorldSpaceBounds() geom.AABox {
	return b.shape.WorldSpaceBounds(b.CenterOfMassTransform(), geom.Splat(1))
}

// TransformedShape returns a copy of the shape with the body's current
// placement.
func (b *Body) TransformedShape() shape.TransformedShape {
	return shape.NewTransformedShape(b.CenterOfMassPosition(), b.rotation, b.shape, b.id)
}

// CreationSettings describes a body to create.
type CreationSettings struct {
	Shape    shape.Shape
	Position v3.Vec
	Rotation mgl64.Quat
	Layer    broadphase.ObjectLayer
	UserData uint64
}
