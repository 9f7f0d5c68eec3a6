// Package shape defines the contract every collision shape implements, the
// sub-shape addressing scheme, query results and collectors, and the
// double-dispatch tables that route shape-vs-shape queries to concrete
// pairwise routines.
//
// Concrete shapes live in subpackages (convex, decorated, compound,
// heightfield) and register their dispatch routines from init, so a program
// must import the subpackages for the shapes it uses.
package shape

import (
	"fmt"

	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// Type is the coarse shape category used for dispatch.
type Type uint8

const (
	TypeConvex Type = iota
	TypeCompound
	TypeScaled
	TypeRotatedTranslated
	TypeOffsetCenterOfMass
	TypeHeightField

	NumTypes
)

var typeNames = [NumTypes]string{"Convex", "Compound", "Scaled", "RotatedTranslated", "OffsetCenterOfMass", "HeightField"}

func (t Type) String() string {
	if t < NumTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", uint8(t))
}

// SubType identifies the concrete shape implementation. It is the first
// byte of every saved shape.
type SubType uint8

const (
	SubTypeSphere SubType = iota
	SubTypeBox
	SubTypeStaticCompound
	SubTypeScaled
	SubTypeRotatedTranslated
	SubTypeOffsetCenterOfMass
	SubTypeHeightField

	NumSubTypes
)

var subTypeInfo = [NumSubTypes]struct {
	name string
	typ  Type
}{
	{"Sphere", TypeConvex},
	{"Box", TypeConvex},
	{"StaticCompound", TypeCompound},
	{"Scaled", TypeScaled},
	{"RotatedTranslated", TypeRotatedTranslated},
	{"OffsetCenterOfMass", TypeOffsetCenterOfMass},
	{"HeightField", TypeHeightField},
}

func (s SubType) String() string {
	if s < NumSubTypes {
		return subTypeInfo[s].name
	}
	return fmt.Sprintf("SubType(%d)", uint8(s))
}

// Type returns the category of the sub type.
func (s SubType) Type() Type {
	if s >= NumSubTypes {
		panic(fmt.Sprintf("shape: unknown sub type %d", uint8(s)))
	}
	return subTypeInfo[s].typ
}

// BodyID identifies a body in the world.
type BodyID uint32

// InvalidBodyID is the zero value for "no body".
const InvalidBodyID BodyID = 0xffffffff

// IsValid reports whether id refers to a body.
func (id BodyID) IsValid() bool { return id != InvalidBodyID }

// Shape is an immutable collision primitive. All positions handed to and
// returned by local-space methods are relative to the shape's centre of
// mass. Shapes carry no per-query state and are safe for concurrent queries.
type Shape interface {
	Type() Type
	SubType() SubType

	// MustBeStatic reports whether the shape may only be the second (static)
	// argument of a dispatched query.
	MustBeStatic() bool

	CenterOfMass() v3.Vec
	LocalBounds() geom.AABox
	WorldSpaceBounds(comTransform geom.Transform, scale v3.Vec) geom.AABox
	MassProperties() MassProperties
	Volume() float64

	// SubShapeIDBitsRecursive is the number of sub-shape ID bits this shape
	// and all its descendants need.
	SubShapeIDBitsRecursive() uint
	Material(id SubShapeID) *Material
	SurfaceNormal(id SubShapeID, localPos v3.Vec) v3.Vec
	IsValidScale(scale v3.Vec) bool

	// CastRay finds the closest hit closer than hit.Fraction and updates hit.
	CastRay(ray RayCast, creator SubShapeIDCreator, hit *RayCastResult) bool
	CastRayCollect(ray RayCast, settings RayCastSettings, creator SubShapeIDCreator, c RayCastCollector, filter ShapeFilter)
	CollidePoint(point v3.Vec, creator SubShapeIDCreator, c CollidePointCollector, filter ShapeFilter)

	// CastShape sweeps a convex cast, expressed in this shape's centre of
	// mass space, against this shape. comTransform2 places this shape in the
	// world and is used to report results in world space.
	CastShape(cast ShapeCast, settings ShapeCastSettings, scale v3.Vec, filter ShapeFilter, comTransform2 geom.Transform, creator1, creator2 SubShapeIDCreator, c CastShapeCollector)

	CollectTransformedShapes(box geom.AABox, positionCOM v3.Vec, rotation mgl64.Quat, scale v3.Vec, creator SubShapeIDCreator, c TransformedShapeCollector, filter ShapeFilter)

	SaveBinaryState(out *StreamOut)
	RestoreBinaryState(in *StreamIn)
	SaveMaterialState(materials *[]*Material)
	RestoreMaterialState(materials []*Material)
	SaveSubShapeState(subShapes *[]Shape)
	RestoreSubShapeState(subShapes []Shape)

	UserData() uint64
	SetUserData(data uint64)
}

// Base carries the state every shape shares and implements the parts of
// Shape that are the same for most shapes.
type Base struct {
	subType  SubType
	userData uint64
}

// NewBase returns a Base for a shape of the given sub type.
func NewBase(subType SubType) Base {
	return Base{subType: subType}
}

func (b *Base) SubType() SubType { return b.subType }
func (b *Base) Type() Type       { return b.subType.Type() }
func (b *Base) MustBeStatic() bool {
	return false
}
func (b *Base) UserData() uint64        { return b.userData }
func (b *Base) SetUserData(data uint64) { b.userData = data }

// SaveBinaryState writes the header shared by all shapes.
func (b *Base) SaveBinaryState(out *StreamOut) {
	out.WriteUint8(uint8(b.subType))
	out.WriteUint64(b.userData)
}

// RestoreBinaryState reads the header written by SaveBinaryState. The sub
// type byte is consumed by the caller that picked the factory.
func (b *Base) RestoreBinaryState(in *StreamIn) {
	b.userData = in.ReadUint64()
}

func (b *Base) SaveMaterialState(materials *[]*Material) {}
func (b *Base) RestoreMaterialState(materials []*Material) {
	if len(materials) != 0 {
		panic("shape: unexpected materials for shape without materials")
	}
}
func (b *Base) SaveSubShapeState(subShapes *[]Shape) {}
func (b *Base) RestoreSubShapeState(subShapes []Shape) {
	if len(subShapes) != 0 {
		panic("shape: unexpected sub shapes for leaf shape")
	}
}

// DefaultWorldSpaceBounds transforms the scaled local bounds of s. Shapes
// that can produce tighter bounds implement WorldSpaceBounds themselves.
func DefaultWorldSpaceBounds(s Shape, comTransform geom.Transform, scale v3.Vec) geom.AABox {
	return geom.Transformed(geom.Scaled(s.LocalBounds(), scale), comTransform)
}

// ScaleToLocal divides v by scale.
func ScaleToLocal(v, scale v3.Vec) v3.Vec {
	return v.Div(scale)
}
