// Package decorated implements shapes that wrap one inner shape and change
// how it is placed: a scale, a rotation and translation, or a shifted centre
// of mass. Every query is forwarded to the inner shape after moving its
// inputs into the inner shape's space.
package decorated

import (
	"fmt"

	"github.com/chazu/narrowphase/pkg/shape"
)

// decorator holds the inner shape. Decorators add no sub-shape ID bits.
type decorator struct {
	shape.Base
	inner shape.Shape
}

func newDecorator(st shape.SubType, inner shape.Shape) (decorator, error) {
	if inner == nil {
		return decorator{}, shape.NewConstructionError(st, shape.CodeMissingInnerShape, "inner shape is nil")
	}
	return decorator{Base: shape.NewBase(st), inner: inner}, nil
}

// InnerShape returns the decorated shape.
func (d *decorator) InnerShape() shape.Shape { return d.inner }

func (d *decorator) MustBeStatic() bool            { return d.inner.MustBeStatic() }
func (d *decorator) SubShapeIDBitsRecursive() uint { return d.inner.SubShapeIDBitsRecursive() }
func (d *decorator) Volume() float64               { return d.inner.Volume() }
func (d *decorator) Material(id shape.SubShapeID) *shape.Material {
	return d.inner.Material(id)
}

func (d *decorator) SaveSubShapeState(subShapes *[]shape.Shape) {
	*subShapes = append(*subShapes, d.inner)
}

func (d *decorator) RestoreSubShapeState(subShapes []shape.Shape) {
	if len(subShapes) != 1 || subShapes[0] == nil {
		panic(fmt.Sprintf("decorated: %s expects exactly one inner shape, got %d", d.SubType(), len(subShapes)))
	}
	d.inner = subShapes[0]
}
