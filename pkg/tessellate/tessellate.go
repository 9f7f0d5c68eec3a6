// Package tessellate turns placed shapes into triangle meshes for display.
// Convex leaves are meshed from their signed distance function with
// marching cubes; height fields page out their own triangles. One mesh is
// produced per leaf shape.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/query"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/chazu/narrowphase/pkg/shape/convex"
	"github.com/chazu/narrowphase/pkg/shape/heightfield"
	"github.com/deadsy/sdfx/render"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// DefaultCells is the marching cubes resolution along the longest
	// side of a convex leaf.
	DefaultCells = 32
	// DefaultPageSize is the number of height field triangles fetched per
	// page.
	DefaultPageSize = 256
)

// ErrUnsupported is returned for leaf shapes that cannot be meshed.
var ErrUnsupported = errors.New("unsupported shape")

// Mesh is a flat triangle mesh in world space. Vertices has 3 floats per
// vertex, Normals one face normal per vertex and Indices 3 entries per
// triangle.
type Mesh struct {
	Vertices   []float32        `json:"vertices"`
	Normals    []float32        `json:"normals"`
	Indices    []uint32         `json:"indices"`
	BodyID     shape.BodyID     `json:"bodyID"`
	SubShapeID shape.SubShapeID `json:"subShapeID"`
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// add appends a triangle with its face normal. Degenerate triangles are
// dropped.
func (m *Mesh) add(v0, v1, v2 v3.Vec) {
	n := geom.TriangleNormal(v0, v1, v2)
	if geom.IsNearZero(n, 1e-20) {
		return
	}
	n = n.Normalize()
	base := uint32(m.VertexCount())
	for i, v := range [3]v3.Vec{v0, v1, v2} {
		m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
		m.Normals = append(m.Normals, float32(n.X), float32(n.Y), float32(n.Z))
		m.Indices = append(m.Indices, base+uint32(i))
	}
}

// Option configures tessellation.
type Option func(*options)

type options struct {
	cells    int
	pageSize int
}

// WithCells sets the marching cubes resolution for convex leaves.
func WithCells(n int) Option {
	return func(o *options) { o.cells = n }
}

// WithPageSize sets how many height field triangles are fetched at once.
func WithPageSize(n int) Option {
	return func(o *options) { o.pageSize = n }
}

func buildOptions(opts []Option) (options, error) {
	o := options{cells: DefaultCells, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cells < 2 {
		return o, fmt.Errorf("tessellate: need at least 2 cells, got %d", o.cells)
	}
	if o.pageSize < 1 {
		return o, fmt.Errorf("tessellate: page size must be positive, got %d", o.pageSize)
	}
	return o, nil
}

// Shape meshes the leaves of ts whose bounds touch box.
func Shape(ts shape.TransformedShape, box geom.AABox, opts ...Option) ([]*Mesh, error) {
	c := shape.NewAllHitCollector[shape.TransformedShape](shape.CollideTraits)
	ts.CollectTransformedShapes(box, c, nil)
	return leaves(c.Hits, box, opts)
}

// Bodies meshes the leaves of every body the filters accept whose bounds
// touch box.
func Bodies(q *query.NarrowPhaseQuery, box geom.AABox, filters query.Filters, opts ...Option) ([]*Mesh, error) {
	c := shape.NewAllHitCollector[shape.TransformedShape](shape.CollideTraits)
	q.CollectTransformedShapes(box, c, filters)
	return leaves(c.Hits, box, opts)
}

func leaves(shapes []shape.TransformedShape, box geom.AABox, opts []Option) ([]*Mesh, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	meshes := make([]*Mesh, 0, len(shapes))
	for _, leaf := range shapes {
		m, err := meshLeaf(leaf, box, o)
		if err != nil {
			return nil, fmt.Errorf("tessellate: body %d sub-shape %#x: %w", leaf.BodyID, uint32(leaf.SubShapeIDCreator.ID()), err)
		}
		if !m.IsEmpty() {
			meshes = append(meshes, m)
		}
	}
	return meshes, nil
}

func meshLeaf(leaf shape.TransformedShape, box geom.AABox, o options) (*Mesh, error) {
	m := &Mesh{BodyID: leaf.BodyID, SubShapeID: leaf.SubShapeIDCreator.ID()}
	switch s := leaf.Shape.(type) {
	case *heightfield.HeightField:
		meshHeightField(m, s, leaf, box, o.pageSize)
	case convex.Shape:
		meshConvex(m, s, leaf, o.cells)
	default:
		return nil, fmt.Errorf("%v: %w", leaf.Shape.SubType(), ErrUnsupported)
	}
	return m, nil
}

// meshHeightField pages the triangles of the blocks touching box.
func meshHeightField(m *Mesh, h *heightfield.HeightField, leaf shape.TransformedShape, box geom.AABox, pageSize int) {
	ctx := h.GetTrianglesStart(box, leaf.PositionCOM, leaf.Rotation, leaf.Scale)
	page := shape.NewTriangles(pageSize)
	for {
		page.Reset()
		n := h.GetTrianglesNext(ctx, pageSize, page)
		if n == 0 {
			return
		}
		for i := 0; i < n; i++ {
			m.add(page.Vertex(i, 0), page.Vertex(i, 1), page.Vertex(i, 2))
		}
	}
}

// meshConvex runs marching cubes over the unscaled shape and places the
// result in the world.
func meshConvex(m *Mesh, s convex.Shape, leaf shape.TransformedShape, cells int) {
	t, scale := leaf.CenterOfMassTransform(), leaf.Scale
	flip := scale.X*scale.Y*scale.Z < 0
	for _, tri := range render.ToTriangles(s.SDF(), render.NewMarchingCubesUniform(cells)) {
		v0, v1, v2 := t.Apply(tri[0].Mul(scale)), t.Apply(tri[1].Mul(scale)), t.Apply(tri[2].Mul(scale))
		if flip {
			v1, v2 = v2, v1
		}
		m.add(v0, v1, v2)
	}
}
