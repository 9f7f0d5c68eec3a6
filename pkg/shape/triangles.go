package shape

import v3 "github.com/deadsy/sdfx/vec/v3"

// Triangles is a batch of world space triangles produced by triangle
// paging. Vertices holds 3 floats per vertex and 3 vertices per triangle;
// Materials holds one entry per triangle.
type Triangles struct {
	Vertices  []float32
	Materials []*Material
}

// NewTriangles returns an empty batch with room for max triangles.
func NewTriangles(max int) *Triangles {
	return &Triangles{
		Vertices:  make([]float32, 0, max*9),
		Materials: make([]*Material, 0, max),
	}
}

// Add appends one triangle.
func (t *Triangles) Add(v0, v1, v2 v3.Vec, m *Material) {
	for _, v := range [3]v3.Vec{v0, v1, v2} {
		t.Vertices = append(t.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
	}
	t.Materials = append(t.Materials, m)
}

// Vertex returns vertex j (0..2) of triangle i.
func (t *Triangles) Vertex(i, j int) v3.Vec {
	o := (i*3 + j) * 3
	return v3.Vec{X: float64(t.Vertices[o]), Y: float64(t.Vertices[o+1]), Z: float64(t.Vertices[o+2])}
}

// TriangleCount returns the number of triangles.
func (t *Triangles) TriangleCount() int {
	return len(t.Materials)
}

// IsEmpty returns true if the batch has no triangles.
func (t *Triangles) IsEmpty() bool {
	return len(t.Materials) == 0
}

// Reset empties the batch, keeping its capacity.
func (t *Triangles) Reset() {
	t.Vertices = t.Vertices[:0]
	t.Materials = t.Materials[:0]
}
