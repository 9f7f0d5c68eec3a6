package shape

// ShapeFilter rejects sub-shapes before they are tested.
type ShapeFilter interface {
	// ShouldCollideSubShape filters single-shape queries (rays, points).
	ShouldCollideSubShape(id2 SubShapeID) bool
	// ShouldCollide filters pairs in shape-vs-shape queries.
	ShouldCollide(id1, id2 SubShapeID) bool
}

// DefaultShapeFilter accepts everything.
type DefaultShapeFilter struct{}

func (DefaultShapeFilter) ShouldCollideSubShape(SubShapeID) bool     { return true }
func (DefaultShapeFilter) ShouldCollide(SubShapeID, SubShapeID) bool { return true }

// ShapeFilterFunc adapts a pair predicate to ShapeFilter. Single-shape
// queries pass EmptySubShapeID as id1.
type ShapeFilterFunc func(id1, id2 SubShapeID) bool

func (f ShapeFilterFunc) ShouldCollideSubShape(id2 SubShapeID) bool {
	return f(EmptySubShapeID, id2)
}
func (f ShapeFilterFunc) ShouldCollide(id1, id2 SubShapeID) bool { return f(id1, id2) }

// FilterOrDefault returns f, or DefaultShapeFilter when f is nil.
func FilterOrDefault(f ShapeFilter) ShapeFilter {
	if f == nil {
		return DefaultShapeFilter{}
	}
	return f
}
