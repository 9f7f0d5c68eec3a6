package body

import "github.com/chazu/narrowphase/pkg/shape"

// Filter decides which bodies a query visits.
type Filter interface {
	ShouldCollide(id shape.BodyID) bool
}

// DefaultFilter accepts every body.
type DefaultFilter struct{}

func (DefaultFilter) ShouldCollide(shape.BodyID) bool { return true }

// IgnoreSingleFilter rejects one body.
type IgnoreSingleFilter shape.BodyID

func (f IgnoreSingleFilter) ShouldCollide(id shape.BodyID) bool { return id != shape.BodyID(f) }

// IgnoreMultipleFilter rejects a set of bodies.
type IgnoreMultipleFilter map[shape.BodyID]struct{}

// IgnoreBodies returns a filter rejecting ids.
func IgnoreBodies(ids ...shape.BodyID) IgnoreMultipleFilter {
	f := make(IgnoreMultipleFilter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

func (f IgnoreMultipleFilter) ShouldCollide(id shape.BodyID) bool {
	_, ignored := f[id]
	return !ignored
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(id shape.BodyID) bool

func (f FilterFunc) ShouldCollide(id shape.BodyID) bool { return f(id) }

// FilterOrDefault returns f, or DefaultFilter when f is nil.
func FilterOrDefault(f Filter) Filter {
	if f == nil {
		return DefaultFilter{}
	}
	return f
}
