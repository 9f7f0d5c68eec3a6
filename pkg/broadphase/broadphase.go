// Package broadphase culls bodies by their world bounds before exact
// narrow phase tests.
package broadphase

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// CastResult is a candidate body of a ray or box cast with the fraction at
// which the cast enters its bounds. The fraction is zero or negative when
// the cast starts inside.
type CastResult struct {
	BodyID   shape.BodyID
	Fraction float64
}

func (r CastResult) EarlyOutFraction() float64 { return r.Fraction }

type (
	// CastCollector receives ray and box cast candidates.
	CastCollector = shape.Collector[CastResult]
	// BodyCollector receives overlap candidates.
	BodyCollector = shape.Collector[shape.BodyID]
)

// AABoxCast sweeps Box along Direction.
type AABoxCast struct {
	Box       geom.AABox
	Direction v3.Vec
}

// Query is the read side of a broad phase. Candidates are reported while
// the collector has not early-outed; a cast candidate is only reported when
// its fraction is below the collector's early-out fraction. Nil filters
// accept everything.
type Query interface {
	CastRay(ray shape.RayCast, c CastCollector, layers LayerFilter, objectLayers ObjectLayerFilter)
	CollideAABox(box geom.AABox, c BodyCollector, layers LayerFilter, objectLayers ObjectLayerFilter)
	CollidePoint(point v3.Vec, c BodyCollector, layers LayerFilter, objectLayers ObjectLayerFilter)
	CastAABox(cast AABoxCast, c CastCollector, layers LayerFilter, objectLayers ObjectLayerFilter)
}
