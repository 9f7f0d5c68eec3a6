// Package query runs ray casts, point tests, overlap tests and sweeps
// against every body in the world. The broad phase proposes bodies by
// their bounds; each proposed body is resolved under its read lock and
// tested exactly.
package query

import (
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chazu/narrowphase/pkg/body"
	"github.com/chazu/narrowphase/pkg/broadphase"
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// BodySource resolves a body to its shape at the current placement. A
// missing body yields a TransformedShape without shape.
type BodySource interface {
	TransformedShape(id shape.BodyID) shape.TransformedShape
}

// Filters narrow down the bodies and sub-shapes a query visits. Nil fields
// accept everything.
type Filters struct {
	BroadPhase  broadphase.LayerFilter
	ObjectLayer broadphase.ObjectLayerFilter
	Body        body.Filter
	Shape       shape.ShapeFilter
}

// Option configures a NarrowPhaseQuery.
type Option func(*NarrowPhaseQuery)

// WithLogger sets the logger queries are traced to at debug level.
func WithLogger(l *log.Logger) Option {
	return func(q *NarrowPhaseQuery) { q.logger = l }
}

// WithMetrics turns recording of the query metrics on or off.
func WithMetrics(enabled bool) Option {
	return func(q *NarrowPhaseQuery) { q.metrics = enabled }
}

// NarrowPhaseQuery is safe for concurrent use as long as the body source
// and broad phase are.
type NarrowPhaseQuery struct {
	bodies  BodySource
	bp      broadphase.Query
	logger  *log.Logger
	metrics bool
}

// New returns a query service over bodies and the broad phase bp.
func New(bodies BodySource, bp broadphase.Query, opts ...Option) *NarrowPhaseQuery {
	q := &NarrowPhaseQuery{bodies: bodies, bp: bp, metrics: true}
	for _, opt := range opts {
		opt(q)
	}
	if q.logger == nil {
		q.logger = log.Default().WithPrefix("query")
	}
	return q
}

// bodyCollector receives broad phase candidates and hands them to visit.
type bodyCollector[T any] struct {
	shape.CollectorBase
	visit      func(T)
	candidates int
}

func (c *bodyCollector[T]) AddHit(hit T) {
	c.candidates++
	c.visit(hit)
}

type earlyOuter interface {
	EarlyOutFraction() float64
	ShouldEarlyOut() bool
	ForceEarlyOut()
}

// seed starts the body collector at the caller's early-out, never below
// floor.
func seed(bc *shape.CollectorBase, caller earlyOuter, floor float64) {
	if caller.ShouldEarlyOut() {
		bc.ForceEarlyOut()
		return
	}
	bc.ResetEarlyOutFraction(max(floor, caller.EarlyOutFraction()))
}

// propagate pushes the caller's early-out back into the body collector so
// the broad phase stops proposing bodies the caller no longer wants.
func propagate(bc *shape.CollectorBase, caller earlyOuter, floor float64) {
	if caller.ShouldEarlyOut() {
		bc.ForceEarlyOut()
		return
	}
	if f := max(floor, caller.EarlyOutFraction()); f < bc.EarlyOutFraction() {
		bc.UpdateEarlyOutFraction(f)
	}
}

// noFloor lets the early-out follow the caller without a lower bound.
var noFloor = math.Inf(-1)

func (q *NarrowPhaseQuery) done(op string, start time.Time, candidates int) {
	elapsed := time.Since(start)
	if q.metrics {
		queriesTotal.WithLabelValues(op).Inc()
		candidatesTotal.WithLabelValues(op).Add(float64(candidates))
		queryDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	}
	q.logger.Debug("query", "op", op, "candidates", candidates, "elapsed", elapsed)
}

// resolve applies the body filter and fetches the body's shape. ok is false
// when the body is filtered out or gone.
func (q *NarrowPhaseQuery) resolve(filter body.Filter, id shape.BodyID) (shape.TransformedShape, bool) {
	if !filter.ShouldCollide(id) {
		return shape.TransformedShape{}, false
	}
	ts := q.bodies.TransformedShape(id)
	return ts, ts.Shape != nil
}

// CastRay finds the closest hit closer than hit.Fraction and stores it in
// hit. It reports whether hit holds a hit within the ray.
func (q *NarrowPhaseQuery) CastRay(ray shape.RayCast, hit *shape.RayCastResult, f Filters) bool {
	start := time.Now()
	bodyFilter := body.FilterOrDefault(f.Body)
	bc := &bodyCollector[broadphase.CastResult]{CollectorBase: shape.NewCollectorBase(shape.RayTraits)}
	bc.ResetEarlyOutFraction(hit.Fraction)
	bc.visit = func(r broadphase.CastResult) {
		ts, ok := q.resolve(bodyFilter, r.BodyID)
		if ok && ts.CastRay(ray, hit) {
			bc.UpdateEarlyOutFraction(hit.Fraction)
		}
	}
	q.bp.CastRay(ray, bc, f.BroadPhase, f.ObjectLayer)
	q.done(opCastRay, start, bc.candidates)
	return hit.Fraction <= 1
}

// CastRayCollect reports every hit along the ray to c.
func (q *NarrowPhaseQuery) CastRayCollect(ray shape.RayCast, settings shape.RayCastSettings, c shape.RayCastCollector, f Filters) {
	start := time.Now()
	bodyFilter := body.FilterOrDefault(f.Body)
	bc := &bodyCollector[broadphase.CastResult]{CollectorBase: shape.NewCollectorBase(shape.RayTraits)}
	seed(&bc.CollectorBase, c, noFloor)
	bc.visit = func(r broadphase.CastResult) {
		if ts, ok := q.resolve(bodyFilter, r.BodyID); ok {
			ts.CastRayCollect(ray, settings, c, f.Shape)
			propagate(&bc.CollectorBase, c, noFloor)
		}
	}
	q.bp.CastRay(ray, bc, f.BroadPhase, f.ObjectLayer)
	q.done(opCastRayCollect, start, bc.candidates)
}

// CollidePoint reports every body containing point to c.
func (q *NarrowPhaseQuery) CollidePoint(point v3.Vec, c shape.CollidePointCollector, f Filters) {
	start := time.Now()
	bodyFilter := body.FilterOrDefault(f.Body)
	bc := &bodyCollector[shape.BodyID]{CollectorBase: shape.NewCollectorBase(shape.CollideTraits)}
	seed(&bc.CollectorBase, c, noFloor)
	bc.visit = func(id shape.BodyID) {
		if ts, ok := q.resolve(bodyFilter, id); ok {
			ts.CollidePoint(point, c, f.Shape)
			propagate(&bc.CollectorBase, c, noFloor)
		}
	}
	q.bp.CollidePoint(point, bc, f.BroadPhase, f.ObjectLayer)
	q.done(opCollidePoint, start, bc.candidates)
}

// CollideShape reports the overlaps of s, placed by comTransform with
// scale, with every body. Bodies within settings.MaxSeparationDistance are
// reported too.
func (q *NarrowPhaseQuery) CollideShape(s shape.Shape, scale v3.Vec, comTransform geom.Transform, settings shape.CollideShapeSettings, c shape.CollideShapeCollector, f Filters) {
	start := time.Now()
	bounds := geom.ExpandBy(s.WorldSpaceBounds(comTransform, scale), geom.Splat(settings.MaxSeparationDistance))
	bodyFilter := body.FilterOrDefault(f.Body)
	bc := &bodyCollector[shape.BodyID]{CollectorBase: shape.NewCollectorBase(shape.CollideTraits)}
	seed(&bc.CollectorBase, c, noFloor)
	bc.visit = func(id shape.BodyID) {
		if ts, ok := q.resolve(bodyFilter, id); ok {
			ts.CollideShape(s, scale, comTransform, settings, c, f.Shape)
			propagate(&bc.CollectorBase, c, noFloor)
		}
	}
	q.bp.CollideAABox(bounds, bc, f.BroadPhase, f.ObjectLayer)
	q.done(opCollideShape, start, bc.candidates)
}

// CastShape sweeps cast through the world and reports hits to c. The
// body collector's early-out never drops below MinPositiveFraction, so
// bodies already touching at the start of the sweep are still visited.
func (q *NarrowPhaseQuery) CastShape(cast shape.ShapeCast, settings shape.ShapeCastSettings, c shape.CastShapeCollector, f Filters) {
	start := time.Now()
	box := broadphase.AABoxCast{
		Box:       cast.Shape.WorldSpaceBounds(cast.CenterOfMassStart, cast.Scale),
		Direction: cast.Direction,
	}
	bodyFilter := body.FilterOrDefault(f.Body)
	bc := &bodyCollector[broadphase.CastResult]{CollectorBase: shape.NewCollectorBase(shape.CastShapeTraits)}
	seed(&bc.CollectorBase, c, shape.MinPositiveFraction)
	bc.visit = func(r broadphase.CastResult) {
		if ts, ok := q.resolve(bodyFilter, r.BodyID); ok {
			ts.CastShape(cast, settings, c, f.Shape)
			propagate(&bc.CollectorBase, c, shape.MinPositiveFraction)
		}
	}
	q.bp.CastAABox(box, bc, f.BroadPhase, f.ObjectLayer)
	q.done(opCastShape, start, bc.candidates)
}

// CollectTransformedShapes reports the leaf shapes of every body whose
// bounds touch box.
func (q *NarrowPhaseQuery) CollectTransformedShapes(box geom.AABox, c shape.TransformedShapeCollector, f Filters) {
	start := time.Now()
	bodyFilter := body.FilterOrDefault(f.Body)
	bc := &bodyCollector[shape.BodyID]{CollectorBase: shape.NewCollectorBase(shape.CollideTraits)}
	seed(&bc.CollectorBase, c, noFloor)
	bc.visit = func(id shape.BodyID) {
		if ts, ok := q.resolve(bodyFilter, id); ok {
			ts.CollectTransformedShapes(box, c, f.Shape)
			propagate(&bc.CollectorBase, c, noFloor)
		}
	}
	q.bp.CollideAABox(box, bc, f.BroadPhase, f.ObjectLayer)
	q.done(opCollectTransformedShapes, start, bc.candidates)
}
