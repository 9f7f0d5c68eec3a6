package shape

import (
	"fmt"
	"sort"
)

// Hit is implemented by every result type a collector can receive.
type Hit interface {
	EarlyOutFraction() float64
}

// Traits describe the early-out range of a kind of query.
type Traits struct {
	// Initial is the early-out fraction of a fresh collector.
	Initial float64
	// ShouldEarlyOut is the fraction at or below which the query stops.
	ShouldEarlyOut float64
}

var (
	// RayTraits: fractions along a ray, stop at 0.
	RayTraits = Traits{Initial: 1 + FloatEpsilon, ShouldEarlyOut: 0}
	// CastShapeTraits: sweep fractions, negative for penetration depth.
	CastShapeTraits = Traits{Initial: 1 + FloatEpsilon, ShouldEarlyOut: -maxFloat}
	// CollideTraits: overlaps, negated penetration depth.
	CollideTraits = Traits{Initial: maxFloat, ShouldEarlyOut: -maxFloat}
)

// Collector receives hits from a query and tells the producer how far it
// still needs to search. The early-out fraction only ever decreases during a
// query.
type Collector[T any] interface {
	AddHit(hit T)
	Reset()
	EarlyOutFraction() float64
	ShouldEarlyOut() bool
	ForceEarlyOut()
	UpdateEarlyOutFraction(f float64)
	ResetEarlyOutFraction(f float64)
	// SetContext records the body the shape under test belongs to.
	SetContext(id BodyID)
	Context() BodyID
}

type (
	RayCastCollector          = Collector[RayCastResult]
	CollidePointCollector     = Collector[CollidePointResult]
	CollideShapeCollector     = Collector[CollideShapeResult]
	CastShapeCollector        = Collector[ShapeCastResult]
	TransformedShapeCollector = Collector[TransformedShape]
)

// CollectorBase implements everything in Collector except AddHit.
type CollectorBase struct {
	traits   Traits
	earlyOut float64
	context  BodyID
}

// NewCollectorBase returns a base with the early-out at traits.Initial.
func NewCollectorBase(traits Traits) CollectorBase {
	return CollectorBase{traits: traits, earlyOut: traits.Initial, context: InvalidBodyID}
}

func (c *CollectorBase) Reset()                    { c.earlyOut = c.traits.Initial }
func (c *CollectorBase) EarlyOutFraction() float64 { return c.earlyOut }
func (c *CollectorBase) ShouldEarlyOut() bool      { return c.earlyOut <= c.traits.ShouldEarlyOut }
func (c *CollectorBase) ForceEarlyOut()            { c.earlyOut = c.traits.ShouldEarlyOut }
func (c *CollectorBase) SetContext(id BodyID)      { c.context = id }
func (c *CollectorBase) Context() BodyID           { return c.context }

// UpdateEarlyOutFraction lowers the early-out fraction. Raising it is a
// programming error and panics.
func (c *CollectorBase) UpdateEarlyOutFraction(f float64) {
	if f > c.earlyOut {
		panic(fmt.Sprintf("shape: early-out fraction regressed from %v to %v", c.earlyOut, f))
	}
	c.earlyOut = f
}

// ResetEarlyOutFraction sets the early-out fraction to any value.
func (c *CollectorBase) ResetEarlyOutFraction(f float64) { c.earlyOut = f }

// AllHitCollector keeps every hit.
type AllHitCollector[T Hit] struct {
	CollectorBase
	Hits []T
}

func NewAllHitCollector[T Hit](traits Traits) *AllHitCollector[T] {
	return &AllHitCollector[T]{CollectorBase: NewCollectorBase(traits)}
}

func (c *AllHitCollector[T]) AddHit(hit T) { c.Hits = append(c.Hits, hit) }

func (c *AllHitCollector[T]) Reset() {
	c.CollectorBase.Reset()
	c.Hits = c.Hits[:0]
}

// Sort orders hits by early-out fraction, closest first.
func (c *AllHitCollector[T]) Sort() {
	sort.SliceStable(c.Hits, func(i, j int) bool {
		return c.Hits[i].EarlyOutFraction() < c.Hits[j].EarlyOutFraction()
	})
}

func (c *AllHitCollector[T]) HadHit() bool { return len(c.Hits) > 0 }

// ClosestHitCollector keeps the hit with the lowest early-out fraction.
type ClosestHitCollector[T Hit] struct {
	CollectorBase
	Hit    T
	hadHit bool
}

func NewClosestHitCollector[T Hit](traits Traits) *ClosestHitCollector[T] {
	return &ClosestHitCollector[T]{CollectorBase: NewCollectorBase(traits)}
}

func (c *ClosestHitCollector[T]) AddHit(hit T) {
	f := hit.EarlyOutFraction()
	if c.hadHit && f >= c.EarlyOutFraction() {
		return
	}
	if f < c.EarlyOutFraction() {
		c.UpdateEarlyOutFraction(f)
	}
	c.Hit = hit
	c.hadHit = true
}

func (c *ClosestHitCollector[T]) Reset() {
	c.CollectorBase.Reset()
	var zero T
	c.Hit = zero
	c.hadHit = false
}

func (c *ClosestHitCollector[T]) HadHit() bool { return c.hadHit }

// AnyHitCollector stops the query at the first hit.
type AnyHitCollector[T Hit] struct {
	CollectorBase
	Hit    T
	hadHit bool
}

func NewAnyHitCollector[T Hit](traits Traits) *AnyHitCollector[T] {
	return &AnyHitCollector[T]{CollectorBase: NewCollectorBase(traits)}
}

func (c *AnyHitCollector[T]) AddHit(hit T) {
	c.Hit = hit
	c.hadHit = true
	c.ForceEarlyOut()
}

func (c *AnyHitCollector[T]) Reset() {
	c.CollectorBase.Reset()
	var zero T
	c.Hit = zero
	c.hadHit = false
}

func (c *AnyHitCollector[T]) HadHit() bool { return c.hadHit }
