package broadphase

import (
	"sync"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

type entry struct {
	id     shape.BodyID
	bounds geom.AABox
	layer  ObjectLayer
}

// BruteForce tests every body on every query. Bodies are visited in
// insertion order.
type BruteForce struct {
	mu      sync.RWMutex
	entries []entry
	index   map[shape.BodyID]int
	layerOf func(ObjectLayer) Layer
}

var _ Query = (*BruteForce)(nil)

// NewBruteForce returns an empty broad phase. layerOf maps object layers
// to broad phase layers; nil puts every body in layer 0.
func NewBruteForce(layerOf func(ObjectLayer) Layer) *BruteForce {
	if layerOf == nil {
		layerOf = func(ObjectLayer) Layer { return 0 }
	}
	return &BruteForce{index: make(map[shape.BodyID]int), layerOf: layerOf}
}

// Insert adds a body or replaces the bounds and layer of a known one.
func (b *BruteForce) Insert(id shape.BodyID, bounds geom.AABox, layer ObjectLayer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i, ok := b.index[id]; ok {
		b.entries[i] = entry{id: id, bounds: bounds, layer: layer}
		return
	}
	b.index[id] = len(b.entries)
	b.entries = append(b.entries, entry{id: id, bounds: bounds, layer: layer})
}

// Update moves a known body. It returns false for unknown bodies.
func (b *BruteForce) Update(id shape.BodyID, bounds geom.AABox) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[id]
	if ok {
		b.entries[i].bounds = bounds
	}
	return ok
}

// Remove drops a body. It returns false for unknown bodies.
func (b *BruteForce) Remove(id shape.BodyID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.index[id]
	if !ok {
		return false
	}
	delete(b.index, id)
	b.entries = append(b.entries[:i], b.entries[i+1:]...)
	for j := i; j < len(b.entries); j++ {
		b.index[b.entries[j].id] = j
	}
	return true
}

// Len returns the number of bodies.
func (b *BruteForce) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// candidates copies the entries the filters accept. Queries run on the
// copy so collectors may lock bodies or modify the broad phase.
func (b *BruteForce) candidates(layers LayerFilter, objectLayers ObjectLayerFilter) []entry {
	layers = LayerFilterOrDefault(layers)
	objectLayers = ObjectLayerFilterOrDefault(objectLayers)
	b.mu.RLock()
	defer b.mu.RUnlock()
	return lo.Filter(b.entries, func(e entry, _ int) bool {
		return objectLayers.ShouldCollide(e.layer) && layers.ShouldCollide(b.layerOf(e.layer))
	})
}

func (b *BruteForce) CastRay(ray shape.RayCast, c CastCollector, layers LayerFilter, objectLayers ObjectLayerFilter) {
	inv := geom.NewRayInvDirection(ray.Direction)
	for _, e := range b.candidates(layers, objectLayers) {
		if c.ShouldEarlyOut() {
			return
		}
		if f := geom.RayAABox(ray.Origin, inv, e.bounds); f < c.EarlyOutFraction() {
			c.AddHit(CastResult{BodyID: e.id, Fraction: f})
		}
	}
}

func (b *BruteForce) CollideAABox(box geom.AABox, c BodyCollector, layers LayerFilter, objectLayers ObjectLayerFilter) {
	for _, e := range b.candidates(layers, objectLayers) {
		if c.ShouldEarlyOut() {
			return
		}
		if geom.Overlaps(e.bounds, box) {
			c.AddHit(e.id)
		}
	}
}

func (b *BruteForce) CollidePoint(point v3.Vec, c BodyCollector, layers LayerFilter, objectLayers ObjectLayerFilter) {
	for _, e := range b.candidates(layers, objectLayers) {
		if c.ShouldEarlyOut() {
			return
		}
		if geom.Contains(e.bounds, point) {
			c.AddHit(e.id)
		}
	}
}

// CastAABox sweeps the centre of the cast box against body bounds grown by
// its half extents.
func (b *BruteForce) CastAABox(cast AABoxCast, c CastCollector, layers LayerFilter, objectLayers ObjectLayerFilter) {
	origin, extent := cast.Box.Center(), geom.Extent(cast.Box)
	inv := geom.NewRayInvDirection(cast.Direction)
	for _, e := range b.candidates(layers, objectLayers) {
		if c.ShouldEarlyOut() {
			return
		}
		if f := geom.RayAABox(origin, inv, geom.ExpandBy(e.bounds, extent)); f < c.EarlyOutFraction() {
			c.AddHit(CastResult{BodyID: e.id, Fraction: f})
		}
	}
}
