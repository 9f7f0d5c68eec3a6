package broadphase

// ObjectLayer is the collision layer of a body.
type ObjectLayer uint16

// InvalidObjectLayer marks a body without a layer.
const InvalidObjectLayer ObjectLayer = 0xffff

// Layer groups object layers inside the broad phase.
type Layer uint8

// InvalidLayer marks an object layer that maps to no broad phase layer.
const InvalidLayer Layer = 0xff

// LayerFilter selects the broad phase layers a query visits.
type LayerFilter interface {
	ShouldCollide(layer Layer) bool
}

// ObjectLayerFilter selects the object layers a query reports.
type ObjectLayerFilter interface {
	ShouldCollide(layer ObjectLayer) bool
}

// LayerPairFilter reports whether two broad phase layers can collide.
type LayerPairFilter func(a, b Layer) bool

// ObjectLayerPairFilter reports whether two object layers can collide.
type ObjectLayerPairFilter func(a, b ObjectLayer) bool

// AcceptAllLayers is the default LayerFilter.
type AcceptAllLayers struct{}

func (AcceptAllLayers) ShouldCollide(Layer) bool { return true }

// AcceptAllObjectLayers is the default ObjectLayerFilter.
type AcceptAllObjectLayers struct{}

func (AcceptAllObjectLayers) ShouldCollide(ObjectLayer) bool { return true }

// DefaultLayerFilter accepts the layers Pair allows for Layer.
type DefaultLayerFilter struct {
	Pair  LayerPairFilter
	Layer Layer
}

func (f DefaultLayerFilter) ShouldCollide(layer Layer) bool { return f.Pair(f.Layer, layer) }

// SpecifiedLayerFilter accepts one layer.
type SpecifiedLayerFilter Layer

func (f SpecifiedLayerFilter) ShouldCollide(layer Layer) bool { return Layer(f) == layer }

// DefaultObjectLayerFilter accepts the object layers Pair allows for Layer.
type DefaultObjectLayerFilter struct {
	Pair  ObjectLayerPairFilter
	Layer ObjectLayer
}

func (f DefaultObjectLayerFilter) ShouldCollide(layer ObjectLayer) bool {
	return f.Pair(f.Layer, layer)
}

// SpecifiedObjectLayerFilter accepts one object layer.
type SpecifiedObjectLayerFilter ObjectLayer

func (f SpecifiedObjectLayerFilter) ShouldCollide(layer ObjectLayer) bool {
	return ObjectLayer(f) == layer
}

// LayerFilterOrDefault returns f, or AcceptAllLayers when f is nil.
func LayerFilterOrDefault(f LayerFilter) LayerFilter {
	if f == nil {
		return AcceptAllLayers{}
	}
	return f
}

// ObjectLayerFilterOrDefault returns f, or AcceptAllObjectLayers when f is
// nil.
func ObjectLayerFilterOrDefault(f ObjectLayerFilter) ObjectLayerFilter {
	if f == nil {
		return AcceptAllObjectLayers{}
	}
	return f
}
