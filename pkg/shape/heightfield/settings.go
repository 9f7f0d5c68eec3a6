package heightfield

import (
	"math"

	"github.com/charmbracelet/log"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// NoCollisionValue marks a sample as a hole. Triangles touching a hole are
// not generated.
const NoCollisionValue = float32(math.MaxFloat32)

const (
	// DefaultBlockSize is the side of the sample tile at the leaves of the
	// range hierarchy.
	DefaultBlockSize = 4
	// MaxBlockSize bounds the leaf tile so it can be decoded on the stack.
	MaxBlockSize = 8
	// MaxMaterials is the largest material list a height field can index.
	MaxMaterials = 256
)

// Settings describes a height field before construction.
type Settings struct {
	// Samples holds SampleCount × SampleCount heights, row by row along Z.
	Samples []float32
	// Offset is the local position of sample (0, 0) at height 0.
	Offset v3.Vec
	// Scale maps sample coordinates and heights to local space.
	Scale       v3.Vec
	SampleCount uint32
	BlockSize   uint32
	// MaterialIndices holds one index into Materials per quad, (SampleCount-1)²
	// entries row by row.
	MaterialIndices []uint8
	Materials       []*shape.Material
}

// NewSettings returns settings for an N × N grid with the default block
// size and no materials.
func NewSettings(samples []float32, offset, scale v3.Vec, sampleCount uint32) Settings {
	return Settings{
		Samples:     samples,
		Offset:      offset,
		Scale:       scale,
		SampleCount: sampleCount,
		BlockSize:   DefaultBlockSize,
	}
}

// Flat returns N × N samples all set to height.
func Flat(sampleCount uint32, height float32) []float32 {
	s := make([]float32, sampleCount*sampleCount)
	for i := range s {
		s[i] = height
	}
	return s
}

type options struct {
	logger *log.Logger
}

// Option configures construction.
type Option func(*options)

// WithLogger sets the logger that receives the construction summary.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{logger: log.Default().WithPrefix("heightfield")}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// toFloat32 rounds every component to float32 precision, the precision the
// binary state stores, so restored shapes answer queries identically.
func toFloat32(v v3.Vec) v3.Vec {
	return v3.Vec{X: float64(float32(v.X)), Y: float64(float32(v.Y)), Z: float64(float32(v.Z))}
}
