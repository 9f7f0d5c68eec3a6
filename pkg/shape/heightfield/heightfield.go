// Package heightfield implements a static terrain shape over a regular grid
// of height samples. Heights are stored compressed: 16 bit quantization over
// the whole field, a hierarchy of min/max range blocks and 8 bit samples
// relative to the range of their leaf block. All queries run through one
// depth first walk driven by a Visitor.
package heightfield

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	noCollision16    = 0xffff
	maxHeightValue16 = 0xfffe
	noCollision8     = 0xff
	maxHeightValue8  = 0xfe

	// numBitsXY is the width of the block x and y in walk properties.
	numBitsXY  = 14
	maskBitsXY = 1<<numBitsXY - 1
	levelShift = 2 * numBitsXY
)

// gridOffsets[l] is the index of the first range block of level l.
var gridOffsets = [numBitsXY + 1]uint32{
	0, 1, 5, 21, 85, 341, 1365, 5461, 21845, 87381, 349525, 1398101, 5592405, 22369621, 89478485,
}

// rangeBlock holds the quantized height range of a 2×2 group of cells,
// ordered (0,0), (1,0), (0,1), (1,1).
type rangeBlock struct {
	Min [4]uint16
	Max [4]uint16
}

type sampleRange struct {
	min, max uint16
}

// HeightField is a static terrain shape. Its local space has the centre of
// mass at the origin; sample (x, y) sits at Offset + Scale·(x, h, y).
type HeightField struct {
	shape.Base
	offset          v3.Vec
	scale           v3.Vec
	sampleCount     uint32
	blockSize       uint32
	minSample       uint16
	maxSample       uint16
	rangeBlocks     []rangeBlock
	heightSamples   []uint8
	activeEdges     []uint8
	materialIndices []uint8
	bitsPerMaterial uint32
	materials       []*shape.Material
}

var _ shape.Shape = (*HeightField)(nil)

func isPowerOfTwo(n uint32) bool { return n != 0 && n&(n-1) == 0 }

func subShapeIDBits(sampleCount uint32) uint {
	return uint(2*bits.TrailingZeros32(sampleCount) + 1)
}

// New builds a height field. Invalid settings return a
// *shape.ConstructionError and no shape.
func New(settings Settings, opts ...Option) (*HeightField, error) {
	o := buildOptions(opts)
	n, bs := settings.SampleCount, settings.BlockSize
	fail := func(code, format string, args ...any) (*HeightField, error) {
		return nil, shape.NewConstructionError(shape.SubTypeHeightField, code, format, args...)
	}

	if bs < 2 || bs > MaxBlockSize || !isPowerOfTwo(bs) {
		return fail(shape.CodeInvalidBlockSize, "block size %d must be a power of 2 in [2, %d]", bs, MaxBlockSize)
	}
	if !isPowerOfTwo(n) {
		return fail(shape.CodeSampleCountNotPowerOfTwo, "sample count %d must be a power of 2", n)
	}
	if n < 2*bs {
		return fail(shape.CodeSampleCountTooLow, "sample count %d too low for block size %d", n, bs)
	}
	if uint64(n) > uint64(bs)<<numBitsXY {
		return fail(shape.CodeSampleCountTooHigh, "sample count %d too high for block size %d", n, bs)
	}
	if b := subShapeIDBits(n); b > shape.MaxSubShapeIDBits {
		return fail(shape.CodeSubShapeIDBitsExceeded, "sample count %d needs %d sub-shape ID bits", n, b)
	}
	if uint64(len(settings.Samples)) != uint64(n)*uint64(n) {
		return fail(shape.CodeSampleArraySize, "got %d samples, want %d", len(settings.Samples), n*n)
	}
	quads := int(n-1) * int(n-1)
	if len(settings.Materials) > MaxMaterials {
		return fail(shape.CodeTooManyMaterials, "%d materials, at most %d supported", len(settings.Materials), MaxMaterials)
	}
	if len(settings.Materials) > 0 {
		for i, m := range settings.MaterialIndices {
			if int(m) >= len(settings.Materials) {
				return fail(shape.CodeMaterialIndexOutOfRange, "quad %d uses material %d beyond material list (size %d)", i, m, len(settings.Materials))
			}
		}
		if len(settings.MaterialIndices) != quads && (len(settings.Materials) > 1 || len(settings.MaterialIndices) != 0) {
			return fail(shape.CodeMaterialIndicesSize, "got %d material indices, want %d", len(settings.MaterialIndices), quads)
		}
	} else if len(settings.MaterialIndices) != 0 {
		return fail(shape.CodeMaterialIndicesSize, "material indices given without materials")
	}

	h := &HeightField{
		Base:        shape.NewBase(shape.SubTypeHeightField),
		offset:      settings.Offset,
		scale:       settings.Scale,
		sampleCount: n,
		blockSize:   bs,
		materials:   append([]*shape.Material(nil), settings.Materials...),
	}
	quantized := h.quantize16(settings.Samples)
	leaves := h.buildRanges(quantized)
	h.quantize8(quantized, leaves)
	h.buildActiveEdges()
	h.packMaterials(settings.MaterialIndices)

	o.logger.Debug("built height field",
		"samples", n, "block", bs, "levels", h.maxLevel(),
		"range_blocks", len(h.rangeBlocks), "min", h.minSample, "max", h.maxSample,
		"materials", len(h.materials), "material_bits", h.bitsPerMaterial)
	return h, nil
}

// quantize16 maps the samples to [0, maxHeightValue16] over their global
// range and folds the range into offset and scale.
func (h *HeightField) quantize16(samples []float32) []uint16 {
	minV, maxV := math.MaxFloat64, -math.MaxFloat64
	for _, s := range samples {
		if s != NoCollisionValue {
			minV = math.Min(minV, float64(s))
			maxV = math.Max(maxV, float64(s))
		}
	}
	q := 1.0
	if minV < maxV {
		q = maxHeightValue16 / (maxV - minV)
	}
	out := make([]uint16, len(samples))
	for i, s := range samples {
		if s == NoCollisionValue {
			out[i] = noCollision16
			continue
		}
		out[i] = uint16(math.Round(q * (float64(s) - minV)))
	}
	if minV <= maxV {
		h.offset.Y += minV
	}
	h.scale.Y /= q
	h.offset, h.scale = toFloat32(h.offset), toFloat32(h.scale)
	return out
}

// buildRanges computes the min/max hierarchy bottom up, stores it as range
// blocks and returns the ranges of the leaf blocks.
func (h *HeightField) buildRanges(quantized []uint16) []sampleRange {
	n, bs := h.sampleCount, h.blockSize
	nb := n / bs
	maxLevel := uint32(bits.TrailingZeros32(nb))

	// ranges[l] is the (1<<l) × (1<<l) grid of level l; ranges[maxLevel]
	// holds the leaf blocks.
	ranges := make([][]sampleRange, maxLevel+1)
	leaves := make([]sampleRange, nb*nb)
	for y := uint32(0); y < nb; y++ {
		for x := uint32(0); x < nb; x++ {
			r := sampleRange{min: noCollision16, max: 0}
			// Interior blocks include the next row and column: their
			// triangles reach into it.
			maxBX, maxBY := bs+1, bs+1
			if x == nb-1 {
				maxBX = bs
			}
			if y == nb-1 {
				maxBY = bs
			}
			for by := uint32(0); by < maxBY; by++ {
				for bx := uint32(0); bx < maxBX; bx++ {
					v := quantized[(y*bs+by)*n+x*bs+bx]
					if v != noCollision16 {
						r.min = min(r.min, v)
						r.max = max(r.max, v)
					}
				}
			}
			leaves[y*nb+x] = r
		}
	}
	ranges[maxLevel] = leaves

	for level := int(maxLevel) - 1; level >= 0; level-- {
		side := uint32(1) << level
		src := ranges[level+1]
		dst := make([]sampleRange, side*side)
		for y := uint32(0); y < side; y++ {
			for x := uint32(0); x < side; x++ {
				r := sampleRange{min: noCollision16, max: 0}
				for by := uint32(0); by < 2; by++ {
					for bx := uint32(0); bx < 2; bx++ {
						s := src[(2*y+by)*2*side+2*x+bx]
						r.min = min(r.min, s.min)
						r.max = max(r.max, s.max)
					}
				}
				dst[y*side+x] = r
			}
		}
		ranges[level] = dst
	}
	h.minSample, h.maxSample = ranges[0][0].min, ranges[0][0].max

	// Range block (x, y) of level l holds the 2×2 cells of ranges[l+1].
	h.rangeBlocks = make([]rangeBlock, 0, gridOffsets[maxLevel])
	for level := uint32(0); level < maxLevel; level++ {
		side := uint32(1) << level
		cells := ranges[level+1]
		for y := uint32(0); y < side; y++ {
			for x := uint32(0); x < side; x++ {
				var rb rangeBlock
				for by := uint32(0); by < 2; by++ {
					for bx := uint32(0); bx < 2; bx++ {
						c := cells[(2*y+by)*2*side+2*x+bx]
						rb.Min[by*2+bx] = c.min
						rb.Max[by*2+bx] = c.max
					}
				}
				h.rangeBlocks = append(h.rangeBlocks, rb)
			}
		}
	}
	return leaves
}

// quantize8 stores every sample relative to the range of its leaf block.
func (h *HeightField) quantize8(quantized []uint16, leaves []sampleRange) {
	n, bs := h.sampleCount, h.blockSize
	nb := n / bs
	h.heightSamples = make([]uint8, n*n)
	for y := uint32(0); y < n; y++ {
		for x := uint32(0); x < n; x++ {
			i := y*n + x
			v := quantized[i]
			r := leaves[(y/bs)*nb+x/bs]
			switch {
			case v == noCollision16:
				h.heightSamples[i] = noCollision8
			case r.max == r.min:
				h.heightSamples[i] = 0
			default:
				h.heightSamples[i] = uint8(math.Round(float64(v-r.min) * maxHeightValue8 / float64(r.max-r.min)))
			}
		}
	}
}

// isEdgeActive reports whether the edge between two triangles with normals
// n1 and n2 should produce its own contact normals. Zero normals (missing
// triangles) make the edge active.
func isEdgeActive(n1, n2, edge v3.Vec) bool {
	cos := n1.Dot(n2)
	// Back to back triangles.
	if cos < -0.99984769515639 {
		return true
	}
	// Concave.
	if n1.Cross(n2).Dot(edge) < 0 {
		return false
	}
	return cos < 0.99619469809
}

// buildActiveEdges stores 3 edge bits for triangle 0 of every quad: bit 0
// the left edge, bit 1 the top edge and bit 2 the diagonal. Triangle 1
// reconstructs its bits from its neighbours. One byte of padding lets reads
// always take 16 bits.
func (h *HeightField) buildActiveEdges() {
	n1 := h.sampleCount - 1
	quads := n1 * n1
	h.activeEdges = make([]uint8, (quads*3+7)/8+1)

	normals := make([]v3.Vec, 2*quads)
	for y := uint32(0); y < n1; y++ {
		for x := uint32(0); x < n1; x++ {
			if h.IsNoCollision(x, y) || h.IsNoCollision(x+1, y+1) {
				continue
			}
			x1y1, x2y2 := h.Position(x, y), h.Position(x+1, y+1)
			o := 2 * (n1*y + x)
			if !h.IsNoCollision(x, y+1) {
				x1y2 := h.Position(x, y+1)
				normals[o] = x2y2.Sub(x1y2).Cross(x1y1.Sub(x1y2)).Normalize()
			}
			if !h.IsNoCollision(x+1, y) {
				x2y1 := h.Position(x+1, y)
				normals[o+1] = x1y1.Sub(x2y1).Cross(x2y2.Sub(x2y1)).Normalize()
			}
		}
	}

	for y := uint32(0); y < n1; y++ {
		for x := uint32(0); x < n1; x++ {
			x1y1, x1y2, x2y2 := h.Position(x, y), h.Position(x, y+1), h.Position(x+1, y+1)
			o := 2 * (n1*y + x)
			var flags uint16
			if x == 0 || isEdgeActive(normals[o], normals[o-1], x1y2.Sub(x1y1)) {
				flags |= 0b001
			}
			if y == n1-1 || isEdgeActive(normals[o], normals[o+2*n1+1], x2y2.Sub(x1y2)) {
				flags |= 0b010
			}
			if isEdgeActive(normals[o], normals[o+1], x1y1.Sub(x2y2)) {
				flags |= 0b100
			}
			bit := 3 * (y*n1 + x)
			flags <<= bit & 7
			h.activeEdges[bit>>3] |= uint8(flags)
			h.activeEdges[bit>>3+1] |= uint8(flags >> 8)
		}
	}
}

// packMaterials stores the per quad material indices with just enough bits
// for the material list. With fewer than 2 materials nothing is stored.
func (h *HeightField) packMaterials(indices []uint8) {
	if len(h.materials) <= 1 {
		return
	}
	n1 := h.sampleCount - 1
	h.bitsPerMaterial = uint32(32 - bits.LeadingZeros32(uint32(len(h.materials)-1)))
	h.materialIndices = make([]uint8, (n1*n1*h.bitsPerMaterial+7)>>3+1)
	for i, m := range indices {
		bit := uint32(i) * h.bitsPerMaterial
		v := uint16(m) << (bit & 7)
		h.materialIndices[bit>>3] |= uint8(v)
		h.materialIndices[bit>>3+1] |= uint8(v >> 8)
	}
}

// maxLevel is the number of range block levels; leaves live one below.
func (h *HeightField) maxLevel() uint32 {
	return uint32(bits.TrailingZeros32(h.sampleCount / h.blockSize))
}

// SampleCount returns N for an N × N grid.
func (h *HeightField) SampleCount() uint32 { return h.sampleCount }

// BlockSize returns the side of a leaf tile.
func (h *HeightField) BlockSize() uint32 { return h.blockSize }

// SampleRange returns the 16 bit quantized range of all collidable samples,
// min > max when every sample is a hole.
func (h *HeightField) SampleRange() (uint16, uint16) { return h.minSample, h.maxSample }

func (h *HeightField) blockOffsetAndScale(x, y uint32) (float64, float64) {
	nb := h.sampleCount / h.blockSize
	bx, by := x/h.blockSize, y/h.blockSize
	rb := &h.rangeBlocks[gridOffsets[h.maxLevel()-1]+(by>>1)*(nb>>1)+(bx>>1)]
	i := (by&1)<<1 | bx&1
	return float64(rb.Min[i]), (float64(rb.Max[i]) - float64(rb.Min[i])) / maxHeightValue8
}

func (h *HeightField) position(x, y uint32, blockOffset, blockScale float64) v3.Vec {
	height := blockOffset + float64(h.heightSamples[y*h.sampleCount+x])*blockScale
	return h.offset.Add(h.scale.Mul(v3.Vec{X: float64(x), Y: height, Z: float64(y)}))
}

// Position returns the local position of sample (x, y). The result is
// meaningless for holes.
func (h *HeightField) Position(x, y uint32) v3.Vec {
	off, sc := h.blockOffsetAndScale(x, y)
	return h.position(x, y, off, sc)
}

// IsNoCollision reports whether sample (x, y) is a hole.
func (h *HeightField) IsNoCollision(x, y uint32) bool {
	return h.heightSamples[y*h.sampleCount+x] == noCollision8
}

func (h *HeightField) encodeSubShapeID(creator shape.SubShapeIDCreator, x, y, triangle uint32) shape.SubShapeID {
	return creator.PushID((x+y*h.sampleCount)*2+triangle, subShapeIDBits(h.sampleCount)).ID()
}

// DecodeSubShapeID returns the quad and triangle (0 or 1) a sub-shape ID
// refers to. IDs with bits left over panic.
func (h *HeightField) DecodeSubShapeID(id shape.SubShapeID) (x, y, triangle uint32) {
	v, rest := id.PopID(subShapeIDBits(h.sampleCount))
	if !rest.IsEmpty() {
		panic(fmt.Sprintf("heightfield: invalid sub-shape ID %#x", uint32(id)))
	}
	triangle = v & 1
	v >>= 1
	return v % h.sampleCount, v / h.sampleCount, triangle
}

// EdgeFlags returns the active edge bits of a triangle in vertex order:
// bit 0 for v0-v1, bit 1 for v1-v2 and bit 2 for v2-v0.
func (h *HeightField) EdgeFlags(x, y, triangle uint32) uint8 {
	n1 := h.sampleCount - 1
	if triangle == 0 {
		bit := 3 * (x + y*n1)
		v := uint16(h.activeEdges[bit>>3]) | uint16(h.activeEdges[bit>>3+1])<<8
		return uint8(v>>(bit&7)) & 0b111
	}
	var flags uint8
	// Diagonal, shared with triangle 0.
	if h.EdgeFlags(x, y, 0)&0b100 != 0 {
		flags |= 0b001
	}
	// Right edge: the border, or the left edge of the next quad.
	if x+1 == n1 || h.EdgeFlags(x+1, y, 0)&0b001 != 0 {
		flags |= 0b010
	}
	// Bottom edge: the border, or the top edge of the previous row.
	if y == 0 || h.EdgeFlags(x, y-1, 0)&0b010 != 0 {
		flags |= 0b100
	}
	return flags
}

func (h *HeightField) materialAt(x, y uint32) *shape.Material {
	switch len(h.materials) {
	case 0:
		return shape.DefaultMaterial
	case 1:
		return shape.MaterialOrDefault(h.materials[0])
	}
	bit := (x + y*(h.sampleCount-1)) * h.bitsPerMaterial
	v := uint16(h.materialIndices[bit>>3]) | uint16(h.materialIndices[bit>>3+1])<<8
	v = (v >> (bit & 7)) & (1<<h.bitsPerMaterial - 1)
	if int(v) >= len(h.materials) {
		return shape.DefaultMaterial
	}
	return shape.MaterialOrDefault(h.materials[v])
}

// Materials returns the material list.
func (h *HeightField) Materials() []*shape.Material { return h.materials }

func (h *HeightField) Material(id shape.SubShapeID) *shape.Material {
	x, y, _ := h.DecodeSubShapeID(id)
	return h.materialAt(x, y)
}

// SurfaceNormal returns the normal of the triangle id refers to.
func (h *HeightField) SurfaceNormal(id shape.SubShapeID, _ v3.Vec) v3.Vec {
	x, y, tri := h.DecodeSubShapeID(id)
	x1y1, x2y2 := h.Position(x, y), h.Position(x+1, y+1)
	if tri == 0 {
		x1y2 := h.Position(x, y+1)
		return x2y2.Sub(x1y2).Cross(x1y1.Sub(x1y2)).Normalize()
	}
	x2y1 := h.Position(x+1, y)
	return x1y1.Sub(x2y1).Cross(x2y2.Sub(x2y1)).Normalize()
}

// ProjectOntoSurface drops localPos vertically onto the terrain. It returns
// false outside the grid and over holes.
func (h *HeightField) ProjectOntoSurface(localPos v3.Vec) (v3.Vec, shape.SubShapeID, bool) {
	g := localPos.Sub(h.offset).Div(h.scale)
	last := float64(h.sampleCount - 1)
	if g.X < 0 || g.X >= last || g.Z < 0 || g.Z >= last {
		return v3.Vec{}, shape.EmptySubShapeID, false
	}
	x, y := uint32(g.X), uint32(g.Z)
	fx, fy := g.X-float64(x), g.Z-float64(y)
	if h.IsNoCollision(x, y) || h.IsNoCollision(x+1, y+1) {
		return v3.Vec{}, shape.EmptySubShapeID, false
	}
	creator := shape.NewSubShapeIDCreator()
	if fy >= fx {
		if h.IsNoCollision(x, y+1) {
			return v3.Vec{}, shape.EmptySubShapeID, false
		}
		p1, p2, p3 := h.Position(x, y), h.Position(x, y+1), h.Position(x+1, y+1)
		p := p1.Add(p2.Sub(p1).MulScalar(fy)).Add(p3.Sub(p2).MulScalar(fx))
		return p, h.encodeSubShapeID(creator, x, y, 0), true
	}
	if h.IsNoCollision(x+1, y) {
		return v3.Vec{}, shape.EmptySubShapeID, false
	}
	p1, p2, p3 := h.Position(x, y), h.Position(x+1, y+1), h.Position(x+1, y)
	p := p1.Add(p2.Sub(p3).MulScalar(fy)).Add(p3.Sub(p1).MulScalar(fx))
	return p, h.encodeSubShapeID(creator, x, y, 1), true
}

func (h *HeightField) MustBeStatic() bool { return true }

func (h *HeightField) CenterOfMass() v3.Vec { return v3.Vec{} }

// LocalBounds spans the grid and the quantized height range. A field made
// only of holes has the centre of the grid as its bounds.
func (h *HeightField) LocalBounds() geom.AABox {
	last := float64(h.sampleCount - 1)
	if h.minSample == noCollision16 {
		c := h.offset.Add(h.scale.Mul(v3.Vec{X: last, Z: last}).MulScalar(0.5))
		return geom.AABox{Min: c, Max: c}
	}
	p := h.offset.Add(h.scale.Mul(v3.Vec{Y: float64(h.minSample)}))
	q := h.offset.Add(h.scale.Mul(v3.Vec{X: last, Y: float64(h.maxSample), Z: last}))
	return geom.AABox{Min: p.Min(q), Max: p.Max(q)}
}

func (h *HeightField) WorldSpaceBounds(t geom.Transform, scale v3.Vec) geom.AABox {
	return shape.DefaultWorldSpaceBounds(h, t, scale)
}

// MassProperties is zero: height fields are static.
func (h *HeightField) MassProperties() shape.MassProperties { return shape.MassProperties{} }
func (h *HeightField) Volume() float64                      { return 0 }

func (h *HeightField) SubShapeIDBitsRecursive() uint { return subShapeIDBits(h.sampleCount) }

// IsValidScale accepts any scale without zero components.
func (h *HeightField) IsValidScale(scale v3.Vec) bool {
	return scale.X != 0 && scale.Y != 0 && scale.Z != 0
}

func (h *HeightField) CollectTransformedShapes(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec, creator shape.SubShapeIDCreator, c shape.TransformedShapeCollector, filter shape.ShapeFilter) {
	shape.CollectLeaf(h, box, pos, rot, scale, creator, c, filter)
}
