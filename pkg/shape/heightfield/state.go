package heightfield

import (
	"fmt"

	"github.com/chazu/narrowphase/pkg/shape"
)

func (h *HeightField) SaveBinaryState(out *shape.StreamOut) {
	h.Base.SaveBinaryState(out)
	out.WriteVec3(h.offset)
	out.WriteVec3(h.scale)
	out.WriteUint32(h.sampleCount)
	out.WriteUint16(h.minSample)
	out.WriteUint16(h.maxSample)
	out.WriteUint32(uint32(len(h.rangeBlocks)))
	for i := range h.rangeBlocks {
		for _, v := range h.rangeBlocks[i].Min {
			out.WriteUint16(v)
		}
		for _, v := range h.rangeBlocks[i].Max {
			out.WriteUint16(v)
		}
	}
	out.WriteBytes(h.heightSamples)
	out.WriteBytes(h.activeEdges)
	out.WriteBytes(h.materialIndices)
	out.WriteUint32(h.bitsPerMaterial)
	out.WriteUint32(h.blockSize)
}

func (h *HeightField) RestoreBinaryState(in *shape.StreamIn) {
	h.Base.RestoreBinaryState(in)
	h.offset = in.ReadVec3()
	h.scale = in.ReadVec3()
	h.sampleCount = in.ReadUint32()
	h.minSample = in.ReadUint16()
	h.maxSample = in.ReadUint16()
	n := in.ReadUint32()
	if in.Err() != nil {
		return
	}
	if !isPowerOfTwo(h.sampleCount) || subShapeIDBits(h.sampleCount) > shape.MaxSubShapeIDBits {
		in.Fail(fmt.Errorf("heightfield: restore: invalid sample count %d", h.sampleCount))
		return
	}
	if n > gridOffsets[numBitsXY] {
		in.Fail(fmt.Errorf("heightfield: restore: %d range blocks", n))
		return
	}
	h.rangeBlocks = make([]rangeBlock, n)
	for i := range h.rangeBlocks {
		rb := &h.rangeBlocks[i]
		for j := range rb.Min {
			rb.Min[j] = in.ReadUint16()
		}
		for j := range rb.Max {
			rb.Max[j] = in.ReadUint16()
		}
	}
	h.heightSamples = in.ReadBytes()
	h.activeEdges = in.ReadBytes()
	h.materialIndices = in.ReadBytes()
	h.bitsPerMaterial = in.ReadUint32()
	h.blockSize = in.ReadUint32()
	if in.Err() != nil {
		return
	}
	if err := h.checkRestored(); err != nil {
		in.Fail(err)
	}
}

// checkRestored rejects restored state that queries would index out of
// range.
func (h *HeightField) checkRestored() error {
	n, bs := h.sampleCount, h.blockSize
	if bs < 2 || bs > MaxBlockSize || !isPowerOfTwo(bs) || n < 2*bs || uint64(n) > uint64(bs)<<numBitsXY {
		return fmt.Errorf("heightfield: restore: block size %d invalid for sample count %d", bs, n)
	}
	quads := (n - 1) * (n - 1)
	switch {
	case uint32(len(h.rangeBlocks)) != gridOffsets[h.maxLevel()]:
		return fmt.Errorf("heightfield: restore: got %d range blocks, want %d", len(h.rangeBlocks), gridOffsets[h.maxLevel()])
	case uint32(len(h.heightSamples)) != n*n:
		return fmt.Errorf("heightfield: restore: got %d height samples, want %d", len(h.heightSamples), n*n)
	case uint32(len(h.activeEdges)) != (quads*3+7)/8+1:
		return fmt.Errorf("heightfield: restore: got %d active edge bytes", len(h.activeEdges))
	case h.bitsPerMaterial > 8:
		return fmt.Errorf("heightfield: restore: %d bits per material", h.bitsPerMaterial)
	case h.bitsPerMaterial > 0 && uint32(len(h.materialIndices)) != (quads*h.bitsPerMaterial+7)>>3+1:
		return fmt.Errorf("heightfield: restore: got %d material index bytes", len(h.materialIndices))
	}
	return nil
}

func (h *HeightField) SaveMaterialState(materials *[]*shape.Material) {
	*materials = append(*materials, h.materials...)
}

// RestoreMaterialState installs the material list. Packed indices must be
// able to address every material.
func (h *HeightField) RestoreMaterialState(materials []*shape.Material) {
	if len(materials) > MaxMaterials || (len(materials) > 1 && len(materials) > 1<<h.bitsPerMaterial) {
		panic(fmt.Sprintf("heightfield: %d materials do not fit %d bits per material", len(materials), h.bitsPerMaterial))
	}
	if len(materials) > 1 && h.bitsPerMaterial == 0 {
		panic(fmt.Sprintf("heightfield: %d materials without material indices", len(materials)))
	}
	h.materials = append([]*shape.Material(nil), materials...)
}
