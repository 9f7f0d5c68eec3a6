package shape

import "fmt"

// MaxSubShapeIDBits is the total number of bits a sub-shape ID can hold.
const MaxSubShapeIDBits = 32

// SubShapeID is a bit-packed path to a leaf shape in a shape tree. Each
// level of nesting appends its index above the bits of the levels before
// it; unused high bits are all ones.
type SubShapeID uint32

// EmptySubShapeID addresses the root shape itself.
const EmptySubShapeID SubShapeID = 0xffffffff

// IsEmpty reports whether no bits remain.
func (id SubShapeID) IsEmpty() bool { return id == EmptySubShapeID }

// PopID removes the lowest bits bits and returns them with the remainder.
// The vacated high bits are filled with ones so the remainder of a fully
// popped ID is empty.
func (id SubShapeID) PopID(bits uint) (value uint32, remainder SubShapeID) {
	if bits > MaxSubShapeIDBits {
		panic(fmt.Sprintf("shape: cannot pop %d sub-shape ID bits", bits))
	}
	if bits == 0 {
		return 0, id
	}
	if bits == MaxSubShapeIDBits {
		return uint32(id), EmptySubShapeID
	}
	mask := uint32(1)<<bits - 1
	value = uint32(id) & mask
	remainder = SubShapeID(uint32(id)>>bits | ^(^uint32(0) >> bits))
	return value, remainder
}

// SubShapeIDCreator builds a SubShapeID while descending a shape tree.
// It is a value type: each PushID returns a new creator.
type SubShapeIDCreator struct {
	id         SubShapeID
	currentBit uint
}

// NewSubShapeIDCreator returns a creator with no bits pushed.
func NewSubShapeIDCreator() SubShapeIDCreator {
	return SubShapeIDCreator{id: EmptySubShapeID}
}

// PushID returns a creator with value stored in the next bits bits. It
// panics when value does not fit or the ID would exceed MaxSubShapeIDBits.
func (c SubShapeIDCreator) PushID(value uint32, bits uint) SubShapeIDCreator {
	if bits == 0 {
		return c
	}
	if c.currentBit+bits > MaxSubShapeIDBits {
		panic(fmt.Sprintf("shape: sub-shape ID overflow: %d+%d bits", c.currentBit, bits))
	}
	if bits < 32 && value>>bits != 0 {
		panic(fmt.Sprintf("shape: sub-shape value %d does not fit in %d bits", value, bits))
	}
	var mask uint32
	if bits == 32 {
		mask = ^uint32(0)
	} else {
		mask = (uint32(1)<<bits - 1) << c.currentBit
	}
	id := uint32(c.id)&^mask | value<<c.currentBit
	return SubShapeIDCreator{id: SubShapeID(id), currentBit: c.currentBit + bits}
}

// ID returns the ID built so far.
func (c SubShapeIDCreator) ID() SubShapeID { return c.id }

// NumBitsWritten returns how many bits have been pushed.
func (c SubShapeIDCreator) NumBitsWritten() uint { return c.currentBit }

// BitsForCount returns the number of bits needed to store indices 0..n-1.
func BitsForCount(n int) uint {
	var bits uint
	for n > 1<<bits {
		bits++
	}
	return bits
}
