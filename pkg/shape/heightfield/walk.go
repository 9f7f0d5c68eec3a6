package heightfield

import (
	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// stackSize bounds the walk stack. Every level pushes at most 4 entries
// and there are at most numBitsXY+1 levels.
const stackSize = 128

// Block is one child cell of a range block, handed to
// Visitor.VisitRangeBlock.
type Block struct {
	// Bounds in unscaled local space.
	Bounds geom.AABox
	props  uint32
}

// Visitor drives a walk over the height field.
type Visitor interface {
	// ShouldAbort is polled after every node. Returning true stops the walk
	// with the current node still on the stack.
	ShouldAbort() bool
	// ShouldVisitRangeBlock is asked before a stacked entry is processed.
	ShouldVisitRangeBlock(stackTop int) bool
	// VisitRangeBlock receives the non-empty children of a node. It moves
	// the children to descend into to the front of blocks and returns how
	// many there are; blocks[n-1] is visited first. Children land on the
	// stack at stackTop, stackTop+1, ...
	VisitRangeBlock(blocks []Block, stackTop int) int
	// VisitTriangle receives a leaf triangle in unscaled local space.
	VisitTriangle(x, y, triangle uint32, v0, v1, v2 v3.Vec)
}

// walker is the explicit stack of a walk. Keeping it across calls resumes
// a walk that a visitor aborted.
type walker struct {
	h        *HeightField
	maxLevel uint32
	stack    [stackSize]uint32
	top      int
}

func newWalker(h *HeightField) *walker {
	// The root entry is level 0, x 0, y 0: the zero value.
	return &walker{h: h, maxLevel: h.maxLevel()}
}

// done reports whether the walk visited everything it was allowed to.
func (w *walker) done() bool { return w.top < 0 }

func (w *walker) walk(v Visitor) {
	h := w.h
	var blocks [4]Block
	for w.top >= 0 {
		props := w.stack[w.top]
		x := props & maskBitsXY
		y := (props >> numBitsXY) & maskBitsXY
		level := props >> levelShift

		if level >= w.maxLevel {
			h.visitLeaf(x, y, v)
			if v.ShouldAbort() {
				return
			}
			w.top--
		} else {
			n := h.childBlocks(level, x, y, w.maxLevel, &blocks)
			k := 0
			if n > 0 {
				k = min(v.VisitRangeBlock(blocks[:n], w.top), n)
			}
			for i := 0; i < k; i++ {
				w.stack[w.top+i] = blocks[i].props
			}
			w.top += k - 1
			if v.ShouldAbort() {
				return
			}
		}

		for w.top >= 0 && !v.ShouldVisitRangeBlock(w.top) {
			w.top--
		}
	}
}

// Walk runs v over the whole height field.
func (h *HeightField) Walk(v Visitor) {
	newWalker(h).walk(v)
}

// localBox returns the local bounds of grid coordinates lo..hi, where Y
// holds quantized heights.
func (h *HeightField) localBox(lo, hi v3.Vec) geom.AABox {
	p, q := h.offset.Add(h.scale.Mul(lo)), h.offset.Add(h.scale.Mul(hi))
	return geom.AABox{Min: p.Min(q), Max: p.Max(q)}
}

// childBlocks decodes the 4 cells of range block (x, y) at level, skipping
// cells without collidable samples.
func (h *HeightField) childBlocks(level, x, y, maxLevel uint32, out *[4]Block) int {
	rb := &h.rangeBlocks[gridOffsets[level]+(uint32(1)<<level)*y+x]
	cell := h.blockSize << (maxLevel - level - 1)
	last := h.sampleCount - 1
	n := 0
	for i := uint32(0); i < 4; i++ {
		if rb.Min[i] > rb.Max[i] {
			continue
		}
		cx, cy := 2*x+(i&1), 2*y+(i>>1)
		lo := v3.Vec{X: float64(cell * cx), Y: float64(rb.Min[i]), Z: float64(cell * cy)}
		hi := v3.Vec{X: float64(min(cell*(cx+1), last)), Y: float64(rb.Max[i]), Z: float64(min(cell*(cy+1), last))}
		out[n] = Block{
			Bounds: h.localBox(lo, hi),
			props:  (level+1)<<levelShift | cy<<numBitsXY | cx,
		}
		n++
	}
	return n
}

// visitLeaf decodes the (blockSize+1)² vertex tile of leaf block (x, y) and
// hands every triangle without a hole vertex to v. Triangle 0 of a quad is
// (x,y) (x,y+1) (x+1,y+1), triangle 1 is (x,y) (x+1,y+1) (x+1,y).
func (h *HeightField) visitLeaf(x, y uint32, v Visitor) {
	const tile = (MaxBlockSize + 1) * (MaxBlockSize + 1)
	var verts [tile]v3.Vec
	var holes [tile]bool

	bs := h.blockSize
	minX, minY := x*bs, y*bs
	maxX, maxY := min(minX+bs+1, h.sampleCount), min(minY+bs+1, h.sampleCount)
	numX := maxX - minX

	i := 0
	for vy := minY; vy < maxY; vy++ {
		for vx := minX; vx < maxX; vx++ {
			holes[i] = h.IsNoCollision(vx, vy)
			if !holes[i] {
				verts[i] = h.Position(vx, vy)
			}
			i++
		}
	}

	for vy := minY; vy < maxY-1; vy++ {
		for vx := minX; vx < maxX-1; vx++ {
			o := (vy-minY)*numX + vx - minX
			if holes[o] || holes[o+numX+1] {
				continue
			}
			if !holes[o+numX] {
				v.VisitTriangle(vx, vy, 0, verts[o], verts[o+numX], verts[o+numX+1])
			}
			if !holes[o+1] {
				v.VisitTriangle(vx, vy, 1, verts[o], verts[o+numX+1], verts[o+1])
			}
		}
	}
}

// closestFirst orders blocks by descending distance, keeps those closer
// than maxDist and records their distances in dist from stackTop on. The
// closest block ends up last and is visited first.
func closestFirst(blocks []Block, dist *[stackSize]float64, stackTop int, maxDist float64, distance func(geom.AABox) float64) int {
	var d [4]float64
	for i := range blocks {
		d[i] = distance(blocks[i].Bounds)
	}
	for i := 1; i < len(blocks); i++ {
		for j := i; j > 0 && d[j] > d[j-1]; j-- {
			d[j], d[j-1] = d[j-1], d[j]
			blocks[j], blocks[j-1] = blocks[j-1], blocks[j]
		}
	}
	k := 0
	for i := range blocks {
		if d[i] < maxDist {
			blocks[k] = blocks[i]
			dist[stackTop+k] = d[i]
			k++
		}
	}
	return k
}

// keepIf moves the blocks accepted by keep to the front.
func keepIf(blocks []Block, keep func(geom.AABox) bool) int {
	k := 0
	for i := range blocks {
		if keep(blocks[i].Bounds) {
			blocks[k] = blocks[i]
			k++
		}
	}
	return k
}
