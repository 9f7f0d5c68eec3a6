package heightfield

import (
	"github.com/chazu/narrowphase/pkg/geom"
	"github.com/chazu/narrowphase/pkg/shape"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// TrianglesContext is the state of a triangle paging walk. It is owned by
// one caller and must not be shared.
type TrianglesContext struct {
	w         *walker
	box       geom.OrientedBox
	transform geom.Transform
	scale     v3.Vec
	flip      bool
	// skip counts the triangles of the leaf on top of the stack that an
	// earlier call already returned.
	skip int
}

// GetTrianglesStart begins paging the triangles of every leaf block that
// overlaps box, a world space box. pos, rot and scale place the height
// field in the world.
func (h *HeightField) GetTrianglesStart(box geom.AABox, pos v3.Vec, rot mgl64.Quat, scale v3.Vec) *TrianglesContext {
	t := geom.NewTransform(rot, pos)
	return &TrianglesContext{
		w:         newWalker(h),
		box:       geom.NewOrientedBox(t.Inverse(), box),
		transform: t,
		scale:     scale,
		flip:      scale.X*scale.Y*scale.Z < 0,
	}
}

type pageVisitor struct {
	ctx     *TrianglesContext
	out     *shape.Triangles
	limit   int
	handled int
}

func (v *pageVisitor) full() bool { return v.out.TriangleCount() >= v.limit }

func (v *pageVisitor) ShouldAbort() bool {
	if v.full() {
		v.ctx.skip = v.handled
		return true
	}
	v.ctx.skip = 0
	v.handled = 0
	return false
}

func (v *pageVisitor) ShouldVisitRangeBlock(int) bool { return true }

func (v *pageVisitor) VisitRangeBlock(blocks []Block, _ int) int {
	return keepIf(blocks, func(b geom.AABox) bool {
		return v.ctx.box.OverlapsAABox(geom.Scaled(b, v.ctx.scale))
	})
}

func (v *pageVisitor) VisitTriangle(x, y, _ uint32, v0, v1, v2 v3.Vec) {
	if v.handled < v.ctx.skip {
		v.handled++
		return
	}
	if v.full() {
		return
	}
	t, s := v.ctx.transform, v.ctx.scale
	w0, w1, w2 := t.Apply(v0.Mul(s)), t.Apply(v1.Mul(s)), t.Apply(v2.Mul(s))
	if v.ctx.flip {
		w1, w2 = w2, w1
	}
	v.out.Add(w0, w1, w2, v.ctx.w.h.materialAt(x, y))
	v.handled++
}

// GetTrianglesNext appends up to max more triangles to out and returns how
// many it added. Zero means the walk is complete.
func (h *HeightField) GetTrianglesNext(ctx *TrianglesContext, max int, out *shape.Triangles) int {
	if max < 1 {
		panic("heightfield: GetTrianglesNext needs room for at least one triangle")
	}
	if ctx.w.done() {
		return 0
	}
	before := out.TriangleCount()
	ctx.w.walk(&pageVisitor{ctx: ctx, out: out, limit: before + max})
	return out.TriangleCount() - before
}
