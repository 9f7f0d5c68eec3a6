package geom

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

// OrientedBox is a box with half extents HalfExtents placed by Transform.
type OrientedBox struct {
	Transform   Transform
	HalfExtents v3.Vec
}

// NewOrientedBox places the local box b with t.
func NewOrientedBox(t Transform, b AABox) OrientedBox {
	return OrientedBox{Transform: t.PreTranslated(b.Center()), HalfExtents: Extent(b)}
}

// Bounds returns the axis aligned bounds of the oriented box.
func (o OrientedBox) Bounds() AABox {
	return Transformed(AABox{Min: o.HalfExtents.Neg(), Max: o.HalfExtents}, o.Transform)
}

// OverlapsAABox runs the 15 axis separating axis test against b.
func (o OrientedBox) OverlapsAABox(b AABox) bool {
	if !IsValid(b) {
		return false
	}
	r := RotationMatrix(o.Transform.Rotation)
	be := Extent(b)
	ae := o.HalfExtents
	// Translation from the oriented box centre to the aabox centre, in world.
	t := b.Center().Sub(o.Transform.Position)

	var rot, absRot [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			// rot[i][j] = world axis i · local axis j
			rot[i][j] = r.At(i, j)
			absRot[i][j] = math.Abs(rot[i][j]) + 1e-12
		}
	}
	bes := [3]float64{be.X, be.Y, be.Z}
	aes := [3]float64{ae.X, ae.Y, ae.Z}
	ts := [3]float64{t.X, t.Y, t.Z}

	// World axes.
	for i := 0; i < 3; i++ {
		ra := aes[0]*absRot[i][0] + aes[1]*absRot[i][1] + aes[2]*absRot[i][2]
		if math.Abs(ts[i]) > ra+bes[i] {
			return false
		}
	}
	// Local axes.
	for j := 0; j < 3; j++ {
		rb := bes[0]*absRot[0][j] + bes[1]*absRot[1][j] + bes[2]*absRot[2][j]
		d := ts[0]*rot[0][j] + ts[1]*rot[1][j] + ts[2]*rot[2][j]
		if math.Abs(d) > aes[j]+rb {
			return false
		}
	}
	// Cross products of world axis i with local axis j.
	for i := 0; i < 3; i++ {
		i1, i2 := (i+1)%3, (i+2)%3
		for j := 0; j < 3; j++ {
			j1, j2 := (j+1)%3, (j+2)%3
			ra := bes[i1]*absRot[i2][j] + bes[i2]*absRot[i1][j]
			rb := aes[j1]*absRot[i][j2] + aes[j2]*absRot[i][j1]
			d := ts[i2]*rot[i1][j] - ts[i1]*rot[i2][j]
			if math.Abs(d) > ra+rb {
				return false
			}
		}
	}
	return true
}
