package shape

import (
	"math"

	"github.com/chazu/narrowphase/pkg/geom"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// MassProperties holds mass and the inertia tensor about the centre of
// mass.
type MassProperties struct {
	Mass    float64
	Inertia mgl64.Mat3
}

// SolidSphere returns the mass properties of a uniform sphere.
func SolidSphere(radius, density float64) MassProperties {
	m := density * 4.0 / 3.0 * math.Pi * radius * radius * radius
	i := 0.4 * m * radius * radius
	return MassProperties{Mass: m, Inertia: mgl64.Diag3(mgl64.Vec3{i, i, i})}
}

// SolidBox returns the mass properties of a uniform box with half extents
// half.
func SolidBox(half v3.Vec, density float64) MassProperties {
	size := half.MulScalar(2)
	m := density * size.X * size.Y * size.Z
	x2, y2, z2 := size.X*size.X, size.Y*size.Y, size.Z*size.Z
	return MassProperties{Mass: m, Inertia: mgl64.Diag3(mgl64.Vec3{
		m / 12 * (y2 + z2),
		m / 12 * (x2 + z2),
		m / 12 * (x2 + y2),
	})}
}

// Scale returns the mass properties of the body stretched by scale, keeping
// the density.
func (p MassProperties) Scale(scale v3.Vec) MassProperties {
	d := p.Inertia.Diag()
	// Second moments ∫x², ∫y², ∫z² recovered from the diagonal.
	sq := mgl64.Vec3{
		0.5 * (d[1] + d[2] - d[0]),
		0.5 * (d[0] + d[2] - d[1]),
		0.5 * (d[0] + d[1] - d[2]),
	}
	s := [3]float64{scale.X, scale.Y, scale.Z}
	for i := range sq {
		sq[i] *= s[i] * s[i]
	}
	out := p.Inertia
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if r != c {
				out.Set(r, c, out.At(r, c)*s[r]*s[c])
			}
		}
	}
	out.Set(0, 0, sq[1]+sq[2])
	out.Set(1, 1, sq[0]+sq[2])
	out.Set(2, 2, sq[0]+sq[1])

	massScale := math.Abs(scale.X * scale.Y * scale.Z)
	return MassProperties{Mass: p.Mass * massScale, Inertia: out.Mul(massScale)}
}

// Rotate returns the properties expressed in a frame rotated by q.
func (p MassProperties) Rotate(q mgl64.Quat) MassProperties {
	return MassProperties{Mass: p.Mass, Inertia: geom.RotateInertia(p.Inertia, q)}
}

// Translate moves the reference point by v (parallel axis theorem).
func (p MassProperties) Translate(v v3.Vec) MassProperties {
	d := v.Length2()
	vv := [3]float64{v.X, v.Y, v.Z}
	out := p.Inertia
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			e := -vv[r] * vv[c]
			if r == c {
				e += d
			}
			out.Set(r, c, out.At(r, c)+p.Mass*e)
		}
	}
	return MassProperties{Mass: p.Mass, Inertia: out}
}

// Add sums two sets of mass properties about the same point.
func (p MassProperties) Add(o MassProperties) MassProperties {
	return MassProperties{Mass: p.Mass + o.Mass, Inertia: p.Inertia.Add(o.Inertia)}
}
