package shape

// Material is a surface material. Shapes reference materials by pointer so
// that many shapes can share one.
type Material struct {
	Name string
}

// DefaultMaterial is returned for surfaces without an assigned material.
var DefaultMaterial = &Material{Name: "Default"}

// MaterialOrDefault returns m, or DefaultMaterial when m is nil.
func MaterialOrDefault(m *Material) *Material {
	if m == nil {
		return DefaultMaterial
	}
	return m
}
