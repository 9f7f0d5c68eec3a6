package shape

import (
	"fmt"
	"sync"
)

// Factory returns an empty shape ready for RestoreBinaryState.
type Factory func() Shape

var (
	factoriesMu sync.RWMutex
	factories   = map[SubType]Factory{}
)

// RegisterFactory installs the factory used to restore shapes of sub type s.
func RegisterFactory(s SubType, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if _, ok := factories[s]; ok {
		panic(fmt.Sprintf("shape: factory for %s already registered", s))
	}
	factories[s] = f
}

func factoryFor(s SubType) (Factory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[s]
	return f, ok
}

// RestoreFromBinaryState reads the sub type byte, creates an empty shape of
// that kind and restores its own state. Children and materials are not
// restored; use RestoreWithChildren for whole trees.
func RestoreFromBinaryState(in *StreamIn) (Shape, error) {
	st := SubType(in.ReadUint8())
	if err := in.Err(); err != nil {
		return nil, err
	}
	f, ok := factoryFor(st)
	if !ok {
		return nil, fmt.Errorf("shape: no factory for sub type %d", uint8(st))
	}
	s := f()
	s.RestoreBinaryState(in)
	if err := in.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

const noShapeID = ^uint32(0)

// ShapeToID assigns stream IDs to shapes during SaveWithChildren.
type ShapeToID map[Shape]uint32

// MaterialToID assigns stream IDs to materials during SaveWithChildren.
type MaterialToID map[*Material]uint32

// SaveWithChildren writes s, its sub-shapes and its materials. Shapes and
// materials already in the maps are written as a reference only, so shared
// shapes and materials appear once in the stream.
func SaveWithChildren(s Shape, out *StreamOut, shapeMap ShapeToID, materialMap MaterialToID) {
	if id, ok := shapeMap[s]; ok {
		out.WriteUint32(id)
		return
	}
	id := uint32(len(shapeMap))
	shapeMap[s] = id
	out.WriteUint32(id)
	s.SaveBinaryState(out)

	var subShapes []Shape
	s.SaveSubShapeState(&subShapes)
	out.WriteUint32(uint32(len(subShapes)))
	for _, sub := range subShapes {
		if sub == nil {
			out.WriteUint32(noShapeID)
			continue
		}
		SaveWithChildren(sub, out, shapeMap, materialMap)
	}

	var materials []*Material
	s.SaveMaterialState(&materials)
	out.WriteUint32(uint32(len(materials)))
	for _, m := range materials {
		saveMaterial(m, out, materialMap)
	}
}

func saveMaterial(m *Material, out *StreamOut, materialMap MaterialToID) {
	if m == nil {
		out.WriteUint32(noShapeID)
		return
	}
	if id, ok := materialMap[m]; ok {
		out.WriteUint32(id)
		return
	}
	id := uint32(len(materialMap))
	materialMap[m] = id
	out.WriteUint32(id)
	out.WriteString(m.Name)
}

// RestoreWithChildren reads a tree written by SaveWithChildren. The lists
// collect the shapes and materials read so far and must be shared across
// calls that read from the same stream.
func RestoreWithChildren(in *StreamIn, shapes *[]Shape, materials *[]*Material) (Shape, error) {
	id := in.ReadUint32()
	if err := in.Err(); err != nil {
		return nil, err
	}
	if id == noShapeID {
		return nil, nil
	}
	if int(id) < len(*shapes) {
		return (*shapes)[id], nil
	}
	if int(id) != len(*shapes) {
		return nil, fmt.Errorf("shape: restore: unexpected shape id %d, have %d shapes", id, len(*shapes))
	}

	s, err := RestoreFromBinaryState(in)
	if err != nil {
		return nil, err
	}
	*shapes = append(*shapes, s)

	n := in.ReadUint32()
	subShapes := make([]Shape, 0, n)
	for i := uint32(0); i < n && in.Err() == nil; i++ {
		sub, err := RestoreWithChildren(in, shapes, materials)
		if err != nil {
			return nil, err
		}
		subShapes = append(subShapes, sub)
	}

	n = in.ReadUint32()
	mats := make([]*Material, 0, n)
	for i := uint32(0); i < n && in.Err() == nil; i++ {
		mats = append(mats, restoreMaterial(in, materials))
	}
	if err := in.Err(); err != nil {
		return nil, err
	}

	s.RestoreSubShapeState(subShapes)
	s.RestoreMaterialState(mats)
	return s, nil
}

func restoreMaterial(in *StreamIn, materials *[]*Material) *Material {
	id := in.ReadUint32()
	if in.Err() != nil || id == noShapeID {
		return nil
	}
	if int(id) < len(*materials) {
		return (*materials)[id]
	}
	if int(id) != len(*materials) {
		in.Fail(fmt.Errorf("shape: restore: unexpected material id %d, have %d materials", id, len(*materials)))
		return nil
	}
	m := &Material{Name: in.ReadString()}
	*materials = append(*materials, m)
	return m
}
