package shape

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"
)

// StreamOut writes little-endian binary shape state. The first write error
// sticks; later writes are skipped and Err reports it.
type StreamOut struct {
	w   io.Writer
	err error
	buf [8]byte
}

func NewStreamOut(w io.Writer) *StreamOut {
	return &StreamOut{w: w}
}

// Err returns the first write error.
func (s *StreamOut) Err() error { return s.err }

func (s *StreamOut) write(b []byte) {
	if s.err != nil {
		return
	}
	if _, err := s.w.Write(b); err != nil {
		s.err = fmt.Errorf("shape: write state: %w", err)
	}
}

func (s *StreamOut) WriteUint8(v uint8) {
	s.buf[0] = v
	s.write(s.buf[:1])
}

func (s *StreamOut) WriteUint16(v uint16) {
	binary.LittleEndian.PutUint16(s.buf[:2], v)
	s.write(s.buf[:2])
}

func (s *StreamOut) WriteUint32(v uint32) {
	binary.LittleEndian.PutUint32(s.buf[:4], v)
	s.write(s.buf[:4])
}

func (s *StreamOut) WriteUint64(v uint64) {
	binary.LittleEndian.PutUint64(s.buf[:8], v)
	s.write(s.buf[:8])
}

func (s *StreamOut) WriteBool(v bool) {
	if v {
		s.WriteUint8(1)
	} else {
		s.WriteUint8(0)
	}
}

// WriteFloat stores v as a float32.
func (s *StreamOut) WriteFloat(v float64) {
	s.WriteUint32(math.Float32bits(float32(v)))
}

func (s *StreamOut) WriteVec3(v v3.Vec) {
	s.WriteFloat(v.X)
	s.WriteFloat(v.Y)
	s.WriteFloat(v.Z)
}

// WriteQuat stores x, y, z, w.
func (s *StreamOut) WriteQuat(q mgl64.Quat) {
	s.WriteFloat(q.V[0])
	s.WriteFloat(q.V[1])
	s.WriteFloat(q.V[2])
	s.WriteFloat(q.W)
}

// WriteBytes stores a uint32 length followed by b.
func (s *StreamOut) WriteBytes(b []byte) {
	s.WriteUint32(uint32(len(b)))
	s.write(b)
}

func (s *StreamOut) WriteString(str string) {
	s.WriteBytes([]byte(str))
}

// StreamIn reads what StreamOut wrote. After the first error every read
// returns zero values and Err reports the error.
type StreamIn struct {
	r   io.Reader
	err error
	buf [8]byte
}

func NewStreamIn(r io.Reader) *StreamIn {
	return &StreamIn{r: r}
}

// Err returns the first read error. A truncated stream reports
// io.ErrUnexpectedEOF.
func (s *StreamIn) Err() error { return s.err }

// IsEOF reports whether the stream ended cleanly before a value.
func (s *StreamIn) IsEOF() bool { return errors.Is(s.err, io.EOF) }

func (s *StreamIn) read(b []byte) bool {
	if s.err != nil {
		return false
	}
	if _, err := io.ReadFull(s.r, b); err != nil {
		s.err = fmt.Errorf("shape: read state: %w", err)
		return false
	}
	return true
}

func (s *StreamIn) ReadUint8() uint8 {
	if !s.read(s.buf[:1]) {
		return 0
	}
	return s.buf[0]
}

func (s *StreamIn) ReadUint16() uint16 {
	if !s.read(s.buf[:2]) {
		return 0
	}
	return binary.LittleEndian.Uint16(s.buf[:2])
}

func (s *StreamIn) ReadUint32() uint32 {
	if !s.read(s.buf[:4]) {
		return 0
	}
	return binary.LittleEndian.Uint32(s.buf[:4])
}

func (s *StreamIn) ReadUint64() uint64 {
	if !s.read(s.buf[:8]) {
		return 0
	}
	return binary.LittleEndian.Uint64(s.buf[:8])
}

func (s *StreamIn) ReadBool() bool { return s.ReadUint8() != 0 }

func (s *StreamIn) ReadFloat() float64 {
	return float64(math.Float32frombits(s.ReadUint32()))
}

func (s *StreamIn) ReadVec3() v3.Vec {
	x := s.ReadFloat()
	y := s.ReadFloat()
	z := s.ReadFloat()
	return v3.Vec{X: x, Y: y, Z: z}
}

func (s *StreamIn) ReadQuat() mgl64.Quat {
	x := s.ReadFloat()
	y := s.ReadFloat()
	z := s.ReadFloat()
	w := s.ReadFloat()
	return mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
}

// maxStreamSlice bounds length prefixes so a corrupt stream cannot force a
// huge allocation.
const maxStreamSlice = 1 << 30

func (s *StreamIn) ReadBytes() []byte {
	n := s.ReadUint32()
	if s.err != nil {
		return nil
	}
	if n > maxStreamSlice {
		s.err = fmt.Errorf("shape: read state: length %d too large", n)
		return nil
	}
	b := make([]byte, n)
	if !s.read(b) {
		return nil
	}
	return b
}

func (s *StreamIn) ReadString() string {
	return string(s.ReadBytes())
}

// Fail records err unless an earlier error is already set.
func (s *StreamIn) Fail(err error) {
	if s.err == nil {
		s.err = err
	}
}
