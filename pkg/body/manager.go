package body

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/chazu/narrowphase/pkg/shape"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
)

// DefaultLockPoolSize is the number of body mutexes of a manager created
// without WithLockPoolSize.
const DefaultLockPoolSize = 32

// MaxLockPoolSize bounds the pool so every mutex has a bit in a MutexMask.
const MaxLockPoolSize = 64

var (
	// ErrTooManyBodies is returned when every body slot is in use.
	ErrTooManyBodies = errors.New("body: too many bodies")
	// ErrNoShape is returned when a body is created without a shape.
	ErrNoShape = errors.New("body: no shape")
)

// MutexMask has bit i set when mutex i of the pool must be locked.
type MutexMask uint64

// Option configures a Manager.
type Option func(*options)

type options struct {
	poolSize  int
	maxBodies int
	logger    *log.Logger
}

// WithLockPoolSize sets the number of body mutexes. It must be a power of
// two between 1 and MaxLockPoolSize.
func WithLockPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithMaxBodies limits the number of live bodies.
func WithMaxBodies(n int) Option {
	return func(o *options) { o.maxBodies = n }
}

// WithLogger sets the logger for body creation and removal.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Manager owns the bodies and the pool of mutexes that guards them. The
// slot table has its own lock; a body's fields are guarded by the pool
// mutex the body maps to.
type Manager struct {
	mu        sync.RWMutex
	bodies    []*Body
	sequences []uint8
	free      []uint32
	count     int
	maxBodies int

	locks  []sync.RWMutex
	logger *log.Logger
}

// NewManager returns an empty manager.
func NewManager(opts ...Option) (*Manager, error) {
	o := options{poolSize: DefaultLockPoolSize, maxBodies: MaxBodies}
	for _, opt := range opts {
		opt(&o)
	}
	if o.poolSize < 1 || o.poolSize > MaxLockPoolSize || o.poolSize&(o.poolSize-1) != 0 {
		return nil, fmt.Errorf("body: lock pool size %d is not a power of two in [1, %d]", o.poolSize, MaxLockPoolSize)
	}
	if o.maxBodies < 1 || o.maxBodies > MaxBodies {
		return nil, fmt.Errorf("body: max bodies %d out of range [1, %d]", o.maxBodies, MaxBodies)
	}
	if o.logger == nil {
		o.logger = log.Default().WithPrefix("body")
	}
	return &Manager{
		maxBodies: o.maxBodies,
		locks:     make([]sync.RWMutex, o.poolSize),
		logger:    o.logger,
	}, nil
}

// LockPoolSize returns the number of body mutexes.
func (m *Manager) LockPoolSize() int { return len(m.locks) }

// MutexIndex returns the pool index of the mutex guarding id.
func (m *Manager) MutexIndex(id shape.BodyID) int {
	return int(Index(id) & uint32(len(m.locks)-1))
}

// MutexForBody returns the mutex guarding id.
func (m *Manager) MutexForBody(id shape.BodyID) *sync.RWMutex {
	return &m.locks[m.MutexIndex(id)]
}

// MutexMask returns the mask of the mutexes guarding ids. Invalid IDs are
// skipped.
func (m *Manager) MutexMask(ids []shape.BodyID) MutexMask {
	return lo.Reduce(ids, func(mask MutexMask, id shape.BodyID, _ int) MutexMask {
		if !id.IsValid() {
			return mask
		}
		return mask | MutexMask(1)<<m.MutexIndex(id)
	}, 0)
}

func (m *Manager) checkMask(mask MutexMask) {
	if len(m.locks) < MaxLockPoolSize && mask>>len(m.locks) != 0 {
		panic(fmt.Sprintf("body: mutex mask %#x out of range for %d mutexes", uint64(mask), len(m.locks)))
	}
}

// eachMutex calls fn for the set bits of mask in ascending order.
func eachMutex(mask MutexMask, fn func(i int)) {
	for rest := uint64(mask); rest != 0; rest &= rest - 1 {
		fn(bits.TrailingZeros64(rest))
	}
}

// LockRead read-locks the mutexes of mask in ascending index order.
func (m *Manager) LockRead(mask MutexMask) {
	m.checkMask(mask)
	eachMutex(mask, func(i int) { m.locks[i].RLock() })
}

// UnlockRead releases the read locks of mask.
func (m *Manager) UnlockRead(mask MutexMask) {
	m.checkMask(mask)
	eachMutex(mask, func(i int) { m.locks[i].RUnlock() })
}

// LockWrite write-locks the mutexes of mask in ascending index order.
func (m *Manager) LockWrite(mask MutexMask) {
	m.checkMask(mask)
	eachMutex(mask, func(i int) { m.locks[i].Lock() })
}

// UnlockWrite releases the write locks of mask.
func (m *Manager) UnlockWrite(mask MutexMask) {
	m.checkMask(mask)
	eachMutex(mask, func(i int) { m.locks[i].Unlock() })
}

// TryGetBody returns the body with id, or nil when it does not exist. The
// caller holds the body's mutex to read or write its fields.
func (m *Manager) TryGetBody(id shape.BodyID) *Body {
	if !id.IsValid() {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i := Index(id)
	if int(i) >= len(m.bodies) {
		return nil
	}
	if b := m.bodies[i]; b != nil && b.id == id {
		return b
	}
	return nil
}

// NumBodies returns the number of live bodies.
func (m *Manager) NumBodies() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// BodyIDs returns the IDs of the live bodies in slot order.
func (m *Manager) BodyIDs() []shape.BodyID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.FilterMap(m.bodies, func(b *Body, _ int) (shape.BodyID, bool) {
		if b == nil {
			return shape.InvalidBodyID, false
		}
		return b.id, true
	})
}

// AddBody stores a new body and returns it. Freed slots are reused with
// the next sequence number so stale IDs stop resolving.
func (m *Manager) AddBody(s CreationSettings) (*Body, error) {
	if s.Shape == nil {
		return nil, ErrNoShape
	}
	rot := s.Rotation
	if rot == (mgl64.Quat{}) {
		rot = mgl64.QuatIdent()
	}

	m.mu.Lock()
	if m.count >= m.maxBodies {
		m.mu.Unlock()
		return nil, ErrTooManyBodies
	}
	var index uint32
	if n := len(m.free); n > 0 {
		index = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		index = uint32(len(m.bodies))
		m.bodies = append(m.bodies, nil)
		m.sequences = append(m.sequences, 0)
	}
	b := &Body{
		id:       makeID(index, m.sequences[index]),
		shape:    s.Shape,
		position: s.Position,
		rotation: rot.Normalize(),
		layer:    s.Layer,
		userData: s.UserData,
	}
	m.bodies[index] = b
	m.count++
	m.mu.Unlock()

	m.logger.Debug("body added", "id", b.id, "index", index, "layer", b.layer)
	return b, nil
}

// RemoveBody frees the slot of id and returns the removed body. The caller
// holds the body's write lock.
func (m *Manager) RemoveBody(id shape.BodyID) (*Body, bool) {
	if !id.IsValid() {
		return nil, false
	}
	m.mu.Lock()
	i := Index(id)
	if int(i) >= len(m.bodies) || m.bodies[i] == nil || m.bodies[i].id != id {
		m.mu.Unlock()
		return nil, false
	}
	b := m.bodies[i]
	m.bodies[i] = nil
	m.sequences[i]++
	m.free = append(m.free, i)
	m.count--
	m.mu.Unlock()

	m.logger.Debug("body removed", "id", id, "index", i)
	return b, true
}
