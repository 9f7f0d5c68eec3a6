package body

import (
	"sync"

	"github.com/chazu/narrowphase/pkg/shape"
)

// LockInterface locks bodies for reading or writing. Locking guards access
// with the manager's mutex pool; NoLock is for callers that already hold
// the locks or run single threaded.
type LockInterface interface {
	LockRead(id shape.BodyID) *sync.RWMutex
	UnlockRead(m *sync.RWMutex)
	LockWrite(id shape.BodyID) *sync.RWMutex
	UnlockWrite(m *sync.RWMutex)

	MutexMask(ids []shape.BodyID) MutexMask
	LockReadMask(mask MutexMask)
	UnlockReadMask(mask MutexMask)
	LockWriteMask(mask MutexMask)
	UnlockWriteMask(mask MutexMask)

	TryGetBody(id shape.BodyID) *Body
}

// Locking takes the manager's body mutexes.
type Locking struct {
	m *Manager
}

var _ LockInterface = Locking{}

// NewLocking returns a LockInterface that locks bodies of m.
func NewLocking(m *Manager) Locking { return Locking{m: m} }

func (l Locking) LockRead(id shape.BodyID) *sync.RWMutex {
	mu := l.m.MutexForBody(id)
	mu.RLock()
	return mu
}

func (l Locking) UnlockRead(mu *sync.RWMutex) { mu.RUnlock() }

func (l Locking) LockWrite(id shape.BodyID) *sync.RWMutex {
	mu := l.m.MutexForBody(id)
	mu.Lock()
	return mu
}

func (l Locking) UnlockWrite(mu *sync.RWMutex) { mu.Unlock() }

func (l Locking) MutexMask(ids []shape.BodyID) MutexMask { return l.m.MutexMask(ids) }
func (l Locking) LockReadMask(mask MutexMask)            { l.m.LockRead(mask) }
func (l Locking) UnlockReadMask(mask MutexMask)          { l.m.UnlockRead(mask) }
func (l Locking) LockWriteMask(mask MutexMask)           { l.m.LockWrite(mask) }
func (l Locking) UnlockWriteMask(mask MutexMask)         { l.m.UnlockWrite(mask) }
func (l Locking) TryGetBody(id shape.BodyID) *Body       { return l.m.TryGetBody(id) }

// NoLock resolves bodies without locking.
type NoLock struct {
	m *Manager
}

var _ LockInterface = NoLock{}

// NewNoLock returns a LockInterface over m that never locks.
func NewNoLock(m *Manager) NoLock { return NoLock{m: m} }

func (NoLock) LockRead(shape.BodyID) *sync.RWMutex  { return nil }
func (NoLock) UnlockRead(*sync.RWMutex)             {}
func (NoLock) LockWrite(shape.BodyID) *sync.RWMutex { return nil }
func (NoLock) UnlockWrite(*sync.RWMutex)            {}
func (NoLock) MutexMask([]shape.BodyID) MutexMask   { return 0 }
func (NoLock) LockReadMask(MutexMask)               {}
func (NoLock) UnlockReadMask(MutexMask)             {}
func (NoLock) LockWriteMask(MutexMask)              {}
func (NoLock) UnlockWriteMask(MutexMask)            {}
func (l NoLock) TryGetBody(id shape.BodyID) *Body   { return l.m.TryGetBody(id) }

// LockRead read-locks id and returns the body, or nil when it does not
// exist. release must be called exactly once.
func LockRead(li LockInterface, id shape.BodyID) (b *Body, release func()) {
	mu := li.LockRead(id)
	return li.TryGetBody(id), func() { li.UnlockRead(mu) }
}

// LockWrite write-locks id and returns the body, or nil when it does not
// exist. release must be called exactly once.
func LockWrite(li LockInterface, id shape.BodyID) (b *Body, release func()) {
	mu := li.LockWrite(id)
	return li.TryGetBody(id), func() { li.UnlockWrite(mu) }
}

// MultiLock holds the locks of several bodies.
type MultiLock struct {
	li    LockInterface
	ids   []shape.BodyID
	mask  MutexMask
	write bool
}

// LockMultiRead read-locks every body of ids at once.
func LockMultiRead(li LockInterface, ids []shape.BodyID) *MultiLock {
	mask := li.MutexMask(ids)
	li.LockReadMask(mask)
	return &MultiLock{li: li, ids: ids, mask: mask}
}

// LockMultiWrite write-locks every body of ids at once.
func LockMultiWrite(li LockInterface, ids []shape.BodyID) *MultiLock {
	mask := li.MutexMask(ids)
	li.LockWriteMask(mask)
	return &MultiLock{li: li, ids: ids, mask: mask, write: true}
}

// Body returns the i-th locked body, or nil when it does not exist.
func (l *MultiLock) Body(i int) *Body {
	return l.li.TryGetBody(l.ids[i])
}

// Len returns the number of requested bodies.
func (l *MultiLock) Len() int { return len(l.ids) }

// Release unlocks all bodies.
func (l *MultiLock) Release() {
	if l.write {
		l.li.UnlockWriteMask(l.mask)
	} else {
		l.li.UnlockReadMask(l.mask)
	}
}
