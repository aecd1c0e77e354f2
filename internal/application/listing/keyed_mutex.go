package listing

import (
	"sync"

	"github.com/google/uuid"
)

// productLocks serializes engine operations per product. Operations on
// different products proceed concurrently; two operations on the same
// product queue behind each other.
type productLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[uuid.UUID]*productLock)}
}

// Lock acquires the lock for a product, blocking until available
func (p *productLocks) Lock(productID uuid.UUID) {
	p.mu.Lock()
	l, ok := p.locks[productID]
	if !ok {
		l = &productLock{}
		p.locks[productID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
}

// Unlock releases the lock for a product and drops the entry once unused
func (p *productLocks) Unlock(productID uuid.UUID) {
	p.mu.Lock()
	l, ok := p.locks[productID]
	if !ok {
		p.mu.Unlock()
		return
	}
	l.refs--
	if l.refs == 0 {
		delete(p.locks, productID)
	}
	p.mu.Unlock()

	l.mu.Unlock()
}
