package hosted

import (
	"sync"
	"unsafe"

	"solace/src/kernel"
)

// semaphore is a binary semaphore built on a one-slot channel. Take
// blocks forever; that is the contract the allocator wants, so there
// is deliberately no timeout variant.
type semaphore struct {
	slot chan struct{}
}

func newSemaphore() *semaphore {
	s := &semaphore{slot: make(chan struct{}, 1)}
	s.slot <- struct{}{}
	return s
}

func (s *semaphore) Take() { <-s.slot }

func (s *semaphore) Give() {
	select {
	case s.slot <- struct{}{}:
	default:
		// Double give on a binary semaphore saturates, it does not
		// stack.
	}
}

// spinLock satisfies kernel.SpinLock with a mutex. The host cannot
// mask interrupts; mutual exclusion is the part callers observe.
type spinLock struct {
	mu sync.Mutex
}

func (l *spinLock) Lock() kernel.SpinKey {
	l.mu.Lock()
	return 0
}

func (l *spinLock) Unlock(kernel.SpinKey) {
	l.mu.Unlock()
}

// sliceBase is the address of a slice's first element.
func sliceBase(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
