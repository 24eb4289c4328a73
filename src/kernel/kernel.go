// Package kernel is the surface the surrounding RTOS exposes to the
// C-library shim. The shim never talks to hardware or to scheduler
// internals directly; everything it needs from the kernel comes in
// through these interfaces, installed once at boot.
package kernel

// MapPerm is the access requested for a mapped region.
type MapPerm uint8

const (
	PermRead MapPerm = 1 << iota
	PermWrite
)

// PermRW is what the malloc arena always asks for.
const PermRW = PermRead | PermWrite

// Memory is the demand-paging side of the kernel. MapMemory returns the
// base address of a freshly mapped region of at least size bytes, or an
// error when the kernel cannot back the request. FreeMemory reports how
// much physical memory is currently unclaimed. MapAligned is the same
// as MapMemory but guarantees the returned base is aligned to align
// (align must be a power of two).
type Memory interface {
	MapMemory(size uint64, perm MapPerm) (uintptr, error)
	MapAligned(size uint64, align uint64, perm MapPerm) (uintptr, error)
	FreeMemory() uint64
}

// Layout describes where the loaded image sits in RAM, for platforms
// that hand the allocator "whatever is left".
type Layout interface {
	// ImageEnd is the first byte past the loaded kernel image.
	ImageEnd() uintptr
	// HeapSentry is the end-of-heap marker on segmented-memory
	// targets. Zero when the target has no sentry symbol.
	HeapSentry() uintptr
}

// Semaphore is the kernel's binary semaphore. Take blocks the calling
// thread until the semaphore is free; there is no timeout and no
// cancellation. The allocator depends on the wait-forever behavior.
type Semaphore interface {
	Take()
	Give()
}

// SpinKey is the opaque token returned by SpinLock.Lock, carrying
// whatever interrupt state the kernel needs to restore on Unlock.
type SpinKey uint64

// SpinLock is the kernel spinlock. Lock masks preemption for the
// duration of the critical section; the section must stay short and
// must never reach anything that blocks.
type SpinLock interface {
	Lock() SpinKey
	Unlock(SpinKey)
}

// PartitionAttr is the access granted to unprivileged threads over a
// partition.
type PartitionAttr uint8

const (
	// PartitionRW grants read-write to both privileged and
	// unprivileged code.
	PartitionRW PartitionAttr = iota
)

// Partition is a memory-protection region descriptor.
type Partition struct {
	Start uintptr
	Size  uint64
	Attr  PartitionAttr
}

// Protection registers partitions with the kernel's memory-domain
// machinery. Registration must complete before any unprivileged thread
// is allowed to run.
type Protection interface {
	RegisterPartition(p Partition) error
}

// Privilege answers the one question the console multiplexer asks on
// every write: is the current caller running unprivileged?
type Privilege interface {
	IsUserContext() bool
}

// Validator is the syscall-boundary check applied to buffers handed in
// from user context. ValidateRead returns an error when the caller does
// not own the bytes it is asking the kernel to read.
type Validator interface {
	ValidateRead(p []byte) error
}

// Fault is the set of terminal control-flow sinks. None of these
// methods return: Except raises a fatal kernel exception with a reason
// code, Panic is the kernel's own unrecoverable stop, and Halt parks
// the CPU permanently. Implementations on a hosted platform may block
// forever or exit the process; either way the caller must treat the
// call as the end of the line.
type Fault interface {
	Except(r Reason)
	Panic()
	Halt()
}

// Kernel is everything the shim consumes, in one handle. A platform
// builds exactly one of these during boot and passes it to the heap
// bootstrap and the console.
type Kernel interface {
	Memory
	Layout
	Protection
	Privilege
	Validator
	Fault

	NewSemaphore() Semaphore
	NewSpinLock() SpinLock
}
