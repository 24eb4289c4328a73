// Package hosted backs the kernel collaborator surface with plain host
// resources: slices for mapped memory, a mutex for the spinlock, a
// channel for the binary semaphore, the controlling terminal for the
// console sink. It exists for tests and for running the shim as an
// ordinary process.
package hosted

import (
	"flag"
	"sync"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"solace/src/kernel"
)

// Config fakes the platform facts a real kernel would know from its
// linker script and device tree.
type Config struct {
	FreeMemory uint64 `yaml:"free_memory"`
	ImageEnd   uint64 `yaml:"image_end"`
	HeapSentry uint64 `yaml:"heap_sentry"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.Uint64Var(&cfg.FreeMemory, "hosted.free-memory", 16<<20, "Physical memory the hosted kernel pretends to have.")
	f.Uint64Var(&cfg.ImageEnd, "hosted.image-end", 0x8020_0000, "Simulated end-of-image address for the image heap policy.")
	f.Uint64Var(&cfg.HeapSentry, "hosted.heap-sentry", 0, "Simulated heap sentry address for segmented targets.")
}

// Kernel implements kernel.Kernel on the host.
type Kernel struct {
	cfg    Config
	logger log.Logger

	mu         sync.Mutex
	arenas     [][]byte
	free       uint64
	partitions []kernel.Partition

	user atomic.Bool

	// Validate stands in for the syscall-boundary ownership check.
	// The default accepts everything the way a flat hosted address
	// space would; tests swap in something stricter.
	Validate func(p []byte) error

	// Faults receives the terminal sinks. Defaults to an
	// implementation that really does not come back.
	Faults kernel.Fault
}

// New builds a hosted kernel.
func New(cfg Config, logger log.Logger) *Kernel {
	k := &Kernel{cfg: cfg, logger: logger, free: cfg.FreeMemory}
	k.Faults = &haltFault{logger: logger}
	return k
}

// FreeMemory reports what is left of the configured budget.
func (k *Kernel) FreeMemory() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.free
}

// MapMemory backs a region with a host allocation and charges it
// against the free-memory budget.
func (k *Kernel) MapMemory(size uint64, perm kernel.MapPerm) (uintptr, error) {
	return k.MapAligned(size, 1, perm)
}

// MapAligned is MapMemory with a base alignment guarantee. The arena
// slice is retained so the backing store stays reachable for the life
// of the kernel.
func (k *Kernel) MapAligned(size, align uint64, perm kernel.MapPerm) (uintptr, error) {
	if size == 0 {
		return 0, errors.New("zero-sized mapping")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if size > k.free {
		return 0, errors.Errorf("mapping of %d bytes exceeds free memory %d", size, k.free)
	}
	buf := make([]byte, size+align)
	base := kernel.RoundUp(sliceBase(buf), uintptr(align))
	k.arenas = append(k.arenas, buf)
	k.free -= size
	return base, nil
}

// ImageEnd reports the simulated end of the loaded image.
func (k *Kernel) ImageEnd() uintptr { return uintptr(k.cfg.ImageEnd) }

// HeapSentry reports the simulated segmented-memory heap bound.
func (k *Kernel) HeapSentry() uintptr { return uintptr(k.cfg.HeapSentry) }

// RegisterPartition records the partition. The host has no MPU; what
// matters to callers is that registration happened, and when.
func (k *Kernel) RegisterPartition(p kernel.Partition) error {
	if p.Size == 0 {
		return errors.New("refusing empty partition")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.partitions = append(k.partitions, p)
	return nil
}

// Partitions returns what RegisterPartition has seen so far.
func (k *Kernel) Partitions() []kernel.Partition {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]kernel.Partition, len(k.partitions))
	copy(out, k.partitions)
	return out
}

// IsUserContext reports the simulated privilege of the caller.
func (k *Kernel) IsUserContext() bool { return k.user.Load() }

// SetUserContext flips the simulated privilege. On real hardware this
// is a property of the executing thread; the hosted stand-in is a
// process-wide switch, which is enough for exercising both routes.
func (k *Kernel) SetUserContext(user bool) { k.user.Store(user) }

// ValidateRead applies the configured ownership check.
func (k *Kernel) ValidateRead(p []byte) error {
	if k.Validate == nil {
		return nil
	}
	return k.Validate(p)
}

// Except raises a fatal exception. Never returns.
func (k *Kernel) Except(r kernel.Reason) { k.Faults.Except(r) }

// Panic is the kernel's unrecoverable stop. Never returns.
func (k *Kernel) Panic() { k.Faults.Panic() }

// Halt parks the CPU. Never returns.
func (k *Kernel) Halt() { k.Faults.Halt() }

// NewSemaphore returns a binary, wait-forever semaphore.
func (k *Kernel) NewSemaphore() kernel.Semaphore { return newSemaphore() }

// NewSpinLock returns the host spinlock.
func (k *Kernel) NewSpinLock() kernel.SpinLock { return &spinLock{} }
