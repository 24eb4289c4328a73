// Package heap places the C library's malloc arena at boot and hands
// out memory from it one monotonic step at a time. It is a bump
// allocator on purpose: the cursor only ever advances, and the C
// library's own allocator is the one responsible for slicing up what
// it gets back.
package heap

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"solace/src/kernel"
)

// ErrOutOfMemory is returned by Sbrk when the arena cannot cover the
// request. The caller (the C library) treats it as a recoverable
// out-of-memory, not a fault.
var ErrOutOfMemory = errors.New("heap exhausted")

// Region is the process-wide arena. Base and capacity are fixed at
// boot; the cursor only grows, and only under the semaphore.
type Region struct {
	base     uintptr
	capacity uint64

	sem       kernel.Semaphore
	allocated uint64

	metrics *metrics
	logger  log.Logger
}

// Bootstrap computes the arena's base and capacity according to the
// configured policy and returns the Region. It must run exactly once,
// before any allocation and before any unprivileged thread starts. A
// mapping failure for a non-zero request is a boot-time fatal: the
// returned error is not something the platform can continue past.
func Bootstrap(cfg Config, k kernel.Kernel, logger log.Logger, reg prometheus.Registerer) (*Region, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid heap config")
	}

	var (
		base uintptr
		size uint64
		err  error
	)
	switch cfg.Policy {
	case PolicyMapped:
		size = cfg.MaxMappedRegionSize
		if free := k.FreeMemory(); free < size {
			size = free
		}
		// A zero-sized heap is legal: every Sbrk will fail, and
		// that is the platform's problem, not ours.
		if size != 0 {
			base, err = k.MapMemory(size, kernel.PermRW)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to map heap of size %d", size)
			}
		}

	case PolicyFixed:
		size = cfg.AlignedHeapSize
		base, err = k.MapAligned(size, size, kernel.PermRW)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to place fixed heap of size %d", size)
		}

	case PolicyImage:
		base = k.ImageEnd()
		if cfg.Userspace {
			// The partition bounds have to land on a protection
			// region boundary, so the base moves up to one.
			align, aerr := kernel.ProtectionAlign(cfg.Arch)
			if aerr != nil {
				return nil, aerr
			}
			base = kernel.RoundUp(base, align)
		}
		if kernel.Segmented(cfg.Arch) {
			size = uint64(k.HeapSentry() - base)
		} else {
			size = cfg.SRAMBase + cfg.SRAMSize - uint64(base)
		}
	}

	r := &Region{
		base:     base,
		capacity: size,
		sem:      k.NewSemaphore(),
		metrics:  newMetrics(reg),
		logger:   logger,
	}
	r.metrics.capacity.Set(float64(size))

	if cfg.Userspace && size != 0 {
		part := kernel.Partition{Start: base, Size: size, Attr: kernel.PartitionRW}
		if err := k.RegisterPartition(part); err != nil {
			return nil, errors.Wrap(err, "failed to register heap partition")
		}
	}

	level.Info(logger).Log("msg", "heap ready",
		"policy", cfg.Policy,
		"base", fmt.Sprintf("%#x", base),
		"capacity", humanize.IBytes(size))
	return r, nil
}

// Sbrk advances the cursor by delta and returns the address the cursor
// had before the call. Callers may pass a negative delta; the cursor
// moves back, but nothing promises that space behind a previously
// returned address is ever reusable. The bound check is a strict
// less-than against capacity: the final byte of the arena is never
// handed out. Downstream code has leaned on that guard byte for a long
// time, so it stays.
//
// Sbrk blocks on the heap semaphore for as long as it takes. On
// failure the cursor is untouched.
func (r *Region) Sbrk(delta int64) (uintptr, error) {
	r.sem.Take()
	defer r.sem.Give()

	next := int64(r.allocated) + delta
	if next < 0 || uint64(next) >= r.capacity {
		r.metrics.failures.Inc()
		return 0, ErrOutOfMemory
	}

	ptr := r.base + uintptr(r.allocated)
	r.allocated = uint64(next)
	r.metrics.allocated.Set(float64(r.allocated))
	return ptr, nil
}

// Base is the arena's first address.
func (r *Region) Base() uintptr { return r.base }

// Capacity is the arena size in bytes.
func (r *Region) Capacity() uint64 { return r.capacity }

// Allocated is the current cursor offset.
func (r *Region) Allocated() uint64 {
	r.sem.Take()
	defer r.sem.Give()
	return r.allocated
}
