package heap

import (
	"flag"
	"math/bits"

	"github.com/pkg/errors"

	"solace/src/kernel"
)

// Policy selects how the malloc arena is placed at boot.
type Policy string

const (
	// PolicyMapped demand-maps the arena from the kernel, sized to
	// whatever physical memory is actually available.
	PolicyMapped Policy = "mapped"
	// PolicyFixed uses a static arena of a fixed, self-aligned,
	// power-of-two size.
	PolicyFixed Policy = "fixed"
	// PolicyImage hands the arena everything between the end of the
	// loaded image and the top of RAM.
	PolicyImage Policy = "image"
)

// Config is the boot-time description of the heap. It is read exactly
// once, by Bootstrap; nothing here changes after boot.
type Config struct {
	Policy Policy      `yaml:"policy"`
	Arch   kernel.Arch `yaml:"arch"`

	// MaxMappedRegionSize caps the mapped-policy arena. The actual
	// size is the smaller of this and free physical memory.
	MaxMappedRegionSize uint64 `yaml:"max_mapped_region_size"`

	// AlignedHeapSize is the fixed-policy arena size. It must be a
	// power of two; the arena is aligned to its own size.
	AlignedHeapSize uint64 `yaml:"aligned_heap_size"`

	// SRAMBase and SRAMSize bound RAM for the image policy on flat
	// memory targets. Segmented targets use the kernel's heap sentry
	// instead and ignore these.
	SRAMBase uint64 `yaml:"sram_base"`
	SRAMSize uint64 `yaml:"sram_size"`

	// Userspace is set when unprivileged threads must reach the heap
	// directly, which forces a protection partition over it.
	Userspace bool `yaml:"userspace"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar((*string)(&cfg.Policy), "heap.policy", string(PolicyMapped), "Arena placement policy: mapped, fixed or image.")
	f.StringVar((*string)(&cfg.Arch), "heap.arch", string(kernel.ArchARM64), "Target architecture.")
	f.Uint64Var(&cfg.MaxMappedRegionSize, "heap.max-mapped-region-size", 1<<20, "Upper bound on the mapped-policy arena in bytes.")
	f.Uint64Var(&cfg.AlignedHeapSize, "heap.aligned-heap-size", 0, "Fixed-policy arena size in bytes; must be a power of two.")
	f.Uint64Var(&cfg.SRAMBase, "heap.sram-base", 0, "Base address of RAM for the image policy.")
	f.Uint64Var(&cfg.SRAMSize, "heap.sram-size", 0, "Size of RAM in bytes for the image policy.")
	f.BoolVar(&cfg.Userspace, "heap.userspace", false, "Register a read-write partition over the arena for user threads.")
}

// Validate rejects configurations Bootstrap cannot honor. The
// power-of-two rule on the fixed arena is enforced here, before boot,
// the way the original build system rejected it before link.
func (cfg *Config) Validate() error {
	switch cfg.Policy {
	case PolicyMapped:
	case PolicyFixed:
		if cfg.AlignedHeapSize == 0 || bits.OnesCount64(cfg.AlignedHeapSize) != 1 {
			return errors.Errorf("aligned heap size %d is not a power of two", cfg.AlignedHeapSize)
		}
	case PolicyImage:
		if !kernel.Segmented(cfg.Arch) && cfg.SRAMSize == 0 {
			return errors.New("image policy on a flat memory target needs sram_size")
		}
	default:
		return errors.Errorf("unknown heap policy %q", cfg.Policy)
	}
	return nil
}
