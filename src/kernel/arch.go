package kernel

import "github.com/pkg/errors"

// Arch names the target architecture, which decides the alignment a
// protection region must have when the heap doubles as one.
type Arch string

const (
	ArchARM    Arch = "arm"
	ArchARM64  Arch = "arm64"
	ArchARC    Arch = "arc"
	ArchRISCV  Arch = "riscv"
	ArchXtensa Arch = "xtensa"
)

// ErrUnsupportedArch is returned when a protection partition is needed
// but the architecture has no known protection-region granularity.
var ErrUnsupportedArch = errors.New("no protection-region granularity for architecture")

// mpuAlign is the minimum alignment and size granularity of a
// protection region per architecture. The ARM values cover both the
// MPU minimum region size and the common MMU small-page case; RISC-V
// uses its PMP stack-guard granule.
var mpuAlign = map[Arch]uintptr{
	ArchARM:   4096,
	ArchARM64: 4096,
	ArchARC:   2048,
	ArchRISCV: 1024,
}

// ProtectionAlign returns the alignment required for a partition base
// on arch. Architectures without partition support get an error, not a
// guess.
func ProtectionAlign(arch Arch) (uintptr, error) {
	a, ok := mpuAlign[arch]
	if !ok {
		return 0, errors.Wrapf(ErrUnsupportedArch, "arch %q", arch)
	}
	return a, nil
}

// Segmented reports whether arch bounds its heap with a linker sentry
// symbol instead of a flat top-of-RAM address.
func Segmented(arch Arch) bool {
	return arch == ArchXtensa
}

// RoundUp aligns v up to the next multiple of align. align must be a
// power of two.
func RoundUp(v uintptr, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}
