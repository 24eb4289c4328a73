package kernel

// Reason identifies why a fatal exception was raised. The values are
// stable so that crash reports stay comparable across builds.
type Reason uint32

const (
	ReasonUnknown Reason = iota
	// ReasonStackChkFail is raised when the C library's buffer
	// overflow detection fires.
	ReasonStackChkFail
	ReasonKernelPanic
	// ReasonOops is raised when a syscall hands the kernel a buffer
	// the caller does not own.
	ReasonOops
)

func (r Reason) String() string {
	switch r {
	case ReasonStackChkFail:
		return "stack check failure"
	case ReasonKernelPanic:
		return "kernel panic"
	case ReasonOops:
		return "syscall oops"
	}
	return "unknown fault"
}
