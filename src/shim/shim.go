// Package shim is the C library's view of the system: the handful of
// POSIX-shaped calls a minimal libc needs, bound to the heap arena and
// the console multiplexer. There is no filesystem behind any of this, so
// most descriptor calls are fixed-behavior stubs.
package shim

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"solace/src/console"
	"solace/src/heap"
	"solace/src/kernel"
)

// Sentinel results for the stub syscalls. These are ordinary,
// recoverable errors; the C library maps them onto errno.
var (
	ErrNoEntry      = errors.New("no such entity")
	ErrNotSupported = errors.New("operation not supported")
)

// Mode is the file-type portion of a stat result.
type Mode uint16

// ModeCharDevice is the only mode this system ever reports: every
// descriptor looks like a character device.
const ModeCharDevice Mode = 0o020000

// Stat is the subset of struct stat the shim can honestly fill in.
type Stat struct {
	Mode Mode
}

// C is the process-context object tying the C library to the kernel.
// Built once at boot, after the heap bootstrap, and handed to every
// consumer; all of its methods are safe for concurrent use.
type C struct {
	heap   *heap.Region
	con    *console.Console
	fault  kernel.Fault
	logger log.Logger
}

// New binds the shim to an already bootstrapped heap and console.
func New(region *heap.Region, con *console.Console, k kernel.Kernel, logger log.Logger) *C {
	return &C{heap: region, con: con, fault: k, logger: logger}
}

// Sbrk is the growth primitive the C library's allocator calls when it
// needs more backing memory.
func (c *C) Sbrk(delta int64) (uintptr, error) {
	return c.heap.Sbrk(delta)
}

// Read fills buf from the stdin hook, stopping at a line terminator.
// The descriptor is ignored; there is only one input.
func (c *C) Read(fd int, buf []byte) int {
	_ = fd
	return c.con.ReadStdin(buf)
}

// Write pushes p through the stdout stream with the CR/LF transform.
// The descriptor is ignored; stdout and stderr are the same sink.
func (c *C) Write(fd int, p []byte) int {
	_ = fd
	return c.con.WriteStdout(p)
}

// Open always fails: there is nothing to open.
func (c *C) Open(name string, mode int) (int, error) {
	return -1, errors.Wrapf(ErrNoEntry, "open %q", name)
}

// Close always fails, matching Open.
func (c *C) Close(fd int) error {
	return ErrNotSupported
}

// Lseek reports position zero for every descriptor.
func (c *C) Lseek(fd int, offset int64, whence int) int64 {
	return 0
}

// Fstat reports every descriptor as a character device.
func (c *C) Fstat(fd int) (Stat, error) {
	return Stat{Mode: ModeCharDevice}, nil
}

// Isatty is always true: everything here is a terminal.
func (c *C) Isatty(fd int) bool {
	return true
}

// Kill succeeds without doing anything; there are no signals.
func (c *C) Kill(pid, sig int) error {
	return nil
}

// Getpid reports process zero, the only process there is.
func (c *C) Getpid() int {
	return 0
}

// Gettimeofday is unsupported; the C library falls back accordingly.
func (c *C) Gettimeofday() error {
	return ErrNotSupported
}

// Exit writes its fixed farewell and parks the CPU. It never returns
// and performs no cleanup; that is the contract.
func (c *C) Exit(status int) {
	c.Write(1, []byte("exit\n"))
	level.Debug(c.logger).Log("msg", "halting", "status", status)
	c.fault.Halt()
}

// ChkFail is the C library's buffer-overflow detection landing point.
// It reports the fixed diagnostic and raises a fatal exception; it
// must never return to the corrupted caller.
func (c *C) ChkFail() {
	c.Write(2, []byte("* buffer overflow detected *\n"))
	c.fault.Except(kernel.ReasonStackChkFail)
}

// Abort logs its own invocation through printk and panics the kernel.
func (c *C) Abort() {
	c.con.Printk("abort\n")
	c.fault.Panic()
}
