// Package console multiplexes byte output from many concurrent
// writers, privileged and not, onto a single platform-installed sink.
// It owns the three standard stream handles and the kernel's printk
// path; it deliberately does no buffering of its own.
package console

import (
	"flag"
	"fmt"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"

	"solace/src/kernel"
)

// Config decides, at boot, how printk output is routed and whether
// console writers are serialized. These are configuration-time
// decisions; nothing here is re-examined per write beyond a flag load.
type Config struct {
	// SyncOutput serializes console writers under the kernel
	// spinlock so lines never shear mid-character-pair.
	SyncOutput bool `yaml:"sync_output"`
	// StructuredLog hands printk formatting and emission to the
	// structured logging collaborator instead of the raw byte path.
	StructuredLog bool `yaml:"structured_log"`
}

// RegisterFlags adds the flags required to config this to the given FlagSet
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	f.BoolVar(&cfg.SyncOutput, "console.sync-output", true, "Serialize concurrent console writers under the kernel spinlock.")
	f.BoolVar(&cfg.StructuredLog, "console.structured-log", false, "Route printk through the structured logger instead of the console sink.")
}

// Console is the process-wide multiplexer. Exactly one is built at
// boot and shared by every caller for the life of the process.
type Console struct {
	cfg Config

	priv  kernel.Privilege
	valid kernel.Validator
	fault kernel.Fault
	lock  kernel.SpinLock

	channel *Channel
	stdout  *Stream
	stdin   *Stream

	slog    log.Logger
	metrics *metrics
}

// New builds the console. logger is used as the structured printk
// collaborator when cfg.StructuredLog is set; otherwise it is ignored
// on the hot path.
func New(cfg Config, k kernel.Kernel, logger log.Logger, reg prometheus.Registerer) *Console {
	c := &Console{
		cfg:     cfg,
		priv:    k,
		valid:   k,
		fault:   k,
		lock:    k.NewSpinLock(),
		channel: newChannel(),
		stdout:  newStream(),
		stdin:   newStream(),
		metrics: newMetrics(reg),
	}
	if cfg.StructuredLog {
		c.slog = logger
	}
	return c
}

// InstallPrintkHook points the console channel at fn. Earlier output
// that went to the previous sink stays there.
func (c *Console) InstallPrintkHook(fn PutFunc) {
	c.channel.Install(fn)
}

// PrintkHook returns the console channel's current sink.
func (c *Console) PrintkHook() PutFunc {
	return c.channel.Hook()
}

// Printk is the kernel's formatted output entry point. With a
// structured logger configured the whole call is delegated there.
// Otherwise the formatted bytes take the privilege-routed path: user
// context goes through the validated syscall write, kernel context
// writes straight to the console channel under the spinlock.
func (c *Console) Printk(format string, args ...interface{}) {
	if c.slog != nil {
		c.slog.Log("msg", fmt.Sprintf(format, args...))
		return
	}

	msg := fmt.Sprintf(format, args...)
	if c.priv.IsUserContext() {
		c.userStrOut([]byte(msg))
		return
	}

	key, locked := c.lockOutput()
	c.emit([]byte(msg))
	c.unlockOutput(key, locked)
}

// StrOut pushes a byte run at the console channel. This is the
// privileged low-level path; user context arrives here only through
// userStrOut's validation.
func (c *Console) StrOut(p []byte) {
	key, locked := c.lockOutput()
	c.emit(p)
	c.unlockOutput(key, locked)
}

// userStrOut is the syscall-boundary twin of StrOut. The only
// difference is the ownership check on the source buffer; the bytes
// that come out are identical.
func (c *Console) userStrOut(p []byte) {
	if err := c.valid.ValidateRead(p); err != nil {
		c.fault.Except(kernel.ReasonOops)
		return
	}
	c.StrOut(p)
}

// emit writes p to the console sink with the CR-before-LF transform.
// Single pass: an LF already preceded by a CR in p is left alone. The
// caller holds the spinlock when synchronization is on, which is what
// keeps a CR+LF pair whole against other writers.
func (c *Console) emit(p []byte) {
	hook := c.channel.Hook()
	var prev byte
	for _, b := range p {
		if b == '\n' && prev != '\r' {
			hook('\r')
		}
		hook(b)
		prev = b
	}
	c.metrics.consoleBytes.Add(float64(len(p)))
}

func (c *Console) lockOutput() (kernel.SpinKey, bool) {
	if !c.cfg.SyncOutput {
		return 0, false
	}
	return c.lock.Lock(), true
}

func (c *Console) unlockOutput(key kernel.SpinKey, locked bool) {
	if locked {
		c.lock.Unlock(key)
	}
}
