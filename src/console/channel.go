package console

import "go.uber.org/atomic"

// PutFunc pushes one byte at the physical output sink. The platform
// installs the real one (a UART, a host TTY, a log capture) at boot.
type PutFunc func(c byte)

// GetFunc pulls the next input byte, blocking until one arrives.
type GetFunc func() byte

// discard is the default output sink: bytes written before a hook is
// installed are dropped cleanly, never buffered and never replayed.
func discard(byte) {}

// Channel is one logical byte sink. The hook reference is swappable at
// any time; a write that is already in flight finishes on whichever
// hook it captured, and nothing is replayed through a newly installed
// hook.
type Channel struct {
	put   atomic.Value // PutFunc
	ready atomic.Bool
}

func newChannel() *Channel {
	c := &Channel{}
	c.put.Store(PutFunc(discard))
	return c
}

// Install replaces the sink and marks the channel live. Installing the
// same hook again is harmless.
func (c *Channel) Install(fn PutFunc) {
	if fn == nil {
		fn = discard
	}
	c.put.Store(fn)
	c.ready.Store(true)
}

// Hook returns the currently installed sink.
func (c *Channel) Hook() PutFunc {
	return c.put.Load().(PutFunc)
}

// Ready reports whether a real sink has been installed.
func (c *Channel) Ready() bool {
	return c.ready.Load()
}
