package console

import "go.uber.org/atomic"

// Stream is one of the three standard C streams as the shim sees them.
// A stream is just a pair of swappable hooks plus direction flags; all
// buffering and formatting stays on the C library's side.
type Stream struct {
	out *Channel

	get      atomic.Value // GetFunc
	readable atomic.Bool
}

func newStream() *Stream {
	return &Stream{out: newChannel()}
}

// putByte hands one byte to the stream's sink, untransformed.
func (s *Stream) putByte(c byte) {
	s.out.Hook()(c)
}

// getByte blocks for the next input byte. Before an input hook is
// installed it returns NUL, which keeps a misbehaving early reader
// from corrupting stream state.
func (s *Stream) getByte() byte {
	fn := s.get.Load()
	if fn == nil {
		return 0
	}
	return fn.(GetFunc)()
}

// Writable reports whether a real output hook has been installed.
func (s *Stream) Writable() bool { return s.out.Ready() }

// Readable reports whether an input hook has been installed.
func (s *Stream) Readable() bool { return s.readable.Load() }

// Stdout returns the stdout stream handle.
func (c *Console) Stdout() *Stream { return c.stdout }

// Stdin returns the stdin stream handle.
func (c *Console) Stdin() *Stream { return c.stdin }

// Stderr returns the stderr stream handle. It is the very same object
// as stdout, the way the C library strong-aliases the two: redirecting
// one redirects both, always.
func (c *Console) Stderr() *Stream { return c.stdout }

// InstallOutputHook redirects stdout (and therefore stderr) to fn and
// marks the stream writable. Writes that already happened stay with
// whatever sink they used.
func (c *Console) InstallOutputHook(fn PutFunc) {
	c.stdout.out.Install(fn)
}

// InstallInputHook wires stdin to fn and marks the stream readable.
func (c *Console) InstallInputHook(fn GetFunc) {
	c.stdin.get.Store(fn)
	c.stdin.readable.Store(true)
}

// WriteStdout pushes p through the stdout sink, inserting a carriage
// return before each line feed that does not already have one. The
// insertion is single-pass: a "\r\n" already present in p goes out
// unchanged. Returns the number of bytes of p consumed, which is
// always all of them.
func (c *Console) WriteStdout(p []byte) int {
	var prev byte
	for _, b := range p {
		if b == '\n' && prev != '\r' {
			c.stdout.putByte('\r')
		}
		c.stdout.putByte(b)
		prev = b
	}
	c.metrics.stdoutBytes.Add(float64(len(p)))
	return len(p)
}

// ReadStdin fills buf one byte at a time from the stdin hook. Reading
// stops when buf is full or right after a line terminator ('\n' or
// '\r'), which is included in the result. Returns the byte count,
// never more than len(buf).
func (c *Console) ReadStdin(buf []byte) int {
	i := 0
	for ; i < len(buf); i++ {
		buf[i] = c.stdin.getByte()
		if buf[i] == '\n' || buf[i] == '\r' {
			i++
			break
		}
	}
	return i
}
