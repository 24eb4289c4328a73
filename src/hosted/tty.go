package hosted

import (
	"sync"

	"github.com/mattn/go-tty"
)

const rxBufMax = 0xfff

// TTY adapts the host terminal into the console hook shapes. Received
// runes land in a ring buffer fed by a pump goroutine, so GetChar can
// hand out one byte at a time the way a UART receive FIFO would.
type TTY struct {
	t *tty.TTY

	mu       sync.Mutex
	rcv      *sync.Cond
	rxbuffer []byte
	rxhead   int
	rxtail   int
	closed   bool
}

// OpenTTY opens the controlling terminal and starts the receive pump.
func OpenTTY() (*TTY, error) {
	t, err := tty.Open()
	if err != nil {
		return nil, err
	}
	u := &TTY{
		t:        t,
		rxbuffer: make([]byte, rxBufMax+1),
	}
	u.rcv = sync.NewCond(&u.mu)
	go u.pump()
	return u, nil
}

func (u *TTY) pump() {
	for {
		r, err := u.t.ReadRune()
		if err != nil {
			u.mu.Lock()
			u.closed = true
			u.rcv.Broadcast()
			u.mu.Unlock()
			return
		}
		u.LoadRx(byte(r))
	}
}

// PutChar emits one byte to the terminal. This is the output hook.
func (u *TTY) PutChar(c byte) {
	u.t.Output().Write([]byte{c})
}

// GetChar blocks for the next received byte. This is the input hook.
func (u *TTY) GetChar() byte {
	return u.NextRx()
}

// LoadRx puts a byte in the ring buffer as if it came in from the
// other side.
func (u *TTY) LoadRx(b byte) {
	u.mu.Lock()
	u.rxbuffer[u.rxhead] = b
	u.rxhead = (u.rxhead + 1) & rxBufMax
	u.rcv.Signal()
	u.mu.Unlock()
}

// EmptyRx is true if the receive ring buffer is empty.
func (u *TTY) EmptyRx() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.rxtail == u.rxhead
}

// NextRx returns the next element from the receive ring, waiting for
// one if the ring is empty. After Close it returns NUL.
func (u *TTY) NextRx() byte {
	u.mu.Lock()
	defer u.mu.Unlock()
	for u.rxtail == u.rxhead && !u.closed {
		u.rcv.Wait()
	}
	if u.rxtail == u.rxhead {
		return 0
	}
	b := u.rxbuffer[u.rxtail]
	u.rxtail = (u.rxtail + 1) & rxBufMax
	return b
}

// Close restores the terminal and stops the pump.
func (u *TTY) Close() error {
	return u.t.Close()
}
