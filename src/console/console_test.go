package console

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/sync/errgroup"

	"solace/src/hosted"
	"solace/src/kernel"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// capture is a sink that remembers every byte it is handed. The hook
// itself takes the lock per byte, so any torn CR/LF pair produced by
// the console would be visible in the recorded order.
type capture struct {
	mu sync.Mutex
	b  []byte
}

func (c *capture) put(b byte) {
	c.mu.Lock()
	c.b = append(c.b, b)
	c.mu.Unlock()
}

func (c *capture) bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.b...)
}

func newTestConsole(t *testing.T, cfg Config) (*Console, *hosted.Kernel) {
	t.Helper()
	k := hosted.New(hosted.Config{}, log.NewNopLogger())
	return New(cfg, k, log.NewNopLogger(), prometheus.NewRegistry()), k
}

func TestWriteStdoutInsertsCRBeforeLF(t *testing.T) {
	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"bare newline", "ab\ncd", "ab\r\ncd"},
		{"already crlf", "ab\r\ncd", "ab\r\ncd"},
		{"mixed", "a\nb\r\nc\n", "a\r\nb\r\nc\r\n"},
		{"double newline", "\n\n", "\r\n\r\n"},
		{"lone cr", "ab\rcd", "ab\rcd"},
		{"no newline", "abcd", "abcd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			con, _ := newTestConsole(t, Config{SyncOutput: true})
			sink := &capture{}
			con.InstallOutputHook(sink.put)

			n := con.WriteStdout([]byte(tt.in))
			assert.Equal(t, len(tt.in), n)
			assert.Equal(t, tt.out, string(sink.bytes()))
		})
	}
}

func TestPrintkInsertsCRBeforeLF(t *testing.T) {
	con, _ := newTestConsole(t, Config{SyncOutput: true})
	sink := &capture{}
	con.InstallPrintkHook(sink.put)

	con.Printk("value=%d\n", 42)
	assert.Equal(t, "value=42\r\n", string(sink.bytes()))
}

func TestDefaultSinkDropsCleanly(t *testing.T) {
	con, _ := newTestConsole(t, Config{SyncOutput: true})

	// No hook installed yet: bytes vanish without tripping anything.
	con.WriteStdout([]byte("early\n"))
	con.StrOut([]byte("early printk\n"))
	assert.False(t, con.Stdout().Writable())

	sink := &capture{}
	con.InstallOutputHook(sink.put)
	assert.True(t, con.Stdout().Writable())

	con.WriteStdout([]byte("late\n"))
	assert.Equal(t, "late\r\n", string(sink.bytes()))
}

func TestHookSwapDoesNotReplay(t *testing.T) {
	con, _ := newTestConsole(t, Config{SyncOutput: true})
	first := &capture{}
	second := &capture{}

	con.InstallPrintkHook(first.put)
	con.StrOut([]byte("one\n"))
	con.StrOut([]byte("two\n"))

	con.InstallPrintkHook(second.put)
	con.StrOut([]byte("three\n"))

	assert.Equal(t, "one\r\ntwo\r\n", string(first.bytes()))
	assert.Equal(t, "three\r\n", string(second.bytes()))
}

func TestPrintkHookIntrospection(t *testing.T) {
	con, _ := newTestConsole(t, Config{})
	require.NotNil(t, con.PrintkHook())

	sink := &capture{}
	con.InstallPrintkHook(sink.put)
	con.PrintkHook()('x')
	assert.Equal(t, "x", string(sink.bytes()))
}

func TestStderrIsStdout(t *testing.T) {
	con, _ := newTestConsole(t, Config{})
	// Alias identity, not just equal behavior.
	assert.Same(t, con.Stdout(), con.Stderr())

	sink := &capture{}
	con.InstallOutputHook(sink.put)
	con.Stderr().putByte('e')
	con.Stdout().putByte('o')
	assert.Equal(t, "eo", string(sink.bytes()))
}

func TestReadStdinStopsAfterLineTerminator(t *testing.T) {
	con, _ := newTestConsole(t, Config{})

	src := make(chan byte, 8)
	for _, b := range []byte("ab\ncd") {
		src <- b
	}
	require.False(t, con.Stdin().Readable())
	con.InstallInputHook(func() byte { return <-src })
	require.True(t, con.Stdin().Readable())

	buf := make([]byte, 10)
	n := con.ReadStdin(buf)
	assert.Equal(t, 3, n)
	assert.Equal(t, "ab\n", string(buf[:n]))
	// "cd" must still be sitting in the source.
	assert.Len(t, src, 2)
}

func TestReadStdinCarriageReturnTerminates(t *testing.T) {
	con, _ := newTestConsole(t, Config{})
	src := make(chan byte, 8)
	for _, b := range []byte("x\rrest") {
		src <- b
	}
	con.InstallInputHook(func() byte { return <-src })

	buf := make([]byte, 10)
	n := con.ReadStdin(buf)
	assert.Equal(t, "x\r", string(buf[:n]))
}

func TestReadStdinHonorsBufferSize(t *testing.T) {
	con, _ := newTestConsole(t, Config{})
	src := make(chan byte, 8)
	for _, b := range []byte("abcdef") {
		src <- b
	}
	con.InstallInputHook(func() byte { return <-src })

	buf := make([]byte, 4)
	n := con.ReadStdin(buf)
	assert.Equal(t, 4, n)
	assert.Equal(t, "abcd", string(buf))
}

func TestPrintkDelegatesToStructuredLogger(t *testing.T) {
	var logged bytes.Buffer
	k := hosted.New(hosted.Config{}, log.NewNopLogger())
	con := New(Config{StructuredLog: true}, k,
		log.NewSyncLogger(log.NewLogfmtLogger(&logged)), prometheus.NewRegistry())

	sink := &capture{}
	con.InstallPrintkHook(sink.put)

	con.Printk("boot step %d\n", 3)

	assert.Contains(t, logged.String(), "boot step 3")
	// The raw byte path must see nothing at all.
	assert.Empty(t, sink.bytes())
}

func TestPrintkUserContextMatchesPrivileged(t *testing.T) {
	con, k := newTestConsole(t, Config{SyncOutput: true})
	sink := &capture{}
	con.InstallPrintkHook(sink.put)

	con.Printk("from kernel %s\n", "ctx")
	privileged := string(sink.bytes())

	sink.mu.Lock()
	sink.b = nil
	sink.mu.Unlock()

	k.SetUserContext(true)
	defer k.SetUserContext(false)
	con.Printk("from kernel %s\n", "ctx")

	// Same bytes, same CR/LF placement; the syscall detour is
	// invisible in the output.
	assert.Equal(t, privileged, string(sink.bytes()))
}

func TestPrintkUserContextValidationFailure(t *testing.T) {
	con, k := newTestConsole(t, Config{SyncOutput: true})
	sink := &capture{}
	con.InstallPrintkHook(sink.put)

	faults := &hosted.RecordingFault{}
	k.Faults = faults
	k.Validate = func([]byte) error { return errors.New("not yours") }
	k.SetUserContext(true)
	defer k.SetUserContext(false)

	func() {
		defer func() {
			trap, ok := recover().(hosted.Trap)
			require.True(t, ok)
			assert.Equal(t, "except", trap.Kind)
			assert.Equal(t, kernel.ReasonOops, trap.Reason)
		}()
		con.Printk("stolen buffer\n")
	}()

	assert.Empty(t, sink.bytes())
}

func TestConcurrentWritersKeepLinesWhole(t *testing.T) {
	con, _ := newTestConsole(t, Config{SyncOutput: true})
	sink := &capture{}
	con.InstallPrintkHook(sink.put)

	const (
		workers = 8
		iters   = 50
		line    = "hello\n"
	)
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < iters; i++ {
				con.StrOut([]byte(line))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	out := sink.bytes()
	require.Len(t, out, workers*iters*len("hello\r\n"))

	// Every emitted line must be whole; in particular no writer may
	// ever split another writer's CR+LF pair.
	for chunk := out; len(chunk) > 0; chunk = chunk[7:] {
		assert.Equal(t, "hello\r\n", string(chunk[:7]))
	}
	assert.NotContains(t, strings.ReplaceAll(string(out), "\r\n", ""), "\r")
}
