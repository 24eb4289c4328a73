package hosted

import (
	"os"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"solace/src/kernel"
)

// haltFault is the production hosted fault sink. Except and Panic end
// the process; Halt blocks the caller forever, the closest a host
// process gets to parking the CPU.
type haltFault struct {
	logger log.Logger
}

func (f *haltFault) Except(r kernel.Reason) {
	level.Error(f.logger).Log("msg", "fatal exception", "reason", r.String())
	os.Exit(2)
}

func (f *haltFault) Panic() {
	level.Error(f.logger).Log("msg", "kernel panic")
	os.Exit(3)
}

func (f *haltFault) Halt() {
	select {}
}

// Trap is the value a RecordingFault panics with, so a test can
// recover it and still observe that control never came back.
type Trap struct {
	Kind   string
	Reason kernel.Reason
}

// RecordingFault captures terminal sinks for tests. Every method
// records the call and then panics with a Trap: the never-return
// contract holds, but the test survives via recover.
type RecordingFault struct {
	mu    sync.Mutex
	traps []Trap
}

func (f *RecordingFault) Except(r kernel.Reason) {
	f.record(Trap{Kind: "except", Reason: r})
}

func (f *RecordingFault) Panic() {
	f.record(Trap{Kind: "panic"})
}

func (f *RecordingFault) Halt() {
	f.record(Trap{Kind: "halt"})
}

func (f *RecordingFault) record(t Trap) {
	f.mu.Lock()
	f.traps = append(f.traps, t)
	f.mu.Unlock()
	panic(t)
}

// Traps returns the recorded terminal calls in order.
func (f *RecordingFault) Traps() []Trap {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Trap, len(f.traps))
	copy(out, f.traps)
	return out
}
