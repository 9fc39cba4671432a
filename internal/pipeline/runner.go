package pipeline

import (
	"time"

	"github.com/zkamm/rollup/internal/rlog"
)

// idleBackoff is how long Runner waits after a step finds nothing to do
// before trying again, so an idle stage does not spin the CPU.
const idleBackoff = 50 * time.Millisecond

// Step is one stage's single unit of work -- Executor.ExecuteOne,
// Generator.GenerateOne, or Merger.StepOnce all have this shape. ok
// reports whether a step was actually taken; a false ok with a nil err
// means the stage's input queue is empty for now.
type Step func() (ok bool, err error)

// Runner drives a Step in its own goroutine until Stop, immediately
// retrying after a successful step and backing off briefly when idle.
// Grounded on txpool/tx_jrnl.go's flushLoop (ticker + stop channel,
// conditional launch, Start/Stop pair), adapted from a fixed interval to
// immediate-retry-on-success since spec §5 describes each stage as
// draining its queue continuously rather than on a timer. A step error is
// fatal (spec §5: "a prover/merger subprocess crash ... the enclosing
// task treats that as a fatal and exits") -- Runner reports it once on
// fatal and stops driving the stage; it does not call os.Exit itself, so
// callers can shut the rest of the daemon down cleanly first.
type Runner struct {
	name  string
	step  Step
	fatal chan<- error

	stop chan struct{}
	done chan struct{}
	log  *rlog.Logger
}

// NewRunner wires a Runner for step, reporting a fatal step error on
// fatal (which should be buffered so a send never blocks).
func NewRunner(name string, step Step, fatal chan<- error) *Runner {
	return &Runner{
		name: name, step: step, fatal: fatal,
		stop: make(chan struct{}), done: make(chan struct{}),
		log: rlog.Default().Module(name),
	}
}

// Name implements service.Service.
func (r *Runner) Name() string { return r.name }

// Start implements service.Service: launches the drive loop and returns
// immediately.
func (r *Runner) Start() error {
	go r.run()
	return nil
}

// Stop implements service.Service: signals the loop to exit and waits.
func (r *Runner) Stop() error {
	close(r.stop)
	<-r.done
	return nil
}

func (r *Runner) run() {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		ok, err := r.step()
		if err != nil {
			r.log.Error("step failed, stopping", "error", err)
			select {
			case r.fatal <- err:
			default:
			}
			return
		}
		if !ok {
			select {
			case <-r.stop:
				return
			case <-time.After(idleBackoff):
			}
		}
	}
}
