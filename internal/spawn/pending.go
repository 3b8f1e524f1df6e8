package spawn

import (
	"context"
	"time"
)

// Result is the terminal outcome of one run.
type Result struct {
	RunID string
	Path  string
	Args  []string
	Kind  Kind
	// ExitCode is nil when the process was terminated by a signal.
	ExitCode *int
	Signal   string
	Duration time.Duration
	// Err is nil iff Kind is Succeeded; otherwise it is a *ProcessError.
	Err error
}

// Pending is the handle for a run in flight. The Result is written once,
// before Done is closed, so any number of goroutines may wait on it.
type Pending struct {
	RunID string

	done chan struct{}
	res  Result
}

func newPending(runID string) *Pending {
	return &Pending{RunID: runID, done: make(chan struct{})}
}

// Settled returns a Pending that has already settled with res.
func Settled(res Result) *Pending {
	p := newPending(res.RunID)
	p.finish(res)
	return p
}

func (p *Pending) finish(res Result) {
	p.res = res
	close(p.done)
}

// Done is closed once the run has settled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the run settles.
func (p *Pending) Wait() Result {
	<-p.done
	return p.res
}

// WaitContext blocks until the run settles or ctx is done. Giving up on
// the wait leaves the process running.
func (p *Pending) WaitContext(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
