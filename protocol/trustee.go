package protocol

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/abb"
)

// State is the life-cycle state of a trustee.
type State int

const (
	// Idle means no protocol was started yet.
	Idle State = iota
	// Running means a protocol is executing.
	Running
	// Finished means the last protocol returned a result.
	Finished
	// Aborted means the last protocol returned an error or panicked.
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Finished:
		return "finished"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Trustee is one party holding a key share, represented by its ABB.
type Trustee struct {
	id  int
	abb abb.ABB

	mu    sync.Mutex
	state State
}

// NewTrustee returns an idle trustee.
func NewTrustee(id int, a abb.ABB) *Trustee {
	return &Trustee{id: id, abb: a}
}

// ID returns the index of the trustee.
func (t *Trustee) ID() int {
	return t.id
}

// ABB returns the ABB of the trustee.
func (t *Trustee) ABB() abb.ABB {
	return t.abb
}

// State returns the state of the last run.
func (t *Trustee) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Future is the pending outcome of a run.
type Future struct {
	done   chan struct{}
	result interface{}
	err    error
}

// Wait blocks until the run is over or ctx is done.
func (f *Future) Wait(ctx context.Context) (interface{}, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed when the run is over.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Start runs p in its own goroutine as a top-level protocol. Only one
// protocol can run at a time.
func (t *Trustee) Start(ctx context.Context, p Protocol) (*Future, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Running {
		return nil, xerrors.Errorf("trustee %d is already running", t.id)
	}
	t.state = Running

	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				f.result = nil
				f.err = xerrors.Errorf("trustee %d panicked in %s: %v: %w",
					t.id, p.Name(), r, ordinos.ErrAborted)
			}
			t.finish(f.err)
		}()
		f.result, f.err = Run(ctx, t.abb, t.id, p)
		if f.err != nil {
			f.err = xerrors.Errorf("trustee %d: %w", t.id, f.err)
		}
	}()
	return f, nil
}

// Run starts p and waits for its outcome.
func (t *Trustee) Run(ctx context.Context, p Protocol) (interface{}, error) {
	f, err := t.Start(ctx, p)
	if err != nil {
		return nil, err
	}
	<-f.done
	return f.result, f.err
}

func (t *Trustee) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.state = Aborted
	} else {
		t.state = Finished
	}
}
