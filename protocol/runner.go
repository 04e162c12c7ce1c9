package protocol

import (
	"context"
	"math/big"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
	uuid "gopkg.in/satori/go.uuid.v1"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/network"
)

// Runner starts the same protocol on every trustee and checks that they all
// agree on the result.
type Runner struct {
	trustees []*Trustee
	// Timeout bounds every run if positive.
	Timeout time.Duration
}

// NewRunner returns a runner over the given trustees.
func NewRunner(trustees []*Trustee) *Runner {
	return &Runner{trustees: trustees}
}

// Trustees returns the trustees of the runner.
func (r *Runner) Trustees() []*Trustee {
	return r.trustees
}

var bigIntComparer = cmp.Comparer(func(a, b *big.Int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Cmp(b) == 0
})

// Equal compares two protocol results.
func Equal(a, b interface{}) bool {
	return cmp.Equal(a, b, bigIntComparer)
}

// Run creates a protocol with newProtocol for every trustee and runs them
// concurrently. The first failing trustee cancels the others. If trustees
// return different results, ErrInconsistentResult is returned.
func (r *Runner) Run(ctx context.Context, newProtocol func() Protocol) (interface{}, error) {
	if len(r.trustees) == 0 {
		return nil, ordinos.Invalid("no trustees")
	}
	id := uuid.NewV4()
	ctx = network.WithRun(ctx, id.String())
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	results := make([]interface{}, len(r.trustees))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range r.trustees {
		i, t := i, t
		p := newProtocol()
		if i == 0 {
			log.Lvlf3("run %s: starting %s on %d trustees", id, p.Name(), len(r.trustees))
		}
		g.Go(func() error {
			res, err := t.Run(gctx, p)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ordinos.ErrorOrNil(err, "run "+id.String())
	}

	for i := 1; i < len(results); i++ {
		if !Equal(results[0], results[i]) {
			log.Warnf("run %s: trustees %d and %d disagree: %s", id,
				r.trustees[0].ID(), r.trustees[i].ID(),
				cmp.Diff(results[0], results[i], bigIntComparer))
			return nil, xerrors.Errorf("run %s: trustee %d: %w", id,
				r.trustees[i].ID(), ordinos.ErrInconsistentResult)
		}
	}
	log.Lvlf3("run %s: done in %s", id, time.Since(start))
	return results[0], nil
}
