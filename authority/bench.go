package authority

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/montanaflynn/stats"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/protocol"
)

// Timing summarizes the durations of one operation.
type Timing struct {
	Op     string
	Runs   int
	Mean   time.Duration
	Median time.Duration
	P90    time.Duration
}

func (t Timing) String() string {
	return fmt.Sprintf("%-4s runs=%d mean=%s median=%s p90=%s", t.Op, t.Runs,
		t.Mean, t.Median, t.P90)
}

// Bench runs dec, mul, eq and gt runs times each on random operands below
// 2^bits and returns their timings.
func (s *Session) Bench(ctx context.Context, runs, bits int) ([]Timing, error) {
	if runs < 1 {
		return nil, xerrors.New("need at least one run")
	}
	a := s.ABB()
	max := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	operand := func() (*abb.Cipher, error) {
		return a.Enc(new(big.Int).Mod(a.RandomPlaintext(), max))
	}

	ops := []struct {
		name string
		p    func(x, y *abb.Cipher) protocol.Protocol
	}{
		{"dec", func(x, _ *abb.Cipher) protocol.Protocol { return &protocol.Dec{X: x} }},
		{"mul", func(x, y *abb.Cipher) protocol.Protocol { return &protocol.MulDec{X: x, Y: y} }},
		{"eq", func(x, y *abb.Cipher) protocol.Protocol { return &protocol.EqDec{X: x, Y: y, Bits: bits} }},
		{"gt", func(x, y *abb.Cipher) protocol.Protocol { return &protocol.GtDec{X: x, Y: y, Bits: bits} }},
	}
	var timings []Timing
	for _, op := range ops {
		durations := make(stats.Float64Data, 0, runs)
		for i := 0; i < runs; i++ {
			x, err := operand()
			if err != nil {
				return nil, err
			}
			y, err := operand()
			if err != nil {
				return nil, err
			}
			start := time.Now()
			if _, err := s.Run(ctx, func() protocol.Protocol { return op.p(x, y) }); err != nil {
				return nil, xerrors.Errorf("%s run %d: %w", op.name, i, err)
			}
			durations = append(durations, float64(time.Since(start)))
		}
		t, err := summarize(op.name, durations)
		if err != nil {
			return nil, err
		}
		log.Lvl2(t)
		timings = append(timings, t)
	}
	return timings, nil
}

func summarize(op string, d stats.Float64Data) (Timing, error) {
	mean, err := stats.Mean(d)
	if err != nil {
		return Timing{}, err
	}
	median, err := stats.Median(d)
	if err != nil {
		return Timing{}, err
	}
	// Percentile needs more than one sample.
	p90, err := stats.Percentile(d, 90)
	if err != nil {
		if p90, err = stats.Max(d); err != nil {
			return Timing{}, err
		}
	}
	return Timing{Op: op, Runs: len(d), Mean: time.Duration(mean),
		Median: time.Duration(median), P90: time.Duration(p90)}, nil
}
