// Package evaluation contains election rules computed on the ABB: the
// candidates with the most points and the candidates winning enough duels.
package evaluation

import (
	"context"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/protocol"
)

// Maximum returns the largest of vs. All values must be below 2^bits.
func Maximum(ctx context.Context, a abb.ABB, vs []abb.Value, bits int) (abb.Value, error) {
	return fold(ctx, a, vs, bits, true)
}

// Minimum returns the smallest of vs. All values must be below 2^bits.
func Minimum(ctx context.Context, a abb.ABB, vs []abb.Value, bits int) (abb.Value, error) {
	return fold(ctx, a, vs, bits, false)
}

func fold(ctx context.Context, a abb.ABB, vs []abb.Value, bits int, max bool) (abb.Value, error) {
	if len(vs) == 0 {
		return nil, ordinos.Invalid("no values")
	}
	best := vs[0]
	for _, v := range vs[1:] {
		var take *abb.Cipher
		var err error
		if max {
			take, err = a.Gt(ctx, v, best, bits)
		} else {
			take, err = a.Gt(ctx, best, v, bits)
		}
		if err != nil {
			return nil, err
		}
		if best, err = abb.IfThenElse(ctx, a, take, v, best); err != nil {
			return nil, err
		}
	}
	return best, nil
}

// MatchPoints returns for every value an encryption of 1 if it equals
// target and 0 otherwise.
func MatchPoints(ctx context.Context, a abb.ABB, vs []abb.Value, target abb.Value, bits int) ([]*abb.Cipher, error) {
	out := make([]*abb.Cipher, len(vs))
	for i, v := range vs {
		var err error
		if out[i], err = a.Eq(ctx, v, target, bits); err != nil {
			return nil, xerrors.Errorf("matching candidate %d: %w", i, err)
		}
	}
	return out, nil
}

// DuelMatrix returns m with m[i][j] an encryption of 1 if vs[i] >= vs[j]
// and 0 otherwise. The diagonal is 0.
func DuelMatrix(ctx context.Context, a abb.ABB, vs []abb.Value, bits int) ([][]abb.Value, error) {
	m := make([][]abb.Value, len(vs))
	for i := range m {
		m[i] = make([]abb.Value, len(vs))
		m[i][i] = abb.NewConst(0)
	}
	for i := range vs {
		for j := 0; j < i; j++ {
			gt, err := a.Gt(ctx, vs[i], vs[j], bits)
			if err != nil {
				return nil, err
			}
			eq, err := a.Eq(ctx, vs[i], vs[j], bits)
			if err != nil {
				return nil, err
			}
			m[i][j] = gt
			// vs[j] >= vs[i] is 1 - gt + eq
			back, err := a.Sub(abb.NewConst(1), gt)
			if err != nil {
				return nil, err
			}
			if m[j][i], err = a.Add(back, eq); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

// WinsVector sums every row of the duel matrix.
func WinsVector(a abb.ABB, m [][]abb.Value) ([]abb.Value, error) {
	wins := make([]abb.Value, len(m))
	for i, row := range m {
		var err error
		if wins[i], err = abb.Sum(a, row); err != nil {
			return nil, err
		}
	}
	return wins, nil
}

// GtCandidates returns for every value an encryption of 1 if it is at least
// threshold.
func GtCandidates(ctx context.Context, a abb.ABB, vs []abb.Value, threshold abb.Value, bits int) ([]*abb.Cipher, error) {
	out := make([]*abb.Cipher, len(vs))
	for i, v := range vs {
		var err error
		if out[i], err = a.Gt(ctx, v, threshold, bits); err != nil {
			return nil, xerrors.Errorf("comparing candidate %d: %w", i, err)
		}
	}
	return out, nil
}

// winners decrypts the indicators and returns the indexes set to 1.
func winners(ctx context.Context, a abb.ABB, indicators []*abb.Cipher) ([]int, error) {
	out := []int{}
	for i, ind := range indicators {
		x, err := a.Dec(ctx, ind)
		if err != nil {
			return nil, err
		}
		if x.IsInt64() && x.Int64() == 1 {
			out = append(out, i)
		}
	}
	return out, nil
}

// SingleWinner returns the indexes of all candidates with the most points.
type SingleWinner struct {
	Points    []abb.Value
	MaxPoints int64
}

// Name implements protocol.Protocol.
func (*SingleWinner) Name() string { return "single-winner" }

// Run implements protocol.Protocol.
func (s *SingleWinner) Run(ctx context.Context, inst *protocol.Instance) (interface{}, error) {
	bits := abb.BitsForSize(s.MaxPoints)
	max, err := Maximum(ctx, inst.ABB, s.Points, bits)
	if err != nil {
		return nil, err
	}
	ind, err := MatchPoints(ctx, inst.ABB, s.Points, max, bits)
	if err != nil {
		return nil, err
	}
	return winners(ctx, inst.ABB, ind)
}

// SimpleWinner returns the candidates that win at least n - Winners duels,
// where n is the number of candidates. Ties can give more winners.
type SimpleWinner struct {
	Points    []abb.Value
	MaxPoints int64
	Winners   int
}

// Name implements protocol.Protocol.
func (*SimpleWinner) Name() string { return "simple-winner" }

// Run implements protocol.Protocol.
func (s *SimpleWinner) Run(ctx context.Context, inst *protocol.Instance) (interface{}, error) {
	if s.Winners < 1 || s.Winners > len(s.Points) {
		return nil, ordinos.Invalid("%d winners out of %d candidates", s.Winners, len(s.Points))
	}
	if s.Winners == 1 {
		return inst.Call(ctx, &SingleWinner{Points: s.Points, MaxPoints: s.MaxPoints})
	}

	matrix, err := DuelMatrix(ctx, inst.ABB, s.Points, abb.BitsForSize(s.MaxPoints))
	if err != nil {
		return nil, err
	}
	wins, err := WinsVector(inst.ABB, matrix)
	if err != nil {
		return nil, err
	}
	threshold := int64(len(s.Points) - s.Winners)
	log.Lvlf3("%d: winners need %d wins", inst.Trustee, threshold)
	ind, err := GtCandidates(ctx, inst.ABB, wins, abb.NewConst(threshold),
		abb.BitsForSize(int64(len(s.Points))))
	if err != nil {
		return nil, err
	}
	return winners(ctx, inst.ABB, ind)
}
