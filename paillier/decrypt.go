package paillier

import (
	"math/big"
	"sort"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
)

// DecryptionShare is the partial decryption of one ciphertext by the trustee
// with the given index.
type DecryptionShare struct {
	Index int
	Value *big.Int
}

// PartialDecrypt returns c^(delta*s_i) mod N^2.
func (sk *PrivateKeyShare) PartialDecrypt(c *big.Int) (*DecryptionShare, error) {
	if err := sk.Public.Valid(c); err != nil {
		return nil, err
	}
	return &DecryptionShare{
		Index: sk.Index,
		Value: new(big.Int).Exp(c, sk.shareFactor, sk.Public.NSquare),
	}, nil
}

// Combine recovers the plaintext from exactly Threshold shares with distinct
// indexes.
func (sk *PrivateKeyShare) Combine(shares []*DecryptionShare) (*big.Int, error) {
	if len(shares) != sk.Threshold {
		return nil, xerrors.Errorf("got %d shares for threshold %d: %w",
			len(shares), sk.Threshold, ordinos.ErrInsufficientShares)
	}
	seen := make(map[int]bool)
	for _, s := range shares {
		if s == nil || s.Index < 1 || s.Index > sk.Shares {
			return nil, ordinos.Invalid("malformed decryption share")
		}
		if seen[s.Index] {
			return nil, ordinos.Invalid("duplicate decryption share %d", s.Index)
		}
		seen[s.Index] = true
	}

	pk := sk.Public
	comb := big.NewInt(1)
	for _, s := range shares {
		lambda := lagrange(shares, s.Index, sk.delta)
		base := s.Value
		if lambda.Sign() < 0 {
			base = new(big.Int).ModInverse(s.Value, pk.NSquare)
			if base == nil {
				return nil, ordinos.Invalid("decryption share %d is not invertible", s.Index)
			}
			lambda.Neg(lambda)
		}
		comb.Mul(comb, new(big.Int).Exp(base, lambda, pk.NSquare))
		comb.Mod(comb, pk.NSquare)
	}

	// comb = (1+N)^(delta^2 * x), so L(comb) = delta^2 * x mod N.
	l := comb.Sub(comb, one)
	l.Div(l, pk.N)
	l.Mul(l, sk.recFactor)
	return l.Mod(l, pk.N), nil
}

// DropExcess removes shares uniformly at random until threshold remain. The
// slice is copied and the result is sorted by index.
func DropExcess(shares []*DecryptionShare, threshold int) []*DecryptionShare {
	out := append([]*DecryptionShare(nil), shares...)
	stream := random.New()
	for len(out) > threshold {
		i := int(random.Int(big.NewInt(int64(len(out))), stream).Int64())
		out = append(out[:i], out[i+1:]...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// SharedDecrypt decrypts c with key shares that are all available locally.
// Surplus shares are dropped at random.
func SharedDecrypt(sks []*PrivateKeyShare, c *big.Int) (*big.Int, error) {
	if len(sks) == 0 {
		return nil, ordinos.Invalid("no key shares given")
	}
	if len(sks) < sks[0].Threshold {
		return nil, xerrors.Errorf("%d key shares for threshold %d: %w",
			len(sks), sks[0].Threshold, ordinos.ErrInsufficientShares)
	}
	shares := make([]*DecryptionShare, len(sks))
	for i, sk := range sks {
		s, err := sk.PartialDecrypt(c)
		if err != nil {
			return nil, err
		}
		shares[i] = s
	}
	return sks[0].Combine(DropExcess(shares, sks[0].Threshold))
}

// lagrange returns delta * prod_{j != i} (-j)/(i - j) over the indexes of
// shares. The division is exact because delta = l!.
func lagrange(shares []*DecryptionShare, i int, delta *big.Int) *big.Int {
	num := new(big.Int).Set(delta)
	den := big.NewInt(1)
	for _, s := range shares {
		if s.Index == i {
			continue
		}
		num.Mul(num, big.NewInt(int64(-s.Index)))
		den.Mul(den, big.NewInt(int64(i-s.Index)))
	}
	return num.Quo(num, den)
}
