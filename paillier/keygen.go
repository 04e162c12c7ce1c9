package paillier

import (
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/primes"
)

// PrivateKeyShare is the Shamir share of the private exponent held by one
// trustee. It never leaves its trustee.
type PrivateKeyShare struct {
	Public    *PublicKey
	Share     *big.Int // Share is f(Index) mod N*m.
	Index     int      // Index is 1-based.
	Shares    int      // Shares is the total number of shares.
	Threshold int      // Threshold shares are needed to decrypt.

	delta       *big.Int // delta is Shares!
	shareFactor *big.Int // shareFactor is delta * Share.
	recFactor   *big.Int // recFactor is delta^-2 mod N.
}

// NewPrivateKeyShare wraps a share and precomputes the factorial constants
// used by every decryption.
func NewPrivateKeyShare(pk *PublicKey, share *big.Int, index, shares, threshold int) (*PrivateKeyShare, error) {
	if threshold < 2 {
		return nil, ordinos.Invalid("threshold should be at least 2, but is %d", threshold)
	}
	if shares < threshold {
		return nil, ordinos.Invalid("%d shares can't reach threshold %d", shares, threshold)
	}
	if index < 1 || index > shares {
		return nil, ordinos.Invalid("share index %d not in [1, %d]", index, shares)
	}
	sk := &PrivateKeyShare{
		Public:    pk,
		Share:     new(big.Int).Set(share),
		Index:     index,
		Shares:    shares,
		Threshold: threshold,
	}
	sk.delta = factorial(shares)
	sk.shareFactor = new(big.Int).Mul(sk.delta, sk.Share)
	deltaSq := new(big.Int).Mul(sk.delta, sk.delta)
	sk.recFactor = new(big.Int).ModInverse(deltaSq, pk.N)
	if sk.recFactor == nil {
		return nil, ordinos.Invalid("%d! is not invertible modulo the key", shares)
	}
	return sk, nil
}

// KeyGen creates a threshold Paillier key of the given modulus size, split
// into shares of which threshold are needed to decrypt. A nil source
// generates fresh safe primes.
func KeyGen(bits, shares, threshold int, src primes.Source) (*PublicKey, []*PrivateKeyShare, error) {
	if threshold < 2 {
		return nil, nil, ordinos.Invalid("threshold should be at least 2, but is %d", threshold)
	}
	if shares < threshold {
		return nil, nil, ordinos.Invalid("%d shares can't reach threshold %d", shares, threshold)
	}
	if bits < 16 || bits%2 != 0 {
		return nil, nil, ordinos.Invalid("key size %d must be even and at least 16", bits)
	}
	if src == nil {
		src = primes.Generator{}
	}
	sp, sq, err := src.SafePrimes(bits / 2)
	if err != nil {
		return nil, nil, ordinos.ErrorOrNil(err, "safe primes")
	}

	n := new(big.Int).Mul(sp.P, sq.P)
	m := new(big.Int).Mul(sp.Q, sq.Q)
	nm := new(big.Int).Mul(n, m)

	// d = 0 mod m and d = 1 mod n.
	mInv := new(big.Int).ModInverse(m, n)
	if mInv == nil {
		return nil, nil, ordinos.Invalid("safe primes share a factor")
	}
	d := new(big.Int).Mul(m, mInv)
	d.Mod(d, nm)

	coeffs := make([]*big.Int, threshold)
	coeffs[0] = d
	stream := random.New()
	for i := 1; i < threshold; i++ {
		coeffs[i] = random.Int(nm, stream)
	}

	pk := NewPublicKey(n)
	sks := make([]*PrivateKeyShare, shares)
	for i := 1; i <= shares; i++ {
		s := evalPolynomial(coeffs, big.NewInt(int64(i)), nm)
		sks[i-1], err = NewPrivateKeyShare(pk, s, i, shares, threshold)
		if err != nil {
			return nil, nil, err
		}
	}
	log.Lvlf2("generated %d-bit key with %d shares and threshold %d", pk.Bits, shares, threshold)
	return pk, sks, nil
}

// evalPolynomial returns coeffs[0] + coeffs[1]*x + ... mod m using Horner's rule.
func evalPolynomial(coeffs []*big.Int, x, m *big.Int) *big.Int {
	y := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		y.Mul(y, x)
		y.Add(y, coeffs[i])
		y.Mod(y, m)
	}
	return y
}

func factorial(n int) *big.Int {
	return new(big.Int).MulRange(1, int64(n))
}
