package paillier

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
)

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

// PublicKey is the public part of a threshold Paillier key. It is immutable
// once created and shared by every trustee.
type PublicKey struct {
	N       *big.Int // N is the product of two safe primes.
	NSquare *big.Int
	G       *big.Int // G is N+1.
	Bits    int      // Bits is the bit length of N.
}

// NewPublicKey derives the public key from the modulus.
func NewPublicKey(n *big.Int) *PublicKey {
	return &PublicKey{
		N:       new(big.Int).Set(n),
		NSquare: new(big.Int).Mul(n, n),
		G:       new(big.Int).Add(n, one),
		Bits:    n.BitLen(),
	}
}

// Equal returns true if both keys have the same modulus.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return other != nil && pk.N.Cmp(other.N) == 0
}

// String returns the decimal modulus, which is how keys are identified in
// the on-disk caches.
func (pk *PublicKey) String() string {
	return pk.N.String()
}

// RandomPlaintext returns a uniform value in [0, N).
func (pk *PublicKey) RandomPlaintext(rand cipher.Stream) *big.Int {
	return random.Int(pk.N, stream(rand))
}

// RandomR returns a uniform value in (0, N) that is coprime to N.
func (pk *PublicKey) RandomR(rand cipher.Stream) *big.Int {
	gcd := new(big.Int)
	for {
		r := random.Int(pk.N, stream(rand))
		if r.Sign() == 0 {
			continue
		}
		if gcd.GCD(nil, nil, r, pk.N).Cmp(one) == 0 {
			return r
		}
	}
}

// Encrypt returns a randomized encryption of plain.
func (pk *PublicKey) Encrypt(plain *big.Int) (*big.Int, error) {
	c, _, err := pk.EncryptWithR(plain, nil)
	return c, err
}

// EncryptWithR returns a randomized encryption of plain together with the
// randomness r that was used. A nil stream uses the default source.
func (pk *PublicKey) EncryptWithR(plain *big.Int, rand cipher.Stream) (c, r *big.Int, err error) {
	if plain == nil {
		return nil, nil, ordinos.Invalid("nil plaintext")
	}
	r = pk.RandomR(rand)
	c, err = pk.EncryptUsing(plain, r)
	return
}

// EncryptUsing encrypts plain with the given randomness: g^plain * r^N mod N^2.
func (pk *PublicKey) EncryptUsing(plain, r *big.Int) (*big.Int, error) {
	if plain == nil || r == nil {
		return nil, ordinos.Invalid("nil plaintext or randomness")
	}
	if r.Sign() <= 0 || r.Cmp(pk.N) >= 0 {
		return nil, ordinos.Invalid("randomness out of range")
	}
	m := pk.reduce(plain)
	// g^m = 1 + m*N mod N^2 since g = N+1.
	gm := new(big.Int).Mul(m, pk.N)
	gm.Add(gm, one)
	gm.Mod(gm, pk.NSquare)
	rn := new(big.Int).Exp(r, pk.N, pk.NSquare)
	return gm.Mul(gm, rn).Mod(gm, pk.NSquare), nil
}

// EncryptNoR encrypts plain with r = 1. The result is deterministic and must
// only be used for values that are public anyway.
func (pk *PublicKey) EncryptNoR(plain *big.Int) (*big.Int, error) {
	return pk.EncryptUsing(plain, one)
}

// Rerandomize multiplies c by r^N. A nil r picks a fresh random value.
func (pk *PublicKey) Rerandomize(c, r *big.Int) *big.Int {
	if r == nil {
		r = pk.RandomR(nil)
	}
	rn := new(big.Int).Exp(r, pk.N, pk.NSquare)
	return rn.Mul(rn, c).Mod(rn, pk.NSquare)
}

// Add returns an encryption of the sum of the plaintexts.
func (pk *PublicKey) Add(c1, c2 *big.Int) *big.Int {
	s := new(big.Int).Mul(c1, c2)
	return s.Mod(s, pk.NSquare)
}

// AddConst adds the public constant k to the plaintext of c.
func (pk *PublicKey) AddConst(c, k *big.Int) *big.Int {
	kc, _ := pk.EncryptNoR(k)
	return pk.Add(c, kc)
}

// Neg returns an encryption of the additive inverse of the plaintext.
func (pk *PublicKey) Neg(c *big.Int) *big.Int {
	return new(big.Int).ModInverse(c, pk.NSquare)
}

// Sub returns an encryption of the difference of the plaintexts.
func (pk *PublicKey) Sub(c1, c2 *big.Int) *big.Int {
	return pk.Add(c1, pk.Neg(c2))
}

// MulConst multiplies the plaintext of c by k. Negative constants are
// reduced modulo N first.
func (pk *PublicKey) MulConst(c, k *big.Int) *big.Int {
	return new(big.Int).Exp(c, pk.reduce(k), pk.NSquare)
}

// Valid returns an error if c can't be a ciphertext under this key.
func (pk *PublicKey) Valid(c *big.Int) error {
	if c == nil || c.Sign() <= 0 || c.Cmp(pk.NSquare) >= 0 {
		return xerrors.Errorf("ciphertext out of range: %w", ordinos.ErrInvalidInput)
	}
	return nil
}

// reduce maps any integer to [0, N).
func (pk *PublicKey) reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, pk.N)
}

func stream(rand cipher.Stream) cipher.Stream {
	if rand == nil {
		return random.New()
	}
	return rand
}
