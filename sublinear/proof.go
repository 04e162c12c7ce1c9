package sublinear

import (
	"math/big"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/paillier"
)

// mulProof shows that encE = encY^d where encD is an encryption of d with
// randomness r, without revealing d.
type mulProof struct {
	EncA *big.Int
	EncB *big.Int
	D    *big.Int
	E    *big.Int
	F    *big.Int
}

// challenge hashes the statement and the announcement into Z_N.
func challenge(pk *paillier.PublicKey, encY, encD, encE, encA, encB *big.Int) *big.Int {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	for _, i := range []*big.Int{pk.N, encY, encD, encE, encA, encB} {
		b := i.Bytes()
		h.Write([]byte{byte(len(b) >> 8), byte(len(b))})
		h.Write(b)
	}
	c := new(big.Int).SetBytes(h.Sum(nil))
	return c.Mod(c, pk.N)
}

// proveMul creates the proof for encD = enc(d; r) and encE = encY^d.
func proveMul(pk *paillier.PublicKey, encY, encD, encE, d, r *big.Int) (*mulProof, error) {
	a := pk.RandomPlaintext(nil)
	encA, u, err := pk.EncryptWithR(a, nil)
	if err != nil {
		return nil, err
	}
	v := pk.RandomR(nil)
	encB := pk.Rerandomize(pk.MulConst(encY, a), v)
	c := challenge(pk, encY, encD, encE, encA, encB)

	// D is reduced mod N so that it hides d. The carry k disappears in the
	// first check as g^(kN) = 1 and moves into F for the second one, since
	// encY^(kN) * v^N = (encY^k * v)^N.
	sum := new(big.Int).Mul(c, d)
	sum.Add(sum, a)
	k, dd := new(big.Int).DivMod(sum, pk.N, new(big.Int))
	e := new(big.Int).Exp(r, c, pk.N)
	e.Mul(e, u).Mod(e, pk.N)
	f := new(big.Int).Exp(encY, k, pk.N)
	f.Mul(f, v).Mod(f, pk.N)
	return &mulProof{EncA: encA, EncB: encB, D: dd, E: e, F: f}, nil
}

// verifyMul checks enc(D; E) == encD^c * encA and
// encY^D * F^N == encE^c * encB.
func verifyMul(pk *paillier.PublicKey, encY, encD, encE *big.Int, p *mulProof) error {
	if p.D == nil || p.E == nil || p.F == nil || p.EncA == nil || p.EncB == nil {
		return xerrors.Errorf("incomplete proof: %w", ordinos.ErrProofFailed)
	}
	if p.D.Sign() < 0 || p.D.Cmp(pk.N) >= 0 || p.F.Sign() <= 0 || p.F.Cmp(pk.N) >= 0 {
		return xerrors.Errorf("response out of range: %w", ordinos.ErrProofFailed)
	}
	c := challenge(pk, encY, encD, encE, p.EncA, p.EncB)

	left, err := pk.EncryptUsing(p.D, p.E)
	if err != nil {
		return xerrors.Errorf("%v: %w", err, ordinos.ErrProofFailed)
	}
	right := pk.Add(pk.MulConst(encD, c), p.EncA)
	if left.Cmp(right) != 0 {
		return xerrors.Errorf("first check: %w", ordinos.ErrProofFailed)
	}

	left = new(big.Int).Exp(encY, p.D, pk.NSquare)
	left = pk.Rerandomize(left, p.F)
	right = new(big.Int).Exp(encE, c, pk.NSquare)
	right = pk.Add(right, p.EncB)
	if left.Cmp(right) != 0 {
		return xerrors.Errorf("second check: %w", ordinos.ErrProofFailed)
	}
	return nil
}
