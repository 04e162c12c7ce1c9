package sublinear

import (
	"context"
	"math/big"

	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/protocol"
)

var one = big.NewInt(1)

type eqProtocol struct {
	suite *Suite
	p     *abb.Paillier
	x, y  *abb.Cipher
	bits  int
}

func (*eqProtocol) Name() string { return "sublinear-eq" }

// Run reveals m = x - y + r, computes the encrypted Hamming distance h
// between the low bits of m and r, and evaluates the zero-test polynomial
// on h+1 using the encrypted powers of R.
func (e *eqProtocol) Run(ctx context.Context, inst *protocol.Instance) (interface{}, error) {
	pk := e.p.Public()
	data, err := e.suite.eq.Get(pk, e.bits)
	if err != nil {
		return nil, err
	}

	encM := pk.Add(pk.Sub(e.x.C, e.y.C), data.R)
	m, err := e.p.Dec(ctx, abb.NewCipher(encM))
	if err != nil {
		return nil, err
	}

	// Start at 1 so the distance is shifted by one.
	dist, err := pk.EncryptNoR(one)
	if err != nil {
		return nil, err
	}
	for i := 0; i < e.bits; i++ {
		bit := data.BitsR[i]
		if m.Bit(i) == 1 {
			// 1 xor r_i = 1 - r_i
			bit = pk.AddConst(pk.Neg(bit), one)
		}
		dist = pk.Add(dist, bit)
	}

	// m_h = (h+1) / R
	encMH, err := mul(ctx, e.p, abb.NewCipher(data.RInv), abb.NewCipher(dist))
	if err != nil {
		return nil, err
	}
	mH, err := e.p.Dec(ctx, encMH)
	if err != nil {
		return nil, err
	}

	// enc((h+1)^i) = enc(R^i)^(m_h^i)
	eval, err := pk.EncryptNoR(data.Coeffs[0])
	if err != nil {
		return nil, err
	}
	pow := big.NewInt(1)
	for i := 1; i <= e.bits; i++ {
		pow.Mul(pow, mH).Mod(pow, pk.N)
		k := new(big.Int).Mul(pow, data.Coeffs[i])
		eval = pk.Add(eval, pk.MulConst(data.PowR[i-1], k))
	}
	return abb.NewCipher(eval), nil
}
