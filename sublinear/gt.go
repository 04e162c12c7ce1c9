package sublinear

import (
	"context"
	"math/big"

	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/protocol"
)

type gtProtocol struct {
	suite *Suite
	p     *abb.Paillier
	x, y  *abb.Cipher
	bits  int
}

func (*gtProtocol) Name() string { return "sublinear-gt" }

// Run computes x >= y as the bit at position bits of
// z = x - y + 2^bits. The low part of z is recovered by comparing the low
// bits of the revealed m = z + r with those of r in a half-width
// comparison.
func (g *gtProtocol) Run(ctx context.Context, inst *protocol.Instance) (interface{}, error) {
	pk := g.p.Public()
	if g.bits == 1 {
		// x*y - y + 1
		prod, err := mul(ctx, g.p, g.x, g.y)
		if err != nil {
			return nil, err
		}
		return abb.NewCipher(pk.AddConst(pk.Sub(prod.C, g.y.C), one)), nil
	}

	data, err := g.suite.gt.Get(pk, g.bits)
	if err != nil {
		return nil, err
	}
	half := g.bits / 2
	twoHalf := new(big.Int).Lsh(one, uint(half))
	twoAll := new(big.Int).Lsh(one, uint(g.bits))

	z := pk.AddConst(pk.Sub(g.x.C, g.y.C), twoAll)
	m, err := g.p.Dec(ctx, abb.NewCipher(pk.Add(z, data.R)))
	if err != nil {
		return nil, err
	}
	mLow := new(big.Int).Mod(m, twoHalf)
	mHigh := new(big.Int).Div(m, twoHalf)
	mHigh.Mod(mHigh, twoHalf)

	// b = [m_high == r_top]: the comparison is decided by the low halves.
	encMHigh, err := g.p.EncNoR(mHigh)
	if err != nil {
		return nil, err
	}
	b, err := g.p.Eq(ctx, encMHigh, abb.NewCipher(data.RTop), half)
	if err != nil {
		return nil, err
	}

	// m~ = b*m_low + (1-b)*m_high, r~ = b*r_bot + (1-b)*r_top
	mTilde := pk.AddConst(pk.MulConst(b.C, new(big.Int).Sub(mLow, mHigh)), mHigh)
	sel, err := mul(ctx, g.p, b, abb.NewCipher(pk.Sub(data.RBot, data.RTop)))
	if err != nil {
		return nil, err
	}
	rTilde := pk.Add(sel.C, data.RTop)

	gtTilde, err := g.p.Gt(ctx, abb.NewCipher(mTilde), abb.NewCipher(rTilde), half)
	if err != nil {
		return nil, err
	}

	// f = 1 - gt~ is the borrow of (m - r) mod 2^bits.
	f := pk.AddConst(pk.Neg(gtTilde.C), one)
	rLow := pk.Add(pk.MulConst(data.RTop, twoHalf), data.RBot)
	zMod := pk.AddConst(pk.Sub(pk.MulConst(f, twoAll), rLow), new(big.Int).Mod(m, twoAll))

	inv := new(big.Int).ModInverse(twoAll, pk.N)
	return abb.NewCipher(pk.MulConst(pk.Sub(z, zMod), inv)), nil
}
