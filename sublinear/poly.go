package sublinear

import (
	"math/big"

	"go.dedis.ch/ordinos"
)

// zeroTestPoly returns the coefficients, lowest degree first, of the
// polynomial P of degree bits over Z_n with P(1) = 1 and P(t) = 0 for
// t = 2..bits+1.
func zeroTestPoly(bits int, n *big.Int) ([]*big.Int, error) {
	coeffs := []*big.Int{big.NewInt(1)}
	den := big.NewInt(1)
	for j := 2; j <= bits+1; j++ {
		bj := big.NewInt(int64(j))
		next := make([]*big.Int, len(coeffs)+1)
		for i := range next {
			next[i] = new(big.Int)
		}
		// next = coeffs * (t - j)
		for i, c := range coeffs {
			next[i+1].Add(next[i+1], c)
			next[i].Sub(next[i], new(big.Int).Mul(c, bj))
		}
		coeffs = next
		den.Mul(den, big.NewInt(int64(1-j)))
	}

	inv := new(big.Int).ModInverse(den.Mod(den, n), n)
	if inv == nil {
		return nil, ordinos.Invalid("%d! is not invertible modulo the key", bits)
	}
	for _, c := range coeffs {
		c.Mul(c, inv).Mod(c, n)
	}
	return coeffs, nil
}

// evalPoly evaluates coeffs at t modulo n.
func evalPoly(coeffs []*big.Int, t, n *big.Int) *big.Int {
	res := new(big.Int)
	for i := len(coeffs) - 1; i >= 0; i-- {
		res.Mul(res, t)
		res.Add(res, coeffs[i])
		res.Mod(res, n)
	}
	return res
}
