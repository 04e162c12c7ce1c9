package abb

import (
	"context"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/network"
	"go.dedis.ch/ordinos/paillier"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

// dealerSuite computes the protocols by decrypting locally with all shares.
type dealerSuite struct {
	sks   []*paillier.PrivateKeyShare
	calls int
	sync.Mutex
}

func (d *dealerSuite) dec(c *Cipher) *big.Int {
	x, err := paillier.SharedDecrypt(d.sks, c.C)
	if err != nil {
		panic(err)
	}
	return x
}

func (d *dealerSuite) called(ctx context.Context) {
	if !IsNested(ctx) {
		panic("suite called without nested context")
	}
	d.Lock()
	d.calls++
	d.Unlock()
}

func (d *dealerSuite) Mul(ctx context.Context, p *Paillier, x, y *Cipher) (*Cipher, error) {
	d.called(ctx)
	return p.Enc(new(big.Int).Mul(d.dec(x), d.dec(y)))
}

func (d *dealerSuite) Eq(ctx context.Context, p *Paillier, x, y *Cipher, bits int) (*Cipher, error) {
	d.called(ctx)
	return p.Enc(boolInt(d.dec(x).Cmp(d.dec(y)) == 0))
}

func (d *dealerSuite) Gt(ctx context.Context, p *Paillier, x, y *Cipher, bits int) (*Cipher, error) {
	d.called(ctx)
	return p.Enc(boolInt(d.dec(x).Cmp(d.dec(y)) >= 0))
}

func setup(t *testing.T, shares, threshold int) ([]*Paillier, *dealerSuite) {
	_, sks, err := paillier.KeyGen(64, shares, threshold, nil)
	require.NoError(t, err)
	suite := &dealerSuite{sks: sks}
	ids := make([]int, shares)
	for i := range ids {
		ids[i] = i + 1
	}
	mesh := network.LocalMesh(ids)
	abbs := make([]*Paillier, shares)
	for i, sk := range sks {
		abbs[i] = NewPaillier(sk, network.NewChannel(sk.Index, mesh[sk.Index]), suite, nil)
	}
	return abbs, suite
}

// decAll decrypts v on every trustee at the same time.
func decAll(t *testing.T, abbs []*Paillier, v Value) []*big.Int {
	out := make([]*big.Int, len(abbs))
	errs := make([]error, len(abbs))
	var wg sync.WaitGroup
	for i, p := range abbs {
		wg.Add(1)
		go func(i int, p *Paillier) {
			defer wg.Done()
			out[i], errs[i] = p.Dec(context.Background(), v)
		}(i, p)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	return out
}

func local(t *testing.T, s *dealerSuite, v Value) int64 {
	switch v := v.(type) {
	case *Cipher:
		return s.dec(v).Int64()
	case *Const:
		return v.V.Int64()
	}
	t.Fatalf("unknown value %T", v)
	return 0
}

func TestBitsForSize(t *testing.T) {
	for _, tc := range []struct {
		max  int64
		bits int
	}{
		{-1, 1}, {0, 1}, {1, 2}, {3, 2}, {4, 4}, {15, 4}, {16, 8},
		{255, 8}, {256, 16}, {1 << 20, 32}, {1 << 40, 64}, {math.MaxInt64, 64},
	} {
		require.Equal(t, tc.bits, BitsForSize(tc.max), "max=%d", tc.max)
		if tc.max > 0 {
			require.True(t, big.NewInt(tc.max).BitLen() <= BitsForSize(tc.max))
		}
	}
}

func TestPaillier_Dec(t *testing.T) {
	abbs, _ := setup(t, 3, 2)
	c, err := abbs[0].Enc(big.NewInt(42))
	require.NoError(t, err)
	for _, x := range decAll(t, abbs, c) {
		require.Equal(t, int64(42), x.Int64())
	}
	for _, p := range abbs {
		require.Equal(t, 1, p.Stats().Dec)
	}

	x, err := abbs[0].Dec(context.Background(), NewConst(-1))
	require.NoError(t, err)
	require.Equal(t, new(big.Int).Sub(abbs[0].Modulus(), big.NewInt(1)), x)
	require.Equal(t, 1, abbs[0].Stats().Dec)
}

func TestPaillier_DecTimeout(t *testing.T) {
	abbs, _ := setup(t, 2, 2)
	c, err := abbs[0].Enc(big.NewInt(1))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = abbs[0].Dec(ctx, c)
	require.Error(t, err)
	require.True(t, xerrors.Is(err, ordinos.ErrInsufficientShares))
}

func TestPaillier_Arithmetic(t *testing.T) {
	abbs, s := setup(t, 2, 2)
	p := abbs[0]
	ctx := context.Background()
	x, err := p.Enc(big.NewInt(7))
	require.NoError(t, err)
	y, err := p.Enc(big.NewInt(3))
	require.NoError(t, err)

	v, err := p.Add(x, y)
	require.NoError(t, err)
	require.Equal(t, int64(10), local(t, s, v))
	v, err = p.Add(NewConst(5), x)
	require.NoError(t, err)
	require.Equal(t, int64(12), local(t, s, v))
	v, err = p.Sub(x, y)
	require.NoError(t, err)
	require.Equal(t, int64(4), local(t, s, v))
	v, err = p.Sub(NewConst(10), x)
	require.NoError(t, err)
	require.Equal(t, int64(3), local(t, s, v))
	v, err = p.Sub(x, NewConst(2))
	require.NoError(t, err)
	require.Equal(t, int64(5), local(t, s, v))
	v, err = p.Mul(ctx, x, NewConst(6))
	require.NoError(t, err)
	require.Equal(t, int64(42), local(t, s, v))

	v, err = p.Add(NewConst(2), NewConst(3))
	require.NoError(t, err)
	require.Equal(t, &Const{V: big.NewInt(5)}, v)
	v, err = p.Mul(ctx, NewConst(2), NewConst(3))
	require.NoError(t, err)
	require.Equal(t, &Const{V: big.NewInt(6)}, v)

	_, err = p.Add(x, nil)
	require.True(t, xerrors.Is(err, ordinos.ErrInvalidInput))
	require.Equal(t, 0, s.calls)
	require.Equal(t, 0, p.Stats().Mul)

	r := p.Rerandomize(x)
	require.False(t, r.Equal(x))
	require.Equal(t, int64(7), local(t, s, r))
}

func TestPaillier_Suite(t *testing.T) {
	abbs, s := setup(t, 2, 2)
	p := abbs[0]
	ctx := context.Background()
	x, err := p.Enc(big.NewInt(5))
	require.NoError(t, err)
	y, err := p.Enc(big.NewInt(3))
	require.NoError(t, err)

	v, err := p.Mul(ctx, x, y)
	require.NoError(t, err)
	require.Equal(t, int64(15), local(t, s, v))

	c, err := p.Eq(ctx, x, NewConst(5), 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), local(t, s, c))
	c, err = p.Gt(ctx, x, y, 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), local(t, s, c))
	c, err = p.Gt(ctx, y, x, 8)
	require.NoError(t, err)
	require.Equal(t, int64(0), local(t, s, c))
	require.Equal(t, 4, s.calls)

	// Constants are compared without a protocol.
	c, err = p.Gt(ctx, NewConst(2), NewConst(2), 2)
	require.NoError(t, err)
	require.Equal(t, int64(1), local(t, s, c))
	require.Equal(t, 4, s.calls)

	_, err = p.Eq(ctx, x, y, 65)
	require.True(t, xerrors.Is(err, ordinos.ErrInvalidInput))

	// Nested operations aren't counted.
	_, err = p.Mul(Nested(ctx), x, y)
	require.NoError(t, err)

	st := p.Stats().Copy()
	require.Equal(t, 1, st.Mul)
	require.Equal(t, map[int]int{4: 1}, st.Eq)
	require.Equal(t, map[int]int{4: 1, 8: 1}, st.Gt)
	require.Equal(t, "dec=0 mul=1 eq=[4:1] gt=[4:1 8:1]", st.String())
	p.Stats().Reset()
	require.Equal(t, 0, p.Stats().Mul)
}

func TestPlain(t *testing.T) {
	p := NewPlain(big.NewInt(101))
	ctx := context.Background()
	x, err := p.Enc(big.NewInt(5))
	require.NoError(t, err)
	y, err := p.EncNoR(big.NewInt(3))
	require.NoError(t, err)

	v, err := p.Sub(y, x)
	require.NoError(t, err)
	d, err := p.Dec(ctx, v)
	require.NoError(t, err)
	require.Equal(t, int64(99), d.Int64())

	v, err = p.Mul(ctx, x, y)
	require.NoError(t, err)
	d, err = p.Dec(ctx, v)
	require.NoError(t, err)
	require.Equal(t, int64(15), d.Int64())

	c, err := p.Gt(ctx, x, y, 4)
	require.NoError(t, err)
	require.Equal(t, int64(1), c.C.Int64())
	c, err = p.Eq(ctx, x, y, 4)
	require.NoError(t, err)
	require.Equal(t, int64(0), c.C.Int64())

	_, err = p.Gt(ctx, NewConst(4), x, 2)
	require.True(t, xerrors.Is(err, ordinos.ErrInvalidInput))

	require.True(t, p.RandomPlaintext().Cmp(p.Modulus()) < 0)
	st := p.Stats()
	require.Equal(t, 2, st.Dec)
	require.Equal(t, 1, st.Mul)
}

func TestIfThenElse(t *testing.T) {
	p := NewPlain(nil)
	ctx := context.Background()
	for _, cond := range []int64{0, 1} {
		c, err := p.Enc(big.NewInt(cond))
		require.NoError(t, err)
		v, err := IfThenElse(ctx, p, c, NewConst(10), NewConst(20))
		require.NoError(t, err)
		d, err := p.Dec(ctx, v)
		require.NoError(t, err)
		if cond == 1 {
			require.Equal(t, int64(10), d.Int64())
		} else {
			require.Equal(t, int64(20), d.Int64())
		}
	}

	sum, err := Sum(p, Ints(1, 2, 3, 4))
	require.NoError(t, err)
	ds, err := DecAll(ctx, p, []Value{sum, NewConst(7)})
	require.NoError(t, err)
	require.Equal(t, int64(10), ds[0].Int64())
	require.Equal(t, int64(7), ds[1].Int64())
}
