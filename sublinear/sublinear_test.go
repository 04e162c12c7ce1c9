package sublinear

import (
	"context"
	"io/ioutil"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"
	onetnet "go.dedis.ch/onet/v3/network"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/network"
	"go.dedis.ch/ordinos/paillier"
	"go.dedis.ch/ordinos/protocol"
	"go.dedis.ch/ordinos/store"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

type session struct {
	pk     *paillier.PublicKey
	sks    []*paillier.PrivateKeyShare
	suite  *Suite
	runner *protocol.Runner
	abbs   []*abb.Paillier
}

func tempDB(t *testing.T) (*store.DB, func()) {
	dir, err := ioutil.TempDir("", "sublinear")
	require.NoError(t, err)
	db, err := store.Open(dir)
	require.NoError(t, err)
	return db, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}

func newSession(t *testing.T, shares, threshold int) (*session, func()) {
	return newSessionWith(t, shares, threshold, nil)
}

// newSessionWith lets wrap replace the connectors of every trustee.
func newSessionWith(t *testing.T, shares, threshold int,
	wrap func(id int, c network.Connector) network.Connector) (*session, func()) {
	db, cleanup := tempDB(t)
	pk, sks, err := paillier.KeyGen(64, shares, threshold, nil)
	require.NoError(t, err)

	s := &session{pk: pk, sks: sks, suite: NewSuite(db)}
	ids := make([]int, shares)
	for i := range ids {
		ids[i] = i + 1
	}
	mesh := network.LocalMesh(ids)
	trustees := make([]*protocol.Trustee, shares)
	for i, sk := range sks {
		conns := mesh[sk.Index]
		if wrap != nil {
			for j := range conns {
				conns[j] = wrap(sk.Index, conns[j])
			}
		}
		p := abb.NewPaillier(sk, network.NewChannel(sk.Index, conns), s.suite, nil)
		s.abbs = append(s.abbs, p)
		trustees[i] = protocol.NewTrustee(sk.Index, p)
	}
	s.runner = protocol.NewRunner(trustees)
	s.runner.Timeout = time.Minute
	return s, cleanup
}

func (s *session) enc(t *testing.T, x int64) *abb.Cipher {
	c, err := s.pk.Encrypt(big.NewInt(x))
	require.NoError(t, err)
	return abb.NewCipher(c)
}

func (s *session) run(t *testing.T, f func() protocol.Protocol) int64 {
	res, err := s.runner.Run(context.Background(), f)
	require.NoError(t, err)
	return res.(*big.Int).Int64()
}

func nextPrime(start *big.Int) *big.Int {
	p := new(big.Int).Set(start)
	p.SetBit(p, 0, 1)
	for !p.ProbablyPrime(20) {
		p.Add(p, big.NewInt(2))
	}
	return p
}

func TestZeroTestPoly(t *testing.T) {
	n := nextPrime(new(big.Int).Lsh(big.NewInt(1), 63))
	for bits := 1; bits <= 16; bits++ {
		coeffs, err := zeroTestPoly(bits, n)
		require.NoError(t, err)
		require.Len(t, coeffs, bits+1)
		require.Equal(t, int64(1), evalPoly(coeffs, big.NewInt(1), n).Int64())
		for x := int64(2); x <= int64(bits)+1; x++ {
			require.Equal(t, 0, evalPoly(coeffs, big.NewInt(x), n).Sign(), "bits=%d x=%d", bits, x)
		}
	}

	_, err := zeroTestPoly(4, big.NewInt(3*1000003))
	require.True(t, xerrors.Is(err, ordinos.ErrInvalidInput))
}

func TestProof(t *testing.T) {
	pk, _, err := paillier.KeyGen(64, 2, 2, nil)
	require.NoError(t, err)
	encY, err := pk.Encrypt(big.NewInt(7))
	require.NoError(t, err)
	d := pk.RandomPlaintext(nil)
	encD, r, err := pk.EncryptWithR(d, nil)
	require.NoError(t, err)
	encE := pk.MulConst(encY, d)

	proof, err := proveMul(pk, encY, encD, encE, d, r)
	require.NoError(t, err)
	require.NoError(t, verifyMul(pk, encY, encD, encE, proof))

	bad := *proof
	bad.D = new(big.Int).Add(proof.D, big.NewInt(1))
	require.True(t, xerrors.Is(verifyMul(pk, encY, encD, encE, &bad), ordinos.ErrProofFailed))

	bad = *proof
	bad.EncB = pk.Rerandomize(proof.EncB, nil)
	require.True(t, xerrors.Is(verifyMul(pk, encY, encD, encE, &bad), ordinos.ErrProofFailed))

	// encE doesn't match encD
	wrongE := pk.MulConst(encY, new(big.Int).Add(d, big.NewInt(1)))
	require.Error(t, verifyMul(pk, encY, encD, wrongE, proof))

	bad = *proof
	bad.F = nil
	require.Error(t, verifyMul(pk, encY, encD, encE, &bad))

	bad = *proof
	bad.D = new(big.Int).Add(proof.D, pk.N)
	require.True(t, xerrors.Is(verifyMul(pk, encY, encD, encE, &bad), ordinos.ErrProofFailed))
}

func TestProof_HidesBlinding(t *testing.T) {
	pk, _, err := paillier.KeyGen(64, 2, 2, nil)
	require.NoError(t, err)
	encY, err := pk.Encrypt(big.NewInt(123456))
	require.NoError(t, err)
	far := big.NewInt(1 << 16)
	for i := 0; i < 50; i++ {
		d := pk.RandomPlaintext(nil)
		encD, r, err := pk.EncryptWithR(d, nil)
		require.NoError(t, err)
		encE := pk.MulConst(encY, d)
		proof, err := proveMul(pk, encY, encD, encE, d, r)
		require.NoError(t, err)
		require.NoError(t, verifyMul(pk, encY, encD, encE, proof))
		require.True(t, proof.D.Cmp(pk.N) < 0)

		// Dividing the response by the challenge must not give d back.
		c := challenge(pk, encY, encD, encE, proof.EncA, proof.EncB)
		guess := new(big.Int).Quo(proof.D, c)
		require.True(t, guess.Sub(guess, d).Abs(guess).Cmp(far) > 0)
	}
}

func TestMul(t *testing.T) {
	s, cleanup := newSession(t, 2, 2)
	defer cleanup()

	x, y := s.enc(t, 5), s.enc(t, 3)
	require.Equal(t, int64(15), s.run(t, func() protocol.Protocol {
		return &protocol.MulDec{X: x, Y: y}
	}))
	require.Equal(t, int64(0), s.run(t, func() protocol.Protocol {
		return &protocol.MulDec{X: s.enc(t, 0), Y: y}
	}))

	// The product wraps modulo n.
	big1 := new(big.Int).Sub(s.pk.N, big.NewInt(1))
	c, err := s.pk.Encrypt(big1)
	require.NoError(t, err)
	res, err := s.runner.Run(context.Background(), func() protocol.Protocol {
		return &protocol.MulDec{X: abb.NewCipher(c), Y: abb.NewCipher(c)}
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), res.(*big.Int).Int64())
}

func TestMul_Threshold(t *testing.T) {
	s, cleanup := newSession(t, 3, 2)
	defer cleanup()
	x, y := s.enc(t, 6), s.enc(t, 7)
	require.Equal(t, int64(42), s.run(t, func() protocol.Protocol {
		return &protocol.MulDec{X: x, Y: y}
	}))
}

// tamperConnector changes the multiplication shares it sends.
type tamperConnector struct {
	network.Connector
	tamper func(*MulShare)
}

func (c *tamperConnector) Send(ctx context.Context, buf []byte) error {
	_, msg, err := onetnet.Unmarshal(buf, ordinos.Suite)
	if err != nil {
		return err
	}
	if env, ok := msg.(*network.Envelope); ok {
		_, inner, err := onetnet.Unmarshal(env.Payload, ordinos.Suite)
		if err != nil {
			return err
		}
		if share, ok := inner.(*MulShare); ok {
			c.tamper(share)
			if env.Payload, err = onetnet.Marshal(share); err != nil {
				return err
			}
			if buf, err = onetnet.Marshal(env); err != nil {
				return err
			}
		}
	}
	return c.Connector.Send(ctx, buf)
}

func TestMul_Tampered(t *testing.T) {
	s, cleanup := newSessionWith(t, 2, 2, func(id int, c network.Connector) network.Connector {
		if id != 2 {
			return c
		}
		return &tamperConnector{Connector: c, tamper: func(share *MulShare) {
			d, _ := new(big.Int).SetString(share.D, 10)
			share.D = d.Add(d, big.NewInt(1)).String()
		}}
	})
	defer cleanup()
	x, y := s.enc(t, 5), s.enc(t, 3)
	_, err := s.runner.Run(context.Background(), func() protocol.Protocol {
		return &protocol.MulDec{X: x, Y: y}
	})
	require.Error(t, err)
	require.True(t, xerrors.Is(err, ordinos.ErrProofFailed))
	for _, tr := range s.runner.Trustees() {
		require.Equal(t, protocol.Aborted, tr.State())
	}
}

func TestEq(t *testing.T) {
	s, cleanup := newSession(t, 2, 2)
	defer cleanup()

	five, three := s.enc(t, 5), s.enc(t, 3)
	require.Equal(t, int64(1), s.run(t, func() protocol.Protocol {
		return &protocol.EqDec{X: five, Y: five, Bits: 4}
	}))
	require.Equal(t, int64(0), s.run(t, func() protocol.Protocol {
		return &protocol.EqDec{X: five, Y: three, Bits: 4}
	}))

	values := []int64{0, 1, 5, 14, 15}
	for _, x := range values {
		for _, y := range values {
			cx, cy := s.enc(t, x), s.enc(t, y)
			exp := int64(0)
			if x == y {
				exp = 1
			}
			require.Equal(t, exp, s.run(t, func() protocol.Protocol {
				return &protocol.EqDec{X: cx, Y: cy, Bits: 4}
			}), "eq(%d, %d)", x, y)
		}
	}

	for _, v := range [][2]int64{{0, 255}, {255, 255}, {128, 127}} {
		cx, cy := s.enc(t, v[0]), s.enc(t, v[1])
		exp := int64(0)
		if v[0] == v[1] {
			exp = 1
		}
		require.Equal(t, exp, s.run(t, func() protocol.Protocol {
			return &protocol.EqDec{X: cx, Y: cy, Bits: 8}
		}))
	}
	// One record per width, generated once.
	require.Equal(t, 2, s.suite.EqStorage().Generated())
}

func TestGt(t *testing.T) {
	s, cleanup := newSession(t, 2, 2)
	defer cleanup()

	five, three := s.enc(t, 5), s.enc(t, 3)
	require.Equal(t, int64(1), s.run(t, func() protocol.Protocol {
		return &protocol.GtDec{X: five, Y: three, Bits: 4}
	}))
	require.Equal(t, int64(0), s.run(t, func() protocol.Protocol {
		return &protocol.GtDec{X: three, Y: five, Bits: 4}
	}))

	values := []int64{0, 1, 7, 8, 15}
	for _, x := range values {
		for _, y := range values {
			cx, cy := s.enc(t, x), s.enc(t, y)
			exp := int64(0)
			if x >= y {
				exp = 1
			}
			require.Equal(t, exp, s.run(t, func() protocol.Protocol {
				return &protocol.GtDec{X: cx, Y: cy, Bits: 4}
			}), "gt(%d, %d)", x, y)
		}
	}

	for _, v := range [][2]int64{{0, 255}, {255, 255}, {200, 17}, {16, 17}} {
		cx, cy := s.enc(t, v[0]), s.enc(t, v[1])
		exp := int64(0)
		if v[0] >= v[1] {
			exp = 1
		}
		require.Equal(t, exp, s.run(t, func() protocol.Protocol {
			return &protocol.GtDec{X: cx, Y: cy, Bits: 8}
		}), "gt(%d, %d)", v[0], v[1])
	}

	for _, st := range s.abbs {
		require.Equal(t, 0, st.Stats().Eq[2])
		require.Equal(t, 0, st.Stats().Mul)
		require.Equal(t, 27, st.Stats().Gt[4])
		require.Equal(t, 4, st.Stats().Gt[8])
	}
}

func TestGt_OneBit(t *testing.T) {
	s, cleanup := newSession(t, 2, 2)
	defer cleanup()
	for _, v := range [][3]int64{{0, 0, 1}, {1, 0, 1}, {0, 1, 0}, {1, 1, 1}} {
		cx, cy := s.enc(t, v[0]), s.enc(t, v[1])
		require.Equal(t, v[2], s.run(t, func() protocol.Protocol {
			return &protocol.GtDec{X: cx, Y: cy, Bits: 1}
		}))
	}
}

func TestInvalidWidths(t *testing.T) {
	s, cleanup := newSession(t, 2, 2)
	defer cleanup()
	p := s.abbs[0]
	x, y := s.enc(t, 1), s.enc(t, 2)
	ctx := context.Background()

	_, err := p.Gt(ctx, x, y, 3)
	require.True(t, xerrors.Is(err, ordinos.ErrInvalidInput))
	_, err = p.Eq(ctx, x, y, 32)
	require.True(t, xerrors.Is(err, ordinos.ErrInvalidInput))
	_, err = p.Gt(ctx, x, y, 64)
	require.True(t, xerrors.Is(err, ordinos.ErrInvalidInput))
}

func TestStorage_Modulus(t *testing.T) {
	db, cleanup := tempDB(t)
	defer cleanup()
	n1 := nextPrime(new(big.Int).Lsh(big.NewInt(1), 63))
	n2 := nextPrime(new(big.Int).Add(n1, big.NewInt(2)))
	pk1, pk2 := paillier.NewPublicKey(n1), paillier.NewPublicKey(n2)
	require.Equal(t, pk1.Bits, pk2.Bits)

	eq := NewEqStorage(db)
	d1, err := eq.Get(pk1, 4)
	require.NoError(t, err)
	require.Equal(t, 1, eq.Generated())
	again, err := eq.Get(pk1, 4)
	require.NoError(t, err)
	require.Equal(t, 1, eq.Generated())
	require.Equal(t, d1.R, again.R)

	d2, err := eq.Get(pk2, 4)
	require.NoError(t, err)
	require.Equal(t, 2, eq.Generated())
	require.NotEqual(t, d1.R, d2.R)

	keys, err := db.Keys(eq.bucket(pk1, 4))
	require.NoError(t, err)
	require.ElementsMatch(t, []string{n1.String(), n2.String()}, keys)

	gt := NewGtStorage(db)
	g1, err := gt.Get(pk1, 8)
	require.NoError(t, err)
	g2, err := gt.Get(pk2, 8)
	require.NoError(t, err)
	require.Equal(t, 2, gt.Generated())
	require.NotEqual(t, g1.R, g2.R)

	// A fresh storage on the same file reuses the records.
	eq2 := NewEqStorage(db)
	d3, err := eq2.Get(pk1, 4)
	require.NoError(t, err)
	require.Equal(t, 0, eq2.Generated())
	require.Equal(t, d1.R, d3.R)
}

func TestStorage_Unreadable(t *testing.T) {
	db, cleanup := tempDB(t)
	defer cleanup()
	pk := paillier.NewPublicKey(nextPrime(new(big.Int).Lsh(big.NewInt(1), 63)))
	eq := NewEqStorage(db)
	require.NoError(t, db.Put(eq.bucket(pk, 4), pk.String(), []byte{0xff, 0xff, 0xff}))

	d, err := eq.Get(pk, 4)
	require.NoError(t, err)
	require.Equal(t, 1, eq.Generated())
	again, err := eq.Get(pk, 4)
	require.NoError(t, err)
	require.Equal(t, 1, eq.Generated())
	require.Equal(t, d.R, again.R)
}

func TestStorage_Concurrent(t *testing.T) {
	db, cleanup := tempDB(t)
	defer cleanup()
	pk := paillier.NewPublicKey(nextPrime(new(big.Int).Lsh(big.NewInt(1), 63)))
	gt := NewGtStorage(db)

	var wg sync.WaitGroup
	rs := make([]*big.Int, 8)
	for i := range rs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := gt.Get(pk, 16)
			if err == nil {
				rs[i] = d.R
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, gt.Generated())
	for _, r := range rs {
		require.NotNil(t, r)
		require.Equal(t, rs[0], r)
	}
}
