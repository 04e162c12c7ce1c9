package authority

import (
	"context"
	"math/big"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/network"
	"go.dedis.ch/ordinos/paillier"
	"go.dedis.ch/ordinos/primes"
	"go.dedis.ch/ordinos/protocol"
	"go.dedis.ch/ordinos/store"
	"go.dedis.ch/ordinos/sublinear"
)

// Session is a set of trustees of one process sharing a key, a cache file
// and a protocol suite.
type Session struct {
	Config *Config
	Public *paillier.PublicKey

	db       *store.DB
	primes   *primes.Storage
	suite    *sublinear.Suite
	abbs     []*abb.Paillier
	channels []*network.Channel
	runner   *protocol.Runner
}

// NewSession generates a fresh key, drawing the safe primes from the pool in
// the data directory, and connects one trustee per share.
func NewSession(c *Config) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s, err := open(c)
	if err != nil {
		return nil, err
	}
	pk, sks, err := paillier.KeyGen(c.KeyBits, c.Shares, c.Threshold, s.primes)
	if err != nil {
		s.db.Close()
		return nil, ordinos.ErrorOrNil(err, "key generation")
	}
	s.connect(pk, sks)
	return s, nil
}

// NewSessionWithKeys connects one trustee per given share.
func NewSessionWithKeys(c *Config, pk *paillier.PublicKey, sks []*paillier.PrivateKeyShare) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if len(sks) == 0 {
		return nil, ordinos.Invalid("no key shares")
	}
	for _, sk := range sks {
		if !sk.Public.Equal(pk) {
			return nil, ordinos.Invalid("share %d belongs to another key", sk.Index)
		}
	}
	s, err := open(c)
	if err != nil {
		return nil, err
	}
	s.connect(pk, sks)
	return s, nil
}

func open(c *Config) (*Session, error) {
	db, err := store.Open(c.DataDir)
	if err != nil {
		return nil, err
	}
	return &Session{
		Config: c,
		db:     db,
		primes: primes.NewStorage(db, c.PrimePool),
		suite:  sublinear.NewSuite(db),
	}, nil
}

func (s *Session) connect(pk *paillier.PublicKey, sks []*paillier.PrivateKeyShare) {
	s.Public = pk
	ids := make([]int, len(sks))
	for i, sk := range sks {
		ids[i] = sk.Index
	}
	mesh := network.LocalMesh(ids)
	trustees := make([]*protocol.Trustee, len(sks))
	for i, sk := range sks {
		ch := network.NewChannel(sk.Index, mesh[sk.Index])
		p := abb.NewPaillier(sk, ch, s.suite, nil)
		s.channels = append(s.channels, ch)
		s.abbs = append(s.abbs, p)
		trustees[i] = protocol.NewTrustee(sk.Index, p)
	}
	s.runner = protocol.NewRunner(trustees)
	s.runner.Timeout = s.Config.Timeout.Duration
	log.Lvlf1("Session with %d trustees on a %d-bit key", len(sks), pk.Bits)
}

// Run runs a protocol on all trustees and returns their common result.
func (s *Session) Run(ctx context.Context, newProtocol func() protocol.Protocol) (interface{}, error) {
	return s.runner.Run(ctx, newProtocol)
}

// RunInt runs a protocol returning a *big.Int.
func (s *Session) RunInt(ctx context.Context, newProtocol func() protocol.Protocol) (*big.Int, error) {
	res, err := s.Run(ctx, newProtocol)
	if err != nil {
		return nil, err
	}
	i, ok := res.(*big.Int)
	if !ok {
		return nil, xerrors.Errorf("protocol returned %T", res)
	}
	return i, nil
}

// ABB returns the ABB of the first trustee. It can be used to encrypt
// inputs and for local operations.
func (s *Session) ABB() abb.ABB {
	return s.abbs[0]
}

// Trustees returns the trustees of the session.
func (s *Session) Trustees() []*protocol.Trustee {
	return s.runner.Trustees()
}

// Suite returns the protocol suite shared by the trustees.
func (s *Session) Suite() *sublinear.Suite {
	return s.suite
}

// Stats returns the operation counts of the first trustee and resets the
// counters of all trustees.
func (s *Session) Stats() *abb.Stats {
	st := s.abbs[0].Stats().Copy()
	for _, p := range s.abbs {
		p.Stats().Reset()
	}
	return st
}

// Close disconnects the trustees and closes the cache file.
func (s *Session) Close() error {
	for _, ch := range s.channels {
		ch.Close()
	}
	return s.db.Close()
}
