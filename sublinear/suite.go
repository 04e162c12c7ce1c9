package sublinear

import (
	"context"

	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/protocol"
	"go.dedis.ch/ordinos/store"
)

// Suite implements abb.Suite with the sublinear protocols.
type Suite struct {
	eq *EqStorage
	gt *GtStorage
}

// NewSuite returns a suite caching its randomness in db.
func NewSuite(db *store.DB) *Suite {
	return &Suite{eq: NewEqStorage(db), gt: NewGtStorage(db)}
}

// EqStorage returns the storage of the equality randomness.
func (s *Suite) EqStorage() *EqStorage {
	return s.eq
}

// GtStorage returns the storage of the comparison randomness.
func (s *Suite) GtStorage() *GtStorage {
	return s.gt
}

// Mul implements abb.Suite.
func (s *Suite) Mul(ctx context.Context, p *abb.Paillier, x, y *abb.Cipher) (*abb.Cipher, error) {
	return s.run(ctx, p, &mulProtocol{p: p, x: x, y: y})
}

// Eq implements abb.Suite.
func (s *Suite) Eq(ctx context.Context, p *abb.Paillier, x, y *abb.Cipher, bits int) (*abb.Cipher, error) {
	if _, err := eqBlindBits(p.Public(), bits); err != nil {
		return nil, err
	}
	return s.run(ctx, p, &eqProtocol{suite: s, p: p, x: x, y: y, bits: bits})
}

// Gt implements abb.Suite.
func (s *Suite) Gt(ctx context.Context, p *abb.Paillier, x, y *abb.Cipher, bits int) (*abb.Cipher, error) {
	if bits < 1 || bits&(bits-1) != 0 {
		return nil, ordinos.Invalid("comparison width %d is not a power of two", bits)
	}
	if bits > 1 {
		if _, err := gtKappa(p.Public(), bits); err != nil {
			return nil, err
		}
		if _, err := eqBlindBits(p.Public(), bits/2); err != nil {
			return nil, err
		}
	}
	return s.run(ctx, p, &gtProtocol{suite: s, p: p, x: x, y: y, bits: bits})
}

func (s *Suite) run(ctx context.Context, p *abb.Paillier, proto protocol.Protocol) (*abb.Cipher, error) {
	res, err := protocol.Run(ctx, p, p.Channel().ID(), proto)
	if err != nil {
		return nil, err
	}
	return res.(*abb.Cipher), nil
}

// mul multiplies two ciphers with the ABB of the trustee.
func mul(ctx context.Context, p *abb.Paillier, x, y *abb.Cipher) (*abb.Cipher, error) {
	v, err := p.Mul(ctx, x, y)
	if err != nil {
		return nil, err
	}
	c, ok := v.(*abb.Cipher)
	if !ok {
		return nil, xerrors.Errorf("multiplication returned %T", v)
	}
	return c, nil
}
