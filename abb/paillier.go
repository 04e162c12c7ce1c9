package abb

import (
	"context"
	"math/big"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/network"
	"go.dedis.ch/ordinos/paillier"
)

// Suite runs the operations that can't be computed locally on ciphertexts.
// A suite is shared by all the trustees of a process and gets the ABB of
// the calling trustee with every call.
type Suite interface {
	Mul(ctx context.Context, p *Paillier, x, y *Cipher) (*Cipher, error)
	Eq(ctx context.Context, p *Paillier, x, y *Cipher, bits int) (*Cipher, error)
	Gt(ctx context.Context, p *Paillier, x, y *Cipher, bits int) (*Cipher, error)
}

// DecShare is the message carrying a partial decryption.
type DecShare struct {
	Index int
	Value string
}

func init() {
	network.RegisterMessage(&DecShare{})
}

// Paillier is the ABB of one trustee holding a threshold Paillier key share.
type Paillier struct {
	sk    *paillier.PrivateKeyShare
	pk    *paillier.PublicKey
	ch    *network.Channel
	suite Suite
	stats *Stats
}

// NewPaillier returns the ABB of the trustee owning sk and ch. A nil stats
// creates a fresh one.
func NewPaillier(sk *paillier.PrivateKeyShare, ch *network.Channel, suite Suite, stats *Stats) *Paillier {
	if stats == nil {
		stats = NewStats()
	}
	return &Paillier{sk: sk, pk: sk.Public, ch: ch, suite: suite, stats: stats}
}

// Public returns the session key.
func (p *Paillier) Public() *paillier.PublicKey {
	return p.pk
}

// Channel returns the channel to the other trustees.
func (p *Paillier) Channel() *network.Channel {
	return p.ch
}

// Threshold returns the number of shares needed to decrypt.
func (p *Paillier) Threshold() int {
	return p.sk.Threshold
}

// Enc implements ABB.
func (p *Paillier) Enc(plain *big.Int) (*Cipher, error) {
	c, err := p.pk.Encrypt(plain)
	if err != nil {
		return nil, err
	}
	return NewCipher(c), nil
}

// EncWithR returns an encryption of plain and the randomness used.
func (p *Paillier) EncWithR(plain *big.Int) (*Cipher, *big.Int, error) {
	c, r, err := p.pk.EncryptWithR(plain, nil)
	if err != nil {
		return nil, nil, err
	}
	return NewCipher(c), r, nil
}

// EncNoR implements ABB.
func (p *Paillier) EncNoR(plain *big.Int) (*Cipher, error) {
	c, err := p.pk.EncryptNoR(plain)
	if err != nil {
		return nil, err
	}
	return NewCipher(c), nil
}

// Dec implements ABB.
func (p *Paillier) Dec(ctx context.Context, v Value) (*big.Int, error) {
	switch v := v.(type) {
	case *Const:
		return new(big.Int).Mod(v.V, p.pk.N), nil
	case *Cipher:
		p.stats.countDec(ctx)
		plain, err := p.decrypt(ctx, v)
		return plain, ordinos.ErrorOrNil(err, "decryption")
	}
	return nil, ordinos.Invalid("unknown value %T", v)
}

func (p *Paillier) decrypt(ctx context.Context, c *Cipher) (*big.Int, error) {
	share, err := p.sk.PartialDecrypt(c.C)
	if err != nil {
		return nil, err
	}
	replies, err := p.ch.BroadcastAndReceive(ctx, &DecShare{
		Index: share.Index,
		Value: share.Value.String(),
	})
	if err != nil {
		if xerrors.Is(err, context.DeadlineExceeded) {
			return nil, xerrors.Errorf("%v: %w", err, ordinos.ErrInsufficientShares)
		}
		return nil, err
	}

	shares := make([]*paillier.DecryptionShare, 0, len(replies))
	for _, r := range replies {
		msg, ok := r.Msg.(*DecShare)
		if !ok {
			return nil, ordinos.Invalid("got %T instead of a decryption share from %d", r.Msg, r.From)
		}
		val, err := paillier.ParseInt(msg.Value)
		if err != nil {
			return nil, xerrors.Errorf("share of %d: %w", r.From, err)
		}
		shares = append(shares, &paillier.DecryptionShare{Index: msg.Index, Value: val})
	}
	if len(shares) < p.sk.Threshold {
		return nil, xerrors.Errorf("collected %d shares: %w", len(shares), ordinos.ErrInsufficientShares)
	}
	log.Lvlf4("%d: combining %d of %d shares", p.ch.ID(), p.sk.Threshold, len(shares))
	return p.sk.Combine(paillier.DropExcess(shares, p.sk.Threshold))
}

// Add implements ABB.
func (p *Paillier) Add(a, b Value) (Value, error) {
	switch a := a.(type) {
	case *Const:
		switch b := b.(type) {
		case *Const:
			return &Const{V: new(big.Int).Add(a.V, b.V)}, nil
		case *Cipher:
			return NewCipher(p.pk.AddConst(b.C, a.V)), nil
		}
	case *Cipher:
		switch b := b.(type) {
		case *Const:
			return NewCipher(p.pk.AddConst(a.C, b.V)), nil
		case *Cipher:
			return NewCipher(p.pk.Add(a.C, b.C)), nil
		}
	}
	return nil, ordinos.Invalid("can't add %T and %T", a, b)
}

// Sub implements ABB.
func (p *Paillier) Sub(a, b Value) (Value, error) {
	switch b := b.(type) {
	case *Const:
		return p.Add(a, &Const{V: new(big.Int).Neg(b.V)})
	case *Cipher:
		return p.Add(a, NewCipher(p.pk.Neg(b.C)))
	}
	return nil, ordinos.Invalid("can't subtract %T", b)
}

// Mul implements ABB.
func (p *Paillier) Mul(ctx context.Context, a, b Value) (Value, error) {
	switch a := a.(type) {
	case *Const:
		switch b := b.(type) {
		case *Const:
			return &Const{V: new(big.Int).Mul(a.V, b.V)}, nil
		case *Cipher:
			return NewCipher(p.pk.MulConst(b.C, a.V)), nil
		}
	case *Cipher:
		switch b := b.(type) {
		case *Const:
			return NewCipher(p.pk.MulConst(a.C, b.V)), nil
		case *Cipher:
			p.stats.countMul(ctx)
			res, err := p.suite.Mul(Nested(ctx), p, a, b)
			if err != nil {
				return nil, ordinos.ErrorOrNil(err, "secure multiplication")
			}
			return res, nil
		}
	}
	return nil, ordinos.Invalid("can't multiply %T and %T", a, b)
}

// Eq implements ABB.
func (p *Paillier) Eq(ctx context.Context, a, b Value, bits int) (*Cipher, error) {
	if err := checkBits(bits); err != nil {
		return nil, err
	}
	if ca, ok := a.(*Const); ok {
		if cb, ok := b.(*Const); ok {
			return p.EncNoR(boolInt(ca.V.Cmp(cb.V) == 0))
		}
	}
	x, y, err := p.ciphers(a, b)
	if err != nil {
		return nil, err
	}
	p.stats.countEq(ctx, bits)
	res, err := p.suite.Eq(Nested(ctx), p, x, y, bits)
	if err != nil {
		return nil, ordinos.ErrorOrNil(err, "secure equality")
	}
	return res, nil
}

// Gt implements ABB.
func (p *Paillier) Gt(ctx context.Context, a, b Value, bits int) (*Cipher, error) {
	if err := checkBits(bits); err != nil {
		return nil, err
	}
	if ca, ok := a.(*Const); ok {
		if cb, ok := b.(*Const); ok {
			return p.EncNoR(boolInt(ca.V.Cmp(cb.V) >= 0))
		}
	}
	x, y, err := p.ciphers(a, b)
	if err != nil {
		return nil, err
	}
	p.stats.countGt(ctx, bits)
	res, err := p.suite.Gt(Nested(ctx), p, x, y, bits)
	if err != nil {
		return nil, ordinos.ErrorOrNil(err, "secure comparison")
	}
	return res, nil
}

// Rerandomize implements ABB.
func (p *Paillier) Rerandomize(c *Cipher) *Cipher {
	return NewCipher(p.pk.Rerandomize(c.C, nil))
}

// RandomPlaintext implements ABB.
func (p *Paillier) RandomPlaintext() *big.Int {
	return p.pk.RandomPlaintext(nil)
}

// Modulus implements ABB.
func (p *Paillier) Modulus() *big.Int {
	return p.pk.N
}

// Stats implements ABB.
func (p *Paillier) Stats() *Stats {
	return p.stats
}

// Cipher encrypts constants without randomness and returns ciphers as is.
func (p *Paillier) Cipher(v Value) (*Cipher, error) {
	switch v := v.(type) {
	case *Cipher:
		return v, nil
	case *Const:
		return p.EncNoR(v.V)
	}
	return nil, ordinos.Invalid("unknown value %T", v)
}

func (p *Paillier) ciphers(a, b Value) (*Cipher, *Cipher, error) {
	x, err := p.Cipher(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := p.Cipher(b)
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func boolInt(b bool) *big.Int {
	if b {
		return big.NewInt(1)
	}
	return big.NewInt(0)
}
