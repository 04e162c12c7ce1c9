package abb

import (
	"context"
	"math/big"

	"go.dedis.ch/kyber/v3/util/random"

	"go.dedis.ch/ordinos"
)

// DefaultPlainModulus is used by NewPlain when no modulus is given.
var DefaultPlainModulus = new(big.Int).Lsh(big.NewInt(1), 128)

// Plain is an ABB without any cryptography: a Cipher holds its plaintext.
// Arithmetic is done modulo a configurable modulus to behave like Paillier.
type Plain struct {
	n     *big.Int
	stats *Stats
}

// NewPlain returns a plaintext ABB working modulo n.
func NewPlain(n *big.Int) *Plain {
	if n == nil {
		n = DefaultPlainModulus
	}
	return &Plain{n: new(big.Int).Set(n), stats: NewStats()}
}

func (p *Plain) reduce(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, p.n)
}

func (p *Plain) plain(v Value) (*big.Int, error) {
	switch v := v.(type) {
	case *Cipher:
		return v.C, nil
	case *Const:
		return p.reduce(v.V), nil
	}
	return nil, ordinos.Invalid("unknown value %T", v)
}

// Enc implements ABB.
func (p *Plain) Enc(plain *big.Int) (*Cipher, error) {
	if plain == nil {
		return nil, ordinos.Invalid("nil plaintext")
	}
	return NewCipher(p.reduce(plain)), nil
}

// EncNoR implements ABB.
func (p *Plain) EncNoR(plain *big.Int) (*Cipher, error) {
	return p.Enc(plain)
}

// Dec implements ABB.
func (p *Plain) Dec(ctx context.Context, v Value) (*big.Int, error) {
	if _, ok := v.(*Cipher); ok {
		p.stats.countDec(ctx)
	}
	x, err := p.plain(v)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(x), nil
}

func (p *Plain) binary(a, b Value, op func(x, y *big.Int) *big.Int) (Value, error) {
	x, err := p.plain(a)
	if err != nil {
		return nil, err
	}
	y, err := p.plain(b)
	if err != nil {
		return nil, err
	}
	_, aConst := a.(*Const)
	_, bConst := b.(*Const)
	if aConst && bConst {
		return &Const{V: op(a.(*Const).V, b.(*Const).V)}, nil
	}
	return NewCipher(p.reduce(op(x, y))), nil
}

// Add implements ABB.
func (p *Plain) Add(a, b Value) (Value, error) {
	return p.binary(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Add(x, y) })
}

// Sub implements ABB.
func (p *Plain) Sub(a, b Value) (Value, error) {
	return p.binary(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Sub(x, y) })
}

// Mul implements ABB.
func (p *Plain) Mul(ctx context.Context, a, b Value) (Value, error) {
	_, aCipher := a.(*Cipher)
	_, bCipher := b.(*Cipher)
	if aCipher && bCipher {
		p.stats.countMul(ctx)
	}
	return p.binary(a, b, func(x, y *big.Int) *big.Int { return new(big.Int).Mul(x, y) })
}

func (p *Plain) operands(a, b Value, bits int) (*big.Int, *big.Int, error) {
	if err := checkBits(bits); err != nil {
		return nil, nil, err
	}
	x, err := p.plain(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := p.plain(b)
	if err != nil {
		return nil, nil, err
	}
	if x.BitLen() > bits || y.BitLen() > bits {
		return nil, nil, ordinos.Invalid("operands %v and %v wider than %d bits", x, y, bits)
	}
	return x, y, nil
}

// Eq implements ABB.
func (p *Plain) Eq(ctx context.Context, a, b Value, bits int) (*Cipher, error) {
	x, y, err := p.operands(a, b, bits)
	if err != nil {
		return nil, err
	}
	p.stats.countEq(ctx, bits)
	return NewCipher(boolInt(x.Cmp(y) == 0)), nil
}

// Gt implements ABB.
func (p *Plain) Gt(ctx context.Context, a, b Value, bits int) (*Cipher, error) {
	x, y, err := p.operands(a, b, bits)
	if err != nil {
		return nil, err
	}
	p.stats.countGt(ctx, bits)
	return NewCipher(boolInt(x.Cmp(y) >= 0)), nil
}

// Rerandomize implements ABB.
func (p *Plain) Rerandomize(c *Cipher) *Cipher {
	return NewCipher(new(big.Int).Set(c.C))
}

// RandomPlaintext implements ABB.
func (p *Plain) RandomPlaintext() *big.Int {
	return random.Int(p.n, random.New())
}

// Modulus implements ABB.
func (p *Plain) Modulus() *big.Int {
	return p.n
}

// Stats implements ABB.
func (p *Plain) Stats() *Stats {
	return p.stats
}
