package abb

import (
	"math/big"
)

// Value is either a *Cipher or a *Const.
type Value interface {
	value()
}

// Cipher is an encrypted value. It is immutable: every operation returns a
// new one.
type Cipher struct {
	C *big.Int
}

// Const is a public plaintext.
type Const struct {
	V *big.Int
}

// NewConst returns the constant i.
func NewConst(i int64) *Const {
	return &Const{V: big.NewInt(i)}
}

// NewCipher wraps c without copying it.
func NewCipher(c *big.Int) *Cipher {
	return &Cipher{C: c}
}

func (*Cipher) value() {}
func (*Const) value()  {}

// Equal returns true if both ciphertexts are the same integer.
func (c *Cipher) Equal(other *Cipher) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.C.Cmp(other.C) == 0
}

func (c *Cipher) String() string {
	return "enc(" + c.C.String() + ")"
}

// Equal returns true if both constants have the same value.
func (c *Const) Equal(other *Const) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.V.Cmp(other.V) == 0
}

func (c *Const) String() string {
	return c.V.String()
}

// Ints wraps a list of integers as constants.
func Ints(is ...int64) []Value {
	vs := make([]Value, len(is))
	for i, v := range is {
		vs[i] = NewConst(v)
	}
	return vs
}
