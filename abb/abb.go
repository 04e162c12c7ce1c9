package abb

import (
	"context"
	"math/big"

	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
)

// MaxBits is the widest operand supported by Eq and Gt.
const MaxBits = 64

var allowedBits = []int{2, 4, 8, 16, 32, 64}

// ABB is the contract offered to election rules. Operations taking a context
// may run a protocol with the other trustees and block until it is done.
type ABB interface {
	// Enc returns a randomized encryption of plain.
	Enc(plain *big.Int) (*Cipher, error)
	// EncNoR returns a deterministic encryption of plain. It must only be
	// used for public values.
	EncNoR(plain *big.Int) (*Cipher, error)
	// Dec decrypts v together with the other trustees. Constants are
	// returned as is.
	Dec(ctx context.Context, v Value) (*big.Int, error)

	Add(a, b Value) (Value, error)
	Sub(a, b Value) (Value, error)
	// Mul multiplies two values. Two ciphers need a protocol.
	Mul(ctx context.Context, a, b Value) (Value, error)
	// Eq returns an encryption of 1 if a == b and 0 otherwise. Both
	// operands must be below 2^bits.
	Eq(ctx context.Context, a, b Value, bits int) (*Cipher, error)
	// Gt returns an encryption of 1 if a >= b and 0 otherwise. Both
	// operands must be below 2^bits.
	Gt(ctx context.Context, a, b Value, bits int) (*Cipher, error)

	Rerandomize(c *Cipher) *Cipher
	// RandomPlaintext returns a uniform value below the modulus.
	RandomPlaintext() *big.Int
	Modulus() *big.Int
	Stats() *Stats
}

// BitsForSize returns the operand width to use for values up to max. The
// width is rounded up to one of 2, 4, 8, 16, 32 or 64 and is 1 if max is not
// positive.
func BitsForSize(max int64) int {
	if max <= 0 {
		return 1
	}
	bits := big.NewInt(max).BitLen()
	for _, b := range allowedBits {
		if bits <= b {
			return b
		}
	}
	return MaxBits
}

// IfThenElse returns a if cond is 1 and b if cond is 0.
func IfThenElse(ctx context.Context, a ABB, cond, x, y Value) (Value, error) {
	diff, err := a.Sub(x, y)
	if err != nil {
		return nil, err
	}
	sel, err := a.Mul(ctx, cond, diff)
	if err != nil {
		return nil, xerrors.Errorf("selecting: %w", err)
	}
	return a.Add(y, sel)
}

// Sum adds up all values.
func Sum(a ABB, vs []Value) (Value, error) {
	var sum Value = NewConst(0)
	for _, v := range vs {
		var err error
		if sum, err = a.Add(sum, v); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// DecAll decrypts every value in order.
func DecAll(ctx context.Context, a ABB, vs []Value) ([]*big.Int, error) {
	out := make([]*big.Int, len(vs))
	for i, v := range vs {
		var err error
		if out[i], err = a.Dec(ctx, v); err != nil {
			return nil, xerrors.Errorf("decrypting value %d: %w", i, err)
		}
	}
	return out, nil
}

func checkBits(bits int) error {
	if bits < 1 || bits > MaxBits {
		return ordinos.Invalid("operand width %d not in [1, %d]", bits, MaxBits)
	}
	return nil
}

type nestedKey struct{}

// Nested marks ctx as running inside another counted operation.
func Nested(ctx context.Context) context.Context {
	return context.WithValue(ctx, nestedKey{}, true)
}

// IsNested returns true if ctx was marked by Nested.
func IsNested(ctx context.Context) bool {
	nested, _ := ctx.Value(nestedKey{}).(bool)
	return nested
}
