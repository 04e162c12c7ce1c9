package protocol

import (
	"context"

	"go.dedis.ch/ordinos/abb"
)

// Dec decrypts a value.
type Dec struct {
	X abb.Value
}

// Name implements Protocol.
func (*Dec) Name() string { return "dec" }

// Run implements Protocol.
func (p *Dec) Run(ctx context.Context, inst *Instance) (interface{}, error) {
	return inst.ABB.Dec(ctx, p.X)
}

// MulDec multiplies two values and decrypts the product.
type MulDec struct {
	X, Y abb.Value
}

// Name implements Protocol.
func (*MulDec) Name() string { return "mul-dec" }

// Run implements Protocol.
func (p *MulDec) Run(ctx context.Context, inst *Instance) (interface{}, error) {
	prod, err := inst.ABB.Mul(ctx, p.X, p.Y)
	if err != nil {
		return nil, err
	}
	return inst.Call(ctx, &Dec{X: prod})
}

// EqDec tests two values for equality and decrypts the outcome.
type EqDec struct {
	X, Y abb.Value
	Bits int
}

// Name implements Protocol.
func (*EqDec) Name() string { return "eq-dec" }

// Run implements Protocol.
func (p *EqDec) Run(ctx context.Context, inst *Instance) (interface{}, error) {
	eq, err := inst.ABB.Eq(ctx, p.X, p.Y, p.Bits)
	if err != nil {
		return nil, err
	}
	return inst.Call(ctx, &Dec{X: eq})
}

// GtDec compares two values and decrypts the outcome.
type GtDec struct {
	X, Y abb.Value
	Bits int
}

// Name implements Protocol.
func (*GtDec) Name() string { return "gt-dec" }

// Run implements Protocol.
func (p *GtDec) Run(ctx context.Context, inst *Instance) (interface{}, error) {
	gt, err := inst.ABB.Gt(ctx, p.X, p.Y, p.Bits)
	if err != nil {
		return nil, err
	}
	return inst.Call(ctx, &Dec{X: gt})
}
