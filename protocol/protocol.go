// Package protocol runs multi-party protocols on a set of trustees.
//
// A Protocol is instantiated once per trustee and per invocation. Protocols
// may call other protocols: the call depth travels in the context and only
// the outermost invocation, at depth 0, logs a failure. Errors of nested
// protocols are returned to their parent unchanged.
package protocol

import (
	"context"

	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/abb"
)

// Protocol is one invocation of a multi-party computation on one trustee.
type Protocol interface {
	Name() string
	Run(ctx context.Context, inst *Instance) (interface{}, error)
}

// Instance binds a running protocol to the trustee executing it.
type Instance struct {
	ABB     abb.ABB
	Trustee int
	// Depth is 0 for the top-level invocation.
	Depth int
}

// TopLevel returns true if the instance was not started by another protocol.
func (i *Instance) TopLevel() bool {
	return i.Depth == 0
}

// Call runs p as a sub-protocol on the same trustee.
func (i *Instance) Call(ctx context.Context, p Protocol) (interface{}, error) {
	return Run(ctx, i.ABB, i.Trustee, p)
}

type depthKey struct{}

// Depth returns the nesting depth of a protocol started with ctx.
func Depth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// Run executes p for the given trustee. The depth is taken from ctx, so a
// protocol started from inside another one is nested automatically.
func Run(ctx context.Context, a abb.ABB, trustee int, p Protocol) (interface{}, error) {
	depth := Depth(ctx)
	inst := &Instance{ABB: a, Trustee: trustee, Depth: depth}
	log.Lvlf4("%d: %s at depth %d", trustee, p.Name(), depth)
	res, err := p.Run(context.WithValue(ctx, depthKey{}, depth+1), inst)
	if err != nil {
		if inst.TopLevel() {
			log.Errorf("trustee %d: %s failed: %v", trustee, p.Name(), err)
			return nil, ordinos.WrapError(err)
		}
		return nil, err
	}
	return res, nil
}

// Func is a protocol given by a function.
type Func struct {
	Label string
	F     func(ctx context.Context, inst *Instance) (interface{}, error)
}

// Name implements Protocol.
func (f *Func) Name() string {
	return f.Label
}

// Run implements Protocol.
func (f *Func) Run(ctx context.Context, inst *Instance) (interface{}, error) {
	return f.F(ctx, inst)
}
