package sublinear

import (
	"context"
	"math/big"

	"go.dedis.ch/onet/v3/log"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/abb"
	"go.dedis.ch/ordinos/network"
	"go.dedis.ch/ordinos/paillier"
	"go.dedis.ch/ordinos/protocol"
)

// MulShare is the contribution of one trustee to a multiplication: the
// encrypted blinding value d, encY^d and the proof that both match.
type MulShare struct {
	EncD string
	EncE string
	EncA string
	EncB string
	D    string
	E    string
	F    string
}

func init() {
	network.RegisterMessage(&MulShare{})
}

type mulProtocol struct {
	p    *abb.Paillier
	x, y *abb.Cipher
}

func (*mulProtocol) Name() string { return "sublinear-mul" }

// Run computes enc(x*y) as encY^(x + sum d_i) / prod encY^d_i.
func (m *mulProtocol) Run(ctx context.Context, inst *protocol.Instance) (interface{}, error) {
	pk := m.p.Public()
	encY := m.y.C

	d := pk.RandomPlaintext(nil)
	encD, r, err := pk.EncryptWithR(d, nil)
	if err != nil {
		return nil, err
	}
	encE := pk.MulConst(encY, d)
	proof, err := proveMul(pk, encY, encD, encE, d, r)
	if err != nil {
		return nil, err
	}

	share := &MulShare{
		EncD: encD.String(), EncE: encE.String(),
		EncA: proof.EncA.String(), EncB: proof.EncB.String(),
		D: proof.D.String(), E: proof.E.String(), F: proof.F.String(),
	}
	replies, err := m.p.Channel().BroadcastAndReceive(ctx, share)
	if err != nil {
		return nil, err
	}

	encS := m.x.C
	encEs := make([]*big.Int, 0, len(replies))
	for _, reply := range replies {
		msg, ok := reply.Msg.(*MulShare)
		if !ok {
			return nil, ordinos.Invalid("got %T instead of a multiplication share from %d",
				reply.Msg, reply.From)
		}
		ints, err := paillier.ParseInts([]string{msg.EncD, msg.EncE, msg.EncA,
			msg.EncB, msg.D, msg.E, msg.F})
		if err != nil {
			return nil, xerrors.Errorf("share of %d: %w", reply.From, err)
		}
		for _, c := range ints[:4] {
			if err := pk.Valid(c); err != nil {
				return nil, xerrors.Errorf("share of %d: %v: %w", reply.From, err, ordinos.ErrProofFailed)
			}
		}
		err = verifyMul(pk, encY, ints[0], ints[1], &mulProof{
			EncA: ints[2], EncB: ints[3], D: ints[4], E: ints[5], F: ints[6],
		})
		if err != nil {
			log.Lvlf2("%d: proof of %d doesn't verify: %v", inst.Trustee, reply.From, err)
			return nil, xerrors.Errorf("multiplication share of %d: %w", reply.From, err)
		}
		encS = pk.Add(encS, ints[0])
		encEs = append(encEs, ints[1])
	}

	s, err := m.p.Dec(ctx, abb.NewCipher(encS))
	if err != nil {
		return nil, err
	}
	res := pk.MulConst(encY, s)
	for _, e := range encEs {
		res = pk.Sub(res, e)
	}
	return abb.NewCipher(res), nil
}
