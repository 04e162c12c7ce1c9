package paillier

import (
	"math/big"

	"go.dedis.ch/ordinos"
)

// PublicKeyData is the canonical decimal encoding of a public key.
type PublicKeyData struct {
	N string
}

// KeyShareData is the canonical decimal encoding of a private key share. The
// precomputed constants are derived again on decoding.
type KeyShareData struct {
	Share     string
	Index     int
	Shares    int
	Threshold int
}

// Data returns the decimal encoding of the key.
func (pk *PublicKey) Data() PublicKeyData {
	return PublicKeyData{N: pk.N.String()}
}

// Key decodes the public key.
func (d PublicKeyData) Key() (*PublicKey, error) {
	n, err := ParseInt(d.N)
	if err != nil {
		return nil, err
	}
	return NewPublicKey(n), nil
}

// Data returns the decimal encoding of the share.
func (sk *PrivateKeyShare) Data() KeyShareData {
	return KeyShareData{
		Share:     sk.Share.String(),
		Index:     sk.Index,
		Shares:    sk.Shares,
		Threshold: sk.Threshold,
	}
}

// KeyShare decodes the share for the given public key.
func (d KeyShareData) KeyShare(pk *PublicKey) (*PrivateKeyShare, error) {
	s, err := ParseInt(d.Share)
	if err != nil {
		return nil, err
	}
	return NewPrivateKeyShare(pk, s, d.Index, d.Shares, d.Threshold)
}

// ParseInt reads a base-10 integer.
func ParseInt(s string) (*big.Int, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ordinos.Invalid("%q is not a decimal integer", s)
	}
	return i, nil
}

// ParseInts reads a list of base-10 integers.
func ParseInts(ss []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(ss))
	for i, s := range ss {
		v, err := ParseInt(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// FormatInts writes a list of integers in base 10.
func FormatInts(is []*big.Int) []string {
	out := make([]string, len(is))
	for i, v := range is {
		out[i] = v.String()
	}
	return out
}
