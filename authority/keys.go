package authority

import (
	"bytes"
	"io/ioutil"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos/paillier"
)

// KeyFile is the TOML layout of an exported threshold key.
type KeyFile struct {
	Public paillier.PublicKeyData
	Shares []paillier.KeyShareData
}

// SaveKeys writes the public key and the shares to path.
func SaveKeys(path string, pk *paillier.PublicKey, sks []*paillier.PrivateKeyShare) error {
	kf := KeyFile{Public: pk.Data()}
	for _, sk := range sks {
		kf.Shares = append(kf.Shares, sk.Data())
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(kf); err != nil {
		return xerrors.Errorf("encoding keys: %v", err)
	}
	return ioutil.WriteFile(path, buf.Bytes(), 0600)
}

// LoadKeys reads a file written by SaveKeys.
func LoadKeys(path string) (*paillier.PublicKey, []*paillier.PrivateKeyShare, error) {
	var kf KeyFile
	if _, err := toml.DecodeFile(path, &kf); err != nil {
		return nil, nil, xerrors.Errorf("reading %s: %v", path, err)
	}
	pk, err := kf.Public.Key()
	if err != nil {
		return nil, nil, err
	}
	sks := make([]*paillier.PrivateKeyShare, len(kf.Shares))
	for i, d := range kf.Shares {
		if sks[i], err = d.KeyShare(pk); err != nil {
			return nil, nil, xerrors.Errorf("share %d: %w", i, err)
		}
	}
	return pk, sks, nil
}
