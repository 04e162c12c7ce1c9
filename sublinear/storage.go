package sublinear

import (
	"fmt"
	"math/big"
	"sync"

	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos"
	"go.dedis.ch/ordinos/paillier"
	"go.dedis.ch/ordinos/store"
)

// implName is the name of the cryptosystem in the cache layout.
const implName = "Paillier"

// cache holds the records of one protocol. The lock spans the whole
// lookup-or-generate-then-persist sequence.
type cache struct {
	db        *store.DB
	protocol  string
	generated int
	sync.Mutex
}

func (c *cache) bucket(pk *paillier.PublicKey, bits int) store.Bucket {
	return store.Bucket{"sublinear", implName, c.protocol,
		fmt.Sprintf("%dK-%d-I", pk.Bits, bits)}
}

// load decodes the record of pk and bits into msg, generating and storing
// it first if needed.
func (c *cache) load(pk *paillier.PublicKey, bits int, msg interface{},
	generate func() (interface{}, error)) error {
	c.Lock()
	defer c.Unlock()

	b := c.bucket(pk, bits)
	buf, err := c.db.Get(b, pk.String())
	if err != nil {
		return xerrors.Errorf("reading %s record: %v", c.protocol, err)
	}
	if buf != nil {
		err := protobuf.Decode(buf, msg)
		if err == nil {
			return nil
		}
		log.Warnf("Dropping unreadable %s record for %d-bit operands: %v", c.protocol, bits, err)
		if err := c.db.Delete(b, pk.String()); err != nil {
			return xerrors.Errorf("deleting %s record: %v", c.protocol, err)
		}
		buf = nil
	}
	if buf == nil {
		log.Lvlf1("No %s randomness stored for %d-bit key and %d-bit operands, generating",
			c.protocol, pk.Bits, bits)
		rec, err := generate()
		if err != nil {
			return err
		}
		buf, err = protobuf.Encode(rec)
		if err != nil {
			return xerrors.Errorf("encoding %s record: %v", c.protocol, err)
		}
		if err := c.db.Put(b, pk.String(), buf); err != nil {
			return xerrors.Errorf("storing %s record: %v", c.protocol, err)
		}
		c.generated++
	}
	if err := protobuf.Decode(buf, msg); err != nil {
		return xerrors.Errorf("decoding %s record: %v", c.protocol, err)
	}
	return nil
}

// Generated returns how many records were created by this storage.
func (c *cache) Generated() int {
	c.Lock()
	defer c.Unlock()
	return c.generated
}

type eqRecord struct {
	EncBitsR []string
	EncR     string
	EncRInv  string
	EncPowR  []string
	Coeffs   []string
}

// EqData is the randomness of the equality test. Bit i of r is encrypted
// in BitsR[i] and PowR[i] encrypts R^(i+1).
type EqData struct {
	BitsR  []*big.Int
	R      *big.Int
	RInv   *big.Int
	PowR   []*big.Int
	Coeffs []*big.Int
}

// EqStorage caches the randomness of the equality test.
type EqStorage struct {
	cache
}

// NewEqStorage returns a storage writing to db.
func NewEqStorage(db *store.DB) *EqStorage {
	return &EqStorage{cache{db: db, protocol: "eq"}}
}

// eqBlindBits returns the bit length of the bound of r, or an error if the
// key is too small for operands of the given width.
func eqBlindBits(pk *paillier.PublicKey, bits int) (int, error) {
	// floor(log2 N) - bits - 1
	k := pk.Bits - bits - 2
	if k < bits+2 {
		return 0, ordinos.Invalid("%d-bit key too small for %d-bit equality", pk.Bits, bits)
	}
	return k, nil
}

// Get returns the record of pk and bits.
func (s *EqStorage) Get(pk *paillier.PublicKey, bits int) (*EqData, error) {
	if _, err := eqBlindBits(pk, bits); err != nil {
		return nil, err
	}
	var rec eqRecord
	err := s.load(pk, bits, &rec, func() (interface{}, error) {
		return generateEq(pk, bits)
	})
	if err != nil {
		return nil, err
	}

	var d EqData
	if d.R, err = paillier.ParseInt(rec.EncR); err != nil {
		return nil, err
	}
	if d.RInv, err = paillier.ParseInt(rec.EncRInv); err != nil {
		return nil, err
	}
	if d.BitsR, err = paillier.ParseInts(rec.EncBitsR); err != nil {
		return nil, err
	}
	if d.PowR, err = paillier.ParseInts(rec.EncPowR); err != nil {
		return nil, err
	}
	if d.Coeffs, err = paillier.ParseInts(rec.Coeffs); err != nil {
		return nil, err
	}
	if len(d.BitsR) != bits || len(d.PowR) != bits || len(d.Coeffs) != bits+1 {
		return nil, xerrors.Errorf("corrupted eq record for %d bits", bits)
	}
	return &d, nil
}

func generateEq(pk *paillier.PublicKey, bits int) (*eqRecord, error) {
	k, err := eqBlindBits(pk, bits)
	if err != nil {
		return nil, err
	}
	stream := random.New()
	// r is drawn from [2^bits, 2^k) so that x - y + r never wraps.
	low := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	high := new(big.Int).Lsh(big.NewInt(1), uint(k))
	r := random.Int(new(big.Int).Sub(high, low), stream)
	r.Add(r, low)

	encR, err := pk.Encrypt(r)
	if err != nil {
		return nil, err
	}
	encBits := make([]*big.Int, bits)
	for i := range encBits {
		if encBits[i], err = pk.Encrypt(big.NewInt(int64(r.Bit(i)))); err != nil {
			return nil, err
		}
	}

	bigR := pk.RandomR(stream)
	encRInv, err := pk.Encrypt(new(big.Int).ModInverse(bigR, pk.N))
	if err != nil {
		return nil, err
	}
	pows := make([]*big.Int, bits)
	pow := big.NewInt(1)
	for i := range pows {
		pow.Mul(pow, bigR).Mod(pow, pk.N)
		if pows[i], err = pk.Encrypt(pow); err != nil {
			return nil, err
		}
	}

	coeffs, err := zeroTestPoly(bits, pk.N)
	if err != nil {
		return nil, err
	}
	return &eqRecord{
		EncBitsR: paillier.FormatInts(encBits),
		EncR:     encR.String(),
		EncRInv:  encRInv.String(),
		EncPowR:  paillier.FormatInts(pows),
		Coeffs:   paillier.FormatInts(coeffs),
	}, nil
}

type gtRecord struct {
	EncR    string
	EncRTop string
	EncRBot string
}

// GtData is the randomness of the comparison:
// r = 2^bits * r_parties + 2^(bits/2) * r_top + r_bot.
type GtData struct {
	R    *big.Int
	RTop *big.Int
	RBot *big.Int
}

// GtStorage caches the randomness of the comparison.
type GtStorage struct {
	cache
}

// NewGtStorage returns a storage writing to db.
func NewGtStorage(db *store.DB) *GtStorage {
	return &GtStorage{cache{db: db, protocol: "gt"}}
}

// gtKappa returns the bit length of the bound of r_parties.
func gtKappa(pk *paillier.PublicKey, bits int) (int, error) {
	kappa := pk.Bits - 2 - bits
	if kappa < 2 {
		return 0, ordinos.Invalid("%d-bit key too small for %d-bit comparison", pk.Bits, bits)
	}
	return kappa, nil
}

// Get returns the record of pk and bits.
func (s *GtStorage) Get(pk *paillier.PublicKey, bits int) (*GtData, error) {
	if _, err := gtKappa(pk, bits); err != nil {
		return nil, err
	}
	var rec gtRecord
	err := s.load(pk, bits, &rec, func() (interface{}, error) {
		return generateGt(pk, bits)
	})
	if err != nil {
		return nil, err
	}
	ints, err := paillier.ParseInts([]string{rec.EncR, rec.EncRTop, rec.EncRBot})
	if err != nil {
		return nil, err
	}
	return &GtData{R: ints[0], RTop: ints[1], RBot: ints[2]}, nil
}

func generateGt(pk *paillier.PublicKey, bits int) (*gtRecord, error) {
	kappa, err := gtKappa(pk, bits)
	if err != nil {
		return nil, err
	}
	stream := random.New()
	half := uint(bits / 2)
	maxHalf := new(big.Int).Lsh(big.NewInt(1), half)
	rTop := random.Int(maxHalf, stream)
	rBot := random.Int(maxHalf, stream)
	maxParties := new(big.Int).Lsh(big.NewInt(1), uint(kappa))
	rParties := random.Int(maxParties.Sub(maxParties, big.NewInt(1)), stream)
	rParties.Add(rParties, big.NewInt(1))

	r := new(big.Int).Lsh(rParties, uint(bits))
	r.Add(r, new(big.Int).Lsh(rTop, half))
	r.Add(r, rBot)

	ints := make([]*big.Int, 3)
	for i, v := range []*big.Int{r, rTop, rBot} {
		if ints[i], err = pk.Encrypt(v); err != nil {
			return nil, err
		}
	}
	return &gtRecord{EncR: ints[0].String(), EncRTop: ints[1].String(),
		EncRBot: ints[2].String()}, nil
}
