package primes

import (
	"math/big"
	"strconv"
	"sync"

	"go.dedis.ch/kyber/v3/util/random"
	"go.dedis.ch/onet/v3/log"
	"go.dedis.ch/protobuf"
	"golang.org/x/xerrors"

	"go.dedis.ch/ordinos/store"
)

// DefaultPoolSize is the number of safe primes kept per bit length.
const DefaultPoolSize = 4

var bucket = store.Bucket{"primes"}

type primeData struct {
	P string
	Q string
}

type pool struct {
	Primes []primeData
}

// Storage draws safe primes from a pool persisted in the cache file. Missing
// primes are generated and stored before use.
type Storage struct {
	db   *store.DB
	size int
	gen  Generator
	sync.Mutex
}

// NewStorage returns a storage keeping size primes per bit length. A size
// below two uses DefaultPoolSize.
func NewStorage(db *store.DB, size int) *Storage {
	if size < 2 {
		size = DefaultPoolSize
	}
	return &Storage{db: db, size: size}
}

// SafePrimes returns two distinct safe primes picked at random from the pool.
func (s *Storage) SafePrimes(bits int) (p, q SafePrime, err error) {
	s.Lock()
	defer s.Unlock()

	primes, err := s.fill(bits, s.size)
	if err != nil {
		return
	}
	stream := random.New()
	n := big.NewInt(int64(len(primes)))
	i := int(random.Int(n, stream).Int64())
	j := i
	for j == i {
		j = int(random.Int(n, stream).Int64())
	}
	return primes[i], primes[j], nil
}

// Fill makes sure at least count primes of the given size are stored and
// returns all of them.
func (s *Storage) Fill(bits, count int) ([]SafePrime, error) {
	s.Lock()
	defer s.Unlock()
	return s.fill(bits, count)
}

func (s *Storage) fill(bits, count int) ([]SafePrime, error) {
	primes, err := s.load(bits)
	if err != nil {
		return nil, err
	}
	if len(primes) >= count {
		return primes, nil
	}
	log.Lvlf1("only %d safe primes of %d bits stored, searching for %d more",
		len(primes), bits, count-len(primes))
	for len(primes) < count {
		sp, err := Generate(bits, s.gen.Rand)
		if err != nil {
			return nil, err
		}
		if contains(primes, sp) {
			continue
		}
		primes = append(primes, sp)
		if err := s.save(bits, primes); err != nil {
			return nil, err
		}
		log.Lvlf2("found safe prime %d/%d", len(primes), count)
	}
	return primes, nil
}

func (s *Storage) load(bits int) ([]SafePrime, error) {
	buf, err := s.db.Get(bucket, strconv.Itoa(bits))
	if err != nil || buf == nil {
		return nil, err
	}
	var p pool
	if err := protobuf.Decode(buf, &p); err != nil {
		return nil, xerrors.Errorf("decoding prime pool: %v", err)
	}
	primes := make([]SafePrime, 0, len(p.Primes))
	for _, d := range p.Primes {
		sp, okP := new(big.Int).SetString(d.P, 10)
		sq, okQ := new(big.Int).SetString(d.Q, 10)
		if !okP || !okQ {
			return nil, xerrors.New("corrupted prime pool")
		}
		primes = append(primes, SafePrime{P: sp, Q: sq})
	}
	return primes, nil
}

func (s *Storage) save(bits int, primes []SafePrime) error {
	p := pool{Primes: make([]primeData, len(primes))}
	for i, sp := range primes {
		p.Primes[i] = primeData{P: sp.P.String(), Q: sp.Q.String()}
	}
	buf, err := protobuf.Encode(&p)
	if err != nil {
		return xerrors.Errorf("encoding prime pool: %v", err)
	}
	return s.db.Put(bucket, strconv.Itoa(bits), buf)
}

func contains(primes []SafePrime, sp SafePrime) bool {
	for _, p := range primes {
		if p.P.Cmp(sp.P) == 0 {
			return true
		}
	}
	return false
}
