// Package primes provides the safe primes used for key generation, either
// freshly generated or drawn from a pool cached in the data directory.
package primes

import (
	"crypto/rand"
	"io"
	"math/big"

	"golang.org/x/xerrors"
)

// SafePrime is a prime P = 2Q + 1 where Q is also prime.
type SafePrime struct {
	P *big.Int
	Q *big.Int
}

// Source hands out two distinct safe primes of the given bit length.
type Source interface {
	SafePrimes(bits int) (p, q SafePrime, err error)
}

// Generator creates new safe primes on every call.
type Generator struct {
	// Rand defaults to crypto/rand.
	Rand io.Reader
}

// SafePrimes returns two distinct freshly generated safe primes.
func (g Generator) SafePrimes(bits int) (p, q SafePrime, err error) {
	p, err = Generate(bits, g.Rand)
	if err != nil {
		return
	}
	for {
		q, err = Generate(bits, g.Rand)
		if err != nil || q.P.Cmp(p.P) != 0 {
			return
		}
	}
}

// Generate searches for a safe prime of exactly bits bits. It doesn't give
// up, so small sizes with few safe primes may take a while.
func Generate(bits int, rnd io.Reader) (SafePrime, error) {
	if bits < 8 {
		return SafePrime{}, xerrors.Errorf("safe primes need at least 8 bits, got %d", bits)
	}
	if rnd == nil {
		rnd = rand.Reader
	}
	two := big.NewInt(2)
	for {
		q, err := rand.Prime(rnd, bits-1)
		if err != nil {
			return SafePrime{}, xerrors.Errorf("drawing prime: %v", err)
		}
		p := new(big.Int).Mul(q, two)
		p.Add(p, big.NewInt(1))
		if p.BitLen() == bits && p.ProbablyPrime(20) {
			return SafePrime{P: p, Q: q}, nil
		}
	}
}

// Check returns an error if s isn't a safe prime of the given size.
func (s SafePrime) Check(bits int) error {
	if s.P == nil || s.Q == nil {
		return xerrors.New("incomplete safe prime")
	}
	if s.P.BitLen() != bits {
		return xerrors.Errorf("safe prime has %d bits instead of %d", s.P.BitLen(), bits)
	}
	p := new(big.Int).Lsh(s.Q, 1)
	if p.Add(p, big.NewInt(1)).Cmp(s.P) != 0 {
		return xerrors.New("P is not 2Q+1")
	}
	if !s.P.ProbablyPrime(20) || !s.Q.ProbablyPrime(20) {
		return xerrors.New("not a safe prime")
	}
	return nil
}
