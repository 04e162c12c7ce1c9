package primes

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/onet/v3/log"

	"go.dedis.ch/ordinos/store"
)

func TestMain(m *testing.M) {
	log.MainTest(m)
}

func TestGenerate(t *testing.T) {
	for _, bits := range []int{16, 32, 64} {
		sp, err := Generate(bits, nil)
		require.NoError(t, err)
		require.NoError(t, sp.Check(bits))
	}
	_, err := Generate(4, nil)
	require.Error(t, err)
}

func TestGenerator_Distinct(t *testing.T) {
	p, q, err := Generator{}.SafePrimes(16)
	require.NoError(t, err)
	require.NotEqual(t, 0, p.P.Cmp(q.P))
}

func TestStorage(t *testing.T) {
	dir, err := ioutil.TempDir("", "primes")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	db, err := store.Open(dir)
	require.NoError(t, err)
	defer db.Close()

	s := NewStorage(db, 3)
	p, q, err := s.SafePrimes(32)
	require.NoError(t, err)
	require.NoError(t, p.Check(32))
	require.NoError(t, q.Check(32))
	require.NotEqual(t, 0, p.P.Cmp(q.P))

	stored, err := s.Fill(32, 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)

	// A second storage on the same file reuses the pool.
	again, err := NewStorage(db, 3).Fill(32, 3)
	require.NoError(t, err)
	require.Len(t, again, 3)
	for i := range stored {
		require.Equal(t, 0, stored[i].P.Cmp(again[i].P))
	}

	more, err := s.Fill(32, 5)
	require.NoError(t, err)
	require.Len(t, more, 5)
}
