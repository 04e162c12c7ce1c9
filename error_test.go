package ordinos

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"
)

func makeError() error {
	return xerrors.Errorf("share combination: %w", ErrInsufficientShares)
}

func TestError_ErrorOrNil(t *testing.T) {
	err := ErrorOrNil(makeError(), "decrypt")

	require.Equal(t, "decrypt: share combination: not enough decryption shares", err.Error())
	require.Nil(t, ErrorOrNil(nil, ""))
}

// The skip option must keep the helper out of the recorded frame.
func TestError_ErrorOrNilSkip(t *testing.T) {
	err := ErrorOrNilSkip(makeError(), "decrypt", 2)

	require.NotContains(t, fmt.Sprintf("%+v", err), t.Name())
	require.Contains(t, fmt.Sprintf("%+v", err), ".makeError")
}

func TestError_WrapError(t *testing.T) {
	err := WrapError(makeError())

	require.Equal(t, "share combination: not enough decryption shares", err.Error())
	require.True(t, xerrors.Is(err, ErrInsufficientShares))
	require.False(t, xerrors.Is(err, ErrProofFailed))
}

func TestError_Invalid(t *testing.T) {
	err := Invalid("threshold %d below 2", 1)

	require.Equal(t, "threshold 1 below 2: invalid input", err.Error())
	require.True(t, xerrors.Is(err, ErrInvalidInput))
	require.Contains(t, fmt.Sprintf("%+v", err), "TestError_Invalid")
}
