package osmem

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapZeroFilled(t *testing.T) {
	data, release, err := Map(8192)
	require.NoError(t, err)
	require.Len(t, data, 8192)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("byte %d not zero: 0x%x", i, b)
		}
	}
	data[0], data[8191] = 1, 0xFF
	require.NoError(t, release())
	// A second release is a no-op.
	require.NoError(t, release())
}

func TestHeap(t *testing.T) {
	data, release, err := Heap(16)
	require.NoError(t, err)
	require.Len(t, data, 16)
	require.NoError(t, release())
}

func TestInvalidSize(t *testing.T) {
	_, _, err := Map(0)
	require.ErrorIs(t, err, ErrInvalidSize)
	_, _, err = Heap(-1)
	require.ErrorIs(t, err, ErrInvalidSize)
}
