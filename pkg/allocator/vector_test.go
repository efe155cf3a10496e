package allocator

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/mempool/pool"
)

func TestNewVectorZeroed(t *testing.T) {
	// Dirty some pool memory first so reuse would show through.
	var a Allocator[int32]
	junk, err := a.Allocate(500)
	require.NoError(t, err)
	for i := range junk {
		junk[i] = -1
	}
	require.NoError(t, a.Deallocate(junk, 500))

	v, err := NewVector[int32](500)
	require.NoError(t, err)
	require.Equal(t, 500, v.Len())
	for i := range v.Len() {
		require.Zero(t, v.At(i), "element %d", i)
	}
	require.NoError(t, v.Release())
	requireClean(t)
}

func TestVectorSetAt(t *testing.T) {
	v, err := NewVector[int](10)
	require.NoError(t, err)
	defer v.Release()

	for i := range v.Len() {
		v.Set(i, i*i)
	}
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49, 64, 81}, v.Slice())
}

func TestVectorResize(t *testing.T) {
	v, err := NewVector[int](4)
	require.NoError(t, err)
	for i := range 4 {
		v.Set(i, i+1)
	}

	// Shrink keeps capacity; growing back zero-fills the reclaimed tail.
	require.NoError(t, v.Resize(2))
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, 4, v.Cap())
	require.NoError(t, v.Resize(4))
	assert.Equal(t, []int{1, 2, 0, 0}, v.Slice())

	// Growing past capacity moves to max(n, 2*len).
	require.NoError(t, v.Resize(5))
	assert.Equal(t, 8, v.Cap())
	assert.Equal(t, []int{1, 2, 0, 0, 0}, v.Slice())
	require.NoError(t, v.Resize(100))
	assert.Equal(t, 100, v.Cap())
	assert.Equal(t, 1, v.At(0))
	assert.Zero(t, v.At(99))

	require.ErrorIs(t, v.Resize(-1), pool.ErrInvalidSize)

	require.NoError(t, v.Release())
	assert.Zero(t, v.Len())
	assert.Zero(t, v.Cap())
	requireClean(t)
}

func TestVectorAppend(t *testing.T) {
	v, err := NewVector[uint16](0)
	require.NoError(t, err)

	for i := range 1000 {
		require.NoError(t, v.Append(uint16(i)))
	}
	require.Equal(t, 1000, v.Len())
	for i := range 1000 {
		require.Equal(t, uint16(i), v.At(i))
	}
	assert.Equal(t, 1024, v.Cap())
	require.NoError(t, v.Release())
	requireClean(t)
}

func TestVectorChurn(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	vecs := make([]*Vector[int32], 200)
	for i := range vecs {
		v, err := NewVector[int32](1 + rng.Intn(1000))
		require.NoError(t, err)
		v.Set(0, int32(i))
		vecs[i] = v
	}
	for range 400 {
		v := vecs[rng.Intn(len(vecs))]
		first := v.At(0)
		require.NoError(t, v.Resize(1+rng.Intn(1000)))
		require.Equal(t, first, v.At(0), "resize must preserve leading elements")
	}
	sp, err := pool.Default()
	require.NoError(t, err)
	require.NoError(t, sp.Validate())

	for _, v := range vecs {
		require.NoError(t, v.Release())
	}
	requireClean(t)
}
