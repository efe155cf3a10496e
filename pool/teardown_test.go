package pool

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoBlocks leaves block 1 entirely free and block 2 holding a live chunk.
func twoBlocks(t *testing.T, p *Pool) {
	t.Helper()
	a, err := p.Allocate(5000)
	require.NoError(t, err)
	_, err = p.Allocate(5000)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(a))
	require.Equal(t, 2, p.Stats().Blocks)
	assertInvariants(t, p)
}

func TestCloseReleaseFreeListed(t *testing.T) {
	var logs bytes.Buffer
	p, src := newTestPool(t, func(c *Config) {
		c.Logger = slog.New(slog.NewTextHandler(&logs, nil))
	})
	twoBlocks(t, p)

	td, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, Teardown{
		ReleasedBlocks: 1,
		ReleasedBytes:  DefaultBlockUnit,
		LeakedBlocks:   1,
		LeakedBytes:    DefaultBlockUnit,
	}, td)
	assert.Equal(t, []int{DefaultBlockUnit}, src.released)
	assert.Contains(t, logs.String(), "block not released at teardown")
	assert.Contains(t, logs.String(), "policy=free-listed")
}

func TestCloseKeepsBlockWhoseFirstChunkIsFreeButNotWhole(t *testing.T) {
	p, src := newTestPool(t)
	a, err := p.Allocate(64)
	require.NoError(t, err)
	_, err = p.Allocate(64)
	require.NoError(t, err)
	require.NoError(t, p.Deallocate(a))

	td, err := p.Close()
	require.NoError(t, err)
	assert.Zero(t, td.ReleasedBlocks)
	assert.Equal(t, 1, td.LeakedBlocks)
	assert.Empty(t, src.released)
}

func TestCloseReleaseAll(t *testing.T) {
	p, src := newTestPool(t, func(c *Config) { c.Release = ReleaseAll })
	twoBlocks(t, p)

	td, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, 2, td.ReleasedBlocks)
	assert.Zero(t, td.LeakedBlocks)
	assert.Len(t, src.released, 2)
	assert.Equal(t, 2, p.stats.BlocksReleased)
}

func TestCloseEmptyPool(t *testing.T) {
	p, _ := newTestPool(t)
	td, err := p.Close()
	require.NoError(t, err)
	assert.Equal(t, Teardown{}, td)
}

func TestCloseReportsReleaseErrors(t *testing.T) {
	boom := errors.New("munmap failed")
	p, err := New(Config{
		Release: ReleaseAll,
		Source: BlockSourceFunc(func(size int) ([]byte, func() error, error) {
			return make([]byte, size), func() error { return boom }, nil
		}),
	})
	require.NoError(t, err)
	_, err = p.Allocate(10)
	require.NoError(t, err)

	td, err := p.Close()
	require.ErrorIs(t, err, boom)
	assert.Zero(t, td.ReleasedBlocks)
}
