package pool

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/internal/format"
	"github.com/joshuapare/mempool/internal/logger"
	"github.com/joshuapare/mempool/internal/osmem"
)

// Tunables shared by every pool unless overridden in Config.
const (
	DefaultBlockUnit = format.DefaultBlockUnit
	DefaultSentinel  = format.DefaultSentinel
	HeaderSize       = format.ChunkHeaderSize
	SentinelSize     = format.SentinelSize
)

// Backing selects where blocks come from when Config.Source is nil.
type Backing int

const (
	// BackingMmap uses anonymous private mappings (Go heap on platforms without mmap).
	BackingMmap Backing = iota
	// BackingHeap allocates blocks on the Go heap.
	BackingHeap
)

func (b Backing) String() string {
	switch b {
	case BackingMmap:
		return "mmap"
	case BackingHeap:
		return "heap"
	default:
		return "unknown"
	}
}

// ReleasePolicy decides which blocks Close hands back to the block source.
type ReleasePolicy int

const (
	// ReleaseFreeListed walks the free list once from head and releases every
	// block whose first chunk is free and spans the whole block. Blocks that
	// still hold live allocations are left alone and reported as leaked.
	ReleaseFreeListed ReleasePolicy = iota
	// ReleaseAll releases every block, including those with live allocations.
	// Payloads handed out earlier must not be touched after Close.
	ReleaseAll
)

func (p ReleasePolicy) String() string {
	switch p {
	case ReleaseFreeListed:
		return "free-listed"
	case ReleaseAll:
		return "all"
	default:
		return "unknown"
	}
}

// BlockSource supplies raw memory for new blocks. Acquire must return a
// zero-filled slice of exactly size bytes and a function that returns it.
type BlockSource interface {
	Acquire(size int) ([]byte, func() error, error)
}

// BlockSourceFunc adapts a function to BlockSource.
type BlockSourceFunc func(size int) ([]byte, func() error, error)

// Acquire calls f(size).
func (f BlockSourceFunc) Acquire(size int) ([]byte, func() error, error) { return f(size) }

// Observer receives engine events. Calls happen synchronously on the
// allocating goroutine, so implementations must be cheap.
type Observer interface {
	BlockAcquired(size int)
	BlockReleased(size int)
	Allocated(size int)
	Freed(size int)
}

// Config configures a Pool. The zero value is usable: zero fields take the
// defaults listed on each field.
type Config struct {
	BlockUnit int           // block granularity in bytes; default 8192
	Sentinel  byte          // end-of-block marker; default 0xFF, never 0x00 or 0x01
	Backing   Backing       // ignored when Source is set
	Source    BlockSource   // custom block source
	Hardened  bool          // track live chunks and report double frees
	Release   ReleasePolicy // teardown policy
	Logger    *slog.Logger  // default logger.L
	Observer  Observer      // optional event sink
}

// DefaultConfig returns the configuration used by Default.
func DefaultConfig() Config {
	return Config{
		BlockUnit: DefaultBlockUnit,
		Sentinel:  DefaultSentinel,
		Backing:   BackingMmap,
		Release:   ReleaseFreeListed,
	}
}

func (c Config) withDefaults() Config {
	if c.BlockUnit == 0 {
		c.BlockUnit = DefaultBlockUnit
	}
	if c.Sentinel == 0 {
		c.Sentinel = DefaultSentinel
	}
	if c.Logger == nil {
		c.Logger = logger.L
	}
	return c
}

// Validate reports whether c (after defaults) describes a usable pool.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.BlockUnit < format.BlockOverhead+format.MinPayload:
		return errors.Wrapf(ErrBadConfig, "block unit %d smaller than %d",
			c.BlockUnit, format.BlockOverhead+format.MinPayload)
	case c.BlockUnit%format.Alignment != 0:
		return errors.Wrapf(ErrBadConfig, "block unit %d not a multiple of %d", c.BlockUnit, format.Alignment)
	case c.BlockUnit > format.MaxBlockSize:
		return errors.Wrapf(ErrBadConfig, "block unit %d exceeds %d", c.BlockUnit, format.MaxBlockSize)
	case c.Sentinel == format.FlagFree || c.Sentinel == format.FlagUsed:
		return errors.Wrapf(ErrBadConfig, "sentinel 0x%02x collides with chunk flags", c.Sentinel)
	case c.Backing != BackingMmap && c.Backing != BackingHeap:
		return errors.Wrapf(ErrBadConfig, "unknown backing %d", c.Backing)
	case c.Release != ReleaseFreeListed && c.Release != ReleaseAll:
		return errors.Wrapf(ErrBadConfig, "unknown release policy %d", c.Release)
	}
	return nil
}

func (c Config) source() BlockSource {
	if c.Source != nil {
		return c.Source
	}
	if c.Backing == BackingHeap {
		return BlockSourceFunc(func(size int) ([]byte, func() error, error) {
			data, release, err := osmem.Heap(size)
			return data, release, err
		})
	}
	return BlockSourceFunc(func(size int) ([]byte, func() error, error) {
		data, release, err := osmem.Map(size)
		return data, release, err
	})
}
