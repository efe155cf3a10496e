// Package workload runs the synthetic vector benchmark used to compare the
// pool against the Go heap: build N vectors of random length, resize N
// randomly chosen vectors to random lengths, then release them all.
package workload

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/joshuapare/mempool/internal/logger"
	"github.com/joshuapare/mempool/pkg/allocator"
	"github.com/joshuapare/mempool/pool"
)

// Backend selects where vector storage comes from.
type Backend string

const (
	BackendPool Backend = "pool" // allocator.Vector over the default pool
	BackendHeap Backend = "heap" // plain Go slices
)

// Default run parameters.
const (
	DefaultN      = 100000
	DefaultMaxLen = 1000
	DefaultSeed   = 1
)

// cancellation is polled once per this many iterations.
const checkEvery = 4096

var ErrUnknownBackend = errors.New("workload: unknown backend")

// Options configures a run. Zero fields take the defaults above.
type Options struct {
	N       int
	MaxLen  int
	Seed    uint64
	Backend Backend
}

func (o Options) withDefaults() Options {
	if o.N <= 0 {
		o.N = DefaultN
	}
	if o.MaxLen <= 0 {
		o.MaxLen = DefaultMaxLen
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Backend == "" {
		o.Backend = BackendPool
	}
	return o
}

// Result holds the wall time of each phase.
type Result struct {
	Backend  Backend
	N        int
	MaxLen   int
	Build    time.Duration
	Resize   time.Duration
	Teardown time.Duration

	// Elements is the total vector length after the resize phase.
	Elements int64
	// Peak holds default pool statistics taken after the resize phase.
	// It is nil for the heap backend.
	Peak *pool.Stats
}

// Total is the sum of the three phases.
func (r Result) Total() time.Duration {
	return r.Build + r.Resize + r.Teardown
}

type vector interface {
	Len() int
	Resize(n int) error
	Release() error
}

type heapVector struct {
	data []int32
}

func (v *heapVector) Len() int { return len(v.data) }

func (v *heapVector) Resize(n int) error {
	if n <= cap(v.data) {
		old := len(v.data)
		v.data = v.data[:n]
		if n > old {
			clear(v.data[old:n])
		}
		return nil
	}
	grown := make([]int32, n, max(n, 2*len(v.data)))
	copy(grown, v.data)
	v.data = grown
	return nil
}

func (v *heapVector) Release() error {
	v.data = nil
	return nil
}

func newVector(b Backend, n int) (vector, error) {
	switch b {
	case BackendPool:
		return allocator.NewVector[int32](n)
	case BackendHeap:
		v := &heapVector{}
		_ = v.Resize(n)
		return v, nil
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "%q", b)
}

// Run executes the three phases. On error every vector built so far is
// released before returning.
func Run(ctx context.Context, opts Options) (Result, error) {
	opts = opts.withDefaults()
	if opts.Backend != BackendPool && opts.Backend != BackendHeap {
		return Result{}, errors.Wrapf(ErrUnknownBackend, "%q", opts.Backend)
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	length := func() int { return rng.IntN(opts.MaxLen) + 1 }

	res := Result{Backend: opts.Backend, N: opts.N, MaxLen: opts.MaxLen}
	vecs := make([]vector, 0, opts.N)
	cleanup := func() {
		for _, v := range vecs {
			_ = v.Release()
		}
	}

	logger.Debug("workload build", "backend", opts.Backend, "n", opts.N, "max_len", opts.MaxLen)
	start := time.Now()
	for i := range opts.N {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				cleanup()
				return res, err
			}
		}
		v, err := newVector(opts.Backend, length())
		if err != nil {
			cleanup()
			return res, errors.Wrapf(err, "build vector %d", i)
		}
		vecs = append(vecs, v)
	}
	res.Build = time.Since(start)

	start = time.Now()
	for i := range opts.N {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				cleanup()
				return res, err
			}
		}
		idx := rng.IntN(opts.N)
		if err := vecs[idx].Resize(length()); err != nil {
			cleanup()
			return res, errors.Wrapf(err, "resize vector %d", idx)
		}
	}
	res.Resize = time.Since(start)

	for _, v := range vecs {
		res.Elements += int64(v.Len())
	}
	if opts.Backend == BackendPool {
		sp, err := pool.Default()
		if err != nil {
			cleanup()
			return res, err
		}
		st := sp.Stats()
		res.Peak = &st
	}

	start = time.Now()
	var errs error
	for _, v := range vecs {
		errs = errors.CombineErrors(errs, v.Release())
	}
	res.Teardown = time.Since(start)
	if errs != nil {
		return res, errors.Wrap(errs, "release vectors")
	}

	logger.Debug("workload done",
		"backend", opts.Backend,
		"build", res.Build,
		"resize", res.Resize,
		"teardown", res.Teardown,
	)
	return res, nil
}
