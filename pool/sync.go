package pool

import (
	"io"
	"sync"

	"github.com/cockroachdb/errors"
)

// SyncPool serialises access to a Pool with a mutex. It is the form shared
// across goroutines, including the process-wide Default pool.
type SyncPool struct {
	mu sync.Mutex
	p  *Pool
}

// NewSync returns a mutex-guarded pool.
func NewSync(cfg Config) (*SyncPool, error) {
	p, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return &SyncPool{p: p}, nil
}

func (s *SyncPool) Alloc(size int) (Ref, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Alloc(size)
}

func (s *SyncPool) Allocate(size int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Allocate(size)
}

func (s *SyncPool) Free(ref Ref) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Free(ref)
}

func (s *SyncPool) Deallocate(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Deallocate(payload)
}

func (s *SyncPool) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Stats()
}

func (s *SyncPool) Validate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Validate()
}

func (s *SyncPool) WriteDetailedMap(out io.Writer, chunks bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.WriteDetailedMap(out, chunks)
}

func (s *SyncPool) Close() (Teardown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Close()
}

// With runs fn with the lock held, for callers that need several operations
// to happen atomically.
func (s *SyncPool) With(fn func(p *Pool) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.p)
}

var (
	defaultMu   sync.Mutex
	defaultCfg  = DefaultConfig()
	defaultPool *SyncPool
)

// ErrDefaultInitialized is returned by InitDefault once Default has been created.
var ErrDefaultInitialized = errors.New("pool: default pool already initialized")

// InitDefault sets the configuration of the process-wide pool. It must be
// called before the first Default call.
func InitDefault(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPool != nil {
		return ErrDefaultInitialized
	}
	defaultCfg = cfg
	return nil
}

// Default returns the process-wide pool, creating it on first use.
func Default() (*SyncPool, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultPool != nil {
		return defaultPool, nil
	}
	sp, err := NewSync(defaultCfg)
	if err != nil {
		return nil, err
	}
	defaultPool = sp
	return defaultPool, nil
}

// CloseDefault tears down the process-wide pool. A later Default call starts
// a fresh one.
func CloseDefault() (Teardown, error) {
	defaultMu.Lock()
	sp := defaultPool
	defaultPool = nil
	defaultMu.Unlock()
	if sp == nil {
		return Teardown{}, nil
	}
	return sp.Close()
}
