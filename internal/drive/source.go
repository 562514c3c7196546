package drive

import (
	"sync"

	"github.com/aradilov/rwstore"
)

// source is the store under test as seen by the driver.
type source interface {
	reader() reader
	publish(v string)
	stats() rwstore.Stats
	close()
}

type reader interface {
	load() string
	release()
}

func newSource(cfg Config, initial string) source {
	if cfg.Baseline {
		return &lockedSource{v: initial}
	}
	return &storeSource{s: rwstore.New(initial)}
}

type storeSource struct {
	s *rwstore.Store[string]
}

func (s *storeSource) reader() reader       { return storeReader{s.s.Handle()} }
func (s *storeSource) publish(v string)     { s.s.Write(v) }
func (s *storeSource) stats() rwstore.Stats { return s.s.Stats() }
func (s *storeSource) close()               { s.s.Close() }

type storeReader struct {
	h *rwstore.Handle[string]
}

func (r storeReader) load() string { return *r.h.Read() }
func (r storeReader) release()     { r.h.Release() }

// lockedSource is the blocking comparison: every read takes a read lock.
type lockedSource struct {
	mu     sync.RWMutex
	v      string
	writes uint64
}

func (s *lockedSource) reader() reader { return lockedReader{s} }

func (s *lockedSource) publish(v string) {
	s.mu.Lock()
	s.v = v
	s.writes++
	s.mu.Unlock()
}

func (s *lockedSource) stats() rwstore.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rwstore.Stats{Writes: s.writes}
}

func (s *lockedSource) close() {}

type lockedReader struct {
	s *lockedSource
}

func (r lockedReader) load() string {
	r.s.mu.RLock()
	v := r.s.v
	r.s.mu.RUnlock()
	return v
}

func (r lockedReader) release() {}
