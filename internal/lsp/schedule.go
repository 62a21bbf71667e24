package lsp

import (
	"sync"
	"time"

	"github.com/bep/debounce"
)

// scheduler coalesces validation requests per document. A request that
// arrives before the delay has passed replaces the pending one.
type scheduler struct {
	mu      sync.Mutex
	delay   time.Duration
	pending map[string]func(func())
}

func newScheduler(delay time.Duration) *scheduler {
	return &scheduler{delay: delay, pending: make(map[string]func(func()))}
}

// schedule runs fn for uri once no newer request has arrived for the delay.
func (s *scheduler) schedule(uri string, fn func()) {
	s.mu.Lock()
	d, ok := s.pending[uri]
	if !ok {
		d = debounce.New(s.delay)
		s.pending[uri] = d
	}
	s.mu.Unlock()
	d(fn)
}

// cancel drops the pending request for uri.
func (s *scheduler) cancel(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.pending[uri]; ok {
		d(func() {})
		delete(s.pending, uri)
	}
}

// setDelay changes the delay for later requests. Pending ones are dropped.
func (s *scheduler) setDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delay == s.delay {
		return
	}
	for uri, d := range s.pending {
		d(func() {})
		delete(s.pending, uri)
	}
	s.delay = delay
}
