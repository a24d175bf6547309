package limiter

import (
	"strings"
	"sync"
)

// Slots bounds how many requests of a kind run at once in this process.
// Kinds without a configured bound are always allowed.
type Slots struct {
	mu  sync.Mutex
	sem map[string]chan struct{}
}

// Options maps a kind, such as an operation tag, to its slot count.
type Options struct {
	Limits map[string]int
}

func New(opts Options) *Slots {
	s := &Slots{sem: map[string]chan struct{}{}}
	for k, n := range opts.Limits {
		if n > 0 {
			s.sem[strings.ToLower(k)] = make(chan struct{}, n)
		}
	}
	return s
}

// Allow tries to reserve a slot for kind without waiting.
// Returns a release function and true if allowed; otherwise a no-op and
// false.
func (s *Slots) Allow(kind string) (func(), bool) {
	s.mu.Lock()
	ch, ok := s.sem[strings.ToLower(kind)]
	s.mu.Unlock()
	if !ok {
		return func() {}, true
	}
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, true
	default:
		return func() {}, false
	}
}

// InUse reports the number of taken slots for kind.
func (s *Slots) InUse(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sem[strings.ToLower(kind)])
}
