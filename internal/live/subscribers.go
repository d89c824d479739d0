package live

import "sync"

// subscribers holds callbacks keyed by registration order. Callers take a
// snapshot and invoke it without holding any lock of their own.
type subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]T
}

func (s *subscribers[T]) add(fn T) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]T)
	}
	s.next++
	id := s.next
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers[T]) snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]T, 0, len(s.fns))
	for id := 1; id <= s.next; id++ {
		if fn, ok := s.fns[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func (s *subscribers[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
