package wifi

import "sync"

// Subscribers is a set of scan report callbacks, for ScanAdapter
// implementations. The zero value is ready to use.
type Subscribers struct {
	mu     sync.Mutex
	fns    map[int]func([]AvailableNetwork)
	nextID int
}

// Subscribe adds fn and returns a func that removes it.
func (s *Subscribers) Subscribe(fn func([]AvailableNetwork)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fns == nil {
		s.fns = make(map[int]func([]AvailableNetwork))
	}
	id := s.nextID
	s.nextID++
	s.fns[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// Len returns the number of subscribers.
func (s *Subscribers) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// Notify calls every subscriber with report. Subscribers are called
// without holding the lock, so they may unsubscribe.
func (s *Subscribers) Notify(report []AvailableNetwork) {
	s.mu.Lock()
	fns := make([]func([]AvailableNetwork), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(report)
	}
}
