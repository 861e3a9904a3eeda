package storage

import "sync"

// Session is the in-memory store scoped to one client process, the analog of
// a browser tab session. It never touches disk and vanishes on exit.
type Session struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewSession() *Session {
	return &Session{values: make(map[string]string)}
}

func (s *Session) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// CompareAndSwap sets key to next only if its current value (absent reads as
// "") equals old, and reports whether the swap happened. Flow controllers use
// this for their at-most-once guards.
func (s *Session) CompareAndSwap(key, old, next string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[key] != old {
		return false
	}
	s.values[key] = next
	return true
}
