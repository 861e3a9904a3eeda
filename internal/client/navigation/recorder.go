package navigation

import "sync"

// Recorder is a Navigator that remembers every transition. Tests and the
// REPL status command read Current to see where the app "is".
type Recorder struct {
	mu      sync.Mutex
	history []string
}

var _ Navigator = (*Recorder)(nil)

func (r *Recorder) Push(dest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, dest)
}

func (r *Recorder) Replace(dest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		r.history = append(r.history, dest)
		return
	}
	r.history[len(r.history)-1] = dest
}

// Current returns the latest destination, or RouteHome before any navigation.
func (r *Recorder) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return RouteHome
	}
	return r.history[len(r.history)-1]
}

// History returns a copy of all destinations in order.
func (r *Recorder) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.history))
	copy(out, r.history)
	return out
}
