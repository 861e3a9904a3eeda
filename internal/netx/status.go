// Package netx tracks reachability of the BriefPulse API. Flow controllers
// use it to gate retry affordances and to refresh the session exactly once
// when the connection comes back.
package netx

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/briefpulse/briefpulse/internal/logging"
)

// StatusWatcher probes one URL on an interval and reports online/offline
// transitions. Any HTTP response counts as online; only transport failures
// count as offline.
type StatusWatcher struct {
	probeURL string
	client   *http.Client
	log      logging.Logger

	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func(online bool)
}

func NewStatusWatcher(probeURL string, timeout time.Duration, log logging.Logger) *StatusWatcher {
	return &StatusWatcher{
		probeURL: probeURL,
		client:   &http.Client{Timeout: timeout},
		log:      log.With("component", "netwatch"),
		online:   true, // assume reachable until a probe says otherwise
		subs:     make(map[int]func(bool)),
	}
}

// Online returns the last observed state.
func (w *StatusWatcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Subscribe registers fn to run on every online/offline transition. The
// returned function unsubscribes.
func (w *StatusWatcher) Subscribe(fn func(online bool)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
}

// Run probes until ctx is cancelled.
func (w *StatusWatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Probe performs a single reachability check and notifies subscribers if the
// state flipped.
func (w *StatusWatcher) Probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, w.probeURL, nil)
	if err != nil {
		w.set(ctx, false)
		return
	}
	resp, err := w.client.Do(req)
	if err != nil {
		w.set(ctx, false)
		return
	}
	_ = resp.Body.Close()
	w.set(ctx, true)
}

func (w *StatusWatcher) set(ctx context.Context, online bool) {
	w.mu.Lock()
	if w.online == online {
		w.mu.Unlock()
		return
	}
	w.online = online
	fns := make([]func(bool), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	if online {
		w.log.Info(ctx, "connection restored")
	} else {
		w.log.Warn(ctx, "connection lost")
	}
	for _, fn := range fns {
		fn(online)
	}
}
