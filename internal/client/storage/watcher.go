package storage

import (
	"context"
	"time"
)

// Watcher polls a set of keys in the durable store and reports changes made
// by other processes. Same-process writes are already delivered through
// Local.Subscribe; the watcher is the cross-process half of the broadcast
// channel, so propagation is eventual, bounded by the poll interval.
type Watcher struct {
	local    Local
	keys     []string
	interval time.Duration
	onChange func(key string)

	last map[string]string
}

const absentMarker = "\x00absent"

func NewWatcher(local Local, keys []string, interval time.Duration, onChange func(key string)) *Watcher {
	return &Watcher{
		local:    local,
		keys:     keys,
		interval: interval,
		onChange: onChange,
		last:     make(map[string]string, len(keys)),
	}
}

// Run seeds a snapshot, then polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	w.Poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Poll(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Poll reads every watched key once and fires onChange for each key whose
// value differs from the previous poll. The first observation of a key only
// seeds the snapshot.
func (w *Watcher) Poll(ctx context.Context) {
	for _, key := range w.keys {
		value, ok, err := w.local.Get(ctx, key)
		if err != nil {
			continue
		}
		// absent and empty-string are distinct states
		current := absentMarker
		if ok {
			current = value
		}
		prev, seen := w.last[key]
		if seen && prev == current {
			continue
		}
		w.last[key] = current
		if seen {
			w.onChange(key)
		}
	}
}
