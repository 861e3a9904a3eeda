// Package storage provides the client's two persistence scopes: a durable
// key-value store shared by every client process on the machine (the
// browser-profile scope), and an in-memory store scoped to one process (the
// tab-session scope).
package storage

import "context"

// Local is the durable key-value store. Writes are visible to other
// processes through the shared database file; same-process consumers are
// notified synchronously through Subscribe.
type Local interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores the value and notifies subscribers.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key, if present, and notifies subscribers.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes all given keys in one transaction, then notifies
	// subscribers once per key.
	DeleteMany(ctx context.Context, keys ...string) error

	// Subscribe registers fn to run on every Set/Delete in this process.
	// The returned function unsubscribes.
	Subscribe(fn func(key string)) func()
}
