// Package logging defines the structured-logging facade used across the
// BriefPulse client. Components take a Logger instead of a concrete handler
// so tests can capture output.
package logging

import "context"

// Logger is a context-aware, structured logger. The variadic args are
// key–value pairs:
//
//	log.Info(ctx, "verifying magic link", "destination", dest)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)

	Info(ctx context.Context, msg string, args ...any)

	// Warn covers unusual but non-fatal conditions, including every
	// best-effort call that may fail without interrupting its parent flow.
	Warn(ctx context.Context, msg string, args ...any)

	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
