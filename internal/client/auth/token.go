// Package auth holds the client-side authentication state: the bearer token,
// the pending identity used through the unauthenticated funnel, and the
// onboarding draft. Each store wraps the durable local store with a narrow
// mutation API; none of them talks to the network.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// Local-store keys. KeyLegacyEmail is read as a fallback for installs that
// predate the bp_ prefix.
const (
	KeyToken        = "bp_token"
	KeyPendingEmail = "bp_email"
	KeyLegacyEmail  = "userEmail"
	KeyDraft        = "bp_onboarding"
	KeyKnownEmails  = "bp_known_emails"
)

// TokenStore owns the session token. No other component may construct or
// mutate the token; they can only replace it (on verify) or delete it (on
// sign-out) through this store.
type TokenStore struct {
	local storage.Local
	log   logging.Logger
	now   func() time.Time

	mu     sync.Mutex
	nextID int
	subs   map[int]func()
}

func NewTokenStore(local storage.Local, log logging.Logger) *TokenStore {
	s := &TokenStore{
		local: local,
		log:   log.With("component", "tokenstore"),
		now:   time.Now,
		subs:  make(map[int]func()),
	}
	// same-process writes arrive through the local store's notifications,
	// so Set and Clear do not fire subscribers twice
	local.Subscribe(func(key string) {
		if key == KeyToken {
			s.announce()
		}
	})
	return s
}

// Get returns the stored token, or "" when signed out.
func (s *TokenStore) Get(ctx context.Context) (string, error) {
	token, _, err := s.local.Get(ctx, KeyToken)
	return token, err
}

// Set replaces the token and broadcasts the auth-changed signal.
func (s *TokenStore) Set(ctx context.Context, token string) error {
	return s.local.Set(ctx, KeyToken, token)
}

// Clear deletes the token and broadcasts the auth-changed signal.
func (s *TokenStore) Clear(ctx context.Context) error {
	return s.local.Delete(ctx, KeyToken)
}

// Valid reports whether a token is present, parses, and has an expiry in the
// future. This is a local, advisory check only; the authoritative check is
// always the next API call's 401.
func (s *TokenStore) Valid(ctx context.Context) bool {
	token, err := s.Get(ctx)
	if err != nil || token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(s.now())
}

// BearerToken satisfies api.TokenSource. Read failures degrade to "signed
// out" rather than surfacing; the request will fail with a 401 if it needed
// the token.
func (s *TokenStore) BearerToken(ctx context.Context) string {
	token, err := s.Get(ctx)
	if err != nil {
		s.log.Warn(ctx, "failed to read token", "error", err)
		return ""
	}
	return token
}

// Subscribe registers fn to run on every token change observed by this
// process. The returned function unsubscribes.
func (s *TokenStore) Subscribe(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Announce pushes the auth-changed signal to subscribers without a local
// write. The cross-process watcher calls this when another process touches
// the token key.
func (s *TokenStore) Announce() { s.announce() }

func (s *TokenStore) announce() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
