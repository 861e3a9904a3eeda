package auth

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

// NormalizeEmail trims and lower-cases an address; every store and flow
// compares emails in this form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IdentityStore persists the user's email through the unauthenticated funnel
// (subscribe → verify) and the locally accumulated set of emails previously
// seen as authenticated on this machine.
//
// The known-emails set is a UX hint that picks sign-in versus sign-up
// phrasing. It is trivially spoofable client state and must never gate
// access.
type IdentityStore struct {
	local storage.Local
	log   logging.Logger
}

func NewIdentityStore(local storage.Local, log logging.Logger) *IdentityStore {
	return &IdentityStore{local: local, log: log.With("component", "identity")}
}

// PendingEmail returns the funnel email, falling back to the legacy key.
func (s *IdentityStore) PendingEmail(ctx context.Context) (string, error) {
	email, ok, err := s.local.Get(ctx, KeyPendingEmail)
	if err != nil {
		return "", err
	}
	if ok {
		return email, nil
	}
	email, _, err = s.local.Get(ctx, KeyLegacyEmail)
	return email, err
}

func (s *IdentityStore) SetPendingEmail(ctx context.Context, email string) error {
	return s.local.Set(ctx, KeyPendingEmail, NormalizeEmail(email))
}

// ClearPendingEmail removes both the current and the legacy key in one
// transaction.
func (s *IdentityStore) ClearPendingEmail(ctx context.Context) error {
	return s.local.DeleteMany(ctx, KeyPendingEmail, KeyLegacyEmail)
}

// KnownEmails returns the set as a slice; corrupt state reads as empty.
func (s *IdentityStore) KnownEmails(ctx context.Context) []string {
	raw, ok, err := s.local.Get(ctx, KeyKnownEmails)
	if err != nil || !ok {
		return nil
	}
	var emails []string
	if err := json.Unmarshal([]byte(raw), &emails); err != nil {
		s.log.Warn(ctx, "corrupt known-emails entry, ignoring", "error", err)
		return nil
	}
	return emails
}

// IsKnown reports whether email was previously authenticated here.
func (s *IdentityStore) IsKnown(ctx context.Context, email string) bool {
	target := NormalizeEmail(email)
	for _, known := range s.KnownEmails(ctx) {
		if known == target {
			return true
		}
	}
	return false
}

// MarkKnown adds email to the set. Blank input and duplicates are no-ops.
func (s *IdentityStore) MarkKnown(ctx context.Context, email string) error {
	target := NormalizeEmail(email)
	if target == "" {
		return nil
	}
	if s.IsKnown(ctx, target) {
		return nil
	}
	emails := append(s.KnownEmails(ctx), target)
	data, err := json.Marshal(emails)
	if err != nil {
		return err
	}
	return s.local.Set(ctx, KeyKnownEmails, string(data))
}
