// Package landing handles the one input the marketing page has: an email
// address. Emails we have seen sign in before get a magic link straight away;
// new ones become subscribers and enter onboarding.
package landing

import (
	"context"
	"errors"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/navigation"
	"github.com/briefpulse/briefpulse/internal/client/session"
	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

var ErrEmptyEmail = errors.New("landing: email is required")

type Flow struct {
	client   api.Client
	identity *auth.IdentityStore
	sess     *storage.Session
	nav      navigation.Navigator
	log      logging.Logger
}

func NewFlow(
	client api.Client,
	identity *auth.IdentityStore,
	sess *storage.Session,
	nav navigation.Navigator,
	log logging.Logger,
) *Flow {
	return &Flow{
		client:   client,
		identity: identity,
		sess:     sess,
		nav:      nav,
		log:      log.With("component", "landing"),
	}
}

// Submit takes the email from the hero form. A known email skips straight to
// a magic link and the check-your-email page; anything else is subscribed
// first and sent into onboarding. Starting a fresh journey also resets the
// per-process onboarding guards so the wizard behaves like a first visit.
func (f *Flow) Submit(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return ErrEmptyEmail
	}

	if err := f.identity.SetPendingEmail(ctx, email); err != nil {
		return err
	}
	f.sess.Delete(session.SessKeySubscribeSent)
	f.sess.Delete(session.SessKeyOnboardingState)

	if f.identity.IsKnown(ctx, email) {
		return f.sendLink(ctx, email)
	}

	res, err := f.client.Subscribe(ctx, api.SubscribeRequest{Email: email})
	if err != nil {
		f.log.Warn(ctx, "subscribe failed", "error", err)
		return err
	}
	if !res.IsNew {
		// the server knows this email even though this client does not;
		// remember it and fall back to the sign-in path
		if err := f.identity.MarkKnown(ctx, email); err != nil {
			f.log.Warn(ctx, "recording known email", "error", err)
		}
		return f.sendLink(ctx, email)
	}

	f.log.Info(ctx, "subscriber created", "email", email)
	f.nav.Push(navigation.RouteOnboarding)
	return nil
}

func (f *Flow) sendLink(ctx context.Context, email string) error {
	if _, err := f.client.RequestMagicLink(ctx, email, ""); err != nil {
		f.log.Warn(ctx, "requesting magic link", "error", err)
		return err
	}
	f.nav.Push(navigation.RouteVerifyEmail)
	return nil
}
