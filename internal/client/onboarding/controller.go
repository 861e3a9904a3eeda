// Package onboarding drives the four-step signup wizard and the OAuth return
// leg of device connection.
package onboarding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/navigation"
	"github.com/briefpulse/briefpulse/internal/client/session"
	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

const (
	StepWelcome     = 0
	StepPreferences = 1
	StepConnect     = 2
	StepSuccess     = 3
)

const (
	subscribePending = "pending"
	subscribeDone    = "done"
)

// Controller holds the wizard position and the accumulated draft. The draft
// is persisted on every advance so an OAuth redirect or process restart never
// loses what the user already typed.
type Controller struct {
	client   api.Client
	recon    *session.Reconciler
	tokens   *auth.TokenStore
	identity *auth.IdentityStore
	drafts   *auth.DraftStore
	sess     *storage.Session
	nav      navigation.Navigator
	log      logging.Logger

	successDelay time.Duration
	celebrate    func()

	mu            sync.Mutex
	step          int
	draft         auth.Draft
	submitting    bool
	justConnected bool
	celebrated    bool
}

func NewController(
	client api.Client,
	recon *session.Reconciler,
	tokens *auth.TokenStore,
	identity *auth.IdentityStore,
	drafts *auth.DraftStore,
	sess *storage.Session,
	nav navigation.Navigator,
	successDelay time.Duration,
	log logging.Logger,
) *Controller {
	c := &Controller{
		client:       client,
		recon:        recon,
		tokens:       tokens,
		identity:     identity,
		drafts:       drafts,
		sess:         sess,
		nav:          nav,
		log:          log.With("component", "onboarding"),
		successDelay: successDelay,
	}
	c.celebrate = func() {
		c.log.Info(context.Background(), "onboarding complete")
	}
	return c
}

// State returns the current step, the draft as last merged, and whether a
// profile submit is in flight.
func (c *Controller) State() (step int, draft auth.Draft, submitting bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step, c.draft, c.submitting
}

// Begin enters the wizard. A user who is already signed in with a connected
// device has nothing to do here and is sent to the dashboard, unless they
// just came back from the OAuth redirect, in which case the Success step must
// render once. Returns the step to show and whether the wizard was skipped.
func (c *Controller) Begin(ctx context.Context) (int, bool) {
	c.mu.Lock()
	just := c.justConnected
	c.justConnected = false
	c.mu.Unlock()

	if !just && c.tokens.Valid(ctx) && c.recon.Current().HasDevice() {
		c.nav.Replace(navigation.RouteDashboard)
		return 0, true
	}

	draft := c.drafts.Get(ctx)
	c.mu.Lock()
	c.draft = draft
	step := c.step
	c.mu.Unlock()
	return step, false
}

// ResumeConnected re-enters the wizard after the OAuth provider redirected
// back with a connected device. Whatever step the user left from, they land
// on Success.
func (c *Controller) ResumeConnected(ctx context.Context, provider string) {
	if err := c.drafts.Merge(ctx, auth.Draft{Device: provider}); err != nil {
		c.log.Warn(ctx, "recording connected device", "error", err)
	}

	c.mu.Lock()
	c.draft = c.drafts.Get(ctx)
	c.step = StepSuccess
	c.justConnected = true
	c.mu.Unlock()

	c.finishSuccess(ctx)
}

// Advance merges partial into the draft, persists it, runs the side effects
// of leaving the current step, and moves forward. A 401 on the profile submit
// is the only error that halts progression.
func (c *Controller) Advance(ctx context.Context, partial auth.Draft) (int, error) {
	c.mu.Lock()
	step := c.step
	c.mu.Unlock()

	if step >= StepSuccess {
		return step, nil
	}

	if err := c.drafts.Merge(ctx, partial); err != nil {
		c.log.Warn(ctx, "persisting onboarding draft", "error", err)
	}
	draft := c.drafts.Get(ctx)
	c.mu.Lock()
	c.draft = draft
	c.mu.Unlock()

	switch step {
	case StepPreferences:
		c.ensureSubscriber(ctx)
	case StepConnect:
		if c.tokens.Valid(ctx) {
			if err := c.submitProfile(ctx, draft); err != nil {
				return step, err
			}
		}
	}

	next := step + 1
	c.mu.Lock()
	c.step = next
	c.mu.Unlock()
	c.sess.Set(session.SessKeyOnboardingState, fmt.Sprint(next))

	if next == StepSuccess {
		c.finishSuccess(ctx)
	}
	return next, nil
}

// Connect prepares the full-page jump to the OAuth provider. Only available
// signed-in and only for supported providers. The flow marker it plants tells
// the callback handler to route back here instead of to the dashboard.
func (c *Controller) Connect(ctx context.Context, provider api.Provider) (string, error) {
	if !c.tokens.Valid(ctx) {
		return "", fmt.Errorf("onboarding: sign in before connecting a device")
	}
	if !provider.Supported() {
		return "", fmt.Errorf("onboarding: unsupported provider %q", provider)
	}
	c.sess.Set(session.SessKeyFlowMarker, uuid.NewString())
	return c.client.OAuthConnectURL(ctx, provider), nil
}

// ensureSubscriber creates the subscriber record for a not-yet-signed-in
// user, at most once per process. If subscribing fails, a magic link request
// is the fallback so the user can still get in. Runs in the background; the
// wizard never waits on it.
func (c *Controller) ensureSubscriber(ctx context.Context) {
	if c.tokens.Valid(ctx) {
		return
	}
	if !c.sess.CompareAndSwap(session.SessKeySubscribeSent, "", subscribePending) {
		return
	}
	go func() {
		defer c.sess.Set(session.SessKeySubscribeSent, subscribeDone)

		email, err := c.identity.PendingEmail(ctx)
		if err != nil || email == "" {
			return
		}
		d := c.drafts.Get(ctx)
		_, err = c.client.Subscribe(ctx, api.SubscribeRequest{
			Email:    email,
			Name:     d.Name,
			Timezone: d.Timezone,
			Goals:    d.Goals,
		})
		if err == nil {
			return
		}
		c.log.Warn(ctx, "subscribe failed, requesting magic link instead", "error", err)
		if _, err := c.client.RequestMagicLink(ctx, email, d.Name); err != nil {
			c.log.Warn(ctx, "magic link fallback failed", "error", err)
		}
	}()
}

func (c *Controller) submitProfile(ctx context.Context, d auth.Draft) error {
	c.setSubmitting(true)
	defer c.setSubmitting(false)

	done := true
	patch := api.ProfileUpdate{Goals: d.Goals, OnboardingDone: &done}
	if d.Name != "" {
		patch.Name = &d.Name
	}
	if d.Timezone != "" {
		patch.Timezone = &d.Timezone
	}
	if _, err := c.client.UpdateProfile(ctx, patch); err != nil {
		if api.IsUnauthorized(err) {
			c.recon.SignOut(ctx)
			return err
		}
		// the profile can be reconciled later, do not trap the user here
		c.log.Warn(ctx, "profile submit failed", "error", err)
	}
	return nil
}

// finishSuccess runs the terminal step exactly once: celebrate, hold the
// screen briefly, then send the user to their dashboard.
func (c *Controller) finishSuccess(ctx context.Context) {
	c.mu.Lock()
	if c.celebrated {
		c.mu.Unlock()
		return
	}
	c.celebrated = true
	c.mu.Unlock()

	c.celebrate()
	sleep(ctx, c.successDelay)
	c.nav.Replace(navigation.RouteDashboard)
}

func (c *Controller) setSubmitting(v bool) {
	c.mu.Lock()
	c.submitting = v
	c.mu.Unlock()
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
