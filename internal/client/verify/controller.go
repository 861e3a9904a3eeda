// Package verify consumes magic-link tokens. A link may be opened twice (mail
// scanners prefetch them), so every attempt is recorded per token and repeat
// attempts replay the first outcome instead of burning the token again.
package verify

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/navigation"
	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

type Status string

const (
	StatusIdle         Status = "idle"
	StatusVerifying    Status = "verifying"
	StatusSuccess      Status = "success"
	StatusError        Status = "error"
	StatusNetworkError Status = "network_error"
)

const (
	inflightPrefix = "bp_verify_inflight_"
	donePrefix     = "bp_verify_done_"
	destPrefix     = "bp_verify_dest_"
)

// replayDelay keeps the success screen visible for a beat before a repeat
// attempt is redirected away.
const replayDelay = 150 * time.Millisecond

// Controller runs the verification flow for one client process.
type Controller struct {
	client   api.Client
	tokens   *auth.TokenStore
	identity *auth.IdentityStore
	drafts   *auth.DraftStore
	sess     *storage.Session
	nav      navigation.Navigator
	log      logging.Logger

	redirectDelay time.Duration
	group         singleflight.Group

	mu      sync.Mutex
	status  Status
	message string
}

func NewController(
	client api.Client,
	tokens *auth.TokenStore,
	identity *auth.IdentityStore,
	drafts *auth.DraftStore,
	sess *storage.Session,
	nav navigation.Navigator,
	redirectDelay time.Duration,
	log logging.Logger,
) *Controller {
	return &Controller{
		client:        client,
		tokens:        tokens,
		identity:      identity,
		drafts:        drafts,
		sess:          sess,
		nav:           nav,
		log:           log.With("component", "verify"),
		redirectDelay: redirectDelay,
		status:        StatusIdle,
	}
}

// Status returns the current outcome and, for failures, the user-facing
// message.
func (c *Controller) Status() (Status, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.message
}

// Start verifies token and blocks until the flow settles, including the
// post-success redirect. Calling it again with the same token is safe: a
// finished attempt replays its redirect, an attempt still in flight is left
// alone.
func (c *Controller) Start(ctx context.Context, token string) Status {
	if token == "" {
		return c.set(StatusError, "Missing verification token.")
	}

	if _, done := c.sess.Get(donePrefix + token); done {
		return c.replay(ctx, token)
	}
	if !c.sess.CompareAndSwap(inflightPrefix+token, "", "1") {
		c.log.Debug(ctx, "verification already in flight")
		status, _ := c.Status()
		return status
	}
	defer c.sess.Delete(inflightPrefix + token)

	c.set(StatusVerifying, "")

	res, err, _ := c.group.Do(token, func() (any, error) {
		return c.client.VerifyMagicLink(ctx, token)
	})
	if err != nil {
		// A parallel attempt may have landed between our checks. Its
		// success outranks our failure: the token is single-use, so a
		// second consume failing is expected, not an error.
		if _, done := c.sess.Get(donePrefix + token); done {
			return c.replay(ctx, token)
		}
		c.sess.Delete(donePrefix + token)
		c.sess.Delete(destPrefix + token)
		if api.IsNetworkError(err) {
			return c.set(StatusNetworkError, api.UserMessage(err))
		}
		return c.set(StatusError, api.UserMessage(err))
	}

	vr := res.(*api.VerifyResult)
	return c.finish(ctx, token, vr)
}

// Retry re-runs a verification that failed on the network. Failures the
// server itself reported are final; the token is spent.
func (c *Controller) Retry(ctx context.Context, token string) Status {
	status, _ := c.Status()
	if status != StatusNetworkError {
		return status
	}
	c.sess.Delete(donePrefix + token)
	c.sess.Delete(destPrefix + token)
	c.set(StatusIdle, "")
	return c.Start(ctx, token)
}

func (c *Controller) finish(ctx context.Context, token string, vr *api.VerifyResult) Status {
	if err := c.tokens.Set(ctx, vr.Token); err != nil {
		c.log.Error(ctx, "storing session token", "error", err)
		return c.set(StatusError, "Could not store your session. Please try again.")
	}
	if err := c.identity.MarkKnown(ctx, vr.User.Email); err != nil {
		c.log.Warn(ctx, "recording known email", "error", err)
	}

	if c.flushDraft(ctx) {
		if err := c.drafts.Clear(ctx); err != nil {
			c.log.Warn(ctx, "clearing onboarding draft", "error", err)
		}
	}

	dest := navigation.RouteDashboard
	if !vr.User.OnboardingDone {
		dest = navigation.RouteOnboarding
	}
	c.sess.Set(donePrefix+token, "1")
	c.sess.Set(destPrefix+token, dest)

	c.set(StatusSuccess, "")
	c.log.Info(ctx, "email verified", "email", vr.User.Email, "dest", dest)

	sleep(ctx, c.redirectDelay)
	c.nav.Replace(dest)
	return StatusSuccess
}

// flushDraft pushes profile fields collected before sign-in and reports
// whether the draft may now be discarded. Best effort: on failure the draft
// stays stored and onboarding will retry the update.
func (c *Controller) flushDraft(ctx context.Context) bool {
	d := c.drafts.Get(ctx)
	if !d.HasProfile() {
		return false
	}
	patch := api.ProfileUpdate{Goals: d.Goals}
	if d.Name != "" {
		patch.Name = &d.Name
	}
	if d.Timezone != "" {
		patch.Timezone = &d.Timezone
	}
	if _, err := c.client.UpdateProfile(ctx, patch); err != nil {
		c.log.Warn(ctx, "flushing profile draft", "error", err)
		return false
	}
	return true
}

func (c *Controller) replay(ctx context.Context, token string) Status {
	dest, ok := c.sess.Get(destPrefix + token)
	if !ok || dest == "" {
		dest = navigation.RouteDashboard
	}
	c.set(StatusSuccess, "")
	sleep(ctx, replayDelay)
	c.nav.Replace(dest)
	return StatusSuccess
}

func (c *Controller) set(status Status, message string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = status
	c.message = message
	return status
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
