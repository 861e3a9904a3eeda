package onboarding

import (
	"context"
	"fmt"

	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/navigation"
	"github.com/briefpulse/briefpulse/internal/client/session"
	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

// CallbackResult are the query parameters the OAuth provider redirect carries
// back into the client.
type CallbackResult struct {
	Connected string
	Provider  string
	Error     string
}

// CallbackHandler routes an OAuth provider redirect. It is not a wizard
// step: a failed connect always lands on the dashboard, a successful one
// lands either back in the wizard's Success step (mid-onboarding) or on the
// dashboard with a refresh hint so the connections list is not served stale.
type CallbackHandler struct {
	ctrl   *Controller
	drafts *auth.DraftStore
	sess   *storage.Session
	nav    navigation.Navigator
	notify func(msg string)
	log    logging.Logger
}

func NewCallbackHandler(
	ctrl *Controller,
	drafts *auth.DraftStore,
	sess *storage.Session,
	nav navigation.Navigator,
	notify func(msg string),
	log logging.Logger,
) *CallbackHandler {
	if notify == nil {
		notify = func(string) {}
	}
	return &CallbackHandler{
		ctrl:   ctrl,
		drafts: drafts,
		sess:   sess,
		nav:    nav,
		notify: notify,
		log:    log.With("component", "oauth-callback"),
	}
}

func (h *CallbackHandler) Handle(ctx context.Context, res CallbackResult) {
	if res.Error != "" {
		h.log.Warn(ctx, "device connect failed", "provider", res.Provider, "error", res.Error)
		h.notify(fmt.Sprintf("Failed to connect device: %s", res.Error))
		h.nav.Replace(navigation.RouteDashboard)
		return
	}

	if res.Connected == "" {
		h.nav.Replace(navigation.RouteDashboard)
		return
	}

	_, midOnboarding := h.sess.Get(session.SessKeyFlowMarker)
	h.sess.Delete(session.SessKeyFlowMarker)

	if err := h.drafts.Merge(ctx, auth.Draft{Device: res.Connected}); err != nil {
		h.log.Warn(ctx, "recording connected device", "error", err)
	}

	h.log.Info(ctx, "device connected", "provider", res.Connected)
	if midOnboarding {
		h.nav.Replace(navigation.RouteOnboarding)
		h.ctrl.ResumeConnected(ctx, res.Connected)
		return
	}
	h.nav.Replace(navigation.RouteDashboard + "?refresh=1")
}
