package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

// State is a snapshot of what the client believes about the current session.
// Hydrated separates "not yet reconciled" from "reconciled and signed out";
// redirect decisions must wait for it to avoid flicker on startup.
type State struct {
	Authed      bool
	Loading     bool
	Hydrated    bool
	UserEmail   string
	User        *api.Me
	Connections []api.Connection
	Err         string
}

// HasDevice reports whether any wearable integration is live.
func (s State) HasDevice() bool {
	for _, c := range s.Connections {
		if c.Connected() {
			return true
		}
	}
	return false
}

// OnlineSource reports current API reachability.
type OnlineSource interface {
	Online() bool
	Subscribe(fn func(online bool)) func()
}

// Reconciler owns the session State. It refreshes from the server whenever
// the token changes and once per reconnect, and it is the single place that
// performs sign-out.
type Reconciler struct {
	client   api.Client
	tokens   *auth.TokenStore
	identity *auth.IdentityStore
	drafts   *auth.DraftStore
	sess     *storage.Session
	log      logging.Logger

	mu     sync.Mutex
	state  State
	nextID int
	subs   map[int]func(State)
}

func NewReconciler(
	client api.Client,
	tokens *auth.TokenStore,
	identity *auth.IdentityStore,
	drafts *auth.DraftStore,
	sess *storage.Session,
	log logging.Logger,
) *Reconciler {
	return &Reconciler{
		client:   client,
		tokens:   tokens,
		identity: identity,
		drafts:   drafts,
		sess:     sess,
		log:      log.With("component", "session"),
		subs:     make(map[int]func(State)),
	}
}

// Current returns the latest snapshot.
func (r *Reconciler) Current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Subscribe registers fn to run on every state change. The returned function
// unsubscribes.
func (r *Reconciler) Subscribe(fn func(State)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

// Refresh reconciles the snapshot with the server. Without a valid token it
// settles on signed-out without any network call. A 401 from the server is
// the one failure that revokes the session; any other failure keeps the token
// and reports the problem, so a flaky network never signs the user out.
func (r *Reconciler) Refresh(ctx context.Context) State {
	if !r.tokens.Valid(ctx) {
		return r.update(func(s *State) {
			*s = State{Hydrated: true}
		})
	}

	r.update(func(s *State) {
		s.Loading = true
		s.Err = ""
	})

	var (
		me    *api.Me
		conns []api.Connection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		me, err = r.client.GetMe(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		conns, err = r.client.GetConnections(gctx, false)
		return err
	})

	if err := g.Wait(); err != nil {
		if api.IsUnauthorized(err) {
			r.log.Info(ctx, "server rejected token, signing out")
			r.SignOut(ctx)
			return r.update(func(s *State) {
				s.Err = api.UserMessage(err)
			})
		}
		r.log.Warn(ctx, "session refresh failed", "error", err)
		return r.update(func(s *State) {
			s.Loading = false
			s.Hydrated = true
			s.Authed = r.tokens.Valid(ctx)
			s.Err = api.UserMessage(err)
		})
	}

	if err := r.identity.MarkKnown(ctx, me.Email); err != nil {
		r.log.Warn(ctx, "recording known email", "error", err)
	}

	return r.update(func(s *State) {
		s.Authed = true
		s.Loading = false
		s.Hydrated = true
		s.UserEmail = me.Email
		s.User = me
		s.Connections = conns
		s.Err = ""
	})
}

// SignOut erases every trace of the session: token, pending identity,
// onboarding draft, and the per-process dedup flags. Safe to call when
// already signed out.
func (r *Reconciler) SignOut(ctx context.Context) {
	token, err := r.tokens.Get(ctx)
	if err == nil && token == "" {
		return
	}

	if err := r.tokens.Clear(ctx); err != nil {
		r.log.Error(ctx, "clearing token", "error", err)
	}
	if err := r.identity.ClearPendingEmail(ctx); err != nil {
		r.log.Error(ctx, "clearing pending email", "error", err)
	}
	if err := r.drafts.Clear(ctx); err != nil {
		r.log.Error(ctx, "clearing onboarding draft", "error", err)
	}
	r.sess.Delete(SessKeySubscribeSent)
	r.sess.Delete(SessKeyOnboardingState)
	r.sess.Delete(SessKeyFlowMarker)

	r.update(func(s *State) {
		*s = State{Hydrated: true}
	})
	r.log.Info(ctx, "signed out")
}

// Start wires the reconciler to its triggers: any token change and each
// offline-to-online transition cause one refresh. The returned function
// detaches both.
func (r *Reconciler) Start(ctx context.Context, online OnlineSource) func() {
	unsubToken := r.tokens.Subscribe(func() {
		r.Refresh(ctx)
	})
	unsubOnline := online.Subscribe(func(up bool) {
		if up {
			r.Refresh(ctx)
		}
	})
	return func() {
		unsubToken()
		unsubOnline()
	}
}

func (r *Reconciler) update(mutate func(*State)) State {
	r.mu.Lock()
	mutate(&r.state)
	state := r.state
	fns := make([]func(State), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
	return state
}
