// Package cli is the interactive BriefPulse client. It wires the stores and
// flow controllers together and exposes them as REPL commands.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/config"
	"github.com/briefpulse/briefpulse/internal/client/landing"
	"github.com/briefpulse/briefpulse/internal/client/navigation"
	"github.com/briefpulse/briefpulse/internal/client/onboarding"
	"github.com/briefpulse/briefpulse/internal/client/session"
	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/client/verify"
	"github.com/briefpulse/briefpulse/internal/logging"
	"github.com/briefpulse/briefpulse/internal/netx"
)

type App struct {
	config *config.Config
	log    logging.Logger

	db       *sql.DB
	local    storage.Local
	sess     *storage.Session
	tokens   *auth.TokenStore
	identity *auth.IdentityStore
	drafts   *auth.DraftStore

	client   api.Client
	recon    *session.Reconciler
	verify   *verify.Controller
	onboard  *onboarding.Controller
	callback *onboarding.CallbackHandler
	landing  *landing.Flow
	netwatch *netx.StatusWatcher

	nav    *navigation.Recorder
	reader *bufio.Reader
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	log := logging.NewTerminal(os.Stderr, cfg.Env, cfg.SlogLevel())

	db, err := storage.Open(ctx, cfg.StoreDSN)
	if err != nil {
		log.Error(ctx, "initializing local store", "error", err)
		return nil, err
	}

	local := storage.NewSQLiteLocal(db)
	sess := storage.NewSession()
	tokens := auth.NewTokenStore(local, log)
	identity := auth.NewIdentityStore(local, log)
	drafts := auth.NewDraftStore(local, log)

	client := api.NewHTTPClient(cfg.APIBaseURL, cfg.RequestTimeout, cfg.RetryMax, tokens, log)
	nav := &navigation.Recorder{}
	recon := session.NewReconciler(client, tokens, identity, drafts, sess, log)
	netwatch := netx.NewStatusWatcher(cfg.APIBaseURL, cfg.RequestTimeout, log)

	verifyCtrl := verify.NewController(
		client, tokens, identity, drafts, sess, nav, cfg.VerifyRedirectDelay, log)
	onboardCtrl := onboarding.NewController(
		client, recon, tokens, identity, drafts, sess, nav, cfg.SuccessRedirectDelay, log)

	a := &App{
		config:   cfg,
		log:      log,
		db:       db,
		local:    local,
		sess:     sess,
		tokens:   tokens,
		identity: identity,
		drafts:   drafts,
		client:   client,
		recon:    recon,
		verify:   verifyCtrl,
		onboard:  onboardCtrl,
		landing:  landing.NewFlow(client, identity, sess, nav, log),
		netwatch: netwatch,
		nav:      nav,
		reader:   bufio.NewReader(os.Stdin),
	}
	a.callback = onboarding.NewCallbackHandler(
		onboardCtrl, drafts, sess, nav, a.toast, log)
	return a, nil
}

// toast is the CLI's stand-in for a notification banner.
func (a *App) toast(msg string) {
	printlnFn("! " + msg)
}

func (a *App) isAuthed(ctx context.Context) bool {
	return a.tokens.Valid(ctx)
}

// Run starts the background reconciliation machinery and hands the terminal
// to the REPL. Blocks until the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := a.recon.Start(ctx, a.netwatch)
	defer stop()

	go a.netwatch.Run(ctx, a.config.OnlineCheckInterval)
	go a.watchSharedStore(ctx)

	a.recon.Refresh(ctx)
	a.Root(ctx)
}

// watchSharedStore polls the SQLite store for writes made by other client
// processes sharing the same database file. A token written or cleared
// elsewhere becomes visible here without a restart.
func (a *App) watchSharedStore(ctx context.Context) {
	keys := []string{auth.KeyToken, auth.KeyPendingEmail, auth.KeyKnownEmails}
	w := storage.NewWatcher(a.local, keys, a.config.OnlineCheckInterval, func(key string) {
		a.log.Debug(ctx, "shared store changed", "key", key)
		if key == auth.KeyToken {
			a.tokens.Announce()
		}
	})
	w.Run(ctx)
}

func (a *App) StatusLine(ctx context.Context) string {
	state := a.recon.Current()
	s := ""
	if state.UserEmail != "" {
		s = state.UserEmail + " "
	}
	if a.netwatch.Online() {
		s += "online"
	} else {
		s += "offline"
	}
	return "(" + s + ")"
}

// waitSettle gives fire-and-forget side effects a beat to land before the
// next prompt renders. Purely cosmetic.
func waitSettle() { time.Sleep(50 * time.Millisecond) }
