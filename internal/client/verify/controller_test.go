package verify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/api/apitest"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/navigation"
	"github.com/briefpulse/briefpulse/internal/client/storage"
	"github.com/briefpulse/briefpulse/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openLocal(t *testing.T) storage.Local {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := storage.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLiteLocal(db)
}

type fixture struct {
	ctrl   *Controller
	tokens *auth.TokenStore
	sess   *storage.Session
	nav    *navigation.Recorder
	drafts *auth.DraftStore
}

func newFixture(t *testing.T, client api.Client) *fixture {
	t.Helper()
	local := openLocal(t)
	log := testLogger()
	f := &fixture{
		tokens: auth.NewTokenStore(local, log),
		sess:   storage.NewSession(),
		nav:    &navigation.Recorder{},
		drafts: auth.NewDraftStore(local, log),
	}
	identity := auth.NewIdentityStore(local, log)
	f.ctrl = NewController(client, f.tokens, identity, f.drafts, f.sess, f.nav, 0, log)
	return f
}

func verified(done bool) *api.VerifyResult {
	return &api.VerifyResult{
		Token: "session-jwt",
		User:  api.VerifiedUser{ID: "u1", Email: "ada@example.com", OnboardingDone: done},
	}
}

func TestStart_MissingToken(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})
	require.Equal(t, StatusError, f.ctrl.Start(context.Background(), ""))
	_, msg := f.ctrl.Status()
	require.Contains(t, msg, "Missing verification token")
}

func TestStart_Success_NewUserGoesToOnboarding(t *testing.T) {
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			return verified(false), nil
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()

	require.Equal(t, StatusSuccess, f.ctrl.Start(ctx, "tok-1"))
	require.Equal(t, navigation.RouteOnboarding, f.nav.Current())

	stored, err := f.tokens.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "session-jwt", stored)

	// attempt record is committed
	_, done := f.sess.Get(donePrefix + "tok-1")
	require.True(t, done)
}

func TestStart_Success_ReturningUserGoesToDashboard(t *testing.T) {
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			return verified(true), nil
		},
	}
	f := newFixture(t, client)

	require.Equal(t, StatusSuccess, f.ctrl.Start(context.Background(), "tok-1"))
	require.Equal(t, navigation.RouteDashboard, f.nav.Current())
}

func TestStart_SecondCallReplaysWithoutNetwork(t *testing.T) {
	var calls atomic.Int32
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			calls.Add(1)
			return verified(true), nil
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()

	f.ctrl.Start(ctx, "tok-1")
	f.ctrl.Start(ctx, "tok-1")

	require.Equal(t, int32(1), calls.Load(), "token must be consumed once")
	require.Equal(t, navigation.RouteDashboard, f.nav.Current())
}

func TestStart_InflightAttemptIsLeftAlone(t *testing.T) {
	var calls atomic.Int32
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			calls.Add(1)
			return verified(true), nil
		},
	}
	f := newFixture(t, client)
	f.sess.Set(inflightPrefix+"tok-1", "1")

	f.ctrl.Start(context.Background(), "tok-1")

	require.Zero(t, calls.Load())
	require.Equal(t, navigation.RouteHome, f.nav.Current(), "no redirect for a no-op attempt")
}

func TestStart_StaleFailureSuppressedByEarlierSuccess(t *testing.T) {
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			// simulate the race: while we were in flight another attempt
			// finished and committed its record
			return nil, &api.Error{Status: 400, Message: "Token already used"}
		},
	}
	f := newFixture(t, client)
	f.sess.Set(donePrefix+"tok-1", "1")
	f.sess.Set(destPrefix+"tok-1", navigation.RouteOnboarding)

	require.Equal(t, StatusSuccess, f.ctrl.Start(context.Background(), "tok-1"))
	require.Equal(t, navigation.RouteOnboarding, f.nav.Current())
}

func TestStart_ServerError(t *testing.T) {
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			return nil, &api.Error{Status: 400, Message: "Token expired"}
		},
	}
	f := newFixture(t, client)

	require.Equal(t, StatusError, f.ctrl.Start(context.Background(), "tok-1"))
	_, msg := f.ctrl.Status()
	require.Equal(t, "Token expired", msg)
	require.Equal(t, navigation.RouteHome, f.nav.Current())

	// inflight marker released, no done record left behind
	_, inflight := f.sess.Get(inflightPrefix + "tok-1")
	require.False(t, inflight)
	_, done := f.sess.Get(donePrefix + "tok-1")
	require.False(t, done)
}

func TestStart_NetworkError(t *testing.T) {
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			return nil, &api.Error{Message: "dial refused", NetworkError: true}
		},
	}
	f := newFixture(t, client)

	require.Equal(t, StatusNetworkError, f.ctrl.Start(context.Background(), "tok-1"))
	_, msg := f.ctrl.Status()
	require.Contains(t, msg, "Unable to connect")
}

func TestRetry_OnlyAfterNetworkError(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			if fail.Load() {
				return nil, &api.Error{Message: "dial refused", NetworkError: true}
			}
			return verified(true), nil
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()

	require.Equal(t, StatusNetworkError, f.ctrl.Start(ctx, "tok-1"))

	fail.Store(false)
	require.Equal(t, StatusSuccess, f.ctrl.Retry(ctx, "tok-1"))
	require.Equal(t, navigation.RouteDashboard, f.nav.Current())

	// a second retry after success is a no-op
	require.Equal(t, StatusSuccess, f.ctrl.Retry(ctx, "tok-1"))
}

func TestStart_FlushesProfileDraft(t *testing.T) {
	var got *api.ProfileUpdate
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			return verified(false), nil
		},
		UpdateProfileFn: func(ctx context.Context, patch api.ProfileUpdate) (*api.Me, error) {
			got = &patch
			return &api.Me{}, nil
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()
	require.NoError(t, f.drafts.Put(ctx, auth.Draft{
		Name: "Ada", Goals: []string{"sleep"}, Timezone: "Europe/Riga",
	}))

	f.ctrl.Start(ctx, "tok-1")

	require.NotNil(t, got)
	require.Equal(t, "Ada", *got.Name)
	require.Equal(t, []string{"sleep"}, got.Goals)
	require.Equal(t, "Europe/Riga", *got.Timezone)

	require.Empty(t, f.drafts.Get(ctx).Name, "flushed draft is discarded")
}

func TestStart_DraftFlushFailureDoesNotBlockSuccess(t *testing.T) {
	client := &apitest.Fake{
		VerifyMagicLinkFn: func(ctx context.Context, token string) (*api.VerifyResult, error) {
			return verified(true), nil
		},
		UpdateProfileFn: func(ctx context.Context, patch api.ProfileUpdate) (*api.Me, error) {
			return nil, &api.Error{Status: 500, Message: "boom"}
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()
	require.NoError(t, f.drafts.Put(ctx, auth.Draft{
		Name: "Ada", Goals: []string{"sleep"}, Timezone: "Europe/Riga",
	}))

	require.Equal(t, StatusSuccess, f.ctrl.Start(ctx, "tok-1"))

	d := f.drafts.Get(ctx)
	require.Equal(t, "Ada", d.Name, "draft survives a failed flush")
}

func TestSleepRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleep(ctx, time.Minute)
	require.Less(t, time.Since(start), time.Second)
}
