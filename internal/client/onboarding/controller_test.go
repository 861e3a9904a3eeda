package onboarding

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/briefpulse/briefpulse/internal/client/api"
	"github.com/briefpulse/briefpulse/internal/client/api/apitest"
	"github.com/briefpulse/briefpulse/internal/client/auth"
	"github.com/briefpulse/briefpulse/internal/client/navigation"
	"github.com/briefpulse/briefpulse/internal/client/session"
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

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type fixture struct {
	ctrl     *Controller
	cb       *CallbackHandler
	recon    *session.Reconciler
	tokens   *auth.TokenStore
	identity *auth.IdentityStore
	drafts   *auth.DraftStore
	sess     *storage.Session
	nav      *navigation.Recorder
	notices  []string
}

func newFixture(t *testing.T, client api.Client) *fixture {
	t.Helper()
	local := openLocal(t)
	log := testLogger()
	f := &fixture{
		tokens:   auth.NewTokenStore(local, log),
		identity: auth.NewIdentityStore(local, log),
		sess:     storage.NewSession(),
		nav:      &navigation.Recorder{},
	}
	f.drafts = auth.NewDraftStore(local, log)
	f.recon = session.NewReconciler(client, f.tokens, f.identity, f.drafts, f.sess, log)
	f.ctrl = NewController(client, f.recon, f.tokens, f.identity, f.drafts, f.sess, f.nav, 0, log)
	f.cb = NewCallbackHandler(f.ctrl, f.drafts, f.sess, f.nav,
		func(msg string) { f.notices = append(f.notices, msg) }, log)
	return f
}

func (f *fixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.tokens.Set(context.Background(), signedToken(t, time.Now().Add(time.Hour))))
}

func TestBegin_Unauthenticated(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})
	step, skipped := f.ctrl.Begin(context.Background())
	require.False(t, skipped)
	require.Equal(t, StepWelcome, step)
}

func TestBegin_AuthedWithDeviceSkipsToDashboard(t *testing.T) {
	client := &apitest.Fake{
		GetMeFn: func(ctx context.Context) (*api.Me, error) {
			return &api.Me{Email: "ada@example.com", OnboardingDone: true}, nil
		},
		GetConnectionsFn: func(ctx context.Context, force bool) ([]api.Connection, error) {
			return []api.Connection{{Provider: "garmin", Status: "connected"}}, nil
		},
	}
	f := newFixture(t, client)
	f.signIn(t)
	f.recon.Refresh(context.Background())

	_, skipped := f.ctrl.Begin(context.Background())
	require.True(t, skipped)
	require.Equal(t, navigation.RouteDashboard, f.nav.Current())
}

func TestBegin_GuardSuppressedRightAfterOAuthReturn(t *testing.T) {
	client := &apitest.Fake{
		GetMeFn: func(ctx context.Context) (*api.Me, error) {
			return &api.Me{Email: "ada@example.com"}, nil
		},
		GetConnectionsFn: func(ctx context.Context, force bool) ([]api.Connection, error) {
			return []api.Connection{{Provider: "garmin", Status: "connected"}}, nil
		},
	}
	f := newFixture(t, client)
	f.signIn(t)
	f.recon.Refresh(context.Background())

	f.ctrl.ResumeConnected(context.Background(), "garmin")

	step, skipped := f.ctrl.Begin(context.Background())
	require.False(t, skipped, "the success step must get to render once")
	require.Equal(t, StepSuccess, step)

	// the suppression is single-use
	_, skipped = f.ctrl.Begin(context.Background())
	require.True(t, skipped)
}

func TestAdvance_PersistsDraftEachStep(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})
	ctx := context.Background()

	next, err := f.ctrl.Advance(ctx, auth.Draft{Name: "Ada"})
	require.NoError(t, err)
	require.Equal(t, StepPreferences, next)
	require.Equal(t, "Ada", f.drafts.Get(ctx).Name)

	next, err = f.ctrl.Advance(ctx, auth.Draft{Goals: []string{"sleep"}, Timezone: "Europe/Riga"})
	require.NoError(t, err)
	require.Equal(t, StepConnect, next)

	d := f.drafts.Get(ctx)
	require.Equal(t, "Ada", d.Name)
	require.Equal(t, []string{"sleep"}, d.Goals)
}

func TestAdvance_PastPreferencesSubscribesOnce(t *testing.T) {
	var subscribes atomic.Int32
	client := &apitest.Fake{
		SubscribeFn: func(ctx context.Context, req api.SubscribeRequest) (*api.SubscribeResult, error) {
			subscribes.Add(1)
			return &api.SubscribeResult{UserID: "u1", IsNew: true}, nil
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()
	require.NoError(t, f.identity.SetPendingEmail(ctx, "ada@example.com"))

	f.ctrl.Advance(ctx, auth.Draft{Name: "Ada"})
	f.ctrl.Advance(ctx, auth.Draft{Goals: []string{"sleep"}})

	require.Eventually(t, func() bool {
		v, _ := f.sess.Get(session.SessKeySubscribeSent)
		return v == subscribeDone
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(1), subscribes.Load())

	// a second pass through preferences must not send again
	f2 := NewController(client, f.recon, f.tokens, f.identity, f.drafts, f.sess, f.nav, 0, testLogger())
	f2.Advance(ctx, auth.Draft{})
	f2.Advance(ctx, auth.Draft{})
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), subscribes.Load())
}

func TestAdvance_SubscribeFailureFallsBackToMagicLink(t *testing.T) {
	var linkRequests atomic.Int32
	client := &apitest.Fake{
		SubscribeFn: func(ctx context.Context, req api.SubscribeRequest) (*api.SubscribeResult, error) {
			return nil, &api.Error{Status: 500, Message: "boom"}
		},
		RequestMagicLinkFn: func(ctx context.Context, email, name string) (*api.MagicLinkResult, error) {
			linkRequests.Add(1)
			return &api.MagicLinkResult{Message: "sent"}, nil
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()
	require.NoError(t, f.identity.SetPendingEmail(ctx, "ada@example.com"))

	f.ctrl.Advance(ctx, auth.Draft{})
	next, err := f.ctrl.Advance(ctx, auth.Draft{})
	require.NoError(t, err, "background subscribe must not block the wizard")
	require.Equal(t, StepConnect, next)

	require.Eventually(t, func() bool {
		return linkRequests.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAdvance_PastConnectSubmitsProfile(t *testing.T) {
	var got *api.ProfileUpdate
	client := &apitest.Fake{
		UpdateProfileFn: func(ctx context.Context, patch api.ProfileUpdate) (*api.Me, error) {
			got = &patch
			return &api.Me{}, nil
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()
	f.signIn(t)

	f.ctrl.Advance(ctx, auth.Draft{Name: "Ada"})
	f.ctrl.Advance(ctx, auth.Draft{Goals: []string{"sleep"}, Timezone: "Europe/Riga"})
	next, err := f.ctrl.Advance(ctx, auth.Draft{})
	require.NoError(t, err)
	require.Equal(t, StepSuccess, next)

	require.NotNil(t, got)
	require.NotNil(t, got.OnboardingDone)
	require.True(t, *got.OnboardingDone)
	require.Equal(t, "Ada", *got.Name)

	// the terminal step redirects to the dashboard
	require.Equal(t, navigation.RouteDashboard, f.nav.Current())
}

func TestAdvance_ProfileSubmitServerErrorStillAdvances(t *testing.T) {
	client := &apitest.Fake{
		UpdateProfileFn: func(ctx context.Context, patch api.ProfileUpdate) (*api.Me, error) {
			return nil, &api.Error{Status: 500, Message: "boom"}
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()
	f.signIn(t)

	f.ctrl.Advance(ctx, auth.Draft{})
	f.ctrl.Advance(ctx, auth.Draft{})
	next, err := f.ctrl.Advance(ctx, auth.Draft{})
	require.NoError(t, err)
	require.Equal(t, StepSuccess, next)
}

func TestAdvance_ProfileSubmit401SignsOutAndHalts(t *testing.T) {
	client := &apitest.Fake{
		UpdateProfileFn: func(ctx context.Context, patch api.ProfileUpdate) (*api.Me, error) {
			return nil, &api.Error{Status: 401, Message: "Invalid token"}
		},
	}
	f := newFixture(t, client)
	ctx := context.Background()
	f.signIn(t)

	f.ctrl.Advance(ctx, auth.Draft{})
	f.ctrl.Advance(ctx, auth.Draft{})
	next, err := f.ctrl.Advance(ctx, auth.Draft{})
	require.Error(t, err)
	require.Equal(t, StepConnect, next, "no progression past a session problem")

	token, gerr := f.tokens.Get(ctx)
	require.NoError(t, gerr)
	require.Empty(t, token)
}

func TestConnect_RequiresAuthAndSupportedProvider(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})
	ctx := context.Background()

	_, err := f.ctrl.Connect(ctx, api.ProviderGarmin)
	require.Error(t, err, "signed out")

	f.signIn(t)
	_, err = f.ctrl.Connect(ctx, api.Provider("polar"))
	require.Error(t, err, "unsupported provider")

	url, err := f.ctrl.Connect(ctx, api.ProviderGarmin)
	require.NoError(t, err)
	require.Contains(t, url, "garmin")

	marker, ok := f.sess.Get(session.SessKeyFlowMarker)
	require.True(t, ok)
	require.NotEmpty(t, marker)
}

func TestFinishSuccess_CelebratesOnce(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})
	var celebrations int
	f.ctrl.celebrate = func() { celebrations++ }

	f.ctrl.finishSuccess(context.Background())
	f.ctrl.finishSuccess(context.Background())
	require.Equal(t, 1, celebrations)
}

func TestCallback_ErrorLandsOnDashboard(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})

	f.cb.Handle(context.Background(), CallbackResult{Provider: "garmin", Error: "access_denied"})

	require.Equal(t, navigation.RouteDashboard, f.nav.Current())
	require.Len(t, f.notices, 1)
	require.Contains(t, f.notices[0], "access_denied")
}

func TestCallback_ConnectedMidOnboardingResumesWizard(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})
	ctx := context.Background()
	f.sess.Set(session.SessKeyFlowMarker, "marker-1")

	f.cb.Handle(ctx, CallbackResult{Connected: "garmin"})

	require.Equal(t, "garmin", f.drafts.Get(ctx).Device)
	_, ok := f.sess.Get(session.SessKeyFlowMarker)
	require.False(t, ok, "marker is single-use")

	step, _, _ := f.ctrl.State()
	require.Equal(t, StepSuccess, step)
	// success step then redirects to the dashboard
	require.Equal(t, navigation.RouteDashboard, f.nav.Current())
}

func TestCallback_ConnectedOutsideOnboardingForcesRefresh(t *testing.T) {
	f := newFixture(t, &apitest.Fake{})

	f.cb.Handle(context.Background(), CallbackResult{Connected: "fitbit"})

	require.Equal(t, navigation.RouteDashboard+"?refresh=1", f.nav.Current())
	require.Equal(t, "fitbit", f.drafts.Get(context.Background()).Device)
}
