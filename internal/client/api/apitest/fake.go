// Package apitest provides a configurable in-memory api.Client for tests.
package apitest

import (
	"context"
	"fmt"

	"github.com/briefpulse/briefpulse/internal/client/api"
)

// Fake implements api.Client through optional function fields. Calling an
// operation whose field is nil returns an error, so a test only wires what
// the code under test is expected to reach.
type Fake struct {
	SubscribeFn        func(ctx context.Context, req api.SubscribeRequest) (*api.SubscribeResult, error)
	UnsubscribeFn      func(ctx context.Context, email string) error
	RequestMagicLinkFn func(ctx context.Context, email, name string) (*api.MagicLinkResult, error)
	VerifyMagicLinkFn  func(ctx context.Context, token string) (*api.VerifyResult, error)
	GetMeFn            func(ctx context.Context) (*api.Me, error)
	UpdateProfileFn    func(ctx context.Context, patch api.ProfileUpdate) (*api.Me, error)
	OAuthConnectURLFn  func(ctx context.Context, provider api.Provider) string
	DisconnectDeviceFn func(ctx context.Context, provider api.Provider) error
	GetConnectionsFn   func(ctx context.Context, forceRefresh bool) ([]api.Connection, error)
	TriggerSyncFn      func(ctx context.Context, provider api.Provider, window *api.SyncWindow) (*api.SyncResult, error)
	TriggerBackfillFn  func(ctx context.Context, provider api.Provider, daysBack int) (*api.SyncResult, error)
	GetActivitiesFn    func(ctx context.Context, q api.RangeQuery) (*api.ActivityPage, error)
	GetSleepFn         func(ctx context.Context, q api.RangeQuery) (*api.SleepPage, error)
	GetDailiesFn       func(ctx context.Context, q api.RangeQuery) (*api.DailyPage, error)
	GetSummaryFn       func(ctx context.Context, provider string, days int) (*api.Summary, error)
}

var _ api.Client = (*Fake)(nil)

func notWired(op string) error {
	return fmt.Errorf("apitest: %s not wired", op)
}

func (f *Fake) Subscribe(ctx context.Context, req api.SubscribeRequest) (*api.SubscribeResult, error) {
	if f.SubscribeFn == nil {
		return nil, notWired("Subscribe")
	}
	return f.SubscribeFn(ctx, req)
}

func (f *Fake) Unsubscribe(ctx context.Context, email string) error {
	if f.UnsubscribeFn == nil {
		return notWired("Unsubscribe")
	}
	return f.UnsubscribeFn(ctx, email)
}

func (f *Fake) RequestMagicLink(ctx context.Context, email, name string) (*api.MagicLinkResult, error) {
	if f.RequestMagicLinkFn == nil {
		return nil, notWired("RequestMagicLink")
	}
	return f.RequestMagicLinkFn(ctx, email, name)
}

func (f *Fake) VerifyMagicLink(ctx context.Context, token string) (*api.VerifyResult, error) {
	if f.VerifyMagicLinkFn == nil {
		return nil, notWired("VerifyMagicLink")
	}
	return f.VerifyMagicLinkFn(ctx, token)
}

func (f *Fake) GetMe(ctx context.Context) (*api.Me, error) {
	if f.GetMeFn == nil {
		return nil, notWired("GetMe")
	}
	return f.GetMeFn(ctx)
}

func (f *Fake) UpdateProfile(ctx context.Context, patch api.ProfileUpdate) (*api.Me, error) {
	if f.UpdateProfileFn == nil {
		return nil, notWired("UpdateProfile")
	}
	return f.UpdateProfileFn(ctx, patch)
}

func (f *Fake) OAuthConnectURL(ctx context.Context, provider api.Provider) string {
	if f.OAuthConnectURLFn == nil {
		return "http://fake/oauth/" + string(provider) + "/connect"
	}
	return f.OAuthConnectURLFn(ctx, provider)
}

func (f *Fake) DisconnectDevice(ctx context.Context, provider api.Provider) error {
	if f.DisconnectDeviceFn == nil {
		return notWired("DisconnectDevice")
	}
	return f.DisconnectDeviceFn(ctx, provider)
}

func (f *Fake) GetConnections(ctx context.Context, forceRefresh bool) ([]api.Connection, error) {
	if f.GetConnectionsFn == nil {
		return nil, notWired("GetConnections")
	}
	return f.GetConnectionsFn(ctx, forceRefresh)
}

func (f *Fake) TriggerSync(ctx context.Context, provider api.Provider, window *api.SyncWindow) (*api.SyncResult, error) {
	if f.TriggerSyncFn == nil {
		return nil, notWired("TriggerSync")
	}
	return f.TriggerSyncFn(ctx, provider, window)
}

func (f *Fake) TriggerBackfill(ctx context.Context, provider api.Provider, daysBack int) (*api.SyncResult, error) {
	if f.TriggerBackfillFn == nil {
		return nil, notWired("TriggerBackfill")
	}
	return f.TriggerBackfillFn(ctx, provider, daysBack)
}

func (f *Fake) GetActivities(ctx context.Context, q api.RangeQuery) (*api.ActivityPage, error) {
	if f.GetActivitiesFn == nil {
		return nil, notWired("GetActivities")
	}
	return f.GetActivitiesFn(ctx, q)
}

func (f *Fake) GetSleep(ctx context.Context, q api.RangeQuery) (*api.SleepPage, error) {
	if f.GetSleepFn == nil {
		return nil, notWired("GetSleep")
	}
	return f.GetSleepFn(ctx, q)
}

func (f *Fake) GetDailies(ctx context.Context, q api.RangeQuery) (*api.DailyPage, error) {
	if f.GetDailiesFn == nil {
		return nil, notWired("GetDailies")
	}
	return f.GetDailiesFn(ctx, q)
}

func (f *Fake) GetSummary(ctx context.Context, provider string, days int) (*api.Summary, error) {
	if f.GetSummaryFn == nil {
		return nil, notWired("GetSummary")
	}
	return f.GetSummaryFn(ctx, provider, days)
}
