// Package api is the single chokepoint for calls to the BriefPulse REST
// service. It injects the bearer token, applies the transport retry policy,
// and normalizes every failure into *Error.
package api

import "context"

// Provider identifies a wearable integration.
type Provider string

const (
	ProviderGarmin Provider = "garmin"
	ProviderFitbit Provider = "fitbit"
)

// Supported reports whether p is one of the providers OAuth connect works
// with.
func (p Provider) Supported() bool {
	return p == ProviderGarmin || p == ProviderFitbit
}

// TokenSource supplies the current bearer token, or "" when signed out.
type TokenSource interface {
	BearerToken(ctx context.Context) string
}

type SubscribeRequest struct {
	Email    string   `json:"email"`
	Name     string   `json:"name,omitempty"`
	Timezone string   `json:"timezone,omitempty"`
	Goals    []string `json:"goals,omitempty"`
}

type SubscribeResult struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
	IsNew   bool   `json:"isNew"`
}

type MagicLinkResult struct {
	Message string `json:"message"`
}

// VerifiedUser is the normalized user payload of a verification response,
// whichever wire shape it arrived in.
type VerifiedUser struct {
	ID             string
	Email          string
	Name           string
	OnboardingDone bool
}

type VerifyResult struct {
	Token string
	User  VerifiedUser
}

type Connection struct {
	Provider    string            `json:"provider"`
	Status      string            `json:"status"`
	ConnectedAt string            `json:"connectedAt,omitempty"`
	LastSync    string            `json:"lastSync,omitempty"`
	Health      *ConnectionHealth `json:"health,omitempty"`
}

type ConnectionHealth struct {
	Status  string `json:"status"`
	Details string `json:"details,omitempty"`
}

// Connected reports whether the server considers this integration live.
func (c Connection) Connected() bool { return c.Status == "connected" }

type Me struct {
	ID              string       `json:"id"`
	Email           string       `json:"email"`
	Name            string       `json:"name,omitempty"`
	Timezone        string       `json:"timezone,omitempty"`
	Goals           []string     `json:"goals"`
	NewsletterOptIn bool         `json:"newsletterOptIn"`
	OnboardingDone  bool         `json:"onboardingDone"`
	Connections     []Connection `json:"connections"`
}

// ProfileUpdate carries a partial profile patch; nil fields are omitted.
type ProfileUpdate struct {
	Name            *string  `json:"name,omitempty"`
	Timezone        *string  `json:"timezone,omitempty"`
	Goals           []string `json:"goals,omitempty"`
	NotifyAt        *string  `json:"notifyAt,omitempty"`
	NewsletterOptIn *bool    `json:"newsletterOptIn,omitempty"`
	OnboardingDone  *bool    `json:"onboardingDone,omitempty"`
}

type SyncWindow struct {
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

type SyncResult struct {
	Message  string `json:"message"`
	Provider string `json:"provider"`
}

// RangeQuery filters the read-only aggregate endpoints.
type RangeQuery struct {
	Provider  string
	StartDate string
	EndDate   string
	Limit     int
}

type Activity struct {
	ID           string  `json:"id"`
	Provider     string  `json:"provider"`
	StartTime    string  `json:"startTime"`
	Duration     float64 `json:"duration"`
	Type         string  `json:"type"`
	Calories     float64 `json:"calories,omitempty"`
	Distance     float64 `json:"distance,omitempty"`
	AvgHeartRate float64 `json:"avgHeartRate,omitempty"`
	MaxHeartRate float64 `json:"maxHeartRate,omitempty"`
}

type ActivityPage struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
}

type Sleep struct {
	ID         string  `json:"id"`
	Provider   string  `json:"provider"`
	Date       string  `json:"date"`
	Duration   float64 `json:"duration"`
	Quality    float64 `json:"quality,omitempty"`
	DeepSleep  float64 `json:"deepSleep,omitempty"`
	LightSleep float64 `json:"lightSleep,omitempty"`
	RemSleep   float64 `json:"remSleep,omitempty"`
	Awake      float64 `json:"awake,omitempty"`
}

type SleepPage struct {
	Sleep []Sleep `json:"sleep"`
	Total int     `json:"total"`
}

type Daily struct {
	ID               string  `json:"id"`
	Provider         string  `json:"provider"`
	Date             string  `json:"date"`
	Steps            float64 `json:"steps,omitempty"`
	Calories         float64 `json:"calories,omitempty"`
	Distance         float64 `json:"distance,omitempty"`
	ActiveMinutes    float64 `json:"activeMinutes,omitempty"`
	RestingHeartRate float64 `json:"restingHeartRate,omitempty"`
}

type DailyPage struct {
	Dailies []Daily `json:"dailies"`
	Total   int     `json:"total"`
}

type Summary struct {
	Period     string   `json:"period"`
	Providers  []string `json:"providers"`
	Activities struct {
		Count         int     `json:"count"`
		TotalDuration float64 `json:"totalDuration"`
		TotalCalories float64 `json:"totalCalories"`
		TotalDistance float64 `json:"totalDistance"`
	} `json:"activities"`
	Sleep struct {
		Count       int     `json:"count"`
		AvgDuration float64 `json:"avgDuration"`
		AvgQuality  float64 `json:"avgQuality,omitempty"`
	} `json:"sleep"`
	Dailies struct {
		AvgSteps         float64 `json:"avgSteps"`
		AvgCalories      float64 `json:"avgCalories"`
		AvgActiveMinutes float64 `json:"avgActiveMinutes"`
	} `json:"dailies"`
}

// Client is the typed surface of the BriefPulse REST API.
type Client interface {
	Subscribe(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error)
	Unsubscribe(ctx context.Context, email string) error
	RequestMagicLink(ctx context.Context, email, name string) (*MagicLinkResult, error)
	VerifyMagicLink(ctx context.Context, token string) (*VerifyResult, error)
	GetMe(ctx context.Context) (*Me, error)
	UpdateProfile(ctx context.Context, patch ProfileUpdate) (*Me, error)

	// OAuthConnectURL builds the browser redirect target for connecting a
	// device. Pure and synchronous; the token rides in a query parameter
	// because the redirect leaves our ability to set headers.
	OAuthConnectURL(ctx context.Context, provider Provider) string

	DisconnectDevice(ctx context.Context, provider Provider) error
	GetConnections(ctx context.Context, forceRefresh bool) ([]Connection, error)
	TriggerSync(ctx context.Context, provider Provider, window *SyncWindow) (*SyncResult, error)
	TriggerBackfill(ctx context.Context, provider Provider, daysBack int) (*SyncResult, error)

	GetActivities(ctx context.Context, q RangeQuery) (*ActivityPage, error)
	GetSleep(ctx context.Context, q RangeQuery) (*SleepPage, error)
	GetDailies(ctx context.Context, q RangeQuery) (*DailyPage, error)
	GetSummary(ctx context.Context, provider string, days int) (*Summary, error)
}
