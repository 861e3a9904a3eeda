package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/briefpulse/briefpulse/internal/logging"
	"github.com/sethvargo/go-retry"
)

const retryBaseDelay = 250 * time.Millisecond

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	baseURL  string
	http     *http.Client
	tokens   TokenSource
	retryMax int
	log      logging.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, retryMax int, tokens TokenSource, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &http.Client{Timeout: timeout},
		tokens:   tokens,
		retryMax: retryMax,
		log:      log.With("component", "api"),
	}
}

// call describes one logical request. Idempotent calls may be retried on
// 408/429/5xx; network errors are retried regardless.
type call struct {
	method     string
	path       string
	query      url.Values
	headers    http.Header
	body       any
	authed     bool
	idempotent bool
}

func (c *HTTPClient) do(ctx context.Context, req call, out any) error {
	backoff := retry.WithMaxRetries(uint64(c.retryMax), retry.NewExponential(retryBaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.once(ctx, req, out)
		if err == nil {
			return nil
		}
		if retriable(err, req.idempotent) {
			c.log.Debug(ctx, "retrying request", "method", req.method, "path", req.path, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

func retriable(err error, idempotent bool) bool {
	if IsNetworkError(err) {
		return true
	}
	if !idempotent {
		return false
	}
	apiErr, ok := err.(*Error)
	if !ok {
		return false
	}
	switch {
	case apiErr.Status == http.StatusRequestTimeout, apiErr.Status == http.StatusTooManyRequests:
		return true
	case apiErr.Status >= 500:
		return true
	default:
		return false
	}
}

// once performs a single exchange and normalizes any failure into *Error.
func (c *HTTPClient) once(ctx context.Context, req call, out any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return &Error{Status: 0, Message: fmt.Sprintf("encode request: %v", err)}
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return &Error{Status: 0, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, vs := range req.headers {
		for _, v := range vs {
			httpReq.Header.Set(k, v)
		}
	}
	if req.authed {
		if token := c.tokens.BearerToken(ctx); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.log.Debug(ctx, "api request", "method", req.method, "url", target, "authed", req.authed)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &Error{
			Status:       0,
			Message:      "Network error: unable to reach the server",
			NetworkError: true,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{
			Status:       0,
			Message:      "Network error: unable to reach the server",
			NetworkError: true,
		}
	}

	c.log.Debug(ctx, "api response", "status", resp.StatusCode, "method", req.method, "url", target)

	if resp.StatusCode >= 400 {
		return &Error{
			Status:  resp.StatusCode,
			Message: serverMessage(data, resp.StatusCode),
			Body:    data,
		}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return &Error{
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("decode response: %v", err),
				Body:    data,
			}
		}
	}
	return nil
}

// serverMessage extracts the server-provided error message, falling back to
// a bare status line.
func serverMessage(body []byte, status int) string {
	var wire struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &wire); err == nil {
		if wire.Error != "" {
			return wire.Error
		}
		if wire.Message != "" {
			return wire.Message
		}
	}
	return fmt.Sprintf("HTTP %d", status)
}

func (c *HTTPClient) Subscribe(ctx context.Context, req SubscribeRequest) (*SubscribeResult, error) {
	var res SubscribeResult
	err := c.do(ctx, call{method: http.MethodPost, path: "/v1/subscribers", body: req}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) Unsubscribe(ctx context.Context, email string) error {
	q := url.Values{}
	q.Set("email", email)
	return c.do(ctx, call{method: http.MethodDelete, path: "/v1/subscribers", query: q, idempotent: true}, nil)
}

func (c *HTTPClient) RequestMagicLink(ctx context.Context, email, name string) (*MagicLinkResult, error) {
	body := struct {
		Email string `json:"email"`
		Name  string `json:"name,omitempty"`
	}{Email: email, Name: name}

	var res MagicLinkResult
	err := c.do(ctx, call{method: http.MethodPost, path: "/v1/auth/request-link", body: body}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) VerifyMagicLink(ctx context.Context, token string) (*VerifyResult, error) {
	q := url.Values{}
	q.Set("token", token)

	var raw json.RawMessage
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/auth/verify", query: q, idempotent: true}, &raw)
	if err != nil {
		return nil, err
	}
	return parseVerifyResponse(raw)
}

func (c *HTTPClient) GetMe(ctx context.Context) (*Me, error) {
	var res Me
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/auth/me", authed: true, idempotent: true}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) UpdateProfile(ctx context.Context, patch ProfileUpdate) (*Me, error) {
	var res Me
	err := c.do(ctx, call{method: http.MethodPatch, path: "/v1/profile", body: patch, authed: true}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) OAuthConnectURL(ctx context.Context, provider Provider) string {
	q := url.Values{}
	if token := c.tokens.BearerToken(ctx); token != "" {
		q.Set("auth_token", token)
	}
	return fmt.Sprintf("%s/oauth/%s/connect?%s", c.baseURL, provider, q.Encode())
}

func (c *HTTPClient) DisconnectDevice(ctx context.Context, provider Provider) error {
	path := fmt.Sprintf("/oauth/%s/disconnect", provider)
	return c.do(ctx, call{method: http.MethodPost, path: path, authed: true}, nil)
}

func (c *HTTPClient) GetConnections(ctx context.Context, forceRefresh bool) ([]Connection, error) {
	req := call{method: http.MethodGet, path: "/v1/wearables/connections", authed: true, idempotent: true}
	if forceRefresh {
		req.headers = http.Header{}
		req.headers.Set("Cache-Control", "no-cache")
		req.headers.Set("Pragma", "no-cache")
		req.query = url.Values{}
		req.query.Set("_t", strconv.FormatInt(time.Now().UnixMilli(), 10))
	}

	var res struct {
		Connections []Connection `json:"connections"`
	}
	if err := c.do(ctx, req, &res); err != nil {
		return nil, err
	}
	return res.Connections, nil
}

func (c *HTTPClient) TriggerSync(ctx context.Context, provider Provider, window *SyncWindow) (*SyncResult, error) {
	path := fmt.Sprintf("/v1/wearables/%s/sync", provider)
	var body any
	if window != nil {
		body = window
	}

	var res SyncResult
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: body, authed: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) TriggerBackfill(ctx context.Context, provider Provider, daysBack int) (*SyncResult, error) {
	path := fmt.Sprintf("/v1/wearables/%s/backfill", provider)
	var body any
	if daysBack > 0 {
		body = struct {
			DaysBack int `json:"daysBack"`
		}{DaysBack: daysBack}
	}

	var res SyncResult
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: body, authed: true}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func rangeQuery(q RangeQuery) url.Values {
	values := url.Values{}
	if q.Provider != "" {
		values.Set("provider", q.Provider)
	}
	if q.StartDate != "" {
		values.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		values.Set("endDate", q.EndDate)
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	return values
}

func (c *HTTPClient) GetActivities(ctx context.Context, q RangeQuery) (*ActivityPage, error) {
	var res ActivityPage
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/wearables/activities", query: rangeQuery(q), authed: true, idempotent: true}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) GetSleep(ctx context.Context, q RangeQuery) (*SleepPage, error) {
	var res SleepPage
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/wearables/sleep", query: rangeQuery(q), authed: true, idempotent: true}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) GetDailies(ctx context.Context, q RangeQuery) (*DailyPage, error) {
	var res DailyPage
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/wearables/dailies", query: rangeQuery(q), authed: true, idempotent: true}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) GetSummary(ctx context.Context, provider string, days int) (*Summary, error) {
	q := url.Values{}
	if provider != "" {
		q.Set("provider", provider)
	}
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}

	var res Summary
	err := c.do(ctx, call{method: http.MethodGet, path: "/v1/wearables/summary", query: q, authed: true, idempotent: true}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

var _ Client = (*HTTPClient)(nil)
