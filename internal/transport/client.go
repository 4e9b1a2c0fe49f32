// Package transport owns bearer-token attachment and the refresh-and-retry
// protocol around every backend call. Callers see one call resolve once; the
// credential detour stays invisible unless the session itself is dead.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/picosretail/pos-terminal/internal/session"
	"github.com/picosretail/pos-terminal/pkg/config"
	pkgerrors "github.com/picosretail/pos-terminal/pkg/errors"
	"github.com/picosretail/pos-terminal/pkg/logger"
)

const refreshPath = "/api/v1/auth/refresh-token"

// Request describes one outbound call. Exactly one of JSONBody and Form may
// be set.
type Request struct {
	Method         string
	Path           string
	Query          url.Values
	JSONBody       any
	Form           url.Values
	NoAuth         bool
	IdempotencyKey string
}

// SessionScopeClearer wipes the session-scoped persisted keys on forced
// logout. *state.Store satisfies it.
type SessionScopeClearer interface {
	ClearSessionScoped(ctx context.Context) error
}

// Client is the authenticated HTTP client shared by every API binding.
type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
	scope   SessionScopeClearer
	logg    *logger.Logger

	// Concurrent 401s coalesce into one refresh call instead of N.
	refreshGroup singleflight.Group

	onSessionExpired func()
}

// Option tweaks client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithSessionExpiredHook registers the force-relogin callback fired when a
// refresh fails irrecoverably.
func WithSessionExpiredHook(fn func()) Option {
	return func(c *Client) { c.onSessionExpired = fn }
}

func New(cfg config.APIConfig, store session.Store, scope SessionScopeClearer, logg *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		store:   store,
		scope:   scope,
		logg:    logg,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes the request, decoding a JSON response into out when out is
// non-nil. An authorization denial caused by token expiry triggers at most
// one refresh-and-retry; the retry decision is a local value here, never a
// mutation of the request.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	retried := false
	for {
		resp, err := c.send(ctx, req)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "request failed")
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return decodeBody(resp, out)
		}

		apiErr := pkgerrors.FromResponse(resp)
		resp.Body.Close()

		if req.NoAuth || retried || !pkgerrors.IsTokenExpiry(apiErr) {
			return apiErr
		}

		retried = true
		c.logg.Debug(ctx, "access token rejected, attempting refresh")
		if refreshErr := c.RefreshNow(ctx); refreshErr != nil {
			// Callers get the refresh error, not the original 401, so they
			// can tell "session died" from "this call failed".
			return refreshErr
		}
	}
}

// RefreshNow exchanges the held refresh token for a new credential pair.
// Concurrent callers share one network call. Any failure tears the session
// down: credentials and session-scoped state are cleared and the expired
// hook fires.
func (c *Client) RefreshNow(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

func (c *Client) refresh(ctx context.Context) error {
	creds, held := c.store.Get()
	if !held || creds.RefreshToken == "" {
		c.teardown(ctx)
		return pkgerrors.New(pkgerrors.CodeSessionExpired, "no refresh token held")
	}

	payload, err := json.Marshal(map[string]string{"refresh_token": creds.RefreshToken})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding refresh payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+refreshPath, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building refresh request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.teardown(ctx)
		return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, err, "session refresh failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := pkgerrors.FromResponse(resp)
		c.teardown(ctx)
		return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, apiErr, "session refresh rejected")
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		c.teardown(ctx)
		return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, err, "decoding refresh response")
	}

	if err := c.store.Set(ctx, session.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Username:     creds.Username,
	}); err != nil {
		c.teardown(ctx)
		return pkgerrors.Wrap(pkgerrors.CodeSessionExpired, err, "replacing credentials")
	}

	c.logg.Debug(ctx, "credential pair replaced")
	return nil
}

// teardown clears every trace of the session and signals for re-login. Runs
// inside the singleflighted refresh, so one burst of failing requests ends
// in exactly one teardown.
func (c *Client) teardown(ctx context.Context) {
	_, held := c.store.Get()

	if err := c.store.Clear(ctx); err != nil {
		c.logg.Error(ctx, "clearing credentials", err)
	}
	if c.scope != nil {
		if err := c.scope.ClearSessionScoped(ctx); err != nil {
			c.logg.Error(ctx, "clearing session state", err)
		}
	}

	if held && c.onSessionExpired != nil {
		c.onSessionExpired()
	}
}

func (c *Client) send(ctx context.Context, req Request) (*http.Response, error) {
	endpoint := c.baseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		body = strings.NewReader(req.Form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case req.JSONBody != nil:
		payload, err := json.Marshal(req.JSONBody)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	if !req.NoAuth {
		if creds, held := c.store.Get(); held && creds.AccessToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+creds.AccessToken)
		}
	}

	return c.http.Do(httpReq)
}

func decodeBody(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding response body")
	}
	return nil
}
