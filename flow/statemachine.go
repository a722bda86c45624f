// Package flow drives the cross-domain login choreography from the browser
// side. The hosting edge strips Set-Cookie from redirect responses, so a
// single server redirect cannot both commit cookies and navigate. Instead
// the client walks an explicit state machine: two plain JSON requests commit
// the cookies, then the client performs the provider navigation itself.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	portal "github.com/bfeai/portal"
)

// State names one step of the choreography.
type State string

const (
	StateLoading       State = "loading"
	StateSettingCookie State = "setting-cookie"
	StateRedirecting   State = "redirecting"
	StateDone          State = "done"
	StateError         State = "error"
)

// FallbackDelay is how long the error state lingers before the fallback
// navigation to the login page.
const FallbackDelay = 3 * time.Second

// Result is the terminal outcome of a run. Exactly one of ProviderURL and
// FallbackURL is set: the URL the browser must navigate to next.
type Result struct {
	ProviderURL string
	FallbackURL string
	Delay       time.Duration // Wait before navigating, nonzero only on fallback
}

// Client executes the choreography against the portal API. The supplied
// http.Client must carry a cookie jar, since the whole point is accumulating
// cookies across the plain responses.
type Client struct {
	base     string
	loginURL string
	httpc    *http.Client

	state State

	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// New creates a choreography client. base is the portal API origin, loginURL
// the fallback destination on error.
func New(base, loginURL string, httpc *http.Client) *Client {
	return &Client{base: base, loginURL: loginURL, httpc: httpc, state: StateLoading}
}

// State returns the machine's current state.
func (f *Client) State() State {
	return f.state
}

func (f *Client) transition(to State) {
	from := f.state
	f.state = to
	if f.OnTransition != nil {
		f.OnTransition(from, to)
	}
}

// Run walks loading → setting-cookie → redirecting → done. Any failure moves
// to error, and the result carries the delayed fallback login URL instead of
// a provider URL. The returned error describes the failing step; the Result
// is valid either way.
func (f *Client) Run(ctx context.Context, provider, redirect string) (*Result, error) {
	if provider != portal.ProviderGoogle && provider != portal.ProviderGithub {
		return f.fail(fmt.Errorf("unsupported provider %q", provider))
	}

	f.transition(StateSettingCookie)
	if err := f.setRedirectCookie(ctx, redirect); err != nil {
		return f.fail(fmt.Errorf("setting-cookie step failed: %w", err))
	}

	f.transition(StateRedirecting)
	providerURL, err := f.fetchOAuthURL(ctx, provider)
	if err != nil {
		return f.fail(fmt.Errorf("redirecting step failed: %w", err))
	}

	f.transition(StateDone)
	return &Result{ProviderURL: providerURL}, nil
}

func (f *Client) fail(err error) (*Result, error) {
	f.transition(StateError)
	fallback := f.loginURL
	if u, parseErr := url.Parse(f.loginURL); parseErr == nil {
		q := u.Query()
		q.Set("error", "sso_failed")
		u.RawQuery = q.Encode()
		fallback = u.String()
	}
	return &Result{FallbackURL: fallback, Delay: FallbackDelay}, err
}

func (f *Client) setRedirectCookie(ctx context.Context, redirect string) error {
	body, err := json.Marshal(map[string]string{"redirect": redirect})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.base+"/api/auth/set-redirect-cookie", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (f *Client) fetchOAuthURL(ctx context.Context, provider string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		f.base+"/api/auth/oauth-url?provider="+url.QueryEscape(provider), nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&payload); err != nil {
		return "", err
	}
	if payload.URL == "" {
		return "", fmt.Errorf("empty provider URL in response")
	}
	return payload.URL, nil
}
