package portal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/bfeai/portal/internal/oidcflow"
)

// Supported upstream identity providers.
const (
	ProviderGoogle = "google"
	ProviderGithub = "github"
)

// FlowTTL bounds how long a provider round-trip may take before the
// callback is refused. The flow store's entry TTL derives from it.
const FlowTTL = 10 * time.Minute

// OAuthProvider describes one upstream identity provider's authorization
// endpoint.
type OAuthProvider struct {
	Name     string
	ClientID string
	AuthURL  string
	Scopes   string
}

// OAuthInitiation is everything the browser needs to continue the flow
// itself: the provider URL to navigate to, and the cookie material the JSON
// response must carry.
type OAuthInitiation struct {
	URL          string
	State        string
	PKCEVerifier string
}

// OAuthInitiator prepares upstream OAuth authorization requests. It never
// redirects; the URL is returned as data so the browser performs the
// navigation after the flow cookies are committed.
type OAuthInitiator struct {
	providers   map[string]OAuthProvider
	callbackURL string
	flows       *oidcflow.FlowStore
}

// NewOAuthInitiator creates an initiator over the given provider set.
func NewOAuthInitiator(providers []OAuthProvider, callbackURL string, flows *oidcflow.FlowStore) *OAuthInitiator {
	m := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name] = p
	}
	return &OAuthInitiator{providers: m, callbackURL: callbackURL, flows: flows}
}

// SupportsProvider reports whether name is in the provider enumeration.
func (s *OAuthInitiator) SupportsProvider(name string) bool {
	_, ok := s.providers[name]
	return ok
}

// Initiate builds the provider's authorization URL with a fresh state nonce
// and PKCE challenge, and records the flow server-side with a TTL.
func (s *OAuthInitiator) Initiate(provider, redirectURI string) (*OAuthInitiation, error) {
	p, ok := s.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}

	pkce, err := GeneratePKCE()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PKCE pair: %w", err)
	}

	state, err := generateStateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state nonce: %w", err)
	}

	now := time.Now().UTC()
	s.flows.Store(oidcflow.FlowState{
		State:         state,
		Provider:      provider,
		CodeChallenge: pkce.Challenge,
		RedirectURI:   redirectURI,
		CreatedAt:     now,
		ExpiresAt:     now.Add(FlowTTL),
	})

	q := url.Values{}
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", s.callbackURL)
	q.Set("response_type", "code")
	q.Set("scope", p.Scopes)
	q.Set("state", state)
	q.Set("code_challenge", pkce.Challenge)
	q.Set("code_challenge_method", "S256")

	return &OAuthInitiation{
		URL:          p.AuthURL + "?" + q.Encode(),
		State:        state,
		PKCEVerifier: pkce.Verifier,
	}, nil
}

func generateStateNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
