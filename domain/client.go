package domain

import (
	"crypto/subtle"
	"net/url"
	"regexp"
	"strings"
)

// Client is a downstream portal application allowed to request and redeem
// SSO codes. The set of clients is fixed at deployment time; there is no
// dynamic registration.
type Client struct {
	ID            string
	Secret        string         // Shared secret for code exchange, from config
	RedirectProd  *regexp.Regexp // Allowed redirect targets in production
	RedirectDev   *regexp.Regexp // Additionally allowed outside production
	PostLoginPath string         // Default landing path after SSO completes
}

// KnownClientIDs in the order they appear in portal navigation.
var KnownClientIDs = []string{"keywords", "payments", "admin", "labs"}

// ClientRegistry resolves client IDs against the fixed enumeration.
type ClientRegistry struct {
	clients    map[string]*Client
	production bool
}

// NewClientRegistry builds a registry from the configured clients.
// production controls whether localhost redirect patterns are honored.
func NewClientRegistry(clients []*Client, production bool) *ClientRegistry {
	m := make(map[string]*Client, len(clients))
	for _, c := range clients {
		m[c.ID] = c
	}
	return &ClientRegistry{clients: m, production: production}
}

// Get returns the client for id, or nil if the id is not in the enumeration.
func (r *ClientRegistry) Get(id string) *Client {
	return r.clients[id]
}

// ValidateRedirectURI checks uri against the client's allow-list pattern.
// The production pattern is always consulted; the dev pattern only when the
// deployment is not flagged as production.
func (r *ClientRegistry) ValidateRedirectURI(clientID, uri string) bool {
	c := r.clients[clientID]
	if c == nil || uri == "" {
		return false
	}
	if u, err := url.Parse(uri); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	if c.RedirectProd != nil && c.RedirectProd.MatchString(uri) {
		return true
	}
	if !r.production && c.RedirectDev != nil && c.RedirectDev.MatchString(uri) {
		return true
	}
	return false
}

// VerifySecret compares the supplied secret with the client's configured one
// in constant time. It returns false when the client is unknown or the
// supplied secret is empty.
func (c *Client) VerifySecret(supplied string) bool {
	if c == nil || supplied == "" || c.Secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Secret), []byte(supplied)) == 1
}

// HasSecret reports whether a shared secret was configured for the client.
// A known client without a secret is a deployment error, not a caller error.
func (c *Client) HasSecret() bool {
	return c != nil && strings.TrimSpace(c.Secret) != ""
}
