package domain

import "time"

// AuthCode is a single-use SSO authorization code bound to an existing
// session. It is the bearer credential a subdomain client trades for the
// session token.
type AuthCode struct {
	Code        string     `json:"code"`         // High-entropy random value, URL-safe
	UserID      string     `json:"user_id"`      // Subject the code was minted for
	BoundToken  string     `json:"bound_token"`  // Session token released on exchange
	ClientID    string     `json:"client_id"`    // Requesting client application
	RedirectURI string     `json:"redirect_uri"` // Destination validated at mint time
	ExpiresAt   time.Time  `json:"expires_at"`   // Mint time + code TTL
	UsedAt      *time.Time `json:"used_at"`      // Nil until the single successful exchange
	CreatedAt   time.Time  `json:"created_at"`
}

// Exchangeable reports whether the code can still be redeemed at the given
// instant. The repository enforces the same predicate atomically on
// consumption; this is the in-memory view of it.
func (c *AuthCode) Exchangeable(now time.Time) bool {
	return c.UsedAt == nil && c.ExpiresAt.After(now)
}
