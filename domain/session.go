package domain

import "time"

// SessionClaims is the subset of the externally-issued session token this
// service reads: enough to bind a code to a user and to check expiry. The
// token itself stays opaque and is passed through unmodified.
type SessionClaims struct {
	UserID string
	Email  string
	Role   string
	Exp    time.Time
}

// TokenVerifier validates a session token against the signing service and
// returns its claims. Implementations must reject expired and
// signature-invalid tokens.
type TokenVerifier interface {
	Verify(token string) (*SessionClaims, error)
}
