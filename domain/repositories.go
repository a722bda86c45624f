package domain

import (
	"context"
	"errors"
)

// ErrCodeNotExchangeable is returned by ConsumeAuthCode when no row matched
// the conditional update: the code is unknown, already used, expired, or was
// minted for a different client. Callers must not distinguish these cases.
var ErrCodeNotExchangeable = errors.New("authorization code not exchangeable")

// AuthCodeRepository persists SSO authorization codes. Each code's lifecycle
// touches exactly one row: one insert at mint, one conditional update at
// redemption.
type AuthCodeRepository interface {
	// SaveAuthCode inserts a freshly minted code.
	SaveAuthCode(ctx context.Context, code *AuthCode) error

	// ConsumeAuthCode atomically marks the code used and returns it, iff it
	// matches clientID, is unused and unexpired. Two concurrent calls for the
	// same code must not both succeed; losers get ErrCodeNotExchangeable.
	ConsumeAuthCode(ctx context.Context, code, clientID string) (*AuthCode, error)

	// DeleteExpiredAuthCodes removes codes past their expiry. Housekeeping
	// only; expiry alone already renders a code unusable.
	DeleteExpiredAuthCodes(ctx context.Context) error
}
