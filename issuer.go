package portal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bfeai/portal/domain"
	ssoerrors "github.com/bfeai/portal/errors"
	"github.com/bfeai/portal/internal/audit"
)

// codeEntropyBytes is the raw entropy behind each authorization code.
const codeEntropyBytes = 32

// CodeGrant is the issuer's response: the minted code and its validity
// window in seconds.
type CodeGrant struct {
	Code      string `json:"code"`
	ExpiresIn int    `json:"expires_in"`
}

// CodeIssuer mints single-use authorization codes bound to an existing
// session, scoped to one downstream client and redirect target.
type CodeIssuer struct {
	repo     domain.AuthCodeRepository
	registry *domain.ClientRegistry
	ttl      time.Duration
}

// NewCodeIssuer creates a new issuer. ttl is the code validity window.
func NewCodeIssuer(repo domain.AuthCodeRepository, registry *domain.ClientRegistry, ttl time.Duration) *CodeIssuer {
	return &CodeIssuer{repo: repo, registry: registry, ttl: ttl}
}

// GenerateCode validates the client and redirect target, then mints and
// persists a code bound to the caller's session. The session itself has
// already been verified by the HTTP layer.
func (s *CodeIssuer) GenerateCode(ctx context.Context, claims *domain.SessionClaims, boundToken, clientID, redirectURI string) (*CodeGrant, error) {
	if s.registry.Get(clientID) == nil {
		return nil, ssoerrors.NewInvalidClient("Unknown client_id")
	}
	if !s.registry.ValidateRedirectURI(clientID, redirectURI) {
		return nil, ssoerrors.NewInvalidRedirect()
	}

	codeValue, err := generateAuthCode()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate authorization code")
		return nil, ssoerrors.NewServerError("Failed to generate authorization code")
	}

	code := &domain.AuthCode{
		Code:        codeValue,
		UserID:      claims.UserID,
		BoundToken:  boundToken,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		ExpiresAt:   time.Now().UTC().Add(s.ttl),
	}
	if err := s.repo.SaveAuthCode(ctx, code); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to persist authorization code")
		return nil, ssoerrors.NewServerError("Failed to persist authorization code")
	}

	audit.Log(audit.ActionCodeGenerated, claims.UserID, clientID, redirectURI,
		fmt.Sprintf("expires_in=%ds", int(s.ttl.Seconds())), true, nil)

	return &CodeGrant{Code: codeValue, ExpiresIn: int(s.ttl.Seconds())}, nil
}

// generateAuthCode returns a URL-safe code with codeEntropyBytes of
// cryptographic randomness.
func generateAuthCode() (string, error) {
	buf := make([]byte, codeEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
