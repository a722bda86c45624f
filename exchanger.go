package portal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/bfeai/portal/domain"
	ssoerrors "github.com/bfeai/portal/errors"
	"github.com/bfeai/portal/internal/audit"
)

// ExchangeResult is the exchanger's response: the session token the code was
// bound to and the redirect target validated at mint time.
type ExchangeResult struct {
	Token       string `json:"token"`
	RedirectURI string `json:"redirect_uri"`
}

// CodeExchanger lets a downstream client trade a short-lived code for the
// session token, authenticating itself via a pre-shared secret. Redemption
// is at-most-once: the repository's conditional update is the sole
// serialization point.
type CodeExchanger struct {
	repo     domain.AuthCodeRepository
	registry *domain.ClientRegistry
}

// NewCodeExchanger creates a new exchanger.
func NewCodeExchanger(repo domain.AuthCodeRepository, registry *domain.ClientRegistry) *CodeExchanger {
	return &CodeExchanger{repo: repo, registry: registry}
}

// Exchange authenticates the client and redeems the code. Unknown, consumed
// and expired codes are indistinguishable to the caller.
func (s *CodeExchanger) Exchange(ctx context.Context, codeValue, clientID, clientSecret string) (*ExchangeResult, error) {
	cli := s.registry.Get(clientID)
	if cli == nil {
		return nil, ssoerrors.NewInvalidClient("Unknown client_id")
	}
	if !cli.HasSecret() {
		// Deployment error, not a caller error.
		log.Error().Str("client_id", clientID).Msg("No client secret configured for known client")
		return nil, ssoerrors.NewClientNotConfigured()
	}
	if !cli.VerifySecret(clientSecret) {
		return nil, ssoerrors.NewInvalidCredentials()
	}
	if codeValue == "" {
		return nil, ssoerrors.NewInvalidRequest("code is required")
	}

	code, err := s.repo.ConsumeAuthCode(ctx, codeValue, clientID)
	if err != nil {
		if errors.Is(err, domain.ErrCodeNotExchangeable) {
			audit.Log(audit.ActionExchangeDenied, "", clientID, "",
				"code missing, already used, or expired", false, err)
			return nil, ssoerrors.NewInvalidGrant()
		}
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to consume authorization code")
		return nil, ssoerrors.NewServerError("Failed to exchange authorization code")
	}

	audit.Log(audit.ActionCodeExchanged, code.UserID, clientID, code.RedirectURI, "", true, nil)

	return &ExchangeResult{Token: code.BoundToken, RedirectURI: code.RedirectURI}, nil
}
