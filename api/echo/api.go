//nolint:varnamelen
package echo

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	portal "github.com/bfeai/portal"
	"github.com/bfeai/portal/cache"
	"github.com/bfeai/portal/domain"
	ssoerrors "github.com/bfeai/portal/errors"
	"github.com/bfeai/portal/middleware"
)

// CookieSettings carries the deployment-specific cookie parameters.
type CookieSettings struct {
	Domain     string // Parent registrable domain, leading-dot form
	MaxAge     int    // Session cookie lifetime in seconds
	Production bool   // Forces the Secure attribute
}

// AttemptPolicy bounds failed exchange attempts per client and address.
type AttemptPolicy struct {
	Limit  int64
	Window time.Duration
}

// SSOAPI holds the HTTP surface of the code-exchange protocol.
type SSOAPI struct {
	issuer    *portal.CodeIssuer
	exchanger *portal.CodeExchanger
	initiator *portal.OAuthInitiator
	verifier  domain.TokenVerifier
	attempts  cache.AttemptStore
	policy    AttemptPolicy
	cookies   CookieSettings
}

// NewSSOAPI initializes the SSO API.
func NewSSOAPI(
	issuer *portal.CodeIssuer,
	exchanger *portal.CodeExchanger,
	initiator *portal.OAuthInitiator,
	verifier domain.TokenVerifier,
	attempts cache.AttemptStore,
	policy AttemptPolicy,
	cookies CookieSettings,
) *SSOAPI {
	return &SSOAPI{
		issuer:    issuer,
		exchanger: exchanger,
		initiator: initiator,
		verifier:  verifier,
		attempts:  attempts,
		policy:    policy,
		cookies:   cookies,
	}
}

// RegisterRoutes registers the SSO and cookie-choreography routes.
func (a *SSOAPI) RegisterRoutes(e *echo.Echo) {
	sessionAuth := middleware.SessionAuth(a.verifier, sessionCookieName)

	e.POST("/api/sso/generate-code", a.GenerateCodeHandler, sessionAuth)
	e.POST("/api/sso/exchange-code", a.ExchangeCodeHandler)

	e.POST("/api/auth/set-redirect-cookie", a.SetRedirectCookieHandler)
	e.GET("/api/auth/oauth-url", a.OAuthURLHandler)
	e.POST("/api/auth/set-session-cookie", a.SetSessionCookieHandler)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
}

type generateCodeRequest struct {
	ClientID    string `json:"client_id"`
	RedirectURI string `json:"redirect_uri"`
}

// GenerateCodeHandler mints a single-use authorization code for the
// authenticated session. The session cookie has already been verified by the
// SessionAuth middleware.
func (a *SSOAPI) GenerateCodeHandler(c echo.Context) error {
	claims, token := middleware.SessionFromContext(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, ssoerrors.NewUnauthenticated("No valid session"))
	}

	var req generateCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("Malformed request body"))
	}

	// Validation order lives in the issuer: client enumeration before
	// redirect target, so an unknown client is reported as such even when
	// the redirect is also bad.
	grant, err := a.issuer.GenerateCode(c.Request().Context(), claims, token, req.ClientID, req.RedirectURI)
	if err != nil {
		return c.JSON(statusFor(err), err)
	}

	return c.JSON(http.StatusOK, grant)
}

type exchangeCodeRequest struct {
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// ExchangeCodeHandler trades a code for the bound session token. Failed
// credential checks are counted per client and source address; past the
// limit the endpoint refuses further attempts for the window.
func (a *SSOAPI) ExchangeCodeHandler(c echo.Context) error {
	var req exchangeCodeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("Malformed request body"))
	}

	ctx := c.Request().Context()
	attemptKey := fmt.Sprintf("exchange:%s:%s", req.ClientID, c.RealIP())

	if count, err := a.attempts.Get(ctx, attemptKey); err == nil && count >= a.policy.Limit {
		return c.JSON(http.StatusTooManyRequests, ssoerrors.NewTooManyAttempts())
	}

	result, err := a.exchanger.Exchange(ctx, req.Code, req.ClientID, req.ClientSecret)
	if err != nil {
		var ssoErr *ssoerrors.SSOError
		if errors.As(err, &ssoErr) && ssoErr.Code == ssoerrors.InvalidCredentials {
			if _, incErr := a.attempts.Increment(ctx, attemptKey, a.policy.Window); incErr != nil {
				log.Warn().Err(incErr).Msg("Failed to record exchange attempt")
			}
		}
		return c.JSON(statusFor(err), err)
	}

	if err := a.attempts.Clear(ctx, attemptKey); err != nil {
		log.Warn().Err(err).Msg("Failed to clear exchange attempt counter")
	}

	return c.JSON(http.StatusOK, result)
}

// statusFor maps the protocol error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var ssoErr *ssoerrors.SSOError
	if !errors.As(err, &ssoErr) {
		return http.StatusInternalServerError
	}
	switch ssoErr.Code {
	case ssoerrors.Unauthenticated, ssoerrors.InvalidCredentials:
		return http.StatusUnauthorized
	case ssoerrors.InvalidClient, ssoerrors.InvalidRedirect, ssoerrors.InvalidGrant, ssoerrors.InvalidRequest:
		return http.StatusBadRequest
	case ssoerrors.TooManyAttempts:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
