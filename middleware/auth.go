package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bfeai/portal/domain"
	ssoerrors "github.com/bfeai/portal/errors"
)

const (
	claimsContextKey = "session_claims"
	tokenContextKey  = "session_token"
)

// SessionAuth verifies the session cookie against the signing service and
// stashes the claims and raw token on the request context. Requests without
// a valid session are rejected with 401 before the handler runs.
func SessionAuth(verifier domain.TokenVerifier, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, ssoerrors.NewUnauthenticated("No session cookie"))
			}

			claims, err := verifier.Verify(cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, ssoerrors.NewUnauthenticated("Invalid session"))
			}

			c.Set(claimsContextKey, claims)
			c.Set(tokenContextKey, cookie.Value)

			return next(c)
		}
	}
}

// SessionFromContext returns the verified claims and raw token placed on the
// context by SessionAuth, or nil/"" when the middleware did not run.
func SessionFromContext(c echo.Context) (*domain.SessionClaims, string) {
	claims, _ := c.Get(claimsContextKey).(*domain.SessionClaims)
	token, _ := c.Get(tokenContextKey).(string)
	return claims, token
}
