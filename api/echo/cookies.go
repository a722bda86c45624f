package echo

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	ssoerrors "github.com/bfeai/portal/errors"
)

// Cookie names shared across the subdomain family.
const (
	sessionCookieName  = "bfe_session"
	redirectCookieName = "bfe_auth_redirect"
	stateCookieName    = "bfe_oauth_state"
	verifierCookieName = "bfe_pkce_verifier"
)

// redirectCookieMaxAge bounds the redirect-intent cookie. Minutes, not days:
// it only has to survive one provider round-trip.
const redirectCookieMaxAge = 600

// CookieWriter emits a Set-Cookie header directly on a response. The edge
// platform strips cookies from redirect responses, so every cookie in the
// SSO choreography goes out on a plain JSON response through this interface
// instead of a framework redirect helper.
type CookieWriter interface {
	WriteCookie(h http.Header, cookie *http.Cookie)
}

// HeaderCookieWriter builds the Set-Cookie header by hand.
type HeaderCookieWriter struct{}

// WriteCookie implements CookieWriter.
func (HeaderCookieWriter) WriteCookie(h http.Header, cookie *http.Cookie) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", cookie.Name, cookie.Value)
	if cookie.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", cookie.Path)
	}
	if cookie.Domain != "" {
		fmt.Fprintf(&b, "; Domain=%s", cookie.Domain)
	}
	if cookie.MaxAge > 0 {
		fmt.Fprintf(&b, "; Max-Age=%d", cookie.MaxAge)
	}
	if cookie.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	if cookie.Secure {
		b.WriteString("; Secure")
	}
	if cookie.SameSite == http.SameSiteLaxMode {
		b.WriteString("; SameSite=Lax")
	}
	h.Add("Set-Cookie", b.String())
}

var cookieWriter CookieWriter = HeaderCookieWriter{}

// secureCookies reports whether the Secure attribute must be set for this
// request: always in production, otherwise only when actually served over TLS.
func (a *SSOAPI) secureCookies(c echo.Context) bool {
	return a.cookies.Production || c.Request().TLS != nil || c.Scheme() == "https"
}

type setRedirectRequest struct {
	Redirect string `json:"redirect"`
}

// SetRedirectCookieHandler stores the desired post-login destination in a
// short-lived cookie. Plain 200 response so the cookie survives the edge.
func (a *SSOAPI) SetRedirectCookieHandler(c echo.Context) error {
	var req setRedirectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("Malformed request body"))
	}

	if !a.validRedirectTarget(req.Redirect) {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRedirect())
	}

	cookieWriter.WriteCookie(c.Response().Header(), &http.Cookie{
		Name:     redirectCookieName,
		Value:    url.QueryEscape(req.Redirect),
		Path:     "/api/auth",
		MaxAge:   redirectCookieMaxAge,
		HttpOnly: true,
		Secure:   a.secureCookies(c),
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// validRedirectTarget accepts a relative path or an absolute http(s) URL on
// the trusted parent domain. Everything else is rejected without detail.
func (a *SSOAPI) validRedirectTarget(redirect string) bool {
	if redirect == "" {
		return false
	}
	if strings.HasPrefix(redirect, "/") {
		// Refuse protocol-relative URLs masquerading as paths.
		return !strings.HasPrefix(redirect, "//")
	}
	u, err := url.Parse(redirect)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	suffix := strings.TrimPrefix(a.cookies.Domain, ".")
	return u.Hostname() == suffix || strings.HasSuffix(u.Hostname(), "."+suffix)
}

// OAuthURLHandler prepares the upstream OAuth handshake and returns the
// provider's authorization URL as JSON. The PKCE verifier and state nonce
// ride along as flow cookies on this same plain response; the browser does
// the navigation itself once they are committed.
func (a *SSOAPI) OAuthURLHandler(c echo.Context) error {
	provider := c.QueryParam("provider")
	if !a.initiator.SupportsProvider(provider) {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("Unsupported provider"))
	}

	redirect := ""
	if rc, err := c.Cookie(redirectCookieName); err == nil {
		if unescaped, err := url.QueryUnescape(rc.Value); err == nil {
			redirect = unescaped
		}
	}

	initiation, err := a.initiator.Initiate(provider, redirect)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ssoerrors.NewServerError("Failed to initiate OAuth flow"))
	}

	secure := a.secureCookies(c)
	for name, value := range map[string]string{
		stateCookieName:    initiation.State,
		verifierCookieName: initiation.PKCEVerifier,
	} {
		cookieWriter.WriteCookie(c.Response().Header(), &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/api/auth",
			MaxAge:   redirectCookieMaxAge,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"url": initiation.URL})
}

type setSessionRequest struct {
	Token string `json:"token"`
}

// SetSessionCookieHandler persists a session token as the cross-subdomain
// session cookie. The token is re-verified with the signing service first;
// nothing is set when verification fails.
func (a *SSOAPI) SetSessionCookieHandler(c echo.Context) error {
	var req setSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("Malformed request body"))
	}
	if req.Token == "" {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("token is required"))
	}

	if _, err := a.verifier.Verify(req.Token); err != nil {
		return c.JSON(http.StatusUnauthorized, ssoerrors.NewUnauthenticated("Invalid session token"))
	}

	cookieWriter.WriteCookie(c.Response().Header(), &http.Cookie{
		Name:     sessionCookieName,
		Value:    req.Token,
		Path:     "/",
		Domain:   a.cookies.Domain,
		MaxAge:   a.cookies.MaxAge,
		HttpOnly: true,
		Secure:   a.secureCookies(c),
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
