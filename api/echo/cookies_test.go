package echo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestSetRedirectCookie_AcceptsPathAndTrustedURL(t *testing.T) {
	env := newTestEnv(t, false)

	cases := []string{
		"/dashboard",
		"/",
		"https://keywords.bfeai.com/after-login",
		"http://bfeai.com/",
	}
	for _, redirect := range cases {
		body, err := json.Marshal(map[string]string{"redirect": redirect})
		require.NoError(t, err)
		rec := env.do(jsonRequest(http.MethodPost, "/api/auth/set-redirect-cookie", string(body)))
		assert.Equal(t, http.StatusOK, rec.Code, "redirect %q should be accepted", redirect)

		cookie := findCookie(rec, redirectCookieName)
		require.NotNil(t, cookie, "redirect %q should set the cookie", redirect)
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/api/auth", cookie.Path)
		assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
		assert.Equal(t, redirectCookieMaxAge, cookie.MaxAge)
	}
}

func TestSetRedirectCookie_RejectsUntrustedTargets(t *testing.T) {
	env := newTestEnv(t, false)

	cases := []string{
		"",
		"//evil.example.com/phish",
		"https://evil.example.com/",
		"https://bfeai.com.evil.example.com/",
		"javascript:alert(1)",
		"ftp://bfeai.com/",
		"dashboard", // Relative but not rooted
	}
	for _, redirect := range cases {
		body, err := json.Marshal(map[string]string{"redirect": redirect})
		require.NoError(t, err)
		rec := env.do(jsonRequest(http.MethodPost, "/api/auth/set-redirect-cookie", string(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "redirect %q should be rejected", redirect)
		assert.Nil(t, findCookie(rec, redirectCookieName), "redirect %q must not set a cookie", redirect)
	}
}

func TestOAuthURL_ReturnsProviderURLWithFlowCookies(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/auth/oauth-url?provider=google", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Contains(t, payload.URL, "accounts.google.com")
	assert.Contains(t, payload.URL, "code_challenge_method=S256")

	// PKCE verifier and state nonce ride on this plain response.
	state := findCookie(rec, stateCookieName)
	require.NotNil(t, state)
	assert.True(t, state.HttpOnly)

	verifier := findCookie(rec, verifierCookieName)
	require.NotNil(t, verifier)
	assert.True(t, verifier.HttpOnly)
	assert.NotEmpty(t, verifier.Value)
}

func TestOAuthURL_InvalidProvider(t *testing.T) {
	env := newTestEnv(t, false)

	for _, provider := range []string{"", "gitlab", "GOOGLE"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/auth/oauth-url?provider="+provider, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "provider %q should be rejected", provider)
	}
}

func TestSetSessionCookie_Success(t *testing.T) {
	env := newTestEnv(t, false)
	tok := env.sessionToken(t)

	body, err := json.Marshal(map[string]string{"token": tok})
	require.NoError(t, err)
	rec := env.do(jsonRequest(http.MethodPost, "/api/auth/set-session-cookie", string(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := findCookie(rec, sessionCookieName)
	require.NotNil(t, cookie)
	assert.Equal(t, tok, cookie.Value)
	assert.Equal(t, "bfeai.com", cookie.Domain) // net/http strips the leading dot on parse
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 7*24*3600, cookie.MaxAge)
	assert.False(t, cookie.Secure, "plain http request outside production")
}

func TestSetSessionCookie_SecureInProduction(t *testing.T) {
	env := newTestEnv(t, true)
	tok := env.sessionToken(t)

	body, err := json.Marshal(map[string]string{"token": tok})
	require.NoError(t, err)
	rec := env.do(jsonRequest(http.MethodPost, "/api/auth/set-session-cookie", string(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := findCookie(rec, sessionCookieName)
	require.NotNil(t, cookie)
	assert.True(t, cookie.Secure)
}

func TestSetSessionCookie_RejectsInvalidToken(t *testing.T) {
	env := newTestEnv(t, false)

	// Missing token.
	rec := env.do(jsonRequest(http.MethodPost, "/api/auth/set-session-cookie", `{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "no Set-Cookie on rejection")

	// Syntactically invalid token.
	rec = env.do(jsonRequest(http.MethodPost, "/api/auth/set-session-cookie", `{"token":"garbage"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())

	// Expired token fails verification too.
	expired, err := env.verifier.Mint("user-1", "user@bfeai.com", "member", -time.Minute)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{"token": expired})
	require.NoError(t, err)
	rec = env.do(jsonRequest(http.MethodPost, "/api/auth/set-session-cookie", string(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestHeaderCookieWriter_ManualHeader(t *testing.T) {
	h := http.Header{}
	HeaderCookieWriter{}.WriteCookie(h, &http.Cookie{
		Name:     "bfe_session",
		Value:    "v",
		Path:     "/",
		Domain:   ".bfeai.com",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	raw := h.Get("Set-Cookie")
	assert.Equal(t, "bfe_session=v; Path=/; Domain=.bfeai.com; Max-Age=60; HttpOnly; Secure; SameSite=Lax", raw)
}
