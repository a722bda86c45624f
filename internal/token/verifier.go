package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bfeai/portal/domain"
)

var ErrInvalidToken = errors.New("invalid session token")

// Verifier checks session tokens issued by the managed auth backend. The
// backend signs with HS256 and a shared secret; this service never mints
// tokens, only verifies them.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates tokenStr and extracts the claims the SSO
// protocol needs. Expired or signature-invalid tokens yield ErrInvalidToken.
func (v *Verifier) Verify(tokenStr string) (*domain.SessionClaims, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, ErrInvalidToken
	}

	sc := &domain.SessionClaims{UserID: sub}
	if email, ok := claims["email"].(string); ok {
		sc.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		sc.Role = role
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		sc.Exp = exp.Time
	}
	return sc, nil
}

// Mint issues a session token. Only the test suite and local tooling use it;
// production tokens come from the auth backend.
func (v *Verifier) Mint(userID, email, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"exp":   time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
