package portal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// PKCEPair is a locally generated verifier and its S256 challenge. The
// verifier stays on the browser in an HttpOnly cookie; only the challenge
// travels to the identity provider.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// GeneratePKCE creates a fresh verifier/challenge pair for an upstream OAuth
// authorization request.
func GeneratePKCE() (*PKCEPair, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	verifier := base64.RawURLEncoding.EncodeToString(buf)
	return &PKCEPair{Verifier: verifier, Challenge: ChallengeS256(verifier)}, nil
}

// ChallengeS256 derives the S256 code challenge for a verifier.
func ChallengeS256(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// ValidatePKCEChallenge reports whether verifier satisfies the stored
// challenge under the S256 method.
func ValidatePKCEChallenge(challenge, verifier string) bool {
	return challenge == ChallengeS256(verifier)
}
