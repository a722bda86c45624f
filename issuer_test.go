package portal

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bfeai/portal/domain"
	ssoerrors "github.com/bfeai/portal/errors"
)

// --- Mock AuthCodeRepository ---

type MockAuthCodeRepository struct {
	mock.Mock
}

func (m *MockAuthCodeRepository) SaveAuthCode(ctx context.Context, code *domain.AuthCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *MockAuthCodeRepository) ConsumeAuthCode(ctx context.Context, code, clientID string) (*domain.AuthCode, error) {
	args := m.Called(ctx, code, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthCode), args.Error(1)
}

func (m *MockAuthCodeRepository) DeleteExpiredAuthCodes(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func mustPattern(pattern string) *regexp.Regexp {
	return regexp.MustCompile(pattern)
}

func testRegistry(production bool) *domain.ClientRegistry {
	clients := []*domain.Client{
		{
			ID:           "keywords",
			Secret:       "keywords-secret",
			RedirectProd: mustPattern(`^https://keywords\.bfeai\.com(/.*)?$`),
			RedirectDev:  mustPattern(`^https?://localhost(:\d+)?(/.*)?$`),
		},
		{
			ID:           "payments",
			Secret:       "payments-secret",
			RedirectProd: mustPattern(`^https://payments\.bfeai\.com(/.*)?$`),
			RedirectDev:  mustPattern(`^https?://localhost(:\d+)?(/.*)?$`),
		},
		{
			ID:           "labs",
			RedirectProd: mustPattern(`^https://labs\.bfeai\.com(/.*)?$`),
		},
	}
	return domain.NewClientRegistry(clients, production)
}

func testClaims() *domain.SessionClaims {
	return &domain.SessionClaims{
		UserID: "user-1",
		Email:  "user@bfeai.com",
		Role:   "member",
		Exp:    time.Now().Add(time.Hour),
	}
}

func TestGenerateCode_Success(t *testing.T) {
	repo := new(MockAuthCodeRepository)
	issuer := NewCodeIssuer(repo, testRegistry(true), 30*time.Second)

	var saved *domain.AuthCode
	repo.On("SaveAuthCode", mock.Anything, mock.AnythingOfType("*domain.AuthCode")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*domain.AuthCode)
		}).
		Return(nil)

	grant, err := issuer.GenerateCode(context.Background(), testClaims(), "session-token",
		"keywords", "https://keywords.bfeai.com/callback")
	require.NoError(t, err)
	require.NotNil(t, grant)

	assert.Equal(t, 30, grant.ExpiresIn)
	assert.NotEmpty(t, grant.Code)
	// 32 bytes of entropy, base64url without padding.
	assert.GreaterOrEqual(t, len(grant.Code), 43)

	require.NotNil(t, saved)
	assert.Equal(t, grant.Code, saved.Code)
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, "session-token", saved.BoundToken)
	assert.Equal(t, "keywords", saved.ClientID)
	assert.Equal(t, "https://keywords.bfeai.com/callback", saved.RedirectURI)
	assert.Nil(t, saved.UsedAt)
	assert.WithinDuration(t, time.Now().UTC().Add(30*time.Second), saved.ExpiresAt, 2*time.Second)

	repo.AssertExpectations(t)
}

func TestGenerateCode_CodesAreUnique(t *testing.T) {
	repo := new(MockAuthCodeRepository)
	issuer := NewCodeIssuer(repo, testRegistry(true), 30*time.Second)
	repo.On("SaveAuthCode", mock.Anything, mock.Anything).Return(nil)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		grant, err := issuer.GenerateCode(context.Background(), testClaims(), "tok",
			"keywords", "https://keywords.bfeai.com/cb")
		require.NoError(t, err)
		assert.False(t, seen[grant.Code], "duplicate code generated")
		seen[grant.Code] = true
	}
}

func TestGenerateCode_UnknownClient(t *testing.T) {
	repo := new(MockAuthCodeRepository)
	issuer := NewCodeIssuer(repo, testRegistry(true), 30*time.Second)

	_, err := issuer.GenerateCode(context.Background(), testClaims(), "tok",
		"unknown", "https://keywords.bfeai.com/cb")
	require.Error(t, err)

	ssoErr := &ssoerrors.SSOError{}
	require.ErrorAs(t, err, &ssoErr)
	assert.Equal(t, ssoerrors.InvalidClient, ssoErr.Code)
	repo.AssertNotCalled(t, "SaveAuthCode", mock.Anything, mock.Anything)
}

func TestGenerateCode_RedirectMismatch(t *testing.T) {
	repo := new(MockAuthCodeRepository)
	issuer := NewCodeIssuer(repo, testRegistry(true), 30*time.Second)

	cases := []string{
		"https://evil.example.com/cb",
		"https://keywords.bfeai.com.evil.example.com/cb",
		"https://payments.bfeai.com/cb", // Wrong client's subdomain
		"ftp://keywords.bfeai.com/cb",
		"",
	}
	for _, uri := range cases {
		_, err := issuer.GenerateCode(context.Background(), testClaims(), "tok", "keywords", uri)
		require.Error(t, err, "redirect %q should be rejected", uri)

		ssoErr := &ssoerrors.SSOError{}
		require.ErrorAs(t, err, &ssoErr)
		assert.Equal(t, ssoerrors.InvalidRedirect, ssoErr.Code)
	}
	repo.AssertNotCalled(t, "SaveAuthCode", mock.Anything, mock.Anything)
}

func TestGenerateCode_LocalhostOnlyOutsideProduction(t *testing.T) {
	repo := new(MockAuthCodeRepository)
	repo.On("SaveAuthCode", mock.Anything, mock.Anything).Return(nil)

	// Production refuses localhost.
	prodIssuer := NewCodeIssuer(repo, testRegistry(true), 30*time.Second)
	_, err := prodIssuer.GenerateCode(context.Background(), testClaims(), "tok",
		"keywords", "http://localhost:3000/cb")
	require.Error(t, err)

	// Development accepts it.
	devIssuer := NewCodeIssuer(repo, testRegistry(false), 30*time.Second)
	grant, err := devIssuer.GenerateCode(context.Background(), testClaims(), "tok",
		"keywords", "http://localhost:3000/cb")
	require.NoError(t, err)
	assert.NotEmpty(t, grant.Code)
}

func TestGenerateCode_PersistenceFailure(t *testing.T) {
	repo := new(MockAuthCodeRepository)
	issuer := NewCodeIssuer(repo, testRegistry(true), 30*time.Second)
	repo.On("SaveAuthCode", mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := issuer.GenerateCode(context.Background(), testClaims(), "tok",
		"keywords", "https://keywords.bfeai.com/cb")
	require.Error(t, err)

	ssoErr := &ssoerrors.SSOError{}
	require.ErrorAs(t, err, &ssoErr)
	assert.Equal(t, ssoerrors.ServerError, ssoErr.Code)
}
