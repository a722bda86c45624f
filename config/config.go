package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/bfeai/portal/domain"
)

// ServerConfig holds all configuration for the portal server.
// Tags use mapstructure for Viper unmarshalling and env variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	Environment string `mapstructure:"ENVIRONMENT"` // "production" or anything else
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"` // Empty disables the shared attempt store

	// Session tokens are minted by the managed auth backend; we only verify.
	JWTSecret string `mapstructure:"JWT_SECRET"`

	// SSO protocol knobs.
	AuthCodeTTLSeconds  int    `mapstructure:"AUTH_CODE_TTL_SECONDS"`
	CookieDomain        string `mapstructure:"COOKIE_DOMAIN"` // Parent domain, leading-dot form
	SessionCookieMaxAge int    `mapstructure:"SESSION_COOKIE_MAX_AGE"`

	// Per-client shared secrets for the code exchange.
	KeywordsClientSecret string `mapstructure:"KEYWORDS_CLIENT_SECRET"`
	PaymentsClientSecret string `mapstructure:"PAYMENTS_CLIENT_SECRET"`
	AdminClientSecret    string `mapstructure:"ADMIN_CLIENT_SECRET"`
	LabsClientSecret     string `mapstructure:"LABS_CLIENT_SECRET"`

	// Upstream identity providers used by the OAuth redirect choreography.
	GoogleClientID   string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleAuthURL    string `mapstructure:"GOOGLE_AUTH_URL"`
	GithubClientID   string `mapstructure:"GITHUB_CLIENT_ID"`
	GithubAuthURL    string `mapstructure:"GITHUB_AUTH_URL"`
	OAuthCallbackURL string `mapstructure:"OAUTH_CALLBACK_URL"`

	// Exchange brute-force limiter.
	ExchangeAttemptLimit  int `mapstructure:"EXCHANGE_ATTEMPT_LIMIT"`
	ExchangeAttemptWindow int `mapstructure:"EXCHANGE_ATTEMPT_WINDOW_SECONDS"`
}

// IsProduction reports whether localhost redirects and non-Secure cookies
// must be refused.
func (c *ServerConfig) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// AuthCodeTTL returns the code validity window as a duration.
func (c *ServerConfig) AuthCodeTTL() time.Duration {
	return time.Duration(c.AuthCodeTTLSeconds) * time.Second
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/bfeai-portal/")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("DATABASE_URL", "postgres://localhost:5432/portal_dev")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("AUTH_CODE_TTL_SECONDS", 30)
	v.SetDefault("COOKIE_DOMAIN", ".bfeai.com")
	v.SetDefault("SESSION_COOKIE_MAX_AGE", int((7 * 24 * time.Hour).Seconds()))
	v.SetDefault("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth")
	v.SetDefault("GITHUB_AUTH_URL", "https://github.com/login/oauth/authorize")
	v.SetDefault("OAUTH_CALLBACK_URL", "https://app.bfeai.com/auth/callback")
	v.SetDefault("EXCHANGE_ATTEMPT_LIMIT", 10)
	v.SetDefault("EXCHANGE_ATTEMPT_WINDOW_SECONDS", 300)

	if err := v.ReadInConfig(); err != nil {
		// Missing config file is fine, we run on env vars and defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}

// Per-client redirect allow-list patterns. Production patterns pin the
// client's own subdomain; dev patterns additionally admit localhost with an
// optional port.
var (
	prodRedirectPatterns = map[string]*regexp.Regexp{
		"keywords": regexp.MustCompile(`^https://keywords\.bfeai\.com(/.*)?$`),
		"payments": regexp.MustCompile(`^https://payments\.bfeai\.com(/.*)?$`),
		"admin":    regexp.MustCompile(`^https://admin\.bfeai\.com(/.*)?$`),
		"labs":     regexp.MustCompile(`^https://labs\.bfeai\.com(/.*)?$`),
	}
	devRedirectPattern = regexp.MustCompile(`^https?://localhost(:\d+)?(/.*)?$`)
)

// Clients materializes the fixed client enumeration with secrets taken from
// the environment.
func (c *ServerConfig) Clients() []*domain.Client {
	secrets := map[string]string{
		"keywords": c.KeywordsClientSecret,
		"payments": c.PaymentsClientSecret,
		"admin":    c.AdminClientSecret,
		"labs":     c.LabsClientSecret,
	}

	clients := make([]*domain.Client, 0, len(domain.KnownClientIDs))
	for _, id := range domain.KnownClientIDs {
		clients = append(clients, &domain.Client{
			ID:            id,
			Secret:        secrets[id],
			RedirectProd:  prodRedirectPatterns[id],
			RedirectDev:   devRedirectPattern,
			PostLoginPath: "/",
		})
	}
	return clients
}
