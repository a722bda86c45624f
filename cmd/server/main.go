package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	portal "github.com/bfeai/portal"
	echoapi "github.com/bfeai/portal/api/echo"
	"github.com/bfeai/portal/cache"
	redisstore "github.com/bfeai/portal/cache/redis"
	"github.com/bfeai/portal/config"
	"github.com/bfeai/portal/domain"
	"github.com/bfeai/portal/internal/oidcflow"
	"github.com/bfeai/portal/internal/server"
	"github.com/bfeai/portal/internal/token"
	"github.com/bfeai/portal/postgres"
)

const codeGCInterval = 5 * time.Minute

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLog := zerolog.New(os.Stdout).With().Timestamp().Logger()
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	initLogger(cfg)

	log.Info().
		Str("http_port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Str("cookie_domain", cfg.CookieDomain).
		Int("auth_code_ttl_s", cfg.AuthCodeTTLSeconds).
		Msg("Starting portal server")

	ctx := context.Background()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	codeRepo := postgres.NewAuthCodeRepository(pool)
	registry := domain.NewClientRegistry(cfg.Clients(), cfg.IsProduction())
	verifier := token.NewVerifier(cfg.JWTSecret)

	var attempts cache.AttemptStore
	if cfg.RedisAddr != "" {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		attempts = redisstore.NewAttemptStore(rdb, "portal")
		log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis attempt store")
	} else {
		// Single-instance fallback only. Scale-out requires Redis.
		attempts = cache.NewMemoryAttemptStore(time.Minute)
		log.Warn().Msg("REDIS_ADDR not set, using in-memory attempt store")
	}

	flows := oidcflow.NewFlowStore(portal.FlowTTL)
	defer flows.Stop()

	initiator := portal.NewOAuthInitiator([]portal.OAuthProvider{
		{Name: portal.ProviderGoogle, ClientID: cfg.GoogleClientID, AuthURL: cfg.GoogleAuthURL, Scopes: "openid email profile"},
		{Name: portal.ProviderGithub, ClientID: cfg.GithubClientID, AuthURL: cfg.GithubAuthURL, Scopes: "read:user user:email"},
	}, cfg.OAuthCallbackURL, flows)

	ssoAPI := echoapi.NewSSOAPI(
		portal.NewCodeIssuer(codeRepo, registry, cfg.AuthCodeTTL()),
		portal.NewCodeExchanger(codeRepo, registry),
		initiator,
		verifier,
		attempts,
		echoapi.AttemptPolicy{
			Limit:  int64(cfg.ExchangeAttemptLimit),
			Window: time.Duration(cfg.ExchangeAttemptWindow) * time.Second,
		},
		echoapi.CookieSettings{
			Domain:     cfg.CookieDomain,
			MaxAge:     cfg.SessionCookieMaxAge,
			Production: cfg.IsProduction(),
		},
	)

	httpServer := server.NewHTTPServer(cfg.HTTPPort, ssoAPI)

	gcCtx, stopGC := context.WithCancel(ctx)
	defer stopGC()
	go runCodeGC(gcCtx, codeRepo)

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
}

func initLogger(cfg *config.ServerConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// runCodeGC periodically removes expired authorization codes. Expiry already
// makes them unusable; this just keeps the table small.
func runCodeGC(ctx context.Context, repo domain.AuthCodeRepository) {
	ticker := time.NewTicker(codeGCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.DeleteExpiredAuthCodes(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to delete expired authorization codes")
			}
		}
	}
}
