package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/bfeai/portal/domain"
)

// DBTX is the subset of pgxpool.Pool the repository needs, extracted so
// tests can stand in for the pool.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ DBTX = (*pgxpool.Pool)(nil)

// AuthCodeRepository persists SSO authorization codes in the
// authorization_codes table.
type AuthCodeRepository struct {
	db DBTX
}

// NewAuthCodeRepository creates a new instance of AuthCodeRepository.
func NewAuthCodeRepository(db DBTX) *AuthCodeRepository {
	return &AuthCodeRepository{db: db}
}

// SaveAuthCode inserts a freshly minted authorization code.
func (r *AuthCodeRepository) SaveAuthCode(ctx context.Context, code *domain.AuthCode) error {
	if code.Code == "" {
		return errors.New("auth code value cannot be empty")
	}

	code.CreatedAt = time.Now().UTC()
	_, err := r.db.Exec(ctx,
		`INSERT INTO authorization_codes
		   (code, user_id, bound_token, client_id, redirect_uri, expires_at, used_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULL, $7)`,
		code.Code, code.UserID, code.BoundToken, code.ClientID,
		code.RedirectURI, code.ExpiresAt, code.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("authorization code already exists: %w", err)
		}
		log.Error().Err(err).Str("client_id", code.ClientID).Msg("Error saving authorization code")
		return fmt.Errorf("failed to save authorization code: %w", err)
	}

	log.Debug().Str("client_id", code.ClientID).Str("user_id", code.UserID).Msg("Authorization code saved")

	return nil
}

// ConsumeAuthCode marks the code used and returns it in one conditional
// update. The WHERE clause is the single serialization point for redemption:
// of two concurrent exchanges, exactly one sees a row, the other gets
// domain.ErrCodeNotExchangeable.
func (r *AuthCodeRepository) ConsumeAuthCode(ctx context.Context, codeValue, clientID string) (*domain.AuthCode, error) {
	var code domain.AuthCode
	err := r.db.QueryRow(ctx,
		`UPDATE authorization_codes
		    SET used_at = now()
		  WHERE code = $1 AND client_id = $2 AND used_at IS NULL AND expires_at > now()
		 RETURNING code, user_id, bound_token, client_id, redirect_uri, expires_at, used_at, created_at`,
		codeValue, clientID,
	).Scan(&code.Code, &code.UserID, &code.BoundToken, &code.ClientID,
		&code.RedirectURI, &code.ExpiresAt, &code.UsedAt, &code.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeNotExchangeable
		}
		log.Error().Err(err).Str("client_id", clientID).Msg("Error consuming authorization code")
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	log.Debug().Str("client_id", clientID).Str("user_id", code.UserID).Msg("Authorization code consumed")

	return &code, nil
}

// DeleteExpiredAuthCodes removes codes past their expiry.
func (r *AuthCodeRepository) DeleteExpiredAuthCodes(ctx context.Context) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM authorization_codes WHERE expires_at <= now()`)
	if err != nil {
		return fmt.Errorf("failed to delete expired authorization codes: %w", err)
	}
	return nil
}
