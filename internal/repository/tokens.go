package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type tokenRepo struct {
	db DBTX
}

const getToken = `
SELECT provider, access_token, token_type, refresh_token, expiry
FROM tokens
WHERE provider = ?
`

func (r *tokenRepo) Get(ctx context.Context, provider string) (*Token, error) {
	var (
		token        Token
		refreshToken sql.NullString
		expiry       sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, getToken, provider).Scan(
		&token.Provider,
		&token.AccessToken,
		&token.TokenType,
		&refreshToken,
		&expiry,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if refreshToken.Valid {
		token.RefreshToken = &refreshToken.String
	}
	if expiry.Valid {
		t := expiry.Time
		token.Expiry = &t
	}
	return &token, nil
}

const upsertToken = `
INSERT INTO tokens (provider, access_token, token_type, refresh_token, expiry, updated_at)
VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (provider) DO UPDATE SET
    access_token = excluded.access_token,
    token_type = excluded.token_type,
    refresh_token = excluded.refresh_token,
    expiry = excluded.expiry,
    updated_at = CURRENT_TIMESTAMP
`

func (r *tokenRepo) Upsert(ctx context.Context, token *Token) error {
	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	var expiry sql.NullTime
	if token.Expiry != nil && !token.Expiry.IsZero() {
		expiry = sql.NullTime{Time: token.Expiry.UTC(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, upsertToken,
		token.Provider,
		token.AccessToken,
		tokenType,
		token.RefreshToken,
		expiry,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert token: %w", err)
	}
	return nil
}

func (r *tokenRepo) Delete(ctx context.Context, provider string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM tokens WHERE provider = ?", provider); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
