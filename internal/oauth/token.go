package oauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/garrettladley/withings-sync/internal/repository"
)

type TokenChecker interface {
	HasToken(ctx context.Context) (bool, error)
}

var (
	_ TokenChecker       = (*DBTokenSource)(nil)
	_ oauth2.TokenSource = (*DBTokenSource)(nil)
)

// DBTokenSource serves a provider token imported into the local token table.
// It cannot refresh; an expired token yields ErrTokenExpired.
type DBTokenSource struct {
	provider string
	tokens   repository.TokenRepository
	mu       sync.Mutex
	token    *oauth2.Token
}

func NewDBTokenSource(provider string, tokens repository.TokenRepository) *DBTokenSource {
	return &DBTokenSource{
		provider: provider,
		tokens:   tokens,
	}
}

func (s *DBTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != nil && s.token.Valid() {
		return s.token, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dbToken, err := s.tokens.Get(ctx, s.provider)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if dbToken == nil {
		return nil, ErrNoToken
	}

	token := dbTokenToOAuth2(dbToken)
	if !token.Valid() {
		return nil, ErrTokenExpired
	}

	s.token = token
	return token, nil
}

func (s *DBTokenSource) HasToken(ctx context.Context) (bool, error) {
	dbToken, err := s.tokens.Get(ctx, s.provider)
	if err != nil {
		return false, err
	}
	return dbToken != nil, nil
}

// Save replaces the stored token and drops the cached one.
func (s *DBTokenSource) Save(ctx context.Context, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := &repository.Token{
		Provider:    s.provider,
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
	}
	if token.RefreshToken != "" {
		params.RefreshToken = &token.RefreshToken
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		params.Expiry = &expiry
	}

	if err := s.tokens.Upsert(ctx, params); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	s.token = nil
	return nil
}

func dbTokenToOAuth2(t *repository.Token) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
	}
	if t.RefreshToken != nil {
		token.RefreshToken = *t.RefreshToken
	}
	if t.Expiry != nil {
		token.Expiry = *t.Expiry
	}
	return token
}
