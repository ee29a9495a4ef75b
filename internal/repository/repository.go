package repository

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	Runs   SyncRunRepository
	Tokens TokenRepository
}

type Option func(*Repository)

// WithRuns replaces the sqlite run history, e.g. with NewPostgresRuns.
func WithRuns(runs SyncRunRepository) Option {
	return func(r *Repository) { r.Runs = runs }
}

func New(db DBTX, opts ...Option) *Repository {
	r := &Repository{
		Runs:   &syncRunRepo{db: db},
		Tokens: &tokenRepo{db: db},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNothingToSync Outcome = "nothing_to_sync"
	OutcomeFailed        Outcome = "failed"
)

type SyncRun struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	WindowStart    int64
	WindowEnd      int64
	Groups         int
	Weights        int
	BloodPressures int
	Delivered      []string
	Outcome        Outcome
	Error          *string
}

func (r SyncRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

const DefaultHistoryLimit = 20

type SyncRunRepository interface {
	Insert(ctx context.Context, run *SyncRun) error
	ListRecent(ctx context.Context, limit int) ([]SyncRun, error)
}

type Token struct {
	Provider     string
	AccessToken  string
	TokenType    string
	RefreshToken *string
	Expiry       *time.Time
}

type TokenRepository interface {
	// Get returns nil, nil when no token is stored for provider.
	Get(ctx context.Context, provider string) (*Token, error)
	Upsert(ctx context.Context, token *Token) error
	Delete(ctx context.Context, provider string) error
}
