package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crewbuild/sitesync/internal/domain"
	"github.com/crewbuild/sitesync/internal/repository"
)

type sessionStore struct {
	db *pgxpool.Pool
}

// NewSessionStore creates a new PostgreSQL session store
func NewSessionStore(db *pgxpool.Pool) repository.SessionStore {
	return &sessionStore{db: db}
}

// NewSessionJanitor creates a cleaner for dead sessions backed by the same table
func NewSessionJanitor(db *pgxpool.Pool) repository.SessionJanitor {
	return &sessionStore{db: db}
}

// BusinessForToken resolves a session token to its business. Unknown,
// revoked, and expired tokens all collapse to domain.ErrNoTenant so callers
// cannot distinguish which check failed.
func (r *sessionStore) BusinessForToken(ctx context.Context, token string) (string, error) {
	query := `
		SELECT business_id
		FROM sessions
		WHERE token = $1
		  AND NOT revoked
		  AND (expires_at IS NULL OR expires_at > NOW())
	`

	var businessID string
	err := r.db.QueryRow(ctx, query, token).Scan(&businessID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNoTenant
		}
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}

	return businessID, nil
}

// DeleteDeadSessions purges expired and revoked tokens
func (r *sessionStore) DeleteDeadSessions(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM sessions
		WHERE revoked
		   OR (expires_at IS NOT NULL AND expires_at <= NOW())
	`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete dead sessions: %w", err)
	}

	return tag.RowsAffected(), nil
}
