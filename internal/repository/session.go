package repository

import "context"

// SessionStore resolves an authenticated session token to the business it is
// entitled to act on. The reconciler re-derives the tenant through this
// lookup on every pass; it never trusts a client-claimed business id.
type SessionStore interface {
	// BusinessForToken returns the business id bound to the token, or
	// domain.ErrNoTenant when the token is unknown or revoked.
	BusinessForToken(ctx context.Context, token string) (string, error)
}

// SessionJanitor removes sessions that can no longer authenticate anything.
type SessionJanitor interface {
	// DeleteDeadSessions purges expired and revoked tokens and reports how
	// many rows were removed.
	DeleteDeadSessions(ctx context.Context) (int64, error)
}
