// Package tenant carries the isolation boundary: every queue, cache and
// record operation is partitioned by business id, and no operation may cross
// it.
package tenant

import (
	"context"

	"github.com/crewbuild/sitesync/internal/domain"
)

type ctxKey string

const (
	businessIDKey ctxKey = "businessID"
	userIDKey     ctxKey = "userID"
)

// WithBusinessID returns a new context carrying the authoritative business id
// for the caller's session. On the server this is set by the auth middleware
// after the session lookup, never from a client-supplied field.
func WithBusinessID(ctx context.Context, businessID string) context.Context {
	return context.WithValue(ctx, businessIDKey, businessID)
}

// BusinessIDFromContext extracts the session's business id, if present.
func BusinessIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(businessIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a new context carrying the acting user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the acting user id, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// Resolver supplies the active business and user for client-side operations.
// The values come from session state outside the sync layer's control and
// must be available before any offline write is attempted.
type Resolver interface {
	CurrentBusinessID(ctx context.Context) (string, error)
	CurrentUserID(ctx context.Context) (string, error)
}

// StaticResolver is a Resolver with fixed values, used by field agents that
// are provisioned for exactly one business.
type StaticResolver struct {
	BusinessID string
	UserID     string
}

func (r StaticResolver) CurrentBusinessID(context.Context) (string, error) {
	if r.BusinessID == "" {
		return "", domain.ErrNoTenant
	}
	return r.BusinessID, nil
}

func (r StaticResolver) CurrentUserID(context.Context) (string, error) {
	return r.UserID, nil
}
