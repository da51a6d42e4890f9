package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// contextKey is an unexported type to prevent key collisions in context.
type contextKey string

const (
	orgIDKey   contextKey = "org_id"
	actorIDKey contextKey = "actor_id"
)

// ErrOrgIDNotFound is returned when no OrgID exists in the request context.
// Handlers should return 401 when this error occurs.
var ErrOrgIDNotFound = errors.New("org_id not found in context")

// ErrActorIDNotFound is returned when no ActorID exists in the request context.
var ErrActorIDNotFound = errors.New("actor_id not found in context")

// OrgIDFromCtx extracts the authenticated organization ID from the request context.
// Returns uuid.Nil and ErrOrgIDNotFound if no OrgID is set (unauthenticated request).
func OrgIDFromCtx(ctx context.Context) (uuid.UUID, error) {
	orgID, ok := ctx.Value(orgIDKey).(uuid.UUID)
	if !ok || orgID == uuid.Nil {
		return uuid.Nil, ErrOrgIDNotFound
	}
	return orgID, nil
}

// WithOrgID returns a new context with the given OrgID attached.
// Used by authentication middleware after validating the session.
func WithOrgID(ctx context.Context, orgID uuid.UUID) context.Context {
	return context.WithValue(ctx, orgIDKey, orgID)
}

// ActorIDFromCtx extracts the authenticated user ID from the request context.
// The actor ID is recorded as performed_by on stock movements.
func ActorIDFromCtx(ctx context.Context) (uuid.UUID, error) {
	actorID, ok := ctx.Value(actorIDKey).(uuid.UUID)
	if !ok || actorID == uuid.Nil {
		return uuid.Nil, ErrActorIDNotFound
	}
	return actorID, nil
}

// WithActorID returns a new context with the given actor (user) ID attached.
func WithActorID(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}
