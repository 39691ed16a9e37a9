package domain

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// SessionIDKey is the context key for the editing session ID (uuid.UUID) a repository call belongs to.
const SessionIDKey contextKey = "SessionID"

// ContextWithSessionID returns a copy of ctx carrying the editing session ID
func ContextWithSessionID(ctx context.Context, sessionID uuid.UUID) context.Context {
	return context.WithValue(ctx, SessionIDKey, sessionID)
}

// SessionIDFromContext returns the editing session ID from the context if it exists
func SessionIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(SessionIDKey).(uuid.UUID)
	return id, ok
}
