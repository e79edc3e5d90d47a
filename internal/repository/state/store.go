package state

import (
	"context"

	"github.com/smileclinic/whatsbot/internal/domain/models"
)

// Store keeps the per-user Session and BookingDraft. A store holds exactly one
// Session and at most one draft per user.
type Store interface {
	// Session returns the user's session, creating and persisting a fresh one
	// when none exists. MemoryStore hands out the same *Session on every call;
	// RedisStore decodes a new copy each time, so callers must SaveSession
	// their changes instead of relying on a shared pointer.
	Session(ctx context.Context, userID string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
	// Draft returns nil when the user has no booking in progress.
	Draft(ctx context.Context, userID string) (*models.BookingDraft, error)
	SaveDraft(ctx context.Context, userID string, draft *models.BookingDraft) error
	DeleteDraft(ctx context.Context, userID string) error
}
