package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/stayloop/booking-api/internal/database"
)

// SessionRepository is the registry of issued tokens. It is append-only:
// rows are created on every login and registration and removed only by
// logout. The auth gate does not consult it unless session checking is
// enabled, so by default it is audit bookkeeping, not revocation.
type SessionRepository interface {
	Record(ctx context.Context, userID uuid.UUID, token string) error
	// Revoke deletes the row matching the exact token and returns how many
	// rows went away. Zero is not an error: logout is idempotent.
	Revoke(ctx context.Context, token string) (int64, error)
	Exists(ctx context.Context, token string) (bool, error)
}

// SessionRegistry is the bun-backed SessionRepository.
type SessionRegistry struct {
	db *bun.DB
}

func NewSessionRegistry(db *bun.DB) *SessionRegistry {
	return &SessionRegistry{db: db}
}

// Record appends a session row for the issued token. Concurrent logins for
// the same user are independent rows; there is no per-user cap.
func (r *SessionRegistry) Record(ctx context.Context, userID uuid.UUID, token string) error {
	session := &database.UserSession{
		UserID: userID,
		Token:  token,
	}

	_, err := r.db.NewInsert().
		Model(session).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	return nil
}

// Revoke deletes the session row matching the token.
func (r *SessionRegistry) Revoke(ctx context.Context, token string) (int64, error) {
	result, err := r.db.NewDelete().
		Model((*database.UserSession)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke session: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return removed, nil
}

// Exists reports whether a session row for the token is still present.
// Used only when the gate runs in session-checking mode.
func (r *SessionRegistry) Exists(ctx context.Context, token string) (bool, error) {
	count, err := r.db.NewSelect().
		Model((*database.UserSession)(nil)).
		Where("token = ?", token).
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to look up session: %w", err)
	}

	return count > 0, nil
}
