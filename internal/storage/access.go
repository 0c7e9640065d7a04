package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/playperu/hunts/internal/hunt"
)

// CollaboratorPermission returns the permission granted to userID on a hunt,
// or PermissionNone when there is no grant.
func (q *Queries) CollaboratorPermission(ctx context.Context, huntID int64, userID string) (hunt.Permission, error) {
	var perm string
	err := q.q.QueryRowContext(ctx, `
		SELECT permission FROM hunt_collaborators WHERE hunt_id = ? AND user_id = ?
	`, huntID, userID).Scan(&perm)
	if errors.Is(err, sql.ErrNoRows) {
		return hunt.PermissionNone, nil
	}
	if err != nil {
		return hunt.PermissionNone, err
	}
	return hunt.ParsePermission(perm), nil
}

// GrantAccess inserts or replaces a collaborator grant.
func (q *Queries) GrantAccess(ctx context.Context, huntID int64, userID string, perm hunt.Permission, now time.Time) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO hunt_collaborators (hunt_id, user_id, permission, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (hunt_id, user_id) DO UPDATE SET permission = excluded.permission
	`, huntID, userID, perm.String(), formatTime(now))
	return err
}

// Invite records an email address as invited to play a hunt. Addresses are
// stored lower-cased.
func (q *Queries) Invite(ctx context.Context, huntID int64, email string, now time.Time) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO hunt_invitations (hunt_id, email, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (hunt_id, email) DO NOTHING
	`, huntID, strings.ToLower(strings.TrimSpace(email)), formatTime(now))
	return err
}

func (q *Queries) IsInvited(ctx context.Context, huntID int64, email string) (bool, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM hunt_invitations WHERE hunt_id = ? AND email = ?
	`, huntID, strings.ToLower(strings.TrimSpace(email))).Scan(&n)
	return n > 0, err
}
