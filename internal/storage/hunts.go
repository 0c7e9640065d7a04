package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playperu/hunts/internal/hunt"
)

const huntColumns = `id, creator_id, play_slug, access_mode, latest_version, live_version,
	released_at, released_by, is_deleted, created_at, updated_at`

func scanHunt(row scanner) (hunt.Hunt, error) {
	var (
		h                    hunt.Hunt
		live                 sql.NullInt64
		releasedAt           sql.NullString
		deleted              int
		createdAt, updatedAt string
	)
	err := row.Scan(&h.ID, &h.CreatorID, &h.PlaySlug, &h.AccessMode, &h.LatestVersion, &live,
		&releasedAt, &h.ReleasedBy, &deleted, &createdAt, &updatedAt)
	if err != nil {
		return hunt.Hunt{}, err
	}
	h.LiveVersion = intPtr(live)
	h.IsDeleted = deleted != 0
	if h.ReleasedAt, err = parseNullTime(releasedAt); err != nil {
		return hunt.Hunt{}, err
	}
	if h.CreatedAt, err = parseTime(createdAt); err != nil {
		return hunt.Hunt{}, err
	}
	if h.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return hunt.Hunt{}, err
	}
	return h, nil
}

// CreateHunt inserts h and returns it with its assigned id.
func (q *Queries) CreateHunt(ctx context.Context, h hunt.Hunt) (hunt.Hunt, error) {
	err := q.q.QueryRowContext(ctx, `
		INSERT INTO hunts (creator_id, play_slug, access_mode, latest_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`, h.CreatorID, h.PlaySlug, string(h.AccessMode), h.LatestVersion, formatTime(h.CreatedAt), formatTime(h.UpdatedAt)).Scan(&h.ID)
	if err != nil {
		return hunt.Hunt{}, fmt.Errorf("inserting hunt: %w", err)
	}
	return h, nil
}

// Hunt returns a non-deleted hunt by id.
func (q *Queries) Hunt(ctx context.Context, id int64) (hunt.Hunt, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT `+huntColumns+` FROM hunts WHERE id = ? AND is_deleted = 0
	`, id)
	h, err := scanHunt(row)
	if err != nil {
		return hunt.Hunt{}, notFound(err, "hunt not found")
	}
	return h, nil
}

// HuntBySlug returns a non-deleted hunt by its play slug.
func (q *Queries) HuntBySlug(ctx context.Context, slug string) (hunt.Hunt, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT `+huntColumns+` FROM hunts WHERE play_slug = ? AND is_deleted = 0
	`, slug)
	h, err := scanHunt(row)
	if err != nil {
		return hunt.Hunt{}, notFound(err, "hunt not found")
	}
	return h, nil
}

// HuntsByCreator lists the hunts a creator owns, newest first.
func (q *Queries) HuntsByCreator(ctx context.Context, creatorID string) ([]hunt.Hunt, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+huntColumns+` FROM hunts
		WHERE creator_id = ? AND is_deleted = 0
		ORDER BY id DESC
	`, creatorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hunts []hunt.Hunt
	for rows.Next() {
		h, err := scanHunt(rows)
		if err != nil {
			return nil, err
		}
		hunts = append(hunts, h)
	}
	return hunts, rows.Err()
}

// UpdateLive moves live_version from expected to next. A nil next takes the
// hunt offline. A non-nil next must name a published version that still
// exists, otherwise nothing is written.
func (q *Queries) UpdateLive(ctx context.Context, huntID int64, expected, next *int, by string, now time.Time) error {
	var releasedAt any
	if next != nil {
		releasedAt = formatTime(now)
	}
	return q.UpdateIf(ctx, "hunt was modified by another user", `
		UPDATE hunts
		SET live_version = ?, released_at = ?, released_by = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0 AND live_version IS ?
		  AND (? IS NULL OR EXISTS (
			SELECT 1 FROM hunt_versions
			WHERE hunt_id = hunts.id AND version = ? AND is_published = 1
		  ))
	`, nullInt(next), releasedAt, by, formatTime(now), huntID, nullInt(expected), nullInt(next), nullInt(next))
}

// AdvanceLatest moves latest_version from one draft to the next.
func (q *Queries) AdvanceLatest(ctx context.Context, huntID int64, from, to int, now time.Time) error {
	return q.UpdateIf(ctx, "hunt was modified by another user", `
		UPDATE hunts SET latest_version = ?, updated_at = ?
		WHERE id = ? AND latest_version = ?
	`, to, formatTime(now), huntID, from)
}

// SetAccessMode changes who may start sessions on the hunt.
func (q *Queries) SetAccessMode(ctx context.Context, huntID int64, mode hunt.AccessMode, now time.Time) error {
	return q.UpdateIf(ctx, "hunt not modifiable", `
		UPDATE hunts SET access_mode = ?, updated_at = ?
		WHERE id = ? AND is_deleted = 0
	`, string(mode), formatTime(now), huntID)
}

// SoftDeleteHunt marks the hunt deleted unless it is live.
func (q *Queries) SoftDeleteHunt(ctx context.Context, huntID int64, now time.Time) error {
	return q.UpdateIf(ctx, "cannot delete a live hunt", `
		UPDATE hunts SET is_deleted = 1, updated_at = ?
		WHERE id = ? AND is_deleted = 0 AND live_version IS NULL
	`, formatTime(now), huntID)
}
