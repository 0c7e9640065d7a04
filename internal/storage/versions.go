package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playperu/hunts/internal/hunt"
)

const versionColumns = `hunt_id, version, name, description, start_location, step_order,
	is_published, published_at, published_by, created_at, updated_at`

func scanVersion(row scanner) (hunt.Version, error) {
	var (
		v                    hunt.Version
		start                sql.NullString
		order                string
		published            int
		publishedAt          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&v.HuntID, &v.Version, &v.Name, &v.Description, &start, &order,
		&published, &publishedAt, &v.PublishedBy, &createdAt, &updatedAt)
	if err != nil {
		return hunt.Version{}, err
	}
	v.IsPublished = published != 0
	if v.StartLocation, err = decodeLocation(start); err != nil {
		return hunt.Version{}, err
	}
	if err := json.Unmarshal([]byte(order), &v.StepOrder); err != nil {
		return hunt.Version{}, fmt.Errorf("decoding step order: %w", err)
	}
	if v.PublishedAt, err = parseNullTime(publishedAt); err != nil {
		return hunt.Version{}, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return hunt.Version{}, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return hunt.Version{}, err
	}
	return v, nil
}

func encodeStepOrder(order []int64) (string, error) {
	if order == nil {
		order = []int64{}
	}
	b, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("encoding step order: %w", err)
	}
	return string(b), nil
}

func (q *Queries) Version(ctx context.Context, huntID int64, version int) (hunt.Version, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM hunt_versions WHERE hunt_id = ? AND version = ?
	`, huntID, version)
	v, err := scanVersion(row)
	if err != nil {
		return hunt.Version{}, notFound(err, fmt.Sprintf("version %d not found", version))
	}
	return v, nil
}

func (q *Queries) InsertVersion(ctx context.Context, v hunt.Version) error {
	start, err := encodeLocation(v.StartLocation)
	if err != nil {
		return err
	}
	order, err := encodeStepOrder(v.StepOrder)
	if err != nil {
		return err
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO hunt_versions (hunt_id, version, name, description, start_location, step_order,
			is_published, published_at, published_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, v.HuntID, v.Version, v.Name, v.Description, start, order,
		boolInt(v.IsPublished), nullTime(v.PublishedAt), v.PublishedBy,
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting version %d: %w", v.Version, err)
	}
	return nil
}

// UpdateDraft overwrites the draft's metadata. It fails with a conflict when
// the draft was published or changed since expected was read.
func (q *Queries) UpdateDraft(ctx context.Context, v hunt.Version, expected time.Time) error {
	start, err := encodeLocation(v.StartLocation)
	if err != nil {
		return err
	}
	order, err := encodeStepOrder(v.StepOrder)
	if err != nil {
		return err
	}
	return q.UpdateIf(ctx, "draft was modified by another user", `
		UPDATE hunt_versions
		SET name = ?, description = ?, start_location = ?, step_order = ?, updated_at = ?
		WHERE hunt_id = ? AND version = ? AND is_published = 0 AND updated_at = ?
	`, v.Name, v.Description, start, order, formatTime(v.UpdatedAt),
		v.HuntID, v.Version, formatTime(expected))
}

// MarkPublished flips the draft to published, keyed on the updated_at value
// the caller read.
func (q *Queries) MarkPublished(ctx context.Context, huntID int64, version int, expected time.Time, by string, now time.Time) error {
	return q.UpdateIf(ctx, "version was modified by another user", `
		UPDATE hunt_versions
		SET is_published = 1, published_at = ?, published_by = ?, updated_at = ?
		WHERE hunt_id = ? AND version = ? AND is_published = 0 AND updated_at = ?
	`, formatTime(now), by, formatTime(now), huntID, version, formatTime(expected))
}

// PublishedVersions returns the published version numbers, newest first.
func (q *Queries) PublishedVersions(ctx context.Context, huntID int64) ([]int, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT version FROM hunt_versions
		WHERE hunt_id = ? AND is_published = 1
		ORDER BY version DESC
	`, huntID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// ListVersions returns every stored version of a hunt, newest first.
func (q *Queries) ListVersions(ctx context.Context, huntID int64) ([]hunt.Version, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM hunt_versions
		WHERE hunt_id = ?
		ORDER BY version DESC
	`, huntID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []hunt.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// DeleteVersion removes a version and its steps.
func (q *Queries) DeleteVersion(ctx context.Context, huntID int64, version int) error {
	if _, err := q.q.ExecContext(ctx, `
		DELETE FROM steps WHERE hunt_id = ? AND hunt_version = ?
	`, huntID, version); err != nil {
		return fmt.Errorf("deleting steps of version %d: %w", version, err)
	}
	if _, err := q.q.ExecContext(ctx, `
		DELETE FROM hunt_versions WHERE hunt_id = ? AND version = ?
	`, huntID, version); err != nil {
		return fmt.Errorf("deleting version %d: %w", version, err)
	}
	return nil
}
