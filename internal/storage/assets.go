package storage

import (
	"context"
	"fmt"

	"github.com/playperu/hunts/internal/hunt"
)

func (q *Queries) Asset(ctx context.Context, id string) (hunt.Asset, error) {
	var (
		a         hunt.Asset
		createdAt string
	)
	err := q.q.QueryRowContext(ctx, `
		SELECT id, object_key, url, mime_type, size, created_at FROM assets WHERE id = ?
	`, id).Scan(&a.ID, &a.ObjectKey, &a.URL, &a.MIMEType, &a.Size, &createdAt)
	if err != nil {
		return hunt.Asset{}, notFound(err, "asset not found")
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return hunt.Asset{}, err
	}
	return a, nil
}

func (q *Queries) InsertAsset(ctx context.Context, a hunt.Asset) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO assets (id, object_key, url, mime_type, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.ObjectKey, a.URL, a.MIMEType, a.Size, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting asset: %w", err)
	}
	return nil
}
