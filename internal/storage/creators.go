package storage

import (
	"context"
	"time"
)

type Creator struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
}

// CreatorByEmail looks up a creator for login.
func (q *Queries) CreatorByEmail(ctx context.Context, email string) (Creator, error) {
	var c Creator
	err := q.q.QueryRowContext(ctx, `
		SELECT id, email, name, password_hash FROM creators WHERE email = ?
	`, email).Scan(&c.ID, &c.Email, &c.Name, &c.PasswordHash)
	if err != nil {
		return Creator{}, notFound(err, "creator not found")
	}
	return c, nil
}

// UpsertCreator inserts c or, when the email exists, keeps the stored row.
// It returns the stored id.
func (q *Queries) UpsertCreator(ctx context.Context, c Creator, now time.Time) (string, error) {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO creators (id, email, name, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING
	`, c.ID, c.Email, c.Name, c.PasswordHash, formatTime(now))
	if err != nil {
		return "", err
	}
	stored, err := q.CreatorByEmail(ctx, c.Email)
	if err != nil {
		return "", err
	}
	return stored.ID, nil
}

func (q *Queries) CreateCreatorSession(ctx context.Context, id, creatorID string, now, expires time.Time) error {
	_, err := q.q.ExecContext(ctx, `
		INSERT INTO creator_sessions (id, creator_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, id, creatorID, formatTime(now), formatTime(expires))
	return err
}

// CreatorFromSession resolves an unexpired session id to its creator.
func (q *Queries) CreatorFromSession(ctx context.Context, sessionID string, now time.Time) (Creator, error) {
	var c Creator
	err := q.q.QueryRowContext(ctx, `
		SELECT c.id, c.email, c.name
		FROM creator_sessions s
		JOIN creators c ON c.id = s.creator_id
		WHERE s.id = ? AND s.expires_at > ?
	`, sessionID, formatTime(now)).Scan(&c.ID, &c.Email, &c.Name)
	if err != nil {
		return Creator{}, notFound(err, "session not found")
	}
	return c, nil
}

func (q *Queries) DeleteCreatorSession(ctx context.Context, sessionID string) error {
	_, err := q.q.ExecContext(ctx, `DELETE FROM creator_sessions WHERE id = ?`, sessionID)
	return err
}
