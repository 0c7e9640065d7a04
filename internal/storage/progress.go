package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playperu/hunts/internal/hunt"
)

const progressColumns = `session_id, hunt_id, version, player_name, email, user_id, status,
	current_step_id, steps, started_at, completed_at, updated_at`

func scanProgress(row scanner) (hunt.Progress, error) {
	var (
		p                    hunt.Progress
		steps                string
		completedAt          sql.NullString
		startedAt, updatedAt string
	)
	err := row.Scan(&p.SessionID, &p.HuntID, &p.Version, &p.PlayerName, &p.Email, &p.UserID, &p.Status,
		&p.CurrentStepID, &steps, &startedAt, &completedAt, &updatedAt)
	if err != nil {
		return hunt.Progress{}, err
	}
	if err := json.Unmarshal([]byte(steps), &p.Steps); err != nil {
		return hunt.Progress{}, fmt.Errorf("decoding progress steps: %w", err)
	}
	if p.StartedAt, err = parseTime(startedAt); err != nil {
		return hunt.Progress{}, err
	}
	if p.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return hunt.Progress{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return hunt.Progress{}, err
	}
	return p, nil
}

func encodeProgressSteps(steps []hunt.StepProgress) (string, error) {
	if steps == nil {
		steps = []hunt.StepProgress{}
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("encoding progress steps: %w", err)
	}
	return string(b), nil
}

func (q *Queries) CreateProgress(ctx context.Context, p hunt.Progress) error {
	steps, err := encodeProgressSteps(p.Steps)
	if err != nil {
		return err
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO progress (session_id, hunt_id, version, player_name, email, user_id, status,
			current_step_id, steps, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.SessionID, p.HuntID, p.Version, p.PlayerName, p.Email, p.UserID, string(p.Status),
		p.CurrentStepID, steps, formatTime(p.StartedAt), nullTime(p.CompletedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting progress: %w", err)
	}
	return nil
}

func (q *Queries) Progress(ctx context.Context, sessionID string) (hunt.Progress, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT `+progressColumns+` FROM progress WHERE session_id = ?
	`, sessionID)
	p, err := scanProgress(row)
	if err != nil {
		return hunt.Progress{}, notFound(err, "session not found")
	}
	return p, nil
}

// UpdateProgress writes p back, provided the session is still in progress
// on expectedStepID.
func (q *Queries) UpdateProgress(ctx context.Context, p hunt.Progress, expectedStepID int64) error {
	steps, err := encodeProgressSteps(p.Steps)
	if err != nil {
		return err
	}
	return q.UpdateIf(ctx, "session was modified concurrently", `
		UPDATE progress
		SET status = ?, current_step_id = ?, steps = ?, completed_at = ?, updated_at = ?
		WHERE session_id = ? AND status = 'in_progress' AND current_step_id = ?
	`, string(p.Status), p.CurrentStepID, steps, nullTime(p.CompletedAt), formatTime(p.UpdatedAt),
		p.SessionID, expectedStepID)
}

// AbandonIdle marks in-progress sessions untouched since cutoff as abandoned
// and returns how many were changed.
func (q *Queries) AbandonIdle(ctx context.Context, cutoff, now time.Time) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
		UPDATE progress SET status = 'abandoned', updated_at = ?
		WHERE status = 'in_progress' AND updated_at < ?
	`, formatTime(now), formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("abandoning idle sessions: %w", err)
	}
	return res.RowsAffected()
}
