package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/playperu/hunts/internal/hunt"
)

const stepColumns = `step_id, hunt_id, hunt_version, type, challenge, hint, required_location,
	time_limit, max_attempts, created_at`

func scanStep(row scanner) (hunt.Step, error) {
	var (
		s         hunt.Step
		challenge string
		required  sql.NullString
		limit     int64
		createdAt string
	)
	err := row.Scan(&s.StepID, &s.HuntID, &s.HuntVersion, &s.Type, &challenge, &s.Hint, &required,
		&limit, &s.MaxAttempts, &createdAt)
	if err != nil {
		return hunt.Step{}, err
	}
	if err := json.Unmarshal([]byte(challenge), &s.Challenge); err != nil {
		return hunt.Step{}, fmt.Errorf("decoding challenge of step %d: %w", s.StepID, err)
	}
	if s.RequiredLocation, err = decodeLocation(required); err != nil {
		return hunt.Step{}, err
	}
	s.TimeLimit = time.Duration(limit) * time.Second
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return hunt.Step{}, err
	}
	return s, nil
}

// NextStepID allocates a step id that has never been used.
func (q *Queries) NextStepID(ctx context.Context) (int64, error) {
	var id int64
	err := q.q.QueryRowContext(ctx, `INSERT INTO step_ids DEFAULT VALUES RETURNING id`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("allocating step id: %w", err)
	}
	return id, nil
}

func (q *Queries) InsertStep(ctx context.Context, s hunt.Step) error {
	challenge, err := json.Marshal(s.Challenge)
	if err != nil {
		return fmt.Errorf("encoding challenge: %w", err)
	}
	required, err := encodeLocation(s.RequiredLocation)
	if err != nil {
		return err
	}
	_, err = q.q.ExecContext(ctx, `
		INSERT INTO steps (step_id, hunt_id, hunt_version, type, challenge, hint, required_location,
			time_limit, max_attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.StepID, s.HuntID, s.HuntVersion, string(s.Type), string(challenge), s.Hint, required,
		int64(s.TimeLimit/time.Second), s.MaxAttempts, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting step %d: %w", s.StepID, err)
	}
	return nil
}

func (q *Queries) Step(ctx context.Context, huntID int64, version int, stepID int64) (hunt.Step, error) {
	row := q.q.QueryRowContext(ctx, `
		SELECT `+stepColumns+` FROM steps
		WHERE step_id = ? AND hunt_id = ? AND hunt_version = ?
	`, stepID, huntID, version)
	s, err := scanStep(row)
	if err != nil {
		return hunt.Step{}, notFound(err, "step not found")
	}
	return s, nil
}

// Steps returns every step of one hunt version ordered by step id.
func (q *Queries) Steps(ctx context.Context, huntID int64, version int) ([]hunt.Step, error) {
	rows, err := q.q.QueryContext(ctx, `
		SELECT `+stepColumns+` FROM steps
		WHERE hunt_id = ? AND hunt_version = ?
		ORDER BY step_id
	`, huntID, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []hunt.Step
	for rows.Next() {
		s, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func (q *Queries) CountSteps(ctx context.Context, huntID int64, version int) (int, error) {
	var n int
	err := q.q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM steps WHERE hunt_id = ? AND hunt_version = ?
	`, huntID, version).Scan(&n)
	return n, err
}

// CloneSteps copies every step of version from into version to, keeping step
// ids unchanged. It returns the number of copied rows.
func (q *Queries) CloneSteps(ctx context.Context, huntID int64, from, to int) (int64, error) {
	res, err := q.q.ExecContext(ctx, `
		INSERT INTO steps (step_id, hunt_id, hunt_version, type, challenge, hint, required_location,
			time_limit, max_attempts, created_at)
		SELECT step_id, hunt_id, ?, type, challenge, hint, required_location,
			time_limit, max_attempts, created_at
		FROM steps
		WHERE hunt_id = ? AND hunt_version = ?
	`, to, huntID, from)
	if err != nil {
		return 0, fmt.Errorf("cloning steps %d -> %d: %w", from, to, err)
	}
	return res.RowsAffected()
}
