package play

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

type Verdict struct {
	Correct   bool     `json:"correct"`
	Feedback  string   `json:"feedback,omitempty"`
	Distance  *float64 `json:"distance,omitempty"`
	Attempts  int      `json:"attempts"`
	Expired   bool     `json:"expired"`
	Exhausted bool     `json:"exhausted"`

	Status     hunt.SessionStatus `json:"status"`
	NextStepID *int64             `json:"nextStepId,omitempty"`
	Links      Links              `json:"links"`
}

// Validate grades a submission for the current step and records it. A
// correct answer advances the session or, on the last step, completes it.
//
// Grading may call an AI provider, so it runs before the write transaction.
// The transaction then re-reads the session and refuses to record the
// result if the current step moved in the meantime.
func (e *Engine) Validate(ctx context.Context, sessionID string, sub hunt.Submission) (verdict Verdict, err error) {
	ctx, span := e.tracer.Start(ctx, "play.Validate", trace.WithAttributes(attribute.String("answer.type", string(sub.Type))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	q := e.store.Queries()
	p, err := q.Progress(ctx, sessionID)
	if err != nil {
		return Verdict{}, err
	}
	if !p.Open() {
		return Verdict{}, hunt.Conflict(fmt.Sprintf("session is %s", p.Status))
	}
	step, err := q.Step(ctx, p.HuntID, p.Version, p.CurrentStepID)
	if err != nil {
		return Verdict{}, err
	}
	v, err := q.Version(ctx, p.HuntID, p.Version)
	if err != nil {
		return Verdict{}, err
	}

	res, err := e.answers.Validate(ctx, step, sub)
	if err != nil {
		return Verdict{}, err
	}

	err = e.store.WithTx(ctx, func(q *storage.Queries) error {
		cur, err := q.Progress(ctx, sessionID)
		if err != nil {
			return err
		}
		if !cur.Open() {
			return hunt.Conflict(fmt.Sprintf("session is %s", cur.Status))
		}
		if cur.CurrentStepID != step.StepID {
			return hunt.Conflict("step was already answered, reload the session")
		}
		sp := cur.StepState(step.StepID)
		if sp == nil {
			return fmt.Errorf("session %s has no progress for step %d", cur.SessionID, step.StepID)
		}

		now := e.now()
		sp.Attempts++
		sp.Responses = append(sp.Responses, hunt.Response{
			Submission:  sub,
			Correct:     res.Correct,
			Feedback:    res.Feedback,
			SubmittedAt: now,
		})

		verdict = Verdict{
			Correct:   res.Correct,
			Feedback:  res.Feedback,
			Distance:  res.Distance,
			Attempts:  sp.Attempts,
			Expired:   step.TimeLimit > 0 && now.Sub(sp.StartedAt) > step.TimeLimit,
			Exhausted: step.MaxAttempts > 0 && sp.Attempts >= step.MaxAttempts,
		}

		if res.Correct {
			sp.Completed = true
			sp.CompletedAt = &now
			if v.IsLast(step.StepID) {
				cur.Status = hunt.StatusCompleted
				cur.CompletedAt = &now
			} else {
				next, ok := v.NextStep(step.StepID)
				if !ok {
					return fmt.Errorf("step %d is not in version %d", step.StepID, v.Version)
				}
				cur.Steps = append(cur.Steps, hunt.StepProgress{StepID: next, StartedAt: now})
				cur.CurrentStepID = next
				verdict.NextStepID = &next
			}
		}
		cur.UpdatedAt = now

		if err := q.UpdateProgress(ctx, cur, step.StepID); err != nil {
			return err
		}
		verdict.Status = cur.Status
		verdict.Links = sessionLinks(cur, v)
		p = cur
		return nil
	})
	if err != nil {
		return Verdict{}, err
	}

	if res.FailedOpen {
		span.SetAttributes(attribute.Bool("answer.failed_open", true))
	}
	e.logger.Info("answer validated",
		"session_id", sessionID,
		"step_id", step.StepID,
		"correct", verdict.Correct,
		"attempts", verdict.Attempts,
		"status", p.Status,
	)
	return verdict, nil
}
