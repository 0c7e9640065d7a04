// Package play runs player sessions against the live version of a hunt.
//
// A session is pinned to the version that was live when it started. The
// server decides which step is current; players can view the current step
// and preview the next one, never skip ahead.
package play

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/playperu/hunts/internal/answer"
	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

// HintBudget is how many hints a player may reveal per step.
const HintBudget = 1

const maxPlayerName = 64

type Authorizer interface {
	GetAccess(ctx context.Context, huntID int64, userID string) (hunt.Permission, error)
}

type Invitations interface {
	IsInvited(ctx context.Context, huntID int64, email string) (bool, error)
}

type AnswerValidator interface {
	Validate(ctx context.Context, step hunt.Step, sub hunt.Submission) (answer.Result, error)
}

type Engine struct {
	store   *storage.Store
	auth    Authorizer
	invites Invitations
	answers AnswerValidator
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

func NewEngine(store *storage.Store, auth Authorizer, invites Invitations, answers AnswerValidator, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		auth:    auth,
		invites: invites,
		answers: answers,
		logger:  logger,
		tracer:  otel.Tracer("github.com/playperu/hunts/internal/play"),
		now:     time.Now,
	}
}

type StartInput struct {
	PlaySlug   string
	PlayerName string
	Email      string
	UserID     string
}

// Start opens a session on the hunt's live version, positioned on its first
// step.
func (e *Engine) Start(ctx context.Context, in StartInput) (SessionView, error) {
	name := strings.TrimSpace(in.PlayerName)
	if utf8.RuneCountInString(name) > maxPlayerName {
		return SessionView{}, hunt.Invalid(fmt.Sprintf("player name is longer than %d characters", maxPlayerName))
	}

	q := e.store.Queries()
	h, err := q.HuntBySlug(ctx, in.PlaySlug)
	if err != nil {
		return SessionView{}, err
	}
	if !h.IsLive() {
		return SessionView{}, hunt.Forbidden("hunt is not available for playing")
	}
	if err := e.checkAccess(ctx, h, in); err != nil {
		return SessionView{}, err
	}

	v, err := q.Version(ctx, h.ID, *h.LiveVersion)
	if err != nil {
		return SessionView{}, err
	}
	if len(v.StepOrder) == 0 {
		return SessionView{}, hunt.Invalid("hunt has no steps")
	}

	now := e.now()
	first := v.StepOrder[0]
	p := hunt.Progress{
		SessionID:     uuid.NewString(),
		HuntID:        h.ID,
		Version:       v.Version,
		PlayerName:    name,
		Email:         strings.TrimSpace(in.Email),
		UserID:        in.UserID,
		Status:        hunt.StatusInProgress,
		CurrentStepID: first,
		Steps:         []hunt.StepProgress{{StepID: first, StartedAt: now}},
		StartedAt:     now,
		UpdatedAt:     now,
	}
	if err := q.CreateProgress(ctx, p); err != nil {
		return SessionView{}, err
	}

	e.logger.Info("session started",
		"session_id", p.SessionID,
		"hunt_id", h.ID,
		"version", v.Version,
	)
	return newSessionView(p, v), nil
}

func (e *Engine) checkAccess(ctx context.Context, h hunt.Hunt, in StartInput) error {
	switch h.AccessMode {
	case hunt.AccessOpen, "":
		return nil
	case hunt.AccessInvite:
		if in.Email != "" {
			ok, err := e.invites.IsInvited(ctx, h.ID, in.Email)
			if err != nil {
				return fmt.Errorf("checking invitation: %w", err)
			}
			if ok {
				return nil
			}
		}
		ok, err := e.isCollaborator(ctx, h.ID, in.UserID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return hunt.Forbidden("an invitation is required to play this hunt")
	case hunt.AccessCollaborators:
		ok, err := e.isCollaborator(ctx, h.ID, in.UserID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return hunt.Forbidden("only collaborators can play this hunt")
	default:
		return fmt.Errorf("hunt %d has unknown access mode %q", h.ID, h.AccessMode)
	}
}

func (e *Engine) isCollaborator(ctx context.Context, huntID int64, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	perm, err := e.auth.GetAccess(ctx, huntID, userID)
	if err != nil {
		return false, fmt.Errorf("resolving access: %w", err)
	}
	return perm >= hunt.PermissionView, nil
}

// Session returns the session's progress summary.
func (e *Engine) Session(ctx context.Context, sessionID string) (SessionView, error) {
	q := e.store.Queries()
	p, err := q.Progress(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}
	v, err := q.Version(ctx, p.HuntID, p.Version)
	if err != nil {
		return SessionView{}, err
	}
	return newSessionView(p, v), nil
}

// GetStep serves the current step or a preview of the one after it.
func (e *Engine) GetStep(ctx context.Context, sessionID string, stepID int64) (StepView, error) {
	q := e.store.Queries()
	p, err := q.Progress(ctx, sessionID)
	if err != nil {
		return StepView{}, err
	}
	if !p.Open() {
		return StepView{}, hunt.Conflict(fmt.Sprintf("session is %s, there is no current step", p.Status))
	}
	v, err := q.Version(ctx, p.HuntID, p.Version)
	if err != nil {
		return StepView{}, err
	}

	current := stepID == p.CurrentStepID
	if next, ok := v.NextStep(p.CurrentStepID); !current && (!ok || next != stepID) {
		return StepView{}, hunt.Forbidden("step is not reachable from the current step")
	}

	step, err := q.Step(ctx, p.HuntID, p.Version, stepID)
	if err != nil {
		return StepView{}, err
	}
	return newStepView(p, v, step, current), nil
}

// Hint reveals the current step's hint, once.
func (e *Engine) Hint(ctx context.Context, sessionID string) (HintView, error) {
	var view HintView
	err := e.store.WithTx(ctx, func(q *storage.Queries) error {
		p, err := q.Progress(ctx, sessionID)
		if err != nil {
			return err
		}
		if !p.Open() {
			return hunt.Conflict(fmt.Sprintf("session is %s", p.Status))
		}
		step, err := q.Step(ctx, p.HuntID, p.Version, p.CurrentStepID)
		if err != nil {
			return err
		}
		if step.Hint == "" {
			return hunt.Invalid("this step has no hint")
		}
		sp := p.StepState(p.CurrentStepID)
		if sp == nil {
			return fmt.Errorf("session %s has no progress for step %d", p.SessionID, p.CurrentStepID)
		}
		if sp.HintsUsed >= HintBudget {
			return hunt.Conflict("hint already used for this step")
		}

		sp.HintsUsed++
		p.UpdatedAt = e.now()
		if err := q.UpdateProgress(ctx, p, p.CurrentStepID); err != nil {
			return err
		}
		view = HintView{StepID: step.StepID, Hint: step.Hint, HintsUsed: sp.HintsUsed}
		return nil
	})
	return view, err
}
