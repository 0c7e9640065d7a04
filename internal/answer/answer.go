// Package answer decides whether a submission solves a step. Each answer
// type has one validator; the Registry routes a submission to it after
// checking that the type matches the step.
package answer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/playperu/hunts/internal/ai"
	"github.com/playperu/hunts/internal/hunt"
)

// FailOpenFeedback is shown when AI grading was unavailable and the
// submission was accepted without it.
const FailOpenFeedback = "Thanks! Your answer has been accepted."

type Result struct {
	Correct  bool
	Feedback string
	// Distance in meters, set by location missions.
	Distance *float64
	// FailedOpen is set when an AI error was converted into acceptance.
	FailedOpen bool
}

type AssetFinder interface {
	FindByID(ctx context.Context, id string) (hunt.Asset, error)
	Open(ctx context.Context, a hunt.Asset) ([]byte, error)
}

type AIValidator interface {
	ValidateTaskResponse(ctx context.Context, text, instructions, aiInstructions string) (ai.Verdict, error)
	ValidateAudioResponse(ctx context.Context, audio []byte, mimeType, instructions, aiInstructions string) (ai.Verdict, error)
}

// FailOpen converts an AI outcome into a Result. Any error yields an
// accepted answer with generic feedback so players are never blocked by the
// AI provider.
func FailOpen(v ai.Verdict, err error) Result {
	if err != nil {
		return Result{Correct: true, Feedback: FailOpenFeedback, FailedOpen: true}
	}
	return Result{Correct: v.Correct, Feedback: v.Feedback}
}

type validateFunc func(ctx context.Context, step hunt.Step, sub hunt.Submission) (Result, error)

type Registry struct {
	assets    AssetFinder
	ai        AIValidator
	aiTimeout time.Duration
	logger    *slog.Logger

	validators map[hunt.AnswerType]validateFunc
}

// NewRegistry wires the built-in validators. assets and aiv may be nil: media
// missions then require an asset finder, and AI grading is skipped.
func NewRegistry(assets AssetFinder, aiv AIValidator, aiTimeout time.Duration, logger *slog.Logger) *Registry {
	r := &Registry{
		assets:    assets,
		ai:        aiv,
		aiTimeout: aiTimeout,
		logger:    logger,
	}
	r.validators = map[hunt.AnswerType]validateFunc{
		hunt.AnswerClue:            validateClue,
		hunt.AnswerQuizChoice:      validateChoice,
		hunt.AnswerQuizInput:       validateInput,
		hunt.AnswerMissionLocation: validateLocation,
		hunt.AnswerMissionMedia:    r.validateMedia,
		hunt.AnswerTask:            r.validateTask,
	}
	return r
}

// Validate checks sub against step. A submission whose type does not match
// the step's challenge is rejected before any validator runs.
func (r *Registry) Validate(ctx context.Context, step hunt.Step, sub hunt.Submission) (Result, error) {
	want := step.ExpectedAnswer()
	if sub.Type != want {
		return Result{}, hunt.Invalid(fmt.Sprintf("answer type %q does not match %s step", sub.Type, want))
	}
	v, ok := r.validators[sub.Type]
	if !ok {
		return Result{}, hunt.Invalid(fmt.Sprintf("unsupported answer type %q", sub.Type))
	}
	return v(ctx, step, sub)
}

func (r *Registry) withAITimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.aiTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.aiTimeout)
}

func (r *Registry) failOpen(step hunt.Step, v ai.Verdict, err error) Result {
	res := FailOpen(v, err)
	if res.FailedOpen {
		r.logger.Warn("ai validation failed, accepting answer",
			"step_id", step.StepID,
			"hunt_id", step.HuntID,
			"error", err,
		)
	}
	return res
}
