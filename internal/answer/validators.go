package answer

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/playperu/hunts/internal/ai"
	"github.com/playperu/hunts/internal/hunt"
)

// DefaultFuzzyThreshold applies when a fuzzy quiz does not set one.
const DefaultFuzzyThreshold = 0.8

func validateClue(_ context.Context, _ hunt.Step, _ hunt.Submission) (Result, error) {
	return Result{Correct: true, Feedback: "Clue acknowledged."}, nil
}

func validateChoice(_ context.Context, step hunt.Step, sub hunt.Submission) (Result, error) {
	q := step.Challenge.Quiz
	if !q.HasOption(sub.OptionID) {
		return Result{}, hunt.Invalid(fmt.Sprintf("option %q is not one of the choices", sub.OptionID))
	}
	if sub.OptionID == q.TargetID {
		return Result{Correct: true, Feedback: "Correct!"}, nil
	}
	return Result{Correct: false, Feedback: "Not quite, try again."}, nil
}

func validateInput(_ context.Context, step hunt.Step, sub hunt.Submission) (Result, error) {
	if strings.TrimSpace(sub.Text) == "" {
		return Result{}, hunt.Invalid("answer text is required")
	}
	if MatchInput(step.Challenge.Quiz, sub.Text) {
		return Result{Correct: true, Feedback: "Correct!"}, nil
	}
	return Result{Correct: false, Feedback: "Not quite, try again."}, nil
}

// MatchInput reports whether got matches the quiz's expected answer or any
// alternative under the quiz's match mode.
func MatchInput(q *hunt.Quiz, got string) bool {
	if matchOne(q, got, q.Expected) {
		return true
	}
	for _, alt := range q.Alternatives {
		if matchOne(q, got, alt) {
			return true
		}
	}
	return false
}

func matchOne(q *hunt.Quiz, got, want string) bool {
	switch q.Mode {
	case hunt.MatchContains:
		a, b := normalize(got, q.CaseSensitive), normalize(want, q.CaseSensitive)
		if a == "" || b == "" {
			return false
		}
		return strings.Contains(a, b) || strings.Contains(b, a)
	case hunt.MatchFuzzy:
		threshold := q.Threshold
		if threshold == 0 {
			threshold = DefaultFuzzyThreshold
		}
		return Similarity(normalize(got, q.CaseSensitive), normalize(want, q.CaseSensitive)) >= threshold
	case hunt.MatchNumericRange:
		a, okA := parseNumber(got)
		b, okB := parseNumber(want)
		return okA && okB && math.Abs(a-b) <= q.Tolerance
	default:
		return normalize(got, q.CaseSensitive) == normalize(want, q.CaseSensitive)
	}
}

// parseNumber accepts a decimal point or a decimal comma.
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func validateLocation(_ context.Context, step hunt.Step, sub hunt.Submission) (Result, error) {
	m := step.Challenge.Mission
	if sub.Location == nil {
		return Result{}, hunt.Invalid("location is required")
	}
	if m.Target == nil {
		return Result{}, fmt.Errorf("step %d: location mission has no target", step.StepID)
	}

	d := Distance(*sub.Location, *m.Target)
	radius := m.EffectiveRadius()
	if d <= radius {
		return Result{Correct: true, Feedback: "You found it!", Distance: &d}, nil
	}
	return Result{
		Correct:  false,
		Feedback: fmt.Sprintf("You are %.0f m away. Get within %.0f m of the target.", d, radius),
		Distance: &d,
	}, nil
}

func (r *Registry) validateMedia(ctx context.Context, step hunt.Step, sub hunt.Submission) (Result, error) {
	m := step.Challenge.Mission
	if sub.AssetID == "" {
		return Result{}, hunt.Invalid("assetId is required")
	}
	if r.assets == nil {
		return Result{}, hunt.Unavailable("media uploads are not configured", nil)
	}
	asset, err := r.assets.FindByID(ctx, sub.AssetID)
	if err != nil {
		return Result{}, err
	}

	if m.AIInstructions == "" || r.ai == nil || !strings.HasPrefix(asset.MIMEType, "audio/") {
		return Result{Correct: true, Feedback: "Upload received."}, nil
	}

	ctx, cancel := r.withAITimeout(ctx)
	defer cancel()

	audio, err := r.assets.Open(ctx, asset)
	if err != nil {
		return r.failOpen(step, ai.Verdict{}, err), nil
	}
	v, err := r.ai.ValidateAudioResponse(ctx, audio, asset.MIMEType, m.Instructions, m.AIInstructions)
	return r.failOpen(step, v, err), nil
}

func (r *Registry) validateTask(ctx context.Context, step hunt.Step, sub hunt.Submission) (Result, error) {
	t := step.Challenge.Task
	text := strings.TrimSpace(sub.Text)
	if text == "" {
		return Result{}, hunt.Invalid("response text is required")
	}
	if strings.TrimSpace(t.Instructions) == "" || r.ai == nil {
		return Result{Correct: true, Feedback: "Response recorded."}, nil
	}

	ctx, cancel := r.withAITimeout(ctx)
	defer cancel()

	v, err := r.ai.ValidateTaskResponse(ctx, text, t.Instructions, t.AIInstructions)
	return r.failOpen(step, v, err), nil
}
