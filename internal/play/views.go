package play

import (
	"fmt"
	"time"

	"github.com/playperu/hunts/internal/hunt"
)

// Links let clients navigate without knowing the step order.
type Links struct {
	Self     string `json:"self,omitempty"`
	Next     string `json:"next,omitempty"`
	Validate string `json:"validate,omitempty"`
}

const validatePath = "/api/play/session/validate"

func stepPath(id int64) string {
	return fmt.Sprintf("/api/play/session/steps/%d", id)
}

func sessionLinks(p hunt.Progress, v hunt.Version) Links {
	if !p.Open() {
		return Links{}
	}
	l := Links{Self: stepPath(p.CurrentStepID), Validate: validatePath}
	if next, ok := v.NextStep(p.CurrentStepID); ok {
		l.Next = stepPath(next)
	}
	return l
}

type SessionView struct {
	SessionID      string              `json:"sessionId"`
	HuntID         int64               `json:"huntId"`
	Version        int                 `json:"version"`
	Name           string              `json:"name"`
	PlayerName     string              `json:"playerName,omitempty"`
	Status         hunt.SessionStatus  `json:"status"`
	CurrentStepID  int64               `json:"currentStepId"`
	CompletedSteps int                 `json:"completedSteps"`
	TotalSteps     int                 `json:"totalSteps"`
	StartLocation  *hunt.Location      `json:"startLocation,omitempty"`
	Steps          []hunt.StepProgress `json:"steps"`
	StartedAt      time.Time           `json:"startedAt"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty"`
	Links          Links               `json:"links"`
}

func newSessionView(p hunt.Progress, v hunt.Version) SessionView {
	return SessionView{
		SessionID:      p.SessionID,
		HuntID:         p.HuntID,
		Version:        p.Version,
		Name:           v.Name,
		PlayerName:     p.PlayerName,
		Status:         p.Status,
		CurrentStepID:  p.CurrentStepID,
		CompletedSteps: p.CompletedCount(),
		TotalSteps:     len(v.StepOrder),
		StartLocation:  v.StartLocation,
		Steps:          p.Steps,
		StartedAt:      p.StartedAt,
		CompletedAt:    p.CompletedAt,
		Links:          sessionLinks(p, v),
	}
}

type StepView struct {
	StepID           int64           `json:"stepId"`
	Position         int             `json:"position"`
	Total            int             `json:"total"`
	Type             hunt.StepType   `json:"type"`
	AnswerType       hunt.AnswerType `json:"answerType"`
	Challenge        hunt.Challenge  `json:"challenge"`
	HasHint          bool            `json:"hasHint"`
	Hint             string          `json:"hint,omitempty"`
	RequiredLocation *hunt.Location  `json:"requiredLocation,omitempty"`
	TimeLimitSeconds int             `json:"timeLimitSeconds,omitempty"`
	MaxAttempts      int             `json:"maxAttempts,omitempty"`
	Attempts         int             `json:"attempts"`
	Current          bool            `json:"current"`
	Links            Links           `json:"links"`
}

func newStepView(p hunt.Progress, v hunt.Version, s hunt.Step, current bool) StepView {
	view := StepView{
		StepID:           s.StepID,
		Position:         v.Position(s.StepID),
		Total:            len(v.StepOrder),
		Type:             s.Type,
		AnswerType:       s.ExpectedAnswer(),
		Challenge:        s.Challenge.Public(),
		HasHint:          s.Hint != "",
		RequiredLocation: s.RequiredLocation,
		TimeLimitSeconds: int(s.TimeLimit / time.Second),
		MaxAttempts:      s.MaxAttempts,
		Current:          current,
		Links:            Links{Self: stepPath(s.StepID)},
	}
	if sp := p.StepState(s.StepID); sp != nil {
		view.Attempts = sp.Attempts
		if sp.HintsUsed > 0 {
			view.Hint = s.Hint
		}
	}
	if next, ok := v.NextStep(s.StepID); ok {
		view.Links.Next = stepPath(next)
	}
	if current {
		view.Links.Validate = validatePath
	}
	return view
}

type HintView struct {
	StepID    int64  `json:"stepId"`
	Hint      string `json:"hint"`
	HintsUsed int    `json:"hintsUsed"`
}
