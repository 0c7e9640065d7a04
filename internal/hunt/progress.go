package hunt

import (
	"slices"
	"time"
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// AnswerType tags a submission so it can be routed to a validator.
type AnswerType string

const (
	AnswerClue            AnswerType = "clue"
	AnswerQuizChoice      AnswerType = "quiz-choice"
	AnswerQuizInput       AnswerType = "quiz-input"
	AnswerMissionLocation AnswerType = "mission-location"
	AnswerMissionMedia    AnswerType = "mission-media"
	AnswerTask            AnswerType = "task"
)

// ExpectedAnswer returns the answer type a step accepts.
func (s Step) ExpectedAnswer() AnswerType {
	c := s.Challenge
	switch {
	case c.Clue != nil:
		return AnswerClue
	case c.Quiz != nil && c.Quiz.Kind == QuizChoice:
		return AnswerQuizChoice
	case c.Quiz != nil:
		return AnswerQuizInput
	case c.Mission != nil && c.Mission.Kind == MissionLocation:
		return AnswerMissionLocation
	case c.Mission != nil:
		return AnswerMissionMedia
	case c.Task != nil:
		return AnswerTask
	}
	return ""
}

// Submission is a player's answer to one step.
type Submission struct {
	Type     AnswerType `json:"type"`
	OptionID string     `json:"optionId,omitempty"`
	Text     string     `json:"text,omitempty"`
	Location *Location  `json:"location,omitempty"`
	AssetID  string     `json:"assetId,omitempty"`
}

type Response struct {
	Submission  Submission `json:"submission"`
	Correct     bool       `json:"correct"`
	Feedback    string     `json:"feedback,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
}

type StepProgress struct {
	StepID      int64      `json:"stepId"`
	Attempts    int        `json:"attempts"`
	Completed   bool       `json:"completed"`
	HintsUsed   int        `json:"hintsUsed,omitempty"`
	Responses   []Response `json:"responses,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Progress is one player's session on one pinned hunt version.
type Progress struct {
	SessionID     string
	HuntID        int64
	Version       int
	PlayerName    string
	Email         string
	UserID        string
	Status        SessionStatus
	CurrentStepID int64
	Steps         []StepProgress
	StartedAt     time.Time
	CompletedAt   *time.Time
	UpdatedAt     time.Time
}

// StepState returns a pointer into p.Steps for stepID, or nil.
func (p *Progress) StepState(stepID int64) *StepProgress {
	i := slices.IndexFunc(p.Steps, func(s StepProgress) bool { return s.StepID == stepID })
	if i < 0 {
		return nil
	}
	return &p.Steps[i]
}

// CompletedCount returns how many steps the player has finished.
func (p *Progress) CompletedCount() int {
	n := 0
	for _, s := range p.Steps {
		if s.Completed {
			n++
		}
	}
	return n
}

// Open reports whether the session still accepts submissions.
func (p *Progress) Open() bool { return p.Status == StatusInProgress }
