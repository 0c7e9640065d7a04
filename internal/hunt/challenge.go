package hunt

import (
	"fmt"
	"slices"
	"strings"
)

type StepType string

const (
	StepClue    StepType = "clue"
	StepQuiz    StepType = "quiz"
	StepMission StepType = "mission"
	StepTask    StepType = "task"
)

// Challenge is a tagged union: exactly one variant is non-nil, and it must
// agree with the owning step's Type.
type Challenge struct {
	Clue    *Clue    `json:"clue,omitempty" yaml:"clue,omitempty"`
	Quiz    *Quiz    `json:"quiz,omitempty" yaml:"quiz,omitempty"`
	Mission *Mission `json:"mission,omitempty" yaml:"mission,omitempty"`
	Task    *Task    `json:"task,omitempty" yaml:"task,omitempty"`
}

type Clue struct {
	Text string `json:"text" yaml:"text"`
}

type QuizKind string

const (
	QuizChoice QuizKind = "choice"
	QuizInput  QuizKind = "input"
)

// MatchMode selects how free-text quiz answers are compared.
type MatchMode string

const (
	MatchExact        MatchMode = "exact"
	MatchContains     MatchMode = "contains"
	MatchFuzzy        MatchMode = "fuzzy"
	MatchNumericRange MatchMode = "numeric-range"
)

type Option struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

type Quiz struct {
	Question string   `json:"question" yaml:"question"`
	Kind     QuizKind `json:"kind" yaml:"kind"`

	// Choice quizzes.
	Options  []Option `json:"options,omitempty" yaml:"options,omitempty"`
	TargetID string   `json:"targetId,omitempty" yaml:"targetId,omitempty"`

	// Input quizzes.
	Expected      string    `json:"expected,omitempty" yaml:"expected,omitempty"`
	Mode          MatchMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	CaseSensitive bool      `json:"caseSensitive,omitempty" yaml:"caseSensitive,omitempty"`
	Threshold     float64   `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	Tolerance     float64   `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Alternatives  []string  `json:"alternatives,omitempty" yaml:"alternatives,omitempty"`
}

// HasOption reports whether id is one of the declared options.
func (q *Quiz) HasOption(id string) bool {
	return slices.ContainsFunc(q.Options, func(o Option) bool { return o.ID == id })
}

type MissionKind string

const (
	MissionLocation MissionKind = "location"
	MissionMedia    MissionKind = "media"
)

// DefaultMissionRadius is the acceptance radius in meters when a location
// mission does not declare one.
const DefaultMissionRadius = 50.0

type Mission struct {
	Kind           MissionKind `json:"kind" yaml:"kind"`
	Instructions   string      `json:"instructions,omitempty" yaml:"instructions,omitempty"`
	Target         *Location   `json:"target,omitempty" yaml:"target,omitempty"`
	Radius         float64     `json:"radius,omitempty" yaml:"radius,omitempty"`
	MediaKind      string      `json:"mediaKind,omitempty" yaml:"mediaKind,omitempty"`
	AIInstructions string      `json:"aiInstructions,omitempty" yaml:"aiInstructions,omitempty"`
}

// EffectiveRadius returns the declared radius or DefaultMissionRadius.
func (m *Mission) EffectiveRadius() float64 {
	if m.Radius > 0 {
		return m.Radius
	}
	return DefaultMissionRadius
}

type Task struct {
	Instructions   string `json:"instructions" yaml:"instructions"`
	AIInstructions string `json:"aiInstructions,omitempty" yaml:"aiInstructions,omitempty"`
}

// Type returns the step type implied by the populated variant.
func (c Challenge) Type() (StepType, error) {
	var types []StepType
	if c.Clue != nil {
		types = append(types, StepClue)
	}
	if c.Quiz != nil {
		types = append(types, StepQuiz)
	}
	if c.Mission != nil {
		types = append(types, StepMission)
	}
	if c.Task != nil {
		types = append(types, StepTask)
	}
	if len(types) != 1 {
		return "", Invalid(fmt.Sprintf("challenge must define exactly one variant, got %d", len(types)))
	}
	return types[0], nil
}

// Public returns a copy safe to show to players, with answers and grading
// instructions removed.
func (c Challenge) Public() Challenge {
	var out Challenge
	if c.Clue != nil {
		cl := *c.Clue
		out.Clue = &cl
	}
	if c.Quiz != nil {
		out.Quiz = &Quiz{
			Question: c.Quiz.Question,
			Kind:     c.Quiz.Kind,
			Options:  slices.Clone(c.Quiz.Options),
			Mode:     c.Quiz.Mode,
		}
	}
	if c.Mission != nil {
		out.Mission = &Mission{
			Kind:         c.Mission.Kind,
			Instructions: c.Mission.Instructions,
			MediaKind:    c.Mission.MediaKind,
		}
		if c.Mission.Kind == MissionLocation {
			out.Mission.Radius = c.Mission.EffectiveRadius()
		}
	}
	if c.Task != nil {
		out.Task = &Task{Instructions: c.Task.Instructions}
	}
	return out
}

// Validate checks that the step is well formed before it is stored.
func (s Step) Validate() error {
	typ, err := s.Challenge.Type()
	if err != nil {
		return err
	}
	if s.Type == "" {
		s.Type = typ
	}
	if s.Type != typ {
		return Invalid(fmt.Sprintf("step type %q does not match %s challenge", s.Type, typ))
	}
	if s.TimeLimit < 0 {
		return Invalid("timeLimit must not be negative")
	}
	if s.MaxAttempts < 0 {
		return Invalid("maxAttempts must not be negative")
	}

	switch typ {
	case StepClue:
		if strings.TrimSpace(s.Challenge.Clue.Text) == "" {
			return Invalid("clue text is required")
		}
	case StepQuiz:
		return validateQuiz(s.Challenge.Quiz)
	case StepMission:
		return validateMission(s.Challenge.Mission)
	case StepTask:
		if strings.TrimSpace(s.Challenge.Task.Instructions) == "" {
			return Invalid("task instructions are required")
		}
	}
	return nil
}

func validateQuiz(q *Quiz) error {
	if strings.TrimSpace(q.Question) == "" {
		return Invalid("quiz question is required")
	}
	switch q.Kind {
	case QuizChoice:
		if len(q.Options) < 2 {
			return Invalid("choice quiz needs at least two options")
		}
		seen := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if o.ID == "" || seen[o.ID] {
				return Invalid("choice quiz options need unique ids")
			}
			seen[o.ID] = true
		}
		if !q.HasOption(q.TargetID) {
			return Invalid("choice quiz targetId must name one of the options")
		}
	case QuizInput:
		if strings.TrimSpace(q.Expected) == "" {
			return Invalid("input quiz expected answer is required")
		}
		switch q.Mode {
		case "", MatchExact, MatchContains, MatchFuzzy, MatchNumericRange:
		default:
			return Invalid(fmt.Sprintf("unknown match mode %q", q.Mode))
		}
		if q.Threshold < 0 || q.Threshold > 1 {
			return Invalid("threshold must be between 0 and 1")
		}
		if q.Tolerance < 0 {
			return Invalid("tolerance must not be negative")
		}
	default:
		return Invalid(fmt.Sprintf("unknown quiz kind %q", q.Kind))
	}
	return nil
}

func validateMission(m *Mission) error {
	switch m.Kind {
	case MissionLocation:
		if m.Target == nil {
			return Invalid("location mission needs a target")
		}
		if m.Target.Lat < -90 || m.Target.Lat > 90 || m.Target.Lng < -180 || m.Target.Lng > 180 {
			return Invalid("location mission target is out of range")
		}
		if m.Radius < 0 {
			return Invalid("radius must not be negative")
		}
	case MissionMedia:
	default:
		return Invalid(fmt.Sprintf("unknown mission kind %q", m.Kind))
	}
	return nil
}
