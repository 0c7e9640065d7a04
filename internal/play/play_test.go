package play_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/playperu/hunts/internal/access"
	"github.com/playperu/hunts/internal/answer"
	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/play"
	"github.com/playperu/hunts/internal/storage"
	"github.com/playperu/hunts/internal/storage/storagetest"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fixture struct {
	store  *storage.Store
	auth   *access.Service
	engine *play.Engine
	hunt   hunt.Hunt
}

// setup builds a live hunt whose version 1 has steps 10, 20 and 30:
// a choice quiz, a clue with a hint, and an input quiz.
func setup(t *testing.T, mode hunt.AccessMode) fixture {
	t.Helper()
	ctx := context.Background()
	store := storagetest.Open(t)
	q := store.Queries()
	now := time.Now()

	h, err := q.CreateHunt(ctx, hunt.Hunt{
		CreatorID: "owner", PlaySlug: "lima-centro", AccessMode: mode, LatestVersion: 2,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateHunt: %v", err)
	}
	if err := q.InsertVersion(ctx, hunt.Version{
		HuntID: h.ID, Version: 1, Name: "Lima Centro", StepOrder: []int64{10, 20, 30},
		IsPublished: true, PublishedAt: &now, PublishedBy: "owner", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("InsertVersion: %v", err)
	}

	steps := []hunt.Step{
		{StepID: 10, Challenge: hunt.Challenge{Quiz: &hunt.Quiz{
			Question: "Which river crosses Lima?", Kind: hunt.QuizChoice,
			Options: []hunt.Option{{ID: "a", Text: "Rímac"}, {ID: "b", Text: "Amazonas"}}, TargetID: "a",
		}}, MaxAttempts: 2},
		{StepID: 20, Challenge: hunt.Challenge{Clue: &hunt.Clue{Text: "Walk to the cathedral"}}, Hint: "It faces the plaza"},
		{StepID: 30, Challenge: hunt.Challenge{Quiz: &hunt.Quiz{
			Question: "Year Lima was founded?", Kind: hunt.QuizInput, Expected: "1535", Mode: hunt.MatchExact,
		}}},
	}
	for _, s := range steps {
		s.HuntID, s.HuntVersion, s.CreatedAt = h.ID, 1, now
		s.Type, _ = s.Challenge.Type()
		if err := q.InsertStep(ctx, s); err != nil {
			t.Fatalf("InsertStep: %v", err)
		}
	}
	one := 1
	if err := q.UpdateLive(ctx, h.ID, nil, &one, "owner", now); err != nil {
		t.Fatalf("UpdateLive: %v", err)
	}
	h.LiveVersion = &one

	auth := access.NewService(store)
	answers := answer.NewRegistry(nil, nil, time.Second, discard)
	return fixture{
		store:  store,
		auth:   auth,
		engine: play.NewEngine(store, auth, auth, answers, discard),
		hunt:   h,
	}
}

func (f fixture) start(t *testing.T) play.SessionView {
	t.Helper()
	s, err := f.engine.Start(context.Background(), play.StartInput{PlaySlug: "lima-centro", PlayerName: "Maria"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

func choice(id string) hunt.Submission {
	return hunt.Submission{Type: hunt.AnswerQuizChoice, OptionID: id}
}

func TestStart(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	s := f.start(t)

	if s.SessionID == "" {
		t.Fatal("empty session id")
	}
	if s.Version != 1 || s.CurrentStepID != 10 || s.Status != hunt.StatusInProgress {
		t.Errorf("session = %+v, want version 1 at step 10", s)
	}
	if len(s.Steps) != 1 || s.Steps[0].StepID != 10 {
		t.Errorf("steps = %+v, want one entry for step 10", s.Steps)
	}
	if s.Links.Self != "/api/play/session/steps/10" || s.Links.Next != "/api/play/session/steps/20" {
		t.Errorf("links = %+v", s.Links)
	}
	if s.TotalSteps != 3 {
		t.Errorf("TotalSteps = %d, want 3", s.TotalSteps)
	}
}

func TestStartRefusesUnavailableHunts(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	ctx := context.Background()

	if _, err := f.engine.Start(ctx, play.StartInput{PlaySlug: "nope"}); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("unknown slug: err = %v, want ErrNotFound", err)
	}

	one := 1
	if err := f.store.Queries().UpdateLive(ctx, f.hunt.ID, &one, nil, "owner", time.Now()); err != nil {
		t.Fatalf("UpdateLive: %v", err)
	}
	if _, err := f.engine.Start(ctx, play.StartInput{PlaySlug: "lima-centro"}); !errors.Is(err, hunt.ErrForbidden) {
		t.Errorf("offline hunt: err = %v, want ErrForbidden", err)
	}
}

func TestStartAccessModes(t *testing.T) {
	ctx := context.Background()

	t.Run("invite", func(t *testing.T) {
		f := setup(t, hunt.AccessInvite)
		if err := f.auth.Invite(ctx, f.hunt.ID, "owner", "ana@example.com"); err != nil {
			t.Fatalf("Invite: %v", err)
		}
		if _, err := f.engine.Start(ctx, play.StartInput{PlaySlug: "lima-centro", Email: "bob@example.com"}); !errors.Is(err, hunt.ErrForbidden) {
			t.Errorf("uninvited: err = %v, want ErrForbidden", err)
		}
		if _, err := f.engine.Start(ctx, play.StartInput{PlaySlug: "lima-centro", Email: "ana@example.com"}); err != nil {
			t.Errorf("invited: %v", err)
		}
		if _, err := f.engine.Start(ctx, play.StartInput{PlaySlug: "lima-centro", UserID: "owner"}); err != nil {
			t.Errorf("owner: %v", err)
		}
	})

	t.Run("collaborators", func(t *testing.T) {
		f := setup(t, hunt.AccessCollaborators)
		if _, err := f.engine.Start(ctx, play.StartInput{PlaySlug: "lima-centro", UserID: "stranger"}); !errors.Is(err, hunt.ErrForbidden) {
			t.Errorf("stranger: err = %v, want ErrForbidden", err)
		}
		if err := f.auth.Grant(ctx, f.hunt.ID, "owner", "tester", hunt.PermissionView); err != nil {
			t.Fatalf("Grant: %v", err)
		}
		if _, err := f.engine.Start(ctx, play.StartInput{PlaySlug: "lima-centro", UserID: "tester"}); err != nil {
			t.Errorf("collaborator: %v", err)
		}
	})
}

func TestStartRefusesEmptyLiveVersion(t *testing.T) {
	ctx := context.Background()
	store := storagetest.Open(t)
	q := store.Queries()
	now := time.Now()

	h, err := q.CreateHunt(ctx, hunt.Hunt{CreatorID: "owner", PlaySlug: "empty", AccessMode: hunt.AccessOpen, LatestVersion: 2, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateHunt: %v", err)
	}
	if err := q.InsertVersion(ctx, hunt.Version{HuntID: h.ID, Version: 1, Name: "x", IsPublished: true, CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("InsertVersion: %v", err)
	}
	one := 1
	if err := q.UpdateLive(ctx, h.ID, nil, &one, "owner", now); err != nil {
		t.Fatalf("UpdateLive: %v", err)
	}

	auth := access.NewService(store)
	e := play.NewEngine(store, auth, auth, answer.NewRegistry(nil, nil, time.Second, discard), discard)
	if _, err := e.Start(ctx, play.StartInput{PlaySlug: "empty"}); !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestCorrectAnswerAdvances(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	ctx := context.Background()
	s := f.start(t)

	v, err := f.engine.Validate(ctx, s.SessionID, choice("a"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !v.Correct || v.NextStepID == nil || *v.NextStepID != 20 {
		t.Errorf("verdict = %+v, want correct with next step 20", v)
	}

	got, err := f.engine.Session(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if got.CurrentStepID != 20 {
		t.Errorf("CurrentStepID = %d, want 20", got.CurrentStepID)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("steps = %+v, want two entries", got.Steps)
	}
	if got.Steps[0].StepID != 10 || !got.Steps[0].Completed || got.Steps[0].Attempts != 1 {
		t.Errorf("steps[0] = %+v, want step 10 completed after 1 attempt", got.Steps[0])
	}
	if got.Steps[1].StepID != 20 || got.Steps[1].Completed {
		t.Errorf("steps[1] = %+v, want step 20 open", got.Steps[1])
	}
	if len(got.Steps[0].Responses) != 1 || got.Steps[0].Responses[0].Submission.OptionID != "a" {
		t.Errorf("responses = %+v", got.Steps[0].Responses)
	}
}

func TestWrongAnswerStaysAndFlagsExhausted(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	ctx := context.Background()
	s := f.start(t)

	first, err := f.engine.Validate(ctx, s.SessionID, choice("b"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if first.Correct || first.Exhausted || first.Attempts != 1 {
		t.Errorf("first = %+v", first)
	}

	second, err := f.engine.Validate(ctx, s.SessionID, choice("b"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !second.Exhausted || second.Attempts != 2 {
		t.Errorf("second = %+v, want exhausted after 2 attempts", second)
	}

	// Exhaustion is informational; a later correct answer still counts.
	third, err := f.engine.Validate(ctx, s.SessionID, choice("a"))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !third.Correct || third.Attempts != 3 {
		t.Errorf("third = %+v", third)
	}
}

func TestAnswerTypeMismatch(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	s := f.start(t)

	_, err := f.engine.Validate(context.Background(), s.SessionID, hunt.Submission{Type: hunt.AnswerTask, Text: "hi"})
	if !errors.Is(err, hunt.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}

	got, _ := f.engine.Session(context.Background(), s.SessionID)
	if got.Steps[0].Attempts != 0 {
		t.Errorf("attempts = %d, want 0 after rejected submission", got.Steps[0].Attempts)
	}
}

func TestCompletion(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	ctx := context.Background()
	s := f.start(t)

	submissions := []hunt.Submission{
		choice("a"),
		{Type: hunt.AnswerClue},
		{Type: hunt.AnswerQuizInput, Text: "1535"},
	}
	var last play.Verdict
	for i, sub := range submissions {
		var err error
		last, err = f.engine.Validate(ctx, s.SessionID, sub)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !last.Correct {
			t.Fatalf("step %d: not correct", i)
		}
	}
	if last.Status != hunt.StatusCompleted || last.NextStepID != nil {
		t.Errorf("final verdict = %+v, want completed", last)
	}

	got, _ := f.engine.Session(ctx, s.SessionID)
	if got.Status != hunt.StatusCompleted || got.CompletedAt == nil || got.CompletedSteps != 3 {
		t.Errorf("session = %+v, want completed with 3 steps", got)
	}

	if _, err := f.engine.GetStep(ctx, s.SessionID, 30); !errors.Is(err, hunt.ErrConflict) {
		t.Errorf("GetStep after completion: err = %v, want ErrConflict", err)
	}
	if _, err := f.engine.Validate(ctx, s.SessionID, submissions[2]); !errors.Is(err, hunt.ErrConflict) {
		t.Errorf("Validate after completion: err = %v, want ErrConflict", err)
	}
}

func TestGetStepRefusesSkipping(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	ctx := context.Background()
	s := f.start(t)

	cur, err := f.engine.GetStep(ctx, s.SessionID, 10)
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if !cur.Current || cur.Links.Validate == "" || cur.Links.Next != "/api/play/session/steps/20" {
		t.Errorf("current view = %+v", cur)
	}
	if cur.Challenge.Quiz == nil || cur.Challenge.Quiz.TargetID != "" {
		t.Errorf("challenge leaks the target: %+v", cur.Challenge.Quiz)
	}

	next, err := f.engine.GetStep(ctx, s.SessionID, 20)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.Current || next.Links.Validate != "" {
		t.Errorf("next view = %+v, want preview without validate link", next)
	}

	if _, err := f.engine.GetStep(ctx, s.SessionID, 30); !errors.Is(err, hunt.ErrForbidden) {
		t.Errorf("skip: err = %v, want ErrForbidden", err)
	}
	if _, err := f.engine.GetStep(ctx, "missing", 10); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("missing session: err = %v, want ErrNotFound", err)
	}

	if _, err := f.engine.Validate(ctx, s.SessionID, choice("a")); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, err := f.engine.GetStep(ctx, s.SessionID, 10); !errors.Is(err, hunt.ErrForbidden) {
		t.Errorf("replay: err = %v, want ErrForbidden", err)
	}
	if _, err := f.engine.GetStep(ctx, s.SessionID, 30); err != nil {
		t.Errorf("next after advance: %v", err)
	}
}

func TestHintBudget(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	ctx := context.Background()
	s := f.start(t)

	if _, err := f.engine.Hint(ctx, s.SessionID); !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("step without hint: err = %v, want ErrInvalid", err)
	}

	if _, err := f.engine.Validate(ctx, s.SessionID, choice("a")); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	h, err := f.engine.Hint(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Hint: %v", err)
	}
	if h.Hint != "It faces the plaza" || h.HintsUsed != 1 || h.StepID != 20 {
		t.Errorf("hint = %+v", h)
	}
	if _, err := f.engine.Hint(ctx, s.SessionID); !errors.Is(err, hunt.ErrConflict) {
		t.Errorf("second hint: err = %v, want ErrConflict", err)
	}

	view, err := f.engine.GetStep(ctx, s.SessionID, 20)
	if err != nil {
		t.Fatalf("GetStep: %v", err)
	}
	if view.Hint != "It faces the plaza" {
		t.Errorf("revealed hint not shown on step: %+v", view)
	}
}

func TestSessionPinnedToVersion(t *testing.T) {
	f := setup(t, hunt.AccessOpen)
	ctx := context.Background()
	s := f.start(t)

	q := f.store.Queries()
	now := time.Now()
	if err := q.InsertVersion(ctx, hunt.Version{
		HuntID: f.hunt.ID, Version: 2, Name: "Lima v2", StepOrder: []int64{30},
		IsPublished: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("InsertVersion: %v", err)
	}
	two := 2
	if err := q.UpdateLive(ctx, f.hunt.ID, f.hunt.LiveVersion, &two, "owner", now); err != nil {
		t.Fatalf("UpdateLive: %v", err)
	}

	got, err := f.engine.Session(ctx, s.SessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if got.Version != 1 || got.TotalSteps != 3 {
		t.Errorf("session = %+v, want still on version 1", got)
	}
}

type brokenAuth struct{}

func (brokenAuth) GetAccess(context.Context, int64, string) (hunt.Permission, error) {
	return hunt.PermissionNone, errors.New("database is locked")
}

func TestStartSurfacesAccessErrors(t *testing.T) {
	f := setup(t, hunt.AccessCollaborators)
	e := play.NewEngine(f.store, brokenAuth{}, f.auth, answer.NewRegistry(nil, nil, time.Second, discard), discard)

	_, err := e.Start(context.Background(), play.StartInput{PlaySlug: "lima-centro", UserID: "someone"})
	if err == nil {
		t.Fatal("Start succeeded, want error")
	}
	if errors.Is(err, hunt.ErrForbidden) {
		t.Errorf("err = %v, want a storage failure rather than a denial", err)
	}
	if got := hunt.KindOf(err); got != hunt.KindInternal {
		t.Errorf("KindOf = %v, want internal", got)
	}
}
