package publishing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/playperu/hunts/internal/access"
	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
	"github.com/playperu/hunts/internal/storage/storagetest"
)

const owner = "creator-1"

func newService(t *testing.T) (*Service, *storage.Store, *access.Service) {
	t.Helper()
	store := storagetest.Open(t)
	auth := access.NewService(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, auth, logger), store, auth
}

func clue(text string) StepInput {
	return StepInput{Challenge: hunt.Challenge{Clue: &hunt.Clue{Text: text}}}
}

func newHunt(t *testing.T, s *Service, steps int) hunt.Hunt {
	t.Helper()
	ctx := context.Background()
	h, err := s.CreateHunt(ctx, owner, CreateInput{Name: "Centro Histórico de Lima"})
	if err != nil {
		t.Fatalf("CreateHunt: %v", err)
	}
	for i := 0; i < steps; i++ {
		if _, err := s.AddStep(ctx, h.ID, owner, clue("step")); err != nil {
			t.Fatalf("AddStep: %v", err)
		}
	}
	return h
}

func intp(v int) *int { return &v }

func TestCreateHunt(t *testing.T) {
	s, _, _ := newService(t)
	h := newHunt(t, s, 0)

	if h.LatestVersion != 1 || h.LiveVersion != nil {
		t.Errorf("hunt = %+v, want latest 1 and not live", h)
	}
	if len(h.PlaySlug) < len("centro-historico-de-lima-") {
		t.Errorf("PlaySlug = %q, want slug of the name plus suffix", h.PlaySlug)
	}

	other := newHunt(t, s, 0)
	if other.PlaySlug == h.PlaySlug {
		t.Errorf("two hunts share slug %q", h.PlaySlug)
	}

	if _, err := s.CreateHunt(context.Background(), owner, CreateInput{Name: "  "}); !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("empty name: err = %v, want ErrInvalid", err)
	}
}

func TestPublishForksDraft(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 2)

	res, err := s.Publish(ctx, h.ID, owner)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.Published != 1 || res.Draft != 2 {
		t.Errorf("res = %+v, want published 1 draft 2", res)
	}

	q := store.Queries()
	got, err := q.Hunt(ctx, h.ID)
	if err != nil {
		t.Fatalf("Hunt: %v", err)
	}
	if got.LatestVersion != 2 {
		t.Errorf("LatestVersion = %d, want 2", got.LatestVersion)
	}
	if got.LiveVersion != nil {
		t.Errorf("LiveVersion = %v, want nil (publish never releases)", *got.LiveVersion)
	}

	v1, _ := q.Version(ctx, h.ID, 1)
	v2, _ := q.Version(ctx, h.ID, 2)
	if !v1.IsPublished || v1.PublishedBy != owner {
		t.Errorf("v1 = %+v, want published by %s", v1, owner)
	}
	if v2.IsPublished {
		t.Error("v2 is published, want draft")
	}
	if len(v2.StepOrder) != 2 || v2.StepOrder[0] != v1.StepOrder[0] || v2.StepOrder[1] != v1.StepOrder[1] {
		t.Errorf("v2 step order = %v, want %v", v2.StepOrder, v1.StepOrder)
	}

	src, _ := q.Steps(ctx, h.ID, 1)
	dst, _ := q.Steps(ctx, h.ID, 2)
	if len(src) != len(dst) {
		t.Fatalf("cloned %d steps, want %d", len(dst), len(src))
	}
	for i := range src {
		if src[i].StepID != dst[i].StepID || src[i].Type != dst[i].Type {
			t.Errorf("step %d: got (%d,%s), want (%d,%s)", i, dst[i].StepID, dst[i].Type, src[i].StepID, src[i].Type)
		}
	}

	if _, err := s.AddStep(ctx, h.ID, owner, clue("new")); err != nil {
		t.Fatalf("AddStep on new draft: %v", err)
	}
	if n, _ := q.CountSteps(ctx, h.ID, 1); n != 2 {
		t.Errorf("published version has %d steps after draft edit, want 2", n)
	}
}

func TestPublishValidation(t *testing.T) {
	s, _, auth := newService(t)
	ctx := context.Background()

	empty := newHunt(t, s, 0)
	if _, err := s.Publish(ctx, empty.ID, owner); !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("no steps: err = %v, want ErrInvalid", err)
	}

	h := newHunt(t, s, 1)
	if _, err := s.Publish(ctx, h.ID, "stranger"); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("stranger: err = %v, want ErrNotFound", err)
	}
	if err := auth.Grant(ctx, h.ID, owner, "viewer", hunt.PermissionView); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := s.Publish(ctx, h.ID, "viewer"); !errors.Is(err, hunt.ErrForbidden) {
		t.Errorf("viewer: err = %v, want ErrForbidden", err)
	}
}

func TestPublishSameDraftTwiceConflicts(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 1)

	draft, err := store.Queries().Version(ctx, h.ID, 1)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}

	if _, err := s.publishDraft(ctx, draft, owner); err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if _, err := s.publishDraft(ctx, draft, owner); !errors.Is(err, hunt.ErrConflict) {
		t.Fatalf("second publish: err = %v, want ErrConflict", err)
	}

	versions, err := store.Queries().ListVersions(ctx, h.ID)
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 2 {
		t.Errorf("got %d versions, want 2", len(versions))
	}

	if _, err := s.Publish(ctx, h.ID, owner); err != nil {
		t.Errorf("publishing the new draft: %v", err)
	}
}

// race runs fn from n goroutines released together and collects their errors.
func race(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func countOutcomes(t *testing.T, errs []error) (ok, conflict int) {
	t.Helper()
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, hunt.ErrConflict):
			conflict++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	return ok, conflict
}

func TestConcurrentPublishersOnSameDraft(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 2)

	draft, err := store.Queries().Version(ctx, h.ID, 1)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}

	errs := race(2, func(int) error {
		_, err := s.publishDraft(ctx, draft, owner)
		return err
	})
	ok, conflict := countOutcomes(t, errs)
	if ok != 1 || conflict != 1 {
		t.Fatalf("got %d successes and %d conflicts, want 1 and 1", ok, conflict)
	}

	got, err := store.Queries().Hunt(ctx, h.ID)
	if err != nil {
		t.Fatalf("Hunt: %v", err)
	}
	if got.LatestVersion != 2 {
		t.Errorf("LatestVersion = %d, want 2", got.LatestVersion)
	}
	published, _ := store.Queries().PublishedVersions(ctx, h.ID)
	if len(published) != 1 {
		t.Errorf("published versions = %v, want [1]", published)
	}
}

func TestConcurrentPublishNeverDoublePublishes(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 1)

	results := make([]PublishResult, 4)
	errs := race(len(results), func(i int) error {
		res, err := s.Publish(ctx, h.ID, owner)
		results[i] = res
		return err
	})
	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, hunt.ErrConflict), errors.Is(err, hunt.ErrInvalid):
			// Lost the race, or read the draft just as it was published.
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok == 0 {
		t.Fatal("no publish succeeded")
	}

	seen := map[int]bool{}
	for i, err := range errs {
		if err != nil {
			continue
		}
		if seen[results[i].Published] {
			t.Errorf("version %d published twice", results[i].Published)
		}
		seen[results[i].Published] = true
	}

	got, err := store.Queries().Hunt(ctx, h.ID)
	if err != nil {
		t.Fatalf("Hunt: %v", err)
	}
	if got.LatestVersion != ok+1 {
		t.Errorf("LatestVersion = %d, want %d", got.LatestVersion, ok+1)
	}
}

func TestConcurrentReleasesWithSameCurrentLive(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 1)
	for i := 0; i < 2; i++ {
		if _, err := s.Publish(ctx, h.ID, owner); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	errs := race(2, func(i int) error {
		_, err := s.Release(ctx, h.ID, owner, intp(i+1), nil)
		return err
	})
	ok, conflict := countOutcomes(t, errs)
	if ok != 1 || conflict != 1 {
		t.Fatalf("got %d successes and %d conflicts, want 1 and 1", ok, conflict)
	}

	got, err := store.Queries().Hunt(ctx, h.ID)
	if err != nil {
		t.Fatalf("Hunt: %v", err)
	}
	winner := 1
	if errs[0] != nil {
		winner = 2
	}
	if got.LiveVersion == nil || *got.LiveVersion != winner {
		t.Errorf("LiveVersion = %v, want %d", got.LiveVersion, winner)
	}
}

func TestReleaseOfPrunedVersionConflicts(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 1)
	if _, err := s.Publish(ctx, h.ID, owner); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Version 1 was read as published, then pruned before the live pointer moved.
	q := store.Queries()
	if err := q.DeleteVersion(ctx, h.ID, 1); err != nil {
		t.Fatalf("DeleteVersion: %v", err)
	}
	if err := q.UpdateLive(ctx, h.ID, nil, intp(1), owner, s.now()); !errors.Is(err, hunt.ErrConflict) {
		t.Fatalf("UpdateLive: err = %v, want ErrConflict", err)
	}
	if _, err := s.Release(ctx, h.ID, owner, intp(1), nil); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("Release: err = %v, want ErrNotFound", err)
	}

	got, err := q.Hunt(ctx, h.ID)
	if err != nil {
		t.Fatalf("Hunt: %v", err)
	}
	if got.LiveVersion != nil {
		t.Errorf("LiveVersion = %d, want nil", *got.LiveVersion)
	}
}

func TestRetentionKeepsLiveVersion(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 1)

	if _, err := s.Publish(ctx, h.ID, owner); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := s.Release(ctx, h.ID, owner, intp(1), nil); err != nil {
		t.Fatalf("Release: %v", err)
	}

	var pruned []int
	for i := 0; i < MaxPublishedVersions+1; i++ {
		res, err := s.Publish(ctx, h.ID, owner)
		if err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
		pruned = append(pruned, res.Pruned...)
	}

	q := store.Queries()
	published, err := q.PublishedVersions(ctx, h.ID)
	if err != nil {
		t.Fatalf("PublishedVersions: %v", err)
	}
	if len(published) != MaxPublishedVersions+1 {
		t.Errorf("kept %d published versions, want %d (window plus live)", len(published), MaxPublishedVersions+1)
	}
	if _, err := q.Version(ctx, h.ID, 1); err != nil {
		t.Errorf("live version 1 was pruned: %v", err)
	}
	if _, err := q.Version(ctx, h.ID, 2); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("version 2: err = %v, want ErrNotFound", err)
	}
	if n, _ := q.CountSteps(ctx, h.ID, 2); n != 0 {
		t.Errorf("version 2 still has %d steps", n)
	}
	if len(pruned) != 1 || pruned[0] != 2 {
		t.Errorf("pruned = %v, want [2]", pruned)
	}
}

func TestRelease(t *testing.T) {
	s, store, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 1)

	if _, err := s.Release(ctx, h.ID, owner, nil, nil); !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("nothing published: err = %v, want ErrInvalid", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := s.Publish(ctx, h.ID, owner); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	res, err := s.Release(ctx, h.ID, owner, nil, nil)
	if err != nil {
		t.Fatalf("Release newest: %v", err)
	}
	if res.Previous != nil || res.Current == nil || *res.Current != 2 {
		t.Errorf("res = %+v, want nil -> 2", res)
	}

	if _, err := s.Release(ctx, h.ID, owner, intp(2), nil); !errors.Is(err, hunt.ErrConflict) {
		t.Errorf("stale live: err = %v, want ErrConflict", err)
	}
	if _, err := s.Release(ctx, h.ID, owner, intp(2), intp(2)); err != nil {
		t.Errorf("re-release with current live: %v", err)
	}

	res, err = s.Release(ctx, h.ID, owner, intp(1), intp(2))
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if *res.Previous != 2 || *res.Current != 1 {
		t.Errorf("rollback res = %v -> %v, want 2 -> 1", *res.Previous, *res.Current)
	}

	if _, err := s.Release(ctx, h.ID, owner, intp(3), intp(1)); !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("release draft: err = %v, want ErrInvalid", err)
	}
	if _, err := s.Release(ctx, h.ID, owner, intp(99), intp(1)); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("release missing: err = %v, want ErrNotFound", err)
	}

	got, _ := store.Queries().Hunt(ctx, h.ID)
	if got.LiveVersion == nil || *got.LiveVersion != 1 || got.ReleasedBy != owner || got.ReleasedAt == nil {
		t.Errorf("hunt = %+v, want live 1 released by %s", got, owner)
	}
}

func TestDeleteRequiresOffline(t *testing.T) {
	s, _, auth := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 1)

	if _, err := s.TakeOffline(ctx, h.ID, owner, nil); !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("offline when not live: err = %v, want ErrInvalid", err)
	}

	if _, err := s.Publish(ctx, h.ID, owner); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := s.Release(ctx, h.ID, owner, nil, nil); err != nil {
		t.Fatalf("Release: %v", err)
	}

	if err := s.DeleteHunt(ctx, h.ID, owner); !errors.Is(err, hunt.ErrConflict) {
		t.Fatalf("delete live: err = %v, want ErrConflict", err)
	}

	if err := auth.Grant(ctx, h.ID, owner, "editor", hunt.PermissionAdmin); err != nil {
		t.Fatalf("Grant: %v", err)
	}
	if _, err := s.TakeOffline(ctx, h.ID, "editor", nil); !errors.Is(err, hunt.ErrConflict) {
		t.Errorf("stale offline: err = %v, want ErrConflict", err)
	}
	if _, err := s.TakeOffline(ctx, h.ID, "editor", intp(1)); err != nil {
		t.Fatalf("TakeOffline: %v", err)
	}
	if err := s.DeleteHunt(ctx, h.ID, "editor"); !errors.Is(err, hunt.ErrForbidden) {
		t.Errorf("admin delete: err = %v, want ErrForbidden", err)
	}
	if err := s.DeleteHunt(ctx, h.ID, owner); err != nil {
		t.Fatalf("DeleteHunt: %v", err)
	}
	if _, err := s.Hunt(ctx, h.ID, owner); !errors.Is(err, hunt.ErrNotFound) {
		t.Errorf("deleted hunt: err = %v, want ErrNotFound", err)
	}
}

func TestUpdateDraft(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 3)

	d, err := s.Hunt(ctx, h.ID, owner)
	if err != nil {
		t.Fatalf("Hunt: %v", err)
	}
	order := d.Draft.StepOrder
	reversed := []int64{order[2], order[1], order[0]}

	v, err := s.UpdateDraft(ctx, h.ID, owner, DraftInput{
		Name:       "Lima de noche",
		StepOrder:  reversed,
		AccessMode: hunt.AccessInvite,
	})
	if err != nil {
		t.Fatalf("UpdateDraft: %v", err)
	}
	if v.Name != "Lima de noche" || v.StepOrder[0] != order[2] {
		t.Errorf("draft = %+v", v)
	}

	d, _ = s.Hunt(ctx, h.ID, owner)
	if d.Hunt.AccessMode != hunt.AccessInvite {
		t.Errorf("AccessMode = %s, want invite", d.Hunt.AccessMode)
	}
	if d.Steps[0].StepID != order[2] {
		t.Errorf("steps not in draft order: first = %d, want %d", d.Steps[0].StepID, order[2])
	}

	_, err = s.UpdateDraft(ctx, h.ID, owner, DraftInput{Name: "x", StepOrder: []int64{order[0]}})
	if !errors.Is(err, hunt.ErrInvalid) {
		t.Errorf("partial order: err = %v, want ErrInvalid", err)
	}
}

func TestAddStepValidates(t *testing.T) {
	s, _, _ := newService(t)
	ctx := context.Background()
	h := newHunt(t, s, 0)

	bad := []StepInput{
		{},
		{Challenge: hunt.Challenge{Clue: &hunt.Clue{Text: "a"}, Task: &hunt.Task{Instructions: "b"}}},
		{Challenge: hunt.Challenge{Quiz: &hunt.Quiz{Question: "?", Kind: hunt.QuizChoice, Options: []hunt.Option{{ID: "a"}, {ID: "b"}}, TargetID: "c"}}},
		{Challenge: hunt.Challenge{Mission: &hunt.Mission{Kind: hunt.MissionLocation}}},
		{Challenge: hunt.Challenge{Clue: &hunt.Clue{Text: "a"}}, MaxAttempts: -1},
	}
	for i, in := range bad {
		if _, err := s.AddStep(ctx, h.ID, owner, in); !errors.Is(err, hunt.ErrInvalid) {
			t.Errorf("case %d: err = %v, want ErrInvalid", i, err)
		}
	}
}
