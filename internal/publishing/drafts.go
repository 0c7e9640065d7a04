package publishing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

type CreateInput struct {
	Name          string
	Description   string
	StartLocation *hunt.Location
	AccessMode    hunt.AccessMode
}

// CreateHunt registers a new hunt owned by creatorID with an empty version 1
// draft.
func (s *Service) CreateHunt(ctx context.Context, creatorID string, in CreateInput) (hunt.Hunt, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return hunt.Hunt{}, hunt.Invalid("name is required")
	}
	mode := in.AccessMode
	if mode == "" {
		mode = hunt.AccessOpen
	}
	if !mode.Valid() {
		return hunt.Hunt{}, hunt.Invalid(fmt.Sprintf("unknown access mode %q", mode))
	}

	now := s.now()
	var created hunt.Hunt
	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		h, err := q.CreateHunt(ctx, hunt.Hunt{
			CreatorID:     creatorID,
			PlaySlug:      playSlug(name),
			AccessMode:    mode,
			LatestVersion: 1,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		if err != nil {
			return err
		}
		created = h
		return q.InsertVersion(ctx, hunt.Version{
			HuntID:        h.ID,
			Version:       1,
			Name:          name,
			Description:   in.Description,
			StartLocation: in.StartLocation,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	})
	if err != nil {
		return hunt.Hunt{}, err
	}

	s.logger.Info("hunt created", "hunt_id", created.ID, "slug", created.PlaySlug, "user_id", creatorID)
	return created, nil
}

// playSlug derives a URL-safe slug from the name plus a random suffix so
// hunts with equal names get distinct slugs.
func playSlug(name string) string {
	base := slug.Make(name)
	if len(base) > 48 {
		base = strings.Trim(base[:48], "-")
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

type Detail struct {
	Hunt  hunt.Hunt
	Draft hunt.Version
	Steps []hunt.Step
}

// Hunt returns the hunt with its draft and draft steps.
func (s *Service) Hunt(ctx context.Context, huntID int64, userID string) (Detail, error) {
	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionView); err != nil {
		return Detail{}, err
	}
	q := s.store.Queries()
	h, err := q.Hunt(ctx, huntID)
	if err != nil {
		return Detail{}, err
	}
	draft, err := q.Version(ctx, huntID, h.LatestVersion)
	if err != nil {
		return Detail{}, err
	}
	steps, err := q.Steps(ctx, huntID, draft.Version)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Hunt: h, Draft: draft, Steps: orderSteps(steps, draft.StepOrder)}, nil
}

// Hunts lists the hunts a creator owns.
func (s *Service) Hunts(ctx context.Context, creatorID string) ([]hunt.Hunt, error) {
	return s.store.Queries().HuntsByCreator(ctx, creatorID)
}

// Versions lists every stored version of the hunt, newest first.
func (s *Service) Versions(ctx context.Context, huntID int64, userID string) ([]hunt.Version, error) {
	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionView); err != nil {
		return nil, err
	}
	return s.store.Queries().ListVersions(ctx, huntID)
}

type DraftInput struct {
	Name          string
	Description   string
	StartLocation *hunt.Location
	StepOrder     []int64
	AccessMode    hunt.AccessMode
}

// UpdateDraft replaces the draft's metadata. A non-nil StepOrder must be a
// permutation of the draft's steps.
func (s *Service) UpdateDraft(ctx context.Context, huntID int64, userID string, in DraftInput) (hunt.Version, error) {
	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionAdmin); err != nil {
		return hunt.Version{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return hunt.Version{}, hunt.Invalid("name is required")
	}
	if in.AccessMode != "" && !in.AccessMode.Valid() {
		return hunt.Version{}, hunt.Invalid(fmt.Sprintf("unknown access mode %q", in.AccessMode))
	}

	var updated hunt.Version
	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		h, err := q.Hunt(ctx, huntID)
		if err != nil {
			return err
		}
		draft, err := q.Version(ctx, huntID, h.LatestVersion)
		if err != nil {
			return err
		}

		next := draft
		next.Name = name
		next.Description = in.Description
		next.StartLocation = in.StartLocation
		next.UpdatedAt = s.now()
		if in.StepOrder != nil {
			steps, err := q.Steps(ctx, huntID, draft.Version)
			if err != nil {
				return err
			}
			if !samePermutation(in.StepOrder, steps) {
				return hunt.Invalid("stepOrder must list each draft step exactly once")
			}
			next.StepOrder = in.StepOrder
		}

		if err := q.UpdateDraft(ctx, next, draft.UpdatedAt); err != nil {
			return err
		}
		if in.AccessMode != "" && in.AccessMode != h.AccessMode {
			if err := q.SetAccessMode(ctx, huntID, in.AccessMode, next.UpdatedAt); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return hunt.Version{}, err
	}
	return updated, nil
}

type StepInput struct {
	Challenge        hunt.Challenge
	Hint             string
	RequiredLocation *hunt.Location
	TimeLimitSeconds int
	MaxAttempts      int
}

// AddStep appends a new step to the draft.
func (s *Service) AddStep(ctx context.Context, huntID int64, userID string, in StepInput) (hunt.Step, error) {
	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionAdmin); err != nil {
		return hunt.Step{}, err
	}
	typ, err := in.Challenge.Type()
	if err != nil {
		return hunt.Step{}, err
	}

	now := s.now()
	step := hunt.Step{
		HuntID:           huntID,
		Type:             typ,
		Challenge:        in.Challenge,
		Hint:             strings.TrimSpace(in.Hint),
		RequiredLocation: in.RequiredLocation,
		TimeLimit:        secondsToDuration(in.TimeLimitSeconds),
		MaxAttempts:      in.MaxAttempts,
		CreatedAt:        now,
	}
	if err := step.Validate(); err != nil {
		return hunt.Step{}, err
	}

	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		h, err := q.Hunt(ctx, huntID)
		if err != nil {
			return err
		}
		draft, err := q.Version(ctx, huntID, h.LatestVersion)
		if err != nil {
			return err
		}
		if step.StepID, err = q.NextStepID(ctx); err != nil {
			return err
		}
		step.HuntVersion = draft.Version
		if err := q.InsertStep(ctx, step); err != nil {
			return err
		}

		next := draft
		next.StepOrder = append(append([]int64(nil), draft.StepOrder...), step.StepID)
		next.UpdatedAt = now
		return q.UpdateDraft(ctx, next, draft.UpdatedAt)
	})
	if err != nil {
		return hunt.Step{}, err
	}
	return step, nil
}

func samePermutation(order []int64, steps []hunt.Step) bool {
	if len(order) != len(steps) {
		return false
	}
	want := make(map[int64]bool, len(steps))
	for _, st := range steps {
		want[st.StepID] = true
	}
	for _, id := range order {
		if !want[id] {
			return false
		}
		delete(want, id)
	}
	return len(want) == 0
}

// orderSteps arranges steps by order. Steps missing from order go last.
func orderSteps(steps []hunt.Step, order []int64) []hunt.Step {
	byID := make(map[int64]hunt.Step, len(steps))
	for _, st := range steps {
		byID[st.StepID] = st
	}
	out := make([]hunt.Step, 0, len(steps))
	for _, id := range order {
		if st, ok := byID[id]; ok {
			out = append(out, st)
			delete(byID, id)
		}
	}
	for _, st := range steps {
		if _, ok := byID[st.StepID]; ok {
			out = append(out, st)
		}
	}
	return out
}
