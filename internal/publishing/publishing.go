// Package publishing moves hunt versions through draft, published and live.
//
// Publishing freezes the draft and forks a new one with the same step ids.
// Releasing points the hunt's live version at a published version. Both are
// guarded by compare-and-swap tokens so concurrent creators cannot
// double-publish a draft or overwrite each other's release.
package publishing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

// MaxPublishedVersions is how many published versions survive pruning. The
// live version is kept even when it falls outside this window.
const MaxPublishedVersions = 10

// Authorizer resolves a user's permission on a hunt.
type Authorizer interface {
	GetAccess(ctx context.Context, huntID int64, userID string) (hunt.Permission, error)
	RequireAccess(ctx context.Context, huntID int64, userID string, min hunt.Permission) error
}

type Service struct {
	store  *storage.Store
	auth   Authorizer
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store *storage.Store, auth Authorizer, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		auth:   auth,
		logger: logger,
		tracer: otel.Tracer("github.com/playperu/hunts/internal/publishing"),
		now:    time.Now,
	}
}

type PublishResult struct {
	Published int   `json:"published"`
	Draft     int   `json:"draft"`
	Pruned    []int `json:"pruned,omitempty"`
}

// Publish freezes the hunt's current draft and opens the next one.
func (s *Service) Publish(ctx context.Context, huntID int64, userID string) (res PublishResult, err error) {
	ctx, span := s.tracer.Start(ctx, "publishing.Publish", trace.WithAttributes(attribute.Int64("hunt.id", huntID)))
	defer func() { endSpan(span, err) }()

	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionAdmin); err != nil {
		return PublishResult{}, err
	}

	q := s.store.Queries()
	h, err := q.Hunt(ctx, huntID)
	if err != nil {
		return PublishResult{}, err
	}
	draft, err := q.Version(ctx, huntID, h.LatestVersion)
	if err != nil {
		return PublishResult{}, err
	}
	if draft.IsPublished {
		return PublishResult{}, hunt.Invalid("version is already published")
	}
	n, err := q.CountSteps(ctx, huntID, draft.Version)
	if err != nil {
		return PublishResult{}, fmt.Errorf("counting steps: %w", err)
	}
	if n == 0 {
		return PublishResult{}, hunt.Invalid("cannot publish a hunt with no steps")
	}

	return s.publishDraft(ctx, draft, userID)
}

// publishDraft runs the write half of Publish against a draft the caller
// already read. draft.UpdatedAt is the lock token.
func (s *Service) publishDraft(ctx context.Context, draft hunt.Version, userID string) (PublishResult, error) {
	now := s.now()
	res := PublishResult{Published: draft.Version, Draft: draft.Version + 1}

	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.MarkPublished(ctx, draft.HuntID, draft.Version, draft.UpdatedAt, userID, now); err != nil {
			return err
		}
		if err := q.InsertVersion(ctx, draft.Fork(now)); err != nil {
			return err
		}
		if _, err := q.CloneSteps(ctx, draft.HuntID, draft.Version, draft.Version+1); err != nil {
			return err
		}
		if err := q.AdvanceLatest(ctx, draft.HuntID, draft.Version, draft.Version+1, now); err != nil {
			return err
		}

		pruned, err := prune(ctx, q, draft.HuntID)
		if err != nil {
			return err
		}
		res.Pruned = pruned
		return nil
	})
	if err != nil {
		return PublishResult{}, err
	}

	s.logger.Info("hunt published",
		"hunt_id", draft.HuntID,
		"version", res.Published,
		"draft", res.Draft,
		"pruned", res.Pruned,
		"user_id", userID,
	)
	return res, nil
}

// prune deletes published versions beyond the retention window, sparing
// the live one.
func prune(ctx context.Context, q *storage.Queries, huntID int64) ([]int, error) {
	h, err := q.Hunt(ctx, huntID)
	if err != nil {
		return nil, err
	}
	published, err := q.PublishedVersions(ctx, huntID)
	if err != nil {
		return nil, fmt.Errorf("listing published versions: %w", err)
	}
	if len(published) <= MaxPublishedVersions {
		return nil, nil
	}

	var pruned []int
	for _, v := range published[MaxPublishedVersions:] {
		if h.LiveVersion != nil && *h.LiveVersion == v {
			continue
		}
		if err := q.DeleteVersion(ctx, huntID, v); err != nil {
			return nil, err
		}
		pruned = append(pruned, v)
	}
	return pruned, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
