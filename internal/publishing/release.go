package publishing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

type ReleaseResult struct {
	Previous *int `json:"previous"`
	Current  *int `json:"current"`
}

// Release makes version live. A nil version selects the newest published
// one. currentLive must equal the live version the caller last saw.
func (s *Service) Release(ctx context.Context, huntID int64, userID string, version, currentLive *int) (res ReleaseResult, err error) {
	ctx, span := s.tracer.Start(ctx, "publishing.Release", trace.WithAttributes(attribute.Int64("hunt.id", huntID)))
	defer func() { endSpan(span, err) }()

	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionAdmin); err != nil {
		return ReleaseResult{}, err
	}

	var target int
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		if version != nil {
			target = *version
		} else {
			published, err := q.PublishedVersions(ctx, huntID)
			if err != nil {
				return err
			}
			if len(published) == 0 {
				return hunt.Invalid("hunt has no published version")
			}
			target = published[0]
		}

		v, err := q.Version(ctx, huntID, target)
		if err != nil {
			return err
		}
		if !v.IsPublished {
			return hunt.Invalid("version is not published")
		}
		return q.UpdateLive(ctx, huntID, currentLive, &target, userID, s.now())
	})
	if err != nil {
		return ReleaseResult{}, err
	}

	s.logger.Info("hunt released",
		"hunt_id", huntID,
		"previous", versionValue(currentLive),
		"version", target,
		"user_id", userID,
	)
	return ReleaseResult{Previous: currentLive, Current: &target}, nil
}

// TakeOffline clears the live version.
func (s *Service) TakeOffline(ctx context.Context, huntID int64, userID string, currentLive *int) (res ReleaseResult, err error) {
	ctx, span := s.tracer.Start(ctx, "publishing.TakeOffline", trace.WithAttributes(attribute.Int64("hunt.id", huntID)))
	defer func() { endSpan(span, err) }()

	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionAdmin); err != nil {
		return ReleaseResult{}, err
	}
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		h, err := q.Hunt(ctx, huntID)
		if err != nil {
			return err
		}
		if !h.IsLive() {
			return hunt.Invalid("hunt is not currently live")
		}
		return q.UpdateLive(ctx, huntID, currentLive, nil, userID, s.now())
	})
	if err != nil {
		return ReleaseResult{}, err
	}

	s.logger.Info("hunt taken offline", "hunt_id", huntID, "previous", versionValue(currentLive), "user_id", userID)
	return ReleaseResult{Previous: currentLive}, nil
}

// DeleteHunt soft-deletes a hunt. Live hunts cannot be deleted.
func (s *Service) DeleteHunt(ctx context.Context, huntID int64, userID string) error {
	if err := s.auth.RequireAccess(ctx, huntID, userID, hunt.PermissionOwner); err != nil {
		return err
	}
	q := s.store.Queries()
	h, err := q.Hunt(ctx, huntID)
	if err != nil {
		return err
	}
	if h.IsLive() {
		return hunt.Conflict("cannot delete a live hunt, take it offline first")
	}
	if err := q.SoftDeleteHunt(ctx, huntID, s.now()); err != nil {
		return err
	}
	s.logger.Info("hunt deleted", "hunt_id", huntID, "user_id", userID)
	return nil
}

// versionValue unwraps an optional version for logging.
func versionValue(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
