// Package access resolves what a user may do with a hunt. The creator owns
// the hunt; everyone else needs an explicit collaborator grant.
package access

import (
	"context"
	"fmt"
	"time"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

type Service struct {
	store *storage.Store
	now   func() time.Time
}

func NewService(store *storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// GetAccess returns userID's permission on the hunt. Anonymous users and
// unknown hunts get PermissionNone.
func (s *Service) GetAccess(ctx context.Context, huntID int64, userID string) (hunt.Permission, error) {
	if userID == "" {
		return hunt.PermissionNone, nil
	}
	q := s.store.Queries()
	h, err := q.Hunt(ctx, huntID)
	if err != nil {
		if hunt.KindOf(err) == hunt.KindNotFound {
			return hunt.PermissionNone, nil
		}
		return hunt.PermissionNone, fmt.Errorf("loading hunt: %w", err)
	}
	if h.CreatorID == userID {
		return hunt.PermissionOwner, nil
	}
	perm, err := q.CollaboratorPermission(ctx, huntID, userID)
	if err != nil {
		return hunt.PermissionNone, fmt.Errorf("loading collaborator: %w", err)
	}
	return perm, nil
}

// RequireAccess fails with NotFound when the user cannot see the hunt at all
// and with Forbidden when the user's permission is below min.
func (s *Service) RequireAccess(ctx context.Context, huntID int64, userID string, min hunt.Permission) error {
	perm, err := s.GetAccess(ctx, huntID, userID)
	if err != nil {
		return err
	}
	if perm == hunt.PermissionNone {
		return hunt.NotFound("hunt not found")
	}
	if perm < min {
		return hunt.Forbidden(fmt.Sprintf("%s permission required", min))
	}
	return nil
}

// IsInvited reports whether email was invited to play the hunt.
func (s *Service) IsInvited(ctx context.Context, huntID int64, email string) (bool, error) {
	if email == "" {
		return false, nil
	}
	return s.store.Queries().IsInvited(ctx, huntID, email)
}

// Grant gives userID perm on the hunt. Only owners may grant.
func (s *Service) Grant(ctx context.Context, huntID int64, ownerID, userID string, perm hunt.Permission) error {
	if err := s.RequireAccess(ctx, huntID, ownerID, hunt.PermissionOwner); err != nil {
		return err
	}
	if userID == "" {
		return hunt.Invalid("user id is required")
	}
	if perm == hunt.PermissionNone || perm == hunt.PermissionOwner {
		return hunt.Invalid("permission must be view or admin")
	}
	return s.store.Queries().GrantAccess(ctx, huntID, userID, perm, s.now())
}

// Invite adds email to the hunt's invitation list. Admins may invite.
func (s *Service) Invite(ctx context.Context, huntID int64, userID, email string) error {
	if err := s.RequireAccess(ctx, huntID, userID, hunt.PermissionAdmin); err != nil {
		return err
	}
	if email == "" {
		return hunt.Invalid("email is required")
	}
	return s.store.Queries().Invite(ctx, huntID, email, s.now())
}
