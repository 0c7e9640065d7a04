package access_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/playperu/hunts/internal/access"
	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage/storagetest"
)

func TestAccess(t *testing.T) {
	store := storagetest.Open(t)
	ctx := context.Background()
	now := time.Now()

	h, err := store.Queries().CreateHunt(ctx, hunt.Hunt{
		CreatorID: "owner", PlaySlug: "s", AccessMode: hunt.AccessOpen, LatestVersion: 1,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create hunt: %v", err)
	}

	svc := access.NewService(store)
	if err := svc.Grant(ctx, h.ID, "owner", "viewer", hunt.PermissionView); err != nil {
		t.Fatalf("grant view: %v", err)
	}
	if err := svc.Grant(ctx, h.ID, "owner", "editor", hunt.PermissionAdmin); err != nil {
		t.Fatalf("grant admin: %v", err)
	}

	tests := []struct {
		user string
		min  hunt.Permission
		want error
	}{
		{"owner", hunt.PermissionOwner, nil},
		{"editor", hunt.PermissionAdmin, nil},
		{"editor", hunt.PermissionOwner, hunt.ErrForbidden},
		{"viewer", hunt.PermissionView, nil},
		{"viewer", hunt.PermissionAdmin, hunt.ErrForbidden},
		{"stranger", hunt.PermissionView, hunt.ErrNotFound},
		{"", hunt.PermissionView, hunt.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.user+"/"+tt.min.String(), func(t *testing.T) {
			err := svc.RequireAccess(ctx, h.ID, tt.user, tt.min)
			if tt.want == nil && err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if err := svc.Grant(ctx, h.ID, "editor", "x", hunt.PermissionView); !errors.Is(err, hunt.ErrForbidden) {
		t.Errorf("non-owner grant: err = %v, want ErrForbidden", err)
	}
}

func TestInvite(t *testing.T) {
	store := storagetest.Open(t)
	ctx := context.Background()
	now := time.Now()

	h, err := store.Queries().CreateHunt(ctx, hunt.Hunt{
		CreatorID: "owner", PlaySlug: "s", AccessMode: hunt.AccessInvite, LatestVersion: 1,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("create hunt: %v", err)
	}

	svc := access.NewService(store)
	if err := svc.Invite(ctx, h.ID, "owner", "ana@example.com"); err != nil {
		t.Fatalf("Invite: %v", err)
	}
	ok, err := svc.IsInvited(ctx, h.ID, "ana@example.com")
	if err != nil || !ok {
		t.Errorf("IsInvited = %v, %v; want true", ok, err)
	}
	ok, _ = svc.IsInvited(ctx, h.ID, "")
	if ok {
		t.Error("IsInvited(\"\") = true, want false")
	}
}
