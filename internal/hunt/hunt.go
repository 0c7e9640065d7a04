// Package hunt defines the core domain types of hunts, their versions and
// steps, and player progress. It has no dependencies beyond the standard
// library.
package hunt

import (
	"slices"
	"time"
)

// Permission is the access level a user holds on a hunt. Levels are ordered:
// a higher value implies every lower one.
type Permission int

const (
	PermissionNone Permission = iota
	PermissionView
	PermissionAdmin
	PermissionOwner
)

func (p Permission) String() string {
	switch p {
	case PermissionView:
		return "view"
	case PermissionAdmin:
		return "admin"
	case PermissionOwner:
		return "owner"
	default:
		return "none"
	}
}

// ParsePermission is the inverse of Permission.String. Unknown values map to
// PermissionNone.
func ParsePermission(s string) Permission {
	switch s {
	case "view":
		return PermissionView
	case "admin":
		return PermissionAdmin
	case "owner":
		return PermissionOwner
	default:
		return PermissionNone
	}
}

// AccessMode controls who may start a play session on a live hunt.
type AccessMode string

const (
	AccessOpen          AccessMode = "open"
	AccessInvite        AccessMode = "invite"
	AccessCollaborators AccessMode = "collaborators"
)

func (m AccessMode) Valid() bool {
	switch m {
	case AccessOpen, AccessInvite, AccessCollaborators:
		return true
	}
	return false
}

type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Hunt is the stable identity of a hunt. Content lives in its versions.
type Hunt struct {
	ID            int64
	CreatorID     string
	PlaySlug      string
	AccessMode    AccessMode
	LatestVersion int
	LiveVersion   *int
	ReleasedAt    *time.Time
	ReleasedBy    string
	IsDeleted     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsLive reports whether players can currently reach the hunt.
func (h Hunt) IsLive() bool { return h.LiveVersion != nil }

// Version is one snapshot of a hunt's content. Exactly one version per hunt
// is unpublished (the draft); published versions are immutable. UpdatedAt
// doubles as the optimistic-lock token for publishing.
type Version struct {
	HuntID        int64
	Version       int
	Name          string
	Description   string
	StartLocation *Location
	StepOrder     []int64
	IsPublished   bool
	PublishedAt   *time.Time
	PublishedBy   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Fork returns the next draft: a copy of v's metadata and step order under
// version number v.Version+1.
func (v Version) Fork(now time.Time) Version {
	var start *Location
	if v.StartLocation != nil {
		l := *v.StartLocation
		start = &l
	}
	return Version{
		HuntID:        v.HuntID,
		Version:       v.Version + 1,
		Name:          v.Name,
		Description:   v.Description,
		StartLocation: start,
		StepOrder:     slices.Clone(v.StepOrder),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NextStep returns the step id following stepID in the step order.
func (v Version) NextStep(stepID int64) (int64, bool) {
	i := slices.Index(v.StepOrder, stepID)
	if i < 0 || i+1 >= len(v.StepOrder) {
		return 0, false
	}
	return v.StepOrder[i+1], true
}

// Position returns the 1-based position of stepID, or 0 if absent.
func (v Version) Position(stepID int64) int {
	return slices.Index(v.StepOrder, stepID) + 1
}

// IsLast reports whether stepID is the final entry of the step order.
func (v Version) IsLast(stepID int64) bool {
	n := len(v.StepOrder)
	return n > 0 && v.StepOrder[n-1] == stepID
}

// Step is challenge content scoped to one hunt version. StepID is stable
// across version clones, so (StepID, HuntID, HuntVersion) identifies a row.
type Step struct {
	StepID           int64
	HuntID           int64
	HuntVersion      int
	Type             StepType
	Challenge        Challenge
	Hint             string
	RequiredLocation *Location
	TimeLimit        time.Duration
	MaxAttempts      int
	CreatedAt        time.Time
}

// Asset is an uploaded file referenced by media missions.
type Asset struct {
	ID        string
	ObjectKey string
	URL       string
	MIMEType  string
	Size      int64
	CreatedAt time.Time
}
