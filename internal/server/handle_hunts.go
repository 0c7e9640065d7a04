package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/publishing"
)

// HuntResponse is the creator view of a hunt's identity.
type HuntResponse struct {
	ID            int64           `json:"id"`
	PlaySlug      string          `json:"playSlug"`
	AccessMode    hunt.AccessMode `json:"accessMode"`
	LatestVersion int             `json:"latestVersion"`
	LiveVersion   *int            `json:"liveVersion"`
	ReleasedAt    *time.Time      `json:"releasedAt,omitempty"`
	ReleasedBy    string          `json:"releasedBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type VersionResponse struct {
	Version       int            `json:"version"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	StartLocation *hunt.Location `json:"startLocation,omitempty"`
	StepOrder     []int64        `json:"stepOrder"`
	IsPublished   bool           `json:"isPublished"`
	PublishedAt   *time.Time     `json:"publishedAt,omitempty"`
	PublishedBy   string         `json:"publishedBy,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// StepResponse is the creator view of a step, answers included.
type StepResponse struct {
	StepID           int64          `json:"stepId"`
	Type             hunt.StepType  `json:"type"`
	Challenge        hunt.Challenge `json:"challenge"`
	Hint             string         `json:"hint,omitempty"`
	RequiredLocation *hunt.Location `json:"requiredLocation,omitempty"`
	TimeLimitSeconds int            `json:"timeLimitSeconds,omitempty"`
	MaxAttempts      int            `json:"maxAttempts,omitempty"`
}

type HuntDetailResponse struct {
	Hunt  HuntResponse    `json:"hunt"`
	Draft VersionResponse `json:"draft"`
	Steps []StepResponse  `json:"steps"`
}

// CreateHuntRequest is the request body for POST /api/hunts.
type CreateHuntRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	StartLocation *hunt.Location  `json:"startLocation,omitempty"`
	AccessMode    hunt.AccessMode `json:"accessMode,omitempty"`
}

// UpdateDraftRequest is the request body for PUT /api/hunts/{huntID}/draft.
// Omitting stepOrder keeps the current order.
type UpdateDraftRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	StartLocation *hunt.Location  `json:"startLocation,omitempty"`
	StepOrder     []int64         `json:"stepOrder,omitempty"`
	AccessMode    hunt.AccessMode `json:"accessMode,omitempty"`
}

// AddStepRequest is the request body for POST /api/hunts/{huntID}/draft/steps.
type AddStepRequest struct {
	Challenge        hunt.Challenge `json:"challenge"`
	Hint             string         `json:"hint,omitempty"`
	RequiredLocation *hunt.Location `json:"requiredLocation,omitempty"`
	TimeLimitSeconds int            `json:"timeLimitSeconds,omitempty"`
	MaxAttempts      int            `json:"maxAttempts,omitempty"`
}

func newHuntResponse(h hunt.Hunt) HuntResponse {
	return HuntResponse{
		ID:            h.ID,
		PlaySlug:      h.PlaySlug,
		AccessMode:    h.AccessMode,
		LatestVersion: h.LatestVersion,
		LiveVersion:   h.LiveVersion,
		ReleasedAt:    h.ReleasedAt,
		ReleasedBy:    h.ReleasedBy,
		CreatedAt:     h.CreatedAt,
		UpdatedAt:     h.UpdatedAt,
	}
}

func newVersionResponse(v hunt.Version) VersionResponse {
	order := v.StepOrder
	if order == nil {
		order = []int64{}
	}
	return VersionResponse{
		Version:       v.Version,
		Name:          v.Name,
		Description:   v.Description,
		StartLocation: v.StartLocation,
		StepOrder:     order,
		IsPublished:   v.IsPublished,
		PublishedAt:   v.PublishedAt,
		PublishedBy:   v.PublishedBy,
		UpdatedAt:     v.UpdatedAt,
	}
}

func newStepResponse(s hunt.Step) StepResponse {
	return StepResponse{
		StepID:           s.StepID,
		Type:             s.Type,
		Challenge:        s.Challenge,
		Hint:             s.Hint,
		RequiredLocation: s.RequiredLocation,
		TimeLimitSeconds: int(s.TimeLimit / time.Second),
		MaxAttempts:      s.MaxAttempts,
	}
}

func handleListHunts(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hunts, err := pub.Hunts(r.Context(), creatorFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		out := make([]HuntResponse, 0, len(hunts))
		for _, h := range hunts {
			out = append(out, newHuntResponse(h))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleCreateHunt(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateHuntRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		h, err := pub.CreateHunt(r.Context(), creatorFrom(r).ID, publishing.CreateInput{
			Name:          req.Name,
			Description:   req.Description,
			StartLocation: req.StartLocation,
			AccessMode:    req.AccessMode,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newHuntResponse(h))
	}
}

func handleGetHunt(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}

		d, err := pub.Hunt(r.Context(), id, creatorFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		steps := make([]StepResponse, 0, len(d.Steps))
		for _, s := range d.Steps {
			steps = append(steps, newStepResponse(s))
		}
		writeJSON(w, http.StatusOK, HuntDetailResponse{
			Hunt:  newHuntResponse(d.Hunt),
			Draft: newVersionResponse(d.Draft),
			Steps: steps,
		})
	}
}

func handleDeleteHunt(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		if err := pub.DeleteHunt(r.Context(), id, creatorFrom(r).ID); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleUpdateDraft(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		var req UpdateDraftRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		v, err := pub.UpdateDraft(r.Context(), id, creatorFrom(r).ID, publishing.DraftInput{
			Name:          req.Name,
			Description:   req.Description,
			StartLocation: req.StartLocation,
			StepOrder:     req.StepOrder,
			AccessMode:    req.AccessMode,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newVersionResponse(v))
	}
}

func handleAddStep(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		var req AddStepRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		s, err := pub.AddStep(r.Context(), id, creatorFrom(r).ID, publishing.StepInput{
			Challenge:        req.Challenge,
			Hint:             req.Hint,
			RequiredLocation: req.RequiredLocation,
			TimeLimitSeconds: req.TimeLimitSeconds,
			MaxAttempts:      req.MaxAttempts,
		})
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newStepResponse(s))
	}
}

func handleListVersions(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		versions, err := pub.Versions(r.Context(), id, creatorFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		out := make([]VersionResponse, 0, len(versions))
		for _, v := range versions {
			out = append(out, newVersionResponse(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}
