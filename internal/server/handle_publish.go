package server

import (
	"log/slog"
	"net/http"

	"github.com/playperu/hunts/internal/access"
	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/publishing"
)

// ReleaseRequest is the request body for POST /api/hunts/{huntID}/release.
// A missing version releases the newest published one. CurrentLive must be
// the live version the caller last read, null when the hunt was offline.
type ReleaseRequest struct {
	Version     *int `json:"version,omitempty"`
	CurrentLive *int `json:"currentLive"`
}

// OfflineRequest is the request body for POST /api/hunts/{huntID}/offline.
type OfflineRequest struct {
	CurrentLive *int `json:"currentLive"`
}

type GrantAccessRequest struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission"`
}

type InviteRequest struct {
	Email string `json:"email"`
}

func handlePublish(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		res, err := pub.Publish(r.Context(), id, creatorFrom(r).ID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleRelease(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		var req ReleaseRequest
		if err := readOptionalJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := pub.Release(r.Context(), id, creatorFrom(r).ID, req.Version, req.CurrentLive)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleTakeOffline(logger *slog.Logger, pub *publishing.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		var req OfflineRequest
		if err := readOptionalJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		res, err := pub.TakeOffline(r.Context(), id, creatorFrom(r).ID, req.CurrentLive)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleGrantAccess(logger *slog.Logger, acc *access.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		var req GrantAccessRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		perm := hunt.ParsePermission(req.Permission)
		if err := acc.Grant(r.Context(), id, creatorFrom(r).ID, req.UserID, perm); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleInvite(logger *slog.Logger, acc *access.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := int64Param(r, "huntID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid hunt id")
			return
		}
		var req InviteRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := acc.Invite(r.Context(), id, creatorFrom(r).ID, req.Email); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"status": "invited"})
	}
}
