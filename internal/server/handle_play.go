package server

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/hunts/internal/assets"
	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/play"
	"github.com/playperu/hunts/internal/storage"
)

// StartSessionRequest is the request body for POST /api/play/{slug}/sessions.
type StartSessionRequest struct {
	PlayerName string `json:"playerName,omitempty"`
	Email      string `json:"email,omitempty"`
}

// StartSessionResponse carries the Bearer token for subsequent play calls.
type StartSessionResponse struct {
	Token   string           `json:"token"`
	Session play.SessionView `json:"session"`
}

type AssetResponse struct {
	ID       string `json:"id"`
	MIMEType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

func handleStartSession(logger *slog.Logger, store *storage.Store, engine *play.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		if err := readOptionalJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		in := play.StartInput{
			PlaySlug:   chi.URLParam(r, "slug"),
			PlayerName: req.PlayerName,
			Email:      req.Email,
		}
		// Signed-in creators play as themselves, which unlocks
		// collaborator-only hunts.
		c, ok, err := creatorFromRequest(r, store)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if ok {
			in.UserID = c.ID
			if in.Email == "" {
				in.Email = c.Email
			}
		}

		s, err := engine.Start(r.Context(), in)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, StartSessionResponse{Token: s.SessionID, Session: s})
	}
}

func handleGetSession(logger *slog.Logger, engine *play.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := engine.Session(r.Context(), sessionFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

func handleGetStep(logger *slog.Logger, engine *play.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stepID, ok := int64Param(r, "stepID")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid step id")
			return
		}
		step, err := engine.GetStep(r.Context(), sessionFrom(r), stepID)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, step)
	}
}

func handleValidate(logger *slog.Logger, engine *play.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sub hunt.Submission
		if err := readJSON(r, &sub); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if sub.Type == "" {
			writeError(w, http.StatusBadRequest, "answer type is required")
			return
		}

		v, err := engine.Validate(r.Context(), sessionFrom(r), sub)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func handleHint(logger *slog.Logger, engine *play.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := engine.Hint(r.Context(), sessionFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	}
}

// handleUploadAsset stores the raw request body for a media mission. The
// returned id goes into the submission's assetId.
func handleUploadAsset(logger *slog.Logger, engine *play.Engine, media *assets.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := engine.Session(r.Context(), sessionFrom(r))
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		if s.Status != hunt.StatusInProgress {
			writeError(w, http.StatusConflict, "session is "+string(s.Status))
			return
		}

		defer r.Body.Close()
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, assets.MaxSize))
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload is too large")
			return
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, "reading upload failed")
			return
		}

		a, err := media.Upload(r.Context(), r.Header.Get("Content-Type"), data)
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}
		logger.Info("asset uploaded", "session_id", s.SessionID, "asset_id", a.ID, "size", a.Size)
		writeJSON(w, http.StatusCreated, AssetResponse{ID: a.ID, MIMEType: a.MIMEType, Size: a.Size})
	}
}
