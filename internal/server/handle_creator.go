package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

// CreatorLoginRequest is the request body for POST /api/creator/login.
type CreatorLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreatorResponse is the response for login and GET /api/creator/me.
type CreatorResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func handleCreatorLogin(logger *slog.Logger, store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatorLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		q := store.Queries()
		c, err := q.CreatorByEmail(r.Context(), req.Email)
		if errors.Is(err, hunt.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		now := time.Now()
		sessionID := uuid.NewString()
		if err := q.CreateCreatorSession(r.Context(), sessionID, c.ID, now, now.Add(creatorSessionTTL)); err != nil {
			writeServiceError(w, r, logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     creatorCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(creatorSessionTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		logger.Info("creator logged in", "creator_id", c.ID)
		writeJSON(w, http.StatusOK, CreatorResponse{ID: c.ID, Email: c.Email, Name: c.Name})
	}
}

func handleCreatorLogout(store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(creatorCookieName)
		if err == nil && cookie.Value != "" {
			store.Queries().DeleteCreatorSession(r.Context(), cookie.Value)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     creatorCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleCreatorMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := creatorFrom(r)
		writeJSON(w, http.StatusOK, CreatorResponse{ID: c.ID, Email: c.Email, Name: c.Name})
	}
}
