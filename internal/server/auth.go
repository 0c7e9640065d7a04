package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/storage"
)

type ctxKey int

const (
	ctxKeyCreator ctxKey = iota
	ctxKeySession
)

const (
	creatorCookieName = "creator_session"
	creatorSessionTTL = 7 * 24 * time.Hour
)

// creatorFromRequest reads the creator_session cookie and resolves it to an
// unexpired session. A missing or unknown session is not an error.
func creatorFromRequest(r *http.Request, store *storage.Store) (storage.Creator, bool, error) {
	cookie, err := r.Cookie(creatorCookieName)
	if err != nil || cookie.Value == "" {
		return storage.Creator{}, false, nil
	}
	c, err := store.Queries().CreatorFromSession(r.Context(), cookie.Value, time.Now())
	if errors.Is(err, hunt.ErrNotFound) {
		return storage.Creator{}, false, nil
	}
	if err != nil {
		return storage.Creator{}, false, fmt.Errorf("resolving creator session: %w", err)
	}
	return c, true, nil
}

func creatorAuthMiddleware(logger *slog.Logger, store *storage.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok, err := creatorFromRequest(r, store)
			if err != nil {
				writeServiceError(w, r, logger, err)
				return
			}
			if !ok {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyCreator, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func creatorFrom(r *http.Request) storage.Creator {
	return r.Context().Value(ctxKeyCreator).(storage.Creator)
}

// playerAuthMiddleware requires a Bearer token. The token is the session id;
// unknown ids surface as not found from the engine.
func playerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !found || token == "" {
			writeError(w, http.StatusUnauthorized, "missing session token")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) string {
	return r.Context().Value(ctxKeySession).(string)
}
