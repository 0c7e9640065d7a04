package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/playperu/hunts/internal/hunt"
)

func statusFor(k hunt.Kind) int {
	switch k {
	case hunt.KindNotFound:
		return http.StatusNotFound
	case hunt.KindForbidden:
		return http.StatusForbidden
	case hunt.KindInvalid:
		return http.StatusBadRequest
	case hunt.KindConflict:
		return http.StatusConflict
	case hunt.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a domain error to its HTTP status. Only the
// classified message reaches the client; causes are logged.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var e *hunt.Error
	if !errors.As(err, &e) || e.Kind == hunt.KindInternal {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if e.Kind == hunt.KindUnavailable {
		logger.Warn("dependency unavailable", "path", r.URL.Path, "error", err)
	}
	writeError(w, statusFor(e.Kind), e.Message)
}
