package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"

	"github.com/playperu/hunts/internal/handler/health"
)

func addRoutes(r chi.Router, logger *slog.Logger, svc Services, spaDir string) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Hunts API", "/openapi.json", "/docs"))
	r.Mount("/healthz", health.NewHandler(logger, svc.Checks).Routes())

	// Creator auth.
	r.Post("/api/creator/login", handleCreatorLogin(logger, svc.Store))
	r.Post("/api/creator/logout", handleCreatorLogout(svc.Store))
	r.With(creatorAuthMiddleware(logger, svc.Store)).Get("/api/creator/me", handleCreatorMe())

	// Hunt authoring and lifecycle, requires creator_session cookie.
	r.Route("/api/hunts", func(r chi.Router) {
		r.Use(creatorAuthMiddleware(logger, svc.Store))
		r.Get("/", handleListHunts(logger, svc.Publishing))
		r.Post("/", handleCreateHunt(logger, svc.Publishing))

		r.Route("/{huntID}", func(r chi.Router) {
			r.Get("/", handleGetHunt(logger, svc.Publishing))
			r.Delete("/", handleDeleteHunt(logger, svc.Publishing))
			r.Put("/draft", handleUpdateDraft(logger, svc.Publishing))
			r.Post("/draft/steps", handleAddStep(logger, svc.Publishing))
			r.Get("/versions", handleListVersions(logger, svc.Publishing))
			r.Post("/publish", handlePublish(logger, svc.Publishing))
			r.Post("/release", handleRelease(logger, svc.Publishing))
			r.Post("/offline", handleTakeOffline(logger, svc.Publishing))
			r.Post("/collaborators", handleGrantAccess(logger, svc.Access))
			r.Post("/invitations", handleInvite(logger, svc.Access))
		})
	})

	// Play. Starting a session is public; everything else needs the
	// session's Bearer token.
	r.Post("/api/play/{slug}/sessions", handleStartSession(logger, svc.Store, svc.Play))
	r.Route("/api/play/session", func(r chi.Router) {
		r.Use(playerAuthMiddleware)
		r.Get("/", handleGetSession(logger, svc.Play))
		r.Get("/steps/{stepID}", handleGetStep(logger, svc.Play))
		r.Post("/validate", handleValidate(logger, svc.Play))
		r.Post("/hint", handleHint(logger, svc.Play))
		r.Post("/assets", handleUploadAsset(logger, svc.Play, svc.Assets))
	})

	if spaDir != "" {
		if info, err := os.Stat(spaDir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", spaDir)
			r.NotFound(handleSPA(spaDir))
		}
	}
}
