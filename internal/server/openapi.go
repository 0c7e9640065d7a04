package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/hunts/internal/hunt"
	"github.com/playperu/hunts/internal/play"
	"github.com/playperu/hunts/internal/publishing"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps dependency names to their check result.
type HealthResponse map[string]struct {
	Status     string `json:"status"`
	DurationMS int64  `json:"durationMs"`
}

type huntParams struct {
	HuntID int64 `path:"huntID"`
}

type slugParams struct {
	Slug string `path:"slug"`
}

type stepParams struct {
	StepID int64 `path:"stepID"`
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Hunts API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Authoring, publishing and playing of city hunts.")

	// GET /healthz
	healthCheck, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	healthCheck.SetSummary("Health check")
	healthCheck.SetDescription("Returns the health status of backend dependencies.")
	healthCheck.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	healthCheck.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(healthCheck)

	// POST /api/creator/login
	creatorLogin, _ := r.NewOperationContext(http.MethodPost, "/api/creator/login")
	creatorLogin.SetSummary("Creator login")
	creatorLogin.SetDescription("Authenticate with email and password. Sets the creator_session cookie.")
	creatorLogin.AddReqStructure(CreatorLoginRequest{})
	creatorLogin.AddRespStructure(CreatorResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	creatorLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	creatorLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(creatorLogin)

	// POST /api/creator/logout
	creatorLogout, _ := r.NewOperationContext(http.MethodPost, "/api/creator/logout")
	creatorLogout.SetSummary("Creator logout")
	creatorLogout.SetDescription("Clears the creator session and cookie.")
	creatorLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(creatorLogout)

	// GET /api/creator/me
	currentCreator, _ := r.NewOperationContext(http.MethodGet, "/api/creator/me")
	currentCreator.SetSummary("Current creator")
	currentCreator.SetDescription("Returns the signed-in creator.")
	currentCreator.AddRespStructure(CreatorResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	currentCreator.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(currentCreator)

	// GET /api/hunts
	listHunts, _ := r.NewOperationContext(http.MethodGet, "/api/hunts")
	listHunts.SetSummary("List hunts")
	listHunts.SetDescription("Returns the hunts owned by the signed-in creator.")
	listHunts.AddRespStructure([]HuntResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listHunts.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(listHunts)

	// POST /api/hunts
	createHunt, _ := r.NewOperationContext(http.MethodPost, "/api/hunts")
	createHunt.SetSummary("Create hunt")
	createHunt.SetDescription("Creates a hunt with an empty version 1 draft.")
	createHunt.AddReqStructure(CreateHuntRequest{})
	createHunt.AddRespStructure(HuntResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	createHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	createHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(createHunt)

	// GET /api/hunts/{huntID}
	getHunt, _ := r.NewOperationContext(http.MethodGet, "/api/hunts/{huntID}")
	getHunt.SetSummary("Get hunt")
	getHunt.SetDescription("Returns the hunt with its draft and draft steps. Requires view access.")
	getHunt.AddReqStructure(huntParams{})
	getHunt.AddRespStructure(HuntDetailResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	getHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getHunt)

	// DELETE /api/hunts/{huntID}
	deleteHunt, _ := r.NewOperationContext(http.MethodDelete, "/api/hunts/{huntID}")
	deleteHunt.SetSummary("Delete hunt")
	deleteHunt.SetDescription("Soft-deletes the hunt. Owner only. Fails while the hunt is live.")
	deleteHunt.AddReqStructure(huntParams{})
	deleteHunt.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	deleteHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	deleteHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	deleteHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	deleteHunt.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(deleteHunt)

	// PUT /api/hunts/{huntID}/draft
	updateDraft, _ := r.NewOperationContext(http.MethodPut, "/api/hunts/{huntID}/draft")
	updateDraft.SetSummary("Update draft")
	updateDraft.SetDescription("Replaces the draft's metadata and optionally its step order.")
	updateDraft.AddReqStructure(huntParams{})
	updateDraft.AddReqStructure(UpdateDraftRequest{})
	updateDraft.AddRespStructure(VersionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	updateDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	updateDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	updateDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	updateDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	updateDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(updateDraft)

	// POST /api/hunts/{huntID}/draft/steps
	addStep, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntID}/draft/steps")
	addStep.SetSummary("Add step")
	addStep.SetDescription("Appends a step to the draft. The challenge must define exactly one of clue, quiz, mission or task.")
	addStep.AddReqStructure(huntParams{})
	addStep.AddReqStructure(AddStepRequest{})
	addStep.AddRespStructure(StepResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	addStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	addStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	addStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	addStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	addStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(addStep)

	// GET /api/hunts/{huntID}/versions
	listVersions, _ := r.NewOperationContext(http.MethodGet, "/api/hunts/{huntID}/versions")
	listVersions.SetSummary("List versions")
	listVersions.SetDescription("Returns every retained version, newest first.")
	listVersions.AddReqStructure(huntParams{})
	listVersions.AddRespStructure([]VersionResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	listVersions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	listVersions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	listVersions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(listVersions)

	// POST /api/hunts/{huntID}/publish
	publishDraft, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntID}/publish")
	publishDraft.SetSummary("Publish draft")
	publishDraft.SetDescription("Freezes the draft as a published version and opens the next draft.")
	publishDraft.AddReqStructure(huntParams{})
	publishDraft.AddRespStructure(publishing.PublishResult{}, openapi.WithHTTPStatus(http.StatusOK))
	publishDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	publishDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	publishDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	publishDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	publishDraft.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(publishDraft)

	// POST /api/hunts/{huntID}/release
	releaseVersion, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntID}/release")
	releaseVersion.SetSummary("Release version")
	releaseVersion.SetDescription("Makes a published version live. Omit version to release the newest published one.")
	releaseVersion.AddReqStructure(huntParams{})
	releaseVersion.AddReqStructure(ReleaseRequest{})
	releaseVersion.AddRespStructure(publishing.ReleaseResult{}, openapi.WithHTTPStatus(http.StatusOK))
	releaseVersion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	releaseVersion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	releaseVersion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	releaseVersion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	releaseVersion.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(releaseVersion)

	// POST /api/hunts/{huntID}/offline
	takeOffline, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntID}/offline")
	takeOffline.SetSummary("Take offline")
	takeOffline.SetDescription("Clears the live version.")
	takeOffline.AddReqStructure(huntParams{})
	takeOffline.AddReqStructure(OfflineRequest{})
	takeOffline.AddRespStructure(publishing.ReleaseResult{}, openapi.WithHTTPStatus(http.StatusOK))
	takeOffline.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	takeOffline.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	takeOffline.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	takeOffline.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	takeOffline.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(takeOffline)

	// POST /api/hunts/{huntID}/collaborators
	grantAccess, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntID}/collaborators")
	grantAccess.SetSummary("Grant access")
	grantAccess.SetDescription("Gives a user view or admin permission. Owner only.")
	grantAccess.AddReqStructure(huntParams{})
	grantAccess.AddReqStructure(GrantAccessRequest{})
	grantAccess.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	grantAccess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	grantAccess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	grantAccess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	grantAccess.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(grantAccess)

	// POST /api/hunts/{huntID}/invitations
	invitePlayer, _ := r.NewOperationContext(http.MethodPost, "/api/hunts/{huntID}/invitations")
	invitePlayer.SetSummary("Invite player")
	invitePlayer.SetDescription("Adds an email to the invitation list of an invite-only hunt.")
	invitePlayer.AddReqStructure(huntParams{})
	invitePlayer.AddReqStructure(InviteRequest{})
	invitePlayer.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusCreated))
	invitePlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	invitePlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	invitePlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	invitePlayer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(invitePlayer)

	// POST /api/play/{slug}/sessions
	startSession, _ := r.NewOperationContext(http.MethodPost, "/api/play/{slug}/sessions")
	startSession.SetSummary("Start session")
	startSession.SetDescription("Starts a play session on the hunt's live version. Returns the Bearer token for the other play calls.")
	startSession.AddReqStructure(slugParams{})
	startSession.AddReqStructure(StartSessionRequest{})
	startSession.AddRespStructure(StartSessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	startSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	startSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	startSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(startSession)

	// GET /api/play/session
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/play/session")
	getSession.SetSummary("Get session")
	getSession.SetDescription("Returns the session's progress summary.")
	getSession.AddRespStructure(play.SessionView{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// GET /api/play/session/steps/{stepID}
	getStep, _ := r.NewOperationContext(http.MethodGet, "/api/play/session/steps/{stepID}")
	getStep.SetSummary("Get step")
	getStep.SetDescription("Returns the current step or a preview of the next one. Answers are never included.")
	getStep.AddReqStructure(stepParams{})
	getStep.AddRespStructure(play.StepView{}, openapi.WithHTTPStatus(http.StatusOK))
	getStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusForbidden))
	getStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	getStep.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(getStep)

	// POST /api/play/session/validate
	submitAnswer, _ := r.NewOperationContext(http.MethodPost, "/api/play/session/validate")
	submitAnswer.SetSummary("Submit answer")
	submitAnswer.SetDescription("Validates an answer for the current step and advances on success.")
	submitAnswer.AddReqStructure(hunt.Submission{})
	submitAnswer.AddRespStructure(play.Verdict{}, openapi.WithHTTPStatus(http.StatusOK))
	submitAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	submitAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	submitAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	submitAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	submitAnswer.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(submitAnswer)

	// POST /api/play/session/hint
	revealHint, _ := r.NewOperationContext(http.MethodPost, "/api/play/session/hint")
	revealHint.SetSummary("Reveal hint")
	revealHint.SetDescription("Reveals the current step's hint. One hint per step.")
	revealHint.AddRespStructure(play.HintView{}, openapi.WithHTTPStatus(http.StatusOK))
	revealHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	revealHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	revealHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	revealHint.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	_ = r.AddOperation(revealHint)

	// POST /api/play/session/assets
	uploadMedia, _ := r.NewOperationContext(http.MethodPost, "/api/play/session/assets")
	uploadMedia.SetSummary("Upload media")
	uploadMedia.SetDescription("Stores the raw body (image, audio or video) and returns an asset id for media missions.")
	uploadMedia.AddRespStructure(AssetResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	uploadMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	uploadMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	uploadMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	uploadMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	uploadMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusRequestEntityTooLarge))
	uploadMedia.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(uploadMedia)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
