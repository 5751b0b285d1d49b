package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/intentflow/backend/internal/auth"
	"github.com/intentflow/backend/internal/service"
)

// DownloadHandler serves download-link issuance and redemption.
type DownloadHandler struct {
	downloads *service.DownloadService
	logger    *slog.Logger
}

// NewDownloadHandler creates a DownloadHandler.
func NewDownloadHandler(downloads *service.DownloadService, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{downloads: downloads, logger: logger}
}

// downloadResponse is the success envelope for issuance.
type downloadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DownloadURL string `json:"downloadUrl"`
	ExpiresIn   int    `json:"expiresIn"`
	Version     string `json:"version"`
	Platform    string `json:"platform"`
}

type downloadRequest struct {
	Platform string `json:"platform"`
}

func (r downloadRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Platform, validation.Required),
	)
}

// HandleIssue issues a time-boxed download link for the caller's account.
//
// HTTP: POST /download (bearer)
// Body: {"platform": "windows"|"macos"|"linux"|"chrome"|"firefox"}
//
// The returned downloadUrl carries a signed one-hour token; expiresIn is its
// remaining validity in seconds.
func (h *DownloadHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Authentication required"})
		return
	}

	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid JSON body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	issued, err := h.downloads.Issue(r.Context(), principal.UserID, req.Platform)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadResponse{
		Success:     true,
		Message:     "Download link generated",
		DownloadURL: issued.URL,
		ExpiresIn:   issued.ExpiresIn,
		Version:     issued.Version,
		Platform:    issued.Platform,
	})
}

// HandleFile redeems a download token and redirects to the release artifact.
//
// HTTP: GET /download/file?token=xxx
//
// The token is the only credential here; the link is opened by a plain
// browser navigation with no Authorization header.
func (h *DownloadHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "token query parameter is required"})
		return
	}

	releaseURL, err := h.downloads.Redeem(token)
	if err != nil {
		writeError(w, err)
		return
	}

	http.Redirect(w, r, releaseURL, http.StatusFound)
}
