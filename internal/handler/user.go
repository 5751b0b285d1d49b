package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/intentflow/backend/internal/auth"
	"github.com/intentflow/backend/internal/model"
	"github.com/intentflow/backend/internal/service"
)

// UserHandler serves the authenticated account's own record.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// userResponse is the success envelope carrying a single account record.
type userResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	User    *model.User `json:"user"`
}

// HandleGet returns the caller's own sanitized record.
//
// HTTP: GET /user (bearer)
//
// 404 when the token's subject no longer resolves to a stored account, e.g.
// the account was deleted after the token was issued.
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Authentication required"})
		return
	}

	user, err := h.users.GetByID(r.Context(), principal.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{Success: true, User: user})
}

// updateProfileRequest uses pointer fields so "absent" and "present but
// empty" are distinct: omitting firstName leaves it alone, sending
// "firstName": "" clears it. Privileged fields such as role are not part of
// this payload; json decoding drops them silently if sent.
type updateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Company   *string `json:"company"`
}

func (r updateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.RuneLength(0, 100)),
		validation.Field(&r.LastName, validation.RuneLength(0, 100)),
		validation.Field(&r.Company, validation.RuneLength(0, 200)),
	)
}

// HandleUpdate updates the caller's own profile fields.
//
// HTTP: PUT /user (bearer)
// Body: {"firstName"?, "lastName"?, "company"?}
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Authentication required"})
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid JSON body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), principal.UserID, service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Company:   req.Company,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		Success: true,
		Message: "Profile updated",
		User:    user,
	})
}
