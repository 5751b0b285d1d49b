package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/intentflow/backend/internal/model"
	"github.com/intentflow/backend/internal/service"
)

// AdminHandler serves the privileged account listing and editing endpoints.
// Role enforcement happens in the RequireAdmin middleware; by the time these
// handlers run the principal is known to be an admin.
type AdminHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(users *service.UserService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{users: users, logger: logger}
}

// listResponse is the success envelope for the user listing.
type listResponse struct {
	Success    bool               `json:"success"`
	Users      []model.User       `json:"users"`
	Pagination service.Pagination `json:"pagination"`
}

// HandleList returns a filtered, paginated account listing.
//
// HTTP: GET /admin/users?page&limit&search&subscription (bearer+admin)
func (h *AdminHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	users, pagination, err := h.users.List(r.Context(), service.ListParams{
		Page:         page,
		Limit:        limit,
		Search:       q.Get("search"),
		Subscription: q.Get("subscription"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Users:      users,
		Pagination: pagination,
	})
}

// adminUpdateRequest follows the same pointer-field convention as the
// profile payload; isVerified being *bool means an explicit false is applied
// rather than treated as "omitted".
type adminUpdateRequest struct {
	UserID       string  `json:"userId"`
	Subscription *string `json:"subscription"`
	Role         *string `json:"role"`
	IsVerified   *bool   `json:"isVerified"`
}

func (r adminUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required),
		validation.Field(&r.Subscription, validation.In("free", "pro", "enterprise")),
		validation.Field(&r.Role, validation.In("user", "admin")),
	)
}

// HandleUpdate edits the privileged fields of any target account.
//
// HTTP: PUT /admin/users (bearer+admin)
// Body: {"userId", "subscription"?, "role"?, "isVerified"?}
func (h *AdminHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid JSON body"})
		return
	}
	if err := req.Validate(); err != nil {
		writeValidationError(w, err)
		return
	}

	user, err := h.users.UpdateUser(r.Context(), req.UserID, service.AdminUpdate{
		Subscription: req.Subscription,
		Role:         req.Role,
		IsVerified:   req.IsVerified,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		Success: true,
		Message: "User updated",
		User:    user,
	})
}

// HandleDelete removes an account.
//
// HTTP: DELETE /admin/users?userId=xxx (bearer+admin)
func (h *AdminHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "userId query parameter is required"})
		return
	}

	if err := h.users.DeleteUser(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{true, "User deleted"})
}
