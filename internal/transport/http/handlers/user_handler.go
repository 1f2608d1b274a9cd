package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/service"
	"github.com/vedran77/relaychat/internal/transport/http/middleware"
	"github.com/vedran77/relaychat/pkg/validator"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService    *service.UserService
	maxUploadBytes int64
	log            *zap.Logger
}

func NewUserHandler(userService *service.UserService, maxUploadBytes int64, log *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:    userService,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "list users", err)
		return
	}

	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.log, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}

	input := service.UpdateProfileInput{Name: r.FormValue("name")}
	if errs := validator.ValidateProfile(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		input.ImageName = header.Filename
		input.Image = file
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.userService.DeleteAccount(r.Context(), userID); err != nil {
		writeServiceError(w, h.log, "delete profile", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
