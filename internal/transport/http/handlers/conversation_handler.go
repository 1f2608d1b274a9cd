package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/service"
	"github.com/vedran77/relaychat/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	convService *service.ConversationService
	log         *zap.Logger
}

func NewConversationHandler(convService *service.ConversationService, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{convService: convService, log: log}
}

func (h *ConversationHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		UserID uuid.UUID `json:"userId"`
	}
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.UserID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_USER_ID", "userId is required")
		return
	}

	conv, err := h.convService.GetOrCreate(r.Context(), userID, input.UserID)
	if err != nil {
		writeServiceError(w, h.log, "get or create conversation", err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.convService.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) Previews(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	previews, err := h.convService.Previews(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, "chat previews", err)
		return
	}

	writeJSON(w, http.StatusOK, previews)
}
