package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vedran77/relaychat/internal/service"
	"github.com/vedran77/relaychat/pkg/validator"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func writeValidationErrors(w http.ResponseWriter, errs validator.ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error": map[string]any{
			"code":   "VALIDATION_ERROR",
			"fields": errs,
		},
	})
}

// writeServiceError maps the service sentinels shared by the conversation,
// message and user endpoints. Anything unrecognised is logged as a 500.
func writeServiceError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		writeValidationErrors(w, verrs)
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
	case errors.Is(err, service.ErrConversationNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
	case errors.Is(err, service.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Message not found")
	case errors.Is(err, service.ErrNotParticipant):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
	case errors.Is(err, service.ErrOwnMessageStatus):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Only the receiver can update delivery status")
	case errors.Is(err, service.ErrCannotChatSelf):
		writeError(w, http.StatusBadRequest, "INVALID_PARTICIPANT", "Cannot start a conversation with yourself")
	case errors.Is(err, service.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "MISSING_CONTENT", "Message content is required")
	case errors.Is(err, service.ErrNoStatusChange):
		writeError(w, http.StatusBadRequest, "INVALID_UPDATE", "Provide delivered, read or a reaction")
	case errors.Is(err, service.ErrNoMessageIDs):
		writeError(w, http.StatusBadRequest, "MISSING_ID", "At least one message ID is required")
	default:
		log.Error(op, zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}
