package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/relaychat/internal/domain"
	"github.com/vedran77/relaychat/internal/service"
	"github.com/vedran77/relaychat/internal/transport/http/middleware"
	"github.com/vedran77/relaychat/pkg/validator"
	"go.uber.org/zap"
)

// Multipart parts above this size spill to temporary files.
const multipartMemory = 32 << 20

type MessageHandler struct {
	messageService *service.MessageService
	maxUploadBytes int64
	log            *zap.Logger
}

func NewMessageHandler(messageService *service.MessageService, maxUploadBytes int64, log *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, err := uuid.Parse(r.URL.Query().Get("conversationId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	messages, err := h.messageService.List(r.Context(), userID, convID)
	if err != nil {
		writeServiceError(w, h.log, "list messages", err)
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input service.SendMessageInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.ConversationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	msg, err := h.messageService.Send(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, "send message", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) SendFile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}
	convID, err := uuid.Parse(r.FormValue("conversationId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "File is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	msg, err := h.messageService.SendFile(r.Context(), userID, service.SendFileInput{
		ConversationID: convID,
		Text:           r.FormValue("text"),
		FileName:       header.Filename,
		ContentType:    contentType,
		Body:           file,
	})
	if err != nil {
		writeServiceError(w, h.log, "send file", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) SendAudio(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if !parseMultipart(w, r, h.maxUploadBytes) {
		return
	}
	convID, err := uuid.Parse(r.FormValue("conversationId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid conversation ID")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "MISSING_FILE", "Audio is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "Could not read audio")
		return
	}

	msg, err := h.messageService.SendAudio(r.Context(), userID, convID, audio)
	if err != nil {
		writeServiceError(w, h.log, "send audio", err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

type updateMessageRequest struct {
	MessageID uuid.UUID `json:"messageId"`
	Delivered bool      `json:"delivered"`
	Read      bool      `json:"read"`
	Reaction  *struct {
		Emoji string `json:"emoji"`
	} `json:"reaction"`
	Action string `json:"action"`
}

// Update handles both reactions and delivery status. A request carrying a
// reaction is treated as a reaction change and its status flags are ignored.
func (h *MessageHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req updateMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.MessageID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid message ID")
		return
	}

	var (
		msg *domain.Message
		err error
	)
	if req.Reaction != nil {
		emoji := strings.TrimSpace(req.Reaction.Emoji)
		if errs := validator.ValidateReaction(emoji, req.Action); errs.HasErrors() {
			writeValidationErrors(w, errs)
			return
		}
		msg, err = h.messageService.React(r.Context(), userID, service.ReactInput{
			MessageID: req.MessageID,
			Emoji:     emoji,
			Action:    domain.ReactionAction(req.Action),
		})
	} else {
		msg, err = h.messageService.UpdateStatus(r.Context(), userID, service.UpdateStatusInput{
			MessageID: req.MessageID,
			Delivered: req.Delivered,
			Read:      req.Read,
		})
	}
	if err != nil {
		writeServiceError(w, h.log, "update message", err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// Delete accepts either {"messageId": …} or {"messageIds": […]}.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		MessageID  uuid.UUID   `json:"messageId"`
		MessageIDs []uuid.UUID `json:"messageIds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	ids := req.MessageIDs
	if req.MessageID != uuid.Nil {
		ids = append([]uuid.UUID{req.MessageID}, ids...)
	}

	deleted, err := h.messageService.Delete(r.Context(), userID, ids)
	if err != nil {
		writeServiceError(w, h.log, "delete messages", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func parseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) bool {
	if r.ContentLength > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the size limit")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "Upload exceeds the size limit")
		} else {
			writeError(w, http.StatusBadRequest, "INVALID_FORM", "Invalid multipart form")
		}
		return false
	}
	return true
}
