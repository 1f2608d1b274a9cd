package handlers

import (
	"net/http"

	"github.com/vedran77/relaychat/internal/storage"
	"github.com/vedran77/relaychat/internal/transport/http/middleware"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Auth          *AuthHandler
	Users         *UserHandler
	Conversations *ConversationHandler
	Messages      *MessageHandler
	Verifier      middleware.TokenVerifier
	Uploads       http.Handler
	Log           *zap.Logger
}

func NewRouter(d RouterDeps) http.Handler {
	auth := middleware.Auth(d.Verifier)
	protected := func(h http.HandlerFunc) http.Handler { return auth(h) }

	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /api/auth/register", d.Auth.Register)
	mux.HandleFunc("POST /api/auth/login", d.Auth.Login)
	if d.Uploads != nil {
		mux.Handle("GET "+storage.URLPrefix, d.Uploads)
	}

	// Protected - Conversations
	mux.Handle("GET /api/conversations", protected(d.Conversations.List))
	mux.Handle("POST /api/conversations", protected(d.Conversations.GetOrCreate))
	mux.Handle("GET /api/chat-previews", protected(d.Conversations.Previews))

	// Protected - Messages
	mux.Handle("GET /api/messages", protected(d.Messages.List))
	mux.Handle("POST /api/messages", protected(d.Messages.Send))
	mux.Handle("PATCH /api/messages", protected(d.Messages.Update))
	mux.Handle("DELETE /api/messages", protected(d.Messages.Delete))
	mux.Handle("POST /api/messages/file", protected(d.Messages.SendFile))
	mux.Handle("POST /api/messages/audio", protected(d.Messages.SendAudio))

	// Protected - Users
	mux.Handle("GET /api/users", protected(d.Users.List))
	mux.Handle("GET /api/users/{id}", protected(d.Users.Get))
	mux.Handle("PUT /api/users/profile", protected(d.Users.UpdateProfile))
	mux.Handle("DELETE /api/users/profile", protected(d.Users.DeleteProfile))

	return middleware.CORS(middleware.Logger(d.Log)(mux))
}
