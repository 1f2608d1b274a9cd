// Package apitest starts an in-process API server and relay backed by the
// memory store, for tests that exercise the full HTTP and relay round trip.
package apitest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/relaychat/internal/repository/memory"
	"github.com/vedran77/relaychat/internal/service"
	"github.com/vedran77/relaychat/internal/storage"
	"github.com/vedran77/relaychat/internal/transport/http/handlers"
	"github.com/vedran77/relaychat/internal/transport/relay"
	"go.uber.org/zap"
)

const maxUploadBytes = 10 << 20

type Env struct {
	APIURL   string
	RelayURL string
	Store    *memory.Store
}

// Start launches both servers and stops them when t ends.
func Start(t testing.TB) *Env {
	t.Helper()

	log := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())

	// Relay
	reg := prometheus.NewRegistry()
	hub := relay.NewHub(log, relay.NewMetrics(reg))
	go hub.Run(ctx)
	relayServer := httptest.NewServer(relay.NewMux(hub, reg))
	relayURL := "ws" + strings.TrimPrefix(relayServer.URL, "http") + "/ws"

	// API
	blobs, err := storage.NewLocalStore(t.TempDir(), "")
	require.NoError(t, err)

	store := memory.New()
	publisher := relay.NewPublisher(relayURL, log)
	go publisher.Run(ctx)

	authService := service.NewAuthService(store.Users(), "apitest-secret")
	userService := service.NewUserService(store.Users(), store.Conversations(), store.Messages(), blobs)
	userService.SetNotifier(publisher)
	convService := service.NewConversationService(store.Conversations(), store.Messages(), store.Users())
	messageService := service.NewMessageService(store.Messages(), store.Conversations(), blobs)
	messageService.SetNotifier(publisher)

	apiServer := httptest.NewServer(handlers.NewRouter(handlers.RouterDeps{
		Auth:          handlers.NewAuthHandler(authService, log),
		Users:         handlers.NewUserHandler(userService, maxUploadBytes, log),
		Conversations: handlers.NewConversationHandler(convService, log),
		Messages:      handlers.NewMessageHandler(messageService, maxUploadBytes, log),
		Verifier:      authService,
		Uploads:       blobs.Handler(),
		Log:           log,
	}))

	t.Cleanup(func() {
		cancel()
		apiServer.Close()
		relayServer.Close()
	})

	return &Env{
		APIURL:   apiServer.URL,
		RelayURL: relayURL,
		Store:    store,
	}
}
