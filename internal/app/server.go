package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/vedran77/relaychat/internal/config"
	"go.uber.org/zap"
)

// Handler is the root HTTP handler of the API.
type Handler http.Handler

// Server owns the API listener.
type Server struct {
	http     *http.Server
	listener net.Listener
	log      *zap.Logger
}

func NewServer(cfg *config.Config, handler Handler, logger *zap.Logger) *Server {
	return &Server{
		http: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: logger,
	}
}

// Start binds the port and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", zap.Error(err))
		}
	}()
	return nil
}

// Addr is the bound address, valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.http.Addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
