package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/framecut/framecut-agent/internal/library"
	"github.com/framecut/framecut-agent/internal/multicam"
	"github.com/framecut/framecut-agent/internal/scheduler"
	"github.com/framecut/framecut-agent/internal/store"
	"github.com/framecut/framecut-agent/internal/stream"
)

// MediaService is the slice of the library the API needs.
type MediaService interface {
	ListFiles(ctx context.Context) ([]*library.MediaFile, error)
	Scan(ctx context.Context) (int, error)
}

// FileStreamer serves files with Range support.
type FileStreamer interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string, opts stream.Options) error
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

type ServerConfig struct {
	Port       int
	ExportsDir string
	Store      store.Store
	Media      MediaService
	Multicam   *multicam.Manager
	Streamer   FileStreamer
	Runner     *scheduler.Runner
	Logger     *slog.Logger
	StartTime  time.Time
}

func NewServer(cfg ServerConfig) *Server {
	router := NewRouter(cfg)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("127.0.0.1:%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
