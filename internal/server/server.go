// Package server provides the HTTP pages and JSON API for tagmark.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/tagmark/internal/config"
	"github.com/hyperjump/tagmark/internal/pipeline"
	"github.com/hyperjump/tagmark/internal/storage"
	"go.uber.org/zap"
)

// WatchService manages the inbox directories watched for new tables.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the tagmark pages and API.
type Server struct {
	service       *pipeline.Service
	storage       storage.Storage
	config        *config.ServerConfig
	logger        *zap.Logger
	server        *http.Server
	watch         WatchService
	configPath    string
	watchConfig   *config.Config
	watchConfigMu sync.Mutex
}

// NewServer creates a server with the given dependencies.
// watch may be nil when inbox watching is disabled. When configPath and fullCfg
// are set, watch directory changes are persisted to the config file.
func NewServer(
	service *pipeline.Service,
	storage storage.Storage,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
	fullCfg *config.Config,
) *Server {
	return &Server{
		service:     service,
		storage:     storage,
		config:      cfg,
		logger:      logger,
		watch:       watch,
		configPath:  configPath,
		watchConfig: fullCfg,
	}
}

// Routes returns the HTTP handler with all routes mounted.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Post("/process-csv", s.handleProcessCSV)
	r.Post("/process-text", s.handleProcessText)
	r.Get("/download-processed-csv", s.handleDownload)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/text", s.handleLabelText)
		r.Post("/batches", s.handleCreateBatch)
		r.Get("/batches", s.handleListBatches)
		r.Get("/batches/{id}", s.handleGetBatch)
		r.Delete("/batches/{id}", s.handleDeleteBatch)
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
