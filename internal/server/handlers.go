package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/tagmark/internal/config"
	"github.com/hyperjump/tagmark/internal/labeling"
	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleLabelText(w http.ResponseWriter, r *http.Request) {
	var input models.TextInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := input.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, s.service.Processor().ProcessText(input.Text))
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	batch, status, err := s.processUpload(r)
	if err != nil {
		s.respondError(w, status, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, batch)
}

func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	q := models.ListQuery{
		Offset: queryInt(r, "offset"),
		Limit:  queryInt(r, "limit"),
	}
	q.Normalize(s.config.DefaultListLimit, s.config.MaxListLimit)
	batches, err := s.service.ListBatches(r.Context(), q)
	if err != nil {
		s.logger.Error("list batches failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if batches == nil {
		batches = []*models.Batch{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"batches": batches,
		"offset":  q.Offset,
		"limit":   q.Limit,
	})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	batch, err := s.service.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "batch not found")
			return
		}
		s.logger.Error("get batch failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, batch)
}

func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete batch request", zap.String("id", id))
	if err := s.service.DeleteBatch(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "batch not found")
			return
		}
		s.logger.Error("deletion failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the shape of GET /api/v1/status.
type StatusResponse struct {
	Batches   int64              `json:"batches"`
	Records   int64              `json:"records"`
	DiskUsage *storage.DiskUsage `json:"disk_usage,omitempty"`
	Config    *StatusConfig      `json:"config,omitempty"`
}

// StatusConfig is the configuration part of StatusResponse.
type StatusConfig struct {
	Rules         []labeling.Rule `json:"rules"`
	HighlightTags []string        `json:"highlight_tags"`
	TextColumn    string          `json:"text_column"`
	LabelColumn   string          `json:"label_column"`
	OutputDir     string          `json:"output_dir"`
	OutputFormat  string          `json:"output_format"`
	DatabasePath  string          `json:"database_path"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	batchCount, err := s.storage.CountBatches(ctx)
	if err != nil {
		s.logger.Error("status: count batches failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	recordCount, err := s.storage.CountRecords(ctx)
	if err != nil {
		s.logger.Error("status: count records failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := StatusResponse{Batches: batchCount, Records: recordCount}

	if s.watchConfig != nil {
		resp.Config = &StatusConfig{
			Rules:         s.watchConfig.Labeling.Rules,
			HighlightTags: s.watchConfig.Labeling.HighlightTags,
			TextColumn:    s.watchConfig.Labeling.TextColumn,
			LabelColumn:   s.watchConfig.Labeling.LabelColumn,
			OutputDir:     s.watchConfig.Storage.OutputDir,
			OutputFormat:  s.watchConfig.Storage.OutputFormat,
			DatabasePath:  s.watchConfig.Storage.DatabasePath,
		}
		usage, err := storage.MeasureDiskUsage(s.watchConfig.Storage.DatabasePath, s.watchConfig.Storage.OutputDir)
		if err == nil {
			resp.DiskUsage = &usage
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	dirs := s.watch.Directories()
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": dirs})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories saves the current watch roots to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.watchConfig == nil {
		return
	}
	s.watchConfigMu.Lock()
	s.watchConfig.Watch.Directories = s.watch.Directories()
	err := config.Save(s.configPath, s.watchConfig)
	s.watchConfigMu.Unlock()
	if err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return 0
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
