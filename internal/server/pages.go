package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/hyperjump/tagmark/internal/models"
	"github.com/hyperjump/tagmark/internal/pipeline"
	"github.com/hyperjump/tagmark/internal/storage"
	"github.com/hyperjump/tagmark/internal/tabular"
	"go.uber.org/zap"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderHTML(w, http.StatusOK, indexTemplate, struct{ SampleText string }{sampleText})
}

func (s *Server) handleProcessCSV(w http.ResponseWriter, r *http.Request) {
	batch, status, err := s.processUpload(r)
	if err != nil {
		s.renderHTML(w, status, errorTemplate, err.Error())
		return
	}
	s.renderHTML(w, http.StatusOK, batchTemplate, s.newBatchView(batch))
}

func (s *Server) handleProcessText(w http.ResponseWriter, r *http.Request) {
	input := models.TextInput{Text: r.FormValue("text")}
	if err := input.Validate(); err != nil {
		s.renderHTML(w, http.StatusBadRequest, errorTemplate, err.Error())
		return
	}
	res := s.service.Processor().ProcessText(input.Text)
	s.logger.Debug("process text request", zap.Int("tokens", len(res.Labels)), zap.Bool("matched", res.Matched))
	s.renderHTML(w, http.StatusOK, textTemplate, textView{
		// Highlighter output escapes every token.
		Highlighted: template.HTML(res.Highlighted),
		Labels:      res.Serialized,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		s.respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	batch, err := s.storage.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "batch not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	f, err := os.Open(batch.OutputPath)
	if err != nil {
		s.logger.Warn("processed file missing", zap.String("id", id), zap.String("path", batch.OutputPath), zap.Error(err))
		s.respondError(w, http.StatusNotFound, "processed file not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ext := filepath.Ext(batch.OutputPath)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=processed%s", ext))
	w.Header().Set("Content-Type", contentType(ext))
	http.ServeContent(w, r, "processed"+ext, info.ModTime(), f)
}

// processUpload reads the multipart "file" field and processes it as a batch.
// The returned status is meaningful only when err is non-nil.
func (s *Server) processUpload(r *http.Request) (*models.Batch, int, error) {
	limit := s.config.MaxUploadBytes
	if limit > 0 {
		if r.ContentLength > limit {
			return nil, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload of %d bytes exceeds the %d byte limit", r.ContentLength, limit)
		}
		r.Body = http.MaxBytesReader(nil, r.Body, limit)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds the %d byte limit: %w", limit, err)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("file is required: %w", err)
	}
	defer file.Close()

	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	batch, _, err := s.service.ProcessUpload(r.Context(), file, header.Filename)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrMissingTextColumn),
			errors.Is(err, tabular.ErrEmptyTable),
			errors.Is(err, tabular.ErrUnsupportedFormat):
			return nil, http.StatusBadRequest, err
		}
		if tooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, err
		}
		s.logger.Error("processing upload failed", zap.String("filename", header.Filename), zap.Error(err))
		return nil, http.StatusInternalServerError, err
	}
	return batch, 0, nil
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func (s *Server) newBatchView(batch *models.Batch) batchView {
	v := batchView{
		ID:          batch.ID,
		Source:      batch.Source,
		Records:     batch.RecordCount,
		Matched:     batch.MatchedCount,
		Malformed:   batch.MalformedCount,
		DownloadURL: "/download-processed-csv?id=" + url.QueryEscape(batch.ID),
		TextColumn:  "processed_text",
		LabelColumn: "label",
	}
	if s.watchConfig != nil {
		v.TextColumn = s.watchConfig.Labeling.TextColumn
		v.LabelColumn = s.watchConfig.Labeling.LabelColumn
	}
	for _, rec := range batch.Records {
		v.Rows = append(v.Rows, rowView{
			// Highlighter output escapes every token.
			Highlighted: template.HTML(rec.Highlighted),
			Labels:      rec.LabelCell,
			Error:       rec.Error,
		})
	}
	return v
}

func contentType(ext string) string {
	if ext == ".xlsx" {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

func (s *Server) renderHTML(w http.ResponseWriter, status int, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Warn("render template failed", zap.String("template", tmpl.Name()), zap.Error(err))
	}
}
