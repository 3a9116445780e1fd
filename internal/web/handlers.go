package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/JonMunkholm/genecheck/internal/logging"
	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/JonMunkholm/genecheck/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// defaultRunsLimit is used when /api/runs has no limit parameter.
const defaultRunsLimit = 50

// multipartOverhead is allowed on top of the file size limit for form
// boundaries and other fields.
const multipartOverhead = 1 << 20

// ValidateResponse is the body of POST /api/validate. Run is nil when the
// source could not be read.
type ValidateResponse struct {
	Run   *core.Run      `json:"run,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// RunsResponse is the body of GET /api/runs.
type RunsResponse struct {
	Runs  []core.Run `json:"runs"`
	Count int        `json:"count"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status      string             `json:"status"`
	History     bool               `json:"history"`
	Database    string             `json:"database,omitempty"`
	Validations core.LimiterStatus `json:"validations"`
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// validateParams reads the query parameters of a validate request.
func (s *Server) validateParams(r *http.Request) (core.ValidateRequest, error) {
	q := r.URL.Query()
	req := core.ValidateRequest{
		Name:             strings.TrimSpace(q.Get("name")),
		IgnoreDuplicates: s.cfg.Validation.SkipDuplicates,
	}

	if v := q.Get("skip_duplicates"); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("%w: skip_duplicates must be a boolean", core.ErrInvalidRequest)
		}
		req.IgnoreDuplicates = skip
	}

	d, err := table.ParseDelimiter(q.Get("delimiter"))
	if err != nil {
		return req, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	req.Delimiter = d
	return req, nil
}

// openSource returns the uploaded file: the multipart field "file" when the
// request is a form, otherwise the raw body.
func (s *Server) openSource(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.Body, "", nil
	}

	maxSize := s.cfg.Validation.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", fmt.Errorf("%w: exceeds %d bytes", table.ErrFileTooLarge, maxSize)
		}
		return nil, "", fmt.Errorf("%w: invalid form: %v", core.ErrInvalidRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("%w: no file provided", core.ErrInvalidRequest)
	}
	return file, header.Filename, nil
}

// handleValidate checks an uploaded reference source.
//
// 200 when the gene fields pass, 422 with the run and error when they fail,
// 400 when the source is unreadable and 503 when no validation slot is free.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, err := s.validateParams(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	src, filename, err := s.openSource(w, r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer src.Close()

	if req.Name == "" {
		req.Name = filename
	}
	if req.Name == "" {
		req.Name = "upload"
	}
	req.Source = src

	ctx := WithRequestMetadata(r.Context(), r)
	run, err := s.service.Validate(ctx, req)
	if run == nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	status := http.StatusOK
	resp := ValidateResponse{Run: run}
	if err != nil {
		status = statusFor(err)
		resp.Error = newErrorResponse(core.NewUserError(err))
	}

	logging.WithFields(r.Context(), "run_id", run.ID, "source", run.SourceName).
		Info("validation served", "status", run.Status, "http_status", status)

	if isHTMX(r) {
		s.renderHTML(w, r, status, templates.RunCard(run))
		return
	}
	s.writeJSON(w, status, resp)
}

// handleListRuns returns recent runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", defaultRunsLimit)

	runs, err := s.service.Runs(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.writeJSON(w, http.StatusOK, RunsResponse{Runs: runs, Count: len(runs)})
}

// runFromPath loads the run named by the {id} URL parameter.
func (s *Server) runFromPath(r *http.Request) (*core.Run, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, fmt.Errorf("%w: malformed run id", core.ErrInvalidRequest)
	}
	return s.service.Run(r.Context(), id)
}

// handleGetRun returns one run as JSON.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.runFromPath(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleRunPage renders the HTML report of one run.
func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	run, err := s.runFromPath(r)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	s.renderHTML(w, r, http.StatusOK, templates.RunPage(run, time.Now()))
}

// handleHealth reports limiter occupancy and database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:      "ok",
		History:     s.service.HistoryEnabled(),
		Validations: s.service.Limiter().Status(),
	}
	status := http.StatusOK

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Database = "ok"
		if err := s.db.Ping(ctx); err != nil {
			s.logger.Warn("health check: database unreachable", "error", err)
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}

	s.writeJSON(w, status, resp)
}

func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		s.logger.Error("render page", "path", r.URL.Path, "error", err)
	}
}
