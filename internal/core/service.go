package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/google/uuid"
)

// ValidateTimeout bounds a single validation, including reading the source.
var ValidateTimeout = 2 * time.Minute

// RunStore persists validation runs.
type RunStore interface {
	Record(ctx context.Context, run *Run) error
	Get(ctx context.Context, id uuid.UUID) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
}

// ServiceConfig wires a Service. Only Validator is required.
type ServiceConfig struct {
	Validator *Validator
	Limiter   *Limiter
	Runs      RunStore // nil disables history
	Read      table.ReadOptions
	Logger    *slog.Logger
}

// Service loads reference sources, validates them, and records the outcome.
// It is the entry point shared by the HTTP server and the CLI.
type Service struct {
	validator *Validator
	limiter   *Limiter
	runs      RunStore
	read      table.ReadOptions
	logger    *slog.Logger
}

// NewService creates a Service from cfg.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		validator: cfg.Validator,
		limiter:   cfg.Limiter,
		runs:      cfg.Runs,
		read:      cfg.Read,
		logger:    cfg.Logger,
	}
	if s.validator == nil {
		s.validator = NewValidator(ValidatorConfig{Logger: cfg.Logger})
	}
	if s.limiter == nil {
		s.limiter = NewLimiter(0, 0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ValidateRequest describes one source to validate.
type ValidateRequest struct {
	Name             string    // Display name, usually the file name
	Source           io.Reader // Delimited text: header, definition row, content rows
	IgnoreDuplicates bool
	Delimiter        rune // Overrides the configured delimiter when non-zero
}

// Validate reads and checks a source.
//
// When the source cannot be read or no validation slot frees up, the
// returned run is nil. Otherwise a run is always returned: its Status says
// whether the gene fields passed and err carries the validation error.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, ValidateTimeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		s.logger.WarnContext(ctx, "validation rejected", "source", req.Name, "error", err)
		return nil, err
	}
	defer s.limiter.Release()

	opts := s.read
	if req.Delimiter != 0 {
		opts.Delimiter = req.Delimiter
	}

	start := time.Now()
	src, err := table.ReadSource(req.Source, opts)
	if err != nil {
		s.logger.WarnContext(ctx, "source unreadable", "source", req.Name, "error", err)
		return nil, fmt.Errorf("read %s: %w", req.Name, err)
	}

	run := &Run{
		ID:               uuid.New(),
		SourceName:       req.Name,
		Origin:           OriginFromContext(ctx),
		IgnoreDuplicates: req.IgnoreDuplicates,
		RowCount:         src.Content.Len(),
		GeneFields:       []string{},
		CreatedAt:        time.Now().UTC(),
	}

	res, verr := s.validator.Check(ctx, src.Definition, src.Content, req.IgnoreDuplicates)
	if verr != nil {
		run.Status = RunFailed
		msg := MapError(verr)
		run.ErrorCode = msg.Code
		run.ErrorMessage = verr.Error()

		var dupErr *DuplicateAccessionsError
		if errors.As(verr, &dupErr) {
			run.Findings = dupErr.Findings
		}
	} else {
		run.Status = RunPassed
		run.GeneFields = res.GeneFields
		run.Findings = res.Findings
	}

	runLog := s.logger.With("run_id", run.ID, "source", run.SourceName)
	runLog.InfoContext(ctx, "validation completed",
		"status", run.Status,
		"genes", len(run.GeneFields),
		"rows", run.RowCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	s.record(ctx, runLog, run)
	return run, verr
}

// record stores run when history is enabled. A storage failure is logged and
// never changes the validation outcome.
func (s *Service) record(ctx context.Context, log *slog.Logger, run *Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Record(ctx, run); err != nil {
		log.ErrorContext(ctx, "record run failed", "error", err)
	}
}

// HistoryEnabled reports whether runs are being recorded.
func (s *Service) HistoryEnabled() bool {
	return s.runs != nil
}

// Run returns one recorded run.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (*Run, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runs.Get(ctx, id)
}

// Runs returns the most recent runs, newest first.
func (s *Service) Runs(ctx context.Context, limit int) ([]Run, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runs.List(ctx, limit)
}

// Limiter exposes the validation limiter for status reporting and shutdown.
func (s *Service) Limiter() *Limiter {
	return s.limiter
}
