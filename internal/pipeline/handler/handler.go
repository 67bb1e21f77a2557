// Package handler exposes batch generation over HTTP: a synchronous endpoint
// for small batches and an async job flow for large ones.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"certpass/internal/pipeline"
	"certpass/internal/pipeline/job"
	dErrors "certpass/pkg/domain-errors"
	"certpass/pkg/httputil"
	"certpass/pkg/platform/sentinel"
	"certpass/pkg/requestcontext"
)

// Runner abstracts the pipeline so handler tests can substitute outcomes.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, progress pipeline.ProgressFunc) ([]pipeline.Document, error)
}

type Handler struct {
	runner      Runner
	jobs        job.Store
	logger      *slog.Logger
	salt        string
	linkBaseURL string
}

// New constructs the generation handler. The salt is deployment configuration
// and is stamped onto every request here; client payloads cannot carry one.
func New(runner Runner, jobs job.Store, logger *slog.Logger, salt, linkBaseURL string) *Handler {
	return &Handler{
		runner:      runner,
		jobs:        jobs,
		logger:      logger,
		salt:        salt,
		linkBaseURL: linkBaseURL,
	}
}

// Register mounts generation endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/generate", h.HandleGenerate)
	r.Post("/generate/async", h.HandleGenerateAsync)
	r.Get("/generate/jobs/{id}", h.HandleJobStatus)
	r.Get("/generate/jobs/{id}/report", h.HandleJobReport)
}

// GenerateResponse is the synchronous endpoint's body.
type GenerateResponse struct {
	Certificates []pipeline.Document `json:"certificates"`
	Summary      pipeline.Summary    `json:"summary"`
}

// HandleGenerate handles POST /generate: run the batch inline and return every
// document. Suited to batches small enough to finish within the request.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	docs, err := h.runner.Run(ctx, req, nil)
	if err != nil {
		h.logger.ErrorContext(ctx, "generation batch failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, GenerateResponse{
		Certificates: docs,
		Summary:      pipeline.Summarize(docs),
	})
}

// AsyncResponse acknowledges an accepted async batch.
type AsyncResponse struct {
	JobID string `json:"job_id"`
}

// HandleGenerateAsync handles POST /generate/async: accept the batch, return a
// job ID immediately and run in the background. Job state is polled via
// HandleJobStatus; document bytes are not retained, only per-row outcomes.
func (h *Handler) HandleGenerateAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}
	if len(req.Recipients) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "recipients are required"))
		return
	}
	if err := req.Template.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	state := job.State{
		ID:        uuid.NewString(),
		Status:    job.StatusRunning,
		Total:     len(req.Recipients),
		CreatedAt: requestcontext.Now(ctx).UTC(),
		UpdatedAt: requestcontext.Now(ctx).UTC(),
	}
	if err := h.jobs.Save(ctx, state); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "job store unavailable"))
		return
	}

	// The run outlives the request; detach cancellation but keep values
	// (request ID) for log correlation.
	go h.runJob(context.WithoutCancel(ctx), state, req)

	httputil.WriteJSON(w, http.StatusAccepted, AsyncResponse{JobID: state.ID})
}

func (h *Handler) runJob(ctx context.Context, state job.State, req pipeline.Request) {
	docs, runErr := h.runner.Run(ctx, req, func(completed, total, percent int) {
		state.Completed = completed
		state.Percent = percent
		state.UpdatedAt = requestcontext.Now(ctx).UTC()
		if err := h.jobs.Save(ctx, state); err != nil {
			h.logger.WarnContext(ctx, "job progress save failed", "job_id", state.ID, "error", err)
		}
	})

	state.Status = job.StatusCompleted
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			state.Status = job.StatusCancelled
		} else {
			h.logger.ErrorContext(ctx, "async generation failed", "job_id", state.ID, "error", runErr)
			state.Status = job.StatusFailed
			state.Error = runErr.Error()
		}
	}

	state.Completed = len(docs)
	if state.Total > 0 {
		state.Percent = len(docs) * 100 / state.Total
	}
	state.Items = make([]job.Item, 0, len(docs))
	for _, d := range docs {
		state.Items = append(state.Items, job.Item{
			RecipientEmail: d.RecipientID,
			Fingerprint:    d.Fingerprint,
			Status:         string(d.Status),
			Error:          d.Error,
		})
	}
	state.UpdatedAt = requestcontext.Now(ctx).UTC()

	if err := h.jobs.Save(ctx, state); err != nil {
		h.logger.ErrorContext(ctx, "job final save failed", "job_id", state.ID, "error", err)
	}
}

// HandleJobStatus handles GET /generate/jobs/{id}.
func (h *Handler) HandleJobStatus(w http.ResponseWriter, r *http.Request) {
	state, ok := h.findJob(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, state)
}

// HandleJobReport handles GET /generate/jobs/{id}/report, serving the outcome
// spreadsheet for a finished job.
func (h *Handler) HandleJobReport(w http.ResponseWriter, r *http.Request) {
	state, ok := h.findJob(w, r)
	if !ok {
		return
	}
	if state.Status == job.StatusRunning {
		httputil.WriteError(w, dErrors.New(dErrors.CodeConflict, "job is still running"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "generation-"+state.ID+".xlsx"))
	if err := pipeline.WriteReport(w, state); err != nil {
		h.logger.ErrorContext(r.Context(), "report write failed", "job_id", state.ID, "error", err)
	}
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	req, ok := httputil.DecodeJSON[pipeline.Request](w, r, h.logger)
	if !ok {
		return pipeline.Request{}, false
	}
	// Server-held secrets and deployment settings override anything decoded.
	req.Config.Salt = h.salt
	req.LinkBaseURL = h.linkBaseURL
	return req, true
}

func (h *Handler) findJob(w http.ResponseWriter, r *http.Request) (job.State, bool) {
	id := chi.URLParam(r, "id")
	state, err := h.jobs.Find(r.Context(), id)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "job not found"))
		return job.State{}, false
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "job store unavailable"))
		return job.State{}, false
	}
	return state, true
}
