// Package handler exposes fingerprint verification over HTTP. Both routes
// answer the same question; the GET form backs the QR link on a document, the
// POST form backs the manual lookup page.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"certpass/internal/verify"
	dErrors "certpass/pkg/domain-errors"
	"certpass/pkg/httputil"
	"certpass/pkg/requestcontext"
)

// Service defines the verification operations the handler depends on.
type Service interface {
	Verify(ctx context.Context, submitted string) (verify.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/verify/{fingerprint}", h.HandleVerifyPath)
	r.Post("/verify", h.HandleVerifyBody)
}

// VerifyRequest is the POST body for manual verification.
type VerifyRequest struct {
	Fingerprint string `json:"fingerprint"`
}

// HandleVerifyPath handles GET /verify/{fingerprint}.
func (h *Handler) HandleVerifyPath(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, chi.URLParam(r, "fingerprint"))
}

// HandleVerifyBody handles POST /verify.
func (h *Handler) HandleVerifyBody(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeJSON[VerifyRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.Fingerprint == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "fingerprint is required"))
		return
	}
	h.respond(w, r, req.Fingerprint)
}

// respond runs the verification and writes the result. Invalid outcomes are
// 200s carrying isValid=false; only infrastructure failures become 5xx.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, submitted string) {
	ctx := r.Context()

	result, err := h.service.Verify(ctx, submitted)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
