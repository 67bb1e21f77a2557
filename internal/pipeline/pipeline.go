// Package pipeline orchestrates fingerprinting, QR encoding and rendering
// across a batch of recipients. Recipients are processed strictly in input
// order, one at a time: the renderer shares a drawing surface that is not
// reentrant, and the read-only config needs no locking because nothing here
// mutates it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/google/uuid"

	"certpass/internal/fingerprint"
	"certpass/internal/pipeline/metrics"
	"certpass/internal/qr"
	"certpass/internal/record"
	"certpass/internal/render"
	"certpass/internal/template"
	dErrors "certpass/pkg/domain-errors"
	"certpass/pkg/platform/audit"
	"certpass/pkg/requestcontext"
)

// Encoder abstracts QR encoding so tests can inject failures.
type Encoder interface {
	Encode(payload string, opts qr.Options) ([]byte, error)
}

type Status string

const (
	StatusGenerated Status = "generated"
	StatusFailed    Status = "failed"
)

// Document is one per-recipient outcome. RecipientID is the recipient's email
// (the natural key; recipients carry no intrinsic ID). Never mutated after
// creation.
type Document struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipientId"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	CodeImage   []byte    `json:"codeImageData,omitempty"`
	Document    []byte    `json:"documentBytes,omitempty"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Request is one batch invocation. The salt inside Config is injected by the
// server, never taken from a client payload.
type Request struct {
	Template    template.Template       `json:"template"`
	Recipients  []fingerprint.Recipient `json:"recipients"`
	Config      fingerprint.Config      `json:"fingerprintConfig"`
	CodeOptions qr.Options              `json:"codeOptions"`

	// LinkBaseURL switches the QR payload from the bare digest to a
	// {base}/verify/{digest} URL.
	LinkBaseURL string `json:"-"`
}

// Summary aggregates a finished batch.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// ProgressFunc is invoked after each recipient completes. percent is
// completed*100/total and monotonically increases within a run.
type ProgressFunc func(completed, total, percent int)

type Pipeline struct {
	encoder     Encoder
	renderer    render.Renderer
	records     record.Store
	logger      *slog.Logger
	metrics     *metrics.Metrics
	audit       audit.Publisher
	itemTimeout time.Duration
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithRecordStore makes successful generations verifiable later: each
// generated document's canonical attributes are upserted by fingerprint.
func WithRecordStore(store record.Store) Option {
	return func(p *Pipeline) { p.records = store }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(p *Pipeline) { p.audit = publisher }
}

// WithItemTimeout bounds each recipient's render (remote background and image
// fetches included). A timeout fails that recipient, never the batch.
func WithItemTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.itemTimeout = d }
}

func New(encoder Encoder, renderer render.Renderer, opts ...Option) (*Pipeline, error) {
	if encoder == nil {
		return nil, fmt.Errorf("encoder is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}

	p := &Pipeline{
		encoder:     encoder,
		renderer:    renderer,
		itemTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p, nil
}

// Run processes the batch sequentially and returns one Document per recipient
// in input order. A failing recipient is recorded and skipped over; only
// cancellation stops the loop early, returning the partial results alongside
// ctx.Err() with the remaining recipients absent.
func (p *Pipeline) Run(ctx context.Context, req Request, progress ProgressFunc) ([]Document, error) {
	if len(req.Recipients) == 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "recipients are required")
	}
	if err := req.Template.Validate(); err != nil {
		return nil, err
	}

	cfg := req.Config
	if cfg.IncludeDate && cfg.EventDate == "" {
		cfg = cfg.WithDate(requestcontext.Now(ctx))
	}

	batchID := uuid.NewString()
	start := time.Now()
	total := len(req.Recipients)
	docs := make([]Document, 0, total)

	p.logger.InfoContext(ctx, "generation batch started",
		"batch_id", batchID,
		"recipients", total,
		"request_id", requestcontext.RequestID(ctx),
	)

	for i := range req.Recipients {
		if err := ctx.Err(); err != nil {
			p.logger.WarnContext(ctx, "generation batch cancelled",
				"batch_id", batchID,
				"completed", len(docs),
				"total", total,
			)
			return docs, err
		}

		doc := p.processRecipient(ctx, batchID, &req.Template, req.Recipients[i], cfg, req.CodeOptions, req.LinkBaseURL)
		docs = append(docs, doc)

		if doc.Status == StatusGenerated {
			p.metrics.IncrementGenerated()
		} else {
			p.metrics.IncrementFailed()
		}
		if progress != nil {
			completed := i + 1
			progress(completed, total, completed*100/total)
		}
	}

	summary := Summarize(docs)
	p.metrics.ObserveBatch(time.Since(start).Seconds())
	p.publish(ctx, audit.Event{
		Action:  audit.ActionBatchCompleted,
		BatchID: batchID,
		Reason:  fmt.Sprintf("%d generated, %d failed of %d", summary.Successful, summary.Failed, summary.Total),
	})
	p.logger.InfoContext(ctx, "generation batch finished",
		"batch_id", batchID,
		"total", summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return docs, nil
}

func (p *Pipeline) processRecipient(
	ctx context.Context,
	batchID string,
	tmpl *template.Template,
	r fingerprint.Recipient,
	cfg fingerprint.Config,
	codeOpts qr.Options,
	linkBaseURL string,
) Document {
	doc := Document{
		ID:          uuid.NewString(),
		RecipientID: r.Email,
		GeneratedAt: time.Now().UTC(),
	}

	if err := validateRecipient(r); err != nil {
		return p.fail(ctx, doc, r, "validate", err)
	}

	fp := fingerprint.Compute(r, cfg)
	doc.Fingerprint = fp

	payload := fp
	if linkBaseURL != "" {
		payload = fingerprint.VerificationURL(linkBaseURL, fp)
	}
	code, err := p.encoder.Encode(payload, codeOpts)
	if err != nil {
		return p.fail(ctx, doc, r, "encode", err)
	}
	doc.CodeImage = code

	itemCtx, cancel := context.WithTimeout(ctx, p.itemTimeout)
	data := template.SubstitutionData(r, fp, cfg.EventName, cfg.EventDate)
	rendered, err := p.renderer.Render(itemCtx, tmpl, data, code)
	cancel()
	if err != nil {
		return p.fail(ctx, doc, r, "render", err)
	}
	doc.Document = rendered

	if p.records != nil {
		// The stored config lets verification replay the exact field
		// selection; the salt never leaves process memory or the env.
		storedCfg := cfg
		storedCfg.Salt = ""
		rec := record.Record{
			Fingerprint:        fp,
			Name:               r.Name,
			Email:              r.Email,
			RegistrationNumber: r.RegistrationNumber,
			TeamID:             r.TeamID,
			EventName:          cfg.EventName,
			IssuedOn:           cfg.EventDate,
			CustomFields:       r.CustomFields,
			HashConfig:         storedCfg,
		}
		if err := p.records.Save(ctx, rec); err != nil {
			// An unverifiable certificate is not a success.
			return p.fail(ctx, doc, r, "persist record", err)
		}
	}

	doc.Status = StatusGenerated
	p.publish(ctx, audit.Event{
		Action:         audit.ActionDocumentGenerated,
		Fingerprint:    fp,
		RecipientEmail: r.Email,
		BatchID:        batchID,
	})
	return doc
}

func (p *Pipeline) fail(ctx context.Context, doc Document, r fingerprint.Recipient, stage string, err error) Document {
	doc.Status = StatusFailed
	doc.Error = fmt.Sprintf("%s: %v", stage, err)
	p.logger.WarnContext(ctx, "document generation failed",
		"recipient", r.Email,
		"stage", stage,
		"error", err,
	)
	return doc
}

func (p *Pipeline) publish(ctx context.Context, event audit.Event) {
	if p.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := p.audit.Publish(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "audit publish failed", "action", event.Action, "error", err)
	}
}

// Summarize derives the aggregate counts the HTTP layer reports.
func Summarize(docs []Document) Summary {
	s := Summary{Total: len(docs)}
	for _, d := range docs {
		if d.Status == StatusGenerated {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}

func validateRecipient(r fingerprint.Recipient) error {
	if strings.TrimSpace(r.Name) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "recipient name is required")
	}
	if !govalidator.IsEmail(r.Email) {
		return dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("invalid recipient email %q", r.Email))
	}
	return nil
}
