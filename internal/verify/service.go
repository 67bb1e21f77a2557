// Package verify resolves a submitted fingerprint against the record store
// and recomputes the digest from the stored canonical attributes. The service
// is stateless between calls; concurrent verifications are independent.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"certpass/internal/fingerprint"
	"certpass/internal/record"
	"certpass/internal/verify/metrics"
	dErrors "certpass/pkg/domain-errors"
	"certpass/pkg/platform/audit"
	"certpass/pkg/platform/sentinel"
	"certpass/pkg/requestcontext"
)

const (
	reasonInvalidFormat  = "invalid format"
	reasonNotFound       = "not found"
	reasonHashMismatch   = "hash verification failed"
	outcomeValid         = "valid"
	outcomeInvalidFormat = "invalid_format"
	outcomeNotFound      = "not_found"
	outcomeMismatch      = "integrity_mismatch"
)

// Snapshot is the public subset of a record returned on success.
type Snapshot struct {
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
	TeamID             string `json:"teamId,omitempty"`
	EventName          string `json:"eventName,omitempty"`
	IssuedOn           string `json:"issuedOn,omitempty"`
}

// Result is produced fresh on every call and never persisted here.
type Result struct {
	IsValid     bool      `json:"isValid"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Recipient   *Snapshot `json:"recipient,omitempty"`
	Error       string    `json:"error,omitempty"`
	VerifiedAt  time.Time `json:"verifiedAt"`
}

type Service struct {
	store   record.Store
	salt    string
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   audit.Publisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) { s.audit = publisher }
}

// New builds a verifier bound to the same salt used at generation time. A
// drifting salt makes every stored fingerprint unrecoverable, so the salt
// comes from deployment secrets, not per-call input. The rest of the hash
// config travels on each record.
func New(store record.Store, salt string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if salt == "" {
		return nil, fmt.Errorf("fingerprint salt is required")
	}

	s := &Service{store: store, salt: salt}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Verify accepts either the bare 64-hex digest or a verification URL ending
// in one. "Not found" and "mismatch" are normal results, not errors; the
// returned error is reserved for infrastructure failures (store unreachable)
// which the HTTP layer surfaces as a 5xx.
func (s *Service) Verify(ctx context.Context, submitted string) (Result, error) {
	result := Result{VerifiedAt: requestcontext.Now(ctx).UTC()}

	// Shape check precedes any store I/O.
	fp, ok := fingerprint.Extract(submitted)
	if !ok {
		result.Error = reasonInvalidFormat
		s.metrics.IncrementOutcome(outcomeInvalidFormat)
		return result, nil
	}
	result.Fingerprint = fp

	rec, err := s.store.FindByFingerprint(ctx, fp)
	if errors.Is(err, sentinel.ErrNotFound) {
		result.Error = reasonNotFound
		s.metrics.IncrementOutcome(outcomeNotFound)
		s.publish(ctx, audit.Event{
			Action:      audit.ActionVerificationFailed,
			Fingerprint: fp,
			Decision:    "invalid",
			Reason:      reasonNotFound,
		})
		return result, nil
	}
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "record store lookup failed")
	}

	// Integrity cross-check: the stored attributes must recompute to the
	// stored fingerprint under the generation config.
	recomputed := fingerprint.Compute(recipientOf(rec), s.recomputeConfig(rec))
	if recomputed != fp {
		result.Error = reasonHashMismatch
		s.metrics.IncrementOutcome(outcomeMismatch)
		s.metrics.IncrementIntegrityMismatch()
		s.logger.ErrorContext(ctx, "fingerprint integrity mismatch",
			"fingerprint", fp,
			"recomputed", recomputed,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.publish(ctx, audit.Event{
			Action:      audit.ActionIntegrityMismatch,
			Fingerprint: fp,
			Decision:    "invalid",
			Reason:      reasonHashMismatch,
		})
		return result, nil
	}

	result.IsValid = true
	result.Recipient = &Snapshot{
		Name:               rec.Name,
		RegistrationNumber: rec.RegistrationNumber,
		TeamID:             rec.TeamID,
		EventName:          rec.EventName,
		IssuedOn:           rec.IssuedOn,
	}
	s.metrics.IncrementOutcome(outcomeValid)
	s.publish(ctx, audit.Event{
		Action:      audit.ActionVerificationSucceeded,
		Fingerprint: fp,
		Decision:    "valid",
	})
	return result, nil
}

// recomputeConfig replays the field selection stored with the record plus the
// server's salt. Event metadata comes from the record's own columns: the
// stored issue date, never today's.
func (s *Service) recomputeConfig(rec record.Record) fingerprint.Config {
	cfg := rec.HashConfig
	cfg.Salt = s.salt
	cfg.EventName = rec.EventName
	cfg.EventDate = rec.IssuedOn
	return cfg
}

func recipientOf(rec record.Record) fingerprint.Recipient {
	return fingerprint.Recipient{
		Name:               rec.Name,
		Email:              rec.Email,
		RegistrationNumber: rec.RegistrationNumber,
		TeamID:             rec.TeamID,
		CustomFields:       rec.CustomFields,
	}
}

func (s *Service) publish(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.audit.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit publish failed", "action", event.Action, "error", err)
	}
}
