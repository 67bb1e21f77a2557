// Package audit captures key domain actions for operator attention and
// compliance trails. Events are emitted from domain logic and fanned out by a
// Publisher; Kafka is the deployment transport, the in-memory publisher serves
// tests and single-node setups.
package audit

import "time"

// Category classifies audit events by their primary purpose, enabling
// different retention policies and routing downstream.
type Category string

const (
	// CategoryCompliance covers events with record-keeping significance,
	// e.g. certificate issuance.
	CategoryCompliance Category = "compliance"

	// CategorySecurity covers events relevant to monitoring and forensics,
	// e.g. failed verifications and integrity mismatches.
	CategorySecurity Category = "security"

	// CategoryOperations covers events useful for operational visibility,
	// e.g. batch completion.
	CategoryOperations Category = "operations"
)

// Action names the audited domain action.
type Action string

const (
	ActionDocumentGenerated     Action = "document_generated"
	ActionBatchCompleted        Action = "batch_completed"
	ActionVerificationSucceeded Action = "verification_succeeded"
	ActionVerificationFailed    Action = "verification_failed"
	ActionIntegrityMismatch     Action = "integrity_mismatch"
)

// actionCategories is the source of truth for event routing.
var actionCategories = map[Action]Category{
	ActionDocumentGenerated:     CategoryCompliance,
	ActionBatchCompleted:        CategoryOperations,
	ActionVerificationSucceeded: CategoryOperations,
	ActionVerificationFailed:    CategorySecurity,
	ActionIntegrityMismatch:     CategorySecurity,
}

// Category resolves the routing category for an action. Unknown actions land
// in operations rather than being dropped.
func (a Action) Category() Category {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOperations
}

// Event is emitted from domain logic. Keep it transport-agnostic so stores and
// sinks can fan out. The fingerprint is a digest, not PII, so it is safe to
// carry verbatim.
type Event struct {
	Action         Action    `json:"action"`
	Category       Category  `json:"category"`
	Timestamp      time.Time `json:"timestamp"`
	Fingerprint    string    `json:"fingerprint,omitempty"`
	RecipientEmail string    `json:"recipient_email,omitempty"`
	Decision       string    `json:"decision,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	BatchID        string    `json:"batch_id,omitempty"`
}
