// Package record defines the lookup table the verification path queries: one
// row per issued fingerprint carrying the canonical attributes it was computed
// from. Persistence backends live in subpackages.
package record

import (
	"context"
	"time"

	"certpass/internal/fingerprint"
)

// Record is the canonical snapshot stored at generation time. IssuedOn is the
// YYYY-MM-DD UTC date the fingerprint was computed with; verification replays
// it instead of the current day. HashConfig is the field selection the digest
// was computed under, stored salt-free so verification can recompute with the
// server's salt.
type Record struct {
	Fingerprint        string             `json:"fingerprint"`
	Name               string             `json:"name"`
	Email              string             `json:"email"`
	RegistrationNumber string             `json:"registrationNumber,omitempty"`
	TeamID             string             `json:"teamId,omitempty"`
	EventName          string             `json:"eventName,omitempty"`
	IssuedOn           string             `json:"issuedOn,omitempty"`
	CustomFields       map[string]string  `json:"customFields,omitempty"`
	HashConfig         fingerprint.Config `json:"hashConfig"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// Store is the record lookup table. Save upserts by fingerprint: team-scoped
// configs intentionally issue one fingerprint for many recipients, so a
// colliding write replaces rather than errors. FindByFingerprint returns
// sentinel.ErrNotFound (wrapped or bare) on a miss.
type Store interface {
	Save(ctx context.Context, rec Record) error
	FindByFingerprint(ctx context.Context, fp string) (Record, error)
}
