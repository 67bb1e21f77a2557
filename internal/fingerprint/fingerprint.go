// Package fingerprint implements the deterministic digest that ties a
// recipient to an issued certificate. The same computation must be
// reproducible at verification time, possibly in another process or language,
// so the part order, trimming and encoding here are the wire contract.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

// Recipient carries the attributes a certificate can be issued against.
// It has no intrinsic ID: the subset of fields selected by Config plus the
// salt is the identity. Two recipients with identical included fields
// deliberately share a fingerprint (team-scoped hashing relies on this).
type Recipient struct {
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	RegistrationNumber string            `json:"registrationNumber,omitempty"`
	TeamID             string            `json:"teamId,omitempty"`
	CustomFields       map[string]string `json:"customFields,omitempty"`
}

// Config selects which fields participate in the digest and in what order.
// Salt is a deployment secret; it must be identical between generation and
// verification or every fingerprint becomes unrecoverable.
type Config struct {
	IncludeName               bool `json:"includeName"`
	IncludeEmail              bool `json:"includeEmail"`
	IncludeRegistrationNumber bool `json:"includeRegistrationNumber"`
	IncludeTeamID             bool `json:"includeTeamId"`
	IncludeEventName          bool `json:"includeEventName"`
	IncludeDate               bool `json:"includeDate"`

	EventName string `json:"eventName,omitempty"`

	// EventDate is the YYYY-MM-DD UTC date hashed when IncludeDate is set.
	// Generation stamps it via WithDate; verification replays the date stored
	// on the record. Compute never reads the clock itself.
	EventDate string `json:"eventDate,omitempty"`

	// CustomFieldKeys is ordered; reordering changes the digest.
	CustomFieldKeys []string `json:"customFieldKeys,omitempty"`

	Salt string `json:"-"`
}

// WithDate returns a copy of the config with EventDate stamped from t in UTC.
func (c Config) WithDate(t time.Time) Config {
	c.EventDate = t.UTC().Format("2006-01-02")
	return c
}

// Compute returns the lowercase hex SHA-256 fingerprint for a recipient under
// the given config. Part order is fixed: name, email, registrationNumber,
// teamId, eventName, date, then each custom field key in array order. Parts
// are trimmed and empty parts are skipped entirely; the concatenation carries
// no delimiter and ends with the salt.
func Compute(r Recipient, c Config) string {
	var b strings.Builder

	appendPart := func(include bool, value string) {
		if !include {
			return
		}
		if v := strings.TrimSpace(value); v != "" {
			b.WriteString(v)
		}
	}

	appendPart(c.IncludeName, r.Name)
	appendPart(c.IncludeEmail, r.Email)
	appendPart(c.IncludeRegistrationNumber, r.RegistrationNumber)
	appendPart(c.IncludeTeamID, r.TeamID)
	appendPart(c.IncludeEventName, c.EventName)
	appendPart(c.IncludeDate, c.EventDate)
	for _, key := range c.CustomFieldKeys {
		appendPart(true, r.CustomFields[key])
	}

	b.WriteString(c.Salt)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

var pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// IsWellFormed reports whether s is a 64-char lowercase hex digest.
func IsWellFormed(s string) bool {
	return pattern.MatchString(s)
}

// Normalize trims and lowercases s, then shape-checks it. Case-insensitive
// input is accepted; anything else is rejected before any store I/O.
func Normalize(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, IsWellFormed(s)
}

// Extract recovers the digest from either wire form: the bare digest or a
// verification URL ending in /{digest}. Scanned QR payloads arrive in both.
func Extract(s string) (string, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return Normalize(s)
}

// VerificationURL builds the {base}/verify/{digest} payload embedded in QR
// codes when a base URL is configured.
func VerificationURL(baseURL, fp string) string {
	return strings.TrimSuffix(baseURL, "/") + "/verify/" + fp
}
