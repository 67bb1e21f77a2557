package template

import (
	"regexp"
	"strings"

	"certpass/internal/fingerprint"
)

// Data is the substitution map for one recipient.
type Data map[string]string

// tokenPattern is compiled once for the process; substitution itself is a
// single pass per string.
var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Substitute resolves {{key}} tokens against data. Unknown keys resolve to
// the empty string; that is documented lossy behavior, not an error.
func Substitute(s string, data Data) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(m string) string {
		key := tokenPattern.FindStringSubmatch(m)[1]
		return data[key]
	})
}

// SubstitutionData builds the per-recipient map: the public recipient fields,
// the fingerprint under "hash", event metadata, then custom fields. Custom
// fields cannot shadow the built-in keys.
func SubstitutionData(r fingerprint.Recipient, fp, eventName, date string) Data {
	data := make(Data, len(r.CustomFields)+7)
	for k, v := range r.CustomFields {
		data[k] = v
	}
	data["name"] = r.Name
	data["email"] = r.Email
	data["registrationNumber"] = r.RegistrationNumber
	data["teamId"] = r.TeamID
	data["hash"] = fp
	data["eventName"] = eventName
	data["date"] = date
	return data
}
