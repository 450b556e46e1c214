// Package identity derives a weak identity hint from a bearer credential.
//
// The hint is used only to partition cache entries per user. The token
// signature is deliberately NOT verified here: authorization is enforced by
// the relational store when the underlying data is actually read. A stale or
// replayed token therefore still yields a valid partitioning key, which is
// acceptable because the hint carries no trust weight and must never be used
// for access control.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"strings"
)

// Public is the hint returned for anonymous or unreadable credentials.
var Public = Hint{Subject: "public", Role: "anon"}

// Hint is the decoded cache-partitioning identity.
type Hint struct {
	Subject string
	Role    string
}

// Anonymous reports whether the hint resolves to the shared public identity.
func (h Hint) Anonymous() bool {
	return h.Subject == Public.Subject
}

type claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
}

// FromAuthorization opportunistically decodes the subject and role from an
// Authorization header. Any absent, malformed, or undecodable credential
// silently degrades to the public identity; this never fails.
func FromAuthorization(header string) Hint {
	token := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer"))
	if token == "" {
		return Public
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Public
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return Public
	}

	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return Public
	}

	hint := Public
	if c.Sub != "" {
		hint.Subject = c.Sub
	}
	if c.Role != "" {
		hint.Role = c.Role
	}
	return hint
}
