// internal/app/system/invitecode/invitecode.go

// Package invitecode generates and parses workspace invite codes.
//
// A code is an opaque 8-character base36 token. Generation does not check for
// collisions; the workspaces collection enforces uniqueness with a unique
// index and creation retries on a duplicate key.
package invitecode

import (
	"crypto/rand"
	"math/big"
	"net/url"
	"strings"
)

const (
	codeLength = 8
	alphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// New returns a fresh random invite code.
func New() (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, codeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}

// Extract pulls an invite code out of user-pasted input. It accepts a plain
// code, a full invite URL, or a bare query string, looking for a "code"
// parameter in the URL-shaped forms. Returns "" when no code can be found.
func Extract(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http") || strings.ContainsAny(trimmed, "?=") {
		raw := trimmed
		if !strings.HasPrefix(raw, "http") {
			// Bare query string like "code=abc123" or "?code=abc123".
			raw = "https://x/?" + strings.TrimPrefix(raw, "?")
		}
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return u.Query().Get("code")
	}
	return trimmed
}

// Link builds the invite URL for a code against the configured base address:
// <base>/join?code=<code>. A trailing slash on the base is tolerated.
func Link(baseURL, code string) string {
	return strings.TrimSuffix(baseURL, "/") + "/join?code=" + url.QueryEscape(code)
}
