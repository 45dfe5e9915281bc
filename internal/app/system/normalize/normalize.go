// internal/app/system/normalize/normalize.go

// Package normalize provides canonical forms for user-supplied identity
// values. Every write path that stores an email or display name goes through
// these helpers so lookups and denormalized assignee values agree.
package normalize

import "strings"

// Email lowercases and trims an email address. Returns "" for blank input.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses interior whitespace runs.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DisplayNameFromEmail derives a readable display name from the local part of
// an email address: separators (".", "_", "-") become spaces and each chunk
// is title-cased. "jo.ann_smith@example.com" -> "Jo Ann Smith". If the local
// part is empty the full input is returned unchanged.
func DisplayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return email
	}
	fields := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, f := range fields {
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

// Initials returns up to two uppercase initials for a display name, or "?"
// when nothing usable remains.
func Initials(name string) string {
	var initials []rune
	for _, w := range strings.Fields(name) {
		r := []rune(w)[0]
		initials = append(initials, r)
		if len(initials) == 2 {
			break
		}
	}
	if len(initials) == 0 {
		return "?"
	}
	return strings.ToUpper(string(initials))
}
