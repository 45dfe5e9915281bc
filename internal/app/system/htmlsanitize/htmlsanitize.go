// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize strips markup from user-supplied values before they
// are embedded in generated HTML (invite emails). Workspace names and
// display names are plain text by contract; anything tag-shaped in them is
// attacker input.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Strip removes all HTML elements and attributes, returning plain text.
func Strip(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// IsPlainText reports whether the input contains no markup at all.
func IsPlainText(s string) bool {
	return Strip(s) == s
}
