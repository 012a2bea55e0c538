// Package sanitize strips markup from user-provided free text before it is
// stored or embedded in notification bodies.
package sanitize

import (
	"regexp"
	"strings"
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// entityReplacer decodes the entities that could smuggle an encoded tag past
// a single strip pass.
var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", `"`,
	"&#39;", "'",
)

// StripHTML removes all HTML tags from a string, making it safe for
// text-only display. The frontend still escapes on output.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = entityReplacer.Replace(result)
	// Re-strip after entity decode to catch encoded tags.
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text sanitizes a user-provided text field, such as a rejection reason or
// return remarks, for storage and notification rendering.
func Text(s string) string {
	return StripHTML(s)
}
