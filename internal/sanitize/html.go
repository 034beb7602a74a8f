// Package sanitize strips markup from user-submitted listing fields.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()
)

// Text removes every tag and returns plain text. Entities escaped by the
// policy are decoded again so "Drinks & Demos" survives unchanged; the value
// is data, not HTML, and is escaped wherever it is rendered.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(strictPolicy.Sanitize(input)))
}

// RichText keeps basic formatting (<p>, <b>, <a>, lists) and drops scripts,
// iframes, event handlers and style attributes. Used for conference
// long-form descriptions.
func RichText(input string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(input))
}

// Tags sanitizes each tag, dropping the ones left empty.
func Tags(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if clean := Text(input); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
