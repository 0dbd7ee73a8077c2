package services

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// SanitizeText strips any markup from user supplied free text and trims it.
// Entities produced by the policy are decoded back so the stored value stays plain text.
func SanitizeText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainTextPolicy.Sanitize(s)))
}
