// Package award holds the pure award pipeline steps: title normalisation,
// brand tagging, deduplication, image matching and ordering. Nothing here
// performs I/O.
package award

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var escapedAmp = regexp.MustCompile(`(?i)&amp;`)

// NormalizeTitle folds a title (or URL) into the form used for dedup keys,
// brand resolution and image lookup: HTML-escaped ampersands are unescaped
// in any letter case, "&" becomes "and", whitespace runs collapse to one
// space, and the result is trimmed and case-folded.
func NormalizeTitle(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = escapedAmp.ReplaceAllLiteralString(s, "&")
	s = strings.ReplaceAll(s, "&", "and")
	s = strings.Join(strings.Fields(s), " ")
	// Casers carry state and are not safe for concurrent use.
	return cases.Fold().String(s)
}
