// Package validate holds the validation heuristic shared by every
// extraction stage.
package validate

import (
	"strings"
	"unicode"
)

// MinLength is the minimum number of characters an extraction stage
// must produce to be considered successful.
const MinLength = 50

// minAlnumDensity is the minimum share of letters and digits among the
// non-space characters of a valid extraction.
const minAlnumDensity = 0.5

// Text reports whether extracted text passes the shared validation
// heuristic: at least minLength characters with >=50% alphanumeric
// density. Stages whose output fails are treated as failed, advancing
// the fallback chain.
func Text(text string, minLength int) bool {
	if minLength <= 0 {
		minLength = MinLength
	}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minLength {
		return false
	}

	var total, alnum int
	for _, r := range trimmed {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return false
	}
	return float64(alnum)/float64(total) >= minAlnumDensity
}
