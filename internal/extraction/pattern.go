package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	highlightPattern = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	amountPattern    = regexp.MustCompile(`\*\*([\d,]+\.?\d*)\*\*`)
	numberRunPattern = regexp.MustCompile(`[\d,]+`)
	datePattern      = regexp.MustCompile(`\d{1,2}[-/]\d{1,2}[-/]\d{2,4}`)
)

// payeeMarker must appear in a fragment before its highlighted span is
// taken as the payee
const payeeMarker = "AGAINST"

// minWrittenAmountLength is the length a written amount must exceed
const minWrittenAmountLength = 15

// writtenAmountWords mark a fragment as an amount written in words
var writtenAmountWords = []string{"million", "thousand", "hundred", "only", "dollars", "pounds"}

// Extract resolves fields from fragments using local text patterns only.
//
// Payee and numerical amount take the last qualifying fragment in scan
// order regardless of confidence. Date and written amount keep the
// fragment with the strictly highest confidence. Extract never modifies
// fragments and the returned result retains them as given.
func Extract(fragments []Fragment) Result {
	result := newResult(fragments)

	for _, f := range fragments {
		text := strings.TrimSpace(f.Text)

		if m := highlightPattern.FindStringSubmatch(text); m != nil && strings.Contains(strings.ToUpper(text), payeeMarker) {
			payee := strings.TrimSpace(m[1])
			if !numberRunPattern.MatchString(payee) {
				result.PayeeName = FieldValue{Text: payee, Confidence: f.Confidence}
			}
		}

		if m := amountPattern.FindStringSubmatch(text); m != nil {
			result.AmountNumerical = FieldValue{Text: strings.TrimSpace(m[1]), Confidence: f.Confidence}
		}

		if m := datePattern.FindString(text); m != "" {
			keepBest(&result.Date, m, f.Confidence)
		}

		if isWrittenAmount(text) {
			keepBest(&result.AmountWritten, strings.TrimSpace(strings.ReplaceAll(text, "*", "")), f.Confidence)
		}
	}

	return result
}

// keepBest stores text in v only if confidence strictly improves on it
func keepBest(v *FieldValue, text string, confidence float64) {
	if confidence > v.Confidence {
		*v = FieldValue{Text: text, Confidence: confidence}
	}
}

func isWrittenAmount(text string) bool {
	if utf8.RuneCountInString(text) <= minWrittenAmountLength {
		return false
	}
	lower := strings.ToLower(text)
	for _, word := range writtenAmountWords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
