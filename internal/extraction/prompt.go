package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// modelConfidence is assigned to every field the remote model returns
const modelConfidence = 0.9

// chequePromptTemplate is filled with the formatted OCR lines
const chequePromptTemplate = `You are an expert at extracting information from bank cheques. Below is the OCR text extracted from a cheque image, with confidence scores and approximate positions.

OCR Results:
%s

Please extract the following fields from this cheque:
1. PAYEE_NAME: The name of the person/entity receiving the payment
2. AMOUNT_NUMERICAL: The numerical amount (e.g., 12,345,678.00)
3. DATE: The date on the cheque (format: DD-MM-YYYY or similar)

Important guidelines:
- Look for proper names (capitalized words, typically 2-3 words) for PAYEE_NAME
- Avoid extracting written amounts in words as PAYEE_NAME
- For AMOUNT_NUMERICAL, look for large numbers with commas or decimal points
- Ignore words like "CURRENCY", "PAY", "DATE", "BANK" as payee names
- If a field cannot be found, return empty string

Respond ONLY with a JSON object in this exact format:
{"payee_name": "extracted name or empty", "amount_numerical": "extracted amount or empty", "date": "extracted date or empty"}`

var (
	errNoJSON      = errors.New("no JSON object found in response")
	errInvalidJSON = errors.New("invalid JSON object in response")
)

// formatFragments renders one line per fragment worth showing the model.
// Line numbers follow the position in the full fragment list so skipped
// fragments leave gaps.
func formatFragments(fragments []Fragment, minConfidence float64, minLength int) string {
	lines := make([]string, 0, len(fragments))
	for i, f := range fragments {
		text := strings.TrimSpace(f.Text)
		if f.Confidence < minConfidence || utf8.RuneCountInString(text) < minLength {
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] '%s' (conf: %.2f, pos: %.0f,%.0f)", i+1, text, f.Confidence, f.CenterX, f.CenterY))
	}
	return strings.Join(lines, "\n")
}

// buildPrompt creates the extraction prompt for fragments
func buildPrompt(fragments []Fragment, minConfidence float64, minLength int) string {
	return fmt.Sprintf(chequePromptTemplate, formatFragments(fragments, minConfidence, minLength))
}

// parseModelResponse pulls the JSON object out of a model response and
// returns the non-empty fallback fields it names
func parseModelResponse(text string) (map[string]FieldValue, error) {
	start := strings.Index(text, "{")
	if start == -1 {
		return nil, errNoJSON
	}
	end := strings.LastIndex(text, "}")
	if end < start {
		return nil, errInvalidJSON
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	fields := make(map[string]FieldValue, len(fallbackFields))
	for _, name := range fallbackFields {
		value := strings.TrimSpace(jsonText(raw[name]))
		if value == "" {
			continue
		}
		fields[name] = FieldValue{Text: value, Confidence: modelConfidence}
	}
	return fields, nil
}

// jsonText returns a string value as-is and any other scalar as its JSON
// literal. null and missing values are empty.
func jsonText(v json.RawMessage) string {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || bytes.Equal(v, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	if v[0] == '{' || v[0] == '[' {
		return ""
	}
	return string(v)
}
