package extraction

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zombor/cheque-ocr/internal/llm"
)

var (
	longNumberPattern = regexp.MustCompile(`\d{4,}`)
	numberPattern     = regexp.MustCompile(`[\d,]+\.?\d*`)
)

// Config configures the fallback resolver
type Config struct {
	// Credential grants access to the remote model. Empty means the remote
	// model is unavailable and only the local heuristic runs.
	Credential string
	// MinConfidence is the lowest fragment confidence included in the prompt
	MinConfidence float64
	// MinTextLength is the shortest trimmed fragment text included in the prompt
	MinTextLength int
	// MinAmountConfidence is the confidence a fragment must exceed to be
	// taken as a heuristic amount
	MinAmountConfidence float64
	// StopWords are tokens that disqualify a fragment as a heuristic payee
	StopWords []string
	// Sampling is sent with every remote call
	Sampling llm.Params
}

// DefaultConfig returns the standard resolver configuration with no credential
func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.3,
		MinTextLength:       2,
		MinAmountConfidence: 0.7,
		StopWords:           []string{"pay", "date", "bank", "currency"},
		Sampling: llm.Params{
			Temperature: 0.1,
			MaxTokens:   200,
			TopP:        0.9,
		},
	}
}

// Outcome records which path produced a Resolution
type Outcome int

const (
	// OutcomeRemote means the remote model answered with parseable JSON
	OutcomeRemote Outcome = iota
	// OutcomeUnavailable means no credential was configured
	OutcomeUnavailable
	// OutcomeCallFailed means the remote call returned an error
	OutcomeCallFailed
	// OutcomeParseFailed means the remote response held no usable JSON
	OutcomeParseFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRemote:
		return "remote"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeCallFailed:
		return "call_failed"
	case OutcomeParseFailed:
		return "parse_failed"
	}
	return "unknown"
}

// Resolution is the result of one fallback attempt. Fields holds the
// model's answer for OutcomeRemote and the local heuristic's otherwise.
type Resolution struct {
	Outcome Outcome
	Fields  map[string]FieldValue
	Err     error
}

// Remote reports whether the fields came from the remote model
func (r Resolution) Remote() bool {
	return r.Outcome == OutcomeRemote
}

// Resolver fills fields the pattern pass left empty
type Resolver struct {
	cfg   Config
	model llm.Model
}

// NewResolver creates a Resolver. model may be nil, in which case the
// resolver is never available.
func NewResolver(cfg Config, model llm.Model) *Resolver {
	return &Resolver{cfg: cfg, model: model}
}

// Available reports whether the remote model can be called
func (r *Resolver) Available() bool {
	return r.cfg.Credential != "" && r.model != nil
}

// Resolve computes fallback values for the eligible fields. It never
// fails: remote errors are logged and answered by the local heuristic.
func (r *Resolver) Resolve(ctx context.Context, fragments []Fragment) Resolution {
	if !r.Available() {
		slog.Warn("Remote model not available, using local heuristic")
		return Resolution{Outcome: OutcomeUnavailable, Fields: r.heuristic(fragments)}
	}

	prompt := buildPrompt(fragments, r.cfg.MinConfidence, r.cfg.MinTextLength)
	chunks, err := r.model.Generate(ctx, prompt, r.cfg.Sampling)
	if err != nil {
		slog.Error("Remote model extraction failed", "error", err)
		return Resolution{Outcome: OutcomeCallFailed, Fields: r.heuristic(fragments), Err: err}
	}

	fields, err := parseModelResponse(strings.Join(chunks, ""))
	if err != nil {
		slog.Error("Failed to parse model response", "error", err)
		return Resolution{Outcome: OutcomeParseFailed, Fields: r.heuristic(fragments), Err: err}
	}

	return Resolution{Outcome: OutcomeRemote, Fields: fields}
}

// heuristic is the local spatial/lexical fallback. It starts from empty
// accumulators and keeps the highest-confidence candidate per field.
func (r *Resolver) heuristic(fragments []Fragment) map[string]FieldValue {
	var payee, amount, date FieldValue

	for _, f := range fragments {
		text := strings.TrimSpace(f.Text)

		if m := datePattern.FindString(text); m != "" {
			keepBest(&date, m, f.Confidence)
		}

		if longNumberPattern.MatchString(text) && f.Confidence > r.cfg.MinAmountConfidence {
			if m := numberPattern.FindString(text); m != "" {
				keepBest(&amount, m, f.Confidence)
			}
		}

		if r.looksLikeName(text) {
			keepBest(&payee, text, f.Confidence)
		}
	}

	fields := make(map[string]FieldValue, len(fallbackFields))
	for name, v := range map[string]FieldValue{
		FieldPayeeName:       payee,
		FieldAmountNumerical: amount,
		FieldDate:            date,
	} {
		if !v.Empty() {
			fields[name] = v
		}
	}
	return fields
}

// looksLikeName accepts two to four capitalized words with no digits and
// no stop words
func (r *Resolver) looksLikeName(text string) bool {
	words := strings.Fields(text)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	if strings.ContainsFunc(text, unicode.IsDigit) {
		return false
	}
	for _, word := range words {
		for _, stop := range r.cfg.StopWords {
			if strings.EqualFold(word, stop) {
				return false
			}
		}
		if !isAlpha(word) {
			continue
		}
		first, _ := utf8.DecodeRuneInString(word)
		if !unicode.IsUpper(first) || utf8.RuneCountInString(word) <= 1 {
			return false
		}
	}
	return true
}

func isAlpha(word string) bool {
	for _, c := range word {
		if !unicode.IsLetter(c) {
			return false
		}
	}
	return word != ""
}

// Merge copies resolution fields into result, but only into eligible
// fields that are still empty. It returns the names of the fields filled.
func Merge(result *Result, resolution Resolution) []string {
	var filled []string
	for _, name := range fallbackFields {
		target := result.field(name)
		v, ok := resolution.Fields[name]
		if !ok || v.Empty() || !target.Empty() {
			continue
		}
		*target = v
		filled = append(filled, name)
	}
	return filled
}
