package extraction

import "slices"

// Field names as they appear in results and CSV exports
const (
	FieldPayeeName       = "payee_name"
	FieldAmountNumerical = "amount_numerical"
	FieldAmountWritten   = "amount_written"
	FieldDate            = "date"
)

// fallbackFields are the only fields the fallback resolver may fill
var fallbackFields = []string{FieldPayeeName, FieldAmountNumerical, FieldDate}

// FallbackFields returns the names of the fields the fallback resolver may fill
func FallbackFields() []string {
	return slices.Clone(fallbackFields)
}

// FieldValue is the current best guess for one field. Empty text means
// unresolved, and its confidence is held at 0.
type FieldValue struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Empty reports whether the field is unresolved
func (v FieldValue) Empty() bool {
	return v.Text == ""
}

// Result holds the four extracted fields and the fragments they came from
type Result struct {
	PayeeName       FieldValue `json:"payee_name"`
	AmountNumerical FieldValue `json:"amount_numerical"`
	AmountWritten   FieldValue `json:"amount_written"`
	Date            FieldValue `json:"date"`
	RawOCRResults   []Fragment `json:"raw_ocr_results"`
}

// Field returns the value stored under name
func (r *Result) Field(name string) FieldValue {
	if p := r.field(name); p != nil {
		return *p
	}
	return FieldValue{}
}

// Fields returns all four fields keyed by name
func (r *Result) Fields() map[string]FieldValue {
	return map[string]FieldValue{
		FieldPayeeName:       r.PayeeName,
		FieldAmountNumerical: r.AmountNumerical,
		FieldAmountWritten:   r.AmountWritten,
		FieldDate:            r.Date,
	}
}

// Missing returns the fallback-eligible fields that are still unresolved
func (r *Result) Missing() []string {
	var missing []string
	for _, name := range fallbackFields {
		if r.Field(name).Empty() {
			missing = append(missing, name)
		}
	}
	return missing
}

func (r *Result) field(name string) *FieldValue {
	switch name {
	case FieldPayeeName:
		return &r.PayeeName
	case FieldAmountNumerical:
		return &r.AmountNumerical
	case FieldAmountWritten:
		return &r.AmountWritten
	case FieldDate:
		return &r.Date
	}
	return nil
}

// newResult returns a result with every field unresolved. A nil fragment
// slice is normalized to an empty one so it encodes as [].
func newResult(fragments []Fragment) Result {
	if fragments == nil {
		fragments = []Fragment{}
	}
	return Result{RawOCRResults: fragments}
}
