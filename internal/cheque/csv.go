package cheque

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/zombor/cheque-ocr/internal/extraction"
)

// csvFields are the fields exported to CSV, with their column labels
var csvFields = []struct {
	name  string
	label string
}{
	{extraction.FieldPayeeName, "Payee Name"},
	{extraction.FieldAmountNumerical, "Amount"},
	{extraction.FieldDate, "Date"},
}

// WriteChequeCSV writes one row per exported field of a cheque
func WriteChequeCSV(w io.Writer, cheque *Cheque) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Field", "Value", "Confidence"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, f := range csvFields {
		v := cheque.Fields.Field(f.name)
		row := []string{f.label, v.Text, strconv.FormatFloat(v.Confidence, 'f', -1, 64)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteBatchCSV writes one row per batch item. Confidence is the mean of
// the exported fields' confidences.
func WriteBatchCSV(w io.Writer, items []BatchItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Filename", "Status", "Payee", "Amount", "Date", "Confidence", "Error"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, item := range items {
		row := []string{item.Filename, "Failed", "", "", "", "", item.Error}
		if item.Success && item.Cheque != nil {
			fields := item.Cheque.Fields
			row = []string{
				item.Filename,
				"Success",
				fields.PayeeName.Text,
				fields.AmountNumerical.Text,
				fields.Date.Text,
				fmt.Sprintf("%.2f", meanConfidence(fields)),
				"",
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func meanConfidence(r extraction.Result) float64 {
	var sum float64
	for _, f := range csvFields {
		sum += r.Field(f.name).Confidence
	}
	return sum / float64(len(csvFields))
}
