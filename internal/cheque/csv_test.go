package cheque

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/cheque-ocr/internal/extraction"
)

var _ = Describe("CSV export", func() {
	var cheque *Cheque

	BeforeEach(func() {
		cheque = &Cheque{
			ID: "id1",
			Fields: extraction.Result{
				PayeeName:       extraction.FieldValue{Text: "Doe, Jane", Confidence: 0.95},
				AmountNumerical: extraction.FieldValue{Text: "12,500.00", Confidence: 0.85},
				AmountWritten:   extraction.FieldValue{Text: "Twelve thousand five hundred only", Confidence: 0.7},
			},
		}
	})

	Describe("WriteChequeCSV", func() {
		It("writes one row per exported field", func() {
			var buf bytes.Buffer
			Expect(WriteChequeCSV(&buf, cheque)).To(Succeed())
			Expect(buf.String()).To(Equal(
				"Field,Value,Confidence\n" +
					"Payee Name,\"Doe, Jane\",0.95\n" +
					"Amount,\"12,500.00\",0.85\n" +
					"Date,,0\n",
			))
		})
	})

	Describe("WriteBatchCSV", func() {
		It("writes successes with the mean confidence and failures with the error", func() {
			var buf bytes.Buffer
			Expect(WriteBatchCSV(&buf, []BatchItem{
				{Filename: "a.png", Success: true, Cheque: cheque},
				{Filename: "b.png", Error: "recognizing cheque: no text detected in image"},
			})).To(Succeed())
			Expect(buf.String()).To(Equal(
				"Filename,Status,Payee,Amount,Date,Confidence,Error\n" +
					"a.png,Success,\"Doe, Jane\",\"12,500.00\",,0.60,\n" +
					"b.png,Failed,,,,,recognizing cheque: no text detected in image\n",
			))
		})
	})
})
